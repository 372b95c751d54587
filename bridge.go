package sensibohkbridge

import (
	"net/http"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// Bridge builds the accessory on which all other devices hang. refreshed
// reports the last successful refresh and the error of the last attempt.
func Bridge(interval time.Duration, refreshed func() (time.Time, error)) *accessory.A {
	root := accessory.NewBridge(accessory.Info{
		Name:         "Sensibo-Homekit Bridge",
		SerialNumber: "1102",
		Manufacturer: "cloudkucooland",
		Model:        "sensibo-homekit",
		Firmware:     "0.0.1",
	})
	root.A.Id = 1

	// the settings service is informational, the period is set by the cloud's rate limit
	settings := settingsService{}
	settings.S = service.New("E880") // custom

	settings.Name = characteristic.NewName()
	settings.Name.SetValue("Settings")
	settings.S.AddC(settings.Name.C)

	settings.PollPeriod = newPollPeriod(int(interval / time.Second))
	settings.S.AddC(settings.PollPeriod.C)

	settings.RefreshAge = newRefreshAge()
	settings.S.AddC(settings.RefreshAge.C)
	settings.RefreshAge.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		last, _ := refreshed()
		if last.IsZero() {
			return 0, 0
		}
		return int(time.Since(last) / time.Second), 0
	}

	settings.RefreshError = newRefreshError()
	settings.S.AddC(settings.RefreshError.C)
	settings.RefreshError.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		if _, err := refreshed(); err != nil {
			return err.Error(), 0
		}
		return "", 0
	}

	root.A.AddS(settings.S)

	return root.A
}

type settingsService struct {
	*service.S

	Name         *characteristic.Name
	PollPeriod   *pollPeriod
	RefreshAge   *refreshAge
	RefreshError *refreshError
}
