package sensibohkbridge

import (
	"github.com/brutella/hap/characteristic"
)

// custom to us
// poll period    E8802
// refresh age    E8803
// refresh errors E8804

type pollPeriod struct {
	*characteristic.Int
}

func newPollPeriod(seconds int) *pollPeriod {
	c := characteristic.NewInt("E8802")
	c.Format = characteristic.FormatUInt32
	c.Permissions = []string{characteristic.PermissionRead}
	c.Description = "Poll Period"
	c.Unit = characteristic.UnitSeconds
	c.SetMinValue(0)
	c.SetMaxValue(3600)
	c.SetValue(seconds)

	return &pollPeriod{c}
}

type refreshAge struct {
	*characteristic.Int
}

func newRefreshAge() *refreshAge {
	c := characteristic.NewInt("E8803")
	c.Format = characteristic.FormatUInt32
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionEvents}
	c.Description = "Seconds Since Refresh"
	c.Unit = characteristic.UnitSeconds
	c.SetMinValue(0)
	c.SetValue(0)

	return &refreshAge{c}
}

type refreshError struct {
	*characteristic.String
}

func newRefreshError() *refreshError {
	c := characteristic.NewString("E8804")
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionEvents}
	c.Description = "Last Refresh Error"
	c.SetValue("")

	return &refreshError{c}
}
