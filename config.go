package sensibohkbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/refresh"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

var ErrBadConfig = errors.New("invalid configuration")

type Config struct {
	APIKey     string // from https://home.sensibo.com/me/api
	Pin        string // HomeKit setup pin
	ListenAddr string // status endpoint, empty to disable

	AllowRepeatedCommands          bool
	EnableRepeatClimateReactAction bool
	RepeatClimateReactActionMinGap int // seconds

	EnableClimateReactSwitch      bool
	ClimateReactSwitchInAccessory bool
	EnableSyncButton              bool
	SyncButtonInAccessory         bool
	EnableOccupancySensor         bool
	ExternalHumiditySensor        bool
	EnableClimateReactAutoSetup   bool

	DisableAirQuality           bool
	DisableCarbonDioxide        bool
	CarbonDioxideAlertThreshold float64

	DevicesToExclude     []string
	LocationsToInclude   []string
	ModesToExclude       []string
	IgnoreHomeKitDevices bool

	Store         string // file or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func defaultConfig() Config {
	return Config{
		Pin:                            "80899303",
		ListenAddr:                     ":8998",
		RepeatClimateReactActionMinGap: int(refresh.DefaultMinGap / time.Second),
		CarbonDioxideAlertThreshold:    unified.DefaultCarbonDioxideAlertThreshold,
		Store:                          StoreFile,
		RedisAddr:                      "127.0.0.1:6379",
	}
}

// LoadConfig reads filename over the defaults. A missing file is not an
// error, but an unusable one is.
func LoadConfig(filename string) (*Config, error) {
	conf := defaultConfig()

	raw, err := os.ReadFile(filename)
	if err != nil {
		log.Info.Printf("unable to open config %s: using defaults", filename)
		return &conf, conf.validate()
	}

	if err := json.Unmarshal(raw, &conf); err != nil {
		log.Info.Printf("unable to parse config %s: %s", filename, err.Error())
		return nil, err
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	log.Debug.Printf("using config: %+v", conf.redacted())
	return &conf, nil
}

func (c *Config) validate() error {
	if c.RepeatClimateReactActionMinGap < 0 {
		return fmt.Errorf("%w: repeatClimateReactActionMinGap is negative", ErrBadConfig)
	}
	// a repeat is only possible if the command is older than the gap when the next poll sees it
	if c.MinGap() >= refresh.PollInterval {
		return fmt.Errorf("%w: repeatClimateReactActionMinGap must be less than %d seconds", ErrBadConfig, int(refresh.PollInterval/time.Second))
	}

	for i, m := range c.ModesToExclude {
		c.ModesToExclude[i] = strings.ToUpper(m)
	}

	switch c.Store {
	case "":
		c.Store = StoreFile
	case StoreFile, StoreRedis:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrBadConfig, c.Store)
	}
	if c.CarbonDioxideAlertThreshold <= 0 {
		c.CarbonDioxideAlertThreshold = unified.DefaultCarbonDioxideAlertThreshold
	}
	return nil
}

func (c *Config) MinGap() time.Duration {
	return time.Duration(c.RepeatClimateReactActionMinGap) * time.Second
}

func (c *Config) excludesMode(mode string) bool {
	return slices.Contains(c.ModesToExclude, strings.ToUpper(mode))
}

func (c Config) redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "********"
	}
	if c.RedisPassword != "" {
		c.RedisPassword = "********"
	}
	return c
}
