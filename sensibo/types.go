package sensibo

import (
	"time"
)

// Event kinds as reported by the events endpoint
const (
	EventKindACStateChanged = 1
)

// Reasons attached to AC state change events
const (
	ReasonClimateReact          = "ClimateReact"
	ReasonStateCorrectionByUser = "StateCorrectionByUser"
)

type Timestamp struct {
	Time       time.Time `json:"time"`
	SecondsAgo float64   `json:"secondsAgo"`
}

// ACState is the full state of a unit as the cloud sees it. The same shape is
// used for the Climate React high and low states and for event payloads.
type ACState struct {
	On                bool       `json:"on"`
	Mode              string     `json:"mode,omitempty"`
	TargetTemperature *float64   `json:"targetTemperature,omitempty"`
	TemperatureUnit   string     `json:"temperatureUnit,omitempty"`
	FanLevel          string     `json:"fanLevel,omitempty"`
	Swing             string     `json:"swing,omitempty"`
	HorizontalSwing   string     `json:"horizontalSwing,omitempty"`
	Light             string     `json:"light,omitempty"`
	Timestamp         *Timestamp `json:"timestamp,omitempty"`
}

type Measurements struct {
	Timestamp      *Timestamp `json:"timestamp,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	Humidity       *float64   `json:"humidity,omitempty"`
	FeelsLike      *float64   `json:"feelsLike,omitempty"`
	RSSI           *float64   `json:"rssi,omitempty"`
	Motion         bool       `json:"motion"`
	RoomIsOccupied *bool      `json:"roomIsOccupied,omitempty"`
	CO2            *float64   `json:"co2,omitempty"`
	PM25           *float64   `json:"pm25,omitempty"`
	TVOC           *float64   `json:"tvoc,omitempty"`
	BatteryVoltage *float64   `json:"batteryVoltage,omitempty"`
}

// SmartMode is the Climate React configuration of a device
type SmartMode struct {
	Enabled                  bool     `json:"enabled"`
	Type                     string   `json:"type,omitempty"`
	DeviceUID                string   `json:"deviceUid,omitempty"`
	LowTemperatureThreshold  *float64 `json:"lowTemperatureThreshold,omitempty"`
	LowTemperatureState      *ACState `json:"lowTemperatureState,omitempty"`
	HighTemperatureThreshold *float64 `json:"highTemperatureThreshold,omitempty"`
	HighTemperatureState     *ACState `json:"highTemperatureState,omitempty"`
	SyncWithACPower          bool     `json:"sync_with_ac_power,omitempty"`
}

type RemoteTemperatureDetails struct {
	IsNative bool      `json:"isNative"`
	Values   []float64 `json:"values"`
}

type RemoteMode struct {
	Temperatures    map[string]RemoteTemperatureDetails `json:"temperatures,omitempty"`
	FanLevels       []string                            `json:"fanLevels,omitempty"`
	Swing           []string                            `json:"swing,omitempty"`
	HorizontalSwing []string                            `json:"horizontalSwing,omitempty"`
	Light           []string                            `json:"light,omitempty"`
}

// RemoteCapabilities lists what the IR remote of a unit can do, keyed by
// lower-case mode name
type RemoteCapabilities struct {
	Modes map[string]RemoteMode `json:"modes"`
}

type Room struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Location is reduced to what the bridge uses; the address is never decoded
type Location struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Occupancy string `json:"occupancy,omitempty"`
}

type Sensor struct {
	ID           string        `json:"id"`
	ProductModel string        `json:"productModel"`
	Serial       string        `json:"serial"`
	Measurements *Measurements `json:"measurements,omitempty"`
}

type FiltersCleaning struct {
	ACOnSecondsSinceLastFiltersClean float64    `json:"acOnSecondsSinceLastFiltersClean"`
	FiltersCleanSecondsThreshold     float64    `json:"filtersCleanSecondsThreshold"`
	LastFiltersCleanTime             *Timestamp `json:"lastFiltersCleanTime,omitempty"`
	ShouldCleanFilters               bool       `json:"shouldCleanFilters"`
}

type PureBoostConfig struct {
	Enabled bool `json:"enabled"`
}

// Device is one pod as returned by /users/me/pods
type Device struct {
	ID                 string              `json:"id"`
	ProductModel       string              `json:"productModel"`
	Serial             string              `json:"serial"`
	TemperatureUnit    string              `json:"temperatureUnit"`
	HomekitSupported   bool                `json:"homekitSupported"`
	Room               Room                `json:"room"`
	Location           *Location           `json:"location,omitempty"`
	ACState            ACState             `json:"acState"`
	Measurements       Measurements        `json:"measurements"`
	SmartMode          *SmartMode          `json:"smartMode"`
	MotionSensors      []Sensor            `json:"motionSensors,omitempty"`
	FiltersCleaning    *FiltersCleaning    `json:"filtersCleaning,omitempty"`
	PureBoostConfig    *PureBoostConfig    `json:"pureBoostConfig,omitempty"`
	RemoteCapabilities *RemoteCapabilities `json:"remoteCapabilities,omitempty"`
}

type EventDetails struct {
	Reason            string   `json:"reason"`
	ACState           *ACState `json:"acState,omitempty"`
	ResultingACState  *ACState `json:"resultingAcState,omitempty"`
	ChangedProperties []string `json:"changedProperties,omitempty"`
	Status            string   `json:"status,omitempty"`
}

// Event is one entry of a device's event log
type Event struct {
	ObjectID   string       `json:"objectId"`
	ObjectKind string       `json:"objectKind"`
	Timestamp  time.Time    `json:"timestamp"`
	EventKind  int          `json:"eventKind"`
	Details    EventDetails `json:"details"`
}
