package unified

import (
	"math"
	"strings"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

const (
	// VOCDensityMax is the ceiling HomeKit accepts for VOC density
	VOCDensityMax = 10000

	// ug/m3 per ppb of tVOC
	vocPPBToDensity = 4.57

	DefaultCarbonDioxideAlertThreshold = 1500
)

// ACState builds the record of a conditioning unit or purifier from a pod
func ACState(dev sensibo.Device) state.State {
	s := StateFromACState(dev, dev.ACState)

	s.CurrentTemperature = clone(dev.Measurements.Temperature)
	s.RelativeHumidity = clone(dev.Measurements.Humidity)
	s.SmartMode = SmartModeFromWire(dev.SmartMode, dev.TemperatureUnit)
	if dev.PureBoostConfig != nil {
		s.PureBoost = state.Bool(dev.PureBoostConfig.Enabled)
	}
	s.FilterChange, s.FilterLifeLevel = FilterState(dev)
	return s
}

// StateFromACState converts an acState of dev, either the current one or
// one recorded in an event, into a record. Measurements are left unknown.
func StateFromACState(dev sensibo.Device, ac sensibo.ACState) state.State {
	s := state.State{
		Active: state.Bool(ac.On),
		Mode:   state.Mode(strings.ToUpper(ac.Mode)),
		Light:  state.Bool(ac.Light != "" && ac.Light != LightOff),
	}

	if ac.TargetTemperature != nil && *ac.TargetTemperature != 0 {
		t := *ac.TargetTemperature
		u := ac.TemperatureUnit
		if u == "" {
			u = dev.TemperatureUnit
		}
		if u == "F" {
			t = ToCelsius(t)
		}
		s.TargetTemperature = state.Float(t)
	}

	s.HorizontalSwing, s.VerticalSwing = SwingState(ac.Swing, ac.HorizontalSwing)
	s.FanSpeed = FanSpeed(dev, ac)
	return s
}

// FanSpeed is the percentage of ac's fan level, nil when the mode has no
// fan levels
func FanSpeed(dev sensibo.Device, ac sensibo.ACState) *int {
	if dev.RemoteCapabilities == nil {
		return nil
	}
	rm, ok := dev.RemoteCapabilities.Modes[strings.ToLower(ac.Mode)]
	if !ok || len(rm.FanLevels) == 0 {
		return nil
	}
	return state.Int(FanLevelToPercent(ac.FanLevel, rm.FanLevels))
}

// FilterState returns unknown for pods that do not track filter cleaning
func FilterState(dev sensibo.Device) (state.FilterChange, *int) {
	fc := dev.FiltersCleaning
	if fc == nil {
		return "", nil
	}

	change := state.FilterOK
	if fc.ShouldCleanFilters {
		change = state.FilterChangeNeeded
	}

	life := 0
	if fc.FiltersCleanSecondsThreshold > 0 && fc.ACOnSecondsSinceLastFiltersClean <= fc.FiltersCleanSecondsThreshold {
		life = 100 - int(math.Floor(fc.ACOnSecondsSinceLastFiltersClean/fc.FiltersCleanSecondsThreshold*100))
	}
	return change, state.Int(life)
}

// AirQualityState reads the air quality measurements of a pod. co2Threshold
// is the level at or above which carbon dioxide is reported as detected.
func AirQualityState(dev sensibo.Device, co2Threshold float64) state.State {
	var s state.State
	m := dev.Measurements

	aq := 0
	if m.PM25 != nil {
		aq = int(*m.PM25)
	}

	if m.TVOC != nil {
		voc := math.Min(math.Round(*m.TVOC*vocPPBToDensity), VOCDensityMax)
		s.VOCDensity = state.Float(voc)

		if *m.TVOC > 0 && aq == 0 {
			switch tvoc := *m.TVOC; {
			case tvoc > 1500:
				aq = 5
			case tvoc > 1000:
				aq = 4
			case tvoc > 500:
				aq = 3
			case tvoc > 250:
				aq = 2
			default:
				aq = 1
			}
		}
	}
	s.AirQuality = state.Int(max(0, min(aq, 5)))

	if m.CO2 != nil && *m.CO2 > 0 {
		s.CarbonDioxideLevel = state.Float(*m.CO2)
		s.CarbonDioxideDetected = state.Bool(*m.CO2 >= co2Threshold)
	}
	return s
}

// SensorState reads a room sensor
func SensorState(sensor sensibo.Sensor) state.State {
	var s state.State
	m := sensor.Measurements
	if m == nil {
		return s
	}

	s.MotionDetected = state.Bool(m.Motion)
	s.CurrentTemperature = clone(m.Temperature)
	s.RelativeHumidity = clone(m.Humidity)
	if m.BatteryVoltage != nil {
		s.LowBattery = state.Bool(*m.BatteryVoltage <= 100)
	}
	return s
}

// OccupancyState is detected when the location reports anyone home
func OccupancyState(loc sensibo.Location) state.State {
	return state.State{
		Occupancy: state.Bool(loc.Occupancy == "me" || loc.Occupancy == "someone"),
	}
}

// SmartModeFromWire converts a Climate React configuration; thresholds
// and target temperatures end up in Celsius
func SmartModeFromWire(sm *sensibo.SmartMode, unit string) *state.SmartMode {
	if sm == nil {
		return &state.SmartMode{}
	}

	return &state.SmartMode{
		Enabled:                  sm.Enabled,
		Type:                     sm.Type,
		LowTemperatureThreshold:  clone(sm.LowTemperatureThreshold),
		HighTemperatureThreshold: clone(sm.HighTemperatureThreshold),
		LowTemperatureState:      reactTarget(sm.LowTemperatureState, unit),
		HighTemperatureState:     reactTarget(sm.HighTemperatureState, unit),
	}
}

func reactTarget(ac *sensibo.ACState, unit string) *state.ReactTarget {
	if ac == nil {
		return nil
	}

	rt := &state.ReactTarget{
		On:    ac.On,
		Mode:  state.Mode(strings.ToUpper(ac.Mode)),
		Light: ac.Light != "" && ac.Light != LightOff,
	}
	if ac.TargetTemperature != nil {
		t := *ac.TargetTemperature
		u := ac.TemperatureUnit
		if u == "" {
			u = unit
		}
		if u == "F" {
			t = ToCelsius(t)
		}
		rt.TargetTemperature = state.Float(t)
	}
	rt.HorizontalSwing, rt.VerticalSwing = SwingState(ac.Swing, ac.HorizontalSwing)
	return rt
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
