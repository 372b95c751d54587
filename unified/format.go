package unified

import (
	"errors"
	"strings"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

var (
	ErrNoMode      = errors.New("no mode set")
	ErrNoSmartMode = errors.New("no climate react configuration")
)

// FormatACState turns a record into the acState the remote API expects.
// unit is the pod's temperature unit.
func FormatACState(caps state.Capabilities, unit string, s state.State) (sensibo.ACState, error) {
	if s.Mode == "" {
		return sensibo.ACState{}, ErrNoMode
	}
	mc := caps[s.Mode]

	ac := sensibo.ACState{
		On:              s.Active != nil && *s.Active,
		Mode:            strings.ToLower(string(s.Mode)),
		TemperatureUnit: unit,
	}
	if s.TargetTemperature != nil {
		t := displayTemperature(*s.TargetTemperature, unit)
		ac.TargetTemperature = &t
	}

	ac.Swing, ac.HorizontalSwing = SwingModes(mc, s.HorizontalSwing, s.VerticalSwing)

	if len(mc.FanLevels) > 0 {
		fs := 0
		if s.FanSpeed != nil {
			fs = *s.FanSpeed
		}
		ac.FanLevel = PercentToFanLevel(fs, mc.FanLevels)
	}

	if mc.Light {
		ac.Light = lightString(s.Light != nil && *s.Light)
	}
	return ac, nil
}

func displayTemperature(c float64, unit string) float64 {
	if unit == "F" {
		return ToFahrenheit(c)
	}
	return c
}

// FormatClimateReact turns the smartMode of a record into the Climate React
// configuration the remote API expects. Both target states share the
// record's swing settings.
func FormatClimateReact(caps state.Capabilities, unit string, s state.State) (sensibo.SmartMode, error) {
	sm := s.SmartMode
	if sm == nil {
		return sensibo.SmartMode{}, ErrNoSmartMode
	}

	out := sensibo.SmartMode{
		Enabled:                  sm.Enabled,
		Type:                     sm.Type,
		LowTemperatureThreshold:  clone(sm.LowTemperatureThreshold),
		HighTemperatureThreshold: clone(sm.HighTemperatureThreshold),
	}
	out.LowTemperatureState = formatReactTarget(caps, unit, s, sm.LowTemperatureState)
	out.HighTemperatureState = formatReactTarget(caps, unit, s, sm.HighTemperatureState)
	return out, nil
}

func formatReactTarget(caps state.Capabilities, unit string, s state.State, rt *state.ReactTarget) *sensibo.ACState {
	if rt == nil {
		return nil
	}

	mode := rt.Mode
	if mode == "" {
		mode = s.Mode
	}
	mc := caps[s.Mode]

	ac := &sensibo.ACState{
		On:              rt.On,
		Mode:            strings.ToLower(string(mode)),
		TemperatureUnit: unit,
		Light:           lightString(rt.Light),
	}
	if rt.TargetTemperature != nil {
		t := displayTemperature(*rt.TargetTemperature, unit)
		ac.TargetTemperature = &t
	}

	if len(mc.FanLevels) > 0 {
		fs := 0
		switch {
		case rt.FanSpeed != nil:
			fs = *rt.FanSpeed
		case s.FanSpeed != nil:
			fs = *s.FanSpeed
		}
		ac.FanLevel = PercentToFanLevel(fs, mc.FanLevels)
	}

	ac.Swing, ac.HorizontalSwing = SwingModes(mc, s.HorizontalSwing, s.VerticalSwing)
	return ac
}

// AutoClimateReact derives a temperature Climate React policy that holds
// the record's target temperature one degree either side. It returns nil
// outside COOL and HEAT or without a target temperature.
func AutoClimateReact(s state.State) *state.SmartMode {
	if s.TargetTemperature == nil || (s.Mode != state.ModeCool && s.Mode != state.ModeHeat) {
		return nil
	}

	sm := &state.SmartMode{Type: "temperature"}
	if s.SmartMode != nil {
		sm.Enabled = s.SmartMode.Enabled
	}

	t := *s.TargetTemperature
	target := func(on bool) *state.ReactTarget {
		return &state.ReactTarget{
			On:                on,
			Mode:              s.Mode,
			TargetTemperature: state.Float(t),
			FanSpeed:          clone(s.FanSpeed),
			HorizontalSwing:   s.HorizontalSwing,
			VerticalSwing:     s.VerticalSwing,
			Light:             s.Light != nil && *s.Light,
		}
	}

	sm.HighTemperatureThreshold = state.Float(t + 1)
	sm.LowTemperatureThreshold = state.Float(t - 1)
	if s.Mode == state.ModeCool {
		sm.HighTemperatureState = target(true)
		sm.LowTemperatureState = target(false)
	} else {
		sm.HighTemperatureState = target(false)
		sm.LowTemperatureState = target(true)
	}
	return sm
}
