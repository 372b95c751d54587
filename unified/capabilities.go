package unified

import (
	"slices"
	"strings"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// Capabilities condenses the remote capabilities of a pod into what the
// bridge can drive, per mode
func Capabilities(dev sensibo.Device) state.Capabilities {
	caps := make(state.Capabilities)
	if dev.RemoteCapabilities == nil {
		return caps
	}

	for key, rm := range dev.RemoteCapabilities.Modes {
		mode := state.Mode(strings.ToUpper(key))
		var mc state.ModeCapabilities

		if mode != state.ModeDry && mode != state.ModeFan {
			mc.HomeKitSupported = true
		}

		if t, ok := rm.Temperatures["C"]; ok && len(t.Values) > 0 {
			mc.TemperaturesC = &state.TemperatureRange{Min: slices.Min(t.Values), Max: slices.Max(t.Values)}
		}
		if t, ok := rm.Temperatures["F"]; ok && len(t.Values) > 0 {
			mc.TemperaturesF = &state.TemperatureRange{Min: slices.Min(t.Values), Max: slices.Max(t.Values)}
		}

		if len(rm.FanLevels) > 0 {
			mc.FanLevels = rm.FanLevels
			mc.AutoFanSpeed = slices.Contains(rm.FanLevels, FanAuto)
		}

		if slices.Contains(rm.Swing, SwingBoth) {
			mc.VerticalSwing = true
			mc.HorizontalSwing = true
			mc.ThreeDimensionalSwing = true
		} else {
			if slices.Contains(rm.Swing, SwingRangeFull) {
				mc.VerticalSwing = true
			}
			if slices.Contains(rm.Swing, SwingHorizontal) {
				mc.HorizontalSwing = true
			}
		}
		if !mc.HorizontalSwing && slices.Contains(rm.HorizontalSwing, SwingRangeFull) {
			mc.HorizontalSwing = true
		}

		mc.Light = len(rm.Light) > 0

		log.Debug.Printf("[%s] %s: %+v", dev.Room.Name, mode, mc)
		caps[mode] = mc
	}
	return caps
}

// UsesFahrenheit reports whether the unit is set up for Fahrenheit
func UsesFahrenheit(dev sensibo.Device) bool {
	return dev.TemperatureUnit == "F"
}
