package sensibohkbridge

import (
	"github.com/brutella/hap/characteristic"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// the HeaterCooler only shows the heating and cooling modes; fan and dry
// have their own services
func heaterCoolerMode(m state.Mode) bool {
	return m == state.ModeCool || m == state.ModeHeat || m == state.ModeAuto
}

func acActive(s state.State) int {
	if !isTrue(s.Active) || !heaterCoolerMode(s.Mode) {
		return characteristic.ActiveInactive
	}
	return characteristic.ActiveActive
}

func currentHeaterCoolerState(s state.State) int {
	if !isTrue(s.Active) || !heaterCoolerMode(s.Mode) {
		return characteristic.CurrentHeaterCoolerStateInactive
	}

	switch s.Mode {
	case state.ModeCool:
		return characteristic.CurrentHeaterCoolerStateCooling
	case state.ModeHeat:
		return characteristic.CurrentHeaterCoolerStateHeating
	}

	if floatOr(s.CurrentTemperature, 0) > floatOr(s.TargetTemperature, 0) {
		return characteristic.CurrentHeaterCoolerStateCooling
	}
	return characteristic.CurrentHeaterCoolerStateHeating
}

// targetHeaterCoolerState keeps showing last while the unit is off or in a
// mode the HeaterCooler cannot show
func targetHeaterCoolerState(s state.State, last int) int {
	if !isTrue(s.Active) || !heaterCoolerMode(s.Mode) {
		return last
	}
	return modeToTarget(s.Mode)
}

func modeToTarget(m state.Mode) int {
	switch m {
	case state.ModeCool:
		return characteristic.TargetHeaterCoolerStateCool
	case state.ModeHeat:
		return characteristic.TargetHeaterCoolerStateHeat
	}
	return characteristic.TargetHeaterCoolerStateAuto
}

func targetToMode(v int) state.Mode {
	switch v {
	case characteristic.TargetHeaterCoolerStateCool:
		return state.ModeCool
	case characteristic.TargetHeaterCoolerStateHeat:
		return state.ModeHeat
	}
	return state.ModeAuto
}

func swingMode(sw state.Swing) int {
	if sw == state.SwingEnabled {
		return characteristic.SwingModeSwingEnabled
	}
	return characteristic.SwingModeSwingDisabled
}

func swingFromMode(v int) state.Swing {
	if v == characteristic.SwingModeSwingEnabled {
		return state.SwingEnabled
	}
	return state.SwingDisabled
}

func activeIn(s state.State, m state.Mode) int {
	if isTrue(s.Active) && s.Mode == m {
		return characteristic.ActiveActive
	}
	return characteristic.ActiveInactive
}

func currentDryState(s state.State) int {
	if isTrue(s.Active) && s.Mode == state.ModeDry {
		return characteristic.CurrentHumidifierDehumidifierStateDehumidifying
	}
	return characteristic.CurrentHumidifierDehumidifierStateInactive
}

func currentPurifierState(s state.State) int {
	if isTrue(s.Active) {
		return characteristic.CurrentAirPurifierStatePurifyingAir
	}
	return characteristic.CurrentAirPurifierStateInactive
}

func targetPurifierState(s state.State) int {
	if isTrue(s.PureBoost) {
		return characteristic.TargetAirPurifierStateAuto
	}
	return characteristic.TargetAirPurifierStateManual
}

func filterIndication(fc state.FilterChange) int {
	if fc == state.FilterChangeNeeded {
		return characteristic.FilterChangeIndicationChangeFilter
	}
	return characteristic.FilterChangeIndicationFilterOK
}

func lowBattery(s state.State) int {
	if isTrue(s.LowBattery) {
		return characteristic.StatusLowBatteryBatteryLevelLow
	}
	return characteristic.StatusLowBatteryBatteryLevelNormal
}

func occupancyDetected(s state.State) int {
	if isTrue(s.Occupancy) {
		return characteristic.OccupancyDetectedOccupancyDetected
	}
	return characteristic.OccupancyDetectedOccupancyNotDetected
}

func carbonDioxideDetected(s state.State) int {
	if isTrue(s.CarbonDioxideDetected) {
		return characteristic.CarbonDioxideDetectedCO2LevelsAbnormal
	}
	return characteristic.CarbonDioxideDetectedCO2LevelsNormal
}
