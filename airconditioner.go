package sensibohkbridge

import (
	"sync"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

type AirConditioner struct {
	*generic

	HeaterCooler    *heaterCoolerSvc
	Fan             *fanSvc    // nil if the unit has no fan mode
	Dry             *drySvc    // nil if the unit has no dry mode
	HorizontalSwing *switchSvc // nil without horizontal swing
	Light           *switchSvc // nil without a light
	ClimateReact    *climateReactSvc
	Sync            *syncSvc
	Filter          *filterSvc // nil if the pod does not track the filter

	ctl        *state.Controller
	autoSetup  bool
	fahrenheit bool
	coolRange  [2]float64
	heatRange  [2]float64

	mu       sync.Mutex
	lastMode int // last TargetHeaterCoolerState shown
}

func NewAirConditioner(dev sensibo.Device, ctl *state.Controller, conf *Config) *AirConditioner {
	acc := AirConditioner{}
	acc.generic = &generic{}
	acc.ctl = ctl
	acc.autoSetup = conf.EnableClimateReactAutoSetup
	acc.fahrenheit = unified.UsesFahrenheit(dev)
	acc.lastMode = characteristic.TargetHeaterCoolerStateCool

	info := acc.configure("AirConditioner", dev.Room.Name+" AC", dev)
	acc.A = accessory.New(info, accessory.TypeAirConditioner)
	acc.finalize(dev.ID)

	caps := ctl.Capabilities()

	acc.HeaterCooler = newHeaterCoolerSvc()
	acc.AddS(acc.HeaterCooler.S)
	acc.configureHeaterCooler(caps, conf)

	if fan, ok := caps[state.ModeFan]; ok && !conf.excludesMode("FAN") {
		acc.Fan = newFanSvc(dev.Room.Name + " Fan")
		acc.AddS(acc.Fan.S)
		acc.configureFan(fan)
	}

	if dry, ok := caps[state.ModeDry]; ok && !conf.excludesMode("DRY") {
		acc.Dry = newDrySvc(dev.Room.Name + " Dry")
		acc.AddS(acc.Dry.S)
		acc.configureDry(dry)
	}

	if caps[state.ModeCool].HorizontalSwing || caps[state.ModeHeat].HorizontalSwing {
		acc.HorizontalSwing = newSwitchSvc(dev.Room.Name + " Horizontal Swing")
		acc.AddS(acc.HorizontalSwing.S)
		acc.HorizontalSwing.On.OnValueRemoteUpdate(func(on bool) {
			log.Info.Printf("[%s] setting horizontal swing to %t", acc.name, on)
			sw := state.SwingDisabled
			if on {
				sw = state.SwingEnabled
			}
			acc.ctl.Set(state.FieldHorizontalSwing, sw)
			acc.updateClimateReact()
		})
		observe(acc.HorizontalSwing.On.C, ctl, state.FieldHorizontalSwing, func(s state.State) interface{} {
			return s.HorizontalSwing == state.SwingEnabled
		})
	}

	if caps[state.ModeCool].Light || caps[state.ModeHeat].Light {
		acc.Light = newSwitchSvc(dev.Room.Name + " AC Light")
		acc.AddS(acc.Light.S)
		acc.Light.On.OnValueRemoteUpdate(func(on bool) {
			log.Info.Printf("[%s] setting light to %t", acc.name, on)
			acc.ctl.Set(state.FieldLight, on)
			acc.updateClimateReact()
		})
		observe(acc.Light.On.C, ctl, state.FieldLight, func(s state.State) interface{} {
			return isTrue(s.Light)
		})
	}

	if conf.EnableClimateReactSwitch && conf.ClimateReactSwitchInAccessory {
		acc.ClimateReact = newClimateReactSvc(dev.Room.Name+" Climate React", ctl)
		acc.AddS(acc.ClimateReact.S)
	}

	if conf.EnableSyncButton && conf.SyncButtonInAccessory {
		acc.Sync = newSyncSvc(dev.Room.Name+" Sync", ctl)
		acc.AddS(acc.Sync.S)
	}

	if dev.FiltersCleaning != nil {
		acc.Filter = newFilterSvc()
		acc.AddS(acc.Filter.S)
		acc.Filter.ResetFilterIndication.OnValueRemoteUpdate(func(int) {
			log.Info.Printf("[%s] resetting filter indicator", acc.name)
			acc.ctl.Set(state.FieldFilterChange, state.FilterOK)
			acc.ctl.Set(state.FieldFilterLifeLevel, 100)
		})
	}

	if acc.fahrenheit {
		acc.HeaterCooler.TemperatureDisplayUnits.SetValue(characteristic.TemperatureDisplayUnitsFahrenheit)
	} else {
		acc.HeaterCooler.TemperatureDisplayUnits.SetValue(characteristic.TemperatureDisplayUnitsCelsius)
	}

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func (acc *AirConditioner) configureHeaterCooler(caps state.Capabilities, conf *Config) {
	hc := acc.HeaterCooler
	step := 1.0
	if acc.fahrenheit {
		step = 0.1
	}

	var valid []int
	for _, mode := range []state.Mode{state.ModeAuto, state.ModeHeat, state.ModeCool} {
		mc, ok := caps[mode]
		if !ok || !mc.HomeKitSupported || conf.excludesMode(string(mode)) {
			continue
		}
		valid = append(valid, modeToTarget(mode))

		lo, hi, ok := celsiusRange(mc)
		if !ok {
			continue
		}

		// AUTO only gets a threshold when the dedicated mode is missing
		cool := mode == state.ModeCool || (mode == state.ModeAuto && !acc.modeUsable(caps, conf, state.ModeCool))
		heat := mode == state.ModeHeat || (mode == state.ModeAuto && !acc.modeUsable(caps, conf, state.ModeHeat))

		if cool && hc.CoolingThresholdTemperature == nil {
			acc.coolRange = [2]float64{lo, hi}
			hc.CoolingThresholdTemperature = characteristic.NewCoolingThresholdTemperature()
			hc.CoolingThresholdTemperature.SetMinValue(lo)
			hc.CoolingThresholdTemperature.SetMaxValue(hi)
			hc.CoolingThresholdTemperature.SetStepValue(step)
			hc.CoolingThresholdTemperature.SetValue(lo)
			hc.AddC(hc.CoolingThresholdTemperature.C)
			hc.CoolingThresholdTemperature.OnValueRemoteUpdate(func(t float64) {
				log.Info.Printf("[%s] setting cooling threshold to %.1f", acc.name, t)
				acc.setTarget(t)
			})
		}
		if heat && hc.HeatingThresholdTemperature == nil {
			acc.heatRange = [2]float64{lo, hi}
			hc.HeatingThresholdTemperature = characteristic.NewHeatingThresholdTemperature()
			hc.HeatingThresholdTemperature.SetMinValue(lo)
			hc.HeatingThresholdTemperature.SetMaxValue(hi)
			hc.HeatingThresholdTemperature.SetStepValue(step)
			hc.HeatingThresholdTemperature.SetValue(lo)
			hc.AddC(hc.HeatingThresholdTemperature.C)
			hc.HeatingThresholdTemperature.OnValueRemoteUpdate(func(t float64) {
				log.Info.Printf("[%s] setting heating threshold to %.1f", acc.name, t)
				acc.setTarget(t)
			})
		}
	}

	if len(valid) == 0 {
		log.Info.Printf("[%s] no heating or cooling modes usable from HomeKit", acc.name)
	} else {
		hc.TargetHeaterCoolerState.ValidVals = valid
		acc.lastMode = valid[len(valid)-1]
		hc.TargetHeaterCoolerState.SetValue(acc.lastMode)
	}

	if caps[state.ModeCool].VerticalSwing || caps[state.ModeHeat].VerticalSwing {
		hc.SwingMode = characteristic.NewSwingMode()
		hc.AddC(hc.SwingMode.C)
		hc.SwingMode.OnValueRemoteUpdate(func(v int) {
			log.Info.Printf("[%s] setting swing to %d", acc.name, v)
			acc.ctl.Set(state.FieldVerticalSwing, swingFromMode(v))
			acc.assertMode()
			acc.updateClimateReact()
		})
	}

	if len(caps[state.ModeCool].FanLevels) > 0 || len(caps[state.ModeHeat].FanLevels) > 0 {
		hc.RotationSpeed = characteristic.NewRotationSpeed()
		hc.AddC(hc.RotationSpeed.C)
		hc.RotationSpeed.OnValueRemoteUpdate(func(v float64) {
			log.Info.Printf("[%s] setting fan speed to %.0f%%", acc.name, v)
			acc.ctl.Set(state.FieldFanSpeed, int(v))
			acc.assertMode()
			acc.updateClimateReact()
		})
	}

	hc.Active.OnValueRemoteUpdate(func(v int) {
		log.Info.Printf("[%s] setting active to %d", acc.name, v)
		if v == characteristic.ActiveActive {
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, targetToMode(acc.getLastMode()))
		} else if heaterCoolerMode(acc.ctl.Snapshot().Mode) {
			// switching off the HeaterCooler must not stop a fan or dry cycle
			acc.ctl.Set(state.FieldActive, false)
		}
		acc.updateClimateReact()
	})

	hc.TargetHeaterCoolerState.OnValueRemoteUpdate(func(v int) {
		log.Info.Printf("[%s] setting mode to %s", acc.name, targetToMode(v))
		acc.setLastMode(v)
		acc.ctl.Set(state.FieldMode, targetToMode(v))
		acc.ctl.Set(state.FieldActive, true)
		acc.updateClimateReact()
	})

	observe(hc.Active.C, acc.ctl, state.FieldActive, func(s state.State) interface{} {
		return acActive(s)
	})
	observe(hc.CurrentHeaterCoolerState.C, acc.ctl, state.FieldMode, func(s state.State) interface{} {
		return currentHeaterCoolerState(s)
	})
	observe(hc.TargetHeaterCoolerState.C, acc.ctl, state.FieldMode, func(s state.State) interface{} {
		return targetHeaterCoolerState(s, acc.getLastMode())
	})
	observe(hc.CurrentTemperature.C, acc.ctl, state.FieldCurrentTemperature, func(s state.State) interface{} {
		return floatOr(s.CurrentTemperature, 0)
	})
	observe(hc.CurrentRelativeHumidity.C, acc.ctl, state.FieldRelativeHumidity, func(s state.State) interface{} {
		return floatOr(s.RelativeHumidity, 0)
	})
}

func (acc *AirConditioner) modeUsable(caps state.Capabilities, conf *Config, m state.Mode) bool {
	_, ok := caps[m]
	return ok && !conf.excludesMode(string(m))
}

func (acc *AirConditioner) configureFan(mc state.ModeCapabilities) {
	fan := acc.Fan

	if mc.VerticalSwing {
		fan.SwingMode = characteristic.NewSwingMode()
		fan.AddC(fan.SwingMode.C)
		fan.SwingMode.OnValueRemoteUpdate(func(v int) {
			log.Info.Printf("[%s] setting fan swing to %d", acc.name, v)
			acc.ctl.Set(state.FieldVerticalSwing, swingFromMode(v))
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, state.ModeFan)
		})
	}

	if len(mc.FanLevels) > 0 {
		fan.RotationSpeed = characteristic.NewRotationSpeed()
		fan.AddC(fan.RotationSpeed.C)
		fan.RotationSpeed.OnValueRemoteUpdate(func(v float64) {
			log.Info.Printf("[%s] setting fan mode speed to %.0f%%", acc.name, v)
			acc.ctl.Set(state.FieldFanSpeed, int(v))
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, state.ModeFan)
		})
	}

	observe(fan.Active.C, acc.ctl, state.FieldActive, func(s state.State) interface{} {
		return activeIn(s, state.ModeFan)
	})

	fan.Active.OnValueRemoteUpdate(func(v int) {
		log.Info.Printf("[%s] setting fan active to %d", acc.name, v)
		if v == characteristic.ActiveActive {
			acc.ctl.Set(state.FieldMode, state.ModeFan)
			acc.ctl.Set(state.FieldActive, true)
		} else if acc.ctl.Snapshot().Mode == state.ModeFan {
			acc.ctl.Set(state.FieldActive, false)
		}
	})
}

func (acc *AirConditioner) configureDry(mc state.ModeCapabilities) {
	dry := acc.Dry

	if mc.VerticalSwing {
		dry.SwingMode = characteristic.NewSwingMode()
		dry.AddC(dry.SwingMode.C)
		dry.SwingMode.OnValueRemoteUpdate(func(v int) {
			log.Info.Printf("[%s] setting dry swing to %d", acc.name, v)
			acc.ctl.Set(state.FieldVerticalSwing, swingFromMode(v))
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, state.ModeDry)
		})
	}

	if len(mc.FanLevels) > 0 {
		dry.RotationSpeed = characteristic.NewRotationSpeed()
		dry.AddC(dry.RotationSpeed.C)
		dry.RotationSpeed.OnValueRemoteUpdate(func(v float64) {
			log.Info.Printf("[%s] setting dry mode speed to %.0f%%", acc.name, v)
			acc.ctl.Set(state.FieldFanSpeed, int(v))
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, state.ModeDry)
		})
	}

	observe(dry.Active.C, acc.ctl, state.FieldActive, func(s state.State) interface{} {
		return activeIn(s, state.ModeDry)
	})
	observe(dry.CurrentHumidifierDehumidifierState.C, acc.ctl, state.FieldMode, func(s state.State) interface{} {
		return currentDryState(s)
	})

	dry.Active.OnValueRemoteUpdate(func(v int) {
		log.Info.Printf("[%s] setting dry active to %d", acc.name, v)
		if v == characteristic.ActiveActive {
			acc.ctl.Set(state.FieldActive, true)
			acc.ctl.Set(state.FieldMode, state.ModeDry)
		} else if acc.ctl.Snapshot().Mode == state.ModeDry {
			acc.ctl.Set(state.FieldActive, false)
		}
	})

	dry.TargetHumidifierDehumidifierState.OnValueRemoteUpdate(func(int) {
		acc.ctl.Set(state.FieldActive, true)
		acc.ctl.Set(state.FieldMode, state.ModeDry)
	})
}

func (acc *AirConditioner) getLastMode() int {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.lastMode
}

func (acc *AirConditioner) setLastMode(v int) {
	acc.mu.Lock()
	acc.lastMode = v
	acc.mu.Unlock()
}

// assertMode turns the unit on in the mode last picked in HomeKit
func (acc *AirConditioner) assertMode() {
	acc.ctl.Set(state.FieldActive, true)
	acc.ctl.Set(state.FieldMode, targetToMode(acc.getLastMode()))
}

func (acc *AirConditioner) setTarget(t float64) {
	acc.ctl.Set(state.FieldTargetTemperature, t)
	acc.assertMode()
	acc.updateClimateReact()
}

// updateClimateReact rebuilds the Climate React thresholds around the new
// target when auto setup is on
func (acc *AirConditioner) updateClimateReact() {
	if !acc.autoSetup {
		return
	}
	sm := unified.AutoClimateReact(acc.ctl.Snapshot())
	if sm == nil {
		return
	}
	if !acc.ctl.Set(state.FieldSmartMode, *sm) {
		log.Debug.Printf("[%s] climate react update not sent", acc.name)
	}
}

// update pushes the record into every service
func (acc *AirConditioner) update(s state.State) {
	hc := acc.HeaterCooler

	hc.Active.SetValue(acActive(s))
	hc.CurrentHeaterCoolerState.SetValue(currentHeaterCoolerState(s))

	target := targetHeaterCoolerState(s, acc.getLastMode())
	acc.setLastMode(target)
	hc.TargetHeaterCoolerState.SetValue(target)

	if s.CurrentTemperature != nil {
		hc.CurrentTemperature.SetValue(*s.CurrentTemperature)
	}
	if s.RelativeHumidity != nil {
		hc.CurrentRelativeHumidity.SetValue(*s.RelativeHumidity)
	}
	if s.TargetTemperature != nil {
		if c := hc.CoolingThresholdTemperature; c != nil {
			c.SetValue(clamp(*s.TargetTemperature, acc.coolRange[0], acc.coolRange[1]))
		}
		if h := hc.HeatingThresholdTemperature; h != nil {
			h.SetValue(clamp(*s.TargetTemperature, acc.heatRange[0], acc.heatRange[1]))
		}
	}
	if hc.SwingMode != nil {
		hc.SwingMode.SetValue(swingMode(s.VerticalSwing))
	}
	if hc.RotationSpeed != nil {
		hc.RotationSpeed.SetValue(float64(intOr(s.FanSpeed, 0)))
	}

	if fan := acc.Fan; fan != nil {
		fan.Active.SetValue(activeIn(s, state.ModeFan))
		if fan.SwingMode != nil {
			fan.SwingMode.SetValue(swingMode(s.VerticalSwing))
		}
		if fan.RotationSpeed != nil {
			fan.RotationSpeed.SetValue(float64(intOr(s.FanSpeed, 0)))
		}
	}

	if dry := acc.Dry; dry != nil {
		dry.Active.SetValue(activeIn(s, state.ModeDry))
		dry.CurrentHumidifierDehumidifierState.SetValue(currentDryState(s))
		if s.RelativeHumidity != nil {
			dry.CurrentRelativeHumidity.SetValue(*s.RelativeHumidity)
		}
		if dry.SwingMode != nil {
			dry.SwingMode.SetValue(swingMode(s.VerticalSwing))
		}
		if dry.RotationSpeed != nil {
			dry.RotationSpeed.SetValue(float64(intOr(s.FanSpeed, 0)))
		}
	}

	if acc.HorizontalSwing != nil {
		acc.HorizontalSwing.On.SetValue(s.HorizontalSwing == state.SwingEnabled)
	}
	if acc.Light != nil {
		acc.Light.On.SetValue(isTrue(s.Light))
	}
	if acc.ClimateReact != nil {
		acc.ClimateReact.update(s)
	}
	if acc.Filter != nil {
		acc.Filter.FilterChangeIndication.SetValue(filterIndication(s.FilterChange))
		acc.Filter.FilterLifeLevel.SetValue(float64(intOr(s.FilterLifeLevel, 100)))
	}
}

// celsiusRange is the target range of a mode in Celsius
func celsiusRange(mc state.ModeCapabilities) (float64, float64, bool) {
	if r := mc.TemperaturesC; r != nil {
		return r.Min, r.Max, true
	}
	if r := mc.TemperaturesF; r != nil {
		return unified.ToCelsius(r.Min), unified.ToCelsius(r.Max), true
	}
	return 0, 0, false
}
