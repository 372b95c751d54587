package sensibohkbridge

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// AirPurifier is a Pure; it runs in fan mode only and boost is the auto target state
type AirPurifier struct {
	*generic

	Purifier *purifierSvc
	Light    *switchSvc
	Filter   *filterSvc

	ctl *state.Controller
}

func NewAirPurifier(dev sensibo.Device, ctl *state.Controller) *AirPurifier {
	acc := AirPurifier{}
	acc.generic = &generic{}
	acc.ctl = ctl

	info := acc.configure("AirPurifier", dev.Room.Name+" Pure", dev)
	acc.A = accessory.New(info, accessory.TypeAirPurifier)
	acc.finalize(dev.ID)

	acc.Purifier = newPurifierSvc()
	acc.AddS(acc.Purifier.S)

	acc.Purifier.Active.OnValueRemoteUpdate(func(v int) {
		log.Info.Printf("[%s] setting active to %d", acc.name, v)
		ctl.Set(state.FieldActive, v == characteristic.ActiveActive)
	})

	acc.Purifier.TargetAirPurifierState.OnValueRemoteUpdate(func(v int) {
		boost := v == characteristic.TargetAirPurifierStateAuto
		log.Info.Printf("[%s] setting pure boost to %t", acc.name, boost)
		ctl.Set(state.FieldPureBoost, boost)
	})

	acc.Purifier.RotationSpeed.OnValueRemoteUpdate(func(v float64) {
		log.Info.Printf("[%s] setting fan speed to %.0f%%", acc.name, v)
		if v > 0 {
			ctl.Set(state.FieldFanSpeed, int(v))
			ctl.Set(state.FieldActive, true)
		} else {
			ctl.Set(state.FieldActive, false)
		}
	})

	observe(acc.Purifier.Active.C, ctl, state.FieldActive, func(s state.State) interface{} {
		if isTrue(s.Active) {
			return characteristic.ActiveActive
		}
		return characteristic.ActiveInactive
	})
	observe(acc.Purifier.CurrentAirPurifierState.C, ctl, state.FieldActive, func(s state.State) interface{} {
		return currentPurifierState(s)
	})
	observe(acc.Purifier.TargetAirPurifierState.C, ctl, state.FieldPureBoost, func(s state.State) interface{} {
		return targetPurifierState(s)
	})
	observe(acc.Purifier.RotationSpeed.C, ctl, state.FieldFanSpeed, func(s state.State) interface{} {
		return float64(intOr(s.FanSpeed, 0))
	})

	if ctl.Capabilities()[state.ModeFan].Light {
		acc.Light = newSwitchSvc(dev.Room.Name + " Pure Light")
		acc.AddS(acc.Light.S)
		acc.Light.On.OnValueRemoteUpdate(func(on bool) {
			log.Info.Printf("[%s] setting light to %t", acc.name, on)
			ctl.Set(state.FieldLight, on)
		})
		observe(acc.Light.On.C, ctl, state.FieldLight, func(s state.State) interface{} {
			return isTrue(s.Light)
		})
	}

	if dev.FiltersCleaning != nil {
		acc.Filter = newFilterSvc()
		acc.AddS(acc.Filter.S)
		acc.Filter.ResetFilterIndication.OnValueRemoteUpdate(func(int) {
			log.Info.Printf("[%s] resetting filter indicator", acc.name)
			ctl.Set(state.FieldFilterChange, state.FilterOK)
			ctl.Set(state.FieldFilterLifeLevel, 100)
		})
	}

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func (acc *AirPurifier) update(s state.State) {
	p := acc.Purifier

	if isTrue(s.Active) {
		p.Active.SetValue(characteristic.ActiveActive)
	} else {
		p.Active.SetValue(characteristic.ActiveInactive)
	}
	p.CurrentAirPurifierState.SetValue(currentPurifierState(s))
	p.TargetAirPurifierState.SetValue(targetPurifierState(s))
	if s.FanSpeed != nil {
		p.RotationSpeed.SetValue(float64(*s.FanSpeed))
	}

	if acc.Light != nil {
		acc.Light.On.SetValue(isTrue(s.Light))
	}
	if acc.Filter != nil {
		acc.Filter.FilterChangeIndication.SetValue(filterIndication(s.FilterChange))
		acc.Filter.FilterLifeLevel.SetValue(float64(intOr(s.FilterLifeLevel, 100)))
	}
}
