package sensibohkbridge

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// climateReactSvc turns the unit's Climate React policy on and off
type climateReactSvc struct {
	*switchSvc

	ctl  *state.Controller
	name string
}

func newClimateReactSvc(name string, ctl *state.Controller) *climateReactSvc {
	svc := &climateReactSvc{
		switchSvc: newSwitchSvc(name),
		ctl:       ctl,
		name:      name,
	}

	svc.On.OnValueRemoteUpdate(func(on bool) {
		sm := ctl.Snapshot().SmartMode
		if sm == nil {
			// no policy known yet, sending one would wipe the thresholds
			log.Info.Printf("[%s] climate react configuration unknown, not changing it", name)
			ctl.Get(state.FieldSmartMode)
			svc.On.SetValue(!on)
			return
		}
		sm.Enabled = on

		log.Info.Printf("[%s] setting climate react to %t", name, on)
		if !ctl.Set(state.FieldSmartMode, *sm) {
			log.Info.Printf("[%s] climate react update already running", name)
			svc.On.SetValue(!on)
		}
	})

	observe(svc.On.C, ctl, state.FieldSmartMode, func(s state.State) interface{} {
		return s.SmartMode != nil && s.SmartMode.Enabled
	})

	return svc
}

func (svc *climateReactSvc) update(s state.State) {
	svc.On.SetValue(s.SmartMode != nil && s.SmartMode.Enabled)
}

// ClimateReactSwitch is the stand-alone accessory form of the switch
type ClimateReactSwitch struct {
	*generic

	Switch *climateReactSvc
}

func NewClimateReactSwitch(dev sensibo.Device, ctl *state.Controller) *ClimateReactSwitch {
	acc := ClimateReactSwitch{}
	acc.generic = &generic{}

	info := acc.configure("ClimateReactSwitch", dev.Room.Name+" Climate React", dev)
	acc.A = accessory.New(info, accessory.TypeSwitch)
	acc.finalize(dev.ID)

	acc.Switch = newClimateReactSvc(acc.name, ctl)
	acc.AddS(acc.Switch.S)

	ctl.OnChange(acc.Switch.update)
	acc.Switch.update(ctl.Snapshot())

	return &acc
}
