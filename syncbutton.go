package sensibohkbridge

import (
	"context"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// how long the sync switch stays on after being pressed
const syncResetDelay = time.Second

// syncSvc is a momentary switch that flips the stored power state of the
// unit without sending an IR command
type syncSvc struct {
	*switchSvc
}

func newSyncSvc(name string, ctl *state.Controller) *syncSvc {
	svc := &syncSvc{switchSvc: newSwitchSvc(name)}

	svc.On.OnValueRemoteUpdate(func(on bool) {
		if !on {
			return
		}
		log.Info.Printf("[%s] syncing power state", name)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ctl.ManualSync(ctx); err != nil {
				log.Info.Printf("[%s] sync failed: %s", name, err.Error())
			}
		}()
		time.AfterFunc(syncResetDelay, func() {
			svc.On.SetValue(false)
		})
	})

	return svc
}

type SyncButton struct {
	*generic

	Switch *syncSvc
}

func NewSyncButton(dev sensibo.Device, ctl *state.Controller) *SyncButton {
	acc := SyncButton{}
	acc.generic = &generic{}

	info := acc.configure("SyncButton", dev.Room.Name+" Sync", dev)
	acc.A = accessory.New(info, accessory.TypeSwitch)
	acc.finalize(dev.ID)

	acc.Switch = newSyncSvc(acc.name, ctl)
	acc.AddS(acc.Switch.S)

	return &acc
}
