package sensibohkbridge

import (
	"context"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

// the subset of the cloud client the accessories write through
type remoteAPI interface {
	SetDeviceACState(ctx context.Context, id string, s sensibo.ACState) error
	SetDeviceClimateReactState(ctx context.Context, id string, sm sensibo.SmartMode) error
	EnableDisablePureBoost(ctx context.Context, id string, enabled bool) error
	SyncDeviceOnState(ctx context.Context, id string, on bool) error
	ResetFilterIndicator(ctx context.Context, id string) error
}

// podSink sends the commands of one pod's controller to the cloud
type podSink struct {
	api  remoteAPI
	id   string
	name string
	unit string
	caps state.Capabilities
}

func newPodSink(api remoteAPI, dev sensibo.Device) *podSink {
	return &podSink{
		api:  api,
		id:   dev.ID,
		name: dev.Room.Name,
		unit: dev.TemperatureUnit,
		caps: unified.Capabilities(dev),
	}
}

func (p *podSink) SetACState(ctx context.Context, s state.State) error {
	ac, err := unified.FormatACState(p.caps, p.unit, s)
	if err != nil {
		return err
	}
	log.Debug.Printf("[%s] sending acState %+v", p.name, ac)
	return p.api.SetDeviceACState(ctx, p.id, ac)
}

func (p *podSink) SetClimateReact(ctx context.Context, s state.State) error {
	sm, err := unified.FormatClimateReact(p.caps, p.unit, s)
	if err != nil {
		return err
	}
	log.Debug.Printf("[%s] sending climate react enabled=%t", p.name, sm.Enabled)
	return p.api.SetDeviceClimateReactState(ctx, p.id, sm)
}

func (p *podSink) SetPureBoost(ctx context.Context, on bool) error {
	return p.api.EnableDisablePureBoost(ctx, p.id, on)
}

func (p *podSink) ResetFilter(ctx context.Context) error {
	return p.api.ResetFilterIndicator(ctx, p.id)
}

func (p *podSink) SyncPower(ctx context.Context, on bool) error {
	return p.api.SyncDeviceOnState(ctx, p.id, on)
}
