package sensibohkbridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/refresh"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/store"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

// the whole cloud API as the platform uses it
type cloudAPI interface {
	remoteAPI
	refresh.EventSource
	GetAllDevices(ctx context.Context) ([]sensibo.Device, error)
}

const (
	kindAirConditioner = "AirConditioner"
	kindAirPurifier    = "AirPurifier"
	kindRoomSensor     = "RoomSensor"
	kindLocation       = "Location"
)

// one cloud pod and everything hanging off it
type pod struct {
	kind        string
	ctl         *state.Controller
	sensors     map[string]*state.Controller
	accessories []sensiboDevice
}

// one record the platform keeps, for the status endpoint
type record struct {
	kind string
	ctl  *state.Controller
}

type Platform struct {
	conf       *Config
	api        cloudAPI
	store      store.Store
	coord      *state.Coordinator
	poller     *refresh.Poller
	reconciler *refresh.Reconciler // nil unless repeating is enabled

	mu          sync.Mutex
	pods        map[string]*pod
	locations   map[string]*state.Controller
	ignored     map[string]bool
	records     []record
	accessories []sensiboDevice
	fromCache   bool

	changed chan bool
}

func NewPlatform(conf *Config, api cloudAPI, st store.Store) *Platform {
	p := &Platform{
		conf:      conf,
		api:       api,
		store:     st,
		coord:     state.NewCoordinator(),
		pods:      make(map[string]*pod),
		locations: make(map[string]*state.Controller),
		ignored:   make(map[string]bool),
		changed:   make(chan bool, 1),
	}

	p.poller = refresh.NewPoller(refresh.Options{
		Coordinator:  p.coord,
		Fetch:        api.GetAllDevices,
		Fanout:       p.fanout,
		Store:        st,
		Interval:     refresh.PollInterval,
		RefreshDelay: refresh.RefreshDelay,
	})

	if conf.EnableRepeatClimateReactAction {
		p.reconciler = refresh.NewReconciler(api, conf.MinGap())
	}
	return p
}

// Startup builds the accessories from the cloud, or from the startup cache
// when the cloud cannot be reached, and starts polling
func (p *Platform) Startup(ctx context.Context) error {
	devices, err := p.api.GetAllDevices(ctx)
	if err != nil {
		log.Info.Printf("unable to get devices: %s, trying startup cache", err.Error())
		if cerr := p.store.GetItem(ctx, refresh.DevicesKey, &devices); cerr != nil {
			log.Info.Printf("startup cache: %s", cerr.Error())
			return err
		}
		p.fromCache = true
	} else if err := p.store.SetItem(ctx, refresh.DevicesKey, devices); err != nil {
		log.Info.Printf("unable to write startup cache: %s", err.Error())
	}

	p.mu.Lock()
	for _, dev := range devices {
		p.addLocked(ctx, dev)
	}
	n := len(p.accessories)
	p.mu.Unlock()
	log.Info.Printf("initial discovery complete, found %d pods, %d accessories", len(devices), n)

	p.poller.Start(ctx)
	if p.fromCache {
		p.poller.RequestRefresh()
	}
	return nil
}

// Devices returns the accessories ready for HAP to start a hap.Server
func (p *Platform) Devices() []*accessory.A {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := make([]*accessory.A, 0, len(p.accessories))
	for _, d := range p.accessories {
		log.Debug.Printf("[%s] serving %s", d.getName(), d.kind())
		a = append(a, d.getA())
	}
	return a
}

// Changed is signalled when a refresh found new accessories and the HAP
// server needs restarting to publish them
func (p *Platform) Changed() <-chan bool {
	return p.changed
}

func (p *Platform) RequestRefresh() {
	p.poller.RequestRefresh()
}

func (p *Platform) Poller() *refresh.Poller {
	return p.poller
}

func isAirConditioner(dev sensibo.Device) bool {
	return strings.Contains(dev.ProductModel, "sky") || strings.Contains(dev.ProductModel, "air")
}

func isPurifier(dev sensibo.Device) bool {
	return dev.ProductModel == "pure"
}

func hasAirQuality(dev sensibo.Device) bool {
	return dev.ProductModel == "pure" || dev.ProductModel == "airq"
}

func stateKey(id string) string {
	return "state-" + id
}

// podState is the record of a pod as reported by the cloud
func (p *Platform) podState(dev sensibo.Device) state.State {
	s := unified.ACState(dev)
	if hasAirQuality(dev) {
		aq := unified.AirQualityState(dev, p.conf.CarbonDioxideAlertThreshold)
		s.AirQuality = aq.AirQuality
		s.VOCDensity = aq.VOCDensity
		s.CarbonDioxideLevel = aq.CarbonDioxideLevel
		s.CarbonDioxideDetected = aq.CarbonDioxideDetected
	}
	return s
}

// initialState prefers the last confirmed record when running from the startup cache
func (p *Platform) initialState(ctx context.Context, dev sensibo.Device) state.State {
	s := p.podState(dev)
	if !p.fromCache {
		return s
	}

	var cached state.State
	if err := p.store.GetItem(ctx, stateKey(dev.ID), &cached); err != nil {
		log.Debug.Printf("[%s] no cached state: %s", dev.Room.Name, err.Error())
		return s
	}
	return cached
}

func (p *Platform) persist(id string) func(state.State) {
	return func(s state.State) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.SetItem(ctx, stateKey(id), s); err != nil {
			log.Info.Printf("unable to cache state of %s: %s", id, err.Error())
		}
	}
}

func (p *Platform) newController(ctx context.Context, id, name string, initial state.State, sink state.Sink, caps state.Capabilities) *state.Controller {
	return state.NewController(initial, state.Options{
		ID:               id,
		Name:             name,
		Capabilities:     caps,
		Sink:             sink,
		Coordinator:      p.coord,
		Refresher:        p.poller,
		Persist:          p.persist(id),
		SuppressRepeated: !p.conf.AllowRepeatedCommands,
		Context:          ctx,
	})
}

// addLocked builds the accessories of a pod the platform has not seen,
// reporting whether any were added
func (p *Platform) addLocked(ctx context.Context, dev sensibo.Device) bool {
	if p.ignored[dev.ID] {
		return false
	}
	if p.conf.IgnoreHomeKitDevices && dev.HomekitSupported {
		log.Info.Printf("[%s] ignoring HomeKit supported pod %s", dev.Room.Name, dev.ID)
		p.ignored[dev.ID] = true
		return false
	}
	if dev.RemoteCapabilities == nil {
		log.Info.Printf("[%s] ignoring pod %s, no remote capabilities", dev.Room.Name, dev.ID)
		p.ignored[dev.ID] = true
		return false
	}

	pd := &pod{sensors: make(map[string]*state.Controller)}
	before := len(p.accessories)
	caps := unified.Capabilities(dev)

	switch {
	case isPurifier(dev):
		pd.kind = kindAirPurifier
	case isAirConditioner(dev):
		pd.kind = kindAirConditioner
	default:
		log.Info.Printf("[%s] unknown product model %s", dev.Room.Name, dev.ProductModel)
	}

	if pd.kind != "" {
		pd.ctl = p.newController(ctx, dev.ID, dev.Room.Name, p.initialState(ctx, dev), newPodSink(p.api, dev), caps)
		p.records = append(p.records, record{kind: pd.kind, ctl: pd.ctl})
	}

	switch pd.kind {
	case kindAirConditioner:
		pd.add(NewAirConditioner(dev, pd.ctl, p.conf))
		if p.conf.ExternalHumiditySensor {
			pd.add(NewHumiditySensor(dev, pd.ctl))
		}
		if p.conf.EnableSyncButton && !p.conf.SyncButtonInAccessory {
			pd.add(NewSyncButton(dev, pd.ctl))
		}
		if p.conf.EnableClimateReactSwitch && !p.conf.ClimateReactSwitchInAccessory {
			pd.add(NewClimateReactSwitch(dev, pd.ctl))
		}
	case kindAirPurifier:
		pd.add(NewAirPurifier(dev, pd.ctl))
	}

	if pd.ctl != nil && hasAirQuality(dev) && !(p.conf.DisableAirQuality && p.conf.DisableCarbonDioxide) {
		pd.add(NewAirQualitySensor(dev, pd.ctl, p.conf))
	}

	for _, sensor := range dev.MotionSensors {
		ctl := p.newController(ctx, sensor.ID, dev.Room.Name+" sensor", unified.SensorState(sensor), nil, nil)
		pd.sensors[sensor.ID] = ctl
		p.records = append(p.records, record{kind: kindRoomSensor, ctl: ctl})
		pd.add(NewRoomSensor(sensor, dev, ctl))
	}

	if loc := dev.Location; p.conf.EnableOccupancySensor && loc != nil {
		if _, ok := p.locations[loc.ID]; !ok {
			ctl := p.newController(ctx, loc.ID, loc.Name, unified.OccupancyState(*loc), nil, nil)
			p.locations[loc.ID] = ctl
			p.records = append(p.records, record{kind: kindLocation, ctl: ctl})
			pd.add(NewOccupancySensor(*loc, dev, ctl))
		}
	}

	p.pods[dev.ID] = pd
	p.accessories = append(p.accessories, pd.accessories...)
	return len(p.accessories) > before
}

func (pd *pod) add(d sensiboDevice) {
	pd.accessories = append(pd.accessories, d)
}

// fanout pushes one refresh into every record
func (p *Platform) fanout(ctx context.Context, devices []sensibo.Device) {
	type work struct {
		pod *pod
		dev sensibo.Device
	}

	var todo []work
	added := false
	present := make(map[string]bool)

	p.mu.Lock()
	for _, dev := range devices {
		present[dev.ID] = true
		pd, ok := p.pods[dev.ID]
		if !ok {
			if p.addLocked(ctx, dev) {
				log.Info.Printf("[%s] new pod %s found", dev.Room.Name, dev.ID)
				added = true
			}
			continue
		}
		todo = append(todo, work{pod: pd, dev: dev})
	}
	var gone []*pod
	for id, pd := range p.pods {
		if !present[id] {
			gone = append(gone, pd)
		}
	}
	locations := make(map[string]*state.Controller, len(p.locations))
	for id, ctl := range p.locations {
		locations[id] = ctl
	}
	p.mu.Unlock()

	done := make(map[string]bool)
	for _, w := range todo {
		pd, dev := w.pod, w.dev

		if pd.ctl != nil && !pd.ctl.ApplyPartialUpdate(p.podState(dev)) {
			log.Debug.Printf("[%s] write pending, refresh not applied", dev.Room.Name)
		}

		for _, sensor := range dev.MotionSensors {
			if ctl, ok := pd.sensors[sensor.ID]; ok {
				ctl.ApplyPartialUpdate(unified.SensorState(sensor))
			}
		}

		if loc := dev.Location; loc != nil && !done[loc.ID] {
			if ctl, ok := locations[loc.ID]; ok {
				ctl.ApplyPartialUpdate(unified.OccupancyState(*loc))
				done[loc.ID] = true
			}
		}

		for _, d := range pd.accessories {
			d.seen(true)
		}

		if p.reconciler != nil && pd.kind == kindAirConditioner {
			if err := p.reconciler.Check(ctx, pd.ctl, dev); err != nil {
				log.Info.Printf("[%s] unable to check climate react events: %s", dev.Room.Name, err.Error())
			}
		}
	}

	for _, pd := range gone {
		for _, d := range pd.accessories {
			d.seen(false)
		}
	}

	if added {
		select {
		case p.changed <- true:
		default:
		}
	}
}
