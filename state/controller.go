package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brutella/hap/log"
)

const (
	DefaultQuietWindow = time.Second
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultRetryDelay  = time.Second
)

// ErrUnknownPower is returned by ManualSync before the device reported its power state
var ErrUnknownPower = errors.New("power state unknown")

// Sink is the remote side of a controller. Calls may block for as long as
// the remote API takes; the controller never calls them while holding its lock.
type Sink interface {
	SetACState(ctx context.Context, s State) error
	SetClimateReact(ctx context.Context, s State) error
	SetPureBoost(ctx context.Context, on bool) error
	ResetFilter(ctx context.Context) error
	SyncPower(ctx context.Context, on bool) error
}

type TemperatureRange struct {
	Min float64
	Max float64
}

// ModeCapabilities is what a device can do in one mode
type ModeCapabilities struct {
	HomeKitSupported      bool
	TemperaturesC         *TemperatureRange
	TemperaturesF         *TemperatureRange
	FanLevels             []string
	AutoFanSpeed          bool
	VerticalSwing         bool
	HorizontalSwing       bool
	ThreeDimensionalSwing bool
	Light                 bool
}

type Capabilities map[Mode]ModeCapabilities

type Options struct {
	ID           string
	Name         string
	Capabilities Capabilities
	Sink         Sink
	Coordinator  *Coordinator
	Refresher    Refresher

	// Persist is called with the confirmed state after every successful write
	Persist func(State)

	// SuppressRepeated drops writes that do not change the stored value
	SuppressRepeated bool

	QuietWindow time.Duration
	SettleDelay time.Duration
	RetryDelay  time.Duration

	Context context.Context
}

// Controller owns one Device State Record. Every read and write from the
// accessory side goes through Get and Set; the poller goes through
// ApplyPartialUpdate and the reconciler through ReplaceAndDispatch.
type Controller struct {
	id   string
	name string
	caps Capabilities
	opts Options

	mu    sync.Mutex
	state State
	phase Phase
	timer *time.Timer
	gen   uint64

	// a debounce timer fired while a command was in flight
	pending bool

	preventTurningOff bool
	smartModeInFlight bool
	lastStateRefresh  time.Time

	nmu       sync.Mutex
	notifiers []func(State)
}

func NewController(initial State, opts Options) *Controller {
	if opts.QuietWindow == 0 {
		opts.QuietWindow = DefaultQuietWindow
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Coordinator == nil {
		opts.Coordinator = NewCoordinator()
	}
	if opts.Name == "" {
		opts.Name = opts.ID
	}

	return &Controller{
		id:    opts.ID,
		name:  opts.Name,
		caps:  opts.Capabilities,
		opts:  opts,
		state: initial.Clone(),
		phase: Idle,
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Name() string {
	return c.name
}

func (c *Controller) Capabilities() Capabilities {
	return c.caps
}

// OnChange registers fn to be called with a copy of the state whenever it
// should be pushed to HomeKit.
func (c *Controller) OnChange(fn func(State)) {
	c.nmu.Lock()
	defer c.nmu.Unlock()
	c.notifiers = append(c.notifiers, fn)
}

func (c *Controller) notify(s State) {
	c.nmu.Lock()
	n := make([]func(State), len(c.notifiers))
	copy(n, c.notifiers)
	c.nmu.Unlock()

	for _, fn := range n {
		fn(s.Clone())
	}
}

// Phase reports the write phase of this device, or Refreshing when the
// device is idle and a poll cycle is running.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	p := c.phase
	c.mu.Unlock()

	if p == Idle && c.opts.Coordinator.Refreshing() {
		return Refreshing
	}
	return p
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) LastStateRefresh() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStateRefresh
}

func (c *Controller) SetLastStateRefresh(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastStateRefresh = t
}

func (c *Controller) requestRefresh() {
	if c.opts.Refresher != nil {
		c.opts.Refresher.RequestRefresh()
	}
}

// Get returns the stored value of f, nil if unknown. When no write is
// pending for the device a background refresh is requested.
func (c *Controller) Get(f Field) any {
	c.mu.Lock()
	v := c.state.get(f)
	idle := c.phase == Idle
	c.mu.Unlock()

	if idle {
		c.requestRefresh()
	}
	return v
}

// Set applies v to f locally and schedules it for the remote device. It
// returns false when the write was rejected.
func (c *Controller) Set(f Field, v any) bool {
	c.mu.Lock()

	if f == FieldSmartMode {
		if c.smartModeInFlight {
			c.mu.Unlock()
			log.Debug.Printf("[%s] climate react command in flight, ignoring", c.name)
			return false
		}
	} else if c.opts.SuppressRepeated {
		var scratch State
		if err := scratch.set(f, v); err != nil {
			c.mu.Unlock()
			log.Info.Printf("[%s] %s", c.name, err.Error())
			return false
		}
		if equalValues(scratch.get(f), c.state.get(f)) {
			c.mu.Unlock()
			log.Debug.Printf("[%s] %s already %v, skipping", c.name, f, v)
			return false
		}
	}

	if err := c.state.set(f, v); err != nil {
		c.mu.Unlock()
		log.Info.Printf("[%s] %s", c.name, err.Error())
		return false
	}
	log.Debug.Printf("[%s] %s -> %v", c.name, f, v)

	switch f {
	case FieldFilterChange:
		c.mu.Unlock()
		go c.resetFilter()
	case FieldFilterLifeLevel:
		c.mu.Unlock()
	case FieldSmartMode:
		c.smartModeInFlight = true
		snap := c.state.Clone()
		c.mu.Unlock()
		go c.sendClimateReact(snap)
	case FieldPureBoost:
		on := c.state.PureBoost != nil && *c.state.PureBoost
		c.mu.Unlock()
		go c.sendPureBoost(on)
	default:
		if f == FieldFanSpeed && c.state.FanSpeed != nil && *c.state.FanSpeed == 0 && c.caps[c.state.Mode].AutoFanSpeed {
			c.preventTurningOff = true
		}
		c.scheduleLocked()
		c.mu.Unlock()
	}
	return true
}

func (c *Controller) resetFilter() {
	if err := c.opts.Sink.ResetFilter(c.opts.Context); err != nil {
		log.Info.Printf("[%s] filter reset failed: %s", c.name, err.Error())
		c.requestRefresh()
	}
}

func (c *Controller) sendClimateReact(snap State) {
	if err := c.opts.Sink.SetClimateReact(c.opts.Context, snap); err != nil {
		log.Info.Printf("[%s] climate react update failed: %s", c.name, err.Error())
	}
	if c.Phase() == Idle {
		c.requestRefresh()
	}

	c.mu.Lock()
	c.smartModeInFlight = false
	c.mu.Unlock()
}

func (c *Controller) sendPureBoost(on bool) {
	if err := c.opts.Sink.SetPureBoost(c.opts.Context, on); err != nil {
		log.Info.Printf("[%s] pure boost update failed: %s", c.name, err.Error())
	}
	if c.Phase() == Idle {
		c.requestRefresh()
	}
}

// scheduleLocked (re)starts the debounce timer. c.mu must be held.
func (c *Controller) scheduleLocked() {
	c.opts.Coordinator.beginWrite(c.id)
	if c.phase != WriteInFlight {
		c.phase = WriteDebouncing
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.opts.QuietWindow, func() {
		c.fire(gen)
	})
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.timer = nil

	if c.phase == WriteInFlight {
		c.pending = true
		return
	}
	c.dispatchLocked()
}

// dispatchLocked sends the coalesced state. c.mu must be held.
func (c *Controller) dispatchLocked() {
	if c.preventTurningOff && (c.state.Active == nil || !*c.state.Active) {
		log.Debug.Printf("[%s] fan set to auto, keeping the unit on", c.name)
		c.state.Active = Bool(true)
	}
	c.preventTurningOff = false
	c.phase = WriteInFlight

	snap := c.state.Clone()
	go c.send(snap)
}

func (c *Controller) send(snap State) {
	if err := c.opts.Sink.SetACState(c.opts.Context, snap); err != nil {
		log.Info.Printf("[%s] state update failed: %s", c.name, err.Error())
		time.AfterFunc(c.opts.RetryDelay, func() {
			c.finishWrite(false)
		})
		return
	}

	log.Debug.Printf("[%s] state update sent", c.name)
	time.AfterFunc(c.opts.SettleDelay, func() {
		c.finishWrite(true)
	})
}

func (c *Controller) finishWrite(ok bool) {
	c.mu.Lock()

	if c.pending {
		c.pending = false
		c.dispatchLocked()
		c.mu.Unlock()
		return
	}

	if c.timer != nil {
		c.phase = WriteDebouncing
		c.mu.Unlock()
		return
	}

	c.phase = Idle
	c.opts.Coordinator.endWrite(c.id)
	snap := c.state.Clone()
	c.mu.Unlock()

	if !ok {
		c.requestRefresh()
		return
	}
	if c.opts.Persist != nil {
		c.opts.Persist(snap)
	}
	c.notify(snap)
}

// ApplyPartialUpdate merges every known field of p into the record and
// pushes the result to HomeKit. It is ignored while a write is pending.
func (c *Controller) ApplyPartialUpdate(p State) bool {
	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		return false
	}
	c.state.merge(p)
	snap := c.state.Clone()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// ReplaceAndDispatch overwrites the whole record with s in one step and
// sends it as a single command. It returns false, leaving the record alone,
// when a write from HomeKit is already pending.
func (c *Controller) ReplaceAndDispatch(s State) bool {
	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		log.Info.Printf("[%s] write pending, not replaying climate react state", c.name)
		return false
	}
	c.state = s.Clone()
	c.scheduleLocked()
	snap := c.state.Clone()
	c.mu.Unlock()

	log.Info.Printf("[%s] replaying climate react state", c.name)
	c.notify(snap)
	return true
}

// ManualSync flips the stored power state without touching the unit, for
// when the unit was switched by its own remote and the cloud got it wrong.
func (c *Controller) ManualSync(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Active == nil {
		c.mu.Unlock()
		return ErrUnknownPower
	}
	on := !*c.state.Active
	c.state.Active = Bool(on)
	snap := c.state.Clone()
	c.mu.Unlock()

	c.notify(snap)

	if err := c.opts.Sink.SyncPower(ctx, on); err != nil {
		log.Info.Printf("[%s] power sync failed: %s", c.name, err.Error())
		return err
	}
	log.Info.Printf("[%s] power state synced to %t", c.name, on)
	return nil
}
