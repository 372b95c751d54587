// Package refresh pulls device state from the cloud on a fixed cycle and
// repairs Climate React commands the units appear to have missed.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/store"
)

const (
	// the cloud asks integrations not to poll more often than this
	RemoteInterval = 90 * time.Second
	RefreshDelay   = 5 * time.Second
	PollInterval   = RemoteInterval - RefreshDelay

	// DevicesKey is where the last device list is cached
	DevicesKey = "devices"
)

type Options struct {
	Coordinator *state.Coordinator
	Fetch       func(context.Context) ([]sensibo.Device, error)
	// Fanout pushes fresh devices into every accessory
	Fanout func(context.Context, []sensibo.Device)
	Store  store.Store

	// Interval between cycles; 0 disables polling, leaving only requested refreshes
	Interval     time.Duration
	RefreshDelay time.Duration
}

type Poller struct {
	opts    Options
	trigger chan struct{}

	mu      sync.Mutex
	last    time.Time
	lastErr error
}

func NewPoller(opts Options) *Poller {
	if opts.Coordinator == nil {
		opts.Coordinator = state.NewCoordinator()
	}
	return &Poller{
		opts:    opts,
		trigger: make(chan struct{}, 1),
	}
}

// RequestRefresh asks for an out-of-cycle refresh. It never blocks; the
// request is dropped if one is already queued or running.
func (p *Poller) RequestRefresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// LastRefresh is the time of the last successful fetch and the error of
// the last attempt
func (p *Poller) LastRefresh() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.lastErr
}

func (p *Poller) Interval() time.Duration {
	return p.opts.Interval
}

// Start runs the poll loop until ctx is done
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	var timer *time.Timer
	var tc <-chan time.Time
	if p.opts.Interval > 0 {
		timer = time.NewTimer(p.opts.Interval)
		defer timer.Stop()
		tc = timer.C
	}

	rearm := func() {
		if timer != nil {
			timer.Reset(p.opts.Interval)
		}
	}

	for {
		ticked := false
		select {
		case <-ctx.Done():
			return
		case <-tc:
			ticked = true
		case <-p.trigger:
		}

		if !p.opts.Coordinator.TryBeginRefresh() {
			log.Debug.Printf("refresh or write in progress, skipping refresh")
			if ticked {
				rearm()
			}
			continue
		}
		if timer != nil {
			timer.Stop()
		}

		p.cycle(ctx)
		rearm()
	}
}

func (p *Poller) cycle(ctx context.Context) {
	coord := p.opts.Coordinator

	select {
	case <-ctx.Done():
		coord.EndRefresh()
		return
	case <-time.After(p.opts.RefreshDelay):
	}

	seq := coord.WriteSeq()
	log.Debug.Printf("refreshing state")
	devices, err := p.opts.Fetch(ctx)

	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.last = time.Now()
	}
	p.mu.Unlock()

	if err != nil {
		log.Info.Printf("refresh failed: %s", err.Error())
		coord.EndRefresh()
		return
	}

	if p.opts.Store != nil {
		if err := p.opts.Store.SetItem(ctx, DevicesKey, devices); err != nil {
			log.Info.Printf("unable to cache devices: %s", err.Error())
		}
	}

	if coord.Writing() || coord.WriteSeq() != seq {
		log.Debug.Printf("write started during refresh, dropping results")
		coord.EndRefresh()
		return
	}

	if p.opts.Fanout != nil {
		p.opts.Fanout(ctx, devices)
	}

	// hold off the next requested refresh for a moment
	time.AfterFunc(p.opts.RefreshDelay, coord.EndRefresh)
}
