package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/store"
)

type memStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memStore) GetItem(_ context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return store.ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (m *memStore) SetItem(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = raw
	return nil
}

type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) SetACState(context.Context, state.State) error {
	if b.release != nil {
		<-b.release
	}
	return nil
}
func (b *blockingSink) SetClimateReact(context.Context, state.State) error { return nil }
func (b *blockingSink) SetPureBoost(context.Context, bool) error           { return nil }
func (b *blockingSink) ResetFilter(context.Context) error                  { return nil }
func (b *blockingSink) SyncPower(context.Context, bool) error              { return nil }

var pods = []sensibo.Device{{ID: "aaa", Room: sensibo.Room{Name: "Bedroom"}}}

type fanoutRecorder struct {
	n int32
}

func (f *fanoutRecorder) fanout(context.Context, []sensibo.Device) {
	atomic.AddInt32(&f.n, 1)
}

func (f *fanoutRecorder) count() int {
	return int(atomic.LoadInt32(&f.n))
}

func TestRequestedRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ms := &memStore{}
	fr := &fanoutRecorder{}
	coord := state.NewCoordinator()
	p := NewPoller(Options{
		Coordinator:  coord,
		Fetch:        func(context.Context) ([]sensibo.Device, error) { return pods, nil },
		Fanout:       fr.fanout,
		Store:        ms,
		RefreshDelay: 50 * time.Millisecond,
	})
	p.Start(ctx)

	p.RequestRefresh()
	require.Eventually(t, func() bool { return fr.count() == 1 }, time.Second, 5*time.Millisecond)

	var cached []sensibo.Device
	require.NoError(t, ms.GetItem(ctx, DevicesKey, &cached))
	assert.Equal(t, "aaa", cached[0].ID)

	// cool-down after a cycle swallows immediate requests
	assert.True(t, coord.Refreshing())
	p.RequestRefresh()
	require.Eventually(t, func() bool { return !coord.Refreshing() }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, fr.count())

	last, err := p.LastRefresh()
	assert.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestWriteWinsOverRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetching := make(chan struct{})
	release := make(chan struct{})
	fr := &fanoutRecorder{}
	coord := state.NewCoordinator()

	var calls int32
	p := NewPoller(Options{
		Coordinator: coord,
		Fetch: func(context.Context) ([]sensibo.Device, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(fetching)
				<-release
			}
			return pods, nil
		},
		Fanout:       fr.fanout,
		RefreshDelay: 5 * time.Millisecond,
	})
	p.Start(ctx)

	c := state.NewController(state.State{FanSpeed: state.Int(10), Mode: state.ModeCool}, state.Options{
		ID:          "aaa",
		Sink:        &blockingSink{},
		Coordinator: coord,
		Refresher:   p,
		QuietWindow: 20 * time.Millisecond,
		SettleDelay: 5 * time.Millisecond,
	})

	p.RequestRefresh()
	<-fetching
	require.True(t, c.Set(state.FieldFanSpeed, 80))
	close(release)

	require.Eventually(t, func() bool { return !coord.Refreshing() && c.Phase() == state.Idle }, time.Second, 5*time.Millisecond)
	assert.Zero(t, fr.count())
	assert.Equal(t, 80, *c.Snapshot().FanSpeed)

	// idle again, the next refresh goes through
	p.RequestRefresh()
	require.Eventually(t, func() bool { return fr.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFailedFetchEndsCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fr := &fanoutRecorder{}
	coord := state.NewCoordinator()
	p := NewPoller(Options{
		Coordinator:  coord,
		Fetch:        func(context.Context) ([]sensibo.Device, error) { return nil, errors.New("502 bad gateway") },
		Fanout:       fr.fanout,
		RefreshDelay: 5 * time.Millisecond,
	})
	p.Start(ctx)

	p.RequestRefresh()
	require.Eventually(t, func() bool {
		_, err := p.LastRefresh()
		return err != nil
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !coord.Refreshing() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, fr.count())
}

func TestPollingContinuesAfterSkippedTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fetches int32
	coord := state.NewCoordinator()
	p := NewPoller(Options{
		Coordinator: coord,
		Fetch: func(context.Context) ([]sensibo.Device, error) {
			atomic.AddInt32(&fetches, 1)
			return pods, nil
		},
		Interval:     30 * time.Millisecond,
		RefreshDelay: time.Millisecond,
	})

	sink := &blockingSink{release: make(chan struct{})}
	c := state.NewController(state.State{Mode: state.ModeCool}, state.Options{
		ID:          "aaa",
		Sink:        sink,
		Coordinator: coord,
		QuietWindow: time.Millisecond,
		SettleDelay: time.Millisecond,
	})
	require.True(t, c.Set(state.FieldActive, true))
	require.Eventually(t, func() bool { return c.Phase() == state.WriteInFlight }, time.Second, time.Millisecond)

	p.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fetches))

	close(sink.release)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetches) >= 2 }, time.Second, 5*time.Millisecond)
}

type fakeTarget struct {
	last     time.Time
	current  state.State
	busy     bool
	replayed []state.State
}

func (f *fakeTarget) Name() string                    { return "Bedroom" }
func (f *fakeTarget) LastStateRefresh() time.Time     { return f.last }
func (f *fakeTarget) SetLastStateRefresh(t time.Time) { f.last = t }
func (f *fakeTarget) Snapshot() state.State           { return f.current.Clone() }
func (f *fakeTarget) ReplaceAndDispatch(s state.State) bool {
	if f.busy {
		return false
	}
	f.replayed = append(f.replayed, s)
	return true
}

type fakeEvents struct {
	events []sensibo.Event
	err    error
	calls  int
	during func()
}

func (f *fakeEvents) GetDeviceEvents(context.Context, string) ([]sensibo.Event, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	out := make([]sensibo.Event, len(f.events))
	copy(out, f.events)
	return out, f.err
}

func fl(v float64) *float64 { return &v }

func reactDevice() sensibo.Device {
	return sensibo.Device{
		ID:              "aaa",
		TemperatureUnit: "C",
		SmartMode:       &sensibo.SmartMode{Enabled: true},
		RemoteCapabilities: &sensibo.RemoteCapabilities{Modes: map[string]sensibo.RemoteMode{
			"cool": {FanLevels: []string{"low", "high", "auto"}},
		}},
	}
}

func stateChange(at time.Time, reason string) sensibo.Event {
	return sensibo.Event{
		Timestamp: at,
		EventKind: sensibo.EventKindACStateChanged,
		Details: sensibo.EventDetails{
			Reason: reason,
			ResultingACState: &sensibo.ACState{
				On: true, Mode: "cool", TargetTemperature: fl(23), TemperatureUnit: "C", FanLevel: "high",
			},
		},
	}
}

func newTestReconciler(ev *fakeEvents, now time.Time) *Reconciler {
	r := NewReconciler(ev, DefaultMinGap)
	r.now = func() time.Time { return now }
	return r
}

func TestReconcileFirstPass(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := &fakeEvents{}
	target := &fakeTarget{}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), target, reactDevice()))
	assert.Equal(t, now, target.last)
	assert.Zero(t, ev.calls)
}

func TestReconcileReplaysLostCommand(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t0 := now.Add(-time.Minute)
	ev := &fakeEvents{events: []sensibo.Event{
		stateChange(now.Add(-10*time.Minute), "UserRequest"),
		stateChange(t0, sensibo.ReasonClimateReact),
		{Timestamp: now.Add(-10 * time.Second), EventKind: sensibo.EventKindACStateChanged + 1},
	}}
	target := &fakeTarget{last: now.Add(-90 * time.Second)}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), target, reactDevice()))
	require.Len(t, target.replayed, 1)

	s := target.replayed[0]
	assert.True(t, *s.Active)
	assert.Equal(t, state.ModeCool, s.Mode)
	assert.Equal(t, 23.0, *s.TargetTemperature)
	assert.Equal(t, 100, *s.FanSpeed)
	assert.Equal(t, now, target.last)
}

func TestReconcileTooRecent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t0 := now.Add(-20 * time.Second)
	ev := &fakeEvents{events: []sensibo.Event{stateChange(t0, sensibo.ReasonClimateReact)}}
	target := &fakeTarget{last: now.Add(-85 * time.Second)}

	r := newTestReconciler(ev, now)
	require.NoError(t, r.Check(context.Background(), target, reactDevice()))
	assert.Empty(t, target.replayed)
	assert.Equal(t, t0, target.last)

	// next cycle the same event is old enough
	r.now = func() time.Time { return now.Add(PollInterval) }
	require.NoError(t, r.Check(context.Background(), target, reactDevice()))
	assert.Len(t, target.replayed, 1)
}

func TestReconcileSuperseded(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := &fakeEvents{events: []sensibo.Event{
		stateChange(now.Add(-60*time.Second), "UserRequest"),
		stateChange(now.Add(-80*time.Second), sensibo.ReasonClimateReact),
	}}
	target := &fakeTarget{last: now.Add(-85 * time.Second)}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), target, reactDevice()))
	assert.Empty(t, target.replayed)
	assert.Equal(t, now, target.last)
}

func TestReconcileOnlyNewEvents(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := &fakeEvents{events: []sensibo.Event{stateChange(now.Add(-5*time.Minute), sensibo.ReasonClimateReact)}}
	target := &fakeTarget{last: now.Add(-85 * time.Second)}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), target, reactDevice()))
	assert.Empty(t, target.replayed)
	assert.Equal(t, now, target.last)
}

func TestReconcileSkipsDisabledAndErrors(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-85 * time.Second)
	ev := &fakeEvents{err: errors.New("timeout")}
	target := &fakeTarget{last: before}
	r := newTestReconciler(ev, now)

	dev := reactDevice()
	dev.SmartMode.Enabled = false
	require.NoError(t, r.Check(context.Background(), target, dev))
	assert.Zero(t, ev.calls)

	require.Error(t, r.Check(context.Background(), target, reactDevice()))
	assert.Equal(t, before, target.last)
	assert.Empty(t, target.replayed)
}

func TestReconcileKeepsRecordedState(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := &fakeEvents{events: []sensibo.Event{stateChange(now.Add(-time.Minute), sensibo.ReasonClimateReact)}}
	target := &fakeTarget{
		last: now.Add(-90 * time.Second),
		current: state.State{
			Active:             state.Bool(false),
			Mode:               state.ModeHeat,
			TargetTemperature:  fl(19),
			CurrentTemperature: fl(26),
			RelativeHumidity:   fl(45),
			SmartMode:          &state.SmartMode{Enabled: true, LowTemperatureThreshold: fl(20)},
			FilterChange:       state.FilterOK,
		},
	}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), target, reactDevice()))
	require.Len(t, target.replayed, 1)

	s := target.replayed[0]
	assert.True(t, *s.Active)
	assert.Equal(t, state.ModeCool, s.Mode)
	assert.Equal(t, 23.0, *s.TargetTemperature)
	assert.Equal(t, 26.0, *s.CurrentTemperature)
	assert.Equal(t, 45.0, *s.RelativeHumidity)
	require.NotNil(t, s.SmartMode)
	assert.True(t, s.SmartMode.Enabled)
	assert.Equal(t, 20.0, *s.SmartMode.LowTemperatureThreshold)
	assert.Equal(t, state.FilterOK, s.FilterChange)
}

func TestReconcileYieldsToHomeKitWrite(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t0 := now.Add(-time.Minute)
	sink := &blockingSink{}
	c := state.NewController(state.State{Active: state.Bool(true), Mode: state.ModeCool, TargetTemperature: fl(22)}, state.Options{
		ID:           "aaa",
		Sink:         sink,
		Capabilities: state.Capabilities{state.ModeCool: {}},
		QuietWindow:  time.Hour,
	})
	c.SetLastStateRefresh(now.Add(-90 * time.Second))

	ev := &fakeEvents{
		events: []sensibo.Event{stateChange(t0, sensibo.ReasonClimateReact)},
		during: func() { c.Set(state.FieldTargetTemperature, 18.0) },
	}

	require.NoError(t, newTestReconciler(ev, now).Check(context.Background(), c, reactDevice()))
	assert.Equal(t, 18.0, *c.Snapshot().TargetTemperature)
	assert.Equal(t, state.WriteDebouncing, c.Phase())
	// the event is looked at again next cycle
	assert.Equal(t, t0, c.LastStateRefresh())
}
