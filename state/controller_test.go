package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu          sync.Mutex
	acStates    []State
	reacts      []State
	boosts      []bool
	filterReset int
	syncs       []bool

	inflight    int32
	maxInflight int32

	block      chan struct{}
	reactBlock chan struct{}
	err        error
}

func (f *fakeSink) SetACState(_ context.Context, s State) error {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInflight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInflight, m, n) {
			break
		}
	}

	f.mu.Lock()
	f.acStates = append(f.acStates, s)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.err
}

func (f *fakeSink) SetClimateReact(_ context.Context, s State) error {
	f.mu.Lock()
	f.reacts = append(f.reacts, s)
	block := f.reactBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeSink) SetPureBoost(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boosts = append(f.boosts, on)
	return nil
}

func (f *fakeSink) ResetFilter(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterReset++
	return nil
}

func (f *fakeSink) SyncPower(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, on)
	return f.err
}

func (f *fakeSink) sent() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]State, len(f.acStates))
	copy(out, f.acStates)
	return out
}

func (f *fakeSink) filterResets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filterReset
}

type countingRefresher struct {
	n int32
}

func (r *countingRefresher) RequestRefresh() {
	atomic.AddInt32(&r.n, 1)
}

func (r *countingRefresher) count() int {
	return int(atomic.LoadInt32(&r.n))
}

var testCaps = Capabilities{
	ModeCool: {
		HomeKitSupported: true,
		TemperaturesC:    &TemperatureRange{Min: 16, Max: 30},
		FanLevels:        []string{"low", "medium", "high", "auto"},
		AutoFanSpeed:     true,
		VerticalSwing:    true,
	},
	ModeHeat: {
		HomeKitSupported: true,
		TemperaturesC:    &TemperatureRange{Min: 10, Max: 30},
		FanLevels:        []string{"low", "high"},
	},
}

func coolState() State {
	return State{
		Active:            Bool(true),
		Mode:              ModeCool,
		TargetTemperature: Float(22),
		FanSpeed:          Int(50),
		VerticalSwing:     SwingDisabled,
	}
}

func newTestController(t *testing.T, initial State, sink *fakeSink, mod func(*Options)) (*Controller, *countingRefresher, *Coordinator) {
	t.Helper()

	r := &countingRefresher{}
	coord := NewCoordinator()
	opts := Options{
		ID:           "abc123",
		Name:         "Living Room",
		Capabilities: testCaps,
		Sink:         sink,
		Coordinator:  coord,
		Refresher:    r,
		QuietWindow:  60 * time.Millisecond,
		SettleDelay:  10 * time.Millisecond,
		RetryDelay:   10 * time.Millisecond,
	}
	if mod != nil {
		mod(&opts)
	}
	return NewController(initial, opts), r, coord
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Phase() == Idle }, 2*time.Second, 5*time.Millisecond)
}

func TestBurstOfWritesSendsOneCommand(t *testing.T) {
	sink := &fakeSink{}
	c, _, coord := newTestController(t, coolState(), sink, nil)

	require.True(t, c.Set(FieldFanSpeed, 30))
	time.Sleep(10 * time.Millisecond)
	require.True(t, c.Set(FieldFanSpeed, 60))
	require.True(t, c.Set(FieldTargetTemperature, 24.0))
	require.Equal(t, WriteDebouncing, c.Phase())
	require.True(t, coord.Writing())

	waitIdle(t, c)
	time.Sleep(100 * time.Millisecond)

	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 60, *sent[0].FanSpeed)
	assert.Equal(t, 24.0, *sent[0].TargetTemperature)
	assert.False(t, coord.Writing())
}

func TestDebounceRestartsOnEveryWrite(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	for i := 0; i < 5; i++ {
		require.True(t, c.Set(FieldFanSpeed, 10*(i+1)))
		time.Sleep(20 * time.Millisecond)
	}
	assert.Empty(t, sink.sent())

	waitIdle(t, c)
	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 50, *sent[0].FanSpeed)
}

func TestRepeatedWriteSuppressed(t *testing.T) {
	sink := &fakeSink{}
	c, _, coord := newTestController(t, coolState(), sink, func(o *Options) {
		o.SuppressRepeated = true
	})

	assert.False(t, c.Set(FieldTargetTemperature, 22.0))
	assert.False(t, c.Set(FieldMode, ModeCool))
	assert.False(t, coord.Writing())
	assert.Equal(t, Idle, c.Phase())

	assert.True(t, c.Set(FieldTargetTemperature, 23.0))
	waitIdle(t, c)
	require.Len(t, sink.sent(), 1)
}

func TestRepeatedWriteAllowed(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	assert.True(t, c.Set(FieldTargetTemperature, 22.0))
	waitIdle(t, c)
	require.Len(t, sink.sent(), 1)
}

func TestWrongTypeRejected(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	assert.False(t, c.Set(FieldTargetTemperature, "hot"))
	assert.False(t, c.Set(Field("nope"), 1))
	assert.Equal(t, Idle, c.Phase())
}

func TestSmartModeIgnoredWhileInFlight(t *testing.T) {
	sink := &fakeSink{reactBlock: make(chan struct{})}
	c, r, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.SuppressRepeated = true
	})

	sm := SmartMode{Enabled: true, Type: "temperature"}
	require.True(t, c.Set(FieldSmartMode, sm))
	require.False(t, c.Set(FieldSmartMode, sm))

	close(sink.reactBlock)
	require.Eventually(t, func() bool { return r.count() > 0 }, time.Second, 5*time.Millisecond)

	// the flag clears after the command returns; equal values are not
	// filtered for this field
	require.Eventually(t, func() bool { return c.Set(FieldSmartMode, sm) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.reacts) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.sent())
}

func TestAutoFanKeepsUnitOn(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	require.True(t, c.Set(FieldActive, false))
	require.True(t, c.Set(FieldFanSpeed, 0))
	waitIdle(t, c)

	sent := sink.sent()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Active)
	assert.True(t, *sent[0].Active)
	assert.Equal(t, ModeCool, sent[0].Mode)
	assert.Equal(t, 22.0, *sent[0].TargetTemperature)
	assert.Equal(t, 0, *sent[0].FanSpeed)
	assert.True(t, *c.Snapshot().Active)
}

func TestAutoFanGuardNeedsAutoLevel(t *testing.T) {
	sink := &fakeSink{}
	initial := coolState()
	initial.Mode = ModeHeat
	c, _, _ := newTestController(t, initial, sink, nil)

	require.True(t, c.Set(FieldActive, false))
	require.True(t, c.Set(FieldFanSpeed, 0))
	waitIdle(t, c)

	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.False(t, *sent[0].Active)
}

func TestFilterResetBypassesDebounce(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.QuietWindow = 300 * time.Millisecond
	})

	require.True(t, c.Set(FieldFanSpeed, 40))
	require.True(t, c.Set(FieldFilterChange, FilterOK))
	require.True(t, c.Set(FieldFilterLifeLevel, 100))

	require.Eventually(t, func() bool { return sink.filterResets() == 1 }, 200*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, sink.sent())

	waitIdle(t, c)
	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 40, *sent[0].FanSpeed)
	assert.Equal(t, 1, sink.filterResets())
}

func TestPureBoostDispatchedImmediately(t *testing.T) {
	sink := &fakeSink{}
	c, r, _ := newTestController(t, coolState(), sink, nil)

	require.True(t, c.Set(FieldPureBoost, true))
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []bool{true}, sink.boosts)
	assert.Empty(t, sink.acStates)
}

func TestOneCommandInFlightPerDevice(t *testing.T) {
	block := make(chan struct{})
	sink := &fakeSink{block: block}
	c, _, coord := newTestController(t, coolState(), sink, nil)

	require.True(t, c.Set(FieldFanSpeed, 10))
	require.Eventually(t, func() bool { return len(sink.sent()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, WriteInFlight, c.Phase())

	require.True(t, c.Set(FieldFanSpeed, 20))
	require.Equal(t, WriteInFlight, c.Phase())
	time.Sleep(150 * time.Millisecond)
	require.Len(t, sink.sent(), 1)
	require.False(t, coord.TryBeginRefresh())

	sink.mu.Lock()
	sink.block = nil
	sink.mu.Unlock()
	close(block)

	waitIdle(t, c)
	sent := sink.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, 20, *sent[1].FanSpeed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sink.maxInflight))
	assert.False(t, coord.Writing())
}

func TestFailedWriteRequestsRefresh(t *testing.T) {
	sink := &fakeSink{err: errors.New("503")}
	c, r, coord := newTestController(t, coolState(), sink, nil)

	var notified int32
	c.OnChange(func(State) { atomic.AddInt32(&notified, 1) })

	require.True(t, c.Set(FieldMode, ModeHeat))
	waitIdle(t, c)
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	// optimistic value is kept
	assert.Equal(t, ModeHeat, c.Snapshot().Mode)
	assert.False(t, coord.Writing())
	assert.Zero(t, atomic.LoadInt32(&notified))
}

func TestConfirmedWritePersistsAndNotifies(t *testing.T) {
	sink := &fakeSink{}
	var persisted atomic.Value
	c, _, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.Persist = func(s State) { persisted.Store(s) }
	})

	changes := make(chan State, 4)
	c.OnChange(func(s State) { changes <- s })

	require.True(t, c.Set(FieldLight, true))
	select {
	case s := <-changes:
		assert.True(t, *s.Light)
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
	p, ok := persisted.Load().(State)
	require.True(t, ok)
	assert.True(t, *p.Light)
}

func TestPartialUpdateIgnoredDuringWrite(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.QuietWindow = 150 * time.Millisecond
	})

	require.True(t, c.Set(FieldFanSpeed, 30))
	assert.False(t, c.ApplyPartialUpdate(State{FanSpeed: Int(90)}))
	assert.Equal(t, 30, *c.Snapshot().FanSpeed)

	waitIdle(t, c)
	require.True(t, c.ApplyPartialUpdate(State{
		FanSpeed:           Int(90),
		CurrentTemperature: Float(25.5),
	}))

	s := c.Snapshot()
	assert.Equal(t, 90, *s.FanSpeed)
	assert.Equal(t, 25.5, *s.CurrentTemperature)
	// fields missing from the update are kept
	assert.Equal(t, 22.0, *s.TargetTemperature)
	assert.Equal(t, ModeCool, s.Mode)
}

func TestGetRequestsRefreshOnlyWhenIdle(t *testing.T) {
	sink := &fakeSink{}
	c, r, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.QuietWindow = 150 * time.Millisecond
	})

	assert.Equal(t, 22.0, c.Get(FieldTargetTemperature))
	assert.Nil(t, c.Get(FieldRelativeHumidity))
	assert.Equal(t, 2, r.count())

	require.True(t, c.Set(FieldTargetTemperature, 25.0))
	assert.Equal(t, 25.0, c.Get(FieldTargetTemperature))
	assert.Equal(t, 2, r.count())
	waitIdle(t, c)
}

func TestReplaceAndDispatch(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, func(o *Options) {
		o.SuppressRepeated = true
	})

	replay := State{
		Active:            Bool(true),
		Mode:              ModeHeat,
		TargetTemperature: Float(20),
		FanSpeed:          Int(100),
	}
	require.True(t, c.ReplaceAndDispatch(replay))
	waitIdle(t, c)

	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, replay, sent[0])
	assert.Equal(t, Swing(""), c.Snapshot().VerticalSwing)
}

func TestReplaceAndDispatchYieldsToPendingWrite(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	require.True(t, c.Set(FieldTargetTemperature, 18.0))
	replay := coolState()
	replay.TargetTemperature = Float(23)
	assert.False(t, c.ReplaceAndDispatch(replay))
	assert.Equal(t, 18.0, *c.Snapshot().TargetTemperature)

	waitIdle(t, c)
	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 18.0, *sent[0].TargetTemperature)
}

func TestOverlay(t *testing.T) {
	base := coolState()
	base.CurrentTemperature = Float(26)
	base.SmartMode = &SmartMode{Enabled: true}

	n := base.Overlay(State{Mode: ModeHeat, TargetTemperature: Float(20)})
	assert.Equal(t, ModeHeat, n.Mode)
	assert.Equal(t, 20.0, *n.TargetTemperature)
	assert.Equal(t, 26.0, *n.CurrentTemperature)
	assert.True(t, n.SmartMode.Enabled)
	assert.Equal(t, 50, *n.FanSpeed)
	// base untouched
	assert.Equal(t, ModeCool, base.Mode)
	assert.Equal(t, 22.0, *base.TargetTemperature)
}

func TestManualSync(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestController(t, coolState(), sink, nil)

	require.NoError(t, c.ManualSync(context.Background()))
	assert.False(t, *c.Snapshot().Active)
	assert.Equal(t, []bool{false}, sink.syncs)
	assert.Empty(t, sink.sent())

	sink.err = errors.New("timeout")
	require.Error(t, c.ManualSync(context.Background()))
	// local state is not rolled back
	assert.True(t, *c.Snapshot().Active)

	empty, _, _ := newTestController(t, State{}, sink, nil)
	require.ErrorIs(t, empty.ManualSync(context.Background()), ErrUnknownPower)
}

func TestCoordinatorBlocksRefreshWhileWriting(t *testing.T) {
	coord := NewCoordinator()
	require.True(t, coord.TryBeginRefresh())
	require.False(t, coord.TryBeginRefresh())
	coord.EndRefresh()

	seq := coord.WriteSeq()
	coord.beginWrite("a")
	coord.beginWrite("a")
	assert.Equal(t, seq+2, coord.WriteSeq())
	assert.False(t, coord.TryBeginRefresh())

	coord.endWrite("a")
	assert.True(t, coord.TryBeginRefresh())
	assert.True(t, coord.Refreshing())
}
