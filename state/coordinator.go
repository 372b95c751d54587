package state

import (
	"sync"
)

// Phase is where a device's controller is in its write cycle
type Phase int

const (
	Idle Phase = iota
	WriteDebouncing
	WriteInFlight
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case WriteDebouncing:
		return "debouncing"
	case WriteInFlight:
		return "in-flight"
	case Refreshing:
		return "refreshing"
	}
	return "unknown"
}

// Refresher is anything that can be asked, without blocking, to pull fresh
// state from the remote system.
type Refresher interface {
	RequestRefresh()
}

// Coordinator aggregates the write phases of every controller so the poller
// can tell whether any write is pending, and whether one started while a
// fetch was outstanding.
type Coordinator struct {
	mu         sync.Mutex
	writing    map[string]struct{}
	seq        uint64
	refreshing bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		writing: make(map[string]struct{}),
	}
}

func (c *Coordinator) beginWrite(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writing[id] = struct{}{}
	c.seq++
}

func (c *Coordinator) endWrite(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.writing, id)
}

// Writing reports whether any device has a write debouncing or in flight
func (c *Coordinator) Writing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writing) > 0
}

// WriteSeq increases every time a write is accepted on any device
func (c *Coordinator) WriteSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// TryBeginRefresh marks a refresh as running. It refuses while another
// refresh is running or while any write is pending.
func (c *Coordinator) TryBeginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing || len(c.writing) > 0 {
		return false
	}
	c.refreshing = true
	return true
}

func (c *Coordinator) EndRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
}

func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}
