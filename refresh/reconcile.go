package refresh

import (
	"context"
	"slices"
	"time"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/unified"
)

const DefaultMinGap = 45 * time.Second

type EventSource interface {
	GetDeviceEvents(ctx context.Context, id string) ([]sensibo.Event, error)
}

// Target is the controller of a conditioning unit
type Target interface {
	Name() string
	LastStateRefresh() time.Time
	SetLastStateRefresh(time.Time)
	Snapshot() state.State
	ReplaceAndDispatch(state.State) bool
}

// Reconciler re-sends the last Climate React command of a unit when nothing
// has changed the unit since, on the theory the IR command never arrived
type Reconciler struct {
	events EventSource
	minGap time.Duration
	now    func() time.Time
}

// NewReconciler builds a reconciler; minGap must be shorter than the poll
// interval or a command is never old enough to repeat before it is consumed
func NewReconciler(events EventSource, minGap time.Duration) *Reconciler {
	return &Reconciler{
		events: events,
		minGap: minGap,
		now:    time.Now,
	}
}

func isStateChange(e sensibo.Event) bool {
	return e.EventKind == sensibo.EventKindACStateChanged
}

// Check looks at the event log of dev once per cycle
func (r *Reconciler) Check(ctx context.Context, t Target, dev sensibo.Device) error {
	if dev.SmartMode == nil || !dev.SmartMode.Enabled {
		return nil
	}

	last := t.LastStateRefresh()
	if last.IsZero() {
		log.Debug.Printf("[%s] first pass, nothing to compare", t.Name())
		t.SetLastStateRefresh(r.now())
		return nil
	}

	events, err := r.events.GetDeviceEvents(ctx, dev.ID)
	if err != nil {
		return err
	}

	// newest first; ties have no defined order
	slices.SortFunc(events, func(a, b sensibo.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	var reacted []sensibo.Event
	for _, e := range events {
		if isStateChange(e) && e.Details.Reason == sensibo.ReasonClimateReact && !e.Timestamp.Before(last) {
			reacted = append(reacted, e)
		}
	}

	now := r.now()
	t.SetLastStateRefresh(now)

	if len(reacted) == 0 {
		return nil
	}
	latest := reacted[0]

	for _, e := range events {
		if isStateChange(e) && e.Timestamp.After(latest.Timestamp) {
			log.Debug.Printf("[%s] climate react change at %s was superseded", t.Name(), latest.Timestamp)
			return nil
		}
	}

	if gap := now.Sub(latest.Timestamp); gap < r.minGap {
		log.Debug.Printf("[%s] climate react change %s ago, checking again next cycle", t.Name(), gap)
		t.SetLastStateRefresh(latest.Timestamp)
		return nil
	}

	ac := latest.Details.ResultingACState
	if ac == nil {
		return nil
	}

	log.Info.Printf("[%s] repeating climate react change from %s", t.Name(), latest.Timestamp.Format(time.RFC3339))
	// the event only carries the acState; measurements and policy stay as recorded
	replay := t.Snapshot().Overlay(unified.StateFromACState(dev, *ac))
	if !t.ReplaceAndDispatch(replay) {
		// a HomeKit write got in first; look at the event again next cycle
		t.SetLastStateRefresh(latest.Timestamp)
	}
	return nil
}
