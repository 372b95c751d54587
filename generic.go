package sensibohkbridge

import (
	"hash/fnv"
	"net/http"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

const manufacturer = "Sensibo"

// every accessory the platform serves
type sensiboDevice interface {
	getA() *accessory.A
	getName() string
	kind() string
	seen(bool)
	reachable() bool
}

// included in all accessory types
type generic struct {
	*accessory.A

	BridgingState *bstate
	name          string
	typ           string
}

func (g *generic) getA() *accessory.A {
	return g.A
}

func (g *generic) getName() string {
	return g.name
}

func (g *generic) kind() string {
	return g.typ
}

// seen marks the accessory as present (or gone) in the last device list
func (g *generic) seen(present bool) {
	if g.reachable() != present {
		log.Info.Printf("[%s] reachable: %t", g.name, present)
		g.BridgingState.Reachable.SetValue(present)
	}
}

func (g *generic) configure(typ, name string, dev sensibo.Device) accessory.Info {
	g.typ = typ
	g.name = name
	g.BridgingState = newBridgingState()

	return accessory.Info{
		Name:         name,
		SerialNumber: dev.Serial,
		Manufacturer: manufacturer,
		Model:        dev.ProductModel,
		Firmware:     "shkb",
	}
}

// finalize sets the ID so the accessory remains consistent in homekit across restarts
func (g *generic) finalize(uid string) {
	g.A.Id = accessoryID(g.typ, uid)
	g.AddS(g.BridgingState.S)
	g.BridgingState.Reachable.SetValue(true)

	g.A.Info.Name.OnValueRemoteUpdate(func(newname string) {
		log.Info.Printf("[%s] renamed in HomeKit to [%s]", g.name, newname)
	})
}

// accessoryID hashes the accessory type and its cloud id; 1 is the bridge
func accessoryID(typ, uid string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(typ))
	h.Write([]byte{0})
	h.Write([]byte(uid))
	id := h.Sum64()
	if id <= 1 {
		id += 2
	}
	return id
}

// observe makes HomeKit reads of c ask the controller, which requests a
// refresh when nothing is pending for the unit
func observe(c *characteristic.C, ctl *state.Controller, f state.Field, value func(state.State) interface{}) {
	c.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		ctl.Get(f)
		return value(ctl.Snapshot()), 0
	}
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func floatOr(f *float64, d float64) float64 {
	if f == nil {
		return d
	}
	return *f
}

func intOr(i *int, d int) int {
	if i == nil {
		return d
	}
	return *i
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func (g *generic) reachable() bool {
	return g.BridgingState.Reachable.Value()
}

type bstate struct {
	*service.S

	Reachable *characteristic.Reachable
}

func newBridgingState() *bstate {
	bs := &bstate{}
	bs.S = service.New("62")

	bs.Reachable = characteristic.NewReachable()
	bs.Reachable.Description = "Reachable"
	bs.S.AddC(bs.Reachable.C)

	return bs
}
