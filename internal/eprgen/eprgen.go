// Package eprgen implements the per-logical-edge EPR pair generator
// (spec §4.5): an exponential inter-arrival process that fires
// EprGenerated events and re-arms itself forever.
package eprgen

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/units"
)

// Generator owns one logical edge's EPR production process.
type Generator struct {
	Tx, Master, Slave uint32

	interArrival distuv.Exponential
}

// New returns a Generator for the logical edge (tx, master, slave) whose
// inter-arrival times are exponential with rate capacity (pairs/s). seed
// derives this generator's independent stream, per spec §5's
// "simulation_seed + edge_index" discipline.
func New(tx, master, slave uint32, capacity float64, seed int64) *Generator {
	return &Generator{
		Tx:     tx,
		Master: master,
		Slave:  slave,
		interArrival: distuv.Exponential{
			Rate: capacity,
			Src:  rand.NewSource(seed),
		},
	}
}

// Initial returns the kick-start event fired once at time 0 (spec §4.5:
// "the generator is kick-started once at time 0 during initial()").
func (g *Generator) Initial() event.Event {
	return event.Event{
		Time: 0,
		Kind: event.NodeEvent,
		Data: event.EprGenerated{Tx: g.Tx, Master: g.Master, Slave: g.Slave},
	}
}

// Fire samples the next inter-arrival delay in nanoseconds and returns the
// re-armed EprGenerated event to be pushed at now+delay, modeling "on each
// fire: sample an inter-arrival Δt and emit EprGenerated{...} at t+Δt;
// self-schedules forever" (spec §4.5).
func (g *Generator) Fire() (data event.EprGenerated, delayNs uint64) {
	dtSeconds := g.interArrival.Rand()
	return event.EprGenerated{Tx: g.Tx, Master: g.Master, Slave: g.Slave}, units.ToNanoseconds(dtSeconds)
}
