package app

import (
	"fmt"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/node"
)

// Ponger serves entanglement requests targeting it: it releases its NIC
// cell as soon as a response arrives and never issues requests of its own
// (spec §4.8).
type Ponger struct {
	Clock
}

// NewPonger returns a Ponger for the application at (nodeID, port).
func NewPonger(nodeID, port uint32, queueSamplePeriodNs uint64) *Ponger {
	return &Ponger{Clock: Clock{NodeID: nodeID, Port: port, QueueSamplePeriodNs: queueSamplePeriodNs}}
}

// Initial seeds the periodic queue-length tick; Ponger has nothing else
// to do at t=0.
func (p *Ponger) Initial() ([]event.Event, []node.Sample) {
	return p.initialQueueTick(), nil
}

// Handle implements node.Handler.
func (p *Ponger) Handle(now uint64, data any) ([]event.Event, []node.Sample) {
	switch d := data.(type) {
	case event.EprResponse:
		if d.IsSource {
			panic("ponger: received a source-side EprResponse; Ponger never requests")
		}
		if d.MemoryCell == nil {
			return nil, nil
		}
		return []event.Event{releaseCellEvent(p.NodeID, p.Port, *d.MemoryCell)}, nil
	case event.SelfTick:
		if d.Reason != event.TickQueueSample {
			panic(fmt.Sprintf("ponger: unexpected self-tick reason %v", d.Reason))
		}
		return []event.Event{p.queueTick()}, []node.Sample{p.queueLengthSample(0)}
	default:
		panic(fmt.Sprintf("ponger: unexpected event %T", data))
	}
}
