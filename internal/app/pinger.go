package app

import (
	"fmt"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/node"
)

// Pinger issues EPR requests to a single fixed peer one at a time, waiting
// for each response before issuing the next, up to MaxRequests (spec
// §4.8).
type Pinger struct {
	Clock
	Peer        uint32
	PeerPort    uint32
	MaxRequests uint64

	nextRequestID uint64
	created       map[uint64]uint64 // request_id -> created ns
}

// NewPinger returns a Pinger seeded to request entanglement with
// (peer, peerPort) up to maxRequests times.
func NewPinger(nodeID, port, peer, peerPort uint32, maxRequests uint64, queueSamplePeriodNs uint64) *Pinger {
	return &Pinger{
		Clock:       Clock{NodeID: nodeID, Port: port, QueueSamplePeriodNs: queueSamplePeriodNs},
		Peer:        peer,
		PeerPort:    peerPort,
		MaxRequests: maxRequests,
		created:     make(map[uint64]uint64),
	}
}

// Initial issues the first request (if MaxRequests>0) and seeds the
// periodic queue-length tick.
func (p *Pinger) Initial() ([]event.Event, []node.Sample) {
	var events []event.Event
	if p.MaxRequests > 0 {
		events = append(events, p.issueRequest(0))
	}
	events = append(events, p.initialQueueTick()...)
	return events, nil
}

func (p *Pinger) issueRequest(now uint64) event.Event {
	id := p.nextRequestID
	p.nextRequestID++
	p.created[id] = now
	epr := event.FiveTuple{
		SourceNode: p.NodeID, SourcePort: p.Port,
		TargetNode: p.Peer, TargetPort: p.PeerPort,
		RequestID: id,
	}
	return event.Event{Kind: event.OsEvent, Data: event.EprRequestApp{Epr: epr}}
}

// Handle implements node.Handler.
func (p *Pinger) Handle(now uint64, data any) ([]event.Event, []node.Sample) {
	switch d := data.(type) {
	case event.EprResponse:
		return p.handleResponse(now, d)
	case event.SelfTick:
		return p.handleTick(now, d)
	default:
		panic(fmt.Sprintf("pinger: unexpected event %T", data))
	}
}

func (p *Pinger) handleResponse(now uint64, d event.EprResponse) ([]event.Event, []node.Sample) {
	if !d.IsSource {
		panic("pinger: received a target-side EprResponse; Pinger never serves requests")
	}
	createdAt, ok := p.created[d.Epr.RequestID]
	if !ok {
		panic(fmt.Sprintf("pinger: EprResponse for unknown request_id=%d", d.Epr.RequestID))
	}
	delete(p.created, d.Epr.RequestID)

	var events []event.Event
	if d.MemoryCell != nil {
		events = append(events, releaseCellEvent(p.NodeID, p.Port, *d.MemoryCell))
	}
	samples := []node.Sample{p.sample("round-trip-time", secondsSince(createdAt, now))}

	if p.nextRequestID < p.MaxRequests {
		events = append(events, p.issueRequest(now))
	}
	return events, samples
}

func (p *Pinger) handleTick(now uint64, d event.SelfTick) ([]event.Event, []node.Sample) {
	if d.Reason != event.TickQueueSample {
		panic(fmt.Sprintf("pinger: unexpected self-tick reason %v", d.Reason))
	}
	events := []event.Event{p.queueTick()}
	samples := []node.Sample{p.queueLengthSample(len(p.created))}
	return events, samples
}

// releaseCellEvent builds the NodeEvent that asks Network to release a
// NIC cell and record its decayed fidelity (spec §4.6 EprFidelity).
func releaseCellEvent(appNode, appPort uint32, cell event.MemoryCellID) event.Event {
	return event.Event{
		Kind: event.NodeEvent,
		Data: event.EprFidelity{
			AppNode:     appNode,
			Port:        appPort,
			ConsumeNode: appNode,
			Neighbor:    cell.Peer,
			Role:        cell.Role,
			LocalPairID: cell.LocalPairID,
		},
	}
}

func secondsSince(then, now uint64) float64 { return float64(now-then) / 1e9 }
