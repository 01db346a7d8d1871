package app

import (
	"fmt"
	"math/rand"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/node"
)

// serverRequest is the pending state for one entanglement request Server
// is serving, tracked only until its own local hold completes (spec
// §4.8: Server's completion is one-sided, unlike Client's).
type serverRequest struct {
	cell   event.MemoryCellID
	origin event.FiveTuple
}

// Server serves entanglement requests: it holds its NIC cell for an
// exponential duration, then releases it and notifies the requesting
// Client that the remote side is done (spec §4.8).
type Server struct {
	Clock
	OperationAvgDur float64 // seconds, mean of Server's local-hold Exp distribution
	rng             *rand.Rand

	pending map[uint64]*serverRequest // keyed by request_id
}

// NewServer returns a Server whose local hold time is exponential with
// mean operationAvgDurServer, using rng as its private stream (spec §5).
func NewServer(nodeID, port uint32, operationAvgDurServer float64, rng *rand.Rand, queueSamplePeriodNs uint64) *Server {
	return &Server{
		Clock:           Clock{NodeID: nodeID, Port: port, QueueSamplePeriodNs: queueSamplePeriodNs},
		OperationAvgDur: operationAvgDurServer,
		rng:             rng,
		pending:         make(map[uint64]*serverRequest),
	}
}

// Initial seeds the periodic queue-length tick.
func (s *Server) Initial() ([]event.Event, []node.Sample) {
	return s.initialQueueTick(), nil
}

// Handle implements node.Handler.
func (s *Server) Handle(now uint64, data any) ([]event.Event, []node.Sample) {
	switch d := data.(type) {
	case event.EprResponse:
		return s.handleResponse(now, d)
	case event.LocalComplete:
		return s.handleLocalComplete(now, d.Epr)
	case event.SelfTick:
		if d.Reason != event.TickQueueSample {
			panic(fmt.Sprintf("server: unexpected self-tick reason %v", d.Reason))
		}
		return []event.Event{s.queueTick()}, []node.Sample{s.queueLengthSample(len(s.pending))}
	default:
		panic(fmt.Sprintf("server: unexpected event %T", data))
	}
}

func (s *Server) handleResponse(now uint64, d event.EprResponse) ([]event.Event, []node.Sample) {
	if d.IsSource {
		panic("server: received a source-side EprResponse; Server never requests")
	}
	if d.MemoryCell == nil {
		return nil, nil
	}
	s.pending[d.Epr.RequestID] = &serverRequest{cell: *d.MemoryCell, origin: d.Epr}
	return []event.Event{{
		Kind:  event.AppEvent,
		Delay: expDelayNs(1/s.OperationAvgDur, s.rng),
		Data:  event.LocalComplete{Epr: d.Epr, Node: s.NodeID, Port: s.Port},
	}}, nil
}

func (s *Server) handleLocalComplete(now uint64, epr event.FiveTuple) ([]event.Event, []node.Sample) {
	req, ok := s.pending[epr.RequestID]
	if !ok {
		panic(fmt.Sprintf("server: LocalComplete for unknown request_id=%d", epr.RequestID))
	}
	delete(s.pending, epr.RequestID)

	events := []event.Event{
		releaseCellEvent(s.NodeID, s.Port, req.cell),
		{
			Kind: event.AppEvent,
			Data: event.RemoteComplete{Epr: epr, Node: req.origin.SourceNode, Port: req.origin.SourcePort},
		},
	}
	return events, nil
}
