package app

import (
	"fmt"
	"math/rand"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/node"
)

// clientRequest tracks one in-flight request's two-sided completion
// (spec §4.8: "memory_cell, local_done, remote_done, created").
type clientRequest struct {
	memoryCell *event.MemoryCellID
	localDone  bool
	remoteDone bool
	created    uint64
}

// Client issues a Poisson stream of EPR requests to a fixed peer Server
// and tracks each request's local (its own) and remote (the Server's)
// completion independently, finishing only once both sides are done
// (spec §4.8).
type Client struct {
	Clock
	Peer            uint32
	PeerPort        uint32
	OperationRate   float64 // 1/s, Poisson request arrival
	OperationAvgDur float64 // seconds, mean of the local-hold Exp distribution
	rng             *rand.Rand

	nextRequestID uint64
	pending       map[uint64]*clientRequest
}

// NewClient returns a Client whose request arrivals are a Poisson process
// at operationRate and whose local holding time is exponential with mean
// operationAvgDurClient, using rng as its private stream (spec §5).
func NewClient(nodeID, port, peer, peerPort uint32, operationRate, operationAvgDurClient float64, rng *rand.Rand, queueSamplePeriodNs uint64) *Client {
	return &Client{
		Clock:           Clock{NodeID: nodeID, Port: port, QueueSamplePeriodNs: queueSamplePeriodNs},
		Peer:            peer,
		PeerPort:        peerPort,
		OperationRate:   operationRate,
		OperationAvgDur: operationAvgDurClient,
		rng:             rng,
		pending:         make(map[uint64]*clientRequest),
	}
}

// Initial schedules the first Poisson-spaced request and the periodic
// queue-length tick.
func (c *Client) Initial() ([]event.Event, []node.Sample) {
	events := []event.Event{c.nextRequestTick()}
	events = append(events, c.initialQueueTick()...)
	return events, nil
}

func (c *Client) nextRequestTick() event.Event {
	return event.Event{
		Kind:  event.AppEvent,
		Delay: expDelayNs(c.OperationRate, c.rng),
		Data:  event.SelfTick{Node: c.NodeID, Port: c.Port, Reason: event.TickNextRequest},
	}
}

func (c *Client) issueRequest(now uint64) event.Event {
	id := c.nextRequestID
	c.nextRequestID++
	c.pending[id] = &clientRequest{created: now}
	epr := event.FiveTuple{
		SourceNode: c.NodeID, SourcePort: c.Port,
		TargetNode: c.Peer, TargetPort: c.PeerPort,
		RequestID: id,
	}
	return event.Event{Kind: event.OsEvent, Data: event.EprRequestApp{Epr: epr}}
}

// Handle implements node.Handler.
func (c *Client) Handle(now uint64, data any) ([]event.Event, []node.Sample) {
	switch d := data.(type) {
	case event.SelfTick:
		return c.handleTick(now, d)
	case event.EprResponse:
		return c.handleResponse(now, d)
	case event.LocalComplete:
		return c.handleLocalComplete(now, d.Epr)
	case event.RemoteComplete:
		return c.handleRemoteComplete(now, d.Epr)
	default:
		panic(fmt.Sprintf("client: unexpected event %T", data))
	}
}

func (c *Client) handleTick(now uint64, d event.SelfTick) ([]event.Event, []node.Sample) {
	switch d.Reason {
	case event.TickNextRequest:
		events := []event.Event{c.issueRequest(now), c.nextRequestTick()}
		return events, nil
	case event.TickQueueSample:
		return []event.Event{c.queueTick()}, []node.Sample{c.queueLengthSample(len(c.pending))}
	default:
		panic(fmt.Sprintf("client: unexpected self-tick reason %v", d.Reason))
	}
}

func (c *Client) handleResponse(now uint64, d event.EprResponse) ([]event.Event, []node.Sample) {
	if !d.IsSource {
		panic("client: received a target-side EprResponse; Client never serves requests")
	}
	req, ok := c.pending[d.Epr.RequestID]
	if !ok {
		panic(fmt.Sprintf("client: EprResponse for unknown request_id=%d", d.Epr.RequestID))
	}
	if d.MemoryCell == nil {
		delete(c.pending, d.Epr.RequestID)
		return nil, nil
	}
	req.memoryCell = d.MemoryCell
	return []event.Event{{
		Kind:  event.AppEvent,
		Delay: expDelayNs(1/c.OperationAvgDur, c.rng),
		Data:  event.LocalComplete{Epr: d.Epr, Node: c.NodeID, Port: c.Port},
	}}, nil
}

func (c *Client) handleLocalComplete(now uint64, epr event.FiveTuple) ([]event.Event, []node.Sample) {
	req, ok := c.pending[epr.RequestID]
	if !ok {
		panic(fmt.Sprintf("client: LocalComplete for unknown request_id=%d", epr.RequestID))
	}
	req.localDone = true
	events := []event.Event{releaseCellEvent(c.NodeID, c.Port, *req.memoryCell)}
	return c.maybeFinish(now, epr, req, events)
}

func (c *Client) handleRemoteComplete(now uint64, epr event.FiveTuple) ([]event.Event, []node.Sample) {
	req, ok := c.pending[epr.RequestID]
	if !ok {
		panic(fmt.Sprintf("client: RemoteComplete for unknown request_id=%d", epr.RequestID))
	}
	req.remoteDone = true
	return c.maybeFinish(now, epr, req, nil)
}

func (c *Client) maybeFinish(now uint64, epr event.FiveTuple, req *clientRequest, events []event.Event) ([]event.Event, []node.Sample) {
	if !req.localDone || !req.remoteDone {
		return events, nil
	}
	delete(c.pending, epr.RequestID)
	samples := []node.Sample{c.sample("epr-request-duration", secondsSince(req.created, now))}
	return events, samples
}
