// Package node implements the quantum Node: per-peer NICs, the
// application dispatch table, the pending-request queue, and the
// entanglement-swap state machine (spec §4.7).
package node

import (
	"fmt"
	"math/rand"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/logtopo"
	"github.com/ccicconetti/qnetsim/internal/nic"
)

// Handler is the interface an Application implements to receive AppEvents
// routed to its port (spec §4.8, §9 "polymorphism over application kinds:
// implement as a tagged variant with dispatch, not inheritance").
type Handler interface {
	// Initial returns the events this application seeds the queue with at
	// simulation start (e.g. Pinger/Client's first request).
	Initial() ([]event.Event, []Sample)
	// Handle processes one event addressed to this application and
	// returns follow-up events plus metric samples.
	Handle(now uint64, data any) ([]event.Event, []Sample)
}

// Sample is one metric observation emitted by a handler; node and its
// applications are agnostic to how metrics.Sink stores it.
type Sample struct {
	Name   string
	Labels []string
	Value  float64
}

// status is the lifecycle of one pending request.
type status int

const (
	statusQueued status = iota
	statusWaitingForResponse
)

type request struct {
	received uint64
	epr      event.FiveTuple
	status   status
	path     []uint32
	cell     event.MemoryCellID // meaningful when status==statusWaitingForResponse
}

// Node models one physical-topology node's runtime state.
type Node struct {
	ID uint32

	SwapProb     float64
	SwapDuration uint64 // ns
	CorrDuration uint64 // ns

	nicsMaster map[uint32]*nic.NIC
	nicsSlave  map[uint32]*nic.NIC

	applications map[uint32]Handler

	pending map[uint32][]*request

	// lockedMaster tracks, per in-flight swap chain, the master-side cell
	// an intermediate relay locked when it forwarded EsRequest one hop
	// further. The origin node tracks its own locked cell on the pending
	// request itself (request.cell) instead, since it also needs it to
	// reissue the request on failure.
	lockedMaster map[event.FiveTuple]event.MemoryCellID

	logTopo *logtopo.Topology
	rng     *rand.Rand
}

// New returns an empty Node wired to the given (shared, immutable)
// logical topology, with rng seeded by the caller per spec §5's
// "simulation_seed + node_id" discipline.
func New(id uint32, logTopo *logtopo.Topology, swapProb float64, swapDurationNs, corrDurationNs uint64, rng *rand.Rand) *Node {
	return &Node{
		ID:           id,
		SwapProb:     swapProb,
		SwapDuration: swapDurationNs,
		CorrDuration: corrDurationNs,
		nicsMaster:   make(map[uint32]*nic.NIC),
		nicsSlave:    make(map[uint32]*nic.NIC),
		applications: make(map[uint32]Handler),
		pending:      make(map[uint32][]*request),
		lockedMaster: make(map[event.FiveTuple]event.MemoryCellID),
		logTopo:      logTopo,
		rng:          rng,
	}
}

// AddNIC installs a fixed-capacity NIC toward peer in the given role.
func (n *Node) AddNIC(peer uint32, role event.Role, capacity int) {
	m := n.nicsMaster
	if role == event.Slave {
		m = n.nicsSlave
	}
	m[peer] = nic.New(capacity)
}

// NIC returns the NIC toward peer in the given role, if installed.
func (n *Node) NIC(peer uint32, role event.Role) (*nic.NIC, bool) {
	m := n.nicsMaster
	if role == event.Slave {
		m = n.nicsSlave
	}
	c, ok := m[peer]
	return c, ok
}

// AddApplication registers handler at port; a duplicate port is a
// programming error (ApplicationMissing's mirror image, both fatal per
// spec §7) and panics.
func (n *Node) AddApplication(port uint32, h Handler) {
	if _, dup := n.applications[port]; dup {
		panic(fmt.Sprintf("node %d: duplicate application at port %d", n.ID, port))
	}
	n.applications[port] = h
}

// ErrApplicationMissing is returned when an AppEvent targets an
// unregistered port (spec §7's fatal ApplicationMissing kind).
type ErrApplicationMissing struct {
	Node uint32
	Port uint32
}

func (e ErrApplicationMissing) Error() string {
	return fmt.Sprintf("node %d: no application at port %d", e.Node, e.Port)
}

// Initial collects the seed events of every registered application
// (spec §4.9 step 1, §4.6 "Network.initial() ... app.initial() for all
// applications"), in port order for determinism.
func (n *Node) Initial() ([]event.Event, []Sample) {
	ports := make([]uint32, 0, len(n.applications))
	for p := range n.applications {
		ports = append(ports, p)
	}
	sortU32(ports)

	var events []event.Event
	var samples []Sample
	for _, p := range ports {
		evs, smps := n.applications[p].Initial()
		events = append(events, evs...)
		samples = append(samples, smps...)
	}
	return events, samples
}

func sortU32(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// HandleApp routes an AppEvent to the application at port.
func (n *Node) HandleApp(now uint64, port uint32, data any) ([]event.Event, []Sample, error) {
	h, ok := n.applications[port]
	if !ok {
		return nil, nil, ErrApplicationMissing{Node: n.ID, Port: port}
	}
	evs, samples := h.Handle(now, data)
	return evs, samples, nil
}

// EprEstablished notifies this node that a new EPR photon landed in the
// NIC toward peer in the given role (spec §4.6/§4.7 Network -> Node
// notification), inserts it, and schedules any queued requests waiting on
// that NIC. Returns follow-up events and an occupancy sample.
func (n *Node) EprEstablished(now uint64, peer uint32, role event.Role, pairID uint64) ([]event.Event, []Sample) {
	c, ok := n.NIC(peer, role)
	if !ok {
		panic(fmt.Sprintf("node %d: epr_established for unknown NIC peer=%d role=%v", n.ID, peer, role))
	}
	c.AddEPRPair(now, pairID)
	occupancy := c.Occupancy()

	var events []event.Event
	if role == event.Master {
		events = n.schedulePendingRequests(now, peer)
	}

	samples := []Sample{{Name: "occupancy", Labels: []string{fmtU32(n.ID), fmtU32(peer)}, Value: occupancy}}
	return events, samples
}

// Consume releases the NIC cell holding localPairID toward peer in the
// given role, returning its creation time/fidelity bookkeeping via the
// caller's register lookup; Node itself only forgets the cell.
func (n *Node) Consume(peer uint32, role event.Role, localPairID uint64) (nic.Cell, bool) {
	c, ok := n.NIC(peer, role)
	if !ok {
		return nic.Cell{}, false
	}
	return c.Consume(localPairID)
}

// HandleNodeEvent dispatches one NodeEvent payload to the matching
// handler, mirroring the teacher's explicit type-switch dispatch style
// (spec §9 "tagged-variant dispatch, not inheritance").
func (n *Node) HandleNodeEvent(now uint64, data any) ([]event.Event, []Sample) {
	switch d := data.(type) {
	case event.EprRequestApp:
		return n.handleEprRequestApp(now, now, d.Epr)
	case event.EsRequest:
		return n.handleEsRequest(now, d)
	case event.EsFailure:
		return n.handleEsFailure(now, d)
	case event.EsLocalComplete:
		return n.handleEsLocalComplete(now, d)
	case event.EsRemoteComplete:
		return n.handleEsRemoteComplete(now, d.Epr)
	case event.EsRemoteFailed:
		return n.handleEsRemoteFailed(now, d.Epr)
	default:
		panic(fmt.Sprintf("node %d: unexpected NodeEvent payload %T", n.ID, data))
	}
}

func (n *Node) handleEprRequestApp(now, received uint64, epr event.FiveTuple) ([]event.Event, []Sample) {
	if epr.SourceNode != n.ID {
		panic(fmt.Sprintf("node %d: EprRequestApp for source %d routed here", n.ID, epr.SourceNode))
	}
	path, ok := n.logTopo.Path(int(epr.SourceNode), int(epr.TargetNode))
	if !ok || len(path) < 2 {
		panic(fmt.Sprintf("node %d: no logical path to target %d", n.ID, epr.TargetNode))
	}

	peer := uint32(path[1])
	n.pending[peer] = append(n.pending[peer], &request{
		received: received,
		epr:      epr,
		status:   statusQueued,
		path:     toU32Path(path),
	})
	return n.schedulePendingRequests(now, peer), nil
}

// schedulePendingRequests locks the newest Valid master-NIC cell toward
// peer for every Queued request, in FIFO order, stopping when no Valid
// cell remains (spec §4.7 "Scheduler per peer").
func (n *Node) schedulePendingRequests(now uint64, peer uint32) []event.Event {
	c, ok := n.NIC(peer, event.Master)
	if !ok {
		return nil
	}
	var events []event.Event
	for _, req := range n.pending[peer] {
		if req.status != statusQueued {
			continue
		}
		localPairID, ok := c.NewestValid()
		if !ok {
			break
		}
		c.Used(localPairID)
		req.status = statusWaitingForResponse
		req.cell = event.MemoryCellID{Peer: peer, Role: event.Master, LocalPairID: localPairID}
		events = append(events, event.Event{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: peer},
			Data: event.EsRequest{
				Epr:         req.epr,
				PrevHop:     n.ID,
				NextHop:     peer,
				Path:        req.path,
				LocalPairID: localPairID,
			},
		})
	}
	return events
}

// handleEsRequest is the slave-side receipt of a swap request: verify the
// expected cell, then either complete locally (final target) or attempt a
// BSM and forward/fail (intermediate relay) (spec §4.7).
func (n *Node) handleEsRequest(now uint64, d event.EsRequest) ([]event.Event, []Sample) {
	c, ok := n.NIC(d.PrevHop, event.Slave)
	if !ok || !c.Used(d.LocalPairID) {
		return []event.Event{{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: d.PrevHop},
			Data:     event.EsFailure{Epr: d.Epr, PrevHop: n.ID, NextHop: d.PrevHop, Path: d.Path},
		}}, nil
	}

	target := d.Path[len(d.Path)-1]
	if target == n.ID {
		delay := uint64(0)
		if len(d.Path) > 2 {
			switch n.rng.Intn(4) {
			case 0:
				delay = 0
			case 1:
				delay = 2 * n.CorrDuration
			default:
				delay = n.CorrDuration
			}
		}
		return []event.Event{{
			Kind:  event.NodeEvent,
			Data:  event.EsLocalComplete{Epr: d.Epr, Path: d.Path, Neighbor: d.PrevHop, LocalPairID: d.LocalPairID},
			Delay: delay,
		}}, nil
	}

	// Intermediate relay: attempt the Bell-state measurement. The BSM
	// itself takes SwapDuration local processing time before its outcome
	// (success or failure) is communicated onward.
	if n.rng.Float64() >= n.SwapProb {
		c.Consume(d.LocalPairID)
		return []event.Event{{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: d.PrevHop},
			Data:     event.EsFailure{Epr: d.Epr, PrevHop: n.ID, NextHop: d.PrevHop, Path: d.Path},
			Delay:    n.SwapDuration,
		}}, nil
	}

	// BSM succeeded: free the slave cell just consumed, forward one hop
	// further using the master NIC toward the next hop in the path.
	c.Consume(d.LocalPairID)
	nextHop := d.Path[indexOf(d.Path, n.ID)+1]
	masterNIC, ok := n.NIC(nextHop, event.Master)
	if !ok {
		return []event.Event{{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: d.PrevHop},
			Data:     event.EsFailure{Epr: d.Epr, PrevHop: n.ID, NextHop: d.PrevHop, Path: d.Path},
		}}, nil
	}
	localPairID, ok := masterNIC.NewestValid()
	if !ok {
		return []event.Event{{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: d.PrevHop},
			Data:     event.EsFailure{Epr: d.Epr, PrevHop: n.ID, NextHop: d.PrevHop, Path: d.Path},
		}}, nil
	}
	masterNIC.Used(localPairID)
	n.lockedMaster[d.Epr] = event.MemoryCellID{Peer: nextHop, Role: event.Master, LocalPairID: localPairID}

	return []event.Event{{
		Kind:     event.NodeEvent,
		Transfer: &event.Transfer{Src: n.ID, Dst: nextHop},
		Delay:    n.SwapDuration,
		Data: event.EsRequest{
			Epr:         d.Epr,
			PrevHop:     n.ID,
			NextHop:     nextHop,
			Path:        d.Path,
			LocalPairID: localPairID,
		},
	}}, nil
}

// handleEsFailure propagates a swap failure one hop back toward the
// source, releasing this node's locked master cell toward prevHop, until
// the source is reached and re-enters the request pipeline.
func (n *Node) handleEsFailure(now uint64, d event.EsFailure) ([]event.Event, []Sample) {
	// Free the master-side cell this node locked when it forwarded the
	// original EsRequest one hop further, if it did (intermediate relays
	// only; the origin frees its cell in handleEsRemoteFailed instead).
	if cell, ok := n.lockedMaster[d.Epr]; ok {
		if c, ok := n.NIC(cell.Peer, event.Master); ok {
			c.Consume(cell.LocalPairID)
		}
		delete(n.lockedMaster, d.Epr)
	}
	source := d.Path[0]
	if n.ID == source {
		return n.handleEsRemoteFailed(now, d.Epr)
	}
	idx := indexOf(d.Path, n.ID)
	prevHop := d.Path[idx-1]
	return []event.Event{{
		Kind:     event.NodeEvent,
		Transfer: &event.Transfer{Src: n.ID, Dst: prevHop},
		Data:     event.EsFailure{Epr: d.Epr, PrevHop: n.ID, NextHop: prevHop, Path: d.Path},
	}}, nil
}

// handleEsLocalComplete runs at the path's final target once the local
// correction delay elapses: notify the origin and deliver the response to
// the local application (spec §4.7).
func (n *Node) handleEsLocalComplete(now uint64, d event.EsLocalComplete) ([]event.Event, []Sample) {
	source := d.Path[0]
	events := []event.Event{
		{
			Kind:     event.NodeEvent,
			Transfer: &event.Transfer{Src: n.ID, Dst: source},
			Data:     event.EsRemoteComplete{Epr: d.Epr},
		},
		{
			Kind: event.AppEvent,
			Data: event.EprResponse{
				Epr:      d.Epr,
				IsSource: false,
				MemoryCell: &event.MemoryCellID{
					Peer: d.Neighbor, Role: event.Slave, LocalPairID: d.LocalPairID,
				},
				Node: d.Epr.TargetNode,
				Port: d.Epr.TargetPort,
			},
		},
	}
	return events, nil
}

// handleEsRemoteComplete runs at the origin once the swap chain succeeds
// end to end: deliver the response to the requesting application and emit
// a latency sample.
func (n *Node) handleEsRemoteComplete(now uint64, epr event.FiveTuple) ([]event.Event, []Sample) {
	req, peer, ok := n.popPending(epr)
	if !ok || req.status != statusWaitingForResponse {
		panic(fmt.Sprintf("node %d: EsRemoteComplete for unknown/mismatched request %+v", n.ID, epr))
	}
	_ = peer
	events := []event.Event{{
		Kind: event.AppEvent,
		Data: event.EprResponse{
			Epr: epr, IsSource: true, MemoryCell: &req.cell,
			Node: epr.SourceNode, Port: epr.SourcePort,
		},
	}}
	samples := []Sample{{
		Name:   "epr-request-latency",
		Labels: []string{fmtU32(n.ID), fmtInt(len(req.path) - 1)},
		Value:  secondsSince(req.received, now),
	}}
	return events, samples
}

// handleEsRemoteFailed runs at the origin when the swap chain failed: free
// the locked cell and re-issue the original request, preserving its
// original received timestamp for honest latency accounting.
func (n *Node) handleEsRemoteFailed(now uint64, epr event.FiveTuple) ([]event.Event, []Sample) {
	req, peer, ok := n.popPending(epr)
	if !ok {
		return nil, nil
	}
	if c, ok := n.NIC(peer, event.Master); ok {
		c.Consume(req.cell.LocalPairID)
	}
	return n.handleEprRequestApp(now, req.received, epr)
}

func (n *Node) popPending(epr event.FiveTuple) (*request, uint32, bool) {
	for peer, reqs := range n.pending {
		for i, r := range reqs {
			if r.epr == epr {
				n.pending[peer] = append(reqs[:i], reqs[i+1:]...)
				return r, peer, true
			}
		}
	}
	return nil, 0, false
}

func indexOf(path []uint32, id uint32) int {
	for i, v := range path {
		if v == id {
			return i
		}
	}
	return -1
}

func toU32Path(path []int) []uint32 {
	out := make([]uint32, len(path))
	for i, v := range path {
		out[i] = uint32(v)
	}
	return out
}

func fmtU32(v uint32) string { return fmt.Sprintf("%d", v) }
func fmtInt(v int) string    { return fmt.Sprintf("%d", v) }

func secondsSince(then, now uint64) float64 { return float64(now-then) / 1e9 }
