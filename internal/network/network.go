// Package network implements the top-level event dispatcher of spec §4.6:
// it owns every Node, EPR generator, the EPR register, and the physical
// topology, and is the only component that understands classical-channel
// propagation delay.
package network

import (
	"fmt"
	"math"

	"github.com/ccicconetti/qnetsim/internal/eprgen"
	"github.com/ccicconetti/qnetsim/internal/eprreg"
	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/node"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
)

// SpeedOfLightMps is the classical-channel propagation speed used to
// convert physical distance into latency (spec §4.6: "c = 2*10^8 m/s").
const SpeedOfLightMps = 2e8

// Sample is the metrics tuple Network hands up to the simulation's sink;
// mirrors node.Sample so callers don't need to import both packages.
type Sample = node.Sample

// Network owns the nodes, generators, register and physical topology of
// one replication (spec §3 ownership rules).
type Network struct {
	nodes      map[uint32]*node.Node
	generators map[[2]uint32]*eprgen.Generator // keyed by (master, slave)
	register   *eprreg.Register
	phys       *phystopo.Topology
}

// New returns a Network over the given nodes, generators, register and
// physical topology. generators must be keyed by the (master, slave) of
// the logical edge they produce pairs for.
func New(nodes map[uint32]*node.Node, generators map[[2]uint32]*eprgen.Generator, register *eprreg.Register, phys *phystopo.Topology) *Network {
	return &Network{nodes: nodes, generators: generators, register: register, phys: phys}
}

// Initial seeds the queue with every generator's kick-off event and every
// node's applications' seed events (spec §4.9 step 1).
func (n *Network) Initial() ([]event.Event, []Sample) {
	var events []event.Event
	for _, g := range n.generators {
		events = append(events, g.Initial())
	}

	ids := make([]uint32, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sortU32(ids)

	var samples []Sample
	for _, id := range ids {
		evs, smps := n.nodes[id].Initial()
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

// Dispatch handles one event already popped from the main queue (spec
// §4.9 step 3's "AppEvent | OsEvent | NodeEvent: forward to Network"),
// applying classical-channel transfer delay before delivering it, and
// returns follow-up events plus metric samples.
func (n *Network) Dispatch(now uint64, ev event.Event) ([]event.Event, []Sample) {
	if ev.Transfer != nil && !ev.Transfer.Done {
		return n.startTransfer(now, ev)
	}

	switch ev.Kind {
	case event.NodeEvent:
		return n.dispatchNodeEvent(now, ev)
	case event.OsEvent:
		return n.dispatchOsEvent(now, ev)
	case event.AppEvent:
		return n.dispatchAppEvent(now, ev)
	default:
		panic(fmt.Sprintf("network: Dispatch called with non-network event kind %v", ev.Kind))
	}
}

// startTransfer computes the classical-channel propagation delay between
// Transfer.Src and Transfer.Dst and re-enqueues ev after that delay with
// Done set, per spec §4.6/§9 "transfer modeling".
func (n *Network) startTransfer(now uint64, ev event.Event) ([]event.Event, []Sample) {
	dist, ok := n.phys.Distance(int(ev.Transfer.Src), int(ev.Transfer.Dst))
	if !ok {
		panic(fmt.Sprintf("network: no physical path between %d and %d for classical transfer", ev.Transfer.Src, ev.Transfer.Dst))
	}
	delayNs := uint64(math.Round(dist / SpeedOfLightMps * 1e9))

	done := *ev.Transfer
	done.Done = true
	next := ev
	next.Transfer = &done
	next.Delay = delayNs
	return []event.Event{next}, nil
}

func (n *Network) dispatchNodeEvent(now uint64, ev event.Event) ([]event.Event, []Sample) {
	switch d := ev.Data.(type) {
	case event.EprGenerated:
		return n.handleEprGenerated(now, d)
	case event.EprNotified:
		return n.handleEprNotified(now, d)
	case event.EprFidelity:
		return n.handleEprFidelity(now, d)
	default:
		target := n.routeNodeEvent(ev)
		nd, ok := n.nodes[target]
		if !ok {
			panic(fmt.Sprintf("network: NodeEvent %T routed to unknown node %d", ev.Data, target))
		}
		evs, smps := nd.HandleNodeEvent(now, ev.Data)
		return evs, smps
	}
}

func (n *Network) dispatchOsEvent(now uint64, ev event.Event) ([]event.Event, []Sample) {
	d, ok := ev.Data.(event.EprRequestApp)
	if !ok {
		panic(fmt.Sprintf("network: unexpected OsEvent payload %T", ev.Data))
	}
	nd, ok := n.nodes[d.Epr.SourceNode]
	if !ok {
		panic(fmt.Sprintf("network: EprRequestApp from unknown node %d", d.Epr.SourceNode))
	}
	return nd.HandleNodeEvent(now, d)
}

func (n *Network) dispatchAppEvent(now uint64, ev event.Event) ([]event.Event, []Sample) {
	var targetNode, targetPort uint32
	switch d := ev.Data.(type) {
	case event.EprResponse:
		targetNode, targetPort = d.Node, d.Port
	case event.LocalComplete:
		targetNode, targetPort = d.Node, d.Port
	case event.RemoteComplete:
		targetNode, targetPort = d.Node, d.Port
	case event.SelfTick:
		targetNode, targetPort = d.Node, d.Port
	default:
		panic(fmt.Sprintf("network: unexpected AppEvent payload %T", ev.Data))
	}
	nd, ok := n.nodes[targetNode]
	if !ok {
		panic(fmt.Sprintf("network: AppEvent routed to unknown node %d", targetNode))
	}
	evs, smps, err := nd.HandleApp(now, targetPort, ev.Data)
	if err != nil {
		panic(err)
	}
	return evs, smps
}

// routeNodeEvent resolves the destination node for a NodeEvent that
// carries no (or an already-completed) Transfer: EsLocalComplete is a
// same-node timer fired by the final target itself, so it routes to the
// last element of its own Path; everything else with a completed
// Transfer routes to Transfer.Dst.
func (n *Network) routeNodeEvent(ev event.Event) uint32 {
	if ev.Transfer != nil {
		return ev.Transfer.Dst
	}
	switch d := ev.Data.(type) {
	case event.EsLocalComplete:
		return d.Path[len(d.Path)-1]
	case event.EsRemoteComplete:
		return d.Epr.SourceNode
	case event.EsRemoteFailed:
		return d.Epr.SourceNode
	default:
		panic(fmt.Sprintf("network: cannot route NodeEvent %T with no Transfer", ev.Data))
	}
}

// handleEprGenerated registers a newly generated pair, notifies both
// endpoints, and re-arms the generator (spec §4.6).
func (n *Network) handleEprGenerated(now uint64, d event.EprGenerated) ([]event.Event, []Sample) {
	fidelity, err := n.phys.Fidelity(int(d.Tx), int(d.Master), int(d.Slave))
	if err != nil {
		panic(fmt.Sprintf("network: EprGenerated(%+v) fidelity lookup failed: %v", d, err))
	}
	pairID := n.register.NewEPRPair(d.Master, d.Slave, now, fidelity)

	events := []event.Event{
		{Kind: event.NodeEvent, Data: event.EprNotified{Node: d.Master, Peer: d.Slave, Role: event.Master, PairID: pairID}},
		{Kind: event.NodeEvent, Data: event.EprNotified{Node: d.Slave, Peer: d.Master, Role: event.Slave, PairID: pairID}},
	}

	g, ok := n.generators[[2]uint32{d.Master, d.Slave}]
	if !ok {
		panic(fmt.Sprintf("network: EprGenerated for edge %d->%d with no registered generator", d.Master, d.Slave))
	}
	nextData, delayNs := g.Fire()
	events = append(events, event.Event{Kind: event.NodeEvent, Delay: delayNs, Data: nextData})

	return events, nil
}

func (n *Network) handleEprNotified(now uint64, d event.EprNotified) ([]event.Event, []Sample) {
	nd, ok := n.nodes[d.Node]
	if !ok {
		panic(fmt.Sprintf("network: EprNotified for unknown node %d", d.Node))
	}
	return nd.EprEstablished(now, d.Peer, d.Role, d.PairID)
}

// fidelityFloor is the maximally mixed state's fidelity, the asymptote
// every pair's fidelity decays toward (spec §4.6).
const fidelityFloor = 0.25

func (n *Network) handleEprFidelity(now uint64, d event.EprFidelity) ([]event.Event, []Sample) {
	nd, ok := n.nodes[d.ConsumeNode]
	if !ok {
		panic(fmt.Sprintf("network: EprFidelity for unknown node %d", d.ConsumeNode))
	}
	cell, ok := nd.Consume(d.Neighbor, d.Role, d.LocalPairID)
	if !ok {
		// The cell was already consumed by the other endpoint's request
		// or evicted; nothing to report.
		return nil, nil
	}

	updatedNs, fidelityAtUpdated, ok := n.register.Consume(cell.LocalPairID, d.ConsumeNode)
	if !ok {
		return nil, nil
	}

	spec, ok := n.phys.Node(int(d.ConsumeNode))
	if !ok {
		panic(fmt.Sprintf("network: EprFidelity for unknown physical node %d", d.ConsumeNode))
	}
	elapsedS := float64(now-updatedNs) / 1e9
	fidelityNow := fidelityFloor + (fidelityAtUpdated-fidelityFloor)*math.Exp(-spec.DecayRate*elapsedS)

	samples := []Sample{{
		Name:   "fidelity",
		Labels: []string{fmtU32(d.ConsumeNode), fmtU32(d.Neighbor)},
		Value:  fidelityNow,
	}}
	return nil, samples
}

func fmtU32(v uint32) string { return fmt.Sprintf("%d", v) }
