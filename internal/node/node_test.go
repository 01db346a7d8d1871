package node_test

import (
	"math/rand"
	"testing"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/logtopo"
	"github.com/ccicconetti/qnetsim/internal/nic"
	"github.com/ccicconetti/qnetsim/internal/node"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
	"github.com/stretchr/testify/require"
)

func fidelities() phystopo.FidelityTable {
	return phystopo.FidelityTable{FO: 0.9, FG: 0.9, FOO: 0.8, FOG: 0.8, FGG: 0.8}
}

func chainLogTopo(t *testing.T, n int) *logtopo.Topology {
	t.Helper()
	sat := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 4, Capacity: 10, SwapProb: 1}
	ogs := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 2, Capacity: 5}
	phys, err := phystopo.NewChain(n, sat, ogs, 10, fidelities())
	require.NoError(t, err)
	lt, err := logtopo.Construct(phys, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	return lt
}

func TestSingleHopRequestCompletesImmediately(t *testing.T) {
	lt := chainLogTopo(t, 3) // OGS(0) - SAT(1) - OGS(2)
	// This test exercises whichever direct logical edge Edges() happens to
	// return first among those the random-greedy construction admitted.
	edge, ok := firstSingleHopEdge(lt)
	require.True(t, ok, "expected at least one direct logical edge")

	src := node.New(uint32(edge.Master), lt, 1, 0, 0, rand.New(rand.NewSource(1)))
	dst := node.New(uint32(edge.Slave), lt, 1, 0, 0, rand.New(rand.NewSource(2)))
	src.AddNIC(uint32(edge.Slave), event.Master, int(edge.MemoryQubits))
	dst.AddNIC(uint32(edge.Master), event.Slave, int(edge.MemoryQubits))

	// Simulate EprGenerated landing: master side first.
	events, samples := src.EprEstablished(100, uint32(edge.Slave), event.Master, 7)
	require.Empty(t, events) // no pending request yet
	require.Len(t, samples, 1)
	require.Equal(t, "occupancy", samples[0].Name)

	events, _ = dst.EprEstablished(100, uint32(edge.Master), event.Slave, 7)
	require.Empty(t, events)

	// Now the source application requests entanglement to the slave.
	epr := event.FiveTuple{SourceNode: uint32(edge.Master), TargetNode: uint32(edge.Slave), RequestID: 1}
	events, _ = src.HandleNodeEvent(200, event.EprRequestApp{Epr: epr})
	require.Len(t, events, 1)
	esReq := events[0].Data.(event.EsRequest)
	require.Equal(t, uint32(edge.Master), esReq.PrevHop)
	require.Equal(t, uint32(edge.Slave), esReq.NextHop)

	events, _ = dst.HandleNodeEvent(200, esReq)
	require.Len(t, events, 1)
	localComplete := events[0].Data.(event.EsLocalComplete)
	require.Equal(t, uint64(0), events[0].Delay) // single-hop: no correction delay

	events, _ = dst.HandleNodeEvent(200, localComplete)
	require.Len(t, events, 2)

	var remoteComplete *event.EsRemoteComplete
	var appResp *event.EprResponse
	for _, ev := range events {
		switch d := ev.Data.(type) {
		case event.EsRemoteComplete:
			remoteComplete = &d
		case event.EprResponse:
			appResp = &d
		}
	}
	require.NotNil(t, remoteComplete)
	require.NotNil(t, appResp)
	require.False(t, appResp.IsSource)

	events, _ = src.HandleNodeEvent(250, *remoteComplete)
	require.Len(t, events, 1)
	finalResp := events[0].Data.(event.EprResponse)
	require.True(t, finalResp.IsSource)
}

func TestHandleNodeEventPanicsOnUnknownPayload(t *testing.T) {
	lt := chainLogTopo(t, 3)
	n := node.New(0, lt, 1, 0, 0, rand.New(rand.NewSource(1)))
	require.Panics(t, func() {
		n.HandleNodeEvent(0, 42)
	})
}

func firstSingleHopEdge(lt *logtopo.Topology) (logtopo.Edge, bool) {
	for _, e := range lt.Edges() {
		if path, ok := lt.Path(e.Master, e.Slave); ok && len(path) == 2 {
			return e, true
		}
	}
	return logtopo.Edge{}, false
}

// threeNodeRelay wires A-R-B directly (no logical-topology construction
// involved) so the intermediate-relay branch of handleEsRequest can be
// driven without depending on which edges random-greedy happens to admit.
// R's swap_prob is forced to 1 so its BSM always succeeds.
func threeNodeRelay(t *testing.T) (a, r, b *node.Node, path []uint32) {
	t.Helper()
	const (
		nodeA uint32 = 0
		nodeR uint32 = 1
		nodeB uint32 = 2
	)
	lt := chainLogTopo(t, 3)

	a = node.New(nodeA, lt, 1, 0, 0, rand.New(rand.NewSource(11)))
	r = node.New(nodeR, lt, 1, 0, 0, rand.New(rand.NewSource(12)))
	b = node.New(nodeB, lt, 1, 0, 0, rand.New(rand.NewSource(13)))

	a.AddNIC(nodeR, event.Master, 2)
	r.AddNIC(nodeA, event.Slave, 2)
	r.AddNIC(nodeB, event.Master, 2)
	b.AddNIC(nodeR, event.Slave, 2)

	return a, r, b, []uint32{nodeA, nodeR, nodeB}
}

// TestIntermediateRelayForwardsToTheActualNextHop exercises the
// entanglement-swap branch of handleEsRequest at a genuine intermediate
// relay (spec §4.7/§9's 3-hop case): the relay's BSM succeeds, and the
// forwarded EsRequest must land on the path's actual next node (the one
// whose NIC the relay just locked), not one hop further.
func TestIntermediateRelayForwardsToTheActualNextHop(t *testing.T) {
	_, r, b, path := threeNodeRelay(t)

	// Pair shared between A and R (the hop the relay receives on).
	_, _ = r.EprEstablished(100, path[0], event.Slave, 7)
	// Pair shared between R and B (the hop the relay forwards on).
	_, _ = r.EprEstablished(100, path[2], event.Master, 42)
	// Pair shared between R and B, the slave side B will match against.
	_, _ = b.EprEstablished(100, path[1], event.Slave, 42)

	epr := event.FiveTuple{SourceNode: path[0], TargetNode: path[2], RequestID: 1}
	esReq := event.EsRequest{Epr: epr, PrevHop: path[0], NextHop: path[1], Path: path, LocalPairID: 7}

	events, _ := r.HandleNodeEvent(200, esReq)
	require.Len(t, events, 1, "a successful BSM must forward exactly one EsRequest")
	forwarded := events[0].Data.(event.EsRequest)

	require.Equal(t, path[2], forwarded.NextHop, "must forward to the relay's actual next hop, not one hop further")
	require.Equal(t, path[1], forwarded.PrevHop)
	require.Equal(t, uint64(42), forwarded.LocalPairID)
	require.NotNil(t, events[0].Transfer)
	require.Equal(t, path[1], events[0].Transfer.Src)
	require.Equal(t, path[2], events[0].Transfer.Dst)

	// The final target accepts the forwarded request and completes.
	events, _ = b.HandleNodeEvent(200, forwarded)
	require.Len(t, events, 1)
	localComplete, ok := events[0].Data.(event.EsLocalComplete)
	require.True(t, ok)
	require.Equal(t, uint64(42), localComplete.LocalPairID)
}

// TestIntermediateRelayFailureFreesTheCorrectLockedCell exercises
// handleEsFailure at a relay that previously forwarded a swap request:
// the relay must free the master-side cell it actually locked when
// forwarding (keyed by the real next hop), not a cell belonging to some
// other peer.
func TestIntermediateRelayFailureFreesTheCorrectLockedCell(t *testing.T) {
	_, r, _, path := threeNodeRelay(t)

	_, _ = r.EprEstablished(100, path[0], event.Slave, 7)
	_, _ = r.EprEstablished(100, path[2], event.Master, 42)

	epr := event.FiveTuple{SourceNode: path[0], TargetNode: path[2], RequestID: 1}
	esReq := event.EsRequest{Epr: epr, PrevHop: path[0], NextHop: path[1], Path: path, LocalPairID: 7}

	events, _ := r.HandleNodeEvent(200, esReq)
	require.Len(t, events, 1)

	masterNIC, ok := r.NIC(path[2], event.Master)
	require.True(t, ok)
	occupiedCells := occupancy(masterNIC)
	require.Equal(t, 1, occupiedCells, "forwarding must have locked the cell toward the real next hop")

	// The next hop reports a downstream failure; the relay must release
	// the cell it locked toward path[2], the peer it actually forwarded to.
	failure := event.EsFailure{Epr: epr, PrevHop: path[2], NextHop: path[1], Path: path}
	events, _ = r.HandleNodeEvent(300, failure)
	require.Len(t, events, 1)
	backToSource := events[0].Data.(event.EsFailure)
	require.Equal(t, path[0], backToSource.NextHop)

	require.Equal(t, 0, occupancy(masterNIC), "the locked cell toward the real next hop must be freed, not leaked")
}

func occupancy(n *nic.NIC) int {
	used := 0
	for _, c := range n.Cells() {
		if c.State != nic.Empty {
			used++
		}
	}
	return used
}
