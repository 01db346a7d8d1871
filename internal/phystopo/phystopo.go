// Package phystopo builds and queries the physical topology: the static,
// undirected graph of satellite (SAT) and on-ground-station (OGS) nodes
// that the logical topology is later derived from.
package phystopo

import (
	"errors"
	"fmt"

	"github.com/ccicconetti/qnetsim/internal/graph"
)

// NodeType distinguishes a satellite relay from a ground station.
type NodeType int

const (
	// SAT is a satellite node: a relay with transmitters/detectors used
	// to generate and forward EPR pairs.
	SAT NodeType = iota
	// OGS is an on-ground station: the endpoint applications run on.
	OGS
)

func (t NodeType) String() string {
	if t == SAT {
		return "SAT"
	}
	return "OGS"
}

// NodeSpec is the static description of one physical-topology node.
type NodeSpec struct {
	ID           int
	Type         NodeType
	MemoryQubits uint32
	Detectors    uint32
	Transmitters uint32
	Capacity     float64 // pairs/s
	DecayRate    float64 // 1/s
	SwapProb     float64 // in [0,1]

	// SwapDuration and CorrDuration are not named in the distilled node
	// model but are present in the original NodeProperties (swapping and
	// Pauli-correction local-operation durations, seconds); carried
	// forward here as a supplement so the swap state machine's timing
	// isn't hardcoded to zero.
	SwapDuration float64
	CorrDuration float64
}

// Validate checks the per-node invariants of spec §4.1.
func (n NodeSpec) Validate() error {
	if (n.MemoryQubits > 0) != (n.Detectors > 0) {
		return fmt.Errorf("%w: node %d has memory_qubits=%d, detectors=%d",
			ErrInvalidNode, n.ID, n.MemoryQubits, n.Detectors)
	}
	if n.DecayRate < 0 {
		return fmt.Errorf("%w: node %d has negative decay_rate=%f", ErrInvalidNode, n.ID, n.DecayRate)
	}
	if n.SwapProb < 0 || n.SwapProb > 1 {
		return fmt.Errorf("%w: node %d has swap_prob=%f outside [0,1]", ErrInvalidNode, n.ID, n.SwapProb)
	}
	if n.Capacity < 0 {
		return fmt.Errorf("%w: node %d has negative capacity=%f", ErrInvalidNode, n.ID, n.Capacity)
	}
	if n.SwapDuration < 0 || n.CorrDuration < 0 {
		return fmt.Errorf("%w: node %d has negative swap/correction duration", ErrInvalidNode, n.ID)
	}
	return nil
}

// ErrInvalidNode reports a physical node that fails spec §4.1 validation.
var ErrInvalidNode = errors.New("phystopo: invalid node")

// ErrUnknownNode is returned when a query references a node ID that was
// never registered.
var ErrUnknownNode = errors.New("phystopo: unknown node")

// Topology is the static physical-topology graph: nodes plus undirected,
// distance-weighted edges.
type Topology struct {
	nodes []NodeSpec
	g     *graph.Graph // undirected, weight = distance in meters
	table FidelityTable
}

// EdgeSpec is an undirected physical edge between U and V at the given
// Distance (meters).
type EdgeSpec struct {
	U, V     int
	Distance float64
}

// New builds a Topology from explicit nodes and edges, validating every
// node and rejecting duplicate edges between the same pair.
func New(nodes []NodeSpec, edges []EdgeSpec, table FidelityTable) (*Topology, error) {
	g := graph.New(false)
	byID := make(map[int]NodeSpec, len(nodes))
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidNode, n.ID)
		}
		byID[n.ID] = n
		g.AddNode(n.ID)
	}
	for _, e := range edges {
		if g.HasEdge(e.U, e.V) {
			return nil, fmt.Errorf("phystopo: duplicate edge between %d and %d", e.U, e.V)
		}
		g.AddEdge(e.U, e.V, e.Distance)
	}
	return &Topology{nodes: nodes, g: g, table: table}, nil
}

// Node returns the static spec for id, and whether it exists.
func (t *Topology) Node(id int) (NodeSpec, bool) {
	for _, n := range t.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// Nodes returns every node in the topology.
func (t *Topology) Nodes() []NodeSpec { return t.nodes }

// NumNodes returns the number of nodes in the topology.
func (t *Topology) NumNodes() int { return len(t.nodes) }

// Neighbors returns the physical edges incident to id.
func (t *Topology) Neighbors(id int) []graph.Edge { return t.g.Neighbors(id) }

// Distance returns the shortest-path distance (meters) between u and v via
// lazy Bellman-Ford, or false if no path connects them.
func (t *Topology) Distance(u, v int) (float64, bool) {
	dist, _, err := t.g.BellmanFord(u)
	if err != nil {
		return 0, false
	}
	d, ok := dist[v]
	return d, ok
}

// Fidelity returns the initial fidelity of a pair generated by transmitter
// tx for the link between u and v. tx must be a SAT with transmitters>0
// that is either one of the endpoints (one-hop) or adjacent to both (two-
// hop relay); any other shape is a usage error (spec §4.1).
func (t *Topology) Fidelity(tx, u, v int) (float64, error) {
	txSpec, ok := t.Node(tx)
	if !ok {
		return 0, fmt.Errorf("%w: tx=%d", ErrUnknownNode, tx)
	}
	if txSpec.Type != SAT || txSpec.Transmitters == 0 {
		return 0, fmt.Errorf("phystopo: tx=%d is not a transmitting SAT", tx)
	}
	uSpec, ok := t.Node(u)
	if !ok {
		return 0, fmt.Errorf("%w: u=%d", ErrUnknownNode, u)
	}
	vSpec, ok := t.Node(v)
	if !ok {
		return 0, fmt.Errorf("%w: v=%d", ErrUnknownNode, v)
	}

	oneHop := tx == u || tx == v
	if oneHop {
		if !t.g.HasEdge(tx, u) && tx != u {
			return 0, fmt.Errorf("phystopo: tx=%d not adjacent to u=%d", tx, u)
		}
		if !t.g.HasEdge(tx, v) && tx != v {
			return 0, fmt.Errorf("phystopo: tx=%d not adjacent to v=%d", tx, v)
		}
		other := u
		if tx == u {
			other = v
		}
		otherSpec, _ := t.Node(other)
		return t.table.OneHop(otherSpec.Type), nil
	}

	if !t.g.HasEdge(tx, u) || !t.g.HasEdge(tx, v) {
		return 0, fmt.Errorf("phystopo: relay tx=%d not adjacent to both %d and %d", tx, u, v)
	}
	return t.table.TwoHop(uSpec.Type, vSpec.Type), nil
}
