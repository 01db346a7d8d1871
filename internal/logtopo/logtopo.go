// Package logtopo derives a logical topology from a physical one via the
// random-greedy construction of spec §4.2: every ordered (master, slave)
// pair gets at most one logical edge, annotated with which node
// transmits, how many memory qubits the edge reserves on each endpoint,
// and what share of the transmitter's capacity it receives.
package logtopo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/ccicconetti/qnetsim/internal/graph"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
)

// ErrInfeasible is returned by Construct when OGS-to-OGS reachability
// cannot be achieved after exhausting every candidate edge (spec §4.2 step
// 3; spec §7's recoverable TopologyInfeasible error kind).
var ErrInfeasible = errors.New("logtopo: OGS reachability infeasible")

// Edge is one directed logical link master->slave.
type Edge struct {
	Tx           int
	Master       int
	Slave        int
	MemoryQubits uint32
	Capacity     float64
}

// Topology is the immutable, shared-read-only logical topology produced by
// Construct. Once built it is never mutated; every Node holds a reference
// to the same instance (spec §9, "shared immutable logical topology").
type Topology struct {
	edges    map[[2]int]Edge // keyed by (master, slave)
	byMaster map[int][]Edge  // outgoing edges per master, for Node lookups
	g        *graph.Graph    // cost-1 edges, for all-pairs shortest paths
	dist     map[int]map[int]float64
	prev     map[int]map[int]int
}

// Edges returns every logical edge, in no particular order.
func (t *Topology) Edges() []Edge {
	out := make([]Edge, 0, len(t.edges))
	for _, e := range t.edges {
		out = append(out, e)
	}
	return out
}

// Edge returns the logical edge master->slave, if one was admitted.
func (t *Topology) Edge(master, slave int) (Edge, bool) {
	e, ok := t.edges[[2]int{master, slave}]
	return e, ok
}

// OutgoingFrom returns every logical edge whose master is id. The node
// that transmits on an edge is its Tx, which need not be the master.
func (t *Topology) OutgoingFrom(id int) []Edge {
	return t.byMaster[id]
}

// Path returns the node sequence of the precomputed shortest (fewest-hop)
// path from src to dst, or false if unreachable.
func (t *Topology) Path(src, dst int) ([]int, bool) {
	prev, ok := t.prev[src]
	if !ok {
		return nil, false
	}
	if src == dst {
		return []int{src}, true
	}
	if _, ok := t.dist[src][dst]; !ok {
		return nil, false
	}
	return graph.Path(prev, src, dst)
}

// candidate is one directed (tx, master, slave) triple eligible for
// admission.
type candidate struct {
	tx, master, slave int
}

// counters tracks the mutable, per-node remaining resources consumed
// during greedy admission and residual-memory distribution. It starts as
// a copy of the physical node's static budget and is decremented in place;
// the physical topology itself is never mutated.
type counters struct {
	memoryQubits map[int]uint32
	detectors    map[int]uint32
	transmitters map[int]uint32
}

// Construct runs the random-greedy algorithm of spec §4.2 against phys,
// using rng for the candidate shuffle and the residual-memory-pass
// shuffle. rng should be seeded deterministically by the caller (spec §5:
// "simulation_seed" for topology construction).
func Construct(phys *phystopo.Topology, rng *rand.Rand) (*Topology, error) {
	cnt := newCounters(phys)

	candidates := enumerateCandidates(phys)
	shuffle(candidates, rng)

	ogsIDs := ogsNodeIDs(phys)

	admitted := make(map[[2]int]*Edge)
	for _, c := range candidates {
		if _, exists := admitted[[2]int{c.master, c.slave}]; exists {
			continue
		}
		if cnt.memoryQubits[c.master] == 0 || cnt.memoryQubits[c.slave] == 0 {
			continue
		}
		if cnt.detectors[c.master] == 0 || cnt.detectors[c.slave] == 0 {
			continue
		}
		if cnt.transmitters[c.tx] == 0 {
			continue
		}

		cnt.memoryQubits[c.master]--
		cnt.memoryQubits[c.slave]--
		cnt.detectors[c.master]--
		cnt.detectors[c.slave]--
		cnt.transmitters[c.tx]--
		admitted[[2]int{c.master, c.slave}] = &Edge{Tx: c.tx, Master: c.master, Slave: c.slave, MemoryQubits: 1, Capacity: 0}

		if ogsAllReachable(admitted, ogsIDs) {
			break
		}
	}

	if !ogsAllReachable(admitted, ogsIDs) {
		return nil, ErrInfeasible
	}

	distributeResidualMemory(admitted, cnt, rng)
	divideCapacity(admitted, phys)

	return build(admitted, phys)
}

func newCounters(phys *phystopo.Topology) *counters {
	c := &counters{
		memoryQubits: make(map[int]uint32),
		detectors:    make(map[int]uint32),
		transmitters: make(map[int]uint32),
	}
	for _, n := range phys.Nodes() {
		c.memoryQubits[n.ID] = n.MemoryQubits
		c.detectors[n.ID] = n.Detectors
		c.transmitters[n.ID] = n.Transmitters
	}
	return c
}

// enumerateCandidates builds the full candidate list of spec §4.2 step 1.
func enumerateCandidates(phys *phystopo.Topology) []candidate {
	var out []candidate
	for _, u := range phys.Nodes() {
		if u.Transmitters == 0 {
			continue
		}
		var r []int
		for _, e := range phys.Neighbors(u.ID) {
			if n, ok := phys.Node(e.To); ok && n.Detectors > 0 {
				r = append(r, e.To)
			}
		}
		if n, ok := phys.Node(u.ID); ok && n.Detectors > 0 {
			r = append(r, u.ID)
		}
		for i := 0; i < len(r); i++ {
			for j := i + 1; j < len(r); j++ {
				a, b := r[i], r[j]
				out = append(out, candidate{tx: u.ID, master: a, slave: b})
				out = append(out, candidate{tx: u.ID, master: b, slave: a})
			}
		}
	}
	return out
}

// shuffle performs the inside-out Fisher-Yates shuffle described by spec
// §4.2 ("shuffle... with the seed RNG (inside-out shuffle)").
func shuffle[T any](s []T, rng *rand.Rand) {
	for i := 1; i < len(s); i++ {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func ogsNodeIDs(phys *phystopo.Topology) []int {
	var ids []int
	for _, n := range phys.Nodes() {
		if n.Type == phystopo.OGS {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// ogsAllReachable builds a transient cost-1 graph from the edges admitted
// so far and checks that every OGS can reach every other OGS.
func ogsAllReachable(admitted map[[2]int]*Edge, ogsIDs []int) bool {
	if len(ogsIDs) <= 1 {
		return true
	}
	g := graph.New(true)
	for _, id := range ogsIDs {
		g.AddNode(id)
	}
	for _, e := range admitted {
		g.AddEdge(e.Master, e.Slave, 1)
	}
	for _, src := range ogsIDs {
		dist, _, err := g.BellmanFord(src)
		if err != nil {
			return false
		}
		for _, dst := range ogsIDs {
			if src == dst {
				continue
			}
			if _, ok := dist[dst]; !ok {
				return false
			}
		}
	}
	return true
}

// distributeResidualMemory repeatedly passes over the admitted edges
// (each pass in a freshly shuffled order), incrementing memory_qubits on
// every edge whose endpoints both still have spare memory, until a full
// pass makes no change (spec §4.2 step 4).
func distributeResidualMemory(admitted map[[2]int]*Edge, cnt *counters, rng *rand.Rand) {
	keys := make([][2]int, 0, len(admitted))
	for k := range admitted {
		keys = append(keys, k)
	}

	for {
		shuffle(keys, rng)
		changed := false
		for _, k := range keys {
			e := admitted[k]
			if cnt.memoryQubits[e.Master] > 0 && cnt.memoryQubits[e.Slave] > 0 {
				e.MemoryQubits++
				cnt.memoryQubits[e.Master]--
				cnt.memoryQubits[e.Slave]--
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// divideCapacity assigns each transmitting node's capacity evenly across
// every logical edge it transmits on (spec §4.2 step 5).
func divideCapacity(admitted map[[2]int]*Edge, phys *phystopo.Topology) {
	perTx := make(map[int][]*Edge)
	for _, e := range admitted {
		perTx[e.Tx] = append(perTx[e.Tx], e)
	}
	for tx, edges := range perTx {
		n, ok := phys.Node(tx)
		if !ok || len(edges) == 0 {
			continue
		}
		share := n.Capacity / float64(len(edges))
		for _, e := range edges {
			e.Capacity = share
		}
	}
}

func build(admitted map[[2]int]*Edge, phys *phystopo.Topology) (*Topology, error) {
	t := &Topology{
		edges:    make(map[[2]int]Edge, len(admitted)),
		byMaster: make(map[int][]Edge),
		g:        graph.New(true),
	}
	for _, n := range phys.Nodes() {
		t.g.AddNode(n.ID)
	}
	for k, e := range admitted {
		t.edges[k] = *e
		t.byMaster[e.Master] = append(t.byMaster[e.Master], *e)
		t.g.AddEdge(e.Master, e.Slave, 1)
	}

	if err := Validate(phys, t); err != nil {
		return nil, err
	}

	t.dist = make(map[int]map[int]float64)
	t.prev = make(map[int]map[int]int)
	for _, n := range phys.Nodes() {
		dist, prev, err := t.g.BellmanFord(n.ID)
		if err != nil {
			return nil, fmt.Errorf("logtopo: shortest paths from %d: %w", n.ID, err)
		}
		t.dist[n.ID] = dist
		t.prev[n.ID] = prev
	}

	return t, nil
}
