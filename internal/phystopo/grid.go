package phystopo

import "fmt"

// NodeWeight is the uniform per-type resource profile applied to every SAT
// (or every OGS) node a grid/chain constructor produces (spec §6:
// ConfGridStatic.sat_weight / ogs_weight).
type NodeWeight struct {
	MemoryQubits uint32
	Detectors    uint32
	Transmitters uint32
	Capacity     float64
	DecayRate    float64
	SwapProb     float64
	SwapDuration float64
	CorrDuration float64
}

func (w NodeWeight) spec(id int, t NodeType) NodeSpec {
	return NodeSpec{
		ID: id, Type: t,
		MemoryQubits: w.MemoryQubits,
		Detectors:    w.Detectors,
		Transmitters: w.Transmitters,
		Capacity:     w.Capacity,
		DecayRate:    w.DecayRate,
		SwapProb:     w.SwapProb,
		SwapDuration: w.SwapDuration,
		CorrDuration: w.CorrDuration,
	}
}

// GridParams describes an (N orbits) x (L satellites per orbit)
// constellation, plus the two ground-link/relay-link distances of
// spec §4.1.
type GridParams struct {
	OrbitToOrbitDistance  float64 // meters; applied to every SAT-SAT edge
	GroundToOrbitDistance float64 // meters; applied to every SAT-OGS edge
	NumOrbits             int     // N > 0
	OrbitLength           int     // L > 0
}

func (p GridParams) Validate() error {
	if p.NumOrbits <= 0 {
		return fmt.Errorf("phystopo: num_orbits=%d must be > 0", p.NumOrbits)
	}
	if p.OrbitLength <= 0 {
		return fmt.Errorf("phystopo: orbit_length=%d must be > 0", p.OrbitLength)
	}
	if p.OrbitToOrbitDistance < 0 || p.GroundToOrbitDistance < 0 {
		return fmt.Errorf("phystopo: grid distances must be non-negative")
	}
	return nil
}

// satID returns the node ID of the satellite at orbit o (0-indexed) and
// position p within that orbit (0-indexed, wraps mod OrbitLength).
func satID(p GridParams, o, pos int) int {
	return o*p.OrbitLength + pos
}

// NewGrid builds the physical topology described by spec §4.1: N*L SATs
// arranged as an N-row x L-column cylinder (wraps across columns, i.e.
// "the orbit direction"; open across rows, "top/bottom open"), plus
// (N+1)*L OGS nodes, one band of L stations sitting between every pair of
// consecutive orbit rows (and one band below row 0, one above row N-1),
// each OGS connected to its 4 nearest SATs (2 at the open top/bottom
// edge), accounting for the column wrap.
func NewGrid(p GridParams, satWeight, ogsWeight NodeWeight, fidelities FidelityTable) (*Topology, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := fidelities.Validate(); err != nil {
		return nil, err
	}

	numSats := p.NumOrbits * p.OrbitLength
	var nodes []NodeSpec
	for id := 0; id < numSats; id++ {
		nodes = append(nodes, satWeight.spec(id, SAT))
	}

	numOGSBands := p.NumOrbits + 1
	ogsBase := numSats
	for band := 0; band < numOGSBands; band++ {
		for pos := 0; pos < p.OrbitLength; pos++ {
			id := ogsBase + band*p.OrbitLength + pos
			nodes = append(nodes, ogsWeight.spec(id, OGS))
		}
	}

	var edges []EdgeSpec

	// SAT-SAT edges: ring within each orbit (wraps at L), plus links
	// between adjacent orbits (no wrap across orbit index).
	for o := 0; o < p.NumOrbits; o++ {
		for pos := 0; pos < p.OrbitLength; pos++ {
			u := satID(p, o, pos)
			// With L==2 the wrap link back to the first SAT is the same
			// pair as the forward link, so it is added only once.
			if p.OrbitLength > 2 || (p.OrbitLength == 2 && pos == 0) {
				v := satID(p, o, (pos+1)%p.OrbitLength)
				if u != v {
					edges = append(edges, EdgeSpec{u, v, p.OrbitToOrbitDistance})
				}
			}
			if o+1 < p.NumOrbits {
				v := satID(p, o+1, pos)
				edges = append(edges, EdgeSpec{u, v, p.OrbitToOrbitDistance})
			}
		}
	}

	// OGS-SAT edges: band `band` sits between orbit band-1 and orbit band.
	// Interior bands connect to 4 SATs (2 columns on each adjacent orbit);
	// the open top (band==0) and bottom (band==numOGSBands-1) bands connect
	// to only 2 (the single adjacent orbit).
	ogsID := func(band, pos int) int { return ogsBase + band*p.OrbitLength + pos }
	for band := 0; band < numOGSBands; band++ {
		for pos := 0; pos < p.OrbitLength; pos++ {
			g := ogsID(band, pos)
			cols := []int{pos}
			if p.OrbitLength > 1 {
				cols = append(cols, (pos+1)%p.OrbitLength)
			}
			if band-1 >= 0 {
				for _, c := range cols {
					edges = append(edges, EdgeSpec{g, satID(p, band-1, c), p.GroundToOrbitDistance})
				}
			}
			if band < p.NumOrbits {
				for _, c := range cols {
					edges = append(edges, EdgeSpec{g, satID(p, band, c), p.GroundToOrbitDistance})
				}
			}
		}
	}

	return New(nodes, edges, fidelities)
}

// NewChain builds a simple alternating SAT/OGS line of n nodes joined by
// n-1 edges of distance edgeDistance, starting with an OGS: even IDs are
// OGS and odd IDs are SAT, so the line ends with an OGS only when n is odd.
// This constructor is not described in spec §4.1 but is present in the
// original implementation's physical_topology.rs as a minimal repro
// topology for unit tests and small experiments.
func NewChain(n int, satWeight, ogsWeight NodeWeight, edgeDistance float64, fidelities FidelityTable) (*Topology, error) {
	if n < 2 {
		return nil, fmt.Errorf("phystopo: chain requires n>=2, got %d", n)
	}
	if err := fidelities.Validate(); err != nil {
		return nil, err
	}
	var nodes []NodeSpec
	for id := 0; id < n; id++ {
		t := OGS
		if id%2 == 1 {
			t = SAT
		}
		w := ogsWeight
		if t == SAT {
			w = satWeight
		}
		nodes = append(nodes, w.spec(id, t))
	}
	edges := make([]EdgeSpec, 0, n-1)
	for id := 0; id < n-1; id++ {
		edges = append(edges, EdgeSpec{id, id + 1, edgeDistance})
	}
	return New(nodes, edges, fidelities)
}
