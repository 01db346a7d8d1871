package logtopo

import (
	"errors"
	"fmt"

	"github.com/ccicconetti/qnetsim/internal/phystopo"
)

// capacityEpsilon tolerates floating-point rounding when checking a node's
// total outgoing capacity against its physical budget (spec §4.2
// validator: "Σ capacity ... ≤ capacity(u) + ε").
const capacityEpsilon = 1e-9

// ErrValidation wraps every conjunct failure of the spec §4.2 validator.
var ErrValidation = errors.New("logtopo: validator failed")

// Validate checks every conjunct of spec §4.2's validator against an
// already-built Topology: OGS-to-OGS reachability, at most one edge per
// ordered pair (guaranteed by construction, re-checked here), every edge's
// memory_qubits>=1 and capacity>0, and the four per-node resource sums
// (memory qubits, detectors, transmitters, capacity).
func Validate(phys *phystopo.Topology, t *Topology) error {
	ogsIDs := ogsNodeIDs(phys)
	admitted := make(map[[2]int]*Edge, len(t.edges))
	for k, e := range t.edges {
		ec := e
		admitted[k] = &ec
	}
	if !ogsAllReachable(admitted, ogsIDs) {
		return fmt.Errorf("%w: OGS nodes are not all mutually reachable", ErrValidation)
	}

	seen := make(map[[2]int]bool)
	memUsed := make(map[int]uint32)
	detUsed := make(map[int]uint32)
	txUsed := make(map[int]uint32)
	capUsed := make(map[int]float64)

	for k, e := range t.edges {
		if seen[k] {
			return fmt.Errorf("%w: duplicate edge %d->%d", ErrValidation, e.Master, e.Slave)
		}
		seen[k] = true

		if e.MemoryQubits < 1 {
			return fmt.Errorf("%w: edge %d->%d has memory_qubits=%d", ErrValidation, e.Master, e.Slave, e.MemoryQubits)
		}
		if e.Capacity <= 0 {
			return fmt.Errorf("%w: edge %d->%d has capacity=%f", ErrValidation, e.Master, e.Slave, e.Capacity)
		}

		memUsed[e.Master] += e.MemoryQubits
		memUsed[e.Slave] += e.MemoryQubits
		detUsed[e.Master]++
		detUsed[e.Slave]++
		txUsed[e.Tx]++
		capUsed[e.Tx] += e.Capacity
	}

	for _, n := range phys.Nodes() {
		if memUsed[n.ID] > n.MemoryQubits {
			return fmt.Errorf("%w: node %d over-allocates memory_qubits (%d > %d)", ErrValidation, n.ID, memUsed[n.ID], n.MemoryQubits)
		}
		if detUsed[n.ID] > n.Detectors {
			return fmt.Errorf("%w: node %d over-allocates detectors (%d > %d)", ErrValidation, n.ID, detUsed[n.ID], n.Detectors)
		}
		if txUsed[n.ID] > n.Transmitters {
			return fmt.Errorf("%w: node %d over-allocates transmitters (%d > %d)", ErrValidation, n.ID, txUsed[n.ID], n.Transmitters)
		}
		if capUsed[n.ID] > n.Capacity+capacityEpsilon {
			return fmt.Errorf("%w: node %d over-allocates capacity (%f > %f)", ErrValidation, n.ID, capUsed[n.ID], n.Capacity)
		}
	}

	return nil
}
