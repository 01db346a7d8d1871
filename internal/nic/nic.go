// Package nic implements the per-peer quantum network interface: a
// fixed-length array of memory cells holding one photon of an EPR pair
// each, with age-based eviction and explicit locking (spec §4.3).
package nic

// CellState is the lifecycle state of one memory cell.
type CellState int

const (
	// Empty holds no photon.
	Empty CellState = iota
	// Valid holds one photon of an EPR pair, eligible for eviction.
	Valid
	// Used holds one photon locked for a pending request; not evictable.
	Used
)

// Cell is one slot of a NIC's memory array.
type Cell struct {
	State       CellState
	Created     uint64 // ns; meaningless when State==Empty
	LocalPairID uint64 // unique within this NIC; meaningless when State==Empty
}

// less orders cells the way spec §4.3 defines age: Empty sorts before any
// non-empty cell; between two non-empty cells, the one created earlier is
// "older".
func less(a, b Cell) bool {
	aEmpty := a.State == Empty
	bEmpty := b.State == Empty
	if aEmpty != bEmpty {
		return aEmpty
	}
	if aEmpty {
		return false
	}
	return a.Created < b.Created
}

// NIC is a fixed-capacity, ordered vector of memory cells for one
// (peer, role) pair on a node.
type NIC struct {
	cells []Cell
}

// New returns a NIC with capacity cells, all Empty.
func New(capacity int) *NIC {
	return &NIC{cells: make([]Cell, capacity)}
}

// Capacity returns the fixed number of cells.
func (n *NIC) Capacity() int { return len(n.cells) }

// AddEPRPair writes (now, pairID) into the first Empty cell; if none is
// Empty, it overwrites the oldest Valid cell; if every cell is Used, it
// does nothing and returns false. Returns true iff a write happened.
func (n *NIC) AddEPRPair(now, pairID uint64) bool {
	for i := range n.cells {
		if n.cells[i].State == Empty {
			n.cells[i] = Cell{State: Valid, Created: now, LocalPairID: pairID}
			return true
		}
	}

	oldest := -1
	for i := range n.cells {
		if n.cells[i].State != Valid {
			continue
		}
		if oldest == -1 || n.cells[i].Created < n.cells[oldest].Created {
			oldest = i
		}
	}
	if oldest == -1 {
		return false
	}
	n.cells[oldest] = Cell{State: Valid, Created: now, LocalPairID: pairID}
	return true
}

// Consume finds the cell holding localPairID (Valid or Used), returns its
// data, and resets it to Empty. Returns (Cell{}, false) if no such cell is
// found, including when it is already Empty — consuming twice is a no-op
// the second time (spec §8 consume idempotence).
func (n *NIC) Consume(localPairID uint64) (Cell, bool) {
	for i := range n.cells {
		if n.cells[i].State == Empty {
			continue
		}
		if n.cells[i].LocalPairID == localPairID {
			data := n.cells[i]
			n.cells[i] = Cell{}
			return data, true
		}
	}
	return Cell{}, false
}

// Used transitions the cell holding localPairID from Valid to Used and
// returns true. Returns false if no cell holds localPairID, or if it is
// already Used (locked), or Empty.
func (n *NIC) Used(localPairID uint64) bool {
	for i := range n.cells {
		if n.cells[i].State != Valid {
			continue
		}
		if n.cells[i].LocalPairID == localPairID {
			n.cells[i].State = Used
			return true
		}
	}
	return false
}

// OldestValid returns the index of the oldest Valid cell, or (-1, false)
// if none is Valid.
func (n *NIC) OldestValid() (int, bool) {
	best := -1
	for i := range n.cells {
		if n.cells[i].State != Valid {
			continue
		}
		if best == -1 || n.cells[i].Created < n.cells[best].Created {
			best = i
		}
	}
	if best == -1 {
		return -1, false
	}
	return best, true
}

// NewestValid returns the local pair ID of the most-recently-created Valid
// cell, or (0, false) if none is Valid.
func (n *NIC) NewestValid() (uint64, bool) {
	best := -1
	for i := range n.cells {
		if n.cells[i].State != Valid {
			continue
		}
		if best == -1 || n.cells[i].Created > n.cells[best].Created {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return n.cells[best].LocalPairID, true
}

// Occupancy returns the fraction of cells that are not Empty, or 0 if the
// NIC has zero capacity.
func (n *NIC) Occupancy() float64 {
	if len(n.cells) == 0 {
		return 0
	}
	used := 0
	for _, c := range n.cells {
		if c.State != Empty {
			used++
		}
	}
	return float64(used) / float64(len(n.cells))
}

// Cells returns a snapshot copy of the cell vector, ordered as stored
// (not sorted by age); useful for tests and invariant checks. less is
// exposed via Less for external sort-stability checks.
func (n *NIC) Cells() []Cell {
	out := make([]Cell, len(n.cells))
	copy(out, n.cells)
	return out
}

// Less reports whether a is older than b per spec §4.3 cell ordering.
func Less(a, b Cell) bool { return less(a, b) }
