// Package eprreg implements the process-wide EPR pair register: the
// mapping from global pair ID to the pair's two endpoints and its
// fidelity as of the last update (spec §4.4).
//
// A Register is owned by exactly one Network (spec §3 ownership rules);
// it is not a process-wide singleton, despite the package name coming
// from spec's "process-wide" phrasing — each replication constructs and
// owns its own Register.
package eprreg

// Record is the stored state of one live EPR pair.
type Record struct {
	PairID            uint64
	AliceID           uint32
	BobID             uint32
	UpdatedNs         uint64
	FidelityAtUpdated float64
	aliceConsumed     bool
	bobConsumed       bool
}

// Register assigns monotonically increasing pair IDs and tracks live
// pairs until both endpoints have consumed them.
type Register struct {
	nextID  uint64
	records map[uint64]*Record
}

// New returns an empty Register.
func New() *Register {
	return &Register{records: make(map[uint64]*Record)}
}

// NewEPRPair allocates a new pair ID and registers alice/bob's creation
// fidelity, returning the assigned ID.
func (r *Register) NewEPRPair(alice, bob uint32, now uint64, fidelity float64) uint64 {
	id := r.nextID
	r.nextID++
	r.records[id] = &Record{
		PairID: id, AliceID: alice, BobID: bob,
		UpdatedNs: now, FidelityAtUpdated: fidelity,
	}
	return id
}

// Pop removes and returns the record for pairID unconditionally, used by
// callers that already know both endpoints are done with the pair.
func (r *Register) Pop(pairID uint64) (Record, bool) {
	rec, ok := r.records[pairID]
	if !ok {
		return Record{}, false
	}
	delete(r.records, pairID)
	return *rec, true
}

// Get returns the current record for pairID without consuming it.
func (r *Register) Get(pairID uint64) (Record, bool) {
	rec, ok := r.records[pairID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Consume marks nodeID's endpoint of pairID as consumed and returns the
// fidelity bookkeeping needed to compute decay at the caller (updatedNs,
// fidelityAtUpdated). The pair is deleted from the register once both
// endpoints have consumed it. Returns (0, 0, false) if pairID is unknown
// or nodeID is not one of its endpoints.
func (r *Register) Consume(pairID uint64, nodeID uint32) (updatedNs uint64, fidelityAtUpdated float64, ok bool) {
	rec, found := r.records[pairID]
	if !found {
		return 0, 0, false
	}
	switch nodeID {
	case rec.AliceID:
		rec.aliceConsumed = true
	case rec.BobID:
		rec.bobConsumed = true
	default:
		return 0, 0, false
	}
	updatedNs, fidelityAtUpdated = rec.UpdatedNs, rec.FidelityAtUpdated
	if rec.aliceConsumed && rec.bobConsumed {
		delete(r.records, pairID)
	}
	return updatedNs, fidelityAtUpdated, true
}

// Len returns the number of live pairs, for diagnostics and tests.
func (r *Register) Len() int { return len(r.records) }
