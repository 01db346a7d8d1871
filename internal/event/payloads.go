package event

// FiveTuple is a request's unique identity (spec §3): equality defines
// identity, and RequestID is assigned by the source application as a
// monotonically increasing counter.
type FiveTuple struct {
	SourceNode uint32
	SourcePort uint32
	TargetNode uint32
	TargetPort uint32
	RequestID  uint64
}

// MemoryCellID identifies one NIC cell: which peer's NIC, which role
// (Master/Slave), and which local pair ID within it.
type MemoryCellID struct {
	Peer        uint32
	Role        Role
	LocalPairID uint64
}

// Role is which side of a logical edge a NIC belongs to.
type Role int

const (
	Master Role = iota
	Slave
)

// --- OsEvent payloads: Application -> Node -------------------------------

// EprRequestApp asks the owning Node to establish end-to-end entanglement
// for Epr, originating at this node (spec §4.7).
type EprRequestApp struct {
	Epr FiveTuple
}

// --- NodeEvent payloads: Network <-> Node internal protocol -------------

// EprGenerated is the tick fired by an EprGenerator on its logical edge
// (spec §4.5); Network reacts by registering a new pair and notifying both
// endpoints.
type EprGenerated struct {
	Tx, Master, Slave uint32
}

// EprNotified tells Node that a new EPR pair photon is available in the
// NIC for (Peer, Role) (spec §4.6).
type EprNotified struct {
	Node   uint32
	Peer   uint32
	Role   Role
	PairID uint64
}

// EprFidelity asks Network to release a NIC cell and compute/record the
// decayed fidelity of the pair it held (spec §4.6), emitted by
// applications after a local measurement.
type EprFidelity struct {
	AppNode     uint32
	Port        uint32
	ConsumeNode uint32
	Neighbor    uint32
	Role        Role
	LocalPairID uint64
}

// EsRequest carries an entanglement-swap request one hop further along
// Path (spec §4.7).
type EsRequest struct {
	Epr         FiveTuple
	PrevHop     uint32
	NextHop     uint32
	Path        []uint32
	LocalPairID uint64
}

// EsFailure propagates a BSM or lookup failure back toward the source
// (spec §4.7).
type EsFailure struct {
	Epr     FiveTuple
	PrevHop uint32
	NextHop uint32
	Path    []uint32
}

// EsLocalComplete fires at the final target after the correction delay,
// triggering delivery to the local application and notification of the
// origin (spec §4.7).
type EsLocalComplete struct {
	Epr         FiveTuple
	Path        []uint32
	Neighbor    uint32
	LocalPairID uint64
}

// EsRemoteComplete notifies the origin node that the swap chain completed
// successfully end to end (spec §4.7).
type EsRemoteComplete struct {
	Epr FiveTuple
}

// EsRemoteFailed notifies the origin node that the swap chain failed and
// its pending request should be released and reissued (spec §4.7).
type EsRemoteFailed struct {
	Epr FiveTuple
}

// --- AppEvent payloads: Node -> Application -------------------------------

// EprResponse is delivered to the requesting (IsSource==true) or serving
// (IsSource==false) application once entanglement for Epr is established.
// Node/Port address the receiving application directly (the source's for
// IsSource==true, the target's otherwise), sparing Network from having to
// infer routing from Epr's own source/target fields.
type EprResponse struct {
	Epr        FiveTuple
	IsSource   bool
	MemoryCell *MemoryCellID
	Node       uint32
	Port       uint32
}

// LocalComplete and RemoteComplete are application-internal timer fires
// used by Client/Server to track the two-sided completion of a request
// (spec §4.8); they are app-local and never cross a Node boundary, but are
// represented as ordinary events so they flow through the same queue. Node
// and Port address the application that scheduled the timer, since the
// event carries no other routing information.
type LocalComplete struct {
	Epr  FiveTuple
	Node uint32
	Port uint32
}

type RemoteComplete struct {
	Epr  FiveTuple
	Node uint32
	Port uint32
}

// SelfTick is a self-scheduled wakeup used by Client to emit its next
// request, and by any application to emit a periodic queue-length
// sample (spec §4.8 "periodic queue-length series"). Node and Port address
// the application that scheduled it.
type SelfTick struct {
	Node   uint32
	Port   uint32
	Reason TickReason
}

// TickReason distinguishes the two periodic self-wakeups an application
// may schedule.
type TickReason int

const (
	TickNextRequest TickReason = iota
	TickQueueSample
)
