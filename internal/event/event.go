// Package event defines the simulator's event vocabulary and the
// time-ordered priority queue that drives the main loop (spec §3, §4.9).
package event

// Kind discriminates the top-level event categories the main loop
// switches on (spec §3).
type Kind int

const (
	WarmupPeriodEnd Kind = iota
	ExperimentEnd
	Progress
	AppEvent
	OsEvent
	NodeEvent
)

func (k Kind) String() string {
	switch k {
	case WarmupPeriodEnd:
		return "WarmupPeriodEnd"
	case ExperimentEnd:
		return "ExperimentEnd"
	case Progress:
		return "Progress"
	case AppEvent:
		return "AppEvent"
	case OsEvent:
		return "OsEvent"
	case NodeEvent:
		return "NodeEvent"
	default:
		return "Unknown"
	}
}

// Transfer models classical-channel propagation delay: an event carrying
// a non-nil Transfer that is not yet Done is re-enqueued by Network after
// a distance/c delay with Done set, rather than dispatched immediately
// (spec §4.6, §9 "Transfer modeling").
type Transfer struct {
	Src  uint32
	Dst  uint32
	Done bool
}

// Event is one entry in the simulation's event queue: a simulated
// timestamp, a top-level Kind, an opaque Data payload (one of the structs
// in payloads.go matching Kind), and an optional Transfer.
//
// Delay is the relative, same-node scheduling delay a handler wants
// before this event is processed (e.g. a BSM or Pauli-correction
// duration); it is distinct from Transfer, which models cross-node
// classical-channel latency and is applied by Network rather than by the
// emitting handler. An event may carry both: it is first enqueued after
// Delay, and when it is popped Network adds the transfer latency.
type Event struct {
	Time        uint64
	Kind        Kind
	ProgressPct int // meaningful only when Kind==Progress
	Data        any // meaningful only when Kind is App/Os/NodeEvent
	Transfer    *Transfer
	Delay       uint64
}
