package event

import "container/heap"

// heapItems is a min-heap of *Event ordered by Time, grounded on the
// teacher's container/heap priority-queue idiom (see lvlath's
// dijkstra/types.go nodePQ) but keyed on simulated time instead of
// shortest-path distance.
type heapItems []*Event

func (h heapItems) Len() int            { return len(h) }
func (h heapItems) Less(i, j int) bool  { return h[i].Time < h[j].Time }
func (h heapItems) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapItems) Push(x interface{}) { *h = append(*h, x.(*Event)) }
func (h *heapItems) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is the simulation's event queue: a min-heap on simulated time plus
// the "last popped time" bookkeeping spec §4.9 requires so that
// zero-delay events emitted by a handler are always stamped no earlier
// than the event currently being processed.
type Queue struct {
	items    heapItems
	lastTime uint64
	started  bool
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.items)
	return q
}

// LastTime returns the timestamp of the most recently popped event (0
// before the first Pop).
func (q *Queue) LastTime() uint64 { return q.lastTime }

// Len returns the number of events currently queued.
func (q *Queue) Len() int { return q.items.Len() }

// PushAt enqueues ev at an absolute simulated time. Used for the initial
// seed events (spec §4.9 step 1), which are not relative to any
// in-progress pop.
func (q *Queue) PushAt(ev Event, at uint64) {
	e := ev
	e.Time = at
	heap.Push(&q.items, &e)
}

// PushAfter enqueues ev at q.LastTime()+delay, guaranteeing causal
// correctness for handlers that emit delay==0 follow-up events (spec
// §4.9: "pushing an event with relative delay Δ≥0 stamps it with
// last_time_ns + Δ").
func (q *Queue) PushAfter(ev Event, delay uint64) {
	q.PushAt(ev, q.lastTime+delay)
}

// Pop removes and returns the earliest-time event. ok is false if the
// queue is empty. Pop asserts (via the returned time) that time only
// moves forward: callers that need the spec §8 "monotone time" invariant
// checked should compare the returned event's Time against LastTime()
// before calling Pop again, which this method does internally by
// updating lastTime only after extracting the minimum.
func (q *Queue) Pop() (Event, bool) {
	if q.items.Len() == 0 {
		return Event{}, false
	}
	ev := heap.Pop(&q.items).(*Event)
	if q.started && ev.Time < q.lastTime {
		// Defensive: spec §8 invariant 1 (monotone time) must never be
		// violated by a correctly behaving scheduler; surface it loudly
		// rather than silently accepting a time-travelling event.
		panic("event: queue popped an event earlier than the last popped time")
	}
	q.lastTime = ev.Time
	q.started = true
	return *ev, true
}
