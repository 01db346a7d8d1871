package event_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/stretchr/testify/require"
)

func TestQueueOrdersByTime(t *testing.T) {
	q := event.NewQueue()
	q.PushAt(event.Event{Kind: event.Progress, ProgressPct: 3}, 300)
	q.PushAt(event.Event{Kind: event.Progress, ProgressPct: 1}, 100)
	q.PushAt(event.Event{Kind: event.Progress, ProgressPct: 2}, 200)

	var order []int
	for q.Len() > 0 {
		ev, ok := q.Pop()
		require.True(t, ok)
		order = append(order, ev.ProgressPct)
	}
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestQueuePushAfterUsesLastPoppedTime(t *testing.T) {
	q := event.NewQueue()
	q.PushAt(event.Event{Kind: event.Progress}, 500)
	ev, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(500), ev.Time)
	require.Equal(t, uint64(500), q.LastTime())

	q.PushAfter(event.Event{Kind: event.Progress}, 0)
	ev, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(500), ev.Time)
}

func TestQueueEmptyPop(t *testing.T) {
	q := event.NewQueue()
	_, ok := q.Pop()
	require.False(t, ok)
}
