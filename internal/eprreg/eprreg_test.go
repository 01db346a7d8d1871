package eprreg_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/eprreg"
	"github.com/stretchr/testify/require"
)

func TestNewEPRPairMonotonicIDs(t *testing.T) {
	r := eprreg.New()
	id1 := r.NewEPRPair(1, 2, 0, 1.0)
	id2 := r.NewEPRPair(1, 2, 1, 1.0)
	require.Less(t, id1, id2)
}

func TestConsumeBothEndsDeletes(t *testing.T) {
	r := eprreg.New()
	id := r.NewEPRPair(1, 2, 0, 0.9)
	require.Equal(t, 1, r.Len())

	_, _, ok := r.Consume(id, 1)
	require.True(t, ok)
	require.Equal(t, 1, r.Len()) // still live: bob hasn't consumed

	_, _, ok = r.Consume(id, 2)
	require.True(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestConsumeUnknownPairOrNode(t *testing.T) {
	r := eprreg.New()
	id := r.NewEPRPair(1, 2, 0, 0.9)
	_, _, ok := r.Consume(id+1, 1)
	require.False(t, ok)
	_, _, ok = r.Consume(id, 3)
	require.False(t, ok)
}

func TestPop(t *testing.T) {
	r := eprreg.New()
	id := r.NewEPRPair(1, 2, 0, 0.9)
	rec, ok := r.Pop(id)
	require.True(t, ok)
	require.Equal(t, uint32(1), rec.AliceID)
	_, ok = r.Pop(id)
	require.False(t, ok)
}
