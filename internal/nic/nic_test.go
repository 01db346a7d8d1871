package nic_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/nic"
	"github.com/stretchr/testify/require"
)

func TestOverwriteOldestValid(t *testing.T) {
	n := nic.New(2)
	require.True(t, n.AddEPRPair(100, 1))
	require.True(t, n.AddEPRPair(200, 2))
	require.True(t, n.AddEPRPair(300, 3))

	ids := map[uint64]bool{}
	for _, c := range n.Cells() {
		if c.State != nic.Empty {
			ids[c.LocalPairID] = true
		}
	}
	require.Equal(t, map[uint64]bool{2: true, 3: true}, ids)
}

func TestUsedCellNotOverwritten(t *testing.T) {
	n := nic.New(1)
	require.True(t, n.AddEPRPair(100, 1))
	require.True(t, n.Used(1))

	require.False(t, n.AddEPRPair(200, 2))
	cells := n.Cells()
	require.Equal(t, nic.Used, cells[0].State)
	require.Equal(t, uint64(1), cells[0].LocalPairID)
}

func TestConsumeIdempotence(t *testing.T) {
	n := nic.New(1)
	_, ok := n.Consume(1)
	require.False(t, ok)

	n.AddEPRPair(100, 1)
	n.Used(1)
	data, ok := n.Consume(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), data.LocalPairID)

	_, ok = n.Consume(1)
	require.False(t, ok)
}

func TestUsedTransitionsOnlyValid(t *testing.T) {
	n := nic.New(1)
	require.False(t, n.Used(1)) // empty cell: nothing to lock
	n.AddEPRPair(1, 1)
	require.True(t, n.Used(1))
	require.False(t, n.Used(1)) // already Used
}

func TestOccupancyAndOrdering(t *testing.T) {
	n := nic.New(0)
	require.Equal(t, float64(0), n.Occupancy())

	n2 := nic.New(4)
	n2.AddEPRPair(10, 1)
	n2.AddEPRPair(20, 2)
	require.Equal(t, float64(2)/float64(4), n2.Occupancy())

	require.True(t, nic.Less(nic.Cell{State: nic.Empty}, nic.Cell{State: nic.Valid, Created: 0}))
	require.True(t, nic.Less(nic.Cell{State: nic.Valid, Created: 1}, nic.Cell{State: nic.Valid, Created: 2}))
}

func TestOldestAndNewestValid(t *testing.T) {
	n := nic.New(3)
	n.AddEPRPair(300, 3)
	n.AddEPRPair(100, 1)
	n.AddEPRPair(200, 2)

	idx, ok := n.OldestValid()
	require.True(t, ok)
	require.Equal(t, uint64(1), n.Cells()[idx].LocalPairID)

	newest, ok := n.NewestValid()
	require.True(t, ok)
	require.Equal(t, uint64(3), newest)
}
