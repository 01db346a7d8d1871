package eprgen_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/eprgen"
	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/stretchr/testify/require"
)

func TestInitialFiresAtZero(t *testing.T) {
	g := eprgen.New(1, 2, 3, 10.0, 42)
	ev := g.Initial()
	require.Equal(t, uint64(0), ev.Time)
	require.Equal(t, event.NodeEvent, ev.Kind)
	data := ev.Data.(event.EprGenerated)
	require.Equal(t, uint32(1), data.Tx)
	require.Equal(t, uint32(2), data.Master)
	require.Equal(t, uint32(3), data.Slave)
}

func TestFireIsDeterministicPerSeed(t *testing.T) {
	g1 := eprgen.New(1, 2, 3, 5.0, 7)
	g2 := eprgen.New(1, 2, 3, 5.0, 7)
	_, d1 := g1.Fire()
	_, d2 := g2.Fire()
	require.Equal(t, d1, d2)
}

func TestFireProducesPositiveDelays(t *testing.T) {
	g := eprgen.New(1, 2, 3, 100.0, 1)
	for i := 0; i < 50; i++ {
		data, delay := g.Fire()
		require.Equal(t, uint32(2), data.Master)
		require.Greater(t, delay, uint64(0))
	}
}
