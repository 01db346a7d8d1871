package phystopo_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/phystopo"
	"github.com/stretchr/testify/require"
)

func fidelities() phystopo.FidelityTable {
	return phystopo.FidelityTable{FO: 0.9, FG: 0.8, FOO: 0.85, FOG: 0.75, FGG: 0.6}
}

func TestNewGridNodeCounts(t *testing.T) {
	params := phystopo.GridParams{
		OrbitToOrbitDistance:  1000,
		GroundToOrbitDistance: 500,
		NumOrbits:             2,
		OrbitLength:           2,
	}
	sat := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 4, Capacity: 10, DecayRate: 1, SwapProb: 0.5}
	ogs := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 2, Capacity: 5, DecayRate: 1, SwapProb: 0}

	topo, err := phystopo.NewGrid(params, sat, ogs, fidelities())
	require.NoError(t, err)
	// 2*2 = 4 SATs, (2+1)*2 = 6 OGS => 10 nodes total.
	require.Equal(t, 10, topo.NumNodes())
}

func TestGridDistanceAndFidelity(t *testing.T) {
	params := phystopo.GridParams{
		OrbitToOrbitDistance:  100,
		GroundToOrbitDistance: 50,
		NumOrbits:             1,
		OrbitLength:           2,
	}
	sat := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 4, Capacity: 10, DecayRate: 1, SwapProb: 0.5}
	ogs := phystopo.NodeWeight{MemoryQubits: 4, Detectors: 4, Transmitters: 2, Capacity: 5, DecayRate: 1, SwapProb: 0}

	topo, err := phystopo.NewGrid(params, sat, ogs, fidelities())
	require.NoError(t, err)

	// Node 0,1 are SATs; node 2..5 are OGS (2 bands of 2).
	d, ok := topo.Distance(0, 1)
	require.True(t, ok)
	require.Equal(t, float64(100), d)

	f, err := topo.Fidelity(0, 0, 2)
	require.NoError(t, err)
	require.True(t, f == fidelities().FG)
}

func TestChainTopology(t *testing.T) {
	topo, err := phystopo.NewChain(3, phystopo.NodeWeight{MemoryQubits: 1, Detectors: 1, Transmitters: 1, Capacity: 1, SwapProb: 1},
		phystopo.NodeWeight{MemoryQubits: 1, Detectors: 1, Transmitters: 1, Capacity: 1}, 10, fidelities())
	require.NoError(t, err)
	require.Equal(t, 3, topo.NumNodes())
	d, ok := topo.Distance(0, 2)
	require.True(t, ok)
	require.Equal(t, float64(20), d)
}

func TestNodeSpecValidate(t *testing.T) {
	bad := phystopo.NodeSpec{ID: 0, Type: phystopo.SAT, MemoryQubits: 1, Detectors: 0}
	require.ErrorIs(t, bad.Validate(), phystopo.ErrInvalidNode)
}
