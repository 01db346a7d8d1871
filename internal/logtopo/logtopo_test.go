package logtopo_test

import (
	"math/rand"
	"testing"

	"github.com/ccicconetti/qnetsim/internal/logtopo"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
	"github.com/stretchr/testify/require"
)

func fidelities() phystopo.FidelityTable {
	return phystopo.FidelityTable{FO: 0.9, FG: 0.8, FOO: 0.85, FOG: 0.75, FGG: 0.6}
}

func grid22(t *testing.T) *phystopo.Topology {
	t.Helper()
	params := phystopo.GridParams{
		OrbitToOrbitDistance:  1000,
		GroundToOrbitDistance: 500,
		NumOrbits:             2,
		OrbitLength:           2,
	}
	sat := phystopo.NodeWeight{MemoryQubits: 8, Detectors: 8, Transmitters: 8, Capacity: 100, DecayRate: 1, SwapProb: 0.9}
	ogs := phystopo.NodeWeight{MemoryQubits: 8, Detectors: 8, Transmitters: 4, Capacity: 50, DecayRate: 1, SwapProb: 0}
	topo, err := phystopo.NewGrid(params, sat, ogs, fidelities())
	require.NoError(t, err)
	return topo
}

func TestConstructGrid22Deterministic(t *testing.T) {
	phys := grid22(t)
	require.Equal(t, 10, phys.NumNodes())

	rng := rand.New(rand.NewSource(42))
	lt, err := logtopo.Construct(phys, rng)
	require.NoError(t, err)
	require.NoError(t, logtopo.Validate(phys, lt))

	maxCost := 0.0
	for _, u := range phys.Nodes() {
		if u.Type != phystopo.OGS {
			continue
		}
		for _, v := range phys.Nodes() {
			if v.Type != phystopo.OGS || u.ID == v.ID {
				continue
			}
			path, ok := lt.Path(u.ID, v.ID)
			require.True(t, ok, "OGS %d must reach OGS %d", u.ID, v.ID)
			cost := float64(len(path) - 1)
			if cost > maxCost {
				maxCost = cost
			}
		}
	}
	require.LessOrEqual(t, maxCost, 4.0)
}

func TestConstructInfeasibleWhenStarved(t *testing.T) {
	sat := phystopo.NodeWeight{MemoryQubits: 0, Detectors: 0, Transmitters: 0, Capacity: 0}
	ogs := phystopo.NodeWeight{MemoryQubits: 0, Detectors: 0, Transmitters: 0, Capacity: 0}
	phys, err := phystopo.NewChain(3, sat, ogs, 10, fidelities())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	_, err = logtopo.Construct(phys, rng)
	require.ErrorIs(t, err, logtopo.ErrInfeasible)
}
