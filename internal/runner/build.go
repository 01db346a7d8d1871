// Package runner builds one replication's Network/Simulation from a
// parsed config.Config and runs a batch of replications across a bounded
// worker pool (spec §5's concurrency boundary: replications share no
// state, only their final Output is merged).
package runner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ccicconetti/qnetsim/internal/config"
	"github.com/ccicconetti/qnetsim/internal/eprgen"
	"github.com/ccicconetti/qnetsim/internal/eprreg"
	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/logtopo"
	"github.com/ccicconetti/qnetsim/internal/network"
	"github.com/ccicconetti/qnetsim/internal/node"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
	"github.com/ccicconetti/qnetsim/internal/rngseed"
	"github.com/ccicconetti/qnetsim/internal/sim"
	"github.com/ccicconetti/qnetsim/internal/units"
)

// RNG sub-stream identifiers, per spec §5's "simulation_seed + offset"
// discipline. Edge generators and per-node swap RNGs get their own
// contiguous bands so two replications never share a stream regardless
// of topology size.
const (
	streamLogicalTopology = 0
	streamPairSelection   = 1
	streamNodeBand        = 1_000_000
	streamEdgeBand        = 2_000_000
)

func toPhysWeight(w config.NodeWeight) phystopo.NodeWeight {
	return phystopo.NodeWeight{
		MemoryQubits: w.MemoryQubits,
		Detectors:    w.Detectors,
		Transmitters: w.Transmitters,
		Capacity:     w.Capacity,
		DecayRate:    w.DecayRate,
		SwapProb:     w.SwapProb,
		SwapDuration: w.SwapDuration,
		CorrDuration: w.CorrDuration,
	}
}

func toFidelityTable(f config.Fidelities) phystopo.FidelityTable {
	return phystopo.FidelityTable{FO: f.FO, FG: f.FG, FOO: f.FOO, FOG: f.FOG, FGG: f.FGG}
}

func buildPhysicalTopology(cfg *config.Config) (*phystopo.Topology, error) {
	pt := cfg.PhysicalTopology
	switch {
	case pt.Grid != nil:
		g := pt.Grid
		return phystopo.NewGrid(
			phystopo.GridParams{
				OrbitToOrbitDistance:  g.GridParams.OrbitToOrbitDistance,
				GroundToOrbitDistance: g.GridParams.GroundToOrbitDistance,
				NumOrbits:             g.GridParams.NumOrbits,
				OrbitLength:           g.GridParams.OrbitLength,
			},
			toPhysWeight(g.SatWeight), toPhysWeight(g.OgsWeight), toFidelityTable(g.Fidelities),
		)
	case pt.Chain != nil:
		c := pt.Chain
		return phystopo.NewChain(c.NumNodes, toPhysWeight(c.SatWeight), toPhysWeight(c.OgsWeight), c.EdgeDistance, toFidelityTable(c.Fidelities))
	default:
		return nil, fmt.Errorf("runner: physical_topology has neither grid nor chain set")
	}
}

// selectPairs resolves source_dest_pairs into a concrete, deterministic
// list of ordered (src, dst) OGS pairs (spec §6).
func selectPairs(sdp config.SourceDestPairs, phys *phystopo.Topology, seed int64) [][2]int {
	var ogs []int
	for _, n := range phys.Nodes() {
		if n.Type == phystopo.OGS {
			ogs = append(ogs, n.ID)
		}
	}

	if sdp.AllToAll {
		var pairs [][2]int
		for _, s := range ogs {
			for _, d := range ogs {
				if s != d {
					pairs = append(pairs, [2]int{s, d})
				}
			}
		}
		return pairs
	}

	n := *sdp.Random
	rng := rngseed.New(seed, streamPairSelection)
	var pairs [][2]int
	for len(pairs) < n && len(ogs) >= 2 {
		s := ogs[rng.Intn(len(ogs))]
		d := ogs[rng.Intn(len(ogs))]
		if s == d {
			continue
		}
		pairs = append(pairs, [2]int{s, d})
	}
	return pairs
}

// BuildTopologies constructs just the physical and logical topologies for
// seed, without wiring any Nodes/Network/Simulation — enough for
// --save-to-dot. logTopo is nil when construction reports ErrInfeasible.
func BuildTopologies(cfg *config.Config, seed int64) (phys *phystopo.Topology, logTopo *logtopo.Topology, err error) {
	phys, err = buildPhysicalTopology(cfg)
	if err != nil {
		return nil, nil, err
	}
	logTopoRng := rngseed.New(seed, streamLogicalTopology)
	logTopo, err = logtopo.Construct(phys, logTopoRng)
	if err != nil {
		if errors.Is(err, logtopo.ErrInfeasible) {
			return phys, nil, nil
		}
		return nil, nil, fmt.Errorf("runner: logical topology construction: %w", err)
	}
	if err := logtopo.Validate(phys, logTopo); err != nil {
		return nil, nil, fmt.Errorf("runner: logical topology validation: %w", err)
	}
	return phys, logTopo, nil
}

// Build assembles a ready-to-run Simulation for one replication seed. It
// returns logicalTopologyFound=false (with an otherwise-empty, harmless
// Simulation) when logtopo.Construct reports ErrInfeasible, per spec §7's
// recoverable-error policy: the replication still runs and reports
// logical_topology_found=0 rather than aborting the batch.
func Build(cfg *config.Config, seed int64, log *logrus.Entry) (*sim.Simulation, error) {
	durationNs := units.ToNanoseconds(cfg.Duration)
	warmupNs := units.ToNanoseconds(cfg.WarmupPeriod)

	phys, logTopo, err := BuildTopologies(cfg, seed)
	if err != nil {
		return nil, err
	}
	if logTopo == nil {
		net := network.New(map[uint32]*node.Node{}, map[[2]uint32]*eprgen.Generator{}, eprreg.New(), phys)
		return sim.New(net, durationNs, warmupNs, false, log), nil
	}

	queueSamplePeriodNs := warmupNs / 10
	if queueSamplePeriodNs == 0 {
		queueSamplePeriodNs = durationNs / 10
	}

	nodes := make(map[uint32]*node.Node, phys.NumNodes())
	for _, spec := range phys.Nodes() {
		rng := rngseed.New(seed, streamNodeBand+uint64(spec.ID))
		swapDurationNs := units.ToNanoseconds(spec.SwapDuration)
		corrDurationNs := units.ToNanoseconds(spec.CorrDuration)
		nodes[uint32(spec.ID)] = node.New(uint32(spec.ID), logTopo, spec.SwapProb, swapDurationNs, corrDurationNs, rng)
	}

	edges := logTopo.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Master != edges[j].Master {
			return edges[i].Master < edges[j].Master
		}
		return edges[i].Slave < edges[j].Slave
	})

	generators := make(map[[2]uint32]*eprgen.Generator)
	for i, e := range edges {
		master, slave := uint32(e.Master), uint32(e.Slave)
		nodes[master].AddNIC(slave, event.Master, int(e.MemoryQubits))
		nodes[slave].AddNIC(master, event.Slave, int(e.MemoryQubits))

		genSeed := rngseed.Derive(seed, streamEdgeBand+uint64(i))
		generators[[2]uint32{master, slave}] = eprgen.New(uint32(e.Tx), master, slave, e.Capacity, genSeed)
	}

	register := eprreg.New()
	net := network.New(nodes, generators, register, phys)

	if err := wireApplications(cfg, nodes, phys, seed, queueSamplePeriodNs); err != nil {
		return nil, err
	}

	return sim.New(net, durationNs, warmupNs, true, log), nil
}
