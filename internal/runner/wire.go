package runner

import (
	"fmt"

	"github.com/ccicconetti/qnetsim/internal/app"
	"github.com/ccicconetti/qnetsim/internal/config"
	"github.com/ccicconetti/qnetsim/internal/node"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
	"github.com/ccicconetti/qnetsim/internal/rngseed"
)

const streamClientServerBand = 3_000_000

// wireApplications selects the configured source/destination OGS pairs
// and attaches one application instance per endpoint to the already-built
// Nodes (spec §6's applications union). Each pair gets its own port
// number, shared by both endpoints, so a node participating in several
// pairs never collides with itself.
func wireApplications(cfg *config.Config, nodes map[uint32]*node.Node, phys *phystopo.Topology, seed int64, queueSamplePeriodNs uint64) error {
	switch {
	case cfg.Applications.Ping != nil:
		p := cfg.Applications.Ping
		pairs := selectPairs(p.SourceDestPairs, phys, seed)
		for i, pair := range pairs {
			src, dst := uint32(pair[0]), uint32(pair[1])
			port := uint32(i)
			nodes[src].AddApplication(port, app.NewPinger(src, port, dst, port, p.MaxRequests, queueSamplePeriodNs))
			nodes[dst].AddApplication(port, app.NewPonger(dst, port, queueSamplePeriodNs))
		}
		return nil

	case cfg.Applications.ClientServer != nil:
		cs := cfg.Applications.ClientServer
		pairs := selectPairs(cs.SourceDestPairs, phys, seed)
		for i, pair := range pairs {
			src, dst := uint32(pair[0]), uint32(pair[1])
			port := uint32(i)
			clientRng := rngseed.New(seed, streamClientServerBand+uint64(2*i))
			serverRng := rngseed.New(seed, streamClientServerBand+uint64(2*i+1))
			nodes[src].AddApplication(port, app.NewClient(src, port, dst, port, cs.OperationRate, cs.OperationAvgDurClient, clientRng, queueSamplePeriodNs))
			nodes[dst].AddApplication(port, app.NewServer(dst, port, cs.OperationAvgDurServer, serverRng, queueSamplePeriodNs))
		}
		return nil

	default:
		return fmt.Errorf("runner: applications has neither ping nor client_server set")
	}
}
