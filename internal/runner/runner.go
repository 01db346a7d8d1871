package runner

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ccicconetti/qnetsim/internal/config"
	"github.com/ccicconetti/qnetsim/internal/sim"
)

// Replication is one completed (or failed) replication's result.
type Replication struct {
	Seed   int64
	Output sim.Output
	Err    error
}

// Run executes replications for every seed in [seedInit, seedEnd) across
// a worker pool bounded by concurrency (spec §5's concurrency boundary:
// replications are independent, only their final Output is merged).
// A replication that panics — a structural/ProtocolViolation assertion
// failure somewhere in the event pipeline (spec §7) — is caught and
// reported as an error for that seed alone; it never aborts the batch.
func Run(cfg *config.Config, seedInit, seedEnd int64, concurrency int, log *logrus.Entry) []Replication {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	seeds := make(chan int64)
	results := make([]Replication, seedEnd-seedInit)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				results[seed-seedInit] = runOne(cfg, seed, log)
			}
		}()
	}

	for seed := seedInit; seed < seedEnd; seed++ {
		seeds <- seed
	}
	close(seeds)
	wg.Wait()

	return results
}

func runOne(cfg *config.Config, seed int64, log *logrus.Entry) (result Replication) {
	result.Seed = seed
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("runner: replication seed=%d panicked: %v", seed, r)
			log.WithField("seed", seed).Errorf("replication failed: %v", r)
		}
	}()

	entry := log.WithField("seed", seed)
	s, err := Build(cfg, seed, entry)
	if err != nil {
		result.Err = fmt.Errorf("runner: replication seed=%d: %w", seed, err)
		return result
	}
	result.Output = s.Run()
	return result
}
