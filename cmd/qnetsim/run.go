package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ccicconetti/qnetsim/internal/config"
	"github.com/ccicconetti/qnetsim/internal/output"
	"github.com/ccicconetti/qnetsim/internal/runner"
)

func run(f *flags) error {
	if f.template {
		return config.WriteTemplate(f.confPath)
	}

	cfg, err := config.Load(f.confPath)
	if err != nil {
		return err
	}

	additionalHeader := splitNonEmpty(f.additionalHeader)
	additionalValues := splitNonEmpty(f.additionalFields)
	if len(additionalHeader) != len(additionalValues) {
		return config.ErrConfigInvalid{Reason: fmt.Sprintf(
			"--additional-fields has %d columns but --additional-header has %d", len(additionalValues), len(additionalHeader))}
	}

	log := newLogger(f.verbose)

	if f.saveToDot {
		if f.seedEnd-f.seedInit != 1 {
			return config.ErrConfigInvalid{Reason: "--save-to-dot requires a single seed (seed-end - seed-init == 1)"}
		}
		return dumpDot(cfg, int64(f.seedInit), f.outputPath)
	}

	if f.seedEnd <= f.seedInit {
		return config.ErrConfigInvalid{Reason: "--seed-end must be greater than --seed-init"}
	}

	configHeader, configValues := flattenConfig(cfg, f.saveConfig)

	prefixHeader := append([]string{"seed"}, additionalHeader...)
	prefixHeader = append(prefixHeader, configHeader...)

	if !f.appendOutput {
		if err := output.ClearDirectory(f.outputPath); err != nil {
			return err
		}
	}
	writer := output.New(f.outputPath, prefixHeader)

	results := runner.Run(cfg, int64(f.seedInit), int64(f.seedEnd), f.concurrency, log)

	var failures int
	for _, r := range results {
		if r.Err != nil {
			failures++
			log.WithField("seed", r.Seed).Errorf("replication failed: %v", r.Err)
			continue
		}
		prefixValues := append([]string{strconv.FormatInt(r.Seed, 10)}, additionalValues...)
		prefixValues = append(prefixValues, configValues...)
		if err := writer.WriteReplication(prefixValues, r.Output.Metrics, cfg.SeriesIgnore); err != nil {
			return fmt.Errorf("writing results for seed %d: %w", r.Seed, err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d replications failed", failures, len(results))
	}
	return nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// flattenConfig reduces a Config to the handful of scalar columns spec
// §6's "config columns (if --save-config)" adds to every output row.
// Nested per-node-type weights aren't flattened here: they parameterize
// topology construction rather than describing a single replication
// outcome, and would blow up the column count for little analytical
// value.
func flattenConfig(cfg *config.Config, enabled bool) (header, values []string) {
	if !enabled {
		return nil, nil
	}
	kind := "grid"
	if cfg.PhysicalTopology.Chain != nil {
		kind = "chain"
	}
	appKind := "ping"
	if cfg.Applications.ClientServer != nil {
		appKind = "client_server"
	}
	return []string{"duration", "warmup_period", "physical_topology", "applications"},
		[]string{
			strconv.FormatFloat(cfg.Duration, 'g', -1, 64),
			strconv.FormatFloat(cfg.WarmupPeriod, 'g', -1, 64),
			kind,
			appKind,
		}
}

func dumpDot(cfg *config.Config, seed int64, outputPath string) error {
	phys, logTopo, err := runner.BuildTopologies(cfg, seed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	physicalPath, logicalPath, err := output.DumpTopologies(outputPath, phys, logTopo)
	if err != nil {
		return err
	}
	fmt.Println(physicalPath)
	if logicalPath != "" {
		fmt.Println(logicalPath)
	}
	return nil
}
