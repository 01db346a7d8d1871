// Command qnetsim runs the entanglement-distribution network simulator
// described by a user configuration file, writing CSV metrics (and
// optionally Graphviz topology dumps) to an output directory.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccicconetti/qnetsim/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	confPath         string
	template         bool
	seedInit         uint64
	seedEnd          uint64
	concurrency      int
	outputPath       string
	appendOutput     bool
	saveConfig       bool
	additionalFields string
	additionalHeader string
	saveToDot        bool
	verbose          bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "qnetsim",
		Short:         "Discrete-event simulator of a quantum entanglement-distribution network",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	cmd.Flags().StringVar(&f.confPath, "conf", "conf.json", "user configuration file")
	cmd.Flags().BoolVar(&f.template, "template", false, "write a default user-config file and exit")
	cmd.Flags().Uint64Var(&f.seedInit, "seed-init", 0, "first replication seed (inclusive)")
	cmd.Flags().Uint64Var(&f.seedEnd, "seed-end", 1, "last replication seed (exclusive)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "worker pool size")
	cmd.Flags().StringVar(&f.outputPath, "output-path", ".", "directory for CSV output")
	cmd.Flags().BoolVar(&f.appendOutput, "append", false, "append to existing CSV files instead of truncating them")
	cmd.Flags().BoolVar(&f.saveConfig, "save-config", false, "include configuration columns in every output row")
	cmd.Flags().StringVar(&f.additionalFields, "additional-fields", "", "comma-separated extra column values prepended to each output row")
	cmd.Flags().StringVar(&f.additionalHeader, "additional-header", "", "comma-separated extra column names matching --additional-fields")
	cmd.Flags().BoolVar(&f.saveToDot, "save-to-dot", false, "dump Graphviz files for the physical and logical topologies and exit")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "debug-level logging")

	return cmd
}

func newLogger(verbose bool) *logrus.Entry {
	l := logrus.New()
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(l)
}
