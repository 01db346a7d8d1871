// Package output renders one replication's metrics.Results to CSV, the
// way spec §6 describes: one scalar-summary row per replication in
// single.csv, and one CSV per time-series metric. No CSV library appears
// anywhere in the retrieved corpus, so this is hand-written against
// encoding/csv (see DESIGN.md).
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ccicconetti/qnetsim/internal/metrics"
)

// ScalarFileName is spec §6's "single.csv (or scalar.csv)" scalar
// summary file, one row per replication.
const ScalarFileName = "single.csv"

// Writer appends CSV rows under a common output directory: ScalarFileName
// holds the scalar summary, "<metric>.csv" holds one file per time-series
// metric, across every replication written to this Writer.
type Writer struct {
	dir          string
	prefixHeader []string
}

// New returns a Writer rooted at dir. prefixHeader names the columns
// prefixValues supplies on every WriteReplication call: spec §6's
// "additional fields, config columns (if --save-config)" prefix shared
// by every output file. Callers build prefixHeader/prefixValues once
// (see cmd/qnetsim) from --additional-header and, when --save-config is
// set, the flattened configuration.
func New(dir string, prefixHeader []string) *Writer {
	return &Writer{dir: dir, prefixHeader: prefixHeader}
}

// ClearDirectory removes every *.csv file under dir, implementing the
// default (non-"--append") CLI behavior of starting each run from a clean
// output directory. Missing directories are not an error.
func ClearDirectory(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("output: glob %s: %w", dir, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("output: remove %s: %w", m, err)
		}
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteReplication appends one scalar-summary row and one row per
// retained time-series sample for a single replication. seriesIgnore
// names metrics excluded from the per-series files (spec §6's
// series_ignore). prefixValues must have the same length as the
// prefixHeader given to New.
func (w *Writer) WriteReplication(prefixValues []string, results metrics.Results, seriesIgnore []string) error {
	if len(prefixValues) != len(w.prefixHeader) {
		return fmt.Errorf("output: %d prefix values for %d prefix header columns", len(prefixValues), len(w.prefixHeader))
	}
	if err := w.writeScalarRow(prefixValues, results); err != nil {
		return err
	}
	ignore := make(map[string]bool, len(seriesIgnore))
	for _, name := range seriesIgnore {
		ignore[name] = true
	}
	for _, name := range results.SeriesNames() {
		if ignore[name] {
			continue
		}
		if err := w.writeSeriesFile(prefixValues, name, results.Series[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (w *Writer) writeScalarRow(prefixValues []string, results metrics.Results) error {
	oneTimeNames := sortedKeys(results.OneTime)
	avgNames := sortedKeys(results.Average)
	timeAvgNames := sortedKeys(results.TimeAverage)
	countNames := sortedKeys(results.Count)

	header := append(append([]string{}, w.prefixHeader...))
	for _, n := range oneTimeNames {
		header = append(header, n)
	}
	for _, n := range avgNames {
		header = append(header, "avg."+n)
	}
	for _, n := range timeAvgNames {
		header = append(header, "time_avg."+n)
	}
	for _, n := range countNames {
		header = append(header, "count."+n)
	}

	row := append(append([]string{}, prefixValues...))
	for _, n := range oneTimeNames {
		row = append(row, formatFloat(results.OneTime[n]))
	}
	for _, n := range avgNames {
		row = append(row, formatFloat(results.Average[n]))
	}
	for _, n := range timeAvgNames {
		row = append(row, formatFloat(results.TimeAverage[n]))
	}
	for _, n := range countNames {
		row = append(row, strconv.FormatUint(results.Count[n], 10))
	}

	return appendCSVRow(filepath.Join(w.dir, ScalarFileName), header, row)
}

func (w *Writer) writeSeriesFile(prefixValues []string, metricName string, points []metrics.Point) error {
	path := filepath.Join(w.dir, metricName+".csv")
	numLabels := 0
	for _, p := range points {
		if len(p.Labels) > numLabels {
			numLabels = len(p.Labels)
		}
	}
	header := append(append([]string{}, w.prefixHeader...))
	for i := 0; i < numLabels; i++ {
		header = append(header, fmt.Sprintf("label_%d", i))
	}
	header = append(header, "time", "value")

	for _, p := range points {
		row := append(append([]string{}, prefixValues...))
		for i := 0; i < numLabels; i++ {
			if i < len(p.Labels) {
				row = append(row, p.Labels[i])
			} else {
				row = append(row, "")
			}
		}
		row = append(row, formatFloat(p.TimeSeconds), formatFloat(p.Value))
		if err := appendCSVRow(path, header, row); err != nil {
			return err
		}
	}
	return nil
}

// appendCSVRow appends row to path, writing header first only when the
// file does not yet exist (spec §6's --append semantics: header is
// written exactly once per file, every replication's rows accumulate).
func appendCSVRow(path string, header, row []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output: mkdir %s: %w", dir, err)
		}
	}

	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("output: write header %s: %w", path, err)
		}
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("output: write row %s: %w", path, err)
	}
	cw.Flush()
	return cw.Error()
}
