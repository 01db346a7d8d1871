package metrics_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestWarmupGating(t *testing.T) {
	s := metrics.NewSink()

	s.IncEventCount()
	s.RecordSample(500, metrics.Sample{Name: "fidelity", Value: 0.8})
	s.ObserveQueueLen(500, 3)

	s.EnableCollection()
	s.IncEventCount()
	s.RecordSample(1_000_000_000, metrics.Sample{Name: "fidelity", Value: 0.9})
	s.ObserveQueueLen(1_000_000_000, 2)
	s.RecordSample(2_000_000_000, metrics.Sample{Name: "fidelity", Value: 0.7})
	s.ObserveQueueLen(2_000_000_000, 4)

	res := s.Results(1_000_000_000, 2_000_000_000)
	require.Equal(t, float64(2), res.OneTime["num_events"])
	require.InDelta(t, 0.8, res.Average["fidelity"], 1e-9)
	require.Len(t, res.Series["fidelity"], 2)
	for _, pt := range res.Series["fidelity"] {
		require.GreaterOrEqual(t, pt.TimeSeconds, 1.0)
	}
	// Queue length 2 held for the first second of the collecting window.
	require.InDelta(t, 2.0, res.TimeAverage["event_queue_len"], 1e-9)
}

func TestCountGatedByWarmup(t *testing.T) {
	s := metrics.NewSink()
	s.IncCount("requests-completed", 1)
	s.EnableCollection()
	s.IncCount("requests-completed", 2)

	res := s.Results(0, 1)
	require.Equal(t, uint64(2), res.Count["requests-completed"])
}

func TestSeriesNamesSorted(t *testing.T) {
	s := metrics.NewSink()
	s.EnableCollection()
	s.RecordSample(0, metrics.Sample{Name: "zeta"})
	s.RecordSample(0, metrics.Sample{Name: "alpha"})
	res := s.Results(0, 1)
	require.Equal(t, []string{"alpha", "zeta"}, res.SeriesNames())
}
