package units_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/units"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []float64{0, 1, 0.5, 2.0, 1.000000001, 123.456}
	for _, seconds := range cases {
		ns := units.ToNanoseconds(seconds)
		got := units.ToSeconds(ns)
		require.InDelta(t, seconds, got, 1e-6)
	}
}

func TestToNanosecondsExact(t *testing.T) {
	require.Equal(t, uint64(2_000_000_000), units.ToNanoseconds(2.0))
	require.Equal(t, uint64(0), units.ToNanoseconds(0))
}
