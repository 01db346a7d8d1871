package rngseed_test

import (
	"testing"

	"github.com/ccicconetti/qnetsim/internal/rngseed"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a := rngseed.New(42, 7)
	b := rngseed.New(42, 7)
	require.Equal(t, a.Int63(), b.Int63())
}

func TestDifferentStreamsDiverge(t *testing.T) {
	a := rngseed.New(42, 0)
	b := rngseed.New(42, 1)
	require.NotEqual(t, a.Int63(), b.Int63())
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := rngseed.New(1, 0)
	b := rngseed.New(2, 0)
	require.NotEqual(t, a.Int63(), b.Int63())
}
