// Package rngseed derives independent, deterministic *rand.Rand streams
// from one replication seed, the way tsp/rng.go derives per-restart
// streams from a base RNG: a SplitMix64-style avalanche mix keeps the
// sub-streams decorrelated even though they all trace back to one
// simulation_seed (spec §5's per-component RNG discipline).
package rngseed

import "math/rand"

// Derive mixes parent and stream into a new seed via the SplitMix64
// finalizer (grounded on tsp/rng.go's deriveSeed).
func Derive(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// New returns a *rand.Rand for sub-stream identified by stream, derived
// deterministically from the replication's simulation_seed.
func New(simulationSeed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewSource(Derive(simulationSeed, stream)))
}
