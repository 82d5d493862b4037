package engine

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
	"github.com/stretchr/testify/require"
)

func TestTranspositionStoreProbeRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)

	hash := uint64(0xdeadbeefcafef00d)
	tt.Store(hash, 7, 123, TTExact, board.NoMove)

	got, ok := tt.Probe(hash)
	require.True(t, ok)
	require.Equal(t, 7, int(got.Depth))
	require.Equal(t, 123, int(got.Score))
	require.Equal(t, TTExact, got.Flag)
}

func TestTranspositionProbeMissOnVerifierCollision(t *testing.T) {
	tt := NewTranspositionTable(1)

	// Two hashes landing in the same bucket (same low bits) but with a
	// different verifier (high bits) must not be confused for each other.
	base := uint64(42)
	h1 := base
	h2 := base | (1 << 40)

	tt.Store(h1, 3, 10, TTExact, board.NoMove)

	_, ok := tt.Probe(h2)
	require.False(t, ok)
}

func TestTranspositionClearResetsState(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(5, 3, 10, TTExact, board.NoMove)
	require.Greater(t, tt.HashFull(), 0)

	tt.Clear()
	require.Equal(t, 0, tt.HashFull())
	require.Equal(t, float64(0), tt.HitRate())
}

func TestTranspositionReplacementPrefersShallowerSameGeneration(t *testing.T) {
	tt := NewTranspositionTable(1)

	// Fill all four slots of one bucket (same low bits, distinct
	// verifiers), then store a fifth: it should evict the shallowest
	// same-generation entry, not the deepest.
	base := uint64(7)
	h1 := base | (1 << 40)
	h2 := base | (2 << 40)
	h3 := base | (3 << 40)
	h4 := base | (4 << 40)
	h5 := base | (5 << 40)

	tt.Store(h1, 10, 1, TTExact, board.NoMove)
	tt.Store(h2, 2, 2, TTExact, board.NoMove)
	tt.Store(h3, 8, 3, TTExact, board.NoMove)
	tt.Store(h4, 9, 4, TTExact, board.NoMove)
	tt.Store(h5, 6, 5, TTExact, board.NoMove)

	_, ok := tt.Probe(h2)
	require.False(t, ok, "shallowest entry should have been evicted")

	e1, ok1 := tt.Probe(h1)
	require.True(t, ok1)
	require.Equal(t, 1, int(e1.Score))
}

func TestRoundDownToPowerOf2(t *testing.T) {
	require.Equal(t, uint64(0), roundDownToPowerOf2(0))
	require.Equal(t, uint64(1), roundDownToPowerOf2(1))
	require.Equal(t, uint64(4), roundDownToPowerOf2(7))
	require.Equal(t, uint64(8), roundDownToPowerOf2(8))
}
