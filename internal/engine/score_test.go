package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreToFromTTRoundTrip(t *testing.T) {
	cases := []struct {
		score int
		ply   int
	}{
		{0, 0},
		{150, 5},
		{-320, 12},
		{mateIn(3), 7},
		{matedIn(4), 2},
	}

	for _, tc := range cases {
		stored := ScoreToTT(tc.score, tc.ply)
		got := ScoreFromTT(stored, tc.ply)
		require.Equal(t, tc.score, got, "round-trip for score=%d ply=%d", tc.score, tc.ply)
	}
}

// A mate score is stored relative to the node it was found at, since TT
// entries are shared across the whole search tree: the stored value differs
// from the root-relative score, and probing at the same ply recovers it.
func TestScoreToTTNormalizesMateDistance(t *testing.T) {
	rootScore := mateIn(5)
	storedAtPly3 := ScoreToTT(rootScore, 3)
	rootScoreBack := ScoreFromTT(storedAtPly3, 3)
	require.Equal(t, rootScore, rootScoreBack)

	// The node-relative value stored at ply 3 differs from the
	// root-relative mate score it was derived from.
	require.NotEqual(t, storedAtPly3, rootScore)
}

func TestMateDistanceMonotonicity(t *testing.T) {
	// Being mated later (more plies survived) is a better outcome: the
	// score should increase (move closer to zero) as ply grows.
	for ply := 0; ply < MaxPly-1; ply++ {
		require.Less(t, matedIn(ply), matedIn(ply+1))
	}

	// Delivering mate sooner is better: the score should decrease as the
	// ply at which mate is delivered grows.
	for ply := 0; ply < MaxPly-1; ply++ {
		require.Greater(t, mateIn(ply), mateIn(ply+1))
	}
}

func TestIsMateScore(t *testing.T) {
	require.True(t, isMateScore(mateIn(10)))
	require.True(t, isMateScore(matedIn(10)))
	require.False(t, isMateScore(0))
	require.False(t, isMateScore(500))
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 1, clampInt(-5, 1, 3))
	require.Equal(t, 3, clampInt(9, 1, 3))
	require.Equal(t, 2, clampInt(2, 1, 3))
}
