package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckmate(t *testing.T) {
	// Back-rank mate: Black to move, king boxed in by its own pawns.
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())
	require.True(t, pos.IsCheckmate())
	require.False(t, pos.IsStalemate())
}

func TestNotCheckmate(t *testing.T) {
	// King can capture the checking rook: not mate.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.False(t, pos.IsCheckmate())
}

func TestStalemate(t *testing.T) {
	// Classic stalemate: Black king has no legal move and is not in check.
	pos, err := ParseFEN("k7/8/1Q6/8/8/8/8/7K b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.False(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())
	require.True(t, pos.IsStalemate())
	require.False(t, pos.IsCheckmate())
}
