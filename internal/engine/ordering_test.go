package engine

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecordSuccessAndFailure(t *testing.T) {
	var h History
	h.recordSuccess(board.WhiteKnight, board.F3, 4)
	require.Equal(t, 16, h.get(board.WhiteKnight, board.F3))

	h.recordFailure(board.WhiteKnight, board.F3, 2)
	require.Equal(t, 12, h.get(board.WhiteKnight, board.F3))
}

func TestHistoryOverflowHalvesWholeTable(t *testing.T) {
	var h History
	h.table[board.WhiteQueen][board.D4] = 50
	// depth*depth = 10201 pushes the entry above maxHistory, which must
	// rescale every entry in the table, not just the one that overflowed.
	h.recordSuccess(board.WhiteKnight, board.F3, 101)
	require.Equal(t, 25, h.get(board.WhiteQueen, board.D4))
}

func TestHistoryFailureClampsAtFloor(t *testing.T) {
	var h History
	h.recordFailure(board.WhiteRook, board.A1, 200)
	require.Equal(t, -maxHistory, h.get(board.WhiteRook, board.A1))
}

func TestCounterMovesSetAndGet(t *testing.T) {
	var c CounterMoves
	require.Equal(t, board.NoMove, c.get(board.BlackPawn, board.E5))

	reply := board.NewMove(board.D2, board.D4, board.WhitePawn, false)
	c.set(board.BlackPawn, board.E5, reply)
	require.Equal(t, reply, c.get(board.BlackPawn, board.E5))
}

// TestMoveSelectorStagedOrder checks that the TT move is always emitted
// first and that no move is yielded twice across stages.
func TestMoveSelectorStagedOrder(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	legal := pos.GenerateLegalMoves()
	require.Greater(t, legal.Len(), 0)
	ttMove := legal.Get(0)

	var hist History
	ms := NewMoveSelector(pos, ttMove, nil, board.NoMove, &hist)

	first, ok := ms.Next()
	require.True(t, ok)
	require.Equal(t, ttMove, first)

	seen := map[board.Move]bool{first: true}
	for {
		m, ok := ms.Next()
		if !ok {
			break
		}
		require.False(t, seen[m], "move %v yielded twice", m)
		seen[m] = true
	}
}

// TestMoveSelectorCapturesOnlySkipsQuiets checks the quiescence-mode
// restriction added for non-check quiescence nodes.
func TestMoveSelectorCapturesOnlySkipsQuiets(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	var hist History
	ms := NewMoveSelector(pos, board.NoMove, nil, board.NoMove, &hist)
	ms.capturesOnly = true

	for {
		m, ok := ms.Next()
		if !ok {
			break
		}
		isCaptureLike := m.IsCapture() || m.IsEnPassant() || (m.IsPromotion() && m.Promotion() == board.Queen)
		require.True(t, isCaptureLike, "capturesOnly selector yielded a quiet move: %v", m)
	}
}
