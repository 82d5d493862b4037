package engine

import (
	"testing"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/stretchr/testify/require"
)

// nullReporter discards all progress events, for tests that only care
// about the final move.
type nullReporter struct{}

func (nullReporter) Depth(int)                                                               {}
func (nullReporter) CurrMove(board.Move, int)                                                 {}
func (nullReporter) PV(int, int, int, bool, string, time.Duration, uint64, []board.Move) {}
func (nullReporter) BestMove(best, ponder board.Move)                                         {}

func newTestEngine() *Engine {
	return NewEngine(Options{HashMB: 1, MultiPV: 1})
}

// TestSearchFindsMateInOne checks that a shallow, depth-limited search
// finds the only mating move in a back-rank mate-in-one position.
func TestSearchFindsMateInOne(t *testing.T) {
	pos, err := ParseFENHelper("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	require.NoError(t, err)

	e := newTestEngine()
	best, _ := e.Go(pos, UCILimits{Depth: 4}, nullReporter{})

	require.Equal(t, board.A1, best.From())
	require.Equal(t, board.A8, best.To())
}

// TestSearchReturnsLegalMoveFromStartPosition checks that a depth-limited
// search on the opening position terminates and returns a pseudo-legal,
// actually-legal move.
func TestSearchReturnsLegalMoveFromStartPosition(t *testing.T) {
	pos := board.NewPosition()
	e := newTestEngine()

	best, _ := e.Go(pos, UCILimits{Depth: 3}, nullReporter{})
	require.NotEqual(t, board.NoMove, best)

	legal := pos.GenerateLegalMoves()
	found := false
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == best {
			found = true
			break
		}
	}
	require.True(t, found, "engine returned a move not in the legal move list")
}

// TestSearchWithNoLegalMovesReturnsNoMove checks the stalemate/checkmate
// short-circuit in Engine.Go.
func TestSearchWithNoLegalMovesReturnsNoMove(t *testing.T) {
	pos, err := ParseFENHelper("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	e := newTestEngine()
	best, ponder := e.Go(pos, UCILimits{Depth: 4}, nullReporter{})
	require.Equal(t, board.NoMove, best)
	require.Equal(t, board.NoMove, ponder)
}

// TestNullMoveDoesNotCorruptPosition checks that a full search (which uses
// null-move pruning internally) leaves the caller's position unchanged.
// Engine.Go searches a copy of the position, so null-move make/unmake
// soundness itself is checked by TestMakeUnmakeNullMoveRoundTrip.
func TestNullMoveDoesNotCorruptPosition(t *testing.T) {
	pos, err := ParseFENHelper("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	before := pos.String()

	e := newTestEngine()
	e.Go(pos, UCILimits{Depth: 4}, nullReporter{})

	require.Equal(t, before, pos.String())
}

// TestMakeUnmakeNullMoveRoundTrip checks the null-move primitive directly:
// making and unmaking a null move must restore side-to-move and the hash
// (which covers the en passant state) exactly.
func TestMakeUnmakeNullMoveRoundTrip(t *testing.T) {
	pos, err := ParseFENHelper("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)

	hashBefore := pos.Hash
	sideBefore := pos.SideToMove

	undo := pos.MakeNullMove()
	require.NotEqual(t, sideBefore, pos.SideToMove)

	pos.UnmakeNullMove(undo)
	require.Equal(t, sideBefore, pos.SideToMove)
	require.Equal(t, hashBefore, pos.Hash)
}

// TestDeepeningSearchRespectsDepthLimit checks that shouldDeepen stops
// iterating once the configured depth limit is reached.
func TestDeepeningSearchRespectsDepthLimit(t *testing.T) {
	pos := board.NewPosition()
	e := newTestEngine()

	var maxDepthSeen int
	rep := &depthTrackingReporter{}
	e.Go(pos, UCILimits{Depth: 3}, rep)
	maxDepthSeen = rep.maxDepth

	require.LessOrEqual(t, maxDepthSeen, 3)
	require.Greater(t, maxDepthSeen, 0)
}

type depthTrackingReporter struct {
	maxDepth int
}

func (r *depthTrackingReporter) Depth(d int) {
	if d > r.maxDepth {
		r.maxDepth = d
	}
}
func (r *depthTrackingReporter) CurrMove(board.Move, int) {}
func (r *depthTrackingReporter) PV(multipv, depth int, score int, mateScore bool, bound string, elapsed time.Duration, nodes uint64, pv []board.Move) {
	if depth > r.maxDepth {
		r.maxDepth = depth
	}
}
func (r *depthTrackingReporter) BestMove(best, ponder board.Move) {}

// ParseFENHelper wraps board.ParseFEN so test table entries read cleanly.
func ParseFENHelper(fen string) (*board.Position, error) {
	return board.ParseFEN(fen)
}

// multiPVReporter records every PV line reported at the deepest completed
// depth, keyed by its 1-based multipv slot.
type multiPVReporter struct {
	depth int
	lines map[int][]board.Move
}

func (r *multiPVReporter) Depth(d int) {}
func (r *multiPVReporter) CurrMove(board.Move, int) {}
func (r *multiPVReporter) PV(multipv, depth, score int, mateScore bool, bound string, elapsed time.Duration, nodes uint64, pv []board.Move) {
	if r.lines == nil {
		r.lines = map[int][]board.Move{}
	}
	if depth >= r.depth {
		r.depth = depth
		r.lines[multipv] = pv
	}
}
func (r *multiPVReporter) BestMove(best, ponder board.Move) {}

// TestMultiPVReportsDistinctRootMoves checks that the sequential
// multi-PV driver in deepeningSearch excludes each slot's chosen root
// move from the next slot's search, per SearchData.Excluded.
func TestMultiPVReportsDistinctRootMoves(t *testing.T) {
	pos := board.NewPosition()
	e := NewEngine(Options{HashMB: 1, MultiPV: 3})

	rep := &multiPVReporter{}
	e.Go(pos, UCILimits{Depth: 4}, rep)

	require.GreaterOrEqual(t, len(rep.lines), 2, "expected at least two distinct PV slots")
	require.NotEmpty(t, rep.lines[1])
	require.NotEmpty(t, rep.lines[2])
	require.NotEqual(t, rep.lines[1][0], rep.lines[2][0], "PV 1 and PV 2 should differ at the root")
}
