// Package engine implements iterative-deepening alpha-beta search over a
// board.Position: transposition table, staged move ordering, pruning and
// extension heuristics, and a watchdog-enforced time budget.
package engine

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/hailam/chessplay/internal/board"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("engine")

// EngineState is a process-wide shared atom describing what the Searcher
// is currently doing. The Watchdog and the external command channel both
// write to it; the Searcher polls it only at enumerated safe points.
type EngineState int32

const (
	Waiting EngineState = iota
	Searching
	Pondering
	Stopping
)

func (s EngineState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Searching:
		return "searching"
	case Pondering:
		return "pondering"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// SharedState is the atomic EngineState plus the generation counter that
// lets a stale Watchdog recognize it no longer owns the running search.
type SharedState struct {
	state      atomic.Int32
	generation atomic.Uint64
}

// NewSharedState returns a SharedState initialized to Waiting.
func NewSharedState() *SharedState {
	s := &SharedState{}
	s.state.Store(int32(Waiting))
	return s
}

func (s *SharedState) Get() EngineState       { return EngineState(s.state.Load()) }
func (s *SharedState) Set(v EngineState)      { s.state.Store(int32(v)) }
func (s *SharedState) Generation() uint64     { return s.generation.Load() }
func (s *SharedState) NextGeneration() uint64 { return s.generation.Add(1) }
func (s *SharedState) ShouldStop() bool       { return s.Get() == Stopping }

// watchdog sleeps until the hard time limit, then writes Stopping if (a)
// the search is still running under the generation it was spawned for,
// and (b) the timer is actually in play for this search. While the
// engine is pondering it keeps re-sleeping instead of stopping outright.
func watchdog(state *SharedState, generation uint64, hard time.Duration) {
	if hard <= 0 {
		return
	}
	for {
		time.Sleep(hard)
		if state.Get() == Pondering {
			continue
		}
		if state.Get() == Searching && state.Generation() == generation {
			log.Debugf("watchdog: hard limit reached, stopping generation %d", generation)
			state.Set(Stopping)
		}
		return
	}
}

// RootMove is one candidate move at the root, carrying its own PV and
// the depth at which that PV was last completed.
type RootMove struct {
	Move         board.Move
	Score        int
	DepthReached int
	PV           []board.Move
}

// SearchConstraints carries a single search request's limits, derived
// from the "go" command fields and the side to move's clock.
type SearchConstraints struct {
	Infinite    bool
	Ponder      bool
	SearchMoves []board.Move
	NodeLimit   uint64
	DepthLimit  int
	UseTimer    bool
	HardLimit   time.Duration
	SoftLimit   time.Duration
	StartTime   time.Time
}

// Options are the engine-wide settings mutated via "setoption".
type Options struct {
	HashMB     int
	MultiPV    int
	TimeBuffer time.Duration
	Ponder     bool
	MagicSeed  uint64
}

// DefaultOptions returns the engine's out-of-the-box configuration.
func DefaultOptions() Options {
	return Options{
		HashMB:     64,
		MultiPV:    1,
		TimeBuffer: 50 * time.Millisecond,
	}
}

// Reporter receives progress events during a search. Its methods are
// only ever called from the Searcher goroutine, never concurrently; a
// nil Reporter is legal and silences output.
type Reporter interface {
	Depth(depth int)
	CurrMove(m board.Move, number int)
	PV(multipv, depth int, score int, mateScore bool, bound string, elapsed time.Duration, nodes uint64, pv []board.Move)
	BestMove(best, ponder board.Move)
}

// Engine owns the resources that persist across searches: the
// transposition table, history/countermove tables, and the shared state
// atom the Watchdog coordinates through.
type Engine struct {
	Options Options

	tt           *TranspositionTable
	history      History
	counterMoves CounterMoves

	state *SharedState
}

// NewEngine builds an Engine with its tables sized from opts.
func NewEngine(opts Options) *Engine {
	return &Engine{
		Options: opts,
		tt:      NewTranspositionTable(opts.HashMB),
		state:   NewSharedState(),
	}
}

// State returns the shared EngineState atom (read by the UCI adapter to
// answer "isready"/"ponderhit"/"stop" and to know when a bestmove is due).
func (e *Engine) State() *SharedState { return e.state }

// NewGame clears the transposition table and resets history and
// countermove state, per the "ucinewgame" contract.
func (e *Engine) NewGame() {
	log.Debug("ucinewgame: clearing transposition table and ordering state")
	e.tt.Clear()
	e.history.Clear()
	e.counterMoves.Clear()
}

// SetHash resizes the transposition table.
func (e *Engine) SetHash(mb int) {
	log.Infof("resizing transposition table to %d MB", mb)
	e.Options.HashMB = mb
	e.tt = NewTranspositionTable(mb)
}

// Go runs one full search: spawns the Watchdog, drives iterative
// deepening, and reports the chosen move. It blocks until the search
// terminates (by stop, by timer, by depth/node limit, or by exhausting
// legal moves).
func (e *Engine) Go(pos *board.Position, limits UCILimits, report Reporter) (best, ponder board.Move) {
	generation := e.state.NextGeneration()

	tm := NewTimeManager()
	if !limits.Infinite {
		tm.Init(limits, pos.SideToMove, e.Options.TimeBuffer)
	}

	constraints := SearchConstraints{
		Infinite:    limits.Infinite,
		Ponder:      limits.Ponder,
		SearchMoves: limits.SearchMoves,
		NodeLimit:   limits.Nodes,
		DepthLimit:  limits.Depth,
		UseTimer:    tm.UsesTimer() && !limits.Infinite,
		HardLimit:   tm.HardLimit(),
		SoftLimit:   tm.SoftLimit(),
		StartTime:   time.Now(),
	}

	if constraints.UseTimer {
		go watchdog(e.state, generation, constraints.HardLimit)
	}

	if limits.Ponder {
		e.state.Set(Pondering)
	} else {
		e.state.Set(Searching)
	}

	sd := newSearchData(pos, constraints, e.tt, &e.history, &e.counterMoves, e.state, generation)
	if e.Options.MultiPV > 0 {
		sd.MultiPV = e.Options.MultiPV
	}

	if len(sd.Constraints.SearchMoves) == 0 {
		legal := pos.GenerateLegalMoves()
		for i := 0; i < legal.Len(); i++ {
			sd.Constraints.SearchMoves = append(sd.Constraints.SearchMoves, legal.Get(i))
		}
	}
	if len(sd.Constraints.SearchMoves) == 0 {
		e.state.Set(Waiting)
		if report != nil {
			report.BestMove(board.NoMove, board.NoMove)
		}
		return board.NoMove, board.NoMove
	}
	for _, m := range sd.Constraints.SearchMoves {
		sd.RootMoves = append(sd.RootMoves, RootMove{Move: m, Score: MinScore})
	}

	deepeningSearch(sd, report)

	for e.state.Get() == Pondering || (constraints.Infinite && e.state.Get() == Searching) {
		time.Sleep(time.Millisecond)
	}
	e.state.Set(Waiting)

	if len(sd.RootMoves) == 0 {
		return board.NoMove, board.NoMove
	}
	bestMove := sd.RootMoves[0]
	best = bestMove.Move
	if len(bestMove.PV) > 1 {
		ponder = bestMove.PV[1]
	}
	if report != nil {
		report.BestMove(best, ponder)
	}
	return best, ponder
}

func sortRootMoves(rm []RootMove) {
	sort.SliceStable(rm, func(i, j int) bool {
		if rm[i].DepthReached != rm[j].DepthReached {
			return rm[i].DepthReached > rm[j].DepthReached
		}
		return rm[i].Score > rm[j].Score
	})
}
