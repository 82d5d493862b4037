// Package uci implements the Universal Chess Interface protocol, adapting
// between stdin/stdout text and engine.Engine's Go-idiomatic API.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/config"
	"github.com/hailam/chessplay/internal/engine"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("uci")

// UCI implements the Universal Chess Interface protocol loop.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	mu         sync.Mutex
	searching  bool
	searchDone chan struct{}
}

// New creates a UCI handler wrapping eng.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
	}
}

// Run reads commands from stdin until "quit" or EOF.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "ponderhit":
			u.handlePonderhit()
		case "quit":
			u.handleStop()
			return
		case "setoption":
			u.handleSetOption(args)
		case "d":
			u.handleDebug()
		case "perft":
			u.handlePerft(args)
		default:
			log.Warningf("unrecognized command: %s", cmd)
		}
	}
}

func (u *UCI) handleUCI() {
	fmt.Println("id name ChessGo")
	fmt.Println("id author chessgo contributors")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name MultiPV type spin default 1 min 1 max 8")
	fmt.Println("option name Ponder type check default false")
	fmt.Println("option name TimeBuffer type spin default 50 min 0 max 2000")
	fmt.Println("option name MagicSeed type spin default 0 min 0 max 9223372036854775807")
	fmt.Println("uciok")
}

// handleDebug prints the board and, for operator convenience, the legal
// moves from this position rendered in algebraic notation.
func (u *UCI) handleDebug() {
	fmt.Println(u.position.String())
	legal := u.position.GenerateLegalMoves()
	sans := make([]string, legal.Len())
	for i := 0; i < legal.Len(); i++ {
		sans[i] = legal.Get(i).ToSAN(u.position)
	}
	fmt.Printf("legal moves: %s\n", strings.Join(sans, " "))
}

func (u *UCI) handleNewGame() {
	u.engine.NewGame()
	u.position = board.NewPosition()
}

// handlePosition parses "position [startpos|fen <fen>] [moves ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int
	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = 1
	case "fen":
		end := len(args)
		for i := 1; i < len(args); i++ {
			if args[i] == "moves" {
				end = i
				break
			}
		}
		pos, err := board.ParseFEN(strings.Join(args[1:end], " "))
		if err != nil {
			log.Warningf("invalid FEN: %v", err)
			return
		}
		u.position = pos
		moveStart = end
	default:
		return
	}

	for i, arg := range args {
		if i < moveStart {
			continue
		}
		if arg == "moves" {
			continue
		}
		m := u.parseMove(arg)
		if m == board.NoMove {
			log.Warningf("invalid move in position command: %s", arg)
			return
		}
		u.position.MakeMove(m)
	}
}

func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}
	from, err1 := board.ParseSquare(moveStr[0:2])
	to, err2 := board.ParseSquare(moveStr[2:4])
	if err1 != nil || err2 != nil {
		return board.NoMove
	}

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() {
			if promo != 0 && m.Promotion() == promo {
				return m
			}
			continue
		}
		if promo == 0 {
			return m
		}
	}
	return board.NoMove
}

// handleGo parses "go" limits and runs a search in the background so
// "stop"/"isready" stay responsive.
func (u *UCI) handleGo(args []string) {
	limits := u.parseGoLimits(args)

	u.mu.Lock()
	if u.searching {
		u.mu.Unlock()
		return
	}
	u.searching = true
	done := make(chan struct{})
	u.searchDone = done
	u.mu.Unlock()

	pos := u.position.Copy()
	rep := &infoReporter{start: time.Now()}

	go func() {
		defer close(done)
		best, ponder := u.engine.Go(pos, limits, rep)
		u.mu.Lock()
		u.searching = false
		u.mu.Unlock()

		if best == board.NoMove {
			fmt.Println("bestmove 0000")
			return
		}
		if ponder != board.NoMove && limits.Ponder {
			fmt.Printf("bestmove %s ponder %s\n", best.String(), ponder.String())
			return
		}
		fmt.Printf("bestmove %s\n", best.String())
	}()
}

func (u *UCI) parseGoLimits(args []string) engine.UCILimits {
	var limits engine.UCILimits

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			i++
			if i < len(args) {
				limits.Depth, _ = strconv.Atoi(args[i])
			}
		case "nodes":
			i++
			if i < len(args) {
				n, _ := strconv.ParseUint(args[i], 10, 64)
				limits.Nodes = n
			}
		case "movetime":
			i++
			if i < len(args) {
				ms, _ := strconv.Atoi(args[i])
				limits.MoveTime = time.Duration(ms) * time.Millisecond
			}
		case "movestogo":
			i++
			if i < len(args) {
				limits.MovesToGo, _ = strconv.Atoi(args[i])
			}
		case "wtime":
			i++
			if i < len(args) {
				ms, _ := strconv.Atoi(args[i])
				limits.Time[board.White] = time.Duration(ms) * time.Millisecond
			}
		case "btime":
			i++
			if i < len(args) {
				ms, _ := strconv.Atoi(args[i])
				limits.Time[board.Black] = time.Duration(ms) * time.Millisecond
			}
		case "winc":
			i++
			if i < len(args) {
				ms, _ := strconv.Atoi(args[i])
				limits.Inc[board.White] = time.Duration(ms) * time.Millisecond
			}
		case "binc":
			i++
			if i < len(args) {
				ms, _ := strconv.Atoi(args[i])
				limits.Inc[board.Black] = time.Duration(ms) * time.Millisecond
			}
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		case "searchmoves":
			for i+1 < len(args) {
				m := u.parseMove(args[i+1])
				if m == board.NoMove {
					break
				}
				limits.SearchMoves = append(limits.SearchMoves, m)
				i++
			}
		}
	}
	return limits
}

func (u *UCI) handleStop() {
	u.mu.Lock()
	searching := u.searching
	done := u.searchDone
	u.mu.Unlock()
	if !searching {
		return
	}
	u.engine.State().Set(engine.Stopping)
	<-done
}

func (u *UCI) handlePonderhit() {
	if u.engine.State().Get() == engine.Pondering {
		u.engine.State().Set(engine.Searching)
	}
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	var readingName, readingValue bool
	for _, a := range args {
		switch a {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				name = strings.TrimSpace(name + " " + a)
			} else if readingValue {
				value = strings.TrimSpace(value + " " + a)
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil && mb > 0 {
			u.engine.SetHash(mb)
		}
	case "multipv":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			u.engine.Options.MultiPV = n
		}
	case "ponder":
		u.engine.Options.Ponder = strings.EqualFold(value, "true")
	case "timebuffer":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			u.engine.Options.TimeBuffer = time.Duration(ms) * time.Millisecond
		}
	case "magicseed":
		if seed, err := strconv.ParseUint(value, 10, 64); err == nil {
			u.engine.Options.MagicSeed = seed
			board.SetMagicSeed(seed)
		}
	default:
		log.Debugf("unrecognized option: %s", name)
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	start := time.Now()
	nodes := perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}

func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// EngineFromConfig builds an engine.Engine using a loaded configuration.
func EngineFromConfig(cfg config.Options) *engine.Engine {
	if cfg.MagicSeed != 0 {
		board.SetMagicSeed(cfg.MagicSeed)
	}

	opts := engine.DefaultOptions()
	opts.HashMB = cfg.HashMB
	opts.MultiPV = cfg.MultiPV
	opts.TimeBuffer = cfg.TimeBuffer()
	opts.Ponder = cfg.Ponder
	opts.MagicSeed = cfg.MagicSeed
	return engine.NewEngine(opts)
}

// infoReporter formats engine.Reporter callbacks as UCI "info" lines.
type infoReporter struct {
	start time.Time
}

func (r *infoReporter) Depth(depth int) {
	fmt.Printf("info depth %d time %d\n", depth, time.Since(r.start).Milliseconds())
}

func (r *infoReporter) CurrMove(m board.Move, number int) {
	fmt.Printf("info currmove %s currmovenumber %d\n", m.String(), number)
}

func (r *infoReporter) PV(multipv, depth, score int, mateScore bool, bound string, elapsed time.Duration, nodes uint64, pv []board.Move) {
	var scorePart string
	if mateScore {
		plies := engine.MateScore - abs(score)
		mateMoves := (plies + 1) / 2
		if score < 0 {
			mateMoves = -mateMoves
		}
		scorePart = fmt.Sprintf("mate %d", mateMoves)
	} else {
		scorePart = fmt.Sprintf("cp %d", score)
	}

	nps := uint64(0)
	if elapsed > 0 {
		nps = uint64(float64(nodes) / elapsed.Seconds())
	}

	pvStrs := make([]string, len(pv))
	for i, m := range pv {
		pvStrs[i] = m.String()
	}

	fmt.Printf("info multipv %d depth %d score %s nodes %d time %d nps %d pv %s\n",
		multipv, depth, scorePart, nodes, elapsed.Milliseconds(), nps, strings.Join(pvStrs, " "))
}

func (r *infoReporter) BestMove(best, ponder board.Move) {
	// bestmove itself is emitted by the caller once the search goroutine
	// returns; this hook exists for a Reporter that wants the final
	// notification distinctly from the last PV line.
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
