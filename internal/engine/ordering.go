package engine

import "github.com/hailam/chessplay/internal/board"

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) table.
// Higher score = search first.
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

const maxHistory = 10000

// Node is a per-ply search-stack slot. It currently holds only the two
// killer moves; counter-moves and history live in SearchData since they
// are shared across the whole search, not per-ply.
type Node struct {
	Killers [2]board.Move
}

// History is the history heuristic table, indexed by (piece, to-square).
// Scores are clamped to +/-maxHistory and halved across the whole table
// when any entry overflows, preserving relative order.
type History struct {
	table [12][64]int
}

func (h *History) get(piece board.Piece, to board.Square) int {
	return h.table[piece][to]
}

func (h *History) recordSuccess(piece board.Piece, to board.Square, depth int) {
	bonus := depth * depth
	h.table[piece][to] += bonus
	if h.table[piece][to] > maxHistory {
		for i := range h.table {
			for j := range h.table[i] {
				h.table[i][j] /= 2
			}
		}
	}
}

func (h *History) recordFailure(piece board.Piece, to board.Square, depth int) {
	bonus := depth * depth
	h.table[piece][to] -= bonus
	if h.table[piece][to] < -maxHistory {
		h.table[piece][to] = -maxHistory
	}
}

func (h *History) Clear() {
	h.table = [12][64]int{}
}

// CounterMoves maps the last move played (by piece, to-square) to the
// quiet reply that most recently caused a beta cutoff against it.
type CounterMoves struct {
	table [12][64]board.Move
}

func (c *CounterMoves) get(piece board.Piece, to board.Square) board.Move {
	return c.table[piece][to]
}

func (c *CounterMoves) set(piece board.Piece, to board.Square, reply board.Move) {
	c.table[piece][to] = reply
}

func (c *CounterMoves) Clear() {
	c.table = [12][64]board.Move{}
}

const (
	stageTT = iota
	stageGoodCaptures
	stageKiller1
	stageKiller2
	stageCounter
	stageQuiets
	stageBadCaptures
	stageDone
)

type rankedMove struct {
	move  board.Move
	score int
	see   int
}

// MoveSelector is a resumable staged move iterator. Emission order:
// TT move, winning/equal captures (SEE/MVV-LVA, queen promotions included),
// killers, counter-move, quiet moves by history score, losing captures last.
// It never yields the same move twice across stages.
type MoveSelector struct {
	pos *board.Position

	ttMove      board.Move
	killers     [2]board.Move
	counterMove board.Move

	goodCaptures []rankedMove
	quiets       []rankedMove
	badCaptures  []rankedMove

	stage int
	idx   int

	lastSEE      int
	lastSpecial  bool
	lastBad      bool
	legalOnly    bool

	// capturesOnly restricts quiescence nodes to captures and queen
	// promotions: the quiet-move stage is skipped entirely.
	capturesOnly bool
}

// NewMoveSelector builds a staged selector over every pseudo-legal move in
// pos for a normal search node.
func NewMoveSelector(pos *board.Position, ttMove board.Move, node *Node, counterMove board.Move, hist *History) *MoveSelector {
	ms := &MoveSelector{pos: pos, ttMove: ttMove}
	if node != nil {
		ms.killers = node.Killers
	}
	ms.counterMove = counterMove
	ms.classify(pos.GeneratePseudoLegalMoves(), hist)
	return ms
}

// NewLegalMoveSelector builds a selector that yields only fully legal
// moves, used once at the very top of the search entry point.
func NewLegalMoveSelector(pos *board.Position, hist *History) *MoveSelector {
	ms := &MoveSelector{pos: pos, ttMove: board.NoMove, legalOnly: true}
	ml := pos.GeneratePseudoLegalMoves()
	filtered := board.NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); pos.IsLegal(m) {
			filtered.Add(m)
		}
	}
	ms.classify(filtered, hist)
	return ms
}

func (ms *MoveSelector) classify(ml *board.MoveList, hist *History) {
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if m == ms.ttMove || m == ms.killers[0] || m == ms.killers[1] || m == ms.counterMove {
			continue
		}

		isCapture := m.IsCapture() || m.IsEnPassant()
		isQueenPromo := m.IsPromotion() && m.Promotion() == board.Queen

		if isCapture || isQueenPromo {
			see := 0
			if isCapture {
				see = SEE(ms.pos, m)
			} else {
				see = board.PieceValue[board.Queen] - board.PieceValue[board.Pawn]
			}
			score := ms.captureScore(m, see)
			rm := rankedMove{move: m, score: score, see: see}
			if see >= 0 {
				ms.goodCaptures = append(ms.goodCaptures, rm)
			} else {
				ms.badCaptures = append(ms.badCaptures, rm)
			}
			continue
		}

		piece := ms.pos.PieceAt(m.From())
		score := hist.get(piece, m.To())
		ms.quiets = append(ms.quiets, rankedMove{move: m, score: score})
	}

	sortRanked(ms.goodCaptures)
	sortRanked(ms.quiets)
	sortRanked(ms.badCaptures)
}

func (ms *MoveSelector) captureScore(m board.Move, see int) int {
	attacker := ms.pos.PieceAt(m.From()).Type()
	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else if cap := ms.pos.PieceAt(m.To()); cap != board.NoPiece {
		victim = cap.Type()
	} else {
		victim = board.Pawn
	}
	if victim > board.King {
		victim = board.King
	}
	if attacker > board.King {
		attacker = board.King
	}
	return mvvLva[victim][attacker]*1000 + see
}

func sortRanked(rm []rankedMove) {
	for i := 1; i < len(rm); i++ {
		j := i
		for j > 0 && rm[j-1].score < rm[j].score {
			rm[j-1], rm[j] = rm[j], rm[j-1]
			j--
		}
	}
}

// Next returns the next candidate move, or (NoMove, false) when exhausted.
// The caller is responsible for the pseudo-legal post-filter (IsLegal)
// unless this selector was built with NewLegalMoveSelector.
func (ms *MoveSelector) Next() (board.Move, bool) {
	for {
		switch ms.stage {
		case stageTT:
			ms.stage++
			if ms.ttMove != board.NoMove && !ms.legalOnly {
				ms.lastSpecial = true
				ms.lastBad = false
				ms.lastSEE = 0
				return ms.ttMove, true
			}
		case stageGoodCaptures:
			if ms.idx < len(ms.goodCaptures) {
				rm := ms.goodCaptures[ms.idx]
				ms.idx++
				ms.lastSEE = rm.see
				ms.lastBad = false
				ms.lastSpecial = rm.move.IsPromotion()
				return rm.move, true
			}
			ms.stage++
			ms.idx = 0
		case stageKiller1:
			ms.stage++
			if k := ms.killers[0]; k != board.NoMove && !ms.legalOnly && k != ms.ttMove && ms.pos.PseudoLegal(k) {
				ms.lastSpecial = true
				ms.lastBad = false
				ms.lastSEE = 0
				return ms.killers[0], true
			}
		case stageKiller2:
			ms.stage++
			if k := ms.killers[1]; k != board.NoMove && !ms.legalOnly && k != ms.ttMove && k != ms.killers[0] && ms.pos.PseudoLegal(k) {
				ms.lastSpecial = true
				ms.lastBad = false
				ms.lastSEE = 0
				return ms.killers[1], true
			}
		case stageCounter:
			ms.stage++
			if c := ms.counterMove; c != board.NoMove && !ms.legalOnly && c != ms.ttMove && c != ms.killers[0] && c != ms.killers[1] && ms.pos.PseudoLegal(c) {
				ms.lastSpecial = true
				ms.lastBad = false
				ms.lastSEE = 0
				return ms.counterMove, true
			}
		case stageQuiets:
			if ms.capturesOnly {
				ms.stage = stageBadCaptures
				ms.idx = 0
				continue
			}
			if ms.idx < len(ms.quiets) {
				rm := ms.quiets[ms.idx]
				ms.idx++
				ms.lastSpecial = false
				ms.lastBad = false
				ms.lastSEE = 0
				return rm.move, true
			}
			ms.stage++
			ms.idx = 0
		case stageBadCaptures:
			if ms.idx < len(ms.badCaptures) {
				rm := ms.badCaptures[ms.idx]
				ms.idx++
				ms.lastSEE = rm.see
				ms.lastBad = true
				ms.lastSpecial = false
				return rm.move, true
			}
			ms.stage = stageDone
		case stageDone:
			return board.NoMove, false
		}
	}
}

// LastSEE returns the cached SEE value of the most recently emitted move.
func (ms *MoveSelector) LastSEE() int { return ms.lastSEE }

// BadMove reports whether the most recently emitted move came from the
// losing-captures stage.
func (ms *MoveSelector) BadMove() bool { return ms.lastBad }

// SpecialMove reports whether the most recently emitted move was the TT
// move, a killer, a counter-move, or a promotion from the winning-captures
// stage.
func (ms *MoveSelector) SpecialMove() bool { return ms.lastSpecial }
