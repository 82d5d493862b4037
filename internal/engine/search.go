package engine

import (
	"time"

	"github.com/hailam/chessplay/internal/board"
)

// PVTable is the triangular principal-variation buffer: pv[ply] mirrors
// pv[ply+1] extended at the front with the move chosen at ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

func (pv *PVTable) line(ply int) []board.Move {
	out := make([]board.Move, pv.length[ply]-ply)
	copy(out, pv.moves[ply][ply:pv.length[ply]])
	return out
}

// SearchData is the owning aggregate for one search session.
type SearchData struct {
	Pos         *board.Position
	RootMoves   []RootMove
	Excluded    []board.Move
	Constraints SearchConstraints
	MultiPV     int

	Nodes uint64

	State      *SharedState
	Generation uint64

	PV    PVTable
	Stack [MaxPly + 1]Node // per-ply killer slots

	History      *History
	CounterMoves *CounterMoves
	TT           *TranspositionTable

	Report Reporter

	lastReportTime time.Time
	lastDepthScore int
}

func newSearchData(pos *board.Position, c SearchConstraints, tt *TranspositionTable, hist *History, counters *CounterMoves, state *SharedState, generation uint64) *SearchData {
	return &SearchData{
		Pos:          pos.Copy(),
		Constraints:  c,
		MultiPV:      1,
		State:        state,
		Generation:   generation,
		History:      hist,
		CounterMoves: counters,
		TT:           tt,
	}
}

func (sd *SearchData) shouldStop() bool {
	if sd.State.ShouldStop() {
		return true
	}
	if sd.Constraints.NodeLimit > 0 && sd.Nodes >= sd.Constraints.NodeLimit {
		sd.State.Set(Stopping)
		return true
	}
	return false
}

func rootMoveIndex(rm []RootMove, excluded []board.Move, m board.Move) int {
	for _, e := range excluded {
		if e == m {
			return -1
		}
	}
	for i := range rm {
		if rm[i].Move == m {
			return i
		}
	}
	return -1
}

func shouldDeepen(sd *SearchData, depth int) bool {
	if depth >= MaxPly-1 {
		return false
	}
	if sd.State.Get() == Pondering {
		return true
	}
	if sd.State.ShouldStop() {
		return false
	}
	if sd.Constraints.Infinite {
		return true
	}
	if sd.Constraints.DepthLimit > 0 && depth > sd.Constraints.DepthLimit {
		return false
	}
	if sd.Constraints.UseTimer && time.Since(sd.Constraints.StartTime) > sd.Constraints.SoftLimit {
		return false
	}
	return true
}

// deepeningSearch runs the 1..depth_limit loop, aspiration windows, and
// multi-PV slots, reporting each completed iteration.
func deepeningSearch(sd *SearchData, report Reporter) {
	sd.Report = report
	sd.lastReportTime = time.Now()

	pvSlots := sd.MultiPV
	if pvSlots < 1 {
		pvSlots = 1
	}

	for depth := 1; shouldDeepen(sd, depth); depth++ {
		sd.Excluded = sd.Excluded[:0]
		var depthScore int

		slots := pvSlots
		if slots > len(sd.RootMoves) {
			slots = len(sd.RootMoves)
		}
		if slots < 1 {
			slots = 1
		}

		for slot := 0; slot < slots; slot++ {
			var score int
			if slot == 0 && depth > 5 && pvSlots == 1 {
				score = aspirationSearch(sd, depth)
			} else {
				score = search(sd, 0, MinScore, MaxScore, float64(depth), board.NoMove)
			}
			depthScore = score

			if sd.shouldStop() {
				break
			}

			best := bestRootMoveIndex(sd.RootMoves, sd.Excluded)
			if best < 0 {
				break
			}
			sd.Excluded = append(sd.Excluded, sd.RootMoves[best].Move)

			if report != nil {
				bound := "exact"
				report.PV(slot+1, depth, score, isMateScore(score), bound, time.Since(sd.Constraints.StartTime), sd.Nodes, sd.RootMoves[best].PV)
			}
		}

		sd.lastDepthScore = depthScore
		sortRootMoves(sd.RootMoves)

		if report != nil {
			report.Depth(depth)
		}
		if sd.shouldStop() {
			return
		}
	}
}

func bestRootMoveIndex(rm []RootMove, excluded []board.Move) int {
	best := -1
	for i := range rm {
		skip := false
		for _, e := range excluded {
			if e == rm[i].Move {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if best < 0 || rm[i].Score > rm[best].Score {
			best = i
		}
	}
	return best
}

var aspirationSchedule = [5]int{10, 35, 75, 300, 600}

func aspirationSearch(sd *SearchData, depth int) int {
	last := sd.lastDepthScore
	alphaMargin, betaMargin := 10, 10
	failLow, failHigh := 0, 0
	alpha := last - alphaMargin
	beta := last + betaMargin

	for {
		score := search(sd, 0, alpha, beta, float64(depth), board.NoMove)
		if sd.shouldStop() {
			return score
		}
		if score <= alpha {
			failLow++
			failHigh = 0
			if failLow >= 5 {
				alpha = MinScore
			} else {
				alpha = last - aspirationSchedule[failLow-1]
			}
			continue
		}
		if score >= beta {
			failHigh++
			failLow = 0
			if failHigh >= 5 {
				beta = MaxScore
			} else {
				beta = last + aspirationSchedule[failHigh-1]
			}
			continue
		}
		return score
	}
}

func futilityMargin(depth int) int {
	return 85 + 15*depth + 2*depth*depth
}

var razorMargin = map[int]int{1: 300, 2: 300, 3: 325}

func lazyScore(pos *board.Position) int {
	if pos.SideToMove == board.White {
		return int(pos.PSQTScore)
	}
	return -int(pos.PSQTScore)
}

func counterMoveFor(cm *CounterMoves, pos *board.Position, prevMove board.Move) board.Move {
	if prevMove == board.NoMove || prevMove.IsNull() {
		return board.NoMove
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}
	return cm.get(piece, prevMove.To())
}

func isDeepPawnPush(pos *board.Position, m board.Move) bool {
	if m.IsPromotion() && m.Promotion() == board.Queen {
		return true
	}
	piece := m.Piece()
	if piece.Type() != board.Pawn {
		return false
	}
	to := m.To()
	if piece.Color() == board.White {
		return to.Rank() == 6
	}
	return to.Rank() == 1
}

func givesCheckCheap(attackData *board.AttackData, m board.Move) bool {
	pt := m.Piece().Type()
	if pt > board.King {
		return false
	}
	return attackData.PotentialChecks[pt].IsSet(m.To())
}

// search is the recursive alpha-beta routine described for full-width and
// zero-window nodes; depth < 1 delegates to quiescence.
func search(sd *SearchData, ply int, alpha, beta int, depth float64, prevMove board.Move) int {
	sd.PV.length[ply] = ply

	if sd.shouldStop() {
		return DrawScore
	}

	if depth < 1 {
		return quiesce(sd, ply, alpha, beta)
	}

	pos := sd.Pos

	if ply > 0 {
		if a := matedIn(ply); alpha < a {
			alpha = a
		}
		if b := mateIn(ply + 1); beta > b {
			beta = b
		}
		if alpha >= beta {
			return alpha
		}
		if pos.IsDraw() || ply == MaxPly {
			return DrawScore
		}
	}

	openWindow := beta-alpha > 1
	depthInt := int(depth)
	inCheck := pos.InCheck()
	hash := pos.Hash

	var ttMove board.Move
	ttEntry, found := sd.TT.Probe(hash)
	if found {
		ttMove = ttEntry.BestMove
		if ttMove != board.NoMove && !pos.PseudoLegal(ttMove) {
			ttMove = board.NoMove
			found = false
		}
	}
	if found && int(ttEntry.Depth) >= depthInt && !openWindow {
		ttScore := ScoreFromTT(int(ttEntry.Score), ply)
		switch ttEntry.Flag {
		case TTExact:
			return ttScore
		case TTLowerBound:
			if ttScore >= beta {
				return ttScore
			}
		case TTUpperBound:
			if ttScore <= alpha {
				return ttScore
			}
		}
	}

	lazy := lazyScore(pos)
	ttMateWarning := false
	if found {
		ttScore := ScoreFromTT(int(ttEntry.Score), ply)
		switch ttEntry.Flag {
		case TTExact:
			lazy = ttScore
		case TTLowerBound:
			if ttScore > lazy {
				lazy = ttScore
			}
		case TTUpperBound:
			if ttScore < lazy {
				lazy = ttScore
			}
		}
		ttMateWarning = isMateScore(ttScore)
	}

	if ply > 0 && depthInt <= 5 && !inCheck && pos.HasNonPawnMaterial() && !ttMateWarning {
		margin := lazy - 2*futilityMargin(depthInt)
		if margin > beta {
			return margin
		}
	}

	if !openWindow && depthInt >= 1 && lazy+200 > beta && !isMateScore(beta) && !inCheck && pos.HasNonPawnMaterial() {
		r := float64((depthInt+10)/4) + clampFloat(float64(lazy-beta)/100, 0, 1.5)
		nullUndo := pos.MakeNullMove()
		score := -search(sd, ply+1, -beta, -beta+1, depth-r, board.NullMove)
		pos.UnmakeNullMove(nullUndo)
		if score >= beta {
			return beta
		}
	} else if !openWindow && !prevMove.IsNull() && depth <= 3.5 && !found && !inCheck && !isMateScore(beta) {
		if margin, ok := razorMargin[clampInt(depthInt, 1, 3)]; ok && lazy+margin < beta {
			if depthInt <= 1 {
				return quiesce(sd, ply, alpha, beta)
			}
			qBeta := beta - margin
			qscore := quiesce(sd, ply, qBeta-1, qBeta)
			if qscore < qBeta {
				return maxInt(alpha, qscore)
			}
		}
	}

	if !found && ttMove == board.NoMove {
		if (openWindow && depthInt >= 5 && beta-lazy <= 300) || (!openWindow && depthInt >= 8 && beta-lazy <= 150) {
			var reduced float64
			if openWindow {
				reduced = 4*depth/5 - 2
			} else {
				reduced = 2*depth/3 - 2
			}
			if reduced >= 1 {
				search(sd, ply, alpha, beta, reduced, prevMove)
				if e2, ok2 := sd.TT.Probe(hash); ok2 {
					ttMove = e2.BestMove
				}
			}
		}
	}

	attackData := pos.ComputeAttackData()
	counterMove := counterMoveFor(sd.CounterMoves, pos, prevMove)
	selector := NewMoveSelector(pos, ttMove, &sd.Stack[ply], counterMove, sd.History)

	bestScore := MinScore
	bestMove := board.NoMove
	origAlpha := alpha
	searched := 0
	var searchedQuiets []board.Move

	for {
		m, ok := selector.Next()
		if !ok {
			break
		}

		rootIdx := -1
		if ply == 0 {
			rootIdx = rootMoveIndex(sd.RootMoves, sd.Excluded, m)
			if rootIdx < 0 {
				continue
			}
		}

		if !pos.IsLegal(m) {
			continue
		}

		givesCheck := givesCheckCheap(&attackData, m)
		deepPawn := isDeepPawnPush(pos, m)
		quietMove := m.IsQuiet()
		lateMove := searched > depthInt*depthInt+1

		see := 0
		if m.IsCapture() || m.IsEnPassant() {
			see = selector.LastSEE()
		} else {
			see = SEE(pos, m)
		}

		ext := 0
		if (givesCheck || deepPawn) && see >= 0 {
			ext = 1
		}

		queenPromo := m.IsPromotion() && m.Promotion() == board.Queen

		applyPruning := ply > 0 && ext == 0 && depthInt < 10 &&
			(!inCheck || (!m.IsCapture() && bestScore > matedIn(MaxPly))) &&
			searched >= depthInt && !queenPromo &&
			bestScore > matedIn(MaxPly) && !selector.SpecialMove()

		if applyPruning {
			piece := pos.PieceAt(m.From())
			if quietMove && depthInt <= 4 && sd.History.get(piece, m.To()) < 0 {
				continue
			}
			if depthInt <= 5 && lazy+see+futilityMargin(depthInt) < alpha+2*searched {
				continue
			}
			if (lateMove || depthInt <= 2) && see < 0 {
				continue
			}
			if see < (-15*depthInt-5)*depthInt {
				continue
			}
		}

		undo := pos.MakeMove(m)
		if !undo.Valid {
			pos.UnmakeMove(m, undo)
			continue
		}
		sd.Nodes++
		searched++

		if ply == 0 {
			sd.RootMoves[rootIdx].Score = MinScore
			if sd.Report != nil && time.Since(sd.lastReportTime) > time.Second {
				sd.lastReportTime = time.Now()
				sd.Report.CurrMove(m, rootIdx+1)
			}
		}

		newDepth := depth + float64(ext) - 1
		var score int
		switch {
		case searched == 1:
			score = -search(sd, ply+1, -beta, -alpha, newDepth, m)
		default:
			r := lmrReduction(searched, depth, selector.BadMove() || see < 0, len(searchedQuiets), selector.SpecialMove())
			if r >= 1 {
				score = -search(sd, ply+1, -alpha-1, -alpha, newDepth-r, m)
				if score > alpha {
					score = -search(sd, ply+1, -alpha-1, -alpha, newDepth, m)
					if openWindow && score > alpha {
						score = -search(sd, ply+1, -beta, -alpha, newDepth, m)
					}
				}
			} else {
				score = -search(sd, ply+1, -alpha-1, -alpha, newDepth, m)
				if score > alpha && openWindow {
					score = -search(sd, ply+1, -beta, -alpha, newDepth, m)
				}
			}
		}

		pos.UnmakeMove(m, undo)

		if quietMove && len(searchedQuiets) < 127 {
			searchedQuiets = append(searchedQuiets, m)
		}

		if sd.shouldStop() {
			return DrawScore
		}

		if ply == 0 && score > sd.RootMoves[rootIdx].Score {
			sd.RootMoves[rootIdx].Score = score
			sd.RootMoves[rootIdx].DepthReached = depthInt
			pv := make([]board.Move, 0, sd.PV.length[1]+1)
			pv = append(pv, m)
			pv = append(pv, sd.PV.line(1)...)
			sd.RootMoves[rootIdx].PV = pv
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				if openWindow {
					sd.PV.update(ply, m)
				}
			}
		}

		if score >= beta {
			if quietMove && !inCheck {
				node := &sd.Stack[ply]
				if node.Killers[0] != m {
					node.Killers[1] = node.Killers[0]
					node.Killers[0] = m
				}
				piece := pos.PieceAt(m.From())
				sd.History.recordSuccess(piece, m.To(), depthInt)
				if prevMove != board.NoMove && !prevMove.IsNull() {
					prevPiece := pos.PieceAt(prevMove.To())
					if prevPiece != board.NoPiece {
						sd.CounterMoves.set(prevPiece, prevMove.To(), m)
					}
				}
				for i := 0; i < len(searchedQuiets)-1; i++ {
					q := searchedQuiets[i]
					sd.History.recordFailure(pos.PieceAt(q.From()), q.To(), depthInt)
				}
			}
			sd.TT.Store(hash, depthInt, ScoreToTT(score, ply), TTLowerBound, bestMove)
			return beta
		}
	}

	if searched == 0 {
		if inCheck {
			return matedIn(ply)
		}
		return DrawScore
	}

	flag := TTUpperBound
	if bestScore > origAlpha {
		flag = TTExact
	}
	sd.TT.Store(hash, depthInt, ScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

func lmrReduction(searched int, depth float64, isBad bool, quietsSearched int, special bool) float64 {
	r := 0.0
	if searched > 2 || quietsSearched > 0 {
		if searched > 5 {
			r = depth / 5
		} else {
			r = 1
		}
	}
	if searched > 6 && isBad {
		r += 1
	}
	if searched > 8 {
		r += 0.5
	}
	if quietsSearched > 8 {
		r += 0.5
	}
	if special {
		r /= 2
	}
	return r
}

// quiesce is the zero-depth tail search: captures, queen promotions, and
// check evasions only.
func quiesce(sd *SearchData, ply, alpha, beta int) int {
	sd.PV.length[ply] = ply

	if sd.shouldStop() {
		return DrawScore
	}

	if a := matedIn(ply); alpha < a {
		alpha = a
	}
	if b := mateIn(ply + 1); beta > b {
		beta = b
	}
	if alpha >= beta {
		return alpha
	}

	pos := sd.Pos
	if pos.IsDraw() {
		return DrawScore
	}

	hash := pos.Hash
	var ttMove board.Move
	if entry, found := sd.TT.Probe(hash); found {
		ttMove = entry.BestMove
		if ttMove != board.NoMove && !pos.PseudoLegal(ttMove) {
			ttMove = board.NoMove
		}
		ttScore := ScoreFromTT(int(entry.Score), ply)
		switch entry.Flag {
		case TTExact:
			return ttScore
		case TTLowerBound:
			if ttScore >= beta {
				return ttScore
			}
		case TTUpperBound:
			if ttScore <= alpha {
				return ttScore
			}
		}
	}

	inCheck := pos.InCheck()
	staticEval := Evaluate(pos)

	bestScore := staticEval
	if inCheck {
		bestScore = matedIn(ply)
	} else {
		if staticEval >= beta {
			sd.TT.Store(hash, 0, ScoreToTT(staticEval, ply), TTLowerBound, board.NoMove)
			return beta
		}
		if staticEval > alpha {
			alpha = staticEval
		}
	}

	attackData := pos.ComputeAttackData()
	selector := NewMoveSelector(pos, ttMove, nil, board.NoMove, sd.History)
	selector.capturesOnly = !inCheck

	origAlpha := alpha
	tried := false
	bestMove := board.NoMove

	for {
		m, ok := selector.Next()
		if !ok {
			break
		}
		if !pos.IsLegal(m) {
			continue
		}

		givesCheck := givesCheckCheap(&attackData, m)
		queenPromo := m.IsPromotion() && m.Promotion() == board.Queen
		see := 0
		if m.IsCapture() || m.IsEnPassant() {
			see = selector.LastSEE()
		}

		safeFromMate := m.IsQuiet() && bestScore > matedIn(MaxPly)
		if !givesCheck && (!inCheck || safeFromMate) && !queenPromo {
			if staticEval+see+65 < alpha {
				continue
			}
		}
		if !inCheck && see < 0 {
			continue
		}

		undo := pos.MakeMove(m)
		if !undo.Valid {
			pos.UnmakeMove(m, undo)
			continue
		}
		sd.Nodes++
		tried = true

		score := -quiesce(sd, ply+1, -beta, -alpha)
		pos.UnmakeMove(m, undo)

		if sd.shouldStop() {
			return DrawScore
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				sd.PV.update(ply, m)
				if score >= beta {
					sd.TT.Store(hash, 0, ScoreToTT(score, ply), TTLowerBound, bestMove)
					return beta
				}
			}
		}
	}

	if !tried && inCheck {
		return matedIn(ply)
	}

	flag := TTUpperBound
	if bestScore > origAlpha {
		flag = TTExact
	}
	sd.TT.Store(hash, 0, ScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
