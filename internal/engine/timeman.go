package engine

import (
	"time"

	"github.com/hailam/chessplay/internal/board"
)

// UCILimits mirrors the fields a "go" command can carry.
type UCILimits struct {
	Time       [2]time.Duration
	Inc        [2]time.Duration
	MovesToGo  int
	MoveTime   time.Duration
	Depth      int
	Nodes      uint64
	Infinite   bool
	Ponder     bool
	SearchMoves []board.Move
}

// TimeManager derives and tracks the soft/hard search time budget.
type TimeManager struct {
	soft, hard time.Duration
	start      time.Time
	useTimer   bool
}

// NewTimeManager creates an uninitialized time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init derives soft and hard limits per the documented time budget rules
// and starts the clock. timeBuffer is the engine-option safety margin
// reserved against clock overruns.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, timeBuffer time.Duration) {
	tm.start = time.Now()

	if limits.Infinite || limits.Depth > 0 || limits.Nodes > 0 {
		if limits.Time[us] == 0 && limits.MoveTime == 0 {
			tm.useTimer = false
			tm.soft = time.Hour
			tm.hard = time.Hour
			return
		}
	}

	tm.useTimer = true
	t := limits.Time[us]
	inc := limits.Inc[us]

	var soft, hard time.Duration
	switch {
	case limits.MoveTime > 0:
		v := limits.MoveTime - timeBuffer
		if v < 0 {
			v = 0
		}
		tm.soft, tm.hard = v, v
		return
	case limits.MovesToGo > 0:
		mtg := clampDuration(limits.MovesToGo)
		soft = t / time.Duration(mtg)
		if limits.MovesToGo == 1 {
			hard = t - 250*time.Millisecond
			if half := t / 2; half > hard {
				hard = half
			}
		} else {
			hard = t / 4
			if alt := t * 4 / time.Duration(limits.MovesToGo); alt < hard {
				hard = alt
			}
		}
	default:
		soft = t/30 + inc
		hard = t / 5
		if alt := inc - 250*time.Millisecond; alt > hard {
			hard = alt
		}
	}

	if limits.Ponder {
		soft *= 2
	}

	budget := t - timeBuffer
	if soft > budget {
		soft = budget
	}
	soft = soft * 6 / 10

	if 2*hard < budget {
		hard = 2 * hard
	} else {
		hard = budget
	}

	if soft < 0 {
		soft = 0
	}
	if hard < soft {
		hard = soft
	}

	tm.soft, tm.hard = soft, hard
}

func clampDuration(movestogo int) int {
	if movestogo < 2 {
		return 2
	}
	if movestogo > 20 {
		return 20
	}
	return movestogo
}

// Elapsed returns time since the search started.
func (tm *TimeManager) Elapsed() time.Duration { return time.Since(tm.start) }

// HardLimit is the duration the Watchdog sleeps before forcing a stop.
func (tm *TimeManager) HardLimit() time.Duration { return tm.hard }

// SoftLimit is the duration used by should_deepen to decide whether the
// next iteration can be started.
func (tm *TimeManager) SoftLimit() time.Duration { return tm.soft }

// UsesTimer reports whether this search is time-bounded at all.
func (tm *TimeManager) UsesTimer() bool { return tm.useTimer }

// OutOfSoftTime reports whether starting another iteration is unwise.
func (tm *TimeManager) OutOfSoftTime() bool { return tm.Elapsed() >= tm.soft }
