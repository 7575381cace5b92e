// Package search implements iterative-deepening alpha-beta negamax over
// board.Position, with a transposition table, killer/history move ordering,
// null-move and futility pruning, PVS/LMR, and quiescence at the leaves.
package search

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/eval"
	"github.com/ternchess/tern/pkg/tt"
)

// PV is one completed iterative-deepening iteration: its score, move
// sequence and the resource spend it took to find them.
type PV struct {
	Depth    int
	SelDepth int
	Score    board.Score
	Nodes    uint64
	Time     time.Duration
	Moves    []board.Move
}

func (p PV) String() string {
	var sb strings.Builder
	for i, m := range p.Moves {
		if i > 0 {
			sb.WriteRune(' ')
		}
		sb.WriteString(m.String())
	}
	var nps uint64
	if p.Time > 0 {
		nps = uint64(float64(p.Nodes) / p.Time.Seconds())
	}
	return fmt.Sprintf("depth %v seldepth %v score %v nodes %v time %v nps %v pv %v",
		p.Depth, p.SelDepth, p.Score, p.Nodes, p.Time.Milliseconds(), nps, sb.String())
}

// Limits bounds a single root search call. Stop is the cooperative
// cancellation flag the driver sets on "stop"; it may be nil, in which case
// only Deadline (ignored when Infinite) ends the search early.
type Limits struct {
	MaxDepth int // 0 means bounded only by board.MaxPly
	Deadline time.Time
	Infinite bool
	Stop     *atomic.Bool
}

func (l Limits) depthLimit() int {
	if l.MaxDepth <= 0 || l.MaxDepth > board.MaxPly {
		return board.MaxPly
	}
	return l.MaxDepth
}

// Engine runs searches against a shared transposition table and evaluator.
// A single Engine must not run two searches concurrently; the driver package
// enforces that by joining any prior worker before starting a new one.
type Engine struct {
	TT      *tt.Table
	Eval    eval.Evaluator
	Zobrist *board.ZobristTable
	Tables  *Tables
}

// Search runs iterative deepening from depth 1, calling report after every
// completed iteration, and returns the last completed one. history is the
// Zobrist hash of every position played so far in the real game (oldest
// first); its length is the current game ply. pos is the position to search.
func (e *Engine) Search(pos *board.Position, history []board.ZobristHash, limits Limits, report func(PV)) PV {
	e.Tables.Clear()

	r := &run{
		tt:       e.TT,
		ev:       e.Eval,
		zobrist:  e.Zobrist,
		tables:   e.Tables,
		stop:     limits.Stop,
		deadline: limits.Deadline,
		infinite: limits.Infinite,
	}
	r.repetition = make([]board.ZobristHash, len(history)+board.MaxPly+1)
	copy(r.repetition, history)
	r.gamePly = len(history)

	start := time.Now()
	maxDepth := limits.depthLimit()

	var last PV
	var lastScore board.Score
	for depth := 1; depth <= maxDepth; depth++ {
		r.nodes = 0
		r.seldepth = 0
		r.ignoreStop = depth == 1

		alpha, beta := board.NegInf, board.Inf
		delta := board.Score(18)
		if depth >= 4 {
			alpha = board.MaxScore(lastScore-delta, board.NegInf)
			beta = board.MinScore(lastScore+delta, board.Inf)
		}

		var score board.Score
		var pv []board.Move
		for {
			score, pv = r.negamax(pos, depth, alpha, beta, 0, true)
			if r.stopped {
				break
			}
			if score <= alpha {
				alpha = board.MaxScore(alpha-delta, board.NegInf)
			} else if score >= beta {
				beta = board.MinScore(beta+delta, board.Inf)
			} else {
				break
			}
			delta *= 2
			if delta > 2000 {
				alpha, beta = board.NegInf, board.Inf
			}
		}

		if r.stopped {
			// ignoreStop guarantees this can only happen for depth > 1, so
			// the depth-1 iteration always reported before we get here.
			break
		}

		lastScore = score
		last = PV{
			Depth:    depth,
			SelDepth: r.seldepth,
			Score:    score,
			Nodes:    r.nodes,
			Time:     time.Since(start),
			Moves:    pv,
		}
		report(last)

		if r.stopped || board.IsMateScore(score) {
			break
		}
	}
	return last
}
