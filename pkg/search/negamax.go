package search

import (
	"time"

	"go.uber.org/atomic"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/eval"
	"github.com/ternchess/tern/pkg/tt"
)

// run holds the state of one iterative-deepening search call: the
// transposition table and heuristic tables it shares with every iteration,
// plus the per-iteration node counter and stop bookkeeping. It is not safe
// for concurrent use; Engine.Search only ever drives one at a time.
type run struct {
	tt      *tt.Table
	ev      eval.Evaluator
	zobrist *board.ZobristTable
	tables  *Tables

	repetition []board.ZobristHash // indexed by game_ply + ply
	gamePly    int

	evalStack [board.MaxPly + 2]board.Score

	nodes    uint64
	seldepth int

	stop     *atomic.Bool
	stopped  bool
	deadline time.Time
	infinite bool

	// ignoreStop is set for the depth-1 iteration only: iteration 1 always
	// runs to completion regardless of a pending stop, so the engine never
	// reports having no legal move to play.
	ignoreStop bool
}

// pollStop checks the cooperative cancellation flag and deadline every 2048
// nodes, counting this call as one node. Once set, stopped stays set for the
// rest of this run so every pending frame unwinds immediately.
func (r *run) pollStop() bool {
	if r.stopped {
		return true
	}
	r.nodes++
	if r.ignoreStop {
		return false
	}
	if r.nodes&2047 == 0 {
		if r.stop != nil && r.stop.Load() {
			r.stopped = true
		} else if !r.infinite && !r.deadline.IsZero() && time.Now().After(r.deadline) {
			r.stopped = true
		}
	}
	return r.stopped
}

// negamax searches pos to depth, returning its score from the side-to-move's
// perspective and, for PV nodes, the move sequence that achieves it.
func (r *run) negamax(pos *board.Position, depth int, alpha, beta board.Score, ply int, pvNode bool) (board.Score, []board.Move) {
	if depth <= 0 {
		return r.quiescence(pos, alpha, beta, ply)
	}

	// 1. Poll stop.
	if r.pollStop() {
		return 0, nil
	}
	if ply > r.seldepth {
		r.seldepth = ply
	}
	if ply >= board.MaxPly {
		return r.ev.Evaluate(pos), nil
	}

	root := ply == 0
	hash := r.zobrist.Hash(pos)

	// 2. Push the current key onto the repetition stack.
	idx := r.gamePly + ply
	if idx < len(r.repetition) {
		r.repetition[idx] = hash
	}

	// 3. Repetition detection, except at root.
	if !root {
		for i := idx - 2; i >= 0; i -= 2 {
			if r.repetition[i] == hash {
				return 0, nil
			}
		}
	}

	// 4. Check extension, capped so a long forcing line of checks cannot
	// keep cancelling the depth-1 decrement indefinitely: once ply gets
	// close to board.MaxPly, let depth run down instead of extending it.
	inCheck := pos.InCheck()
	if inCheck && ply < board.MaxPly-16 {
		depth++
	}

	// 5. Mate-distance pruning.
	beta = board.MinScore(beta, board.Mate-board.Score(ply))
	alpha = board.MaxScore(alpha, -board.Mate+board.Score(ply))
	if alpha >= beta {
		return alpha, nil
	}

	// 6. TT probe.
	var ttMove board.Move
	if bound, ttDepth, score, move, ok := r.tt.Probe(hash, ply); ok {
		ttMove = move
		if !root && ttDepth >= depth {
			switch bound {
			case tt.ExactBound:
				return score, nil
			case tt.UpperBound:
				if score <= alpha {
					return alpha, nil
				}
			case tt.LowerBound:
				if score >= beta {
					return beta, nil
				}
			}
		}
	}

	// 7. Static evaluation.
	var staticEval board.Score
	if inCheck {
		staticEval = board.NegInf
	} else {
		staticEval = r.ev.Evaluate(pos)
	}
	r.evalStack[ply] = staticEval
	improving := ply >= 2 && !inCheck && staticEval > r.evalStack[ply-2]

	if !inCheck {
		// 8. Reverse futility pruning.
		if !pvNode && depth < 8 && !board.IsMateScore(staticEval) {
			margin := board.Score(70*depth) - 70*boolScore(improving)
			if staticEval >= beta+margin {
				return (staticEval + beta) / 2, nil
			}
		}

		// 9. Null-move pruning.
		if !pvNode && depth >= 3 && staticEval >= beta+20 && beta > -board.Mate+board.MaxPly && hasNonPawnMaterial(pos) {
			nullPos := pos.MakeNullMove()
			rr := (int(staticEval-beta) + 30*depth + 480) / 105
			if rr < 1 {
				rr = 1
			}
			reducedDepth := depth - rr
			if reducedDepth < 0 {
				reducedDepth = 0
			}
			score, _ := r.negamax(nullPos, reducedDepth, -beta, -beta+1, ply+1, false)
			score = -score
			if score >= beta {
				if board.IsMateScore(score) {
					return beta, nil
				}
				return score, nil
			}
		}
	}

	// 10. Generate and order moves.
	killer0, killer1 := r.tables.Killers.At(ply)
	moves := pos.GenerateMoves(nil, false)
	ordered := newOrderedMoves(pos, moves, ttMove, killer0, killer1, &r.tables.History)

	var best board.Move
	var bestPV []board.Move
	legal := 0
	raisedAlpha := false
	var triedQuiets []board.Move

	for {
		m, ok := ordered.pop()
		if !ok {
			break
		}

		// 11. Apply the move; skip if it leaves us in check.
		next, ok := pos.MakeMove(m)
		if !ok {
			continue
		}
		legal++
		quiet := isQuiet(pos, m)

		newDepth := depth - 1

		// 12. PVS / LMR.
		var score board.Score
		var childPV []board.Move
		if legal == 1 {
			s, cpv := r.negamax(next, newDepth, -beta, -alpha, ply+1, pvNode)
			score, childPV = -s, cpv
		} else {
			red := int32(0)
			if quiet && depth >= 3 && !inCheck {
				red = lmrBase(depth, legal)
				if pvNode {
					red--
				}
				if improving {
					red--
				}
				if m.Equals(killer0) || m.Equals(killer1) {
					red--
				}
				red -= r.tables.History.Score(m) / 4096
				if red < 0 {
					red = 0
				}
				if maxRed := int32(newDepth - 1); red > maxRed {
					red = maxRed
				}
				if red < 0 {
					red = 0
				}
			}

			reducedDepth := newDepth - int(red)
			s, _ := r.negamax(next, reducedDepth, -alpha-1, -alpha, ply+1, false)
			score = -s

			if red > 0 && score > alpha {
				s, _ = r.negamax(next, newDepth, -alpha-1, -alpha, ply+1, false)
				score = -s
			}
			if score > alpha && score < beta {
				s, cpv := r.negamax(next, newDepth, -beta, -alpha, ply+1, pvNode)
				score, childPV = -s, cpv
			}
		}

		// 13. Update best / alpha; beta cutoff.
		if score > alpha || best.IsNull() {
			if score > alpha {
				alpha = score
				raisedAlpha = true
			}
			best = m
			bestPV = append([]board.Move{m}, flipPV(childPV)...)
		}

		if score >= beta {
			if quiet {
				bonus := depth * depth
				if bonus > maxHistory {
					bonus = maxHistory
				}
				r.tables.History.Update(m, int32(bonus))
				for _, q := range triedQuiets {
					r.tables.History.Update(q, -int32(bonus))
				}
				r.tables.Killers.Update(ply, m)
			}
			r.tt.Store(hash, tt.LowerBound, ply, depth, beta, m)
			return beta, nil
		}
		if quiet {
			triedQuiets = append(triedQuiets, m)
		}
	}

	// 14. No legal move.
	if legal == 0 {
		if inCheck {
			return -board.Mate + board.Score(ply), nil
		}
		return 0, nil
	}

	// 15. TT store.
	bound := tt.UpperBound
	if raisedAlpha {
		bound = tt.ExactBound
	}
	r.tt.Store(hash, bound, ply, depth, alpha, best)

	return alpha, bestPV
}

// flipPV mirrors every move in a child PV vertically: one ply down, the
// board was seen from the opponent's "us" perspective, so bubbling a move
// sequence up one level requires flipping it once.
func flipPV(pv []board.Move) []board.Move {
	if len(pv) == 0 {
		return nil
	}
	out := make([]board.Move, len(pv))
	for i, m := range pv {
		out[i] = m.Flip()
	}
	return out
}

func boolScore(b bool) board.Score {
	if b {
		return 1
	}
	return 0
}

func hasNonPawnMaterial(pos *board.Position) bool {
	return pos.Us(board.Knight)|pos.Us(board.Bishop)|pos.Us(board.Rook)|pos.Us(board.Queen) != board.EmptyBitboard
}
