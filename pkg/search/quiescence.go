package search

import "github.com/ternchess/tern/pkg/board"

// quiescence resolves tactical captures/promotions at a leaf node, to avoid
// evaluating a position in the middle of an exchange. No depth limit is
// imposed beyond board.MaxPly; seldepth tracks how far it actually reaches.
func (r *run) quiescence(pos *board.Position, alpha, beta board.Score, ply int) (board.Score, []board.Move) {
	// 1. Return 0 immediately on stop.
	if r.pollStop() {
		return 0, nil
	}
	if ply > r.seldepth {
		r.seldepth = ply
	}
	if ply >= board.MaxPly {
		return r.ev.Evaluate(pos), nil
	}

	// 2. Stand pat.
	standPat := r.ev.Evaluate(pos)
	if standPat >= beta {
		return beta, nil
	}
	if standPat > alpha {
		alpha = standPat
	}

	// 3. Captures-only moves, ordered, recursed with a negated window. No TT
	// move and no killers at quiescence nodes.
	moves := pos.GenerateMoves(nil, true)
	ordered := newOrderedMoves(pos, moves, board.NullMove, board.NullMove, board.NullMove, &r.tables.History)

	var bestPV []board.Move
	for {
		m, ok := ordered.pop()
		if !ok {
			break
		}
		next, ok := pos.MakeMove(m)
		if !ok {
			continue
		}

		score, childPV := r.quiescence(next, -beta, -alpha, ply+1)
		score = -score

		if score >= beta {
			return beta, nil
		}
		if score > alpha {
			alpha = score
			bestPV = append([]board.Move{m}, flipPV(childPV)...)
		}
	}
	return alpha, bestPV
}
