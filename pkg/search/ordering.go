package search

import "github.com/ternchess/tern/pkg/board"

// Move-ordering score bands, highest priority first. Each band is wide
// enough that no lower band can ever outscore a higher one.
const (
	scoreTTMove      = 1_000_000
	scoreCaptureBase = 100_000
	scorePromoBase   = 95_000
	scoreKiller0     = 90_000
	scoreKiller1     = 80_000
)

// attackerRank orders attackers cheapest-first: a pawn capturing is scored
// higher than a queen capturing the same victim.
func attackerRank(p board.Piece) int32 {
	switch p {
	case board.Pawn:
		return 5
	case board.Knight:
		return 4
	case board.Bishop:
		return 3
	case board.Rook:
		return 2
	case board.Queen:
		return 1
	default: // King
		return 0
	}
}

func victimBase(p board.Piece) int32 {
	switch p {
	case board.Pawn:
		return 10
	case board.Knight:
		return 20
	case board.Bishop:
		return 30
	case board.Rook:
		return 40
	case board.Queen:
		return 50
	default:
		return 0
	}
}

// mvvLva is the MVV/LVA table lookup: most valuable victim first, least
// valuable attacker breaking ties within a victim.
func mvvLva(victim, attacker board.Piece) int32 {
	return victimBase(victim) + attackerRank(attacker)
}

func promoIndex(p board.Piece) int32 {
	switch p {
	case board.Knight:
		return 0
	case board.Bishop:
		return 1
	case board.Rook:
		return 2
	default: // Queen
		return 3
	}
}

// isCapture reports whether m captures a piece on pos, including en passant.
func isCapture(pos *board.Position, m board.Move) bool {
	if pos.PieceOn(m.To) != board.NoPiece {
		return true
	}
	ep, ok := pos.EnPassant()
	return ok && m.To == ep && pos.PieceOn(m.From) == board.Pawn
}

// isQuiet reports whether m is neither a capture nor a promotion: the class
// of moves killers and history apply to, and the only class LMR reduces.
func isQuiet(pos *board.Position, m board.Move) bool {
	return !isCapture(pos, m) && m.Promotion == board.NoPiece
}

// scoreMove assigns m its move-ordering score at this node, per the fixed
// priority scheme: TT move, captures by MVV/LVA, promotions, killers, then
// history.
func scoreMove(pos *board.Position, m, ttMove, killer0, killer1 board.Move, hist *History) int32 {
	if !ttMove.IsNull() && m.Equals(ttMove) {
		return scoreTTMove
	}
	if captured := pos.PieceOn(m.To); captured != board.NoPiece {
		return scoreCaptureBase + mvvLva(captured, pos.PieceOn(m.From))
	}
	if ep, ok := pos.EnPassant(); ok && m.To == ep && pos.PieceOn(m.From) == board.Pawn {
		return scoreCaptureBase + mvvLva(board.Pawn, board.Pawn)
	}
	if m.Promotion != board.NoPiece {
		return scorePromoBase + promoIndex(m.Promotion)
	}
	if m.Equals(killer0) {
		return scoreKiller0
	}
	if m.Equals(killer1) {
		return scoreKiller1
	}
	return hist.Score(m)
}

// orderedMoves holds a move list together with precomputed ordering scores,
// consumed one at a time by pop via a per-step selection sort: the next-best
// move is found and swapped into place, so ordering cost stays linear in the
// moves actually played before a cutoff rather than sorting the whole list.
type orderedMoves struct {
	moves  []board.Move
	scores []int32
	next   int
}

func newOrderedMoves(pos *board.Position, moves []board.Move, ttMove, killer0, killer1 board.Move, hist *History) *orderedMoves {
	scores := make([]int32, len(moves))
	for i, m := range moves {
		scores[i] = scoreMove(pos, m, ttMove, killer0, killer1, hist)
	}
	return &orderedMoves{moves: moves, scores: scores}
}

// pop returns the highest-scoring remaining move, or ok=false when exhausted.
func (o *orderedMoves) pop() (board.Move, bool) {
	if o.next >= len(o.moves) {
		return board.NullMove, false
	}
	best := o.next
	for i := o.next + 1; i < len(o.moves); i++ {
		if o.scores[i] > o.scores[best] {
			best = i
		}
	}
	o.moves[o.next], o.moves[best] = o.moves[best], o.moves[o.next]
	o.scores[o.next], o.scores[best] = o.scores[best], o.scores[o.next]
	m := o.moves[o.next]
	o.next++
	return m, true
}
