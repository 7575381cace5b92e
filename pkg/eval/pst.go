package eval

import "github.com/ternchess/tern/pkg/board"

// PST is a material-plus-piece-square evaluator, tapered between middlegame
// and endgame piece-square tables by the remaining non-pawn material
// ("phase"). Knight, bishop, rook and queen placement bonuses do not vary
// much in character between the middlegame and endgame, so they use a
// single table; pawns and kings change behavior the most across phases
// (passed-pawn pushes, king centralization) and get separate mg/eg tables.
//
// Tables are written in print order -- row 0 is rank 8, row 7 is rank 1,
// each row running file A to H -- which is how piece-square tables are
// conventionally published; pstIndex translates our A1=0 square numbering
// into that layout.
type PST struct{}

// Evaluate returns the material-plus-positional score for the side to move.
func (PST) Evaluate(pos *board.Position) board.Score {
	phase := gamePhase(pos)

	var score board.Score
	score += pieceSquareDiff(pos, board.Pawn, pawnMG, pawnEG, phase)
	score += materialDiff(pos, board.Knight) + pieceSquareDiff(pos, board.Knight, knightTable, knightTable, phase)
	score += materialDiff(pos, board.Bishop) + pieceSquareDiff(pos, board.Bishop, bishopTable, bishopTable, phase)
	score += materialDiff(pos, board.Rook) + pieceSquareDiff(pos, board.Rook, rookTable, rookTable, phase)
	score += materialDiff(pos, board.Queen) + pieceSquareDiff(pos, board.Queen, queenTable, queenTable, phase)
	score += pieceSquareDiff(pos, board.King, kingMG, kingEG, phase)
	score += pinDiff(pos)
	return score
}

// pinPenalty is the centipawn cost of having one of our own pieces pinned
// against our king; pinDiff credits us the same amount for each of theirs.
const pinPenalty = 20

func pinDiff(pos *board.Position) board.Score {
	return board.Score(len(FindPins(pos, false))-len(FindPins(pos, true))) * pinPenalty
}

func materialDiff(pos *board.Position, piece board.Piece) board.Score {
	diff := pos.Us(piece).PopCount() - pos.Them(piece).PopCount()
	return board.Score(diff) * NominalValue(piece)
}

// pieceSquareDiff sums mg/eg-tapered placement bonuses for one piece kind,
// adding our pieces' bonuses and subtracting theirs (their squares are
// mirrored: what is rank 8 for them is rank 1 for us, by normalization).
func pieceSquareDiff(pos *board.Position, piece board.Piece, mg, eg [64]int16, phase int) board.Score {
	var diff int32
	for bb := pos.Us(piece); bb != board.EmptyBitboard; {
		sq := bb.PopLsb()
		diff += int32(taper(mg[pstIndex(sq)], eg[pstIndex(sq)], phase))
	}
	for bb := pos.Them(piece); bb != board.EmptyBitboard; {
		sq := bb.PopLsb().Flip()
		diff -= int32(taper(mg[pstIndex(sq)], eg[pstIndex(sq)], phase))
	}
	// Pawn/knight/etc material is added separately by the caller except for
	// the pawn itself, whose only "material" call site is here.
	if piece == board.Pawn {
		diff += int32(materialDiff(pos, board.Pawn))
	}
	return board.Score(diff)
}

func pstIndex(sq board.Square) int {
	r, f := int(sq.Rank()), int(sq.File())
	return (7-r)*8 + f
}

// phaseWeights mirrors the classic tapered-eval convention: each piece kind
// contributes a fixed weight towards "how middlegame-like" the position is;
// totalPhase is the sum at the start of the game.
const (
	knightPhase = 1
	bishopPhase = 1
	rookPhase   = 2
	queenPhase  = 4
	totalPhase  = knightPhase*4 + bishopPhase*4 + rookPhase*4 + queenPhase*2
)

// gamePhase returns a value in [0, totalPhase]: totalPhase at the start of
// the game (full middlegame weight), 0 once all non-pawn material is gone.
func gamePhase(pos *board.Position) int {
	p := knightPhase*(pos.Us(board.Knight).PopCount()+pos.Them(board.Knight).PopCount()) +
		bishopPhase*(pos.Us(board.Bishop).PopCount()+pos.Them(board.Bishop).PopCount()) +
		rookPhase*(pos.Us(board.Rook).PopCount()+pos.Them(board.Rook).PopCount()) +
		queenPhase*(pos.Us(board.Queen).PopCount()+pos.Them(board.Queen).PopCount())
	if p > totalPhase {
		p = totalPhase
	}
	return p
}

// taper blends a middlegame and endgame value by phase, where phase ==
// totalPhase is pure middlegame and phase == 0 is pure endgame.
func taper(mg, eg int16, phase int) int16 {
	return int16((int(mg)*phase + int(eg)*(totalPhase-phase)) / totalPhase)
}

var pawnMG = [64]int16{
	0, 0, 0, 0, 0, 0, 0, 0,
	98, 134, 61, 95, 68, 126, 34, -11,
	-6, 7, 26, 31, 65, 56, 25, -20,
	-14, 13, 6, 21, 23, 12, 17, -23,
	-27, -2, -5, 12, 17, 6, 10, -25,
	-26, -4, -4, -10, 3, 3, 33, -12,
	-35, -1, -20, -23, -15, 24, 38, -22,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pawnEG = [64]int16{
	0, 0, 0, 0, 0, 0, 0, 0,
	178, 173, 158, 134, 147, 132, 165, 187,
	94, 100, 85, 67, 56, 53, 82, 84,
	32, 24, 13, 5, -2, 4, 17, 17,
	13, 9, -3, -7, -7, -8, 3, -1,
	4, 7, -6, 1, 0, -5, -1, -8,
	13, 8, 8, 10, 13, 0, 2, -7,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int16{
	-167, -89, -34, -49, 61, -97, -15, -107,
	-73, -41, 72, 36, 23, 62, 7, -17,
	-47, 60, 37, 65, 84, 129, 73, 44,
	-9, 17, 19, 53, 37, 69, 18, 22,
	-13, 4, 16, 13, 28, 19, 21, -8,
	-23, -9, 12, 10, 19, 17, 25, -16,
	-29, -53, -12, -3, -1, 18, -14, -19,
	-105, -21, -58, -33, -17, -28, -19, -23,
}

var bishopTable = [64]int16{
	-29, 4, -82, -37, -25, -42, 7, -8,
	-26, 16, -18, -13, 30, 59, 18, -47,
	-16, 37, 43, 40, 35, 50, 37, -2,
	-4, 5, 19, 50, 37, 37, 7, -2,
	-6, 13, 13, 26, 34, 12, 10, 4,
	0, 15, 15, 15, 14, 27, 18, 10,
	4, 15, 16, 0, 7, 21, 33, 1,
	-33, -3, -14, -21, -13, -12, -39, -21,
}

var rookTable = [64]int16{
	32, 42, 32, 51, 63, 9, 31, 43,
	27, 32, 58, 62, 80, 67, 26, 44,
	-5, 19, 26, 36, 17, 45, 61, 16,
	-24, -11, 7, 26, 24, 35, -8, -20,
	-36, -26, -12, -1, 9, -7, 6, -23,
	-45, -25, -16, -17, 3, 0, -5, -33,
	-44, -16, -20, -9, -1, 11, -6, -71,
	-19, -13, 1, 17, 16, 7, -37, -26,
}

var queenTable = [64]int16{
	-28, 0, 29, 12, 59, 44, 43, 45,
	-24, -39, -5, 1, -16, 57, 28, 54,
	-13, -17, 7, 8, 29, 56, 47, 57,
	-27, -27, -16, -16, -1, 17, -2, 1,
	-9, -26, -9, -10, -2, -4, 3, -3,
	-14, 2, -11, -2, -5, 2, 14, 5,
	-35, -8, 11, 2, 8, 15, -3, 1,
	-1, -18, -9, 10, -15, -25, -31, -50,
}

var kingMG = [64]int16{
	-65, 23, 16, -15, -56, -34, 2, 13,
	29, -1, -20, -7, -8, -4, -38, -29,
	-9, 24, 2, -16, -20, 6, 22, -22,
	-17, -20, -12, -27, -30, -25, -14, -36,
	-49, -1, -27, -39, -46, -44, -33, -51,
	-14, -14, -22, -46, -44, -30, -15, -27,
	1, 7, -8, -64, -43, -16, 9, 8,
	-15, 36, 12, -54, 8, -28, 24, 14,
}

var kingEG = [64]int16{
	-74, -35, -18, -18, -11, 15, 4, -17,
	-12, 17, 14, 17, 17, 38, 23, 11,
	10, 17, 23, 15, 20, 45, 44, 13,
	-8, 22, 24, 27, 26, 33, 26, 3,
	-18, -4, 21, 24, 27, 23, 9, -11,
	-19, -3, 11, 21, 23, 16, 7, -9,
	-27, -11, 4, 13, 14, 4, -5, -17,
	-53, -34, -21, -11, -28, -14, -24, -43,
}
