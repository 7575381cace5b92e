package eval

import "github.com/ternchess/tern/pkg/board"

// Pin records a pinned piece: attacker and pinned belong to opposing sides,
// target is the piece (normally a king) the pin protects.
type Pin struct {
	Attacker, Pinned, Target board.Square
}

// FindPins returns every pin against the given side's king: an enemy rook,
// bishop or queen whose line to the king is blocked by exactly one of that
// side's own pieces. us selects which king is the pin target -- true for
// our king, false for theirs.
func FindPins(pos *board.Position, us bool) []Pin {
	var king board.Square
	var defenders, ownOcc board.Bitboard
	var rookLike, bishopLike board.Bitboard

	if us {
		king = pos.OurKing()
		defenders = pos.Us(board.Pawn) | pos.Us(board.Knight) | pos.Us(board.Bishop) | pos.Us(board.Rook) | pos.Us(board.Queen)
		rookLike = pos.Them(board.Rook) | pos.Them(board.Queen)
		bishopLike = pos.Them(board.Bishop) | pos.Them(board.Queen)
	} else {
		king = pos.Them(board.King).Lsb()
		defenders = pos.Them(board.Pawn) | pos.Them(board.Knight) | pos.Them(board.Bishop) | pos.Them(board.Rook) | pos.Them(board.Queen)
		rookLike = pos.Us(board.Rook) | pos.Us(board.Queen)
		bishopLike = pos.Us(board.Bishop) | pos.Us(board.Queen)
	}
	blockers := pos.Occupied()
	ownOcc = defenders

	var pins []Pin
	pins = append(pins, findPinsAlongRay(king, blockers, ownOcc, rookLike, board.RookAttackboard)...)
	pins = append(pins, findPinsAlongRay(king, blockers, ownOcc, bishopLike, board.BishopAttackboard)...)
	return pins
}

// findPinsAlongRay looks, from king outward along one slider's geometry, for
// exactly one friendly blocker followed immediately (beyond it) by an enemy
// slider of the matching kind.
func findPinsAlongRay(king board.Square, blockers, ownOcc, attackers board.Bitboard, attackboard func(board.Bitboard, board.Square) board.Bitboard) []Pin {
	var pins []Pin

	rayFromKing := attackboard(blockers, king)
	candidates := rayFromKing & ownOcc
	for bb := candidates; bb != board.EmptyBitboard; {
		pinned := bb.PopLsb()

		// Removing the candidate from the blocker set extends the ray past it;
		// if it now reaches an enemy slider of the right kind, it was pinned.
		beyond := attackboard(blockers&^board.BitMask(pinned), king) &^ rayFromKing
		if hit := beyond & attackers; hit != board.EmptyBitboard {
			pins = append(pins, Pin{Attacker: hit.Lsb(), Pinned: pinned, Target: king})
		}
	}
	return pins
}
