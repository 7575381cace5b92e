package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/board/fen"
	"github.com/ternchess/tern/pkg/eval"
)

// decode parses shape, declaring turn as "w" or "b" against the identical
// placement string. Declaring the same placement with turn=Black reproduces
// exactly what Position.flip would do to the turn=White Position -- an
// "out-of-turn null flip" -- which is the cheapest way to exercise the
// side-to-move symmetry invariant without exporting flip from board.
func decode(t *testing.T, placement string, black bool) *board.Position {
	t.Helper()
	turn := "w"
	if black {
		turn = "b"
	}
	pos, _, _, _, err := fen.Decode(placement + " " + turn + " - - 0 1")
	require.NoError(t, err)
	return pos
}

func TestMaterial_StartingPositionIsBalanced(t *testing.T) {
	pos := decode(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", false)
	assert.Equal(t, board.Score(0), eval.Material{}.Evaluate(pos))
}

func TestMaterial_FavorsExtraPiece(t *testing.T) {
	pos := decode(t, "4k3/8/8/8/8/8/4Q3/4K3", false)
	assert.Positive(t, eval.Material{}.Evaluate(pos))
}

func TestMaterial_SideToMoveSymmetric(t *testing.T) {
	placement := "4k3/8/8/8/4R3/8/8/4K3"
	white := decode(t, placement, false)
	black := decode(t, placement, true)

	assert.Equal(t, eval.Material{}.Evaluate(white), -eval.Material{}.Evaluate(black))
}

func TestPST_Deterministic(t *testing.T) {
	pos := decode(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR", false)
	a := eval.PST{}.Evaluate(pos)
	b := eval.PST{}.Evaluate(pos)
	assert.Equal(t, a, b)
}

func TestPST_SideToMoveSymmetric(t *testing.T) {
	placement := "r3k2r/ppp2ppp/2n5/8/8/2N5/PPP2PPP/R3K2R"
	white := decode(t, placement, false)
	black := decode(t, placement, true)

	assert.Equal(t, eval.PST{}.Evaluate(white), -eval.PST{}.Evaluate(black))
}

func TestPST_BoundedWellBelowMate(t *testing.T) {
	pos := decode(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", false)
	score := eval.PST{}.Evaluate(pos)
	assert.Less(t, score, board.Mate-board.MaxPly)
	assert.Greater(t, score, -(board.Mate - board.MaxPly))
}

func TestPST_PenalizesOwnPinnedPiece(t *testing.T) {
	// Same king and bishop squares, same material; only the rook's file
	// differs, pinning the bishop in one case and not the other.
	pinned := decode(t, "k3r3/8/8/8/8/8/4B3/4K3", false)
	unpinned := decode(t, "k2r4/8/8/8/8/8/4B3/4K3", false)
	assert.Less(t, eval.PST{}.Evaluate(pinned), eval.PST{}.Evaluate(unpinned))
}

func TestFindPins_RookPinsOwnBishop(t *testing.T) {
	// Our bishop on e2 sits between our king on e1 and their rook on e8: pinned.
	pos := decode(t, "k3r3/8/8/8/8/8/4B3/4K3", false)
	pins := eval.FindPins(pos, true)
	require.Len(t, pins, 1)
	assert.Equal(t, board.E2, pins[0].Pinned)
	assert.Equal(t, board.E1, pins[0].Target)
	assert.Equal(t, board.E8, pins[0].Attacker)
}

func TestFindPins_NoPinWhenUnblocked(t *testing.T) {
	pos := decode(t, "k3r3/8/8/8/8/8/8/4K3", false)
	pins := eval.FindPins(pos, true)
	assert.Empty(t, pins)
}
