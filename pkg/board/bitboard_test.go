package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternchess/tern/pkg/board"
)

func TestBitboard(t *testing.T) {
	t.Run("popcount", func(t *testing.T) {
		tests := []struct {
			bb       board.Bitboard
			expected int
		}{
			{board.EmptyBitboard, 0},
			{board.BitMask(board.G4), 1},
			{board.BitMask(board.G3) | board.BitMask(board.G4), 2},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, tt.bb.PopCount())
		}
	})

	t.Run("lsb and poplsb", func(t *testing.T) {
		bb := board.BitMask(board.G3) | board.BitMask(board.G4)
		assert.Equal(t, board.G3, bb.Lsb())

		sq := bb.PopLsb()
		assert.Equal(t, board.G3, sq)
		assert.Equal(t, board.BitMask(board.G4), bb)
	})

	t.Run("string", func(t *testing.T) {
		tests := []struct {
			bb       board.Bitboard
			expected string
		}{
			{board.EmptyBitboard, "--------/--------/--------/--------/--------/--------/--------/--------"},
			{board.BitMask(board.H1), "--------/--------/--------/--------/--------/--------/--------/-------X"},
			{board.BitMask(board.G3) | board.BitMask(board.G4), "--------/--------/--------/--------/------X-/------X-/--------/--------"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, tt.bb.String())
		}
	})

	t.Run("flip is an involution", func(t *testing.T) {
		bb := board.BitMask(board.A1) | board.BitMask(board.H2) | board.BitMask(board.D5)
		assert.Equal(t, bb, bb.Flip().Flip())
		assert.Equal(t, board.BitMask(board.A8), board.BitMask(board.A1).Flip())
	})

	t.Run("king", func(t *testing.T) {
		tests := []struct {
			sq       board.Square
			expected string
		}{
			{board.H1, "--------/--------/--------/--------/--------/--------/------XX/------X-"},
			{board.D1, "--------/--------/--------/--------/--------/--------/--XXX---/--X-X---"},
			{board.A8, "-X------/XX------/--------/--------/--------/--------/--------/--------"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, board.KingAttackboard(tt.sq).String())
		}
	})

	t.Run("knight", func(t *testing.T) {
		tests := []struct {
			sq       board.Square
			expected string
		}{
			{board.H1, "--------/--------/--------/--------/--------/------X-/-----X--/--------"},
			{board.D3, "--------/--------/--------/--X-X---/-X---X--/--------/-X---X--/--X-X---"},
			{board.A8, "--------/--X-----/-X------/--------/--------/--------/--------/--------"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, board.KnightAttackboard(tt.sq).String())
		}
	})

	t.Run("rook stops at first blocker", func(t *testing.T) {
		tests := []struct {
			blockers board.Bitboard
			sq       board.Square
			expected string
		}{
			{board.EmptyBitboard, board.H1, "-------X/-------X/-------X/-------X/-------X/-------X/-------X/XXXXXXX-"},
			{board.BitMask(board.H2), board.H1, "--------/--------/--------/--------/--------/--------/-------X/XXXXXXX-"},
			{board.BitMask(board.H2) | board.BitMask(board.D1), board.H1, "--------/--------/--------/--------/--------/--------/-------X/---XXXX-"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, board.RookAttackboard(tt.blockers, tt.sq).String())
		}
	})

	t.Run("queen composes rook and bishop", func(t *testing.T) {
		blockers := board.EmptyBitboard
		sq := board.D4
		assert.Equal(t, board.RookAttackboard(blockers, sq)|board.BishopAttackboard(blockers, sq), board.QueenAttackboard(blockers, sq))
	})
}
