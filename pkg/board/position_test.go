package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/board/fen"
)

func TestPosition_DoubleNullMoveIsIdentity(t *testing.T) {
	// MakeNullMove flips exactly once (with no board change beyond clearing
	// en passant), so applying it twice from a position with no en passant
	// target must return to the exact starting orientation and layout.
	pos, _, _, _, err := fen.Decode("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	roundTripped := pos.MakeNullMove().MakeNullMove()
	assert.Equal(t, pos.String(), roundTripped.String())
	assert.Equal(t, pos.Flipped(), roundTripped.Flipped())
}

func TestPosition_NewPositionNormalizesByTurn(t *testing.T) {
	white, _, _, _, err := fen.Decode("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	black, _, _, _, err := fen.Decode("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R b KQkq - 0 1")
	require.NoError(t, err)

	assert.False(t, white.Flipped())
	assert.True(t, black.Flipped())
}

func TestPosition_MakeMoveDoesNotMutateReceiver(t *testing.T) {
	pos, _, _, _, err := fen.Decode(fen.Initial)
	require.NoError(t, err)

	next, ok := pos.MakeMove(board.Move{From: board.E2, To: board.E4})
	require.True(t, ok)
	require.NotNil(t, next)

	assert.Equal(t, fen.Initial, fen.Encode(pos, pos.Turn(), 0, 1), "MakeMove must not mutate the receiver")
	assert.NotEqual(t, pos.String(), next.String())
}

func TestPosition_MakeMoveRejectsMovesThatLeaveKingInCheck(t *testing.T) {
	// White king on e1, black rook on e8, white bishop pinned on e-file at e4:
	// moving the bishop off the e-file would expose the king.
	pos, err := board.NewPosition([]board.Placement{
		{Square: board.E1, Color: board.White, Piece: board.King},
		{Square: board.E4, Color: board.White, Piece: board.Bishop},
		{Square: board.A8, Color: board.Black, Piece: board.King},
		{Square: board.E8, Color: board.Black, Piece: board.Rook},
	}, [4]bool{}, 0, false, board.White)
	require.NoError(t, err)

	_, ok := pos.MakeMove(board.Move{From: board.E4, To: board.D5})
	assert.False(t, ok, "moving the pinned bishop off the e-file must be rejected")

	_, ok = pos.MakeMove(board.Move{From: board.E4, To: board.F5})
	assert.False(t, ok)
}

func TestPosition_EnPassantCaptureRemovesThePawnBehindTheTarget(t *testing.T) {
	pos, _, _, _, err := fen.Decode("rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
	require.NoError(t, err)

	next, ok := pos.MakeMove(board.Move{From: board.E5, To: board.D6})
	require.True(t, ok)

	assert.True(t, next.Flipped(), "the move handed the turn to Black")
	assert.Equal(t, board.Black, next.Turn())
	assert.Equal(t, "rnbqkbnr/ppp1pppp/3P4/8/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3", fen.Encode(next, next.Turn(), 0, 3))
}

func TestPosition_CastlingMovesTheRookToo(t *testing.T) {
	pos, err := board.NewPosition([]board.Placement{
		{Square: board.E1, Color: board.White, Piece: board.King},
		{Square: board.H1, Color: board.White, Piece: board.Rook},
		{Square: board.E8, Color: board.Black, Piece: board.King},
	}, [4]bool{true, false, false, false}, 0, false, board.White)
	require.NoError(t, err)

	next, ok := pos.MakeMove(board.Move{From: board.E1, To: board.G1})
	require.True(t, ok)

	// Position flips after the move; "them" now holds the pieces we just moved.
	assert.Equal(t, board.King, next.PieceOn(board.G1.Flip()))
	assert.Equal(t, board.Rook, next.PieceOn(board.F1.Flip()))
}

func TestZobristHash_EquivalentPositionsHashEqual(t *testing.T) {
	zobrist := board.NewZobristTable(42)

	white, _, _, _, err := fen.Decode(fen.Initial)
	require.NoError(t, err)

	// A position reached by a different move order but identical in every
	// hashed aspect (pieces, castling rights, en passant) must hash equal.
	a, _, _, _, err := fen.Decode("rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1")
	require.NoError(t, err)
	b, _, _, _, err := fen.Decode("rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 5 9")
	require.NoError(t, err)

	assert.Equal(t, zobrist.Hash(a), zobrist.Hash(b), "the hash must be independent of the move clocks")
	assert.NotEqual(t, zobrist.Hash(white), zobrist.Hash(a))
}

func TestZobristHash_IgnoresSideToMove(t *testing.T) {
	zobrist := board.NewZobristTable(7)

	// White to move: White king e1, White queen a1, Black king e8. This is
	// already normalized (White == us, no flip).
	pos, err := board.NewPosition([]board.Placement{
		{Square: board.E1, Color: board.White, Piece: board.King},
		{Square: board.A1, Color: board.White, Piece: board.Queen},
		{Square: board.E8, Color: board.Black, Piece: board.King},
	}, [4]bool{}, 0, false, board.White)
	require.NoError(t, err)

	// The same position with Black to move instead must be described by
	// vertically mirroring every square and swapping colors, so that
	// NewPosition's own turn==Black flip lands on the identical internal
	// us/them layout pos already has.
	mirrored, err := board.NewPosition([]board.Placement{
		{Square: board.E1, Color: board.White, Piece: board.King},
		{Square: board.A8, Color: board.Black, Piece: board.Queen},
		{Square: board.E8, Color: board.Black, Piece: board.King},
	}, [4]bool{}, 0, false, board.Black)
	require.NoError(t, err)

	assert.Equal(t, pos.String(), mirrored.String(), "both must normalize to the identical us/them layout")
	assert.Equal(t, zobrist.Hash(pos), zobrist.Hash(mirrored))
}
