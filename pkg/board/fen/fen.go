// Package fen reads and writes chess positions in Forsyth-Edwards Notation.
//
// Only the first four fields (piece placement, active color, castling
// availability, en passant target) are required; half-move and full-move
// counters are accepted and carried separately, since Position itself has no
// notion of game-length counters.
package fen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ternchess/tern/pkg/board"
)

const Initial = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Decode parses a FEN string into a normalized Position plus the real side to
// move, half-move clock and full-move number. Only the first four fields are
// required to build the Position; the last two are informational.
func Decode(s string) (*board.Position, board.Color, int, int, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) < 4 {
		return nil, 0, 0, 0, fmt.Errorf("invalid FEN: too few fields: %q", s)
	}

	placements, err := decodePlacement(parts[0])
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("invalid FEN %q: %w", s, err)
	}

	turn, ok := board.ParseColor(parts[1])
	if !ok {
		return nil, 0, 0, 0, fmt.Errorf("invalid FEN %q: bad active color", s)
	}

	castling, ok := decodeCastling(parts[2])
	if !ok {
		return nil, 0, 0, 0, fmt.Errorf("invalid FEN %q: bad castling field", s)
	}

	var ep board.Square
	hasEP := false
	if parts[3] != "-" {
		sq, err := board.ParseSquareStr(parts[3])
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("invalid FEN %q: bad en passant field: %w", s, err)
		}
		ep, hasEP = sq, true
	}

	noprogress, fullmoves := 0, 1
	if len(parts) > 4 {
		if n, err := strconv.Atoi(parts[4]); err == nil && n >= 0 {
			noprogress = n
		}
	}
	if len(parts) > 5 {
		if n, err := strconv.Atoi(parts[5]); err == nil && n >= 0 {
			fullmoves = n
		}
	}

	// castling is parsed as {white-short, white-long, black-short, black-long};
	// NewPosition maps that onto the us/them halves and flips if Black is to
	// move, so the caller never deals with normalization directly.
	pos, err := board.NewPosition(placements, castling, ep, hasEP, turn)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("invalid FEN %q: %w", s, err)
	}
	return pos, turn, noprogress, fullmoves, nil
}

// Encode renders pos back to FEN. turn must match pos.Turn(); it supplies
// the side-to-move and castling color labels of the output.
func Encode(pos *board.Position, turn board.Color, noprogress, fullmoves int) string {
	var sb strings.Builder

	for r := int(board.NumRanks) - 1; r >= 0; r-- {
		blanks := 0
		for f := board.ZeroFile; f < board.NumFiles; f++ {
			real := board.NewSquare(f, board.Rank(r))
			sq := realSquare(pos, real)
			piece := pos.PieceOn(sq)
			if piece == board.NoPiece {
				blanks++
				continue
			}
			if blanks > 0 {
				sb.WriteString(strconv.Itoa(blanks))
				blanks = 0
			}
			sb.WriteRune(printPiece(isWhiteOccupied(pos, real), piece))
		}
		if blanks > 0 {
			sb.WriteString(strconv.Itoa(blanks))
		}
		if r != 0 {
			sb.WriteString("/")
		}
	}

	ep := "-"
	if sq, ok := pos.EnPassant(); ok {
		ep = realSquare(pos, sq).String()
	}

	return fmt.Sprintf("%v %v %v %v %v %v", sb.String(), turn, printCastling(pos, turn), ep, noprogress, fullmoves)
}

// realSquare translates a us-normalized square back to the real board, given
// that Position.Flipped mirrors every square.
func realSquare(pos *board.Position, sq board.Square) board.Square {
	if pos.Flipped() {
		return sq.Flip()
	}
	return sq
}

func isWhiteOccupied(pos *board.Position, realSq board.Square) bool {
	if !pos.Flipped() {
		return pos.IsUs(realSq) // us == White
	}
	return pos.IsThem(realSq.Flip()) // us == Black, White is "them"
}

func decodePlacement(field string) ([]board.Placement, error) {
	var placements []board.Placement

	sq := board.A8
	file := board.ZeroFile
	for _, r := range field {
		switch {
		case r == '/':
			continue
		case unicode.IsDigit(r):
			n := board.Square(r - '0')
			sq += n
			file += board.File(n)
		case unicode.IsLetter(r):
			color, piece, ok := parsePiece(r)
			if !ok {
				return nil, fmt.Errorf("invalid piece %q", r)
			}
			placements = append(placements, board.Placement{Square: sq, Color: color, Piece: piece})
			sq++
			file++
		default:
			return nil, fmt.Errorf("invalid character %q", r)
		}

		if file == board.NumFiles {
			file = 0
			sq -= 16 // drop down two ranks: off the end of this rank, onto the start of the one below.
		}
	}
	return placements, nil
}

func decodeCastling(field string) ([4]bool, bool) {
	var c [4]bool
	if field == "-" {
		return c, true
	}
	for _, r := range field {
		switch r {
		case 'K':
			c[0] = true
		case 'Q':
			c[1] = true
		case 'k':
			c[2] = true
		case 'q':
			c[3] = true
		default:
			return c, false
		}
	}
	return c, true
}

func printCastling(pos *board.Position, turn board.Color) string {
	c := pos.Castling()

	var usShort, usLong, themShort, themLong bool
	usShort = c.IsAllowed(board.UsShortCastle)
	usLong = c.IsAllowed(board.UsLongCastle)
	themShort = c.IsAllowed(board.ThemShortCastle)
	themLong = c.IsAllowed(board.ThemLongCastle)

	var white, black [2]bool // [0]=short, [1]=long
	if turn == board.White {
		white = [2]bool{usShort, usLong}
		black = [2]bool{themShort, themLong}
	} else {
		black = [2]bool{usShort, usLong}
		white = [2]bool{themShort, themLong}
	}

	if !white[0] && !white[1] && !black[0] && !black[1] {
		return "-"
	}

	var sb strings.Builder
	if white[0] {
		sb.WriteString("K")
	}
	if white[1] {
		sb.WriteString("Q")
	}
	if black[0] {
		sb.WriteString("k")
	}
	if black[1] {
		sb.WriteString("q")
	}
	return sb.String()
}

func parsePiece(r rune) (board.Color, board.Piece, bool) {
	p, ok := board.ParsePiece(r)
	if !ok {
		return 0, 0, false
	}
	if unicode.IsUpper(r) {
		return board.White, p, true
	}
	return board.Black, p, true
}

func printPiece(white bool, p board.Piece) rune {
	s := p.String()
	if white {
		s = strings.ToUpper(s)
	}
	return []rune(s)[0]
}
