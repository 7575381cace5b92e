// Package perft counts the legal move sequences reachable from a position to
// a fixed depth, the standard generator/legality correctness check: see
// https://www.chessprogramming.org/Perft_Results.
package perft

import "github.com/ternchess/tern/pkg/board"

// Count returns the number of legal move sequences of length depth starting
// at pos. depth 0 counts the empty sequence (1).
func Count(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	var nodes uint64
	for _, m := range pos.GenerateMoves(nil, false) {
		if next, ok := pos.MakeMove(m); ok {
			nodes += Count(next, depth-1)
		}
	}
	return nodes
}

// Divide returns, for each legal move at pos, the perft count of the
// remainder of the sequence at depth-1 -- used to localize a generator bug
// to a single root move.
func Divide(pos *board.Position, depth int) []DivideEntry {
	if depth <= 0 {
		return nil
	}

	var out []DivideEntry
	for _, m := range pos.GenerateMoves(nil, false) {
		next, ok := pos.MakeMove(m)
		if !ok {
			continue
		}
		out = append(out, DivideEntry{Move: m, Nodes: Count(next, depth-1)})
	}
	return out
}

// DivideEntry is one root move's perft subtree count.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}
