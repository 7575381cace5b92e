package search

import (
	"math"

	"github.com/ternchess/tern/pkg/board"
)

// maxOrdinal bounds the move-ordinal axis of the LMR table; ordinals beyond
// it reuse the last row (late moves all reduce about as much).
const maxOrdinal = 64

// lmrTable[d][m] is the base late-move reduction for a move ordered m-th
// (1-based) at remaining depth d: floor(0.5 + ln(d)*ln(m)*0.5).
var lmrTable [board.MaxPly + 1][maxOrdinal]int32

func init() {
	for d := 1; d <= board.MaxPly; d++ {
		for m := 1; m < maxOrdinal; m++ {
			r := 0.5 + math.Log(float64(d))*math.Log(float64(m))*0.5
			lmrTable[d][m] = int32(r)
		}
	}
}

// lmrBase looks up the table entry for depth/ordinal, clamping both axes.
func lmrBase(depth, ordinal int) int32 {
	if depth < 1 {
		depth = 1
	}
	if depth > board.MaxPly {
		depth = board.MaxPly
	}
	if ordinal < 1 {
		ordinal = 1
	}
	if ordinal >= maxOrdinal {
		ordinal = maxOrdinal - 1
	}
	return lmrTable[depth][ordinal]
}
