package tt_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/tt"
)

func TestTable_ProbeMiss(t *testing.T) {
	table := tt.New(1)

	_, _, _, _, ok := table.Probe(board.ZobristHash(rand.Uint64()), 0)
	assert.False(t, ok)
}

func TestTable_StoreProbeRoundTrip(t *testing.T) {
	table := tt.New(1)

	hash := board.ZobristHash(rand.Uint64())
	move := board.Move{From: board.G4, To: board.G8, Promotion: board.Queen}

	table.Store(hash, tt.ExactBound, 2, 5, board.Score(120), move)

	bound, depth, score, got, ok := table.Probe(hash, 2)
	require.True(t, ok)
	assert.Equal(t, tt.ExactBound, bound)
	assert.Equal(t, 5, depth)
	assert.Equal(t, board.Score(120), score)
	assert.Equal(t, move, got)

	_, _, _, _, ok = table.Probe(hash^0xff00ff, 2)
	assert.False(t, ok)
}

func TestTable_ReplacementPolicy(t *testing.T) {
	table := tt.New(1)
	hash := board.ZobristHash(rand.Uint64())
	move := board.Move{From: board.A2, To: board.A4}

	table.Store(hash, tt.ExactBound, 4, 3, board.Score(5), move)

	// A shallower write to the same key still replaces -- "already this key"
	// bypasses the depth comparison.
	table.Store(hash, tt.UpperBound, 4, 1, board.Score(-5), move)
	bound, depth, score, _, ok := table.Probe(hash, 4)
	require.True(t, ok)
	assert.Equal(t, tt.UpperBound, bound)
	assert.Equal(t, 1, depth)
	assert.Equal(t, board.Score(-5), score)

	// A deeper write to the same key always replaces.
	table.Store(hash, tt.LowerBound, 4, 6, board.Score(9), move)
	bound, depth, score, _, ok = table.Probe(hash, 4)
	require.True(t, ok)
	assert.Equal(t, tt.LowerBound, bound)
	assert.Equal(t, 6, depth)
	assert.Equal(t, board.Score(9), score)
}

func TestTable_MateScoreAdjustment(t *testing.T) {
	table := tt.New(1)
	hash := board.ZobristHash(rand.Uint64())

	// A mate-in-1-from-root score stored at ply 3 should read back adjusted
	// to whatever ply it is probed from.
	mateScore := board.Mate - 1
	table.Store(hash, tt.ExactBound, 3, 10, mateScore, board.NullMove)

	_, _, score, _, ok := table.Probe(hash, 3)
	require.True(t, ok)
	assert.Equal(t, mateScore, score)

	_, _, score, _, ok = table.Probe(hash, 5)
	require.True(t, ok)
	assert.Equal(t, mateScore-2, score)
}

func TestTable_ResizeClampsHash(t *testing.T) {
	table := tt.New(tt.MaxHashMB * 2)
	assert.LessOrEqual(t, table.Size(), uint64(tt.MaxHashMB)<<20)

	require.NoError(t, table.Resize(tt.MinHashMB/2))
	assert.Greater(t, table.Size(), uint64(0))
}

func TestTable_ClearResetsUsed(t *testing.T) {
	table := tt.New(1)
	hash := board.ZobristHash(rand.Uint64())
	// Permille is per-mille of all slots, so fill enough of them to register.
	for i := 0; i < 100; i++ {
		table.Store(hash+board.ZobristHash(i), tt.ExactBound, 0, 1, board.Score(1), board.NullMove)
	}
	assert.Greater(t, table.Permille(), 0)

	table.Clear()
	assert.Equal(t, 0, table.Permille())

	_, _, _, _, ok := table.Probe(hash, 0)
	assert.False(t, ok)
}
