// Package tt implements a fixed-memory transposition table: open-addressed,
// one slot per bucket, addressed by the low bits of the Zobrist key.
package tt

import (
	"fmt"
	"math/bits"

	"github.com/ternchess/tern/pkg/board"
	"go.uber.org/atomic"
)

// Bound records how a stored score relates to the true value of the node.
type Bound uint8

const (
	ExactBound Bound = iota
	LowerBound
	UpperBound
)

func (b Bound) String() string {
	switch b {
	case ExactBound:
		return "Exact"
	case LowerBound:
		return "Lower"
	case UpperBound:
		return "Upper"
	default:
		return "?"
	}
}

// MinHashMB and MaxHashMB bound the "Hash" UCI option; values outside this
// range are clamped rather than rejected.
const (
	MinHashMB = 1
	MaxHashMB = 4096
)

// entrySize is the amortized bytes per slot: a pointer (8 bytes) plus the
// pointed-to entry (key 8 + score 4 + move 3 + depth 2 + bound 1, rounded).
const entrySize = 32

// entry is one stored search result. Replaced wholesale, never mutated, so a
// probing reader that loads a pointer always sees a consistent snapshot.
type entry struct {
	key   board.ZobristHash
	score board.Score
	move  board.Move
	depth int16
	bound Bound
}

// Table is a fixed-size, depth-preferred transposition table. Safe for
// concurrent probe/store from multiple goroutines, though the engine only
// ever runs one search worker against it at a time.
type Table struct {
	slots []atomic.Pointer[entry]
	mask  uint64
	used  atomic.Uint64
	mb    int
}

// New allocates a table sized to hold roughly mb megabytes of entries,
// rounded down to a power of two number of slots. mb is clamped to
// [MinHashMB, MaxHashMB].
func New(mb int) *Table {
	mb = clampHash(mb)
	n := slotCount(mb)
	return &Table{
		slots: make([]atomic.Pointer[entry], n),
		mask:  n - 1,
		mb:    mb,
	}
}

func clampHash(mb int) int {
	if mb < MinHashMB {
		return MinHashMB
	}
	if mb > MaxHashMB {
		return MaxHashMB
	}
	return mb
}

func slotCount(mb int) uint64 {
	bytes := uint64(mb) << 20
	n := bytes / entrySize
	if n == 0 {
		return 1
	}
	// round down to a power of two so masking replaces modulo.
	return uint64(1) << bits.Len64(n) >> 1
}

// Resize replaces the table's storage for a new Hash size, discarding all
// prior entries. If the allocation fails (pathological Hash values on a
// memory-constrained host), the previous table is left untouched and an
// error is returned for the caller to report as a UCI "info string" rather
// than crash the engine.
func (t *Table) Resize(mb int) (err error) {
	mb = clampHash(mb)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tt: failed to allocate %vMB table: %v", mb, r)
		}
	}()

	n := slotCount(mb)
	slots := make([]atomic.Pointer[entry], n)
	t.slots = slots
	t.mask = n - 1
	t.mb = mb
	t.used.Store(0)
	return nil
}

// Clear discards all entries without changing the table's size.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i].Store(nil)
	}
	t.used.Store(0)
}

// Size reports the table's footprint in bytes.
func (t *Table) Size() uint64 {
	return uint64(len(t.slots)) * entrySize
}

// Permille reports the fraction of slots in use, scaled to [0, 1000].
func (t *Table) Permille() int {
	if len(t.slots) == 0 {
		return 0
	}
	return int(1000 * t.used.Load() / uint64(len(t.slots)))
}

func (t *Table) String() string {
	return fmt.Sprintf("tt[%vMB @ %v‰]", t.mb, t.Permille())
}

// Probe looks up hash and, if present, returns its bound, depth, score and
// best move. ply is the current search ply, used to undo the mate-distance
// adjustment applied at Store time.
func (t *Table) Probe(hash board.ZobristHash, ply int) (Bound, int, board.Score, board.Move, bool) {
	e := t.slots[uint64(hash)&t.mask].Load()
	if e == nil || e.key != hash {
		return ExactBound, 0, 0, board.NullMove, false
	}
	return e.bound, int(e.depth), fromMateAdjusted(e.score, ply), e.move, true
}

// Store records a search result for hash, honoring the always-replace-deeper
// policy: a slot is overwritten if it is empty, already holds this key, or
// the incumbent's depth does not exceed the new entry's depth.
func (t *Table) Store(hash board.ZobristHash, bound Bound, ply, depth int, score board.Score, move board.Move) {
	slot := &t.slots[uint64(hash)&t.mask]
	fresh := &entry{
		key:   hash,
		score: toMateAdjusted(score, ply),
		move:  move,
		depth: int16(depth),
		bound: bound,
	}

	for {
		cur := slot.Load()
		if cur != nil && cur.key != hash && int(cur.depth) > depth {
			return // keep the deeper incumbent from an unrelated position
		}
		if slot.CAS(cur, fresh) {
			if cur == nil {
				t.used.Inc()
			}
			return
		}
	}
}

// toMateAdjusted converts a root-relative mate score into a ply-independent
// one before storing, so the entry can be reused from a different ply.
func toMateAdjusted(score board.Score, ply int) board.Score {
	switch {
	case score > board.Mate-board.MaxPly:
		return score + board.Score(ply)
	case score < -board.Mate+board.MaxPly:
		return score - board.Score(ply)
	default:
		return score
	}
}

// fromMateAdjusted reverses toMateAdjusted at probe time, re-expressing a
// stored mate score relative to the probing ply.
func fromMateAdjusted(score board.Score, ply int) board.Score {
	switch {
	case score > board.Mate-board.MaxPly:
		return score - board.Score(ply)
	case score < -board.Mate+board.MaxPly:
		return score + board.Score(ply)
	default:
		return score
	}
}
