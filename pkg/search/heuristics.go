package search

import "github.com/ternchess/tern/pkg/board"

// killerSlots is the number of killer moves remembered per ply.
const killerSlots = 2

// Killers records, per ply, the quiet moves that most recently caused a beta
// cutoff there. Tried early in move ordering at that ply on later visits.
type Killers struct {
	slots [board.MaxPly][killerSlots]board.Move
}

// Update installs m as the newest killer at ply, shifting the previous
// killer[0] down to killer[1], unless m is already killer[0].
func (k *Killers) Update(ply int, m board.Move) {
	if ply < 0 || ply >= board.MaxPly || k.slots[ply][0].Equals(m) {
		return
	}
	k.slots[ply][1] = k.slots[ply][0]
	k.slots[ply][0] = m
}

// At returns the two killers for ply, NullMove for any unset slot.
func (k *Killers) At(ply int) (board.Move, board.Move) {
	if ply < 0 || ply >= board.MaxPly {
		return board.NullMove, board.NullMove
	}
	return k.slots[ply][0], k.slots[ply][1]
}

// maxHistory bounds the history table, the saturation point of the
// gravitated-increment update.
const maxHistory = 1 << 14

// History scores quiet moves by how often [from][to] has caused a beta
// cutoff, weighted by depth, used as the final tie-breaker in move ordering.
type History struct {
	table [64][64]int32
}

// Update applies the gravity-towards-bonus formula so the value saturates
// instead of growing without bound: h <- h + bonus - h*|bonus|/maxHistory.
func (h *History) Update(m board.Move, bonus int32) {
	v := &h.table[m.From][m.To]
	*v += bonus - *v*abs32(bonus)/maxHistory
}

func (h *History) Score(m board.Move) int32 {
	return h.table[m.From][m.To]
}

// Clear resets the history table. Tables.Clear calls it, together with
// Killers.Clear, on ucinewgame and at the start of a fresh root search.
func (h *History) Clear() {
	*h = History{}
}

func (k *Killers) Clear() {
	*k = Killers{}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Tables bundles the move-ordering heuristic state that persists across one
// engine "go" search and is cleared on ucinewgame.
type Tables struct {
	Killers Killers
	History History
}

func (t *Tables) Clear() {
	t.Killers.Clear()
	t.History.Clear()
}
