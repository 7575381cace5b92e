// Package searchctl drives search.Engine asynchronously: it resolves a UCI
// "go" command's time parameters into a deadline and manages the background
// search worker the driver starts, stops and joins.
package searchctl

import "time"

// Options bounds one search call, resolved by the driver from the raw UCI
// "go" parameters before launching -- OurTime/OurInc already picked out for
// whichever color is actually to move.
type Options struct {
	DepthLimit int           // 0 == no limit
	MoveTime   time.Duration // explicit movetime, 0 == not set
	OurTime    time.Duration // remaining clock for the side to move, 0 == not set
	OurInc     time.Duration // increment for the side to move
	Infinite   bool
}

const (
	minTimeLimit    = 100 * time.Millisecond
	clockSafetyGap  = 50 * time.Millisecond
	movesToGoAssume = 30
)

// Deadline computes the fixed time_limit formula: movetime directly if set,
// else our_time/30 + our_inc/2, clamped to [100ms, our_time-50ms]. Infinite
// disables the deadline (ok=false), as does the absence of any time info.
func (o Options) Deadline(start time.Time) (deadline time.Time, ok bool) {
	if o.Infinite {
		return time.Time{}, false
	}
	if o.MoveTime > 0 {
		return start.Add(o.MoveTime), true
	}
	if o.OurTime <= 0 {
		return time.Time{}, false
	}

	limit := o.OurTime/movesToGoAssume + o.OurInc/2

	ceiling := o.OurTime - clockSafetyGap
	if ceiling < 0 {
		ceiling = 0
	}
	if limit > ceiling {
		limit = ceiling
	}
	if limit < minTimeLimit && ceiling >= minTimeLimit {
		limit = minTimeLimit
	}
	return start.Add(limit), true
}
