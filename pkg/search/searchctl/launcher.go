package searchctl

import (
	"sync"
	"time"

	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/search"
)

// Handle lets the driver manage one in-flight search: stop it and collect
// its last completed iteration.
type Handle interface {
	// Halt stops the search, if running, and returns the last completed
	// iteration's PV. Idempotent.
	Halt() search.PV
}

// Launch starts engine searching pos on a detached goroutine, reporting each
// completed iteration on the returned channel, which is closed when the
// search ends (depth limit, forced mate, or Halt).
func Launch(engine *search.Engine, pos *board.Position, history []board.ZobristHash, opt Options) (Handle, <-chan search.PV) {
	out := make(chan search.PV, 1)
	h := &handle{
		init: iox.NewAsyncCloser(),
	}
	go h.process(engine, pos, history, opt, out)
	return h, out
}

// handle's stop flag is the same atomic.Bool search.Limits.Stop carries into
// the worker, so Halt and the worker's own pollStop share one flag: setting
// it both cancels an in-flight search and, combined with init.Closed(),
// gives Halt a join point once the worker has at least one PV to return.
type handle struct {
	init iox.AsyncCloser
	stop atomic.Bool

	mu sync.Mutex
	pv search.PV
}

func (h *handle) process(engine *search.Engine, pos *board.Position, history []board.ZobristHash, opt Options, out chan search.PV) {
	defer h.init.Close()
	defer close(out)

	start := time.Now()
	deadline, hasDeadline := opt.Deadline(start)

	limits := search.Limits{
		MaxDepth: opt.DepthLimit,
		Infinite: opt.Infinite,
		Stop:     &h.stop,
	}
	if hasDeadline {
		limits.Deadline = deadline
	}

	pv := engine.Search(pos, history, limits, func(pv search.PV) {
		h.mu.Lock()
		h.pv = pv
		h.mu.Unlock()

		select {
		case <-out:
		default:
		}
		out <- pv

		h.init.Close()
	})

	h.mu.Lock()
	h.pv = pv
	h.mu.Unlock()
}

// Halt stops the search and blocks until it has produced at least one
// completed iteration (guaranteed, since depth 1 always runs to completion),
// then returns it.
func (h *handle) Halt() search.PV {
	h.stop.Store(true)
	<-h.init.Closed()

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pv
}
