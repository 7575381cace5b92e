// Package uci contains a driver for using the engine under the UCI protocol.
// Diagnostic commands (d, eval, perft) are folded into the same driver
// rather than a second protocol surface -- UCI-over-stdio is the only
// external interface this engine supports.
//
// See: http://wbec-ridderkerk.nl/html/UCIProtocol.html
// See: https://en.wikipedia.org/wiki/Universal_Chess_Interface
package uci

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seekerror/logw"
	"go.uber.org/atomic"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/board/fen"
	"github.com/ternchess/tern/pkg/engine"
	"github.com/ternchess/tern/pkg/perft"
	"github.com/ternchess/tern/pkg/search"
	"github.com/ternchess/tern/pkg/search/searchctl"
	"github.com/ternchess/tern/pkg/tt"
)

const ProtocolName = "uci"

const defaultHashMB = 16

// Driver implements a UCI driver for an engine. It is activated if sent "uci".
type Driver struct {
	e *engine.Engine

	out chan<- string

	active       atomic.Bool    // user is waiting for engine to move
	ponder       chan search.PV // chan for intermediate search information
	lastPosition string         // last position line (empty if no last position)

	quit   chan struct{}
	closed atomic.Bool
}

func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string) (*Driver, <-chan string) {
	out := make(chan string, 100)
	d := &Driver{
		e:      e,
		out:    out,
		ponder: make(chan search.PV, 400),
		quit:   make(chan struct{}),
	}
	go d.process(ctx, in)

	return d, out
}

func (d *Driver) Close() {
	if d.closed.CAS(false, true) {
		close(d.quit)
	}
}

func (d *Driver) Closed() <-chan struct{} {
	return d.quit
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "UCI protocol initialized")

	d.out <- fmt.Sprintf("id name %v", d.e.Name())
	d.out <- fmt.Sprintf("id author %v", d.e.Author())
	d.out <- fmt.Sprintf("option name Hash type spin default %v min %v max %v", defaultHashMB, tt.MinHashMB, tt.MaxHashMB)
	d.out <- "option name Clear Hash type button"
	d.out <- "uciok"

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Input stream broken. Exiting")
				return
			}

			parts := strings.Fields(line)
			if len(parts) == 0 {
				break
			}

			cmd := parts[0]
			args := parts[1:]

			switch strings.ToLower(cmd) {
			case "isready":
				d.out <- "readyok"

			case "debug", "register", "ponderhit":
				// Acknowledged implicitly; nothing to do.

			case "setoption":
				d.handleSetOption(ctx, args)

			case "ucinewgame":
				d.ensureInactive(ctx)
				d.e.NewGame(ctx)
				d.lastPosition = ""

			case "position":
				if !d.handlePosition(ctx, line, args) {
					return
				}

			case "go":
				d.handleGo(ctx, args)

			case "stop":
				pv, err := d.e.Halt(ctx)
				if err == nil {
					d.searchCompleted(ctx, pv)
				}

			case "d":
				d.printBoard(ctx)

			case "eval":
				pos := d.e.Board()
				d.out <- fmt.Sprintf("info string eval %v", d.e.Evaluator().Evaluate(pos))

			case "perft":
				d.handlePerft(ctx, args)

			case "quit":
				return

			default:
				logw.Warningf(ctx, "Unknown command %q: %v", cmd, args)
			}

		case pv := <-d.ponder:
			if d.active.Load() {
				d.out <- printPV(pv, d.e.Flipped(), d.e.HashFull())
			}

		case <-d.quit:
			d.ensureInactive(ctx)

			logw.Infof(ctx, "Driver closed")
			return
		}
	}
}

// handleSetOption applies "setoption name <id> [value <x>]". <id> may
// contain embedded spaces (e.g. "Clear Hash"), so the name/value split is
// done by locating the "value" token rather than by fixed argument index.
func (d *Driver) handleSetOption(ctx context.Context, args []string) {
	if len(args) == 0 || args[0] != "name" {
		logw.Warningf(ctx, "Malformed setoption: %v", args)
		return
	}

	rest := args[1:]
	valueAt := -1
	for i, a := range rest {
		if a == "value" {
			valueAt = i
			break
		}
	}

	var name, value string
	if valueAt == -1 {
		name = strings.Join(rest, " ")
	} else {
		name = strings.Join(rest[:valueAt], " ")
		value = strings.Join(rest[valueAt+1:], " ")
	}

	switch name {
	case "Hash":
		n, err := strconv.Atoi(value)
		if err != nil {
			logw.Errorf(ctx, "Invalid Hash value %q: %v", value, err)
			return
		}
		if err := d.e.SetHash(ctx, n); err != nil {
			d.out <- fmt.Sprintf("info string Hash resize failed: %v", err)
		}

	case "Clear Hash":
		d.e.ClearHash()

	default:
		logw.Warningf(ctx, "Unknown option %q", name)
	}
}

// handlePosition applies "position [fen <6 fields> | startpos] [moves ...]".
// Returns false if the driver should terminate (malformed input is logged
// and otherwise ignored per the error-handling policy -- illegal move
// tokens are simply skipped, never fatal).
func (d *Driver) handlePosition(ctx context.Context, line string, args []string) bool {
	d.ensureInactive(ctx)

	if d.lastPosition != "" && strings.HasPrefix(line, d.lastPosition) {
		// Continuation of the same game: only the newly appended moves need
		// to be replayed, not the whole history from scratch.
		moves := strings.TrimSpace(strings.TrimPrefix(line, d.lastPosition))
		for _, arg := range strings.Fields(moves) {
			if arg == "moves" {
				continue
			}
			if err := d.e.Move(ctx, arg); err != nil {
				logw.Warningf(ctx, "Skipping invalid move %q: %v", arg, err)
			}
		}
		d.lastPosition = line
		return true
	}

	position := fen.Initial
	if len(args) >= 7 && args[0] == "fen" {
		position = strings.Join(args[1:7], " ")
	}

	if err := d.e.Reset(ctx, position); err != nil {
		logw.Warningf(ctx, "Invalid position %q, keeping previous state: %v", line, err)
		return true
	}

	apply := false
	for _, arg := range args {
		if arg == "moves" {
			apply = true
			continue
		}
		if !apply {
			continue
		}
		if err := d.e.Move(ctx, arg); err != nil {
			logw.Warningf(ctx, "Skipping invalid move %q: %v", arg, err)
		}
	}
	d.lastPosition = line
	return true
}

// handleGo parses "go [depth N] [movetime ms] [wtime N] [btime N] [winc N]
// [binc N] [infinite]" into searchctl.Options and starts the search worker.
func (d *Driver) handleGo(ctx context.Context, args []string) {
	d.ensureInactive(ctx)

	var opt searchctl.Options
	var wtime, btime, winc, binc time.Duration

	for i := 0; i < len(args); i++ {
		cmd := args[i]
		switch cmd {
		case "depth", "movetime", "wtime", "btime", "winc", "binc", "movestogo", "nodes", "mate":
			i++
			if i == len(args) {
				logw.Errorf(ctx, "No argument for %v", cmd)
				return
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				logw.Errorf(ctx, "Invalid argument for %v: %v", cmd, err)
				return
			}
			switch cmd {
			case "depth":
				opt.DepthLimit = n
			case "movetime":
				opt.MoveTime = time.Duration(n) * time.Millisecond
			case "wtime":
				wtime = time.Duration(n) * time.Millisecond
			case "btime":
				btime = time.Duration(n) * time.Millisecond
			case "winc":
				winc = time.Duration(n) * time.Millisecond
			case "binc":
				binc = time.Duration(n) * time.Millisecond
			case "movestogo", "nodes", "mate":
				// Not modeled; silently ignored, as with any unhandled token.
			}

		case "infinite":
			opt.Infinite = true

		default:
			// searchmoves, ponder, currmove tokens and anything else: ignored.
		}
	}

	if d.e.Turn() == board.White {
		opt.OurTime, opt.OurInc = wtime, winc
	} else {
		opt.OurTime, opt.OurInc = btime, binc
	}

	out, err := d.e.Analyze(ctx, opt)
	if err != nil {
		logw.Errorf(ctx, "Analyze failed: %v", err)
		return
	}
	d.active.Store(true)

	go func() {
		var last search.PV
		for pv := range out {
			last = pv
			d.ponder <- pv
		}
		if !opt.Infinite {
			d.searchCompleted(ctx, last)
		}
	}()
}

func (d *Driver) handlePerft(ctx context.Context, args []string) {
	depth := 4
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			depth = n
		}
	}

	pos := d.e.Board()
	start := time.Now()
	nodes := perft.Count(pos, depth)
	d.out <- fmt.Sprintf("info string perft %v nodes %v time %v", depth, nodes, time.Since(start).Milliseconds())
}

func (d *Driver) printBoard(ctx context.Context) {
	d.out <- fmt.Sprintf("info string fen %v", d.e.Position())
	d.out <- fmt.Sprintf("info string board %v", d.e.Board())
	d.out <- fmt.Sprintf("info string key %x", uint64(d.e.Hash()))
}

func (d *Driver) ensureInactive(ctx context.Context) {
	d.active.Store(false)
	_, _ = d.e.Halt(ctx)
}

func (d *Driver) searchCompleted(ctx context.Context, pv search.PV) {
	if !d.active.CAS(true, false) {
		return // stale or duplicate result
	}

	if len(pv.Moves) > 0 {
		d.out <- printPV(pv, d.e.Flipped(), d.e.HashFull())
		best := pv.Moves[0]
		if d.e.Flipped() {
			best = best.Flip()
		}
		d.out <- fmt.Sprintf("bestmove %v", best)
	} else {
		// No PV: checkmate or stalemate at the root.
		d.out <- "bestmove 0000"
	}
}

// printPV renders one completed iteration as an "info" line. moves are
// produced by pkg/search already un-flipped relative to each other along the
// PV (see search.flipPV); the one remaining transform is whether the whole
// PV needs a single flip to match real board orientation, which depends on
// whether the root position itself was Black-to-move.
func printPV(pv search.PV, rootFlipped bool, hashFull int) string {
	parts := []string{
		"info",
		fmt.Sprintf("depth %v", pv.Depth),
		fmt.Sprintf("seldepth %v", pv.SelDepth),
		fmt.Sprintf("score %v", pv.Score),
	}
	if pv.Nodes > 0 {
		parts = append(parts, fmt.Sprintf("nodes %v", pv.Nodes))
	}
	if pv.Time > 0 {
		parts = append(parts, fmt.Sprintf("time %v", pv.Time.Milliseconds()))
	}
	if pv.Nodes > 0 && pv.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %v", uint64(float64(pv.Nodes)/pv.Time.Seconds())))
	}
	parts = append(parts, fmt.Sprintf("hashfull %v", hashFull))
	if len(pv.Moves) > 0 {
		parts = append(parts, "pv")
		parts = append(parts, formatMoves(pv.Moves, rootFlipped))
	}
	return strings.Join(parts, " ")
}

func formatMoves(moves []board.Move, rootFlipped bool) string {
	rendered := make([]string, len(moves))
	for i, m := range moves {
		if rootFlipped {
			m = m.Flip()
		}
		rendered[i] = m.String()
	}
	return strings.Join(rendered, " ")
}
