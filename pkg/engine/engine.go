// Package engine glues position bookkeeping, the transposition table,
// heuristic tables and the searcher behind one mutex-guarded API, the way a
// protocol driver (UCI or otherwise) wants to drive them.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/seekerror/build"
	"github.com/seekerror/logw"

	"github.com/ternchess/tern/pkg/board"
	"github.com/ternchess/tern/pkg/board/fen"
	"github.com/ternchess/tern/pkg/eval"
	"github.com/ternchess/tern/pkg/search"
	"github.com/ternchess/tern/pkg/search/searchctl"
	"github.com/ternchess/tern/pkg/tt"
)

var version = build.NewVersion(0, 1, 0)

// Options are engine creation / runtime options.
type Options struct {
	// Hash is the transposition table size in MB.
	Hash int
	// Depth is the default search depth limit. If zero, there is no limit.
	// Overridden by a "go depth" argument, if given.
	Depth int
}

func (o Options) String() string {
	return fmt.Sprintf("{hash=%vMB, depth=%v}", o.Hash, o.Depth)
}

const defaultHashMB = 16

// Engine encapsulates the authoritative position, the transposition table,
// heuristic tables and an in-flight search, all under one lock.
type Engine struct {
	name, author string

	zobrist *board.ZobristTable
	ev      eval.Evaluator
	opts    Options

	mu         sync.Mutex
	tt         *tt.Table
	tables     *search.Tables
	pos        *board.Position
	turn       board.Color
	noprogress int
	fullmoves  int
	history    []board.ZobristHash // hash of every position played so far this game, oldest first
	active     searchctl.Handle
}

// Option is an engine creation option.
type Option func(*Engine)

// WithOptions sets the initial runtime options.
func WithOptions(opts Options) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithEvaluator overrides the default evaluator.
func WithEvaluator(ev eval.Evaluator) Option {
	return func(e *Engine) {
		e.ev = ev
	}
}

// WithZobrist configures the Zobrist table's random seed, instead of the
// default seed of zero.
func WithZobrist(seed int64) Option {
	return func(e *Engine) {
		e.zobrist = board.NewZobristTable(seed)
	}
}

func New(ctx context.Context, name, author string, opts ...Option) *Engine {
	e := &Engine{
		name:    name,
		author:  author,
		zobrist: board.NewZobristTable(0),
		ev:      eval.PST{},
		tables:  &search.Tables{},
	}
	for _, fn := range opts {
		fn(e)
	}
	if e.opts.Hash <= 0 {
		e.opts.Hash = defaultHashMB
	}
	e.tt = tt.New(e.opts.Hash)

	_ = e.Reset(ctx, fen.Initial)

	logw.Infof(ctx, "Initialized engine: %v, options=%v", e.Name(), e.opts)
	return e
}

// Name returns the engine name and version.
func (e *Engine) Name() string {
	return fmt.Sprintf("%v %v", e.name, version)
}

// Author returns the author.
func (e *Engine) Author() string {
	return e.author
}

func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.opts
}

func (e *Engine) SetDepth(depth int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.opts.Depth = depth
}

// SetHash resizes the transposition table, clamped to [1,4096] MB.
func (e *Engine) SetHash(ctx context.Context, mb int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tt.Resize(mb); err != nil {
		logw.Errorf(ctx, "Hash resize to %vMB failed, keeping previous table: %v", mb, err)
		return err
	}
	e.opts.Hash = mb
	return nil
}

// ClearHash clears the transposition table in place.
func (e *Engine) ClearHash() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tt.Clear()
}

// Board returns a copy of the current (us-normalized) position, for
// diagnostics and evaluation.
func (e *Engine) Board() *board.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pos.Clone()
}

// Evaluator returns the evaluator the engine searches with.
func (e *Engine) Evaluator() eval.Evaluator {
	return e.ev
}

// Turn returns the real (non-normalized) side to move.
func (e *Engine) Turn() board.Color {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.turn
}

// Flipped reports whether the real side to move is Black, i.e. whether
// pkg/search's us-normalized PV moves need one more flip to render in real
// board orientation.
func (e *Engine) Flipped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pos.Flipped()
}

// Hash returns the Zobrist hash of the current position.
func (e *Engine) Hash() board.ZobristHash {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.zobrist.Hash(e.pos)
}

// HashFull reports how full the transposition table is, in permille.
func (e *Engine) HashFull() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.tt.Permille()
}

// Position returns the current position in FEN.
func (e *Engine) Position() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return fen.Encode(e.pos, e.turn, e.noprogress, e.fullmoves)
}

// Reset sets the position to the given FEN, clearing the repetition history.
// The transposition table and heuristic tables are left as-is: a plain
// "position" command does not imply a new game (see NewGame).
func (e *Engine) Reset(ctx context.Context, position string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActiveLocked(ctx)

	pos, turn, noprogress, fullmoves, err := fen.Decode(position)
	if err != nil {
		return err
	}

	e.pos = pos
	e.turn = turn
	e.noprogress = noprogress
	e.fullmoves = fullmoves
	e.history = e.history[:0]

	logw.Infof(ctx, "Reset %v", position)
	return nil
}

// NewGame clears the transposition table and heuristic tables, per
// "ucinewgame" -- a Reset alone does not do this, since a plain new
// "position" within the same game must not forget TT knowledge.
func (e *Engine) NewGame(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActiveLocked(ctx)
	e.tt.Clear()
	e.tables.Clear()

	logw.Infof(ctx, "New game")
}

// Move applies move, given in real-board pure algebraic notation (e.g.
// "e2e4", "a7a8q"), if it is at least pseudo-legal and does not leave the
// mover's king in check. The pre-move position's hash is pushed onto the
// repetition stack and the game-length counters advance.
func (e *Engine) Move(ctx context.Context, move string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	candidate, err := board.ParseMove(move)
	if err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}
	if e.pos.Flipped() {
		// The incoming notation is in real-board squares; GenerateMoves works
		// in us-normalized squares, which coincide with real ones only when
		// White is to move.
		candidate = candidate.Flip()
	}

	e.haltSearchIfActiveLocked(ctx)

	var found board.Move
	ok := false
	for _, m := range e.pos.GenerateMoves(nil, false) {
		if candidate.Equals(m) {
			found, ok = m, true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid move: %v", move)
	}

	resetClock := isCaptureOrPawnMove(e.pos, found)

	next, ok := e.pos.MakeMove(found)
	if !ok {
		return fmt.Errorf("illegal move: %v", move)
	}

	e.history = append(e.history, e.zobrist.Hash(e.pos))
	if e.turn == board.Black {
		e.fullmoves++
	}
	if resetClock {
		e.noprogress = 0
	} else {
		e.noprogress++
	}
	e.turn = next.Turn()
	e.pos = next

	logw.Infof(ctx, "Move %v", move)
	return nil
}

func isCaptureOrPawnMove(pos *board.Position, m board.Move) bool {
	if pos.PieceOn(m.From) == board.Pawn {
		return true
	}
	return pos.PieceOn(m.To) != board.NoPiece
}

// Analyze starts a search on the current position. opt.DepthLimit defaults
// to the engine's configured depth, if unset.
func (e *Engine) Analyze(ctx context.Context, opt searchctl.Options) (<-chan search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, fmt.Errorf("search already active")
	}
	if opt.DepthLimit <= 0 {
		opt.DepthLimit = e.opts.Depth
	}

	logw.Infof(ctx, "Analyze %v, opt=%+v", e.pos, opt)

	se := &search.Engine{
		TT:      e.tt,
		Eval:    e.ev,
		Zobrist: e.zobrist,
		Tables:  e.tables,
	}

	history := make([]board.ZobristHash, len(e.history))
	copy(history, e.history)

	handle, out := searchctl.Launch(se, e.pos.Clone(), history, opt)
	e.active = handle
	return out, nil
}

// Halt halts the active search and returns its last completed iteration.
func (e *Engine) Halt(ctx context.Context) (search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pv, ok := e.haltSearchIfActiveLocked(ctx)
	if !ok {
		return search.PV{}, fmt.Errorf("no active search")
	}
	return pv, nil
}

func (e *Engine) haltSearchIfActiveLocked(ctx context.Context) (search.PV, bool) {
	if e.active == nil {
		return search.PV{}, false
	}

	pv := e.active.Halt()
	logw.Infof(ctx, "Search halted: %v", pv)

	e.active = nil
	return pv, true
}
