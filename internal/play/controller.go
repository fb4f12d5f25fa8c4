// Package play runs one player's game: a game.Session plus the asynchronous
// puzzle and hint requests that feed it.
package play

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/log"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

var (
	// ErrBusy is returned when the same kind of request is already outstanding,
	// or a game action arrives while a puzzle is loading.
	ErrBusy = errors.New("request already in progress")
	// ErrNoGame is returned for a hint request before any puzzle has loaded.
	ErrNoGame = errors.New("no puzzle loaded")
)

// Puzzles is what a Controller needs from its provider. *puzzle.Guard
// implements it: Generate always returns a playable puzzle, even alongside an
// error.
type Puzzles interface {
	Generate(ctx context.Context, d game.Difficulty) (puzzle.Puzzle, error)
	Hint(ctx context.Context, target float64, values []float64) (string, error)
}

// Snapshot is a consistent copy of everything a surface renders.
type Snapshot struct {
	ID          string
	State       game.State
	Difficulty  game.Difficulty
	Loading     bool
	LoadingHint bool
	Hint        string
	Error       string
}

// Controller serialises access to one session. Puzzle and hint requests run
// in goroutines tagged with the request generation at launch; a result whose
// generation is no longer current is dropped.
type Controller struct {
	id      string
	puzzles Puzzles
	events  log.EventLogger
	logger  *zap.Logger

	mu          sync.Mutex
	session     *game.Session
	difficulty  game.Difficulty
	gen         int
	loading     bool
	loadingHint bool
	hint        string
	errMsg      string
	cancelLoad  context.CancelFunc
	cancelHint  context.CancelFunc
	hintSeq     int // bumped per hint request and by stopHint
	notify      func()
	closed      bool

	wg sync.WaitGroup
}

// NewController creates a controller with no puzzle loaded. Game events go to
// events, or to a ZapLogger over logger when events is nil.
func NewController(puzzles Puzzles, events log.EventLogger, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))
	if events == nil {
		events = log.NewZapLogger(logger)
	}
	return &Controller{
		id:      id,
		puzzles: puzzles,
		events:  events,
		logger:  logger,
		session: game.NewSession(events),
	}
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Events returns the game event log.
func (c *Controller) Events() log.EventLogger { return c.events }

// SetNotifier registers fn to be called, without the lock held, after each
// asynchronous result is applied.
func (c *Controller) SetNotifier(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// SetDifficulty changes the difficulty used by Restart without starting a game.
func (c *Controller) SetDifficulty(d game.Difficulty) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.difficulty = d
}

// Snapshot returns the current render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:          c.id,
		State:       c.session.State,
		Difficulty:  c.difficulty,
		Loading:     c.loading,
		LoadingHint: c.loadingHint,
		Hint:        c.hint,
		Error:       c.errMsg,
	}
}

// --- Asynchronous requests ---

// NewGame requests a puzzle at difficulty d. The hint and error are cleared
// and any outstanding hint request is cancelled. It returns ErrBusy while a
// puzzle is already loading.
func (c *Controller) NewGame(d game.Difficulty) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrBusy
	}
	if c.loading {
		c.logger.Debug("new game ignored, puzzle already loading")
		return ErrBusy
	}

	c.gen++
	c.stopHint()
	c.difficulty = d
	c.loading = true
	c.hint = ""
	c.errMsg = ""

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelLoad = cancel
	c.wg.Add(1)
	go c.loadPuzzle(ctx, c.gen, c.session.State.Generation, d)
	return nil
}

// Restart requests a new puzzle at the current difficulty.
func (c *Controller) Restart() error {
	c.mu.Lock()
	d := c.difficulty
	c.mu.Unlock()
	return c.NewGame(d)
}

func (c *Controller) loadPuzzle(ctx context.Context, gen, launchedAt int, d game.Difficulty) {
	defer c.wg.Done()
	p, err := c.puzzles.Generate(ctx, d)

	c.mu.Lock()
	if gen != c.gen {
		c.events.Log(log.NewStaleResultEvent(c.session.State.Generation, "puzzle", launchedAt))
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.cancelLoad = nil
	if err != nil {
		c.errMsg = puzzle.LoadFailedMessage
		c.events.Log(log.NewPuzzleFailedEvent(c.session.State.Generation, err))
		if len(p.Numbers) == 0 {
			p = puzzle.FallbackPuzzle()
		}
	}
	if startErr := c.session.Start(p.Target, p.Numbers, d); startErr != nil {
		// Only a non-finite target gets here; Guard already filters those.
		c.errMsg = puzzle.LoadFailedMessage
		fb := puzzle.FallbackPuzzle()
		_ = c.session.Start(fb.Target, fb.Numbers, d)
	}
	st := c.session.State
	c.events.Log(log.NewPuzzleLoadedEvent(st.Generation, d.String(), game.FormatValue(st.Target)))
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// RequestHint asks for a hint about the current position. It returns ErrBusy
// while a puzzle or another hint is loading, game.ErrSolved once solved, and
// ErrNoGame before the first puzzle.
func (c *Controller) RequestHint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed, c.loading, c.loadingHint:
		return ErrBusy
	case c.session.State.Generation == 0:
		return ErrNoGame
	case c.session.State.Solved:
		return game.ErrSolved
	}

	st := c.session.State
	values := st.LiveValues()
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = game.FormatValue(v)
	}
	c.events.Log(log.NewHintRequestedEvent(st.Generation, labels))

	c.loadingHint = true
	c.hintSeq++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelHint = cancel
	c.wg.Add(1)
	go c.fetchHint(ctx, c.hintSeq, st.Generation, st.Target, values)
	return nil
}

func (c *Controller) fetchHint(ctx context.Context, seq, launchedAt int, target float64, values []float64) {
	defer c.wg.Done()
	hint, err := c.puzzles.Hint(ctx, target, values)

	c.mu.Lock()
	if seq != c.hintSeq || ctx.Err() != nil {
		c.events.Log(log.NewStaleResultEvent(c.session.State.Generation, "hint", launchedAt))
		c.mu.Unlock()
		return
	}
	c.loadingHint = false
	c.cancelHint = nil
	if err != nil {
		c.logger.Warn("hint failed", zap.Error(err))
		hint = puzzle.FallbackHint
	}
	c.hint = hint
	c.events.Log(log.NewHintEvent(c.session.State.Generation, hint))
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// stopHint cancels an outstanding hint request and makes its result stale.
// Must be called with mu held.
func (c *Controller) stopHint() {
	c.hintSeq++
	if c.cancelHint != nil {
		c.cancelHint()
		c.cancelHint = nil
	}
	c.loadingHint = false
}

// --- Game actions ---

// Stage moves card id from its claimed location into slot to.
func (c *Controller) Stage(from game.Location, id int, to game.Location) error {
	return c.act(func(s *game.Session) error { return s.Stage(from, id, to) })
}

// Return sends a staged card back to the hand.
func (c *Controller) Return(id int) error {
	return c.act(func(s *game.Session) error { return s.ReturnToHand(id) })
}

// Combine combines the staged cards with op.
func (c *Controller) Combine(op game.Operation) error {
	return c.act(func(s *game.Session) error { return s.Combine(op) })
}

// Undo reverts the last combination, clears the hint and drops any hint
// still loading for the position being undone.
func (c *Controller) Undo() error {
	return c.act(func(s *game.Session) error {
		if err := s.Undo(); err != nil {
			return err
		}
		c.stopHint()
		c.hint = ""
		return nil
	})
}

// act runs fn on the session under the lock. Rejections leave the session as
// it was and are returned for the surface to ignore or report.
func (c *Controller) act(fn func(*game.Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return ErrBusy
	}
	if c.session.State.Generation == 0 {
		return ErrNoGame
	}
	if err := fn(c.session); err != nil {
		if !game.IsRejection(err) {
			return fmt.Errorf("session %s: %w", c.id, err)
		}
		return err
	}
	return nil
}

// IsInert reports whether err only means the request had no effect.
func IsInert(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrNoGame) || game.IsRejection(err)
}

// Wait blocks until no puzzle or hint request is outstanding.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding requests, drops their results and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.stopHint()
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.loading = false
	c.mu.Unlock()
	c.wg.Wait()
}
