package runtime

import (
	"log/slog"
	"time"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
	"github.com/seqlab/cadence/pkg/ports"
)

// InputController turns the raw key-event stream into the three signals the
// engine cares about: responses, pause toggles, and abort. The two reserved
// control keys are recognized on every poll, regardless of what a phase
// asked to wait for.
type InputController struct {
	source   ports.InputSource
	clock    ports.Clock
	state    *RunState
	pauseKey domain.Key
	abortKey domain.Key
	logger   *slog.Logger

	// onPause is invoked with true when a pause begins and false when it
	// ends, so the caller can show and clear the pause screen.
	onPause func(paused bool)
}

// NewInputController wires a controller to its input source and run state.
func NewInputController(source ports.InputSource, clock ports.Clock, state *RunState, pauseKey, abortKey domain.Key, logger *slog.Logger) *InputController {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &InputController{
		source:   source,
		clock:    clock,
		state:    state,
		pauseKey: pauseKey,
		abortKey: abortKey,
		logger:   logger,
	}
}

// SetPauseNotifier registers the pause screen callback.
func (c *InputController) SetPauseNotifier(fn func(paused bool)) {
	c.onPause = fn
}

// Drain discards every pending event so a stale key press cannot leak into
// the next wait. Control keys are still honored.
func (c *InputController) Drain() {
	for {
		select {
		case ev, ok := <-c.source.Events():
			if !ok {
				c.state.Abort()
				return
			}
			c.absorbControl(ev)
		default:
			return
		}
	}
}

// Checkpoint is called at every phase boundary. It absorbs keys pressed
// during the preceding hold, then honors abort and pause. While paused it
// blocks; the logical experiment clock is frozen because no phase timer is
// running here.
func (c *InputController) Checkpoint() domain.Outcome {
	c.Drain()
	if c.state.Aborted() {
		return domain.OutcomeAborted
	}
	if c.state.Paused() {
		if out := c.blockWhilePaused(); out != domain.OutcomeContinue {
			return out
		}
	}
	return domain.OutcomeContinue
}

// WaitForKey blocks until one of the allowed keys arrives, the timeout
// expires, or the run is aborted. A nil or empty allowed set accepts any
// non-control key. Zero timeout means unbounded.
//
// Pause time never counts against the timeout budget: the deadline is
// re-armed with the remaining budget after each resume.
func (c *InputController) WaitForKey(allowed []domain.Key, timeout time.Duration) (domain.Key, time.Duration, domain.Outcome) {
	allowedSet := make(map[domain.Key]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}

	start := c.clock.Now()
	var pausedFor time.Duration

	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = c.clock.After(timeout)
	}

	elapsed := func() time.Duration {
		return c.clock.Now().Sub(start) - pausedFor
	}

	handle := func(ev ports.KeyEvent) (domain.Key, domain.Outcome, bool) {
		switch ev.Key {
		case c.abortKey:
			c.state.Abort()
			return "", domain.OutcomeAborted, true
		case c.pauseKey:
			if c.state.TogglePause() {
				pauseStart := c.clock.Now()
				if out := c.blockWhilePaused(); out != domain.OutcomeContinue {
					return "", out, true
				}
				pausedFor += c.clock.Now().Sub(pauseStart)
				if timeout > 0 {
					remaining := timeout - elapsed()
					if remaining <= 0 {
						return "", domain.OutcomeTimedOut, true
					}
					deadline = c.clock.After(remaining)
				}
			}
			return "", domain.OutcomeContinue, false
		}
		if len(allowedSet) == 0 || allowedSet[ev.Key] {
			return ev.Key, domain.OutcomeContinue, true
		}
		// Key outside the allowed set: ignored, the wait continues.
		return "", domain.OutcomeContinue, false
	}

	for {
		// Queued events take priority over an already-expired deadline, so
		// a response and a timeout arriving together resolve as a response.
		select {
		case ev, ok := <-c.source.Events():
			if !ok {
				c.state.Abort()
				return "", elapsed(), domain.OutcomeAborted
			}
			if key, out, done := handle(ev); done {
				if out == domain.OutcomeTimedOut {
					return "", timeout, out
				}
				return key, elapsed(), out
			}
			continue
		default:
		}

		select {
		case ev, ok := <-c.source.Events():
			if !ok {
				c.state.Abort()
				return "", elapsed(), domain.OutcomeAborted
			}
			if key, out, done := handle(ev); done {
				if out == domain.OutcomeTimedOut {
					return "", timeout, out
				}
				return key, elapsed(), out
			}
		case <-deadline:
			return "", timeout, domain.OutcomeTimedOut
		}
	}
}

// WaitAny blocks for any key with no deadline. Used by instruction and
// block-break screens.
func (c *InputController) WaitAny() domain.Outcome {
	_, _, out := c.WaitForKey(nil, 0)
	return out
}

// absorbControl applies a control key and silently discards anything else.
func (c *InputController) absorbControl(ev ports.KeyEvent) {
	switch ev.Key {
	case c.abortKey:
		c.state.Abort()
	case c.pauseKey:
		c.state.TogglePause()
	}
}

// blockWhilePaused holds until the pause key toggles the run back on.
// Abort stays honored; everything else is discarded.
func (c *InputController) blockWhilePaused() domain.Outcome {
	if c.onPause != nil {
		c.onPause(true)
	}
	c.logger.Info("run paused")

	for c.state.Paused() {
		ev, ok := <-c.source.Events()
		if !ok {
			c.state.Abort()
			return domain.OutcomeAborted
		}
		switch ev.Key {
		case c.abortKey:
			c.state.Abort()
			return domain.OutcomeAborted
		case c.pauseKey:
			c.state.TogglePause()
		}
	}

	if c.onPause != nil {
		c.onPause(false)
	}
	c.logger.Info("run resumed")
	return domain.OutcomeContinue
}
