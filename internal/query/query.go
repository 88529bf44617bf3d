// Package query serializes prompt submission and cancellation over a
// session. At most one query is in flight; a stop request cancels the
// active turn and waits a bounded time for the stream to drain before
// forcing the controller back to idle.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/session"
)

// ErrBusy is returned by Submit while a query is streaming or cancelling.
var ErrBusy = errors.New("query: a query is already in flight")

// CancelDrainTimeout is how long Cancel waits for the active stream to
// drain before forcing the controller idle.
const CancelDrainTimeout = 5 * time.Second

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// Streamer starts one streaming turn. *session.Session satisfies it.
type Streamer interface {
	Stream(ctx context.Context, prompt string) (<-chan session.Event, error)
}

// Controller owns the query lifecycle for one chat surface.
type Controller struct {
	mu           sync.Mutex
	state        State
	cancel       context.CancelFunc
	done         chan struct{}
	gen          int
	drainTimeout time.Duration
}

func NewController() *Controller {
	return &Controller{drainTimeout: CancelDrainTimeout}
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts a query, delivering its events to emit from a single
// goroutine. It rejects with ErrBusy unless the controller is idle,
// including while a previous query is still cancelling.
func (c *Controller) Submit(ctx context.Context, sess Streamer, prompt string, emit func(session.Event)) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	ch, err := sess.Stream(runCtx, prompt)
	if err != nil {
		cancel()
		c.mu.Unlock()
		return err
	}

	c.state = StateStreaming
	c.cancel = cancel
	c.gen++
	gen := c.gen
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range ch {
			if c.allow(gen, ev) {
				emit(ev)
			}
		}
		c.finish(gen)
	}()
	return nil
}

// Cancel stops the active query. It is a no-op when idle or when a cancel
// is already in progress. It blocks until the stream drains or the drain
// timeout expires; on timeout the controller is forced idle and any late
// events from the abandoned stream are discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state != StateStreaming {
		c.mu.Unlock()
		return
	}
	c.state = StateCancelling
	cancel := c.cancel
	done := c.done
	gen := c.gen
	timeout := c.drainTimeout
	c.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(timeout):
		c.mu.Lock()
		if c.gen == gen {
			// Invalidate the generation so the stuck pump can never
			// emit again, then release the controller.
			c.gen++
			c.state = StateIdle
			c.cancel = nil
		}
		c.mu.Unlock()
		logging.Warn().Dur("timeout", timeout).Msg("query cancel timed out waiting for stream to drain")
	}
}

// allow gates event delivery. Once a cancel is acknowledged, content and
// tool-start events are suppressed; results and the terminal event still
// pass. A stale generation emits nothing.
func (c *Controller) allow(gen int, ev session.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	if c.state == StateCancelling {
		switch ev.(type) {
		case session.ToolUseResult, session.TurnComplete, session.TurnError:
			return true
		default:
			return false
		}
	}
	return true
}

func (c *Controller) finish(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.state = StateIdle
	c.cancel = nil
}
