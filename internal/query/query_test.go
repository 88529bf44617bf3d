package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorchat-ai/tutorchat/internal/session"
)

// fakeStreamer hands out a channel the test feeds by hand.
type fakeStreamer struct {
	mu     sync.Mutex
	ch     chan session.Event
	ctx    context.Context
	err    error
	called int
}

func (f *fakeStreamer) Stream(ctx context.Context, prompt string) (<-chan session.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	f.ctx = ctx
	f.ch = make(chan session.Event, 16)
	return f.ch, nil
}

func (f *fakeStreamer) send(ev session.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch <- ev
}

func (f *fakeStreamer) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.ch)
}

func (f *fakeStreamer) streamCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) emit(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Event, len(r.events))
	copy(out, r.events)
	return out
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 5*time.Second, 5*time.Millisecond, "controller never reached state %v", want)
}

func TestCancelWhenIdleIsNoOp(t *testing.T) {
	c := NewController()
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmitRejectsWhileStreaming(t *testing.T) {
	c := NewController()
	fs := &fakeStreamer{}
	rec := &recorder{}

	require.NoError(t, c.Submit(context.Background(), fs, "first", rec.emit))
	assert.Equal(t, StateStreaming, c.State())

	err := c.Submit(context.Background(), fs, "second", rec.emit)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, fs.called)

	fs.send(session.TurnComplete{TurnID: "t1"})
	fs.close()
	waitForState(t, c, StateIdle)

	require.NoError(t, c.Submit(context.Background(), fs, "third", rec.emit))
	fs.close()
	waitForState(t, c, StateIdle)
}

func TestSubmitPropagatesStreamError(t *testing.T) {
	c := NewController()
	boom := errors.New("session torn down")
	fs := &fakeStreamer{err: boom}

	err := c.Submit(context.Background(), fs, "hi", func(session.Event) {})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, c.State(), "failed submit must leave the controller idle")
}

func TestCancelSuppressesDeltas(t *testing.T) {
	c := NewController()
	fs := &fakeStreamer{}
	rec := &recorder{}

	require.NoError(t, c.Submit(context.Background(), fs, "hi", rec.emit))
	fs.send(session.TextDelta{Text: "before"})
	require.Eventually(t, func() bool {
		return len(rec.all()) == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancelled := make(chan struct{})
	go func() {
		c.Cancel()
		close(cancelled)
	}()
	waitForState(t, c, StateCancelling)

	// The stream context must be cancelled once the stop is acknowledged.
	select {
	case <-fs.streamCtx().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream context was not cancelled")
	}

	fs.send(session.TextDelta{Text: "after"})
	fs.send(session.ToolUseStart{CallID: "c1", Tool: "docs_lookup"})
	fs.send(session.ToolUseResult{CallID: "c1", Tool: "docs_lookup", Output: "partial"})
	fs.send(session.TurnError{TurnID: "t1", Err: context.Canceled})
	fs.close()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("Cancel did not return after the stream drained")
	}
	assert.Equal(t, StateIdle, c.State())

	events := rec.all()
	for _, ev := range events {
		switch e := ev.(type) {
		case session.TextDelta:
			assert.NotEqual(t, "after", e.Text)
		case session.ToolUseStart:
			t.Errorf("tool start surfaced after cancel: %+v", e)
		}
	}
	// The tool result and terminal event still pass through.
	assert.Contains(t, events, session.ToolUseResult{CallID: "c1", Tool: "docs_lookup", Output: "partial"})
	assert.Contains(t, events, session.TurnError{TurnID: "t1", Err: context.Canceled})
}

func TestSubmitRejectsWhileCancelling(t *testing.T) {
	c := NewController()
	fs := &fakeStreamer{}

	require.NoError(t, c.Submit(context.Background(), fs, "hi", func(session.Event) {}))

	go c.Cancel()
	waitForState(t, c, StateCancelling)

	err := c.Submit(context.Background(), fs, "again", func(session.Event) {})
	assert.ErrorIs(t, err, ErrBusy)

	fs.close()
	waitForState(t, c, StateIdle)
}

func TestCancelForcesIdleAfterDrainTimeout(t *testing.T) {
	c := NewController()
	c.drainTimeout = 50 * time.Millisecond
	fs := &fakeStreamer{}
	rec := &recorder{}

	require.NoError(t, c.Submit(context.Background(), fs, "hi", rec.emit))

	// The stream never drains; Cancel must give up and force idle.
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())

	// Late events from the abandoned stream are discarded.
	fs.send(session.TextDelta{Text: "stale"})
	fs.send(session.TurnComplete{TurnID: "t1"})
	fs.close()
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.all(), "no events may surface after a forced idle, got %v", rec.all())

	// And a fresh submission is accepted.
	require.NoError(t, c.Submit(context.Background(), fs, "next", rec.emit))
	fs.send(session.TurnComplete{TurnID: "t2"})
	fs.close()
	waitForState(t, c, StateIdle)
	assert.Contains(t, rec.all(), session.TurnComplete{TurnID: "t2"})
}
