package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/provider"
)

const (
	// MaxToolSteps bounds how many backend round trips a single turn may
	// make when the model keeps requesting tools.
	MaxToolSteps = 8
	// RetryMaxRetries caps retries when stream creation fails.
	RetryMaxRetries = 3
	// RetryInitialInterval is the first retry delay.
	RetryInitialInterval = time.Second
	// RetryMaxInterval caps the delay between retries.
	RetryMaxInterval = 15 * time.Second
)

// newRetryBackoff builds the exponential backoff used when stream creation
// fails. Jitter avoids retry bursts; the context aborts waits early.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, RetryMaxRetries), ctx)
}

// Stream submits a prompt and returns the turn's event channel. The channel
// is closed after the terminal event; callers must receive until it closes.
// At most one stream may be active; concurrent calls fail with
// ErrSessionBusy. Cancelling ctx aborts the turn with a TurnError.
func (s *Session) Stream(ctx context.Context, prompt string) (<-chan Event, error) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return nil, ErrTornDown
	}
	if s.streaming {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.streaming = true
	s.messages = append(s.messages, &schema.Message{Role: schema.User, Content: prompt})
	s.mu.Unlock()

	turnID := ulid.Make().String()
	ch := make(chan Event)
	go s.run(ctx, turnID, ch)
	return ch, nil
}

// pendingCall accumulates a tool call across stream chunks. Argument JSON
// arrives in fragments keyed by call ID.
type pendingCall struct {
	id   string
	name string
	args string
}

func (s *Session) run(ctx context.Context, turnID string, ch chan<- Event) {
	defer func() {
		close(ch)
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	emit := func(ev Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// Terminal events use a plain send. After cancellation both cases of
	// the emit select are ready and the send could lose the race; the
	// receiver drains the channel until close, so this never blocks.
	fail := func(err error) {
		logging.Error().Str("turn", turnID).Err(err).Msg("turn failed")
		ch <- TurnError{TurnID: turnID, Err: err}
	}

	for step := 0; step < MaxToolSteps; step++ {
		stream, err := s.createStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				fail(ctx.Err())
			} else {
				fail(err)
			}
			return
		}

		content, calls, err := s.consume(ctx, stream, emit)
		stream.Close()
		if err == nil && ctx.Err() != nil {
			// The stream ended because the turn was cancelled, not
			// because the model finished.
			err = ctx.Err()
		}
		if err != nil {
			if ctx.Err() != nil {
				fail(ctx.Err())
			} else {
				fail(err)
			}
			return
		}

		if len(calls) == 0 {
			s.appendMessage(&schema.Message{Role: schema.Assistant, Content: content})
			ch <- TurnComplete{TurnID: turnID}
			return
		}

		if !s.executeCalls(ctx, content, calls, emit) {
			fail(ctx.Err())
			return
		}
	}

	fail(fmt.Errorf("turn exceeded %d tool steps", MaxToolSteps))
}

// createStream opens the backend stream, retrying transient failures with
// exponential backoff.
func (s *Session) createStream(ctx context.Context) (*provider.Stream, error) {
	req := &provider.Request{
		System:    s.instructions,
		Messages:  s.snapshotMessages(),
		Tools:     s.tools,
		WebSearch: s.settings.WebSearch,
		MaxTokens: s.maxTokens,
	}

	retry := newRetryBackoff(ctx)
	for {
		stream, err := s.backend.Stream(ctx, req)
		if err == nil {
			return stream, nil
		}
		next := retry.NextBackOff()
		if next == backoff.Stop {
			return nil, err
		}
		logging.Warn().Str("backend", s.backend.Name()).Dur("delay", next).Err(err).Msg("stream creation failed, retrying")
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// consume reads the stream to completion, emitting text deltas and
// collecting tool calls in arrival order.
func (s *Session) consume(ctx context.Context, stream *provider.Stream, emit func(Event) bool) (string, []*pendingCall, error) {
	var content string
	var order []*pendingCall
	byID := make(map[string]*pendingCall)

	for {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return content, order, nil
		}
		if err != nil {
			return "", nil, err
		}
		// Re-check after Recv so a chunk that raced with cancellation is
		// never surfaced.
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if msg.Content != "" {
			content += msg.Content
			if !emit(TextDelta{Text: msg.Content}) {
				return "", nil, ctx.Err()
			}
		}
		for _, tc := range msg.ToolCalls {
			call, ok := byID[tc.ID]
			if !ok {
				call = &pendingCall{id: tc.ID}
				byID[tc.ID] = call
				order = append(order, call)
			}
			if tc.Function.Name != "" {
				call.name = tc.Function.Name
			}
			call.args += tc.Function.Arguments
		}
	}
}

// executeCalls records the assistant's tool-use message, runs each call,
// and feeds the results back into the conversation. Tool failures become
// error results rather than aborting the turn. Returns false only when the
// context was cancelled.
func (s *Session) executeCalls(ctx context.Context, content string, calls []*pendingCall, emit func(Event) bool) bool {
	assistant := &schema.Message{Role: schema.Assistant, Content: content}
	for _, call := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, schema.ToolCall{
			ID: call.id,
			Function: schema.FunctionCall{
				Name:      call.name,
				Arguments: call.args,
			},
		})
	}
	s.appendMessage(assistant)

	for _, call := range calls {
		args := call.args
		if args == "" {
			args = "{}"
		}
		if !emit(ToolUseStart{CallID: call.id, Tool: call.name, Input: json.RawMessage(args)}) {
			return false
		}

		output, err := s.callTool(ctx, call.name, json.RawMessage(args))
		if ctx.Err() != nil {
			return false
		}
		result := ToolUseResult{CallID: call.id, Tool: call.name, Output: output}
		toolContent := output
		if err != nil {
			logging.Warn().Str("tool", call.name).Err(err).Msg("tool call failed")
			result.Err = err.Error()
			toolContent = fmt.Sprintf("Error: %v", err)
		}
		if !emit(result) {
			return false
		}
		s.appendMessage(&schema.Message{Role: schema.Tool, ToolCallID: call.id, Content: toolContent})
	}
	return true
}

func (s *Session) appendMessage(msg *schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *Session) snapshotMessages() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
