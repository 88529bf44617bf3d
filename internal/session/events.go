package session

import "encoding/json"

// Event is one item in a turn's event stream. The stream is finite and
// non-rewindable: zero or more TextDelta/ToolUseStart/ToolUseResult events
// followed by exactly one TurnComplete or TurnError.
type Event interface {
	turnEvent()
}

// TextDelta carries an incremental fragment of assistant text.
type TextDelta struct {
	Text string
}

func (TextDelta) turnEvent() {}

// ToolUseStart signals that the backend requested a tool call.
type ToolUseStart struct {
	CallID string
	Tool   string
	Input  json.RawMessage
}

func (ToolUseStart) turnEvent() {}

// ToolUseResult carries the outcome of a tool call.
type ToolUseResult struct {
	CallID string
	Tool   string
	Output string
	Err    string
}

func (ToolUseResult) turnEvent() {}

// TurnComplete terminates a successful turn.
type TurnComplete struct {
	TurnID string
}

func (TurnComplete) turnEvent() {}

// TurnError terminates a failed or cancelled turn.
type TurnError struct {
	TurnID string
	Err    error
}

func (TurnError) turnEvent() {}
