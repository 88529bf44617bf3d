package event

// TurnStartedData is the data for turn.started events.
type TurnStartedData struct {
	TurnID string `json:"turnID"`
	Prompt string `json:"prompt"`
}

// TurnDeltaData is the data for turn.delta events.
type TurnDeltaData struct {
	TurnID string `json:"turnID"`
	Text   string `json:"text"`
}

// TurnToolUseData is the data for turn.tool_use events.
type TurnToolUseData struct {
	TurnID string `json:"turnID"`
	CallID string `json:"callID"`
	Tool   string `json:"tool"`
}

// TurnToolResultData is the data for turn.tool_result events.
type TurnToolResultData struct {
	TurnID string `json:"turnID"`
	CallID string `json:"callID"`
	Tool   string `json:"tool"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TurnCompletedData is the data for turn.completed events.
type TurnCompletedData struct {
	TurnID string `json:"turnID"`
}

// TurnFailedData is the data for turn.failed events.
type TurnFailedData struct {
	TurnID string `json:"turnID"`
	Error  string `json:"error"`
}

// TurnCancelledData is the data for turn.cancelled events.
type TurnCancelledData struct {
	TurnID string `json:"turnID"`
	Forced bool   `json:"forced,omitempty"`
}

// RegistryUpdatedData is the data for registry.updated events.
type RegistryUpdatedData struct {
	Server string `json:"server,omitempty"`
	Action string `json:"action"` // "add" | "remove" | "enable" | "disable" | "reload"
}

// SessionInvalidatedData is the data for session.invalidated events.
type SessionInvalidatedData struct {
	Reason string `json:"reason"`
}
