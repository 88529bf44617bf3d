// Package provider provides the LLM backend abstraction using the Eino
// framework. The wire protocol stays behind the Backend interface; callers
// hand over opaque configuration (instructions, tools, capability flags)
// and consume a message stream.
package provider

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

// Backend is a conversational LLM backend with streaming completions.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Stream creates a streaming completion.
	Stream(ctx context.Context, req *Request) (*Stream, error)
}

// Request carries one completion request.
type Request struct {
	// System is the system-level instruction string.
	System string
	// Messages is the conversation so far, oldest first.
	Messages []*schema.Message
	// Tools lists the tools the backend may call.
	Tools []*schema.ToolInfo
	// WebSearch attaches the backend's web-search capability.
	WebSearch bool
	// MaxTokens caps the response length.
	MaxTokens int
}

// Stream wraps an Eino stream reader. Each received message chunk carries a
// content delta and possibly tool-call fragments; the stream ends with
// io.EOF.
type Stream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewStream creates a new completion stream.
func NewStream(reader *schema.StreamReader[*schema.Message]) *Stream {
	return &Stream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *Stream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *Stream) Close() {
	s.reader.Close()
}

// ToolInfo represents a tool definition independent of the Eino schema.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ConvertToEinoTools converts tool definitions to Eino format.
func ConvertToEinoTools(tools []ToolInfo) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, len(tools))
	for i, t := range tools {
		var params map[string]*schema.ParameterInfo
		if len(t.Parameters) > 0 {
			params = parseJSONSchemaToParams(t.Parameters)
		}

		result[i] = &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		}
	}
	return result
}

// parseJSONSchemaToParams converts a JSON Schema document to Eino
// ParameterInfo. Nested schemas are flattened to their top-level
// properties, which is all the tool servers in practice declare.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
