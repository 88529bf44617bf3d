package docs

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	switch name {
	case "lookup":
		handler = lookupHandler
	case "topics":
		handler = topicsHandler
	default:
		t.Fatalf("unknown tool %s", name)
	}

	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	return result
}

func TestDocsServer_Lookup(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
		want    string
	}{
		{name: "known topic", topic: "goroutine", want: "lightweight thread"},
		{name: "case insensitive", topic: "  Channel ", want: "typed conduit"},
		{name: "unknown topic", topic: "monad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, "lookup", map[string]any{"topic": tt.topic})

			text, ok := result.Content[0].(mcp.TextContent)
			require.True(t, ok)

			if tt.wantErr {
				assert.True(t, result.IsError)
				return
			}
			assert.False(t, result.IsError)
			assert.Contains(t, text.Text, tt.want)
		})
	}
}

func TestDocsServer_LookupMissingArgument(t *testing.T) {
	result := callTool(t, "lookup", map[string]any{})
	assert.True(t, result.IsError)
}

func TestDocsServer_Topics(t *testing.T) {
	result := callTool(t, "topics", nil)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "goroutine")
	assert.Contains(t, text.Text, "recursion")
}

func TestNewServer(t *testing.T) {
	s := NewServer()
	require.NotNil(t, s)
}
