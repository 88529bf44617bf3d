// Package docs provides an MCP server with a documentation lookup tool.
// It is used for exercising the MCP client end to end and as a ready-made
// stdio server to register in the chat client.
package docs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// entries is the built-in topic index.
var entries = map[string]string{
	"goroutine": "A goroutine is a lightweight thread managed by the Go runtime. Start one with the `go` keyword.",
	"channel":   "A channel is a typed conduit for sending and receiving values between goroutines. Created with `make(chan T)`.",
	"context":   "Package context carries deadlines, cancellation signals, and request-scoped values across API boundaries.",
	"interface": "An interface type specifies a method set. A value of any type that implements those methods satisfies the interface.",
	"recursion": "Recursion is a function calling itself with a smaller input until a base case stops the descent.",
}

// NewServer creates a new MCP server with documentation tools.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"docs",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	lookupTool := mcp.NewTool("lookup",
		mcp.WithDescription("Looks up a short documentation entry for a programming topic"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Topic to look up, e.g. goroutine, channel, recursion"),
		),
	)
	s.AddTool(lookupTool, lookupHandler)

	topicsTool := mcp.NewTool("topics",
		mcp.WithDescription("Lists the topics available for lookup"),
	)
	s.AddTool(topicsTool, topicsHandler)

	return s
}

// lookupHandler handles the lookup tool call.
func lookupHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	topicArg, ok := args["topic"]
	if !ok {
		return mcp.NewToolResultError("topic argument is required"), nil
	}

	topic, ok := topicArg.(string)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("topic must be a string, got %T", topicArg)), nil
	}

	entry, ok := entries[strings.ToLower(strings.TrimSpace(topic))]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no entry for topic %q", topic)), nil
	}

	return mcp.NewToolResultText(entry), nil
}

// topicsHandler handles the topics tool call.
func topicsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics := make([]string, 0, len(entries))
	for topic := range entries {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return mcp.NewToolResultText(strings.Join(topics, "\n")), nil
}
