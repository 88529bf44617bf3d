// Package mcp dials external tool servers over the Model Context Protocol
// using the official MCP SDK. It supports stdio (local subprocess), SSE, and
// streamable HTTP transports.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

// connectTimeout bounds the per-server handshake.
const connectTimeout = 5 * time.Second

// Tool represents a tool exposed by an attached server, with its name
// prefixed by the server name.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Dialer establishes MCP connections from registry server configs.
type Dialer struct {
	client *sdkmcp.Client
}

// NewDialer creates a new dialer.
func NewDialer() *Dialer {
	return &Dialer{
		client: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    "tutorchat",
			Version: "1.0.0",
		}, nil),
	}
}

// Attach connects to one server and lists its tools. The returned Conn owns
// the underlying transport until Close.
func (d *Dialer) Attach(ctx context.Context, cfg registry.ServerConfig) (*Conn, error) {
	session, err := d.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	conn := &Conn{name: cfg.Name, session: session}
	if err := conn.refreshTools(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	return conn, nil
}

// Test performs a connect-and-list handshake and tears the connection down
// again, reporting how long the handshake took. It never leaves a
// connection behind.
func (d *Dialer) Test(ctx context.Context, cfg registry.ServerConfig) (time.Duration, error) {
	start := time.Now()

	conn, err := d.Attach(ctx, cfg)
	if err != nil {
		return 0, err
	}
	conn.Close()

	return time.Since(start), nil
}

// connect builds the transport for the config's transport type and performs
// the MCP handshake.
func (d *Dialer) connect(ctx context.Context, cfg registry.ServerConfig) (*sdkmcp.ClientSession, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Transport {
	case registry.TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("empty command")
		}
		cmd := exec.Command(expandEnv(cfg.Command), expandEnvAll(cfg.Args)...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, expandEnv(v)))
		}
		return d.client.Connect(connectCtx, &sdkmcp.CommandTransport{Command: cmd}, nil)

	case registry.TransportSSE:
		transport := &sdkmcp.SSEClientTransport{Endpoint: expandEnv(cfg.URL)}
		return d.client.Connect(connectCtx, transport, nil)

	case registry.TransportHTTP:
		transport := &sdkmcp.StreamableClientTransport{Endpoint: expandEnv(cfg.URL)}
		return d.client.Connect(connectCtx, transport, nil)

	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Transport)
	}
}

// Conn is one live connection to a tool server.
type Conn struct {
	name    string
	session *sdkmcp.ClientSession
	tools   []Tool
}

// Name returns the server name.
func (c *Conn) Name() string {
	return c.name
}

// Tools returns the server's tools with prefixed names.
func (c *Conn) Tools() []Tool {
	return c.tools
}

// refreshTools lists the server's tools, prefixing each name.
func (c *Conn) refreshTools(ctx context.Context) error {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return err
	}

	c.tools = make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = nil
		}
		c.tools = append(c.tools, Tool{
			Name:        PrefixToolName(c.name, t.Name),
			Description: t.Description,
			InputSchema: schema,
		})
	}

	return nil
}

// Owns reports whether a prefixed tool name belongs to this connection.
func (c *Conn) Owns(toolName string) bool {
	return strings.HasPrefix(toolName, sanitizeName(c.name)+"_")
}

// CallTool executes a tool by its prefixed name and returns the text
// content of the result.
func (c *Conn) CallTool(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	if !c.Owns(toolName) {
		return "", fmt.Errorf("tool %s does not belong to server %s", toolName, c.name)
	}
	original := strings.TrimPrefix(toolName, sanitizeName(c.name)+"_")

	var argsMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argsMap); err != nil {
			return "", fmt.Errorf("failed to parse arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      original,
		Arguments: argsMap,
	})
	if err != nil {
		return "", err
	}

	var output strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			output.WriteString(textContent.Text)
		}
	}

	if result.IsError {
		return "", fmt.Errorf("tool error: %s", output.String())
	}

	return output.String(), nil
}

// Close releases the underlying transport. Safe to call more than once.
func (c *Conn) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// PrefixToolName namespaces a tool under its server.
func PrefixToolName(server, tool string) string {
	return sanitizeName(server) + "_" + sanitizeName(tool)
}

// sanitizeName replaces non-alphanumeric chars with underscore.
func sanitizeName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
