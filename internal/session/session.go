package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/mcp"
	"github.com/tutorchat-ai/tutorchat/internal/provider"
	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

// ErrSessionBusy is returned by Stream while a previous stream is still
// active. A session carries at most one in-flight turn.
var ErrSessionBusy = errors.New("session: a stream is already active")

// ErrTornDown is returned by Stream after Teardown.
var ErrTornDown = errors.New("session: torn down")

// ConnectionError reports a failure to construct the session itself, as
// opposed to a per-server attach failure, which only degrades the session.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("session connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AttachFailure records a tool server that was configured and enabled but
// could not be attached when the session was built.
type AttachFailure struct {
	Server string
	Err    error
}

// Settings is the caller-facing configuration a session is derived from.
// Changing settings never mutates a live session; the owner rebuilds instead.
type Settings struct {
	TutorMode bool
	WebSearch bool
}

// DefaultSettings returns the startup settings: tutoring on, web search off.
func DefaultSettings() Settings {
	return Settings{TutorMode: true}
}

// ToolConn is an attached tool server connection. *mcp.Conn satisfies it.
type ToolConn interface {
	Name() string
	Tools() []mcp.Tool
	Owns(tool string) bool
	CallTool(ctx context.Context, tool string, args json.RawMessage) (string, error)
	Close() error
}

// Dialer attaches tool server connections for a session being built.
type Dialer interface {
	Attach(ctx context.Context, cfg registry.ServerConfig) (ToolConn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, cfg registry.ServerConfig) (ToolConn, error)

func (f DialerFunc) Attach(ctx context.Context, cfg registry.ServerConfig) (ToolConn, error) {
	return f(ctx, cfg)
}

// Options carries everything New needs to build a session.
type Options struct {
	Settings  Settings
	Servers   []registry.ServerConfig
	Backend   provider.Backend
	Dialer    Dialer
	MaxTokens int
}

// Session is a live connection to the backend plus the attached tool
// servers, derived from a snapshot of settings and registry state.
type Session struct {
	settings     Settings
	backend      provider.Backend
	maxTokens    int
	instructions string
	conns        []ToolConn
	tools        []*schema.ToolInfo
	failures     []AttachFailure

	mu        sync.Mutex
	messages  []*schema.Message
	streaming bool
	tornDown  bool
}

// New builds a session from the given options, attaching each enabled tool
// server. A server that fails to attach is skipped with a warning; the
// session still comes up with the remaining tools. New only fails outright
// when no backend is available.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, &ConnectionError{Err: errors.New("no backend configured")}
	}
	s := &Session{
		settings:  opts.Settings,
		backend:   opts.Backend,
		maxTokens: opts.MaxTokens,
	}

	var toolNames []string
	var toolInfos []provider.ToolInfo
	for _, cfg := range opts.Servers {
		if !cfg.Enabled {
			continue
		}
		if opts.Dialer == nil {
			s.failures = append(s.failures, AttachFailure{Server: cfg.Name, Err: errors.New("no dialer configured")})
			continue
		}
		conn, err := opts.Dialer.Attach(ctx, cfg)
		if err != nil {
			logging.Warn().Str("server", cfg.Name).Err(err).Msg("failed to attach tool server")
			s.failures = append(s.failures, AttachFailure{Server: cfg.Name, Err: err})
			continue
		}
		s.conns = append(s.conns, conn)
		for _, t := range conn.Tools() {
			toolNames = append(toolNames, t.Name)
			toolInfos = append(toolInfos, provider.ToolInfo{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			})
		}
	}

	s.tools = provider.ConvertToEinoTools(toolInfos)
	s.instructions = buildInstructions(opts.Settings, toolNames)
	logging.Info().
		Bool("tutor", opts.Settings.TutorMode).
		Bool("web_search", opts.Settings.WebSearch).
		Int("servers", len(s.conns)).
		Int("tools", len(s.tools)).
		Msg("session created")
	return s, nil
}

// Settings returns the settings snapshot this session was built from.
func (s *Session) Settings() Settings { return s.settings }

// Instructions returns the system prompt in effect for this session.
func (s *Session) Instructions() string { return s.instructions }

// AttachFailures lists servers that could not be attached at build time.
func (s *Session) AttachFailures() []AttachFailure { return s.failures }

// ToolCount reports how many tools the attached servers expose.
func (s *Session) ToolCount() int { return len(s.tools) }

// ServerCount reports how many tool servers are attached.
func (s *Session) ServerCount() int { return len(s.conns) }

// Teardown releases the session's tool server connections. It is
// idempotent; later Stream calls fail with ErrTornDown.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			logging.Warn().Str("server", c.Name()).Err(err).Msg("failed to close tool server")
		}
	}
}

func (s *Session) callTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	for _, c := range s.conns {
		if c.Owns(name) {
			return c.CallTool(ctx, name, args)
		}
	}
	return "", fmt.Errorf("no connected server provides tool %q", name)
}
