// Package app wires the chat surface together: settings, the tool server
// registry, the query controller, and session lifecycle. The UI hands it
// raw input lines and renders the responses and bus events it produces.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/tutorchat-ai/tutorchat/internal/command"
	"github.com/tutorchat-ai/tutorchat/internal/event"
	"github.com/tutorchat-ai/tutorchat/internal/history"
	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/provider"
	"github.com/tutorchat-ai/tutorchat/internal/query"
	"github.com/tutorchat-ai/tutorchat/internal/registry"
	"github.com/tutorchat-ai/tutorchat/internal/session"
)

// Response is what HandleInput hands back to the UI.
type Response struct {
	// Output is text to display, empty when the input started a turn.
	Output string
	// Streaming reports that a turn was submitted; its events arrive on
	// the bus.
	Streaming bool
	// Quit reports that the user asked to exit.
	Quit bool
}

// StatusInfo is the data behind the status line.
type StatusInfo struct {
	TutorMode bool
	WebSearch bool
	Servers   int
	State     query.State
}

// Options carries the collaborators App needs.
type Options struct {
	Settings  session.Settings
	Registry  *registry.Registry
	Backend   provider.Backend
	Dialer    session.Dialer
	Bus       *event.Bus
	History   *history.History
	MaxTokens int
}

// App owns the mutable chat state. Settings changes and registry mutations
// never touch a live session; they invalidate it so the next submission
// builds a fresh one.
type App struct {
	controller *query.Controller
	registry   *registry.Registry
	backend    provider.Backend
	dialer     session.Dialer
	bus        *event.Bus
	history    *history.History
	maxTokens  int

	mu       sync.Mutex
	settings session.Settings
	sess     *session.Session
	stale    bool
	wizard   *command.AddWizard
}

func New(opts Options) *App {
	return &App{
		controller: query.NewController(),
		registry:   opts.Registry,
		backend:    opts.Backend,
		dialer:     opts.Dialer,
		bus:        opts.Bus,
		history:    opts.History,
		maxTokens:  opts.MaxTokens,
		settings:   opts.Settings,
	}
}

// Settings returns the current settings.
func (a *App) Settings() session.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Status returns the data for the status line.
func (a *App) Status() StatusInfo {
	a.mu.Lock()
	settings := a.settings
	a.mu.Unlock()
	return StatusInfo{
		TutorMode: settings.TutorMode,
		WebSearch: settings.WebSearch,
		Servers:   len(a.registry.Enabled()),
		State:     a.controller.State(),
	}
}

// InWizard reports whether the add wizard is consuming input.
func (a *App) InWizard() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wizard != nil
}

// Cancel stops the in-flight turn, if any.
func (a *App) Cancel() {
	a.controller.Cancel()
}

// InvalidateSession marks the current session stale so the next submission
// rebuilds it. Called on registry changes from outside, e.g. the storage
// watcher.
func (a *App) InvalidateSession(reason string) {
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()
	a.bus.Publish(event.Event{
		Type: event.SessionInvalidated,
		Data: event.SessionInvalidatedData{Reason: reason},
	})
}

// Close cancels any in-flight turn and tears down the session.
func (a *App) Close() {
	a.controller.Cancel()
	a.mu.Lock()
	sess := a.sess
	a.sess = nil
	a.mu.Unlock()
	if sess != nil {
		sess.Teardown()
	}
}

// HandleInput routes one input line: wizard input while the add wizard is
// active, a slash command, or a prompt submission.
func (a *App) HandleInput(ctx context.Context, line string) (Response, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Response{}, nil
	}

	a.mu.Lock()
	wizard := a.wizard
	a.mu.Unlock()
	if wizard != nil {
		return a.handleWizardInput(wizard, trimmed), nil
	}

	if command.IsCommand(trimmed) {
		cmd, err := command.Parse(trimmed)
		if err != nil {
			return Response{}, err
		}
		return a.handleCommand(ctx, cmd)
	}

	return a.submit(ctx, trimmed)
}

// submit starts a streaming turn for the prompt.
func (a *App) submit(ctx context.Context, prompt string) (Response, error) {
	if a.controller.State() != query.StateIdle {
		return Response{}, query.ErrBusy
	}

	if a.history != nil {
		a.history.Add(prompt)
	}

	sess, err := a.ensureSession(ctx)
	if err != nil {
		return Response{}, err
	}

	turnID := ulid.Make().String()
	var started sync.Once
	emit := func(ev session.Event) {
		started.Do(func() {
			a.bus.Publish(event.Event{
				Type: event.TurnStarted,
				Data: event.TurnStartedData{TurnID: turnID, Prompt: prompt},
			})
		})
		a.publishTurnEvent(turnID, ev)
	}

	if err := a.controller.Submit(ctx, sess, prompt, emit); err != nil {
		return Response{}, err
	}
	return Response{Streaming: true}, nil
}

func (a *App) publishTurnEvent(turnID string, ev session.Event) {
	switch e := ev.(type) {
	case session.TextDelta:
		a.bus.Publish(event.Event{
			Type: event.TurnDelta,
			Data: event.TurnDeltaData{TurnID: turnID, Text: e.Text},
		})
	case session.ToolUseStart:
		a.bus.Publish(event.Event{
			Type: event.TurnToolUse,
			Data: event.TurnToolUseData{TurnID: turnID, CallID: e.CallID, Tool: e.Tool},
		})
	case session.ToolUseResult:
		a.bus.Publish(event.Event{
			Type: event.TurnToolResult,
			Data: event.TurnToolResultData{TurnID: turnID, CallID: e.CallID, Tool: e.Tool, Output: e.Output, Error: e.Err},
		})
	case session.TurnComplete:
		a.bus.Publish(event.Event{
			Type: event.TurnCompleted,
			Data: event.TurnCompletedData{TurnID: turnID},
		})
	case session.TurnError:
		if errors.Is(e.Err, context.Canceled) {
			a.bus.Publish(event.Event{
				Type: event.TurnCancelled,
				Data: event.TurnCancelledData{TurnID: turnID},
			})
			return
		}
		a.bus.Publish(event.Event{
			Type: event.TurnFailed,
			Data: event.TurnFailedData{TurnID: turnID, Error: e.Err.Error()},
		})
	}
}

// ensureSession returns the live session, building one from the current
// settings and enabled servers when none exists or the last one went stale.
// Callers must only invoke it while the controller is idle.
func (a *App) ensureSession(ctx context.Context) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess != nil && !a.stale {
		return a.sess, nil
	}
	if a.sess != nil {
		a.sess.Teardown()
		a.sess = nil
	}

	sess, err := session.New(ctx, session.Options{
		Settings:  a.settings,
		Servers:   a.registry.Enabled(),
		Backend:   a.backend,
		Dialer:    a.dialer,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	for _, f := range sess.AttachFailures() {
		logging.Warn().Str("server", f.Server).Err(f.Err).Msg("tool server unavailable for this session")
	}
	a.sess = sess
	a.stale = false
	return sess, nil
}

// invalidate marks the session stale without publishing, for callers that
// publish their own bus event.
func (a *App) invalidate() {
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()
}

func (a *App) handleCommand(ctx context.Context, cmd command.Command) (Response, error) {
	switch c := cmd.(type) {
	case command.Help:
		return Response{Output: command.HelpText()}, nil

	case command.Quit:
		a.Cancel()
		return Response{Quit: true}, nil

	case command.Clear:
		// Acting on the conversation mid-turn would corrupt the stream,
		// so an in-flight turn is cancelled first. The session is torn
		// down; the next submission builds a fresh one with the same
		// settings.
		a.Cancel()
		a.mu.Lock()
		sess := a.sess
		a.sess = nil
		a.mu.Unlock()
		if sess != nil {
			sess.Teardown()
		}
		return Response{Output: "Conversation cleared."}, nil

	case command.ToggleTutor:
		a.Cancel()
		a.mu.Lock()
		a.settings.TutorMode = !a.settings.TutorMode
		on := a.settings.TutorMode
		a.mu.Unlock()
		a.InvalidateSession("tutor mode changed")
		return Response{Output: fmt.Sprintf("Tutor mode %s.", onOff(on))}, nil

	case command.ToggleWebSearch:
		a.Cancel()
		a.mu.Lock()
		a.settings.WebSearch = !a.settings.WebSearch
		on := a.settings.WebSearch
		a.mu.Unlock()
		a.InvalidateSession("web search changed")
		return Response{Output: fmt.Sprintf("Web search %s.", onOff(on))}, nil

	case command.McpHelp:
		return Response{Output: command.McpHelpText()}, nil

	case command.McpList:
		return a.handleMcpList(ctx), nil

	case command.McpTest:
		return a.handleMcpTest(ctx, c.Name), nil

	case command.McpStatus:
		return a.handleMcpStatus(c.Name)

	case command.McpAdd:
		if c.Interactive {
			wizard := command.NewAddWizard(func(name string) bool {
				_, err := a.registry.Get(name)
				return err == nil
			})
			a.mu.Lock()
			a.wizard = wizard
			a.mu.Unlock()
			return Response{Output: wizard.Prompt()}, nil
		}
		cfg := registry.ServerConfig{
			Name:      c.Name,
			Transport: registry.Transport(c.Transport),
			Enabled:   true,
		}
		if cfg.Transport == registry.TransportStdio {
			cfg.Command = c.Target
			cfg.Args = c.Args
		} else {
			cfg.URL = c.Target
		}
		return a.addServer(cfg)

	case command.McpRemove:
		if err := a.registry.Remove(c.Name); err != nil {
			return Response{}, err
		}
		a.registryChanged("remove", c.Name)
		return Response{Output: fmt.Sprintf("Removed server %q.", c.Name)}, nil

	case command.McpEnable:
		if err := a.registry.SetEnabled(c.Name, true); err != nil {
			return Response{}, err
		}
		a.registryChanged("enable", c.Name)
		return Response{Output: fmt.Sprintf("Enabled server %q.", c.Name)}, nil

	case command.McpDisable:
		if err := a.registry.SetEnabled(c.Name, false); err != nil {
			return Response{}, err
		}
		a.registryChanged("disable", c.Name)
		return Response{Output: fmt.Sprintf("Disabled server %q.", c.Name)}, nil

	default:
		return Response{}, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (a *App) handleWizardInput(wizard *command.AddWizard, line string) Response {
	err := wizard.Input(line)
	switch {
	case errors.Is(err, command.ErrWizardAborted):
		a.mu.Lock()
		a.wizard = nil
		a.mu.Unlock()
		return Response{Output: "Add cancelled."}
	case err != nil:
		// Stay on the same step.
		return Response{Output: fmt.Sprintf("%v\n%s", err, wizard.Prompt())}
	}

	if !wizard.Done() {
		return Response{Output: wizard.Prompt()}
	}

	a.mu.Lock()
	a.wizard = nil
	a.mu.Unlock()
	resp, err := a.addServer(wizard.Result())
	if err != nil {
		return Response{Output: fmt.Sprintf("Failed to add server: %v", err)}
	}
	return resp
}

func (a *App) addServer(cfg registry.ServerConfig) (Response, error) {
	added, err := a.registry.Add(cfg)
	if err != nil {
		return Response{}, err
	}
	a.registryChanged("add", added.Name)
	return Response{Output: fmt.Sprintf("Added server %q (%s).", added.Name, added.Transport)}, nil
}

// registryChanged invalidates the session and announces the mutation. The
// in-flight turn, if any, keeps its old session until it finishes.
func (a *App) registryChanged(action, name string) {
	a.invalidate()
	a.bus.Publish(event.Event{
		Type: event.RegistryUpdated,
		Data: event.RegistryUpdatedData{Server: name, Action: action},
	})
	a.bus.Publish(event.Event{
		Type: event.SessionInvalidated,
		Data: event.SessionInvalidatedData{Reason: "registry changed"},
	})
}

func (a *App) handleMcpList(ctx context.Context) Response {
	servers := a.registry.List()
	status := make(map[string]string)
	if results, err := a.registry.Test(ctx, ""); err == nil {
		for _, r := range results {
			if r.OK {
				status[r.Name] = "connected"
			} else {
				status[r.Name] = "failed"
			}
		}
	}
	return Response{Output: command.FormatList(servers, status)}
}

func (a *App) handleMcpTest(ctx context.Context, name string) Response {
	results, err := a.registry.Test(ctx, name)
	if err != nil {
		return Response{Output: fmt.Sprintf("Test failed: %v", err)}
	}
	return Response{Output: command.FormatTest(results)}
}

func (a *App) handleMcpStatus(name string) (Response, error) {
	if name == "" {
		return Response{Output: command.FormatStatusSummary(a.registry.List())}, nil
	}
	cfg, err := a.registry.Get(name)
	if err != nil {
		return Response{}, err
	}
	return Response{Output: command.FormatStatusDetail(cfg)}, nil
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
