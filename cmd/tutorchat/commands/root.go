// Package commands provides the CLI commands for tutorchat.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tutorchat-ai/tutorchat/internal/app"
	"github.com/tutorchat-ai/tutorchat/internal/config"
	"github.com/tutorchat-ai/tutorchat/internal/event"
	"github.com/tutorchat-ai/tutorchat/internal/history"
	"github.com/tutorchat-ai/tutorchat/internal/logging"
	"github.com/tutorchat-ai/tutorchat/internal/mcp"
	"github.com/tutorchat-ai/tutorchat/internal/provider"
	"github.com/tutorchat-ai/tutorchat/internal/registry"
	"github.com/tutorchat-ai/tutorchat/internal/session"
	"github.com/tutorchat-ai/tutorchat/internal/storage"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "tutorchat",
	Short: "tutorchat - a terminal tutor backed by Claude",
	Long: `tutorchat is a terminal chat client for learning programming with an
AI tutor. It streams responses, can call tools on configured MCP servers,
and defaults to guiding you rather than handing over solutions.

Run with no arguments to start an interactive chat.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a file instead of stderr")

	rootCmd.SetVersionTemplate(fmt.Sprintf("tutorchat %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// env holds everything a command needs after setup.
type env struct {
	cfg      *config.Config
	paths    *config.Paths
	registry *registry.Registry
	bus      *event.Bus
	app      *app.App
	history  *history.History
	watcher  *registry.Watcher
}

func (e *env) close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	if e.app != nil {
		e.app.Close()
	}
	if e.bus != nil {
		e.bus.Close()
	}
}

// setup loads config, initializes logging, and wires the registry. The
// backend is only built when withBackend is set so registry-only commands
// work without an API key.
func setup(ctx context.Context, withBackend bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	initLogging(level)

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	dialer := mcp.NewDialer()
	store := storage.New(filepath.Join(paths.Data, "mcp"))
	reg := registry.Load(store, dialer)

	e := &env{
		cfg:      cfg,
		paths:    paths,
		registry: reg,
		bus:      event.NewBus(),
		history:  history.Load(paths.HistoryPath()),
	}

	if !withBackend {
		return e, nil
	}

	backend, err := provider.NewClaude(ctx, &provider.ClaudeConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		e.close()
		return nil, err
	}

	settings := session.DefaultSettings()
	if cfg.TutorMode != nil {
		settings.TutorMode = *cfg.TutorMode
	}
	if cfg.WebSearch != nil {
		settings.WebSearch = *cfg.WebSearch
	}

	e.app = app.New(app.Options{
		Settings: settings,
		Registry: reg,
		Backend:  backend,
		Dialer: session.DialerFunc(func(ctx context.Context, cfg registry.ServerConfig) (session.ToolConn, error) {
			return dialer.Attach(ctx, cfg)
		}),
		Bus:       e.bus,
		History:   e.history,
		MaxTokens: cfg.MaxTokens,
	})

	watcher, err := registry.NewWatcher(reg, func() {
		e.app.InvalidateSession("server storage changed on disk")
	})
	if err != nil {
		logging.Warn().Err(err).Msg("server storage watcher unavailable")
	} else {
		watcher.Start()
		e.watcher = watcher
	}

	return e, nil
}

func initLogging(level string) {
	cfg := logging.Config{
		Level:  logging.ParseLevel(level),
		Pretty: true,
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			cfg.Output = f
			cfg.Pretty = false
		}
	}
	logging.Init(cfg)
}
