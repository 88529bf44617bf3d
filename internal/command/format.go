package command

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

// HelpText is the /help response.
func HelpText() string {
	return `Commands

  /help              Show this help
  /clear             Clear the conversation
  /tutor             Toggle tutor mode
  /togglewebsearch   Toggle web search
  /quit              Exit
  /mcp ...           Manage tool servers (see /mcp help)

Anything else is sent to the assistant.`
}

// McpHelpText is the /mcp help response.
func McpHelpText() string {
	return `MCP Server Commands

  /mcp list                                 List configured servers
  /mcp test [name]                          Test server connections
  /mcp add                                  Add a server (interactive)
  /mcp add <name> <type> <cmd|url> [args]   Add a server directly
  /mcp remove <name>                        Remove a server
  /mcp enable <name>                        Enable a server
  /mcp disable <name>                       Disable a server
  /mcp status [name]                        Show server details
  /mcp help                                 Show this help

Server types
  stdio   Local process (command + args)
  sse     Server-Sent Events endpoint (URL)
  http    HTTP endpoint (URL)`
}

// FormatList renders the server table for /mcp list. status maps server
// names to a connection state string; servers missing from it show as
// unknown (or a dash when disabled).
func FormatList(servers []registry.ServerConfig, status map[string]string) string {
	if len(servers) == 0 {
		return "No servers configured. Use /mcp add to add one."
	}

	var b strings.Builder
	b.WriteString("MCP Servers\n\n")
	b.WriteString(fmt.Sprintf("  %-16s %-6s %-8s %-12s %s\n", "NAME", "TYPE", "ENABLED", "CONNECTION", "TARGET"))
	for _, s := range servers {
		enabled := "no"
		if s.Enabled {
			enabled = "yes"
		}
		conn := "unknown"
		if st, ok := status[s.Name]; ok {
			conn = st
		} else if !s.Enabled {
			conn = "-"
		}
		b.WriteString(fmt.Sprintf("  %-16s %-6s %-8s %-12s %s\n", s.Name, s.Transport, enabled, conn, s.Target()))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTest renders /mcp test results with a summary line.
func FormatTest(results []registry.TestResult) string {
	if len(results) == 0 {
		return "No enabled servers to test."
	}

	var b strings.Builder
	b.WriteString("MCP Connection Test\n\n")
	connected, failed := 0, 0
	for _, r := range results {
		if r.OK {
			b.WriteString(fmt.Sprintf("  %s: connected (%s)\n", r.Name, r.Latency.Round(time.Millisecond)))
			connected++
		} else {
			b.WriteString(fmt.Sprintf("  %s: failed (%s)\n", r.Name, r.Error))
			failed++
		}
	}
	b.WriteString(fmt.Sprintf("\nSummary: %d connected, %d failed", connected, failed))
	return b.String()
}

// FormatStatusSummary renders /mcp status with no server name.
func FormatStatusSummary(servers []registry.ServerConfig) string {
	enabled := 0
	for _, s := range servers {
		if s.Enabled {
			enabled++
		}
	}
	return fmt.Sprintf("MCP Status: %d/%d servers enabled", enabled, len(servers))
}

// FormatStatusDetail renders /mcp status <name>.
func FormatStatusDetail(cfg registry.ServerConfig) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Server: %s\n\n", cfg.Name))
	b.WriteString(fmt.Sprintf("  Type:    %s\n", cfg.Transport))
	state := "disabled"
	if cfg.Enabled {
		state = "enabled"
	}
	b.WriteString(fmt.Sprintf("  Status:  %s\n", state))
	if cfg.Transport == registry.TransportStdio {
		b.WriteString(fmt.Sprintf("  Command: %s\n", cfg.Target()))
		if len(cfg.Env) > 0 {
			keys := make([]string, 0, len(cfg.Env))
			for k := range cfg.Env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString(fmt.Sprintf("  Env:     %s\n", strings.Join(keys, ", ")))
		}
	} else {
		b.WriteString(fmt.Sprintf("  URL:     %s\n", cfg.URL))
	}
	return strings.TrimRight(b.String(), "\n")
}
