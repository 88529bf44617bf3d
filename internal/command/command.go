// Package command parses slash commands into a closed set of tagged values
// and formats their responses. Dispatch happens on the command's type, not
// on strings, so every handler site is checked at compile time.
package command

import (
	"fmt"
	"strings"
)

// Command is one parsed slash command. The set of implementations is closed.
type Command interface {
	command()
}

type (
	// Help shows the top-level command help.
	Help struct{}
	// Clear discards the current conversation.
	Clear struct{}
	// ToggleTutor flips tutor mode.
	ToggleTutor struct{}
	// ToggleWebSearch flips the web-search capability.
	ToggleWebSearch struct{}
	// Quit exits the client.
	Quit struct{}

	// McpHelp shows the /mcp subcommand help.
	McpHelp struct{}
	// McpList lists configured servers.
	McpList struct{}
	// McpTest probes connections. An empty Name tests all enabled servers.
	McpTest struct{ Name string }
	// McpStatus shows config detail for one server, or a summary line when
	// Name is empty.
	McpStatus struct{ Name string }
	// McpAdd registers a server. With Interactive set the caller runs the
	// add wizard instead.
	McpAdd struct {
		Interactive bool
		Name        string
		Transport   string
		Target      string
		Args        []string
	}
	// McpRemove deletes a server.
	McpRemove struct{ Name string }
	// McpEnable marks a server enabled.
	McpEnable struct{ Name string }
	// McpDisable marks a server disabled.
	McpDisable struct{ Name string }
)

func (Help) command()            {}
func (Clear) command()           {}
func (ToggleTutor) command()     {}
func (ToggleWebSearch) command() {}
func (Quit) command()            {}
func (McpHelp) command()         {}
func (McpList) command()         {}
func (McpTest) command()         {}
func (McpStatus) command()       {}
func (McpAdd) command()          {}
func (McpRemove) command()       {}
func (McpEnable) command()       {}
func (McpDisable) command()      {}

// UnknownCommandError reports input that starts with a slash but matches no
// known command.
type UnknownCommandError struct {
	Raw string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q, try /help", e.Raw)
}

// InvalidArgumentsError reports a known command with malformed arguments.
type InvalidArgumentsError struct {
	Usage string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("usage: %s", e.Usage)
}

// IsCommand reports whether the input line should be parsed as a command
// rather than submitted as a prompt.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Parse turns a slash-command line into its tagged value.
func Parse(input string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return nil, &UnknownCommandError{Raw: input}
	}

	switch strings.ToLower(fields[0]) {
	case "/help":
		return Help{}, nil
	case "/clear":
		return Clear{}, nil
	case "/tutor":
		return ToggleTutor{}, nil
	case "/togglewebsearch":
		return ToggleWebSearch{}, nil
	case "/quit", "/exit":
		return Quit{}, nil
	case "/mcp":
		return parseMcp(fields[1:])
	default:
		return nil, &UnknownCommandError{Raw: fields[0]}
	}
}

func parseMcp(args []string) (Command, error) {
	if len(args) == 0 {
		return McpHelp{}, nil
	}

	sub := strings.ToLower(args[0])
	rest := args[1:]
	switch sub {
	case "help":
		return McpHelp{}, nil
	case "list":
		return McpList{}, nil
	case "test":
		cmd := McpTest{}
		if len(rest) > 0 {
			cmd.Name = rest[0]
		}
		return cmd, nil
	case "status":
		cmd := McpStatus{}
		if len(rest) > 0 {
			cmd.Name = rest[0]
		}
		return cmd, nil
	case "add":
		return parseMcpAdd(rest)
	case "remove":
		if len(rest) == 0 {
			return nil, &InvalidArgumentsError{Usage: "/mcp remove <name>"}
		}
		return McpRemove{Name: rest[0]}, nil
	case "enable":
		if len(rest) == 0 {
			return nil, &InvalidArgumentsError{Usage: "/mcp enable <name>"}
		}
		return McpEnable{Name: rest[0]}, nil
	case "disable":
		if len(rest) == 0 {
			return nil, &InvalidArgumentsError{Usage: "/mcp disable <name>"}
		}
		return McpDisable{Name: rest[0]}, nil
	default:
		return nil, &UnknownCommandError{Raw: "/mcp " + sub}
	}
}

func parseMcpAdd(args []string) (Command, error) {
	if len(args) == 0 {
		return McpAdd{Interactive: true}, nil
	}
	if len(args) < 3 {
		return nil, &InvalidArgumentsError{Usage: "/mcp add <name> <stdio|sse|http> <command|url> [args...]"}
	}
	return McpAdd{
		Name:      args[0],
		Transport: strings.ToLower(args[1]),
		Target:    args[2],
		Args:      args[3:],
	}, nil
}
