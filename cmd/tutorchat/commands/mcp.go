package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutorchat-ai/tutorchat/internal/command"
	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage MCP tool servers",
	Long: `Manage the MCP tool server registry from scripts. The same servers
are available as /mcp commands inside a chat session.`,
}

var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(context.Background(), false)
		if err != nil {
			return err
		}
		defer e.close()
		fmt.Println(command.FormatList(e.registry.List(), nil))
		return nil
	},
}

var mcpTestCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Test server connections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer e.close()

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		results, err := e.registry.Test(ctx, name)
		if err != nil {
			return err
		}
		fmt.Println(command.FormatTest(results))
		return nil
	},
}

var mcpAddCmd = &cobra.Command{
	Use:   "add <name> <stdio|sse|http> <command|url> [args...]",
	Short: "Add a server",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(context.Background(), false)
		if err != nil {
			return err
		}
		defer e.close()

		transport, err := registry.ParseTransport(args[1])
		if err != nil {
			return err
		}
		cfg := registry.ServerConfig{
			Name:      args[0],
			Transport: transport,
			Enabled:   true,
		}
		if transport == registry.TransportStdio {
			cfg.Command = args[2]
			cfg.Args = args[3:]
		} else {
			cfg.URL = args[2]
		}

		added, err := e.registry.Add(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Added server %q (%s)\n", added.Name, added.Transport)
		return nil
	},
}

var mcpRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(context.Background(), false)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.registry.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed server %q\n", args[0])
		return nil
	},
}

var mcpEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a server",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(true),
}

var mcpDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a server",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(false),
}

var mcpStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show server details",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(context.Background(), false)
		if err != nil {
			return err
		}
		defer e.close()

		if len(args) == 0 {
			fmt.Println(command.FormatStatusSummary(e.registry.List()))
			return nil
		}
		cfg, err := e.registry.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(command.FormatStatusDetail(cfg))
		return nil
	},
}

func setEnabledRunE(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(context.Background(), false)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.registry.SetEnabled(args[0], enabled); err != nil {
			return err
		}
		state := "Disabled"
		if enabled {
			state = "Enabled"
		}
		fmt.Printf("%s server %q\n", state, args[0])
		return nil
	}
}

func init() {
	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpTestCmd)
	mcpCmd.AddCommand(mcpAddCmd)
	mcpCmd.AddCommand(mcpRemoveCmd)
	mcpCmd.AddCommand(mcpEnableCmd)
	mcpCmd.AddCommand(mcpDisableCmd)
	mcpCmd.AddCommand(mcpStatusCmd)
}
