package cmd

import (
	"github.com/spf13/cobra"

	"github.com/refixhq/refix-cli/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for coding-agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents request reviews, consolidated issue lists, generated
tests, and dependency scans natively. Configure with:

  {
    "mcpServers": {
      "refix": { "command": "refix", "args": ["mcp"] }
    }
  }

Available tools: refix_inspect, refix_consolidated, refix_list_projects,
refix_create_project, refix_generate_test, refix_run_test,
refix_scan_dependencies`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		srv := mcp.NewServer(apiClient, cfg.UserID)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
