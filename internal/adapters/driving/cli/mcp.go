package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diarymem/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query
your journal.

Tools:
  query_insights      filter, group and order extracted emotions and people
  query_entries       list or search entries
  get_entries_by_ids  fetch full entry text

By default, the server communicates over stdio using JSON-RPC. Use --port to
start an HTTP server instead, for MCP Inspector or remote access.

Examples:
  # Stdio mode (default, for Claude Desktop)
  diarymem mcp serve

  # HTTP mode
  diarymem mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "diarymem": {
        "command": "/path/to/diarymem",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Insights: insightService,
		Entries:  entryService,
		Analysis: analysisService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
