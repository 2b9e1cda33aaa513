package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/contextiq/internal/config"
	"github.com/fyrsmithlabs/contextiq/internal/mcp"
	"github.com/fyrsmithlabs/contextiq/internal/services"
	"github.com/fyrsmithlabs/contextiq/internal/store"
)

// toolsCmd lists the MCP tools without opening the configured database.
func toolsCmd() *cobra.Command {
	var (
		search string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools served with --mcp",
		Long: `List the MCP tools served with --mcp.

Examples:
  # All tools
  contextiq tools

  # Tools that touch goals
  contextiq tools --search goal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := toolRegistry()
			if err != nil {
				return err
			}
			tools := reg.List()
			if search != "" {
				tools = tools[:0]
				for _, r := range reg.Search(search) {
					tools = append(tools, r.Tool)
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tools)
			}
			printTools(cmd.OutOrStdout(), tools)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only tools matching this text or regexp")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// toolRegistry builds an MCP server over an empty in-memory store. Only its
// tool list is used.
func toolRegistry() (*mcp.ToolRegistry, error) {
	cfg := config.Default()
	cfg.Secrets.Gitleaks = false
	mem := store.NewMemory()
	reg, err := services.Build(services.Options{Config: cfg, Store: mem})
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	srv, err := mcp.NewServer(&mcp.Config{Version: version}, reg.Service())
	if err != nil {
		return nil, err
	}
	return srv.Registry(), nil
}

func printTools(w io.Writer, tools []*mcp.ToolMetadata) {
	if len(tools) == 0 {
		fmt.Fprintln(w, "no matching tools")
		return
	}
	width := 0
	for _, t := range tools {
		width = max(width, len(t.Name))
	}
	for _, t := range tools {
		fmt.Fprintf(w, "%-*s  %-7s  %s\n", width, t.Name, t.Category, t.Description)
		if len(t.Operations) > 0 {
			fmt.Fprintf(w, "%-*s  %-7s  operations: %s\n", width, "", "", strings.Join(t.Operations, ", "))
		}
	}
}
