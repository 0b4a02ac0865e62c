package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/llmemo/pkg/mcp"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start llmemo as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			srv := mcp.New(a.client, version, a.log)
			return srv.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
