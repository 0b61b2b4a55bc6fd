package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metalagman/gptbench/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the benchmark tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tb, err := newToolbox(cfg)
			if err != nil {
				return err
			}
			srv, err := mcpserver.New(version, tb.reg, tb.norm)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcpserver.Serve(ctx, srv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
