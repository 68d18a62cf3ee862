package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"foodprice/internal/config"
	"foodprice/internal/logger"
	mcpserver "foodprice/internal/mcp"
)

func newMCPCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the renamer as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
rename_columns, describe_manifest and list_runs. The configured manifest,
names and target folder are used when a tool call leaves them out.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.v, o.cfgFile)
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			if cfg.Log.Output == "stdout" {
				cfg.Log.Output = "stderr"
			}
			logCloser, err := logger.Setup(cfg.Log)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer logCloser.Close()

			store, closeStore, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			s := mcpserver.New(mcpserver.Deps{
				Store: store,
				Defaults: mcpserver.Defaults{
					ManifestPath:   cfg.Manifest,
					NewColumnNames: cfg.NewColumnNames,
					TargetFolder:   cfg.TargetFolder,
				},
				Logger: slog.Default(),
			})
			return s.ServeStdio()
		},
	}
}
