package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/straja-ai/fieldsense/internal/app"
	"github.com/straja-ai/fieldsense/internal/mcp"
	"github.com/straja-ai/fieldsense/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			addr := a.Config.Server.Addr
			if serveAddr != "" {
				addr = serveAddr
			}
			srv := server.New(a.Pipeline, a.Config.Server.MaxRequestBytes, app.Version)
			return srv.Start(cmd.Context(), addr)
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the classification tools over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return mcp.ServeStdio(cmd.Context(), mcp.NewServer(a.Pipeline, app.Version), os.Stdin, os.Stdout)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
}
