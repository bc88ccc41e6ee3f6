package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tasksync/internal/utils"
	"tasksync/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the tasksync API server.

The server exposes sync control, sync status, task listing and updates,
and the webhook intake endpoint. It shuts down gracefully on SIGINT or
SIGTERM, draining in-flight sync jobs first.

Examples:
  tasksync serve
  tasksync serve --config /etc/tasksync/config.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			srv := server.NewServer(app.config, app.source, app.db, app.controller,
				utils.NewComponentLogger("server"))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				utils.GetLogger().Info("Received %v, shutting down", sig)
				return srv.Stop()
			}
		},
	}
}
