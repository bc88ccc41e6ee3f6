package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/utils"
	"tasksync/poller"
	"tasksync/store"
)

func newSyncCmd() *cobra.Command {
	var integrationID string
	var userID string
	var detach bool

	cmd := &cobra.Command{
		Use:   "sync <connection-id>",
		Short: "Sync tasks from a connected integration",
		Long: `Pull all tasks from one connection into the local store.

By default the sync runs in the foreground and prints the number of tasks
synced. With --detach the job runs in the background and its status is
polled until it reaches a terminal state, the same way an API consumer
observes it.

Examples:
  tasksync sync conn-123 --user alice
  tasksync sync conn-123 --user alice --integration asana
  tasksync sync conn-123 --user alice --detach`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connectionID := args[0]

			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if detach {
				return runDetachedSync(cmd, app, connectionID, integrationID, userID)
			}

			jobID, total, err := app.controller.RunSync(cmd.Context(), connectionID, integrationID, userID)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Printf("Synced %d tasks (job %s)\n", total, jobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&integrationID, "integration", "i", "", "integration id the connection belongs to")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "local user the tasks belong to")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// runDetachedSync starts a background job and polls the store for its
// terminal status
func runDetachedSync(cmd *cobra.Command, app *App, connectionID, integrationID, userID string) error {
	jobID, err := app.controller.StartSync(cmd.Context(), connectionID, integrationID, userID)
	if err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}
	fmt.Printf("Started sync job %s\n", jobID)

	p := poller.New(&poller.StoreFetcher{Jobs: app.jobs},
		poller.WithInterval(app.config.Sync.PollInterval()),
		poller.WithLogger(utils.NewComponentLogger("poller")),
	)

	var pollErr error
	p.Poll(cmd.Context(), connectionID, poller.Callbacks{
		OnSuccess: func(job *store.SyncJob) {
			fmt.Printf("Sync completed: %d tasks\n", job.TotalItems)
		},
		OnFailure: func(message string) {
			pollErr = fmt.Errorf("sync failed: %s", message)
		},
	})

	app.controller.Shutdown(5 * time.Second)
	return pollErr
}
