package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConnectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage integration connections",
		Long: `List and manage the connections registered on the integration platform.

Archiving a connection disconnects it on the platform without deleting it;
tasks already synced from it stay in the local store. An archived connection
can be re-opened with 'unarchive'.

Examples:
  tasksync connections list
  tasksync connections list --integration asana-integration-id
  tasksync connections archive conn-123
  tasksync connections unarchive conn-123`,
	}

	cmd.AddCommand(newConnectionsListCmd())
	cmd.AddCommand(newConnectionsArchiveCmd())
	cmd.AddCommand(newConnectionsUnarchiveCmd())

	return cmd
}

func newConnectionsListCmd() *cobra.Command {
	var integrationID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections on the integration platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			connections, err := app.source.FindConnections(cmd.Context(), integrationID)
			if err != nil {
				return fmt.Errorf("failed to list connections: %w", err)
			}

			if len(connections) == 0 {
				fmt.Println("No connections found")
				return nil
			}

			for _, conn := range connections {
				state := "active"
				if conn.Disconnected {
					state = "archived"
				}
				fmt.Printf("%s  %s (%s)\n", conn.ID, conn.Integration.Key, state)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&integrationID, "integration", "i", "", "filter by integration id")

	return cmd
}

func newConnectionsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <connection-id>",
		Short: "Disconnect a connection on the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.client.ArchiveConnection(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to archive connection: %w", err)
			}

			fmt.Printf("Archived connection %s\n", args[0])
			return nil
		},
	}
}

func newConnectionsUnarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <connection-id>",
		Short: "Re-open a previously archived connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.client.UnarchiveConnection(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to unarchive connection: %w", err)
			}

			fmt.Printf("Unarchived connection %s\n", args[0])
			return nil
		},
	}
}
