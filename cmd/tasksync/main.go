package main

import (
	"log"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/utils"
)

func main() {
	var configPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "tasksync",
		Short: "Task synchronization service",
		Long: `tasksync pulls tasks from connected external task managers into a
local SQLite store and serves them over an HTTP API.

Run the server with 'tasksync serve', or drive a single sync from the
command line with 'tasksync sync <connection-id>'.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			utils.SetVerboseMode(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newConnectionsCmd())
	rootCmd.AddCommand(newCredentialsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
