package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tasksync/internal/credentials"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored credentials",
		Long: `Securely manage the integration API token and the webhook secret.

Credentials are resolved in priority order:
  1. System keyring (most secure) - recommended
  2. Environment variables (TASKSYNC_INTEGRATION_TOKEN, TASKSYNC_WEBHOOK_SECRET)
  3. Config file value (least secure)

Examples:
  # Store the integration token (interactive hidden prompt)
  tasksync credentials set integration-token --prompt

  # Store the webhook secret non-interactively
  tasksync credentials set webhook-secret my-secret

  # Check where a credential resolves from
  tasksync credentials get integration-token

  # Remove a credential from the keyring
  tasksync credentials delete webhook-secret`,
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsGetCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())

	return cmd
}

var knownCredentials = []string{
	credentials.IntegrationToken,
	credentials.WebhookSecret,
}

func validateCredentialName(name string) error {
	for _, known := range knownCredentials {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("unknown credential %q (known: %s)", name, strings.Join(knownCredentials, ", "))
}

func newCredentialsSetCmd() *cobra.Command {
	var promptValue bool

	cmd := &cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a credential in the system keyring",
		Long: `Store a credential in the system keyring.

With --prompt the value is read interactively without echoing, which keeps
it out of shell history.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validateCredentialName(name); err != nil {
				return err
			}

			var value string
			switch {
			case promptValue:
				fmt.Printf("Enter value for %s: ", name)
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read value: %w", err)
				}
				value = strings.TrimSpace(string(raw))
			case len(args) == 2:
				value = args[1]
			default:
				return fmt.Errorf("provide a value or use --prompt")
			}

			if value == "" {
				return fmt.Errorf("value cannot be empty")
			}

			if err := credentials.Set(name, value); err != nil {
				return fmt.Errorf("failed to store credential: %w", err)
			}

			fmt.Printf("Stored %s in system keyring\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&promptValue, "prompt", "p", false, "read the value interactively (hidden)")

	return cmd
}

func newCredentialsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show where a credential resolves from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validateCredentialName(name); err != nil {
				return err
			}

			cred := credentials.NewResolver().ResolveOptional(name, "")
			if cred.Source == credentials.SourceNone {
				fmt.Printf("%s: not found (tried keyring and environment)\n", name)
				return nil
			}

			// Never print the value itself
			fmt.Printf("%s: found in %s\n", name, cred.Source)
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a credential from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validateCredentialName(name); err != nil {
				return err
			}

			if err := credentials.Delete(name); err != nil {
				return fmt.Errorf("failed to delete credential: %w", err)
			}

			fmt.Printf("Removed %s from system keyring\n", name)
			return nil
		},
	}
}
