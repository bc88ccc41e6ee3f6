package credentials

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for all tasksync keyring entries
	KeyringService = "tasksync"
)

// Well-known credential names
const (
	IntegrationToken = "integration-token"
	WebhookSecret    = "webhook-secret"
)

// Set stores a credential in the OS keyring
func Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("credential name cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("credential value cannot be empty")
	}

	if err := keyring.Set(KeyringService, name, value); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

// Get retrieves a credential from the OS keyring
func Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("credential name cannot be empty")
	}

	value, err := keyring.Get(KeyringService, name)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("no credential %q found in keyring", name)
		}
		return "", fmt.Errorf("failed to retrieve credential from keyring: %w", err)
	}
	return value, nil
}

// Delete removes a credential from the OS keyring
func Delete(name string) error {
	if name == "" {
		return fmt.Errorf("credential name cannot be empty")
	}

	if err := keyring.Delete(KeyringService, name); err != nil {
		if err == keyring.ErrNotFound {
			return fmt.Errorf("no credential %q found in keyring", name)
		}
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible.
// Useful for helpful error messages when no keyring backend exists.
func IsAvailable() bool {
	// Getting a non-existent item distinguishes "keyring works" (ErrNotFound)
	// from "no keyring backend" (any other error)
	_, err := keyring.Get(KeyringService+"-availability-test", "test")
	return err == nil || err == keyring.ErrNotFound
}
