package credentials

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// Pick up a local .env during development; a missing file is fine
	_ = godotenv.Load()
}

// normalizeName converts a credential name to the environment variable format.
// Example: "integration-token" becomes "INTEGRATION_TOKEN".
func normalizeName(name string) string {
	normalized := strings.ToUpper(name)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

// getEnvVarName returns the environment variable name for a credential
func getEnvVarName(name string) string {
	return "TASKSYNC_" + normalizeName(name)
}

// GetFromEnv retrieves a credential value from environment variables.
// Looks for: TASKSYNC_{NAME}
func GetFromEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(getEnvVarName(name))
}

// HasEnv checks if a credential exists in environment variables
func HasEnv(name string) bool {
	return GetFromEnv(name) != ""
}
