package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	_ "embed"
)

var configOnce sync.Once

var globalConfig *Config

var customConfigPath string // Custom config path set via --config flag

//go:embed config.sample.json
var sampleConfig []byte

const (
	ConfigDirPath  = "tasksync"
	ConfigFilePath = "config.json"
	ConfigDirPerm  = 0755
	ConfigFilePerm = 0600 // config may hold tokens
)

// Webhook scoping policies. The drain loop upserts by (user, external id);
// webhooks historically upserted by external id alone. Which one the
// webhook receiver uses is a deliberate configuration choice.
const (
	WebhookScopeGlobal = "global"
	WebhookScopeUser   = "user"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Integration IntegrationConfig `json:"integration" validate:"required"`
	Sync        SyncConfig        `json:"sync"`
	Webhook     WebhookConfig     `json:"webhook"`

	// AuthTokens maps API bearer tokens to local user ids
	AuthTokens map[string]string `json:"auth_tokens,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `json:"port" validate:"min=0,max=65535"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	// Path overrides the XDG-derived database location
	Path string `json:"path,omitempty"`
}

// IntegrationConfig holds integration platform settings
type IntegrationConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`

	// APIToken may be empty; the credentials resolver then consults the
	// keyring and environment
	APIToken string `json:"api_token,omitempty"`

	// CatalogPath optionally overrides the embedded integration catalog
	CatalogPath string `json:"catalog_path,omitempty"`
}

// SyncConfig bounds the drain loop and the status poller.
// Zero values take the defaults; anything below 1 is rejected so a job
// cannot start with an already-expired deadline.
type SyncConfig struct {
	MaxPages            int `json:"max_pages,omitempty" validate:"omitempty,min=1"`
	JobTimeoutMinutes   int `json:"job_timeout_minutes,omitempty" validate:"omitempty,min=1"`
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty" validate:"omitempty,min=1"`
}

// JobTimeout returns the configured job deadline as a duration
func (s SyncConfig) JobTimeout() time.Duration {
	if s.JobTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(s.JobTimeoutMinutes) * time.Minute
}

// PollInterval returns the configured poll cadence as a duration
func (s SyncConfig) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// WebhookConfig holds webhook intake settings
type WebhookConfig struct {
	// Scope selects how webhook upserts are keyed: "global" matches any
	// row with the external id, "user" scopes to DefaultUserID
	Scope string `json:"scope,omitempty" validate:"omitempty,oneof=global user"`

	// Secret, when set, is verified against the credential header; when
	// empty only the header's presence is required
	Secret string `json:"secret,omitempty"`

	// DefaultUserID owns tasks created by webhooks that arrive before any
	// sync has run for them
	DefaultUserID string `json:"default_user_id,omitempty"`
}

// Validate checks the configuration
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Webhook.Scope == WebhookScopeGlobal && c.Webhook.DefaultUserID == "" {
		return fmt.Errorf("webhook.default_user_id is required when webhook.scope is %q", WebhookScopeGlobal)
	}

	return nil
}

// UserForToken resolves a bearer token to a user id
func (c *Config) UserForToken(token string) (string, bool) {
	userID, ok := c.AuthTokens[token]
	return userID, ok
}

// SetConfigPath sets a custom config file path (from the --config flag).
// Must be called before the first GetConfig.
func SetConfigPath(path string) {
	customConfigPath = path
}

// GetConfig returns the global configuration, loading it on first use.
// A missing config file is created from the embedded sample.
func GetConfig() *Config {
	configOnce.Do(func() {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		globalConfig = cfg
	})
	return globalConfig
}

// LoadConfigFile reads and validates a config file at an explicit path
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := writeSampleConfig(path); err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Created sample config at %s, please review it\n", path)
	}

	return LoadConfigFile(path)
}

// configFilePath returns the config file location.
// Priority: --config flag > $XDG_CONFIG_HOME/tasksync/config.json > ~/.config/tasksync/config.json
func configFilePath() (string, error) {
	if customConfigPath != "" {
		return customConfigPath, nil
	}

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, ConfigDirPath, ConfigFilePath), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", ConfigDirPath, ConfigFilePath), nil
}

func writeSampleConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, sampleConfig, ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Webhook.Scope == "" {
		cfg.Webhook.Scope = WebhookScopeUser
	}
	if cfg.Sync.MaxPages == 0 {
		cfg.Sync.MaxPages = 1000
	}
	if cfg.Sync.JobTimeoutMinutes == 0 {
		cfg.Sync.JobTimeoutMinutes = 10
	}
	if cfg.Sync.PollIntervalSeconds == 0 {
		cfg.Sync.PollIntervalSeconds = 1
	}
}
