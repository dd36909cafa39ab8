package config

import (
	"encoding/json"
	"fmt"
)

// Config is the hub's own configuration, as opposed to the user settings
// document the settings package manages.
type Config struct {
	// DataDir is where the hub keeps its state (trust db, logs, settings).
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// SettingsPath is the global-settings document location.
	SettingsPath string `json:"settings_path" mapstructure:"settings_path"`

	Plugins PluginsConfig `json:"plugins" mapstructure:"plugins"`
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	AI      AIConfig      `json:"ai" mapstructure:"ai"`
}

// PluginsConfig configures plugin discovery and lifecycle.
type PluginsConfig struct {
	BuiltinDir   string   `json:"builtin_dir" mapstructure:"builtin_dir"`
	WorkspaceDir string   `json:"workspace_dir" mapstructure:"workspace_dir"`
	ExtraDirs    []string `json:"extra_dirs" mapstructure:"extra_dirs"`

	// TrustDBPath is the SQLite file recording approved manifest checksums.
	TrustDBPath string `json:"trust_db_path" mapstructure:"trust_db_path"`

	// RescanSchedule is a cron spec for periodic re-discovery; empty
	// disables it.
	RescanSchedule string `json:"rescan_schedule" mapstructure:"rescan_schedule"`

	// WatchDebounceMS is the filesystem watcher debounce in milliseconds.
	WatchDebounceMS int `json:"watch_debounce_ms" mapstructure:"watch_debounce_ms"`

	// Watch enables the filesystem watcher over the plugin directories.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// GatewayConfig configures the local HTTP gateway.
type GatewayConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSizeMB int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// AIConfig holds AI provider credentials.
type AIConfig struct {
	Profiles []AIProfile `json:"profiles" mapstructure:"profiles"`
}

// AIProfile is one provider credential.
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
}

// DefaultConfig returns a config with default values. Path defaults that
// depend on DataDir are filled in by the loader.
func DefaultConfig() *Config {
	return &Config{
		Plugins: PluginsConfig{
			WatchDebounceMS: 500,
			Watch:           true,
		},
		Gateway: GatewayConfig{
			Host:               "127.0.0.1",
			Port:               4680,
			RateLimitPerMinute: 300,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 50,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		AI: AIConfig{
			Profiles: []AIProfile{},
		},
	}
}

// String returns a JSON representation of the config with API keys
// masked.
func (c *Config) String() string {
	masked := *c
	masked.AI.Profiles = make([]AIProfile, len(c.AI.Profiles))
	for i, p := range c.AI.Profiles {
		p.APIKey = "[REDACTED]"
		masked.AI.Profiles[i] = p
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// ProviderKeys maps provider name to API key for the agent catalog.
func (c *Config) ProviderKeys() map[string]string {
	keys := make(map[string]string, len(c.AI.Profiles))
	for _, p := range c.AI.Profiles {
		if _, exists := keys[p.Provider]; !exists {
			keys[p.Provider] = p.APIKey
		}
	}
	return keys
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway port %d is out of range", c.Gateway.Port)
	}
	if c.Gateway.RateLimitPerMinute < 1 {
		return fmt.Errorf("gateway rate limit must be positive")
	}
	if c.Plugins.WatchDebounceMS < 0 {
		return fmt.Errorf("plugin watch debounce cannot be negative")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validator := NewValidator()
	seen := make(map[string]bool, len(c.AI.Profiles))
	for i, profile := range c.AI.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("AI profile %d: id is required", i)
		}
		if seen[profile.ID] {
			return fmt.Errorf("AI profile %s: duplicate id", profile.ID)
		}
		seen[profile.ID] = true
		if err := validator.ValidateProvider(profile.Provider); err != nil {
			return fmt.Errorf("AI profile %s: %w", profile.ID, err)
		}
		if err := validator.ValidateAPIKey(profile.APIKey, profile.Provider); err != nil {
			return fmt.Errorf("AI profile %s: %w", profile.ID, err)
		}
	}

	return nil
}
