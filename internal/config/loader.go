package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader reads and writes the hub configuration file.
type Loader struct {
	configPath string
}

// NewLoader creates a loader. An empty path means the default location,
// ~/.agentdeck/agentdeck.json.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the configuration. A missing file yields the defaults with
// derived paths filled in; environment variables with the AGENTDECK prefix
// override file values.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.path()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		v.SetEnvPrefix("AGENTDECK")
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := l.applyDerivedDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDerivedDefaults fills in paths that hang off DataDir.
func (l *Loader) applyDerivedDefaults(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".agentdeck")
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = filepath.Join(cfg.DataDir, "settings.json")
	}
	if cfg.Plugins.TrustDBPath == "" {
		cfg.Plugins.TrustDBPath = filepath.Join(cfg.DataDir, "trust.db")
	}
	if cfg.Plugins.BuiltinDir == "" {
		cfg.Plugins.BuiltinDir = filepath.Join(cfg.DataDir, "plugins", "builtin")
	}
	if cfg.Plugins.WorkspaceDir == "" {
		cfg.Plugins.WorkspaceDir = filepath.Join(cfg.DataDir, "plugins", "workspace")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "agentdeck.log")
	}
	return nil
}

// Save writes the configuration file.
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("data_dir", cfg.DataDir)
	v.Set("settings_path", cfg.SettingsPath)
	v.Set("plugins", cfg.Plugins)
	v.Set("gateway", cfg.Gateway)
	v.Set("logging", cfg.Logging)
	v.Set("ai", cfg.AI)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the effective config file path.
func (l *Loader) ConfigPath() string {
	path, err := l.path()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) path() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".agentdeck", "agentdeck.json"), nil
}

// Load is a convenience function that creates a loader and loads the
// config.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
