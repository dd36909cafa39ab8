package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/internal/metrics"
)

// Store persists the settings document as JSON on disk. Writes are atomic:
// the document is written to a temp file in the same directory and renamed
// over the target.
type Store struct {
	path    string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewStore creates a store for the given file path.
func NewStore(path string, logger zerolog.Logger, m *metrics.Metrics) *Store {
	return &Store{
		path:    path,
		logger:  logger.With().Str("component", "settings-store").Logger(),
		metrics: m,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and migrates the settings document. A missing file yields the
// defaults; a file that cannot be parsed is an error, never silently reset.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Debug().Str("path", s.path).Msg("No settings file, using defaults")
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}

	settings, from, err := Migrate(doc, s.logger)
	if err != nil {
		return nil, err
	}
	if from < CurrentSchemaVersion {
		if s.metrics != nil {
			s.metrics.SettingsMigrationsTotal.Inc()
		}
		// Persist the upgraded document so the migration runs once.
		if err := s.Save(settings); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist migrated settings")
		}
	}
	return settings, nil
}

// Save writes the settings document atomically.
func (s *Store) Save(settings *Settings) error {
	settings.SchemaVersion = CurrentSchemaVersion

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
