package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ManifestFileName is the file discovery looks for in each plugin directory.
const ManifestFileName = "manifest.json"

// Discovery scans directories to find candidate plugins.
type Discovery struct {
	logger zerolog.Logger
}

// NewDiscovery creates a new discovery instance.
func NewDiscovery(logger zerolog.Logger) *Discovery {
	return &Discovery{
		logger: logger.With().Str("component", "plugin-discovery").Logger(),
	}
}

// Discover scans the configured directories. A directory that cannot be
// scanned is logged and skipped; discovery never fails outright because one
// source is broken.
func (d *Discovery) Discover(config DiscoveryConfig) []Discovered {
	var discovered []Discovered

	scan := func(dir string, source Source) {
		if dir == "" {
			return
		}
		plugins, err := d.scanDirectory(dir, source)
		if err != nil {
			d.logger.Warn().Err(err).Str("dir", dir).Str("source", string(source)).Msg("Failed to scan plugin directory")
			return
		}
		discovered = append(discovered, plugins...)
	}

	scan(config.BuiltinDir, SourceBuiltin)
	scan(config.WorkspaceDir, SourceWorkspace)
	for _, extraDir := range config.ExtraDirs {
		scan(extraDir, SourceExtra)
	}

	d.logger.Debug().Int("count", len(discovered)).Msg("Plugin discovery completed")
	return discovered
}

// scanDirectory finds subdirectories containing a manifest file.
func (d *Discovery) scanDirectory(dir string, source Source) ([]Discovered, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Debug().Str("dir", dir).Msg("Directory does not exist, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var discovered []Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFileName)

		if _, err := os.Stat(manifestPath); err != nil {
			if !os.IsNotExist(err) {
				d.logger.Warn().Err(err).Str("dir", pluginDir).Msg("Failed to check for manifest")
			}
			continue
		}

		discovered = append(discovered, Discovered{
			ID:           entry.Name(),
			Path:         pluginDir,
			Source:       source,
			ManifestPath: manifestPath,
		})
		d.logger.Debug().
			Str("id", entry.Name()).
			Str("path", pluginDir).
			Str("source", string(source)).
			Msg("Discovered plugin")
	}

	return discovered, nil
}
