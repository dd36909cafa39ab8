package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/internal/config"
	"github.com/agentdeck/agentdeck/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect the settings document",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings document after migration",
	RunE:  runSettingsShow,
}

var settingsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the settings document to the current schema",
	RunE:  runSettingsMigrate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsMigrateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	loaded, err := loadSettings()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(loaded, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSettingsMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store := settings.NewStore(cfg.SettingsPath, zerolog.Nop(), nil)
	if _, err := os.Stat(cfg.SettingsPath); os.IsNotExist(err) {
		fmt.Println("No settings file; nothing to migrate.")
		return nil
	}

	// Load migrates and persists when the document is behind.
	loaded, err := store.Load()
	if err != nil {
		return err
	}
	fmt.Printf("Settings at schema version %d (%s)\n", loaded.SchemaVersion, cfg.SettingsPath)
	return nil
}

func loadSettings() (*settings.Settings, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return settings.NewStore(cfg.SettingsPath, zerolog.Nop(), nil).Load()
}
