package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/internal/config"
	"github.com/agentdeck/agentdeck/pkg/manifest"
	"github.com/agentdeck/agentdeck/pkg/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect and approve plugins",
	Long: `Inspect the plugin directories and manage trust approvals without
starting the hub. A running hub picks up approvals on its next re-sync.`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugins and their trust status",
	RunE:  runPluginsList,
}

var pluginsApproveCmd = &cobra.Command{
	Use:   "approve <plugin-id>",
	Short: "Approve a plugin's current manifest checksum",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsApprove,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsApproveCmd)
	rootCmd.AddCommand(pluginsCmd)
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	trust, err := plugin.OpenTrustStore(cfg.Plugins.TrustDBPath, zerolog.Nop())
	if err != nil {
		return err
	}
	defer trust.Close()

	discovered := plugin.NewDiscovery(zerolog.Nop()).Discover(plugin.DiscoveryConfig{
		BuiltinDir:   cfg.Plugins.BuiltinDir,
		WorkspaceDir: cfg.Plugins.WorkspaceDir,
		ExtraDirs:    cfg.Plugins.ExtraDirs,
	})
	if len(discovered) == 0 {
		fmt.Println("No plugins found.")
		return nil
	}

	loader := manifest.NewLoader(zerolog.Nop())
	for _, d := range discovered {
		result, err := loadDiscovered(loader, d)
		if err != nil {
			fmt.Printf("%-24s %-10s invalid: %v\n", d.ID, d.Source, err)
			continue
		}

		status, err := trust.Status(d.ID, result.Checksum)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %-10s %-9s %s %s\n",
			d.ID, d.Source, status, result.Manifest.Version, result.Checksum[:12])
	}
	return nil
}

func runPluginsApprove(cmd *cobra.Command, args []string) error {
	pluginID := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	discovered := plugin.NewDiscovery(zerolog.Nop()).Discover(plugin.DiscoveryConfig{
		BuiltinDir:   cfg.Plugins.BuiltinDir,
		WorkspaceDir: cfg.Plugins.WorkspaceDir,
		ExtraDirs:    cfg.Plugins.ExtraDirs,
	})

	loader := manifest.NewLoader(zerolog.Nop())
	for _, d := range discovered {
		if d.ID != pluginID {
			continue
		}
		result, err := loadDiscovered(loader, d)
		if err != nil {
			return fmt.Errorf("plugin %s has an invalid manifest: %w", pluginID, err)
		}

		trust, err := plugin.OpenTrustStore(cfg.Plugins.TrustDBPath, zerolog.Nop())
		if err != nil {
			return err
		}
		defer trust.Close()

		if err := trust.Approve(pluginID, result.Checksum); err != nil {
			return err
		}
		fmt.Printf("Approved %s (checksum %s)\n", pluginID, result.Checksum[:12])
		return nil
	}

	return fmt.Errorf("plugin %s not found in any plugin directory", pluginID)
}

func loadDiscovered(loader *manifest.Loader, d plugin.Discovered) (*manifest.LoadResult, error) {
	data, err := os.ReadFile(d.ManifestPath)
	if err != nil {
		return nil, err
	}
	return loader.Load(manifest.LoadOptions{
		Source:         data,
		CurrentVersion: version,
	})
}
