package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/internal/config"
	"github.com/agentdeck/agentdeck/internal/logger"
	"github.com/agentdeck/agentdeck/internal/metrics"
	"github.com/agentdeck/agentdeck/pkg/agent"
	"github.com/agentdeck/agentdeck/pkg/gateway"
	"github.com/agentdeck/agentdeck/pkg/plugin"
	"github.com/agentdeck/agentdeck/pkg/settings"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the AgentDeck hub",
	Long: `Start the hub in the foreground: sync plugins, watch their
directories, and serve the local gateway until interrupted.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return err
	}
	defer log.Close()
	zl := log.Zerolog()
	zl.Info().Str("version", version).Msg("Starting AgentDeck hub")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store := settings.NewStore(cfg.SettingsPath, zl, m)
	loaded, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	trust, err := plugin.OpenTrustStore(cfg.Plugins.TrustDBPath, zl)
	if err != nil {
		return err
	}
	defer trust.Close()

	hub := gateway.NewHub(zl)
	transport := plugin.NewRPCTransport(zl)
	defer transport.Shutdown()

	host := plugin.NewHost(plugin.HostConfig{
		Discovery: plugin.DiscoveryConfig{
			BuiltinDir:   cfg.Plugins.BuiltinDir,
			WorkspaceDir: cfg.Plugins.WorkspaceDir,
			ExtraDirs:    cfg.Plugins.ExtraDirs,
		},
		CurrentVersion: version,
		RescanSchedule: cfg.Plugins.RescanSchedule,
	}, plugin.HostDeps{
		Logger:    zl,
		Trust:     trust,
		Transport: transport,
		Metrics:   m,
		OnEvent: func(e plugin.Event) {
			hub.Broadcast(string(e.Type), e)
		},
	})

	result := host.Sync(ctx)
	zl.Info().
		Int("loaded", len(result.Loaded)).
		Int("pending", len(result.Pending)).
		Int("failed", len(result.Failed)).
		Msg("Initial plugin sync")

	if cfg.Plugins.Watch {
		debounce := time.Duration(cfg.Plugins.WatchDebounceMS) * time.Millisecond
		watcher, err := plugin.NewWatcher(host, zl, debounce)
		if err != nil {
			zl.Warn().Err(err).Msg("Plugin watcher unavailable")
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}
	if err := host.StartRescan(ctx); err != nil {
		return err
	}
	defer host.Stop()

	catalog := agent.NewCatalog(loaded.Agents, cfg.ProviderKeys(), zl)
	zl.Debug().Strs("agents", catalog.IDs()).Msg("Agent catalog ready")

	server := gateway.NewServer(gateway.Options{
		Host:               cfg.Gateway.Host,
		Port:               cfg.Gateway.Port,
		RateLimitPerMinute: cfg.Gateway.RateLimitPerMinute,
	}, host, store, hub, m, zl)

	return server.Start(ctx)
}
