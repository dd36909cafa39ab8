package plugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"
)

// RPCTransport invokes plugin commands in child processes over net/rpc.
// Processes are launched lazily on first invocation and reused until the
// plugin is closed or the transport shuts down.
type RPCTransport struct {
	logger  zerolog.Logger
	clients map[string]*launchedPlugin
	mu      sync.Mutex
}

type launchedPlugin struct {
	client *goplugin.Client
	deck   DeckPlugin
}

// NewRPCTransport creates the out-of-process command transport.
func NewRPCTransport(logger zerolog.Logger) *RPCTransport {
	return &RPCTransport{
		logger:  logger.With().Str("component", "plugin-transport").Logger(),
		clients: make(map[string]*launchedPlugin),
	}
}

// Invoke dispatches a command to the plugin's process, launching it first if
// needed.
func (t *RPCTransport) Invoke(ctx context.Context, record *Record, command string, payload map[string]any) (map[string]any, error) {
	deck, err := t.connect(record)
	if err != nil {
		return nil, err
	}
	return deck.Invoke(ctx, command, payload)
}

func (t *RPCTransport) connect(record *Record) (DeckPlugin, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if launched, ok := t.clients[record.ID]; ok {
		return launched.deck, nil
	}

	if record.Manifest.Entry == "" {
		return nil, fmt.Errorf("plugin %s declares no entry executable", record.ID)
	}
	entryPath := filepath.Join(record.Path, record.Manifest.Entry)
	if _, err := os.Stat(entryPath); err != nil {
		return nil, fmt.Errorf("plugin executable not found: %s", entryPath)
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(entryPath),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", record.ID, err)
	}
	raw, err := rpcClient.Dispense("deck")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", record.ID, err)
	}
	deck, ok := raw.(DeckPlugin)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s served an unexpected type", record.ID)
	}

	t.clients[record.ID] = &launchedPlugin{client: client, deck: deck}
	t.logger.Info().Str("plugin", record.ID).Str("entry", entryPath).Msg("Plugin process started")
	return deck, nil
}

// Close kills the process backing a plugin, if one is running.
func (t *RPCTransport) Close(pluginID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if launched, ok := t.clients[pluginID]; ok {
		launched.client.Kill()
		delete(t.clients, pluginID)
		t.logger.Debug().Str("plugin", pluginID).Msg("Plugin process stopped")
	}
}

// Shutdown kills every running plugin process.
func (t *RPCTransport) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, launched := range t.clients {
		launched.client.Kill()
		delete(t.clients, id)
	}
}
