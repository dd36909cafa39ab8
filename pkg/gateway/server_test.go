package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/internal/metrics"
	"github.com/agentdeck/agentdeck/pkg/plugin"
	"github.com/agentdeck/agentdeck/pkg/settings"
)

type echoTransport struct{}

func (echoTransport) Invoke(_ context.Context, record *plugin.Record, command string, payload map[string]any) (map[string]any, error) {
	return map[string]any{"plugin": record.ID, "command": command, "payload": payload}, nil
}

func (echoTransport) Close(string) {}

type gatewayFixture struct {
	server *Server
	http   *httptest.Server
	host   *plugin.Host
}

func newGatewayFixture(t *testing.T, rateLimit int) *gatewayFixture {
	t.Helper()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	builtin := t.TempDir()
	manifest := map[string]any{
		"id":      "acme-tools",
		"name":    "Acme Tools",
		"version": "1.0.0",
		"capabilities": []map[string]any{
			{"type": "chat-action", "id": "share", "label": "Share", "command": "share"},
		},
		"commands": []map[string]any{
			{"name": "share", "signature": "share(text: string): void"},
		},
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	dir := filepath.Join(builtin, "acme-tools")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, plugin.ManifestFileName), data, 0644))

	trust, err := plugin.OpenTrustStore(filepath.Join(t.TempDir(), "trust.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { trust.Close() })

	host := plugin.NewHost(plugin.HostConfig{
		Discovery:      plugin.DiscoveryConfig{BuiltinDir: builtin},
		CurrentVersion: "1.0.0",
	}, plugin.HostDeps{
		Logger:    logger,
		Trust:     trust,
		Transport: echoTransport{},
	})
	host.Sync(context.Background())

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), logger, nil)
	hub := NewHub(logger)
	t.Cleanup(hub.Close)

	server := NewServer(Options{RateLimitPerMinute: rateLimit}, host, store, hub, metrics.New(), logger)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	return &gatewayFixture{server: server, http: httpServer, host: host}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_Endpoints(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		var body map[string]any
		code := getJSON(t, f.http.URL+"/healthz", &body)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("metrics endpoint serves", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		code := getJSON(t, f.http.URL+"/metrics", nil)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("list plugins", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		var body struct {
			Plugins []pluginView `json:"plugins"`
		}
		code := getJSON(t, f.http.URL+"/api/plugins", &body)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, body.Plugins, 1)
		assert.Equal(t, "acme-tools", body.Plugins[0].ID)
		assert.Equal(t, "pending", body.Plugins[0].State)
		assert.Equal(t, []string{"share"}, body.Plugins[0].Commands)
		assert.NotEmpty(t, body.Plugins[0].Checksum)
	})

	t.Run("approve then invoke", func(t *testing.T) {
		f := newGatewayFixture(t, 0)

		var approve map[string]any
		code := postJSON(t, f.http.URL+"/api/plugins/acme-tools/approve", nil, &approve)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "enabled", approve["state"])

		var invoke struct {
			Result map[string]any `json:"result"`
		}
		code = postJSON(t, f.http.URL+"/api/plugins/acme-tools/commands/share", map[string]any{"text": "hola"}, &invoke)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "acme-tools", invoke.Result["plugin"])
		assert.Equal(t, "share", invoke.Result["command"])
	})

	t.Run("invoke before approval fails", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		var body map[string]string
		code := postJSON(t, f.http.URL+"/api/plugins/acme-tools/commands/share", nil, &body)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Contains(t, body["error"], "not enabled")
	})

	t.Run("approve unknown plugin fails", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		code := postJSON(t, f.http.URL+"/api/plugins/ghost/approve", nil, nil)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("settings endpoint serves defaults", func(t *testing.T) {
		f := newGatewayFixture(t, 0)
		var body settings.Settings
		code := getJSON(t, f.http.URL+"/api/settings", &body)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, settings.CurrentSchemaVersion, body.SchemaVersion)
	})

	t.Run("api routes are rate limited", func(t *testing.T) {
		f := newGatewayFixture(t, 2)
		assert.Equal(t, http.StatusOK, getJSON(t, f.http.URL+"/api/plugins", nil))
		assert.Equal(t, http.StatusOK, getJSON(t, f.http.URL+"/api/plugins", nil))

		resp, err := http.Get(f.http.URL + "/api/plugins")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	})
}
