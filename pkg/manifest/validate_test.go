package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCapabilities(t *testing.T) {
	t.Run("keeps well-formed entries in order", func(t *testing.T) {
		caps := []Capability{
			{Type: CapabilityChatAction, ID: "a", Label: "A", Command: "run-a"},
			{Type: CapabilityWorkspacePanel, ID: "p", Title: "Panel"},
			{Type: CapabilityMCPEndpoint, ID: "m", URL: "http://localhost:7002"},
			{Type: CapabilityAgentProvider, ID: "prov", Label: "Provider"},
		}
		assert.Equal(t, caps, filterCapabilities(caps))
	})

	t.Run("drops malformed entries silently", func(t *testing.T) {
		testCases := []struct {
			name string
			cap  Capability
		}{
			{"unknown type", Capability{Type: "telemetry-sink", ID: "x", Label: "X"}},
			{"chat-action missing command", Capability{Type: CapabilityChatAction, ID: "x", Label: "X"}},
			{"chat-action missing label", Capability{Type: CapabilityChatAction, ID: "x", Command: "c"}},
			{"workspace-panel missing title", Capability{Type: CapabilityWorkspacePanel, ID: "x"}},
			{"mcp-endpoint missing url", Capability{Type: CapabilityMCPEndpoint, ID: "x"}},
			{"agent-provider missing id", Capability{Type: CapabilityAgentProvider, Label: "X"}},
			{"empty entry", Capability{}},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Empty(t, filterCapabilities([]Capability{tc.cap}))
			})
		}
	})

	t.Run("mixed list keeps only valid entries", func(t *testing.T) {
		caps := []Capability{
			{Type: CapabilityChatAction, ID: "ok", Label: "OK", Command: "go"},
			{Type: CapabilityChatAction, ID: "bad", Label: "Bad"},
		}
		got := filterCapabilities(caps)
		assert.Len(t, got, 1)
		assert.Equal(t, "ok", got[0].ID)
	})
}

func TestFilterCredentials(t *testing.T) {
	fields := []CredentialField{
		{ID: "token", Label: "API Token", Secret: true, Required: true},
		{ID: "", Label: "No ID"},
		{ID: "no-label"},
	}
	got := filterCredentials(fields)
	assert.Len(t, got, 1)
	assert.Equal(t, "token", got[0].ID)
}

func TestFilterCommands(t *testing.T) {
	t.Run("duplicate names keep first occurrence", func(t *testing.T) {
		commands := []Command{
			{Name: "send", Signature: "first"},
			{Name: "send", Signature: "second"},
			{Name: "fetch", Signature: "sig"},
		}
		got := filterCommands(commands)
		assert.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Signature)
		assert.Equal(t, "fetch", got[1].Name)
	})

	t.Run("empty name or signature dropped", func(t *testing.T) {
		commands := []Command{
			{Name: "", Signature: "sig"},
			{Name: "cmd", Signature: ""},
		}
		assert.Empty(t, filterCommands(commands))
	})
}
