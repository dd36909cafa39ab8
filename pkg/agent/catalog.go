package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/pkg/settings"
)

// Catalog maps the settings agent roster to live providers. Entries whose
// provider is unsupported or has no API key are skipped with a warning so
// one bad roster entry never takes down the rest.
type Catalog struct {
	logger  zerolog.Logger
	mu      sync.RWMutex
	entries map[string]catalogEntry
}

type catalogEntry struct {
	agent    settings.Agent
	provider Provider
}

// NewCatalog builds a catalog from the roster. Keys maps provider name to
// API key.
func NewCatalog(roster []settings.Agent, keys map[string]string, logger zerolog.Logger) *Catalog {
	c := &Catalog{
		logger:  logger.With().Str("component", "agent-catalog").Logger(),
		entries: make(map[string]catalogEntry, len(roster)),
	}
	c.Reload(roster, keys)
	return c
}

// Reload rebuilds the catalog from a new roster, e.g. after a settings
// change.
func (c *Catalog) Reload(roster []settings.Agent, keys map[string]string) {
	entries := make(map[string]catalogEntry, len(roster))
	for _, a := range roster {
		key := keys[a.Provider]
		if key == "" {
			c.logger.Warn().Str("agent", a.ID).Str("provider", a.Provider).Msg("No API key for agent, skipping")
			continue
		}
		provider, err := New(a.Provider, key)
		if err != nil {
			c.logger.Warn().Err(err).Str("agent", a.ID).Msg("Skipping agent")
			continue
		}
		entries[a.ID] = catalogEntry{agent: a, provider: provider}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.logger.Info().Int("agents", len(entries)).Msg("Agent catalog loaded")
}

// Get returns the provider and roster entry for an agent id.
func (c *Catalog) Get(agentID string) (Provider, settings.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[agentID]
	if !ok {
		return nil, settings.Agent{}, fmt.Errorf("unknown agent: %s", agentID)
	}
	return entry.provider, entry.agent, nil
}

// IDs returns the available agent ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
