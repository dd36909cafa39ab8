package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/internal/metrics"
	"github.com/agentdeck/agentdeck/pkg/manifest"
)

// EventType classifies host lifecycle events.
type EventType string

const (
	EventLoaded   EventType = "plugin.loaded"
	EventPending  EventType = "plugin.pending"
	EventFailed   EventType = "plugin.failed"
	EventApproved EventType = "plugin.approved"
	EventRemoved  EventType = "plugin.removed"
)

// Event is broadcast on plugin lifecycle transitions.
type Event struct {
	Type     EventType `json:"type"`
	PluginID string    `json:"pluginId"`
	State    State     `json:"state,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// EventFunc receives host events. Callbacks must not block.
type EventFunc func(Event)

// Host orchestrates discovery, manifest loading, trust gating, and command
// dispatch. A fault in one plugin's manifest never aborts loading of
// others: each candidate is loaded in isolation and failures are recorded
// per plugin.
type Host struct {
	config    HostConfig
	logger    zerolog.Logger
	loader    *manifest.Loader
	discovery *Discovery
	resolver  *DependencyResolver
	registry  *Registry
	trust     *TrustStore
	transport CommandTransport
	metrics   *metrics.Metrics
	cron      *cron.Cron
	onEvent   EventFunc
	syncMu    sync.Mutex
}

// HostDeps carries the host's collaborators.
type HostDeps struct {
	Logger    zerolog.Logger
	Trust     *TrustStore
	Transport CommandTransport
	Metrics   *metrics.Metrics
	OnEvent   EventFunc
}

// NewHost creates a plugin host.
func NewHost(config HostConfig, deps HostDeps) *Host {
	logger := deps.Logger.With().Str("component", "plugin-host").Logger()
	return &Host{
		config:    config,
		logger:    logger,
		loader:    manifest.NewLoader(deps.Logger),
		discovery: NewDiscovery(deps.Logger),
		resolver:  NewDependencyResolver(deps.Logger),
		registry:  NewRegistry(),
		trust:     deps.Trust,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		onEvent:   deps.OnEvent,
	}
}

// Registry exposes the host's plugin records.
func (h *Host) Registry() *Registry {
	return h.registry
}

// Sync runs one discovery-and-load pass: scan directories, load each
// manifest, resolve requirements, gate on trust, and update the registry.
func (h *Host) Sync(ctx context.Context) *SyncResult {
	h.syncMu.Lock()
	defer h.syncMu.Unlock()

	result := &SyncResult{Errors: make(map[string]error)}
	discovered := h.discovery.Discover(h.config.Discovery)

	candidates := make(map[string]*Record)
	manifests := make(map[string]*manifest.Manifest)

	for _, d := range discovered {
		record, err := h.loadCandidate(d)
		if err != nil {
			h.recordFailure(d, err, result)
			continue
		}
		if record.ID != d.ID {
			h.logger.Warn().
				Str("dir", d.ID).
				Str("manifest_id", record.ID).
				Msg("Plugin directory name differs from manifest id")
		}
		if prev, ok := candidates[record.ID]; ok {
			h.logger.Warn().
				Str("id", record.ID).
				Str("kept", prev.Path).
				Str("ignored", d.Path).
				Msg("Duplicate plugin id, first discovered wins")
			continue
		}
		candidates[record.ID] = record
		manifests[record.ID] = record.Manifest
	}

	// Requirement validation runs over the full candidate set; offenders
	// fail individually.
	graph := h.resolver.BuildGraph(manifests)
	for id, err := range h.resolver.Validate(graph) {
		record := candidates[id]
		record.State = StateFailed
		record.LastError = err
		record.ErrorCount++
		delete(manifests, id)
	}
	order, cyclic := h.resolver.LoadOrder(h.resolver.BuildGraph(manifests))
	for id, err := range cyclic {
		record := candidates[id]
		record.State = StateFailed
		record.LastError = err
		record.ErrorCount++
	}

	for _, id := range order {
		record := candidates[id]
		if err := h.gateOnTrust(record); err != nil {
			record.State = StateFailed
			record.LastError = err
		}
	}

	h.applyRecords(candidates, result)
	h.updateActiveGauge()

	h.logger.Info().
		Int("loaded", len(result.Loaded)).
		Int("pending", len(result.Pending)).
		Int("failed", len(result.Failed)).
		Msg("Plugin sync completed")
	return result
}

// loadCandidate reads and validates a single discovered manifest.
func (h *Host) loadCandidate(d Discovered) (*Record, error) {
	data, err := os.ReadFile(d.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	loaded, err := h.loader.Load(manifest.LoadOptions{
		Source:         data,
		CurrentVersion: h.config.CurrentVersion,
	})
	if err != nil {
		return nil, err
	}

	return &Record{
		ID:       loaded.Manifest.ID,
		Path:     d.Path,
		Source:   d.Source,
		Manifest: loaded.Manifest,
		Checksum: loaded.Checksum,
	}, nil
}

// gateOnTrust assigns the record's state from the trust store.
func (h *Host) gateOnTrust(record *Record) error {
	status, err := h.trust.Status(record.ID, record.Checksum)
	if err != nil {
		return err
	}
	switch status {
	case TrustApproved:
		record.State = StateEnabled
	case TrustDisabled:
		record.State = StateDisabled
	case TrustStale:
		if h.metrics != nil {
			h.metrics.PluginChecksumMismatchesTotal.Inc()
		}
		h.logger.Warn().
			Str("plugin", record.ID).
			Str("checksum", record.Checksum).
			Msg("Manifest changed since approval, re-approval required")
		record.State = StatePending
	default:
		record.State = StatePending
	}
	return nil
}

// applyRecords reconciles the registry with this pass's candidates and
// emits lifecycle events.
func (h *Host) applyRecords(candidates map[string]*Record, result *SyncResult) {
	seen := make(map[string]bool, len(candidates))
	for id, record := range candidates {
		seen[id] = true

		if prev, ok := h.registry.Get(id); ok && prev.Checksum != record.Checksum {
			// The executable may have changed with the manifest.
			h.transport.Close(id)
		}
		h.registry.Put(record)

		switch record.State {
		case StateEnabled:
			result.Loaded = append(result.Loaded, id)
			h.countLoad(record, "loaded")
			h.emit(Event{Type: EventLoaded, PluginID: id, State: record.State})
		case StateFailed:
			result.Failed = append(result.Failed, id)
			result.Errors[id] = record.LastError
			h.countLoad(record, "failed")
			h.emit(Event{Type: EventFailed, PluginID: id, State: record.State, Error: errString(record.LastError)})
		default:
			result.Pending = append(result.Pending, id)
			h.countLoad(record, "pending")
			h.emit(Event{Type: EventPending, PluginID: id, State: record.State})
		}
	}

	for _, record := range h.registry.All() {
		if !seen[record.ID] {
			h.transport.Close(record.ID)
			_ = h.registry.Remove(record.ID)
			h.emit(Event{Type: EventRemoved, PluginID: record.ID})
		}
	}
}

func (h *Host) recordFailure(d Discovered, err error, result *SyncResult) {
	h.logger.Warn().Err(err).Str("plugin", d.ID).Str("manifest", d.ManifestPath).Msg("Skipping plugin")

	record := &Record{
		ID:        d.ID,
		Path:      d.Path,
		Source:    d.Source,
		State:     StateFailed,
		LastError: err,
	}
	if prev, ok := h.registry.Get(d.ID); ok {
		record.ErrorCount = prev.ErrorCount
	}
	record.ErrorCount++
	h.registry.Put(record)

	result.Failed = append(result.Failed, d.ID)
	result.Errors[d.ID] = err
	h.countLoad(record, "failed")
	if errors.Is(err, manifest.ErrChecksumMismatch) && h.metrics != nil {
		h.metrics.PluginChecksumMismatchesTotal.Inc()
	}
	h.emit(Event{Type: EventFailed, PluginID: d.ID, State: StateFailed, Error: err.Error()})
}

// Approve records trust for a plugin's current checksum and activates it.
func (h *Host) Approve(pluginID string) error {
	record, ok := h.registry.Get(pluginID)
	if !ok {
		return fmt.Errorf("plugin %s not found", pluginID)
	}
	if record.State == StateFailed || record.Checksum == "" {
		return fmt.Errorf("plugin %s has no loadable manifest to approve", pluginID)
	}

	if err := h.trust.Approve(pluginID, record.Checksum); err != nil {
		return err
	}
	if err := h.registry.SetState(pluginID, StateEnabled); err != nil {
		return err
	}
	h.updateActiveGauge()
	h.emit(Event{Type: EventApproved, PluginID: pluginID, State: StateEnabled})
	return nil
}

// SetEnabled flips a plugin on or off without touching its approval.
func (h *Host) SetEnabled(pluginID string, enabled bool) error {
	if err := h.trust.SetEnabled(pluginID, enabled); err != nil {
		return err
	}
	state := StateDisabled
	if enabled {
		state = StateEnabled
	}
	if !enabled {
		h.transport.Close(pluginID)
	}
	if err := h.registry.SetState(pluginID, state); err != nil {
		return err
	}
	h.updateActiveGauge()
	return nil
}

// Invoke dispatches a command to an enabled plugin. The command must be
// declared in the plugin's validated manifest.
func (h *Host) Invoke(ctx context.Context, pluginID, command string, payload map[string]any) (map[string]any, error) {
	record, ok := h.registry.Get(pluginID)
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", pluginID)
	}
	if record.State != StateEnabled {
		return nil, fmt.Errorf("plugin %s is not enabled (state: %s)", pluginID, record.State)
	}
	if !declaresCommand(record.Manifest, command) {
		return nil, fmt.Errorf("plugin %s does not declare command %s", pluginID, command)
	}

	result, err := h.transport.Invoke(ctx, record, command, payload)
	if h.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.CommandInvocationsTotal.WithLabelValues(pluginID, status).Inc()
	}
	if err != nil {
		_ = h.registry.RecordError(pluginID, err)
		return nil, fmt.Errorf("command %s on plugin %s failed: %w", command, pluginID, err)
	}
	return result, nil
}

// StartRescan schedules periodic re-discovery using the configured cron
// spec. Returns without scheduling when the spec is empty.
func (h *Host) StartRescan(ctx context.Context) error {
	if h.config.RescanSchedule == "" {
		return nil
	}
	h.cron = cron.New()
	_, err := h.cron.AddFunc(h.config.RescanSchedule, func() {
		h.Sync(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid rescan schedule %q: %w", h.config.RescanSchedule, err)
	}
	h.cron.Start()
	h.logger.Info().Str("schedule", h.config.RescanSchedule).Msg("Plugin rescan scheduled")
	return nil
}

// Stop halts the rescan scheduler.
func (h *Host) Stop() {
	if h.cron != nil {
		h.cron.Stop()
	}
}

func (h *Host) countLoad(record *Record, status string) {
	if h.metrics != nil {
		h.metrics.PluginsLoadedTotal.WithLabelValues(string(record.Source), status).Inc()
	}
}

func (h *Host) updateActiveGauge() {
	if h.metrics != nil {
		h.metrics.PluginsActive.Set(float64(len(h.registry.ByState(StateEnabled))))
	}
}

func (h *Host) emit(event Event) {
	if h.onEvent != nil {
		h.onEvent(event)
	}
}

func declaresCommand(m *manifest.Manifest, command string) bool {
	if m == nil {
		return false
	}
	for _, c := range m.Commands {
		if c.Name == command {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
