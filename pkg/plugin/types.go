package plugin

import (
	"time"

	"github.com/agentdeck/agentdeck/pkg/manifest"
)

// State represents the lifecycle state of a plugin in the host.
type State string

const (
	// StatePending means the manifest loaded but its checksum has not been
	// approved (or drifted from the approved one); capabilities stay
	// inactive until the user re-approves.
	StatePending State = "pending"

	StateEnabled  State = "enabled"
	StateDisabled State = "disabled"
	StateFailed   State = "failed"
)

// Source indicates where a plugin was discovered.
type Source string

const (
	SourceBuiltin   Source = "builtin"
	SourceWorkspace Source = "workspace"
	SourceExtra     Source = "extra"
)

// Discovered represents a plugin directory found during discovery.
type Discovered struct {
	ID           string
	Path         string
	Source       Source
	ManifestPath string
}

// Record tracks a plugin the host knows about, loaded or failed.
type Record struct {
	ID           string
	Path         string
	Source       Source
	Manifest     *manifest.Manifest
	Checksum     string
	State        State
	LoadedAt     time.Time
	LastReloadAt *time.Time
	ErrorCount   int
	LastError    error
}

// DiscoveryConfig configures the directories discovery scans.
type DiscoveryConfig struct {
	BuiltinDir   string
	WorkspaceDir string
	ExtraDirs    []string
}

// HostConfig configures the plugin host.
type HostConfig struct {
	Discovery DiscoveryConfig

	// CurrentVersion is the application version manifests are gated
	// against.
	CurrentVersion string

	// RescanSchedule is an optional cron spec for periodic re-discovery
	// (e.g. "@every 5m"). Empty disables the scheduler.
	RescanSchedule string
}

// SyncResult summarizes one discovery-and-load pass.
type SyncResult struct {
	Loaded  []string
	Pending []string
	Failed  []string
	Errors  map[string]error
}

// DependencyGraph captures declared plugin requirements.
type DependencyGraph struct {
	Nodes map[string]*manifest.Manifest
	Edges map[string][]string // plugin id -> required plugin ids
}
