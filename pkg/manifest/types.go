package manifest

// CapabilityType tags the extension point a capability contributes.
type CapabilityType string

const (
	CapabilityAgentProvider  CapabilityType = "agent-provider"
	CapabilityChatAction     CapabilityType = "chat-action"
	CapabilityWorkspacePanel CapabilityType = "workspace-panel"
	CapabilityMCPEndpoint    CapabilityType = "mcp-endpoint"
)

// Capability is one declared extension point. The set of meaningful fields
// depends on Type; unknown or incomplete entries are dropped during
// validation rather than rejected as errors.
type Capability struct {
	Type    CapabilityType `json:"type"`
	ID      string         `json:"id,omitempty"`
	Label   string         `json:"label,omitempty"`
	Command string         `json:"command,omitempty"` // chat-action
	Title   string         `json:"title,omitempty"`   // workspace-panel
	URL     string         `json:"url,omitempty"`     // mcp-endpoint
	Models  []string       `json:"models,omitempty"`  // agent-provider
}

// CredentialField describes one credential input a plugin asks the user for.
type CredentialField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Secret   bool   `json:"secret,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Command declares an invocable plugin command. Names are unique within a
// manifest; the first occurrence wins.
type Command struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// Integrity is the author-declared checksum embedded in a manifest.
type Integrity struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

// Compatibility gates a manifest against the consuming application version.
type Compatibility struct {
	MinVersion string `json:"minVersion,omitempty"`
	MaxVersion string `json:"maxVersion,omitempty"`
}

// Requirement declares a dependency on another plugin. Version is an
// optional semver constraint (e.g. "^1.2.0").
type Requirement struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// Manifest describes a plugin's identity, capabilities, and trust metadata.
// Instances are ephemeral: constructed from an external source at load time,
// validated and checksummed synchronously, and never mutated afterwards.
type Manifest struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Description   string            `json:"description,omitempty"`
	Author        string            `json:"author,omitempty"`
	Entry         string            `json:"entry,omitempty"` // host-side executable, relative to the plugin dir
	Capabilities  []Capability      `json:"capabilities"`
	Credentials   []CredentialField `json:"credentials,omitempty"`
	Commands      []Command         `json:"commands,omitempty"`
	Requires      []Requirement     `json:"requires,omitempty"`
	Integrity     *Integrity        `json:"integrity,omitempty"`
	Compatibility *Compatibility    `json:"compatibility,omitempty"`
}

// Verified pairs a manifest with a checksum the caller already trusts,
// typically read back from the settings store.
type Verified struct {
	Manifest *Manifest
	Checksum string
}

// LoadResult is the immutable outcome of a successful load.
type LoadResult struct {
	Manifest *Manifest
	Checksum string
}
