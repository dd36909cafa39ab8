package manifest

// filterCapabilities returns the structurally valid capabilities in their
// original order. Validity depends on the type tag; anything else is
// silently dropped.
func filterCapabilities(caps []Capability) []Capability {
	valid := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if capabilityValid(c) {
			valid = append(valid, c)
		}
	}
	return valid
}

func capabilityValid(c Capability) bool {
	switch c.Type {
	case CapabilityAgentProvider:
		return c.ID != "" && c.Label != ""
	case CapabilityChatAction:
		return c.ID != "" && c.Label != "" && c.Command != ""
	case CapabilityWorkspacePanel:
		return c.ID != "" && c.Title != ""
	case CapabilityMCPEndpoint:
		return c.ID != "" && c.URL != ""
	default:
		return false
	}
}

// filterCredentials keeps credential fields carrying both an id and a label.
func filterCredentials(fields []CredentialField) []CredentialField {
	valid := make([]CredentialField, 0, len(fields))
	for _, f := range fields {
		if f.ID != "" && f.Label != "" {
			valid = append(valid, f)
		}
	}
	return valid
}

// filterCommands keeps commands with a non-empty name and signature. Names
// are unique within a manifest; duplicates after the first are dropped.
func filterCommands(commands []Command) []Command {
	seen := make(map[string]bool, len(commands))
	valid := make([]Command, 0, len(commands))
	for _, c := range commands {
		if c.Name == "" || c.Signature == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		valid = append(valid, c)
	}
	return valid
}

// normalize filters the entry lists of a manifest in place.
func normalize(m *Manifest) {
	m.Capabilities = filterCapabilities(m.Capabilities)
	m.Credentials = filterCredentials(m.Credentials)
	m.Commands = filterCommands(m.Commands)
}
