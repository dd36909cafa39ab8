package settings

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// A migration upgrades a raw settings document by one schema version.
// Migrations run on the loosely-typed form so old documents never have to
// fit today's struct before they are upgraded.
type migration struct {
	from int
	name string
	fn   func(map[string]any) map[string]any
}

var migrations = []migration{
	{1, "add-theme", migrateAddTheme},
	{2, "project-git-provider", migrateProjectGitProvider},
	{3, "rename-active-project", migrateRenameActiveProject},
	{4, "agent-roster", migrateAgentRoster},
	{5, "plugin-map", migratePluginMap},
	{6, "plugin-approved-checksum", migratePluginApprovedChecksum},
	{7, "ui-and-visuals", migrateUIAndVisuals},
	{8, "theme-under-ui", migrateThemeUnderUI},
}

// Migrate upgrades a raw document to the current schema version, decodes
// it, and repairs cross-field invariants. It returns the settings and the
// version the document declared before migration.
func Migrate(doc map[string]any, logger zerolog.Logger) (*Settings, int, error) {
	log := logger.With().Str("component", "settings").Logger()

	from := documentVersion(doc)
	if from > CurrentSchemaVersion {
		return nil, from, fmt.Errorf("settings schema version %d is newer than supported version %d", from, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.from < from {
			continue
		}
		doc = m.fn(doc)
		log.Debug().Str("migration", m.name).Int("to", m.from+1).Msg("Applied settings migration")
	}
	doc["schemaVersion"] = CurrentSchemaVersion

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, from, fmt.Errorf("failed to encode migrated settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, from, fmt.Errorf("migrated settings do not match the schema: %w", err)
	}

	Normalize(&s)
	if from < CurrentSchemaVersion {
		log.Info().Int("from", from).Int("to", CurrentSchemaVersion).Msg("Settings migrated")
	}
	return &s, from, nil
}

// documentVersion reads the declared schema version. Unversioned documents
// predate versioning and are treated as v1.
func documentVersion(doc map[string]any) int {
	v, ok := doc["schemaVersion"]
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case float64:
		if n >= 1 {
			return int(n)
		}
	case int:
		if n >= 1 {
			return n
		}
	}
	return 1
}

// v1 -> v2: introduce the theme preference.
func migrateAddTheme(doc map[string]any) map[string]any {
	if _, ok := doc["theme"]; !ok {
		doc["theme"] = ThemeDark
	}
	return doc
}

// v2 -> v3: projects gain a git provider, defaulting to github.
func migrateProjectGitProvider(doc map[string]any) map[string]any {
	for _, p := range asSlice(doc["projects"]) {
		project, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := project["gitProvider"]; !ok {
			project["gitProvider"] = "github"
		}
	}
	return doc
}

// v3 -> v4: currentProject becomes activeProjectId.
func migrateRenameActiveProject(doc map[string]any) map[string]any {
	if v, ok := doc["currentProject"]; ok {
		if _, exists := doc["activeProjectId"]; !exists {
			doc["activeProjectId"] = v
		}
		delete(doc, "currentProject")
	}
	return doc
}

// v4 -> v5: the flat agent name list becomes a roster of objects.
func migrateAgentRoster(doc map[string]any) map[string]any {
	roster := make([]any, 0)
	for i, a := range asSlice(doc["agents"]) {
		switch agent := a.(type) {
		case string:
			roster = append(roster, map[string]any{
				"id":       fmt.Sprintf("agent-%d", i+1),
				"name":     agent,
				"provider": "anthropic",
				"model":    "",
			})
		case map[string]any:
			roster = append(roster, agent)
		}
	}
	doc["agents"] = roster
	return doc
}

// v5 -> v6: the enabled-plugin id list becomes a settings map.
func migratePluginMap(doc map[string]any) map[string]any {
	plugins := make(map[string]any)
	if existing, ok := doc["plugins"].(map[string]any); ok {
		plugins = existing
	}
	for _, id := range asSlice(doc["enabledPlugins"]) {
		name, ok := id.(string)
		if !ok || name == "" {
			continue
		}
		if _, exists := plugins[name]; !exists {
			plugins[name] = map[string]any{"enabled": true}
		}
	}
	delete(doc, "enabledPlugins")
	doc["plugins"] = plugins
	return doc
}

// v6 -> v7: plugin entries carry the approved manifest checksum.
func migratePluginApprovedChecksum(doc map[string]any) map[string]any {
	plugins, ok := doc["plugins"].(map[string]any)
	if !ok {
		return doc
	}
	for _, v := range plugins {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := entry["approvedChecksum"]; !ok {
			entry["approvedChecksum"] = ""
		}
	}
	return doc
}

// v7 -> v8: introduce the ui layout block and the visuals panel preferences.
func migrateUIAndVisuals(doc map[string]any) map[string]any {
	if _, ok := doc["ui"].(map[string]any); !ok {
		doc["ui"] = map[string]any{"layout": LayoutSplit}
	}
	if _, ok := doc["visuals"].(map[string]any); !ok {
		doc["visuals"] = map[string]any{
			"enabled":   false,
			"intensity": 0.5,
			"palette":   "neon",
		}
	}
	return doc
}

// v8 -> v9: the top-level theme moves under ui.
func migrateThemeUnderUI(doc map[string]any) map[string]any {
	ui, ok := doc["ui"].(map[string]any)
	if !ok {
		ui = map[string]any{}
		doc["ui"] = ui
	}
	if theme, ok := doc["theme"]; ok {
		if _, exists := ui["theme"]; !exists {
			ui["theme"] = theme
		}
		delete(doc, "theme")
	}
	return doc
}

// Normalize repairs cross-field invariants after migration or manual edits.
func Normalize(s *Settings) {
	seen := make(map[string]bool, len(s.Projects))
	projects := make([]Project, 0, len(s.Projects))
	for _, p := range s.Projects {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		projects = append(projects, p)
	}
	s.Projects = projects

	if s.ActiveProjectID != "" && !seen[s.ActiveProjectID] {
		s.ActiveProjectID = ""
	}
	if s.ActiveProjectID == "" && len(s.Projects) > 0 {
		s.ActiveProjectID = s.Projects[0].ID
	}

	seenAgents := make(map[string]bool, len(s.Agents))
	agents := make([]Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if a.ID == "" || seenAgents[a.ID] {
			continue
		}
		seenAgents[a.ID] = true
		agents = append(agents, a)
	}
	s.Agents = agents

	if s.Plugins == nil {
		s.Plugins = map[string]PluginSettings{}
	}
	delete(s.Plugins, "")

	switch s.UI.Theme {
	case ThemeDark, ThemeLight, ThemeSystem:
	default:
		s.UI.Theme = ThemeDark
	}
	switch s.UI.Layout {
	case LayoutSplit, LayoutStacked, LayoutZen:
	default:
		s.UI.Layout = LayoutSplit
	}

	if s.Visuals.Intensity < 0 {
		s.Visuals.Intensity = 0
	}
	if s.Visuals.Intensity > 1 {
		s.Visuals.Intensity = 1
	}
	if s.Visuals.Palette == "" {
		s.Visuals.Palette = "neon"
	}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
