package settings

// CurrentSchemaVersion is the schema version this build reads and writes.
const CurrentSchemaVersion = 9

// Theme names the shell understands.
const (
	ThemeDark   = "dark"
	ThemeLight  = "light"
	ThemeSystem = "system"
)

// Layout names the shell understands.
const (
	LayoutSplit   = "split"
	LayoutStacked = "stacked"
	LayoutZen     = "zen"
)

// Project is a workspace the hub tracks.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	GitProvider string `json:"gitProvider"`
}

// Agent is one entry in the agent roster.
type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// UIPreferences holds shell presentation preferences.
type UIPreferences struct {
	Theme  string `json:"theme"`
	Layout string `json:"layout"`
}

// PluginSettings is the per-plugin trust surface: whether the user enabled
// the plugin and which manifest checksum they last approved.
type PluginSettings struct {
	Enabled          bool   `json:"enabled"`
	ApprovedChecksum string `json:"approvedChecksum"`
}

// VisualsPreferences holds the visuals panel preferences.
type VisualsPreferences struct {
	Enabled   bool    `json:"enabled"`
	Intensity float64 `json:"intensity"`
	Palette   string  `json:"palette"`
}

// Settings is the persisted global-settings document.
type Settings struct {
	SchemaVersion   int                       `json:"schemaVersion"`
	Projects        []Project                 `json:"projects"`
	ActiveProjectID string                    `json:"activeProjectId"`
	Agents          []Agent                   `json:"agents"`
	UI              UIPreferences             `json:"ui"`
	Plugins         map[string]PluginSettings `json:"plugins"`
	Visuals         VisualsPreferences        `json:"visuals"`
}

// Default returns the settings document a fresh install starts from.
func Default() *Settings {
	return &Settings{
		SchemaVersion: CurrentSchemaVersion,
		Projects:      []Project{},
		Agents:        []Agent{},
		UI: UIPreferences{
			Theme:  ThemeDark,
			Layout: LayoutSplit,
		},
		Plugins: map[string]PluginSettings{},
		Visuals: VisualsPreferences{
			Enabled:   false,
			Intensity: 0.5,
			Palette:   "neon",
		},
	}
}
