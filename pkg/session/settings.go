package session

import (
	"encoding/json"
	"os"
)

// SettingsKey is the storage key the editor preferences live under.
const SettingsKey = "proofing-editor"

// Settings is the persisted editor preference blob. Unknown or corrupt
// stored data is treated as absent and overwritten on the next save.
type Settings struct {
	ImageZoom    float64  `json:"imageZoom"`
	TextZoom     float64  `json:"textZoom"`
	Layout       string   `json:"layout"` // "side-by-side" or "top-and-bottom"
	ViewMode     ViewMode `json:"viewMode"`
	FromScript   string   `json:"fromScript"`
	ToScript     string   `json:"toScript"`
	NormalizeNFC bool     `json:"normalizeNFC"`
	SplitRatio   float64  `json:"splitRatio"`
	Tracking     bool     `json:"tracking"`
	InvertColors bool     `json:"invertColors"`
}

// DefaultSettings returns the out-of-the-box preferences.
func DefaultSettings() Settings {
	return Settings{
		ImageZoom:  1.0,
		TextZoom:   1.0,
		Layout:     "side-by-side",
		ViewMode:   ModeVisual,
		SplitRatio: 0.5,
		Tracking:   true,
	}
}

// SettingsStore persists settings as a keyed JSON file.
type SettingsStore struct {
	Path string
}

// Load reads the stored settings. A missing file, unreadable JSON, or a
// missing key all fall back to defaults.
func (s *SettingsStore) Load() Settings {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return DefaultSettings()
	}
	var blob map[string]json.RawMessage
	if err := json.Unmarshal(data, &blob); err != nil {
		return DefaultSettings()
	}
	raw, ok := blob[SettingsKey]
	if !ok {
		return DefaultSettings()
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return DefaultSettings()
	}
	return settings
}

// Save writes the settings back, preserving any other keys in the file.
func (s *SettingsStore) Save(settings Settings) error {
	blob := make(map[string]json.RawMessage)
	if data, err := os.ReadFile(s.Path); err == nil {
		// Corrupt existing data is discarded, not an error.
		_ = json.Unmarshal(data, &blob)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	blob[SettingsKey] = raw
	out, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, out, 0o644)
}
