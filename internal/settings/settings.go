package settings

import (
	"encoding/json"
	"log/slog"

	"github.com/spikewatch/spikewatch/pkg/scene"
)

// optionKey is the key the settings blob is stored under in the host's
// option store.
const optionKey = "spikewatch_settings"

// WindowGeometry is the persisted placement of the UI window.
type WindowGeometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UISettings is the typed shape of the settings blob.
type UISettings struct {
	Window WindowGeometry `json:"window_geometry"`
}

// Service persists a small JSON settings blob through the host's key-value
// option store. Persistence is best-effort: every failure is logged and
// swallowed — settings are never worth failing an operation over.
type Service struct {
	store scene.SettingsStore // nil when the host has no option store
}

// New returns a Service backed by host's option store, or an inert Service
// when the host does not provide one.
func New(host scene.Host) *Service {
	s := &Service{}
	if ss, ok := host.(scene.SettingsStore); ok {
		s.store = ss
	}
	return s
}

// Load returns the stored settings blob. ok is false when nothing is stored,
// the host has no option store, or the stored value is not valid JSON.
func (s *Service) Load() (raw json.RawMessage, ok bool) {
	if s.store == nil {
		return nil, false
	}
	val, found, err := s.store.Option(optionKey)
	if err != nil {
		slog.Warn("settings: load failed", "err", err)
		return nil, false
	}
	if !found || !json.Valid([]byte(val)) {
		return nil, false
	}
	return json.RawMessage(val), true
}

// Save stores the settings blob. Invalid JSON is rejected but, like every
// other failure here, only logged.
func (s *Service) Save(raw json.RawMessage) {
	if s.store == nil {
		return
	}
	if !json.Valid(raw) {
		slog.Warn("settings: refusing to store invalid JSON")
		return
	}
	if err := s.store.SetOption(optionKey, string(raw)); err != nil {
		slog.Warn("settings: save failed", "err", err)
	}
}

// LoadUI decodes the stored blob into UISettings.
func (s *Service) LoadUI() (UISettings, bool) {
	raw, ok := s.Load()
	if !ok {
		return UISettings{}, false
	}
	var ui UISettings
	if err := json.Unmarshal(raw, &ui); err != nil {
		return UISettings{}, false
	}
	return ui, true
}

// SaveUI encodes and stores ui.
func (s *Service) SaveUI(ui UISettings) {
	raw, err := json.Marshal(ui)
	if err != nil {
		slog.Warn("settings: encode failed", "err", err)
		return
	}
	s.Save(raw)
}
