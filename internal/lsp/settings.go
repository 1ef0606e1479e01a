package lsp

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/yaklabco/pawnls/pkg/config"
)

// settingsSection is the configuration section editors group the server's
// settings under.
const settingsSection = "SourcePawnLanguageServer"

// Settings are the options an editor passes in initializationOptions,
// workspace/configuration responses and didChangeConfiguration.
type Settings struct {
	IncludesDirectories []string          `json:"includesDirectories"`
	Defines             map[string]string `json:"defines"`
	MainPath            string            `json:"mainPath"`
}

// parseSettings decodes raw settings. The object may be the settings
// themselves or wrap them under settingsSection. Null and absent values
// yield empty settings.
func parseSettings(raw json.RawMessage) (Settings, error) {
	var settings Settings
	if len(raw) == 0 || string(raw) == "null" {
		return settings, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return settings, fmt.Errorf("settings must be an object: %w", err)
	}
	if inner, ok := wrapped[settingsSection]; ok {
		raw = inner
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// overlay returns the configuration layer the settings contribute. Relative
// directories are taken relative to root.
func (s Settings) overlay(root string) *config.Config {
	cfg := &config.Config{Defines: s.Defines}
	for _, dir := range s.IncludesDirectories {
		cfg.IncludeRoots = append(cfg.IncludeRoots, absolute(root, dir))
	}
	if s.MainPath != "" {
		cfg.MainPath = absolute(root, s.MainPath)
	}
	return cfg
}

func absolute(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
