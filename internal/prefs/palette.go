// Package prefs persists small per-user preferences that do not
// belong in the sqlite catalog.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"abmconf/internal/model"
)

const paletteFile = "palette.json"

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func palettePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "abmconf")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, paletteFile), nil
}

// SavePalette writes a custom agent colour palette.
func SavePalette(colors []string) error {
	path, err := palettePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(colors, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadPalette returns the stored palette, or nil when none was saved.
func LoadPalette() ([]string, error) {
	path, err := palettePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var colors []string
	if err := json.Unmarshal(data, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// ActivePalette returns the custom palette filtered to well formed
// colours, falling back to the builtin one.
func ActivePalette() []string {
	stored, err := LoadPalette()
	if err != nil {
		return model.DefaultColors
	}
	var valid []string
	for _, c := range stored {
		if hexColorRe.MatchString(c) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return model.DefaultColors
	}
	return valid
}
