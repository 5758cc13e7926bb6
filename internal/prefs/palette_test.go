package prefs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"abmconf/internal/model"
)

func TestPaletteRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// No file yet.
	stored, err := LoadPalette()
	require.NoError(t, err)
	require.Nil(t, stored)
	require.Equal(t, model.DefaultColors, ActivePalette())

	custom := []string{"#101010", "#AABBCC", "not-a-color", "#ff00ff"}
	require.NoError(t, SavePalette(custom))

	stored, err = LoadPalette()
	require.NoError(t, err)
	require.Equal(t, custom, stored)

	// Malformed entries are dropped from the active palette.
	require.Equal(t, []string{"#101010", "#AABBCC", "#ff00ff"}, ActivePalette())
}

func TestActivePaletteFallsBackWhenAllInvalid(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, SavePalette([]string{"red", "blue"}))
	require.Equal(t, model.DefaultColors, ActivePalette())
}
