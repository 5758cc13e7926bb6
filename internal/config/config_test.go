package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("ABMCONF_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	require.NotEmpty(t, cfg.Database.Path)
	require.NotEmpty(t, cfg.Paths.ConfigsDir)

	cfg.Database.Path = filepath.Join(t.TempDir(), "cat.db")
	cfg.Paths.TemplatesDir = "/tmp/templates"
	cfg.LLM.Provider = "offline"
	cfg.UI.DateFormat = "02/01 15:04"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ABMCONF_CONFIG", filepath.Join(t.TempDir(), "config.toml"))
	t.Setenv("ABMCONF_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}
