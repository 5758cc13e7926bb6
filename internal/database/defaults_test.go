package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"abmconf/internal/database/repository"
	"abmconf/internal/model"
)

func TestSeedDefaults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dbPath, migrations))
	t.Log("migrations applied")

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SeedDefaults(ctx, db))
	require.NoError(t, SeedDefaults(ctx, db))
	t.Log("seed ran twice")

	presets, err := repository.NewPresetRepo(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 3)

	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
		require.True(t, p.Builtin)
		require.NotEmpty(t, p.ID)
	}
	require.Equal(t, []string{"Boid", "NetworkNode", "Particle"}, names)

	var boid model.AgentType
	require.NoError(t, json.Unmarshal([]byte(presets[0].Definition), &boid))
	require.Equal(t, "Boid", boid.Name)
	require.Len(t, boid.Functions, 2)
	require.Equal(t, model.MessageSpatial3D, boid.Functions[0].OutputType)
	t.Log("preset definitions decode")
}
