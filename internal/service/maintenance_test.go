package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"abmconf/internal/database"
	"abmconf/internal/database/repository"
)

func TestMaintenanceResetClearsCatalogAndReseeds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := openCatalog(t)
	require.NoError(t, database.SeedDefaults(ctx, db))

	// Leave some history behind before wiping.
	exportSvc := &ExportService{
		Projects: repository.NewProjectRepo(db),
		Exports:  repository.NewExportRepo(db),
	}
	sourcePath := filepath.Join(t.TempDir(), "flock.json")
	_, err := exportSvc.Export(ctx, flockProject(), sourcePath, t.TempDir())
	require.NoError(t, err)

	svc := &MaintenanceService{DB: db}
	require.NoError(t, svc.Reset(ctx))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exports").Scan(&count))
	require.Equal(t, 0, count)
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count))
	require.Equal(t, 0, count)

	presets, err := repository.NewPresetRepo(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 3)
	for _, p := range presets {
		require.True(t, p.Builtin)
	}
	t.Log("builtin presets restored")
}

func TestMaintenanceResetRequiresDB(t *testing.T) {
	t.Parallel()

	svc := &MaintenanceService{}
	require.Error(t, svc.Reset(context.Background()))
}
