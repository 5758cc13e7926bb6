package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"abmconf/internal/database/repository"
)

func TestExportWritesScaffoldAndRecordsRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := openCatalog(t)
	projects := repository.NewProjectRepo(db)
	exports := repository.NewExportRepo(db)
	svc := &ExportService{Projects: projects, Exports: exports}

	tmp := t.TempDir()
	sourcePath := filepath.Join(tmp, "flock.json")
	outDir := filepath.Join(tmp, "out")

	res, err := svc.Export(ctx, flockProject(), sourcePath, outDir)
	require.NoError(t, err)
	require.Equal(t, "flock", res.ModelName)
	require.Equal(t, filepath.Join(outDir, "flock"), res.OutputDir)
	require.Equal(t, filepath.Join(outDir, "flock", "flock.py"), res.MainFile)
	// Driver, two function files and the helper collection.
	require.Equal(t, 4, res.FileCount)
	require.NotEmpty(t, res.Unresolved)
	require.Empty(t, res.Issues)
	t.Log("scaffold rendered")

	for _, name := range []string{"flock.py", "output_location.cpp", "steer.cpp", "handy_device_functions.cpp"} {
		_, err := os.Stat(filepath.Join(res.OutputDir, name))
		require.NoError(t, err, name)
	}
	t.Log("files on disk")

	runs, err := exports.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "flock", runs[0].ModelName)
	require.Equal(t, 4, runs[0].FileCount)
	require.Equal(t, len(res.Unresolved), runs[0].UnresolvedCount)
	require.NotNil(t, runs[0].ProjectID)

	project, err := projects.GetByPath(ctx, sourcePath)
	require.NoError(t, err)
	require.NotNil(t, project)
	require.Equal(t, project.ID, *runs[0].ProjectID)
	require.Equal(t, 1, project.AgentCount)
	t.Log("catalog recorded")

	// Re-export keeps the project row and appends a run.
	_, err = svc.Export(ctx, flockProject(), sourcePath, outDir)
	require.NoError(t, err)
	perProject, err := exports.ListForProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, perProject, 2)
}

func TestExportWithoutCatalogStillWrites(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	svc := &ExportService{}

	outDir := t.TempDir()
	res, err := svc.Export(ctx, flockProject(), "", outDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outDir, "flock", "flock.py"), res.MainFile)
	_, err = os.Stat(res.MainFile)
	require.NoError(t, err)
}

func TestExportSurfacesValidationIssues(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	svc := &ExportService{}

	cfg := flockProject()
	cfg.Layers[0].FunctionIDs = append(cfg.Layers[0].FunctionIDs, "Ghost::walk")

	res, err := svc.Export(ctx, cfg, "", t.TempDir())
	require.NoError(t, err)
	require.NotEmpty(t, res.Issues)
}
