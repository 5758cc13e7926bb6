package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"abmconf/internal/database/repository"
	"abmconf/internal/model"
	"abmconf/internal/scaffold"
	"abmconf/internal/validate"
)

// ExportService renders a project into a runnable scaffold on disk and
// records the run in the catalog.
type ExportService struct {
	Projects *repository.ProjectRepo
	Exports  *repository.ExportRepo

	// TemplateDir overrides the embedded templates when set.
	TemplateDir string
}

// ExportResult describes one finished export run.
type ExportResult struct {
	ModelName  string
	OutputDir  string
	MainFile   string
	FileCount  int
	Unresolved []scaffold.Mark
	Issues     []validate.Issue
}

// Export renders cfg under outDir/<model name>/. Validation issues are
// advisory and never block the run. sourcePath is the saved project
// file; empty means the model was exported without saving first.
func (s *ExportService) Export(ctx context.Context, cfg *model.Config, sourcePath, outDir string) (ExportResult, error) {
	res := ExportResult{Issues: validate.Check(cfg).Issues}

	out, err := scaffold.Render(cfg, scaffold.Options{TemplateDir: s.TemplateDir})
	if err != nil {
		return res, err
	}
	mainPath, err := scaffold.WriteFiles(outDir, out)
	if err != nil {
		return res, err
	}

	res.ModelName = out.ModelName
	res.OutputDir = filepath.Dir(mainPath)
	res.MainFile = mainPath
	res.FileCount = exportFileCount(out)
	res.Unresolved = out.Unresolved

	// Catalog bookkeeping never fails an export that is already on disk.
	s.record(ctx, cfg, sourcePath, res)
	return res, nil
}

func exportFileCount(out *scaffold.Output) int {
	n := 1 + len(out.Functions)
	if len(out.Functions) > 0 {
		n++ // helper collection
	}
	return n
}

func (s *ExportService) record(ctx context.Context, cfg *model.Config, sourcePath string, res ExportResult) {
	if s.Exports == nil {
		return
	}
	var projectID *string
	if sourcePath != "" && s.Projects != nil {
		proj := repository.Project{
			ID:          deterministicProjectID(sourcePath),
			Name:        res.ModelName,
			Path:        sourcePath,
			Description: cfg.Description,
			AgentCount:  len(cfg.Agents),
			LayerCount:  len(cfg.Layers),
			ContentHash: fileHash(sourcePath),
		}
		if err := s.Projects.Upsert(ctx, proj); err == nil {
			// Upserting by path keeps a pre-existing row id, so read it back.
			if p, err := s.Projects.GetByPath(ctx, sourcePath); err == nil && p != nil {
				projectID = &p.ID
			}
		}
	}
	_ = s.Exports.Insert(ctx, repository.Export{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		ModelName:       res.ModelName,
		OutputDir:       res.OutputDir,
		MainFile:        res.MainFile,
		FileCount:       res.FileCount,
		UnresolvedCount: len(res.Unresolved),
	})
}

func deterministicProjectID(path string) string {
	key := strings.ToLower(strings.TrimSpace(path))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("project:"+key)).String()
}
