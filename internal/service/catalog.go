package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"

	"abmconf/internal/database/repository"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
)

// relinkThreshold is the normalised edit distance below which a moved
// file is considered the same project.
const relinkThreshold = 0.4

// CatalogService keeps the sqlite project list in step with the model
// files actually on disk.
type CatalogService struct {
	Projects *repository.ProjectRepo
}

// SyncResult reports what a catalog scan changed.
type SyncResult struct {
	Scanned   int
	Added     int
	Relinked  int
	Refreshed int
	Missing   []string
	Errors    []error
}

// Remember records that a model file was opened or saved. Without a
// catalog it is a no-op so file operations keep working.
func (s *CatalogService) Remember(ctx context.Context, path string, cfg *model.Config) error {
	if s.Projects == nil {
		return nil
	}
	if err := s.Projects.Upsert(ctx, projectRow(cfg, path)); err != nil {
		return fmt.Errorf("recording project: %w", err)
	}
	return s.Projects.Touch(ctx, path)
}

// projectRow builds the catalog row for a model file, fingerprinting
// the bytes currently on disk.
func projectRow(cfg *model.Config, path string) repository.Project {
	name := cfg.Name
	if name == "" {
		name = modelStem(path)
	}
	return repository.Project{
		ID:          deterministicProjectID(path),
		Name:        name,
		Path:        path,
		Description: cfg.Description,
		AgentCount:  len(cfg.Agents),
		LayerCount:  len(cfg.Layers),
		ContentHash: fileHash(path),
	}
}

// Sync runs the 3-stage match. Rows whose file still exists are kept,
// rows whose file moved inside configsDir are relinked by name
// similarity, and the rest are reported as missing. Unregistered model
// files get a fresh row.
func (s *CatalogService) Sync(ctx context.Context, configsDir string) (SyncResult, error) {
	var res SyncResult
	if s.Projects == nil {
		return res, nil
	}

	files, err := listModelFiles(configsDir)
	if err != nil {
		return res, err
	}
	res.Scanned = len(files)

	projects, err := s.Projects.List(ctx, repository.ProjectFilters{})
	if err != nil {
		return res, err
	}

	registered := make(map[string]bool, len(projects))
	for _, p := range projects {
		registered[p.Path] = true
	}
	claimed := make(map[string]bool)

	for _, p := range projects {
		// Stage 1 exact. A changed fingerprint means the file was
		// edited outside the editor, so the row metadata is stale.
		// Refreshing goes through Upsert, not Remember, to leave
		// last_opened_at alone.
		if fileExists(p.Path) {
			claimed[p.Path] = true
			if h := fileHash(p.Path); h != "" && h != p.ContentHash {
				cfg, err := modelfile.Load(p.Path)
				if err != nil {
					res.Errors = append(res.Errors, fmt.Errorf("refresh %s: %w", filepath.Base(p.Path), err))
					continue
				}
				if err := s.Projects.Upsert(ctx, projectRow(cfg, p.Path)); err != nil {
					return res, err
				}
				res.Refreshed++
			}
			continue
		}
		// Stage 2 fuzzy, against files no row owns
		target := ""
		best := relinkThreshold
		for _, f := range files {
			if claimed[f] || registered[f] {
				continue
			}
			d := stemDistance(p.Path, f)
			if d < best {
				best = d
				target = f
			}
		}
		if target == "" {
			res.Missing = append(res.Missing, fmt.Sprintf("%s (%s)", p.Name, p.Path))
			continue
		}
		if err := s.relink(ctx, p, target); err != nil {
			return res, err
		}
		claimed[target] = true
		res.Relinked++
	}

	for _, f := range files {
		if claimed[f] || registered[f] {
			continue
		}
		cfg, err := modelfile.Load(f)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("register %s: %w", filepath.Base(f), err))
			continue
		}
		// Scanned files register without a last_opened_at, that is
		// reserved for files the user actually opened.
		if err := s.Projects.Upsert(ctx, projectRow(cfg, f)); err != nil {
			return res, err
		}
		res.Added++
	}
	return res, nil
}

// Prune deletes rows whose file is gone and returns how many went.
func (s *CatalogService) Prune(ctx context.Context) (int, error) {
	if s.Projects == nil {
		return 0, nil
	}
	projects, err := s.Projects.List(ctx, repository.ProjectFilters{})
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, p := range projects {
		if fileExists(p.Path) {
			continue
		}
		if err := s.Projects.Delete(ctx, p.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// relink moves a row to a new path while keeping its id, so export
// history stays attached.
func (s *CatalogService) relink(ctx context.Context, p repository.Project, newPath string) error {
	if err := s.Projects.Delete(ctx, p.ID); err != nil {
		return err
	}
	return s.Projects.Upsert(ctx, repository.Project{
		ID:          p.ID,
		Name:        p.Name,
		Path:        newPath,
		Description: p.Description,
		AgentCount:  p.AgentCount,
		LayerCount:  p.LayerCount,
		ContentHash: fileHash(newPath),
	})
}

func listModelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), modelfile.Ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// fileHash fingerprints a model file. Unreadable files hash to the
// empty string, which Sync treats as unknown rather than changed.
func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func modelStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func stemDistance(a, b string) float64 {
	sa := strings.ToUpper(modelStem(a))
	sb := strings.ToUpper(modelStem(b))
	longest := len(sa)
	if len(sb) > longest {
		longest = len(sb)
	}
	if longest == 0 {
		return 1
	}
	return float64(levenshtein.ComputeDistance(sa, sb)) / float64(longest)
}
