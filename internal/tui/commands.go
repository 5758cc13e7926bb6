package tui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"abmconf/internal/config"
	"abmconf/internal/database/repository"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
	"abmconf/internal/secrets"
	"abmconf/internal/service"
)

func (a *App) loadProjects() tea.Cmd {
	return func() tea.Msg {
		if a.repos.Projects == nil {
			return projectsMsg(nil)
		}
		projects, err := a.repos.Projects.List(a.ctx, repository.ProjectFilters{})
		if err != nil {
			return errMsg{err}
		}
		return projectsMsg(projects)
	}
}

func (a *App) loadExports() tea.Cmd {
	return func() tea.Msg {
		if a.repos.Exports == nil {
			return exportsMsg(nil)
		}
		exports, err := a.repos.Exports.ListRecent(a.ctx, 10)
		if err != nil {
			return errMsg{err}
		}
		return exportsMsg(exports)
	}
}

func (a *App) loadPresets() tea.Cmd {
	return func() tea.Msg {
		if a.repos.Presets == nil {
			return presetsMsg(nil)
		}
		presets, err := a.repos.Presets.List(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return presetsMsg(presets)
	}
}

func (a *App) openModel(path string) tea.Cmd {
	return func() tea.Msg {
		cfg, err := modelfile.Load(path)
		if err != nil {
			return errMsg{err}
		}
		if a.services.Catalog != nil {
			if err := a.services.Catalog.Remember(a.ctx, path, cfg); err != nil {
				return errMsg{err}
			}
		}
		return modelLoadedMsg{cfg: cfg, path: path}
	}
}

func (a *App) saveModel(path string) tea.Cmd {
	doc := a.doc
	return func() tea.Msg {
		if doc == nil {
			return statusMsg("Nothing to save.")
		}
		if err := modelfile.Save(path, doc); err != nil {
			return errMsg{err}
		}
		if a.services.Catalog != nil {
			if err := a.services.Catalog.Remember(a.ctx, path, doc); err != nil {
				return errMsg{err}
			}
		}
		return modelSavedMsg{path: path}
	}
}

func (a *App) importScaffold(path string) tea.Cmd {
	return func() tea.Msg {
		if a.services.Import == nil {
			return statusMsg("Import is not available.")
		}
		cfg, res, err := a.services.Import.ImportFile(path)
		if err != nil {
			return errMsg{err}
		}
		return importDoneMsg{cfg: cfg, result: res}
	}
}

func (a *App) runExport() tea.Cmd {
	doc := cloneConfig(a.doc)
	srcPath := a.docPath
	outDir := a.exportDir
	return func() tea.Msg {
		if a.services.Export == nil {
			return statusMsg("Export is not available.")
		}
		res, err := a.services.Export.Export(a.ctx, doc, srcPath, outDir)
		if err != nil {
			return errMsg{err}
		}
		return exportDoneMsg{result: res}
	}
}

func (a *App) runReport() tea.Cmd {
	doc := cloneConfig(a.doc)
	path := a.reportPath()
	return func() tea.Msg {
		if a.services.Report == nil {
			return statusMsg("Reports are not available.")
		}
		res, err := a.services.Report.WriteFunctionReport(doc, path)
		if err != nil {
			return errMsg{err}
		}
		return reportDoneMsg{result: res}
	}
}

func (a *App) draftModel(description string) tea.Cmd {
	return func() tea.Msg {
		if a.services.Assist == nil {
			return statusMsg("Drafting is not available.")
		}
		draft, err := a.services.Assist.Draft(a.ctx, description, 6)
		if err != nil {
			return errMsg{err}
		}
		return draftDoneMsg{draft: draft}
	}
}

func (a *App) suggestWiring() tea.Cmd {
	doc := cloneConfig(a.doc)
	return func() tea.Msg {
		if a.services.Assist == nil {
			return statusMsg("Wiring suggestions are not available.")
		}
		proposal, err := a.services.Assist.SuggestWiring(a.ctx, doc)
		if err != nil {
			return errMsg{err}
		}
		return wiringDoneMsg{proposal: proposal}
	}
}

func (a *App) annotateFunctions() tea.Cmd {
	doc := cloneConfig(a.doc)
	return func() tea.Msg {
		if a.services.Assist == nil {
			return statusMsg("Descriptions are not available.")
		}
		filled := a.services.Assist.AnnotateFunctions(a.ctx, doc)
		return annotateDoneMsg{cfg: doc, filled: filled}
	}
}

func (a *App) syncCatalog() tea.Cmd {
	dir := a.cfg.Paths.ConfigsDir
	return func() tea.Msg {
		if a.services.Catalog == nil {
			return statusMsg("The catalog is not available.")
		}
		res, err := a.services.Catalog.Sync(a.ctx, dir)
		if err != nil {
			return errMsg{err}
		}
		return syncDoneMsg{result: res}
	}
}

func (a *App) resetCatalog() tea.Cmd {
	return func() tea.Msg {
		if a.services.Maintenance == nil {
			return statusMsg("Maintenance is not available.")
		}
		if err := a.services.Maintenance.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return resetDoneMsg{}
	}
}

func (a *App) forgetProject(id, name string) tea.Cmd {
	return func() tea.Msg {
		if a.repos.Projects == nil {
			return statusMsg("The catalog is not available.")
		}
		if err := a.repos.Projects.Delete(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return statusMsg("Forgot " + name + ". The file stays on disk.")
	}
}

func (a *App) savePreset(name string, agent model.AgentType) tea.Cmd {
	return func() tea.Msg {
		if a.repos.Presets == nil {
			return statusMsg("Presets are not available.")
		}
		definition, err := json.Marshal(agent)
		if err != nil {
			return errMsg{err}
		}
		err = a.repos.Presets.Upsert(a.ctx, repository.AgentPreset{
			ID:         uuid.NewString(),
			Name:       name,
			Definition: string(definition),
		})
		if err != nil {
			return errMsg{err}
		}
		return statusMsg("Saved preset " + name + ".")
	}
}

func (a *App) saveConfig() tea.Cmd {
	cfg := a.cfg
	return func() tea.Msg {
		if err := config.Save(cfg); err != nil {
			return errMsg{err}
		}
		return statusMsg("Settings saved.")
	}
}

func (a *App) storeAPIKey(key string) tea.Cmd {
	provider := a.cfg.LLM.Provider
	return func() tea.Msg {
		if err := (secrets.Store{}).StoreProviderKey(provider, key); err != nil {
			return errMsg{err}
		}
		return statusMsg("API key stored for " + provider + ".")
	}
}

// reportPath defaults next to the saved file, or into the exports
// directory for unsaved models.
func (a *App) reportPath() string {
	if a.docPath != "" {
		return service.DefaultReportPath(a.docPath)
	}
	name := "model"
	if a.doc != nil && a.doc.Name != "" {
		name = a.doc.Name
	}
	return filepath.Join(a.exportDir, name+"_functions.xlsx")
}

func describeImport(res service.ImportResult) string {
	out := fmt.Sprintf("Imported %d agents, %d globals, %d layers, %d connections.",
		res.Agents, res.Globals, res.Layers, res.Connections)
	if len(res.Warnings) > 0 {
		out += describeCount(" %d warning", len(res.Warnings)) + "."
	}
	return out
}

func describeExport(res service.ExportResult) string {
	out := fmt.Sprintf("Exported %d files to %s.", res.FileCount, res.OutputDir)
	if len(res.Unresolved) > 0 {
		out += describeCount(" %d unresolved marker", len(res.Unresolved)) + "."
	}
	if len(res.Issues) > 0 {
		out += describeCount(" %d validation note", len(res.Issues)) + "."
	}
	return out
}

func describeReport(res service.ReportResult) string {
	return fmt.Sprintf("Report with %d rows written to %s.", res.Rows, res.Path)
}

func describeSync(res service.SyncResult) string {
	out := fmt.Sprintf("Scanned %d files: %d added, %d relinked, %d refreshed.",
		res.Scanned, res.Added, res.Relinked, res.Refreshed)
	if len(res.Missing) > 0 {
		out += " Missing: " + strings.Join(res.Missing, ", ") + "."
	}
	if len(res.Errors) > 0 {
		out += describeCount(" %d file error", len(res.Errors)) + "."
	}
	return out
}

// describeCount appends a plural s to a "%d noun" phrase when needed.
func describeCount(format string, n int) string {
	out := fmt.Sprintf(format, n)
	if n != 1 {
		out += "s"
	}
	return out
}
