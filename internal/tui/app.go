package tui

import (
	"context"
	"encoding/json"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"abmconf/internal/config"
	"abmconf/internal/database/repository"
	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/service"
	"abmconf/internal/validate"
)

// App is the terminal editor. It owns the open model document, every
// view cursor and the wiring to the catalog and services.
type App struct {
	ctx      context.Context
	cfg      config.Config
	repos    Repos
	services Services

	// open document
	doc     *model.Config
	docPath string
	dirty   bool
	issues  []validate.Issue

	view viewState

	// catalog data
	projects []repository.Project
	exports  []repository.Export
	presets  []repository.AgentPreset

	// per view cursors
	agentCursor    int
	agentPane      agentPane
	varCursor      int
	funcCursor     int
	globalCursor   int
	layerCursor    int
	layerFnCursor  int
	layerFocus     bool
	wiringPane     wiringPane
	nodeCursor     int
	connCursor     int
	visCursor      int
	catalogCursor  int
	settingsCursor int

	// export state
	exportDir  string
	lastExport *service.ExportResult
	lastReport *service.ReportResult

	// modal state
	modal        modalState
	prompt       promptKind
	promptTitle  string
	promptMasked bool
	inputBuffer  string
	pick         pickKind
	pickTitle    string
	pickOptions  []string
	pickCursor   int
	confirm      confirmKind
	confirmText  string

	// multi step flows
	pendingDraft  *llm.DraftResponse
	pendingWiring *llm.WiringResponse
	connDraft     *connectionDraft
	interpDraft   *interpolationDraft

	apiKey     string
	showAPIKey bool

	status string
}

// Repos bundles the catalog repositories the views read from.
type Repos struct {
	Projects *repository.ProjectRepo
	Exports  *repository.ExportRepo
	Presets  *repository.PresetRepo
}

// Services bundles the operations the views trigger.
type Services struct {
	Export      *service.ExportService
	Import      *service.ImportService
	Report      *service.ReportService
	Assist      *service.AssistService
	Catalog     *service.CatalogService
	Maintenance *service.MaintenanceService
}

type viewState string

const (
	viewOverview      viewState = "overview"
	viewAgents        viewState = "agents"
	viewGlobals       viewState = "globals"
	viewLayers        viewState = "layers"
	viewWiring        viewState = "wiring"
	viewVisualization viewState = "visualization"
	viewCatalog       viewState = "catalog"
	viewExport        viewState = "export"
	viewSettings      viewState = "settings"
)

// viewOrder drives tab cycling and the 1-9 jump keys.
var viewOrder = []viewState{
	viewOverview, viewAgents, viewGlobals, viewLayers, viewWiring,
	viewVisualization, viewCatalog, viewExport, viewSettings,
}

type agentPane string

const (
	paneAgentList agentPane = "agents"
	paneVariables agentPane = "variables"
	paneFunctions agentPane = "functions"
)

type wiringPane string

const (
	paneNodes       wiringPane = "nodes"
	paneConnections wiringPane = "connections"
)

type connectionDraft struct {
	src string
	dst string
}

type interpolationDraft struct {
	agent    string
	variable string
	min      string
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// New builds the editor over an already opened catalog. The provider
// API key resolves env first, then the key store, then the config.
func New(ctx context.Context, cfg config.Config, repos Repos, services Services) *App {
	return &App{
		ctx:        ctx,
		cfg:        cfg,
		repos:      repos,
		services:   services,
		view:       viewCatalog,
		agentPane:  paneAgentList,
		wiringPane: paneNodes,
		exportDir:  cfg.Paths.ExportsDir,
		apiKey:     llm.ResolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKeyEnv, cfg.LLM.APIKey),
	}
}

// SetModel preloads a document, e.g. from the -open flag.
func (a *App) SetModel(cfg *model.Config, path string) {
	a.doc = cfg
	a.docPath = path
	a.dirty = false
	a.view = viewOverview
	a.refreshIssues()
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadProjects(), a.loadExports(), a.loadPresets())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(msg)
		}
		return a.handleKey(msg)
	case projectsMsg:
		a.projects = msg
		a.catalogCursor = clamp(a.catalogCursor, len(a.projects))
	case exportsMsg:
		a.exports = msg
	case presetsMsg:
		a.presets = msg
	case modelLoadedMsg:
		a.doc = msg.cfg
		a.docPath = msg.path
		a.dirty = false
		a.view = viewOverview
		a.refreshIssues()
		a.status = "Opened " + msg.path
		return a, a.loadProjects()
	case modelSavedMsg:
		a.docPath = msg.path
		a.dirty = false
		a.status = "Saved " + msg.path
		return a, a.loadProjects()
	case importDoneMsg:
		a.doc = msg.cfg
		a.docPath = ""
		a.dirty = true
		a.view = viewOverview
		a.refreshIssues()
		a.status = describeImport(msg.result)
	case exportDoneMsg:
		res := msg.result
		a.lastExport = &res
		a.view = viewExport
		a.status = describeExport(res)
		return a, a.loadExports()
	case reportDoneMsg:
		res := msg.result
		a.lastReport = &res
		a.status = describeReport(res)
	case draftDoneMsg:
		draft := msg.draft
		a.pendingDraft = &draft
		a.modal = modalDraft
		a.status = ""
	case wiringDoneMsg:
		if len(msg.proposal.Connections) == 0 {
			a.status = "No new connections suggested."
			return a, nil
		}
		proposal := msg.proposal
		a.pendingWiring = &proposal
		a.modal = modalWiring
		a.status = ""
	case annotateDoneMsg:
		if msg.cfg != nil {
			a.doc = msg.cfg
			a.refreshIssues()
		}
		if msg.filled > 0 {
			a.dirty = true
			a.status = describeCount("Described %d function", msg.filled) + "."
		} else {
			a.status = "Every function already has a description."
		}
	case syncDoneMsg:
		a.status = describeSync(msg.result)
		return a, a.loadProjects()
	case resetDoneMsg:
		a.status = "Catalog reset. Builtin presets restored."
		return a, tea.Batch(a.loadProjects(), a.loadExports(), a.loadPresets())
	case statusMsg:
		a.status = string(msg)
	case errMsg:
		if errors.Is(msg.error, llm.ErrNoAPIKey) {
			a.status = "No API key configured. Set one in Settings, or switch to the offline provider."
			return a, nil
		}
		a.status = "Error: " + msg.Error()
	}
	return a, nil
}

// handleKey routes keys outside modals: global navigation first, then
// the active view.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "q":
		if a.dirty {
			a.openConfirm(confirmQuit, "Quit without saving? Unsaved changes are lost.")
			return a, nil
		}
		return a, tea.Quit
	case "tab":
		a.switchView(1)
		return a, nil
	case "shift+tab":
		a.switchView(-1)
		return a, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		a.jumpView(int(msg.String()[0] - '1'))
		return a, nil
	}

	switch a.view {
	case viewOverview:
		return a.handleOverviewKey(msg)
	case viewAgents:
		return a.handleAgentsKey(msg)
	case viewGlobals:
		return a.handleGlobalsKey(msg)
	case viewLayers:
		return a.handleLayersKey(msg)
	case viewWiring:
		return a.handleWiringKey(msg)
	case viewVisualization:
		return a.handleVisualizationKey(msg)
	case viewCatalog:
		return a.handleCatalogKey(msg)
	case viewExport:
		return a.handleExportKey(msg)
	case viewSettings:
		return a.handleSettingsKey(msg)
	}
	return a, nil
}

func (a *App) View() string {
	var out string
	switch a.view {
	case viewOverview:
		out = a.renderOverview()
	case viewAgents:
		out = a.renderAgents()
	case viewGlobals:
		out = a.renderGlobals()
	case viewLayers:
		out = a.renderLayers()
	case viewWiring:
		out = a.renderWiring()
	case viewVisualization:
		out = a.renderVisualization()
	case viewCatalog:
		out = a.renderCatalog()
	case viewExport:
		out = a.renderExport()
	case viewSettings:
		out = a.renderSettings()
	}
	if a.modal != modalNone {
		out += "\n\n" + a.renderModal()
	}
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) switchView(step int) {
	for i, v := range viewOrder {
		if v == a.view {
			a.view = viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
			return
		}
	}
	a.view = viewOverview
}

func (a *App) jumpView(idx int) {
	if idx >= 0 && idx < len(viewOrder) {
		a.view = viewOrder[idx]
	}
}

// requireDoc guards views that edit the document.
func (a *App) requireDoc() bool {
	if a.doc == nil {
		a.status = "No model open. Open or create one from the Catalog view."
		return false
	}
	return true
}

func (a *App) refreshIssues() {
	if a.doc == nil {
		a.issues = nil
		return
	}
	a.issues = validate.Check(a.doc).Issues
}

// markDirty records an edit and revalidates, keeping the overview and
// the layer annotations current.
func (a *App) markDirty() {
	a.dirty = true
	a.refreshIssues()
}

func (a *App) renderTitle(name string) string {
	label := "no model"
	if a.doc != nil {
		label = a.doc.Name
		if a.dirty {
			label += "*"
		}
	}
	return titleStyle.Render(name) + dimStyle.Render("  ("+label+")") + "\n\n"
}

// cloneConfig snapshots the document so commands running off the update
// loop never share memory with the one being edited.
func cloneConfig(cfg *model.Config) *model.Config {
	if cfg == nil {
		return nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	var out model.Config
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

func clamp(cursor, length int) int {
	if cursor >= length {
		cursor = length - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// Messages.

type projectsMsg []repository.Project

type exportsMsg []repository.Export

type presetsMsg []repository.AgentPreset

type modelLoadedMsg struct {
	cfg  *model.Config
	path string
}

type modelSavedMsg struct{ path string }

type importDoneMsg struct {
	cfg    *model.Config
	result service.ImportResult
}

type exportDoneMsg struct{ result service.ExportResult }

type reportDoneMsg struct{ result service.ReportResult }

type draftDoneMsg struct{ draft llm.DraftResponse }

type wiringDoneMsg struct{ proposal llm.WiringResponse }

type annotateDoneMsg struct {
	cfg    *model.Config
	filled int
}

type syncDoneMsg struct{ result service.SyncResult }

type resetDoneMsg struct{}

type statusMsg string

type errMsg struct{ error }
