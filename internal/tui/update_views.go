package tui

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
	"abmconf/internal/sample"
)

func (a *App) handleOverviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		if a.requireDoc() {
			a.openPrompt(promptRenameModel, "Model name", a.doc.Name)
		}
	case "e":
		if a.requireDoc() {
			a.openPrompt(promptDescription, "Model description", a.doc.Description)
		}
	case "g":
		if a.requireDoc() {
			a.status = "Describing functions..."
			return a, a.annotateFunctions()
		}
	}
	return a, nil
}

func (a *App) handleAgentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.requireDoc() {
		return a, nil
	}
	switch msg.String() {
	case "h":
		switch a.agentPane {
		case paneVariables:
			a.agentPane = paneAgentList
		case paneFunctions:
			a.agentPane = paneVariables
		}
		return a, nil
	case "l":
		switch a.agentPane {
		case paneAgentList:
			a.agentPane = paneVariables
		case paneVariables:
			a.agentPane = paneFunctions
		}
		return a, nil
	}
	switch a.agentPane {
	case paneVariables:
		return a.handleVariablesKey(msg)
	case paneFunctions:
		return a.handleFunctionsKey(msg)
	}
	return a.handleAgentListKey(msg)
}

func (a *App) handleAgentListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	agent := a.currentAgent()
	switch msg.String() {
	case "j", "down":
		if a.agentCursor < len(a.doc.Agents)-1 {
			a.agentCursor++
			a.varCursor, a.funcCursor = 0, 0
		}
	case "k", "up":
		if a.agentCursor > 0 {
			a.agentCursor--
			a.varCursor, a.funcCursor = 0, 0
		}
	case "a":
		a.openPrompt(promptAddAgent, "New agent name", "")
	case "r":
		if agent != nil {
			a.openPrompt(promptRenameAgent, "Rename "+agent.Name, agent.Name)
		}
	case "c":
		if agent != nil {
			a.openPrompt(promptAgentColor, "Hex color for "+agent.Name, agent.Color)
		}
	case "d":
		if agent != nil {
			a.openConfirm(confirmDeleteAgent,
				"Delete "+agent.Name+"? Its functions leave every layer and connection too.")
		}
	case "p":
		if len(a.presets) == 0 {
			a.status = "No presets stored. Save one from an agent with P."
			return a, nil
		}
		names := make([]string, 0, len(a.presets))
		for _, p := range a.presets {
			names = append(names, p.Name)
		}
		a.openPicker(pickPreset, "Stamp preset", names, "")
	case "P":
		if agent != nil {
			a.openPrompt(promptPresetName, "Preset name", agent.Name)
		}
	}
	return a, nil
}

func (a *App) handleVariablesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	agent := a.currentAgent()
	if agent == nil {
		return a, nil
	}
	v := a.currentVariable()
	switch msg.String() {
	case "j", "down":
		if a.varCursor < len(agent.Variables)-1 {
			a.varCursor++
		}
	case "k", "up":
		if a.varCursor > 0 {
			a.varCursor--
		}
	case "a":
		a.openPrompt(promptAddVariable, "New variable name", "")
	case "e":
		if v != nil {
			a.openPrompt(promptVarName, "Rename "+v.Name, v.Name)
		}
	case "t":
		if v != nil {
			a.openPicker(pickVarType, "Type of "+v.Name, model.VarTypeOptions, v.Type)
		}
	case "v":
		if v != nil {
			a.openPrompt(promptVarDefault, "Default for "+v.Name, v.Default)
		}
	case "g":
		if v != nil {
			a.openPicker(pickLogging, "Step log for "+v.Name, model.LoggingOptions, v.Logging)
		}
	case "d":
		if v != nil {
			agent.Variables = append(agent.Variables[:a.varCursor], agent.Variables[a.varCursor+1:]...)
			a.varCursor = clamp(a.varCursor, len(agent.Variables))
			a.markDirty()
			a.status = "Deleted variable " + v.Name + "."
		}
	}
	return a, nil
}

func (a *App) handleFunctionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	agent := a.currentAgent()
	if agent == nil {
		return a, nil
	}
	fn := a.currentFunction()
	switch msg.String() {
	case "j", "down":
		if a.funcCursor < len(agent.Functions)-1 {
			a.funcCursor++
		}
	case "k", "up":
		if a.funcCursor > 0 {
			a.funcCursor--
		}
	case "a":
		a.openPrompt(promptAddFunction, "New function name", "")
	case "e":
		if fn != nil {
			a.openPrompt(promptFuncName, "Rename "+fn.Name, fn.Name)
		}
	case "s":
		if fn != nil {
			a.openPrompt(promptFuncDescription, "Describe "+fn.Name, fn.Description)
		}
	case "i":
		if fn != nil {
			a.openPicker(pickFuncInput, "Input messages for "+fn.Name, model.MessageTypeOptions, fn.InputType)
		}
	case "o":
		if fn != nil {
			a.openPicker(pickFuncOutput, "Output messages for "+fn.Name, model.MessageTypeOptions, fn.OutputType)
		}
	case "d":
		if fn != nil {
			a.doc.RemoveFunction(agent.Name, fn.Name)
			a.funcCursor = clamp(a.funcCursor, len(agent.Functions))
			a.markDirty()
			a.status = "Deleted function " + model.FunctionID(agent.Name, fn.Name) + "."
		}
	}
	return a, nil
}

func (a *App) handleGlobalsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.requireDoc() {
		return a, nil
	}
	g := a.currentGlobal()
	switch msg.String() {
	case "j", "down":
		if a.globalCursor < len(a.doc.Globals)-1 {
			a.globalCursor++
		}
	case "k", "up":
		if a.globalCursor > 0 {
			a.globalCursor--
		}
	case "a":
		a.openPrompt(promptAddGlobal, "New property name", "")
	case "e":
		if g != nil {
			a.openPrompt(promptGlobalName, "Rename "+g.Name, g.Name)
		}
	case "v":
		if g != nil {
			title := "Value for " + g.Name
			if g.Type == model.TypeShape {
				title = "Dimensions for " + g.Name + " (comma separated)"
			}
			a.openPrompt(promptGlobalValue, title, g.Value)
		}
	case "t":
		if g != nil {
			a.openPicker(pickGlobalType, "Type of "+g.Name, model.GlobalTypeOptions, g.Type)
		}
	case "m":
		if g != nil {
			g.IsMacro = !g.IsMacro
			a.markDirty()
		}
	case "d":
		if g != nil {
			a.openConfirm(confirmDeleteGlobal, "Delete property "+g.Name+"?")
		}
	}
	return a, nil
}

func (a *App) handleLayersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.requireDoc() {
		return a, nil
	}
	layer := a.currentLayer()
	switch msg.String() {
	case "h":
		a.layerFocus = false
		return a, nil
	case "l":
		if layer != nil {
			a.layerFocus = true
		}
		return a, nil
	case "f":
		if layer == nil {
			return a, nil
		}
		ids := a.doc.FunctionIDs()
		if len(ids) == 0 {
			a.status = "No agent functions declared yet."
			return a, nil
		}
		a.openPicker(pickLayerFunction, "Attach function to "+layer.Name, ids, "")
		return a, nil
	}

	if a.layerFocus {
		if layer == nil {
			return a, nil
		}
		switch msg.String() {
		case "j", "down":
			if a.layerFnCursor < len(layer.FunctionIDs)-1 {
				a.layerFnCursor++
			}
		case "k", "up":
			if a.layerFnCursor > 0 {
				a.layerFnCursor--
			}
		case "x":
			if len(layer.FunctionIDs) > 0 {
				a.layerFnCursor = clamp(a.layerFnCursor, len(layer.FunctionIDs))
				id := layer.FunctionIDs[a.layerFnCursor]
				layer.FunctionIDs = append(layer.FunctionIDs[:a.layerFnCursor], layer.FunctionIDs[a.layerFnCursor+1:]...)
				a.layerFnCursor = clamp(a.layerFnCursor, len(layer.FunctionIDs))
				a.markDirty()
				a.status = "Detached " + id + " from " + layer.Name + "."
			}
		}
		return a, nil
	}

	switch msg.String() {
	case "j", "down":
		if a.layerCursor < len(a.doc.Layers)-1 {
			a.layerCursor++
			a.layerFnCursor = 0
		}
	case "k", "up":
		if a.layerCursor > 0 {
			a.layerCursor--
			a.layerFnCursor = 0
		}
	case "a":
		a.openPrompt(promptAddLayer, "New layer name", "")
	case "r":
		if layer != nil {
			a.openPrompt(promptRenameLayer, "Rename "+layer.Name, layer.Name)
		}
	case "e":
		if layer != nil {
			initial := ""
			if layer.Height != nil {
				initial = fmt.Sprintf("%g", *layer.Height)
			}
			a.openPrompt(promptLayerHeight, "Height for "+layer.Name+" (blank for auto)", initial)
		}
	case "J":
		if a.layerCursor < len(a.doc.Layers)-1 {
			a.doc.Layers[a.layerCursor], a.doc.Layers[a.layerCursor+1] =
				a.doc.Layers[a.layerCursor+1], a.doc.Layers[a.layerCursor]
			a.layerCursor++
			a.markDirty()
		}
	case "K":
		if a.layerCursor > 0 {
			a.doc.Layers[a.layerCursor], a.doc.Layers[a.layerCursor-1] =
				a.doc.Layers[a.layerCursor-1], a.doc.Layers[a.layerCursor]
			a.layerCursor--
			a.markDirty()
		}
	case "d":
		if layer != nil {
			a.openConfirm(confirmDeleteLayer, "Delete layer "+layer.Name+"?")
		}
	}
	return a, nil
}

// messageProducers lists functions that emit messages, the only valid
// connection sources.
func (a *App) messageProducers() []string {
	var out []string
	for _, agent := range a.doc.Agents {
		for _, fn := range agent.Functions {
			if fn.OutputType != model.MessageNone {
				out = append(out, model.FunctionID(agent.Name, fn.Name))
			}
		}
	}
	return out
}

func (a *App) handleWiringKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.requireDoc() {
		return a, nil
	}
	switch msg.String() {
	case "h":
		a.wiringPane = paneNodes
		return a, nil
	case "l":
		a.wiringPane = paneConnections
		return a, nil
	case "a":
		producers := a.messageProducers()
		if len(producers) == 0 {
			a.status = "No function outputs messages yet. Set an output type first."
			return a, nil
		}
		a.openPicker(pickConnSrc, "Message source", producers, "")
		return a, nil
	case "s":
		a.status = "Asking for wiring suggestions..."
		return a, a.suggestWiring()
	}

	if a.wiringPane == paneConnections {
		switch msg.String() {
		case "j", "down":
			if a.connCursor < len(a.doc.Connections)-1 {
				a.connCursor++
			}
		case "k", "up":
			if a.connCursor > 0 {
				a.connCursor--
			}
		case "d":
			if len(a.doc.Connections) > 0 {
				a.connCursor = clamp(a.connCursor, len(a.doc.Connections))
				c := a.doc.Connections[a.connCursor]
				a.doc.Connections = append(a.doc.Connections[:a.connCursor], a.doc.Connections[a.connCursor+1:]...)
				a.connCursor = clamp(a.connCursor, len(a.doc.Connections))
				a.markDirty()
				a.status = "Removed " + c.Src + " -> " + c.Dst + "."
			}
		}
		return a, nil
	}

	nodes := a.diagramNodes()
	if len(nodes) == 0 {
		return a, nil
	}
	a.nodeCursor = clamp(a.nodeCursor, len(nodes))
	switch msg.String() {
	case "j", "down":
		if a.nodeCursor < len(nodes)-1 {
			a.nodeCursor++
		}
	case "k", "up":
		if a.nodeCursor > 0 {
			a.nodeCursor--
		}
	case "H", "J", "K", "L":
		n := nodes[a.nodeCursor]
		if a.doc.Layout == nil {
			a.doc.Layout = make(map[string]model.NodePos)
		}
		pos, ok := a.doc.Layout[n.id]
		if !ok {
			pos = model.NodePos{X: n.x, Y: n.y}
		}
		switch msg.String() {
		case "H":
			pos.X -= 4
		case "L":
			pos.X += 4
		case "K":
			pos.Y--
		case "J":
			pos.Y++
		}
		if pos.X < 0 {
			pos.X = 0
		}
		if pos.Y < 0 {
			pos.Y = 0
		}
		a.doc.Layout[n.id] = pos
		a.markDirty()
	}
	return a, nil
}

func (a *App) handleVisualizationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.requireDoc() {
		return a, nil
	}
	if a.doc.Visualization == nil {
		if msg.String() == " " || msg.String() == "space" {
			vis := a.ensureVisualization()
			vis.Activated = true
			a.markDirty()
			a.status = "Visualization enabled."
		}
		return a, nil
	}

	vis := a.ensureVisualization()
	rows := visFixedRows + len(vis.Agents)
	a.visCursor = clamp(a.visCursor, rows)
	row := a.currentVisRow()

	switch msg.String() {
	case "j", "down":
		if a.visCursor < rows-1 {
			a.visCursor++
		}
	case "k", "up":
		if a.visCursor > 0 {
			a.visCursor--
		}
	case " ", "space", "enter":
		switch a.visCursor {
		case 0:
			vis.Activated = !vis.Activated
			a.markDirty()
		case 1:
			if msg.String() == "enter" {
				a.openPrompt(promptDomainWidth, "Environment width", vis.DomainWidth)
			}
		case 2:
			vis.BeginPaused = !vis.BeginPaused
			a.markDirty()
		case 3:
			vis.ShowDomainBoundaries = !vis.ShowDomainBoundaries
			a.markDirty()
		default:
			if row != nil {
				if msg.String() == "enter" {
					a.openPicker(pickShape, "Shape for "+row.AgentName, model.ShapeOptions, row.Shape)
				} else {
					row.Include = !row.Include
					a.markDirty()
				}
			}
		}
	case "s":
		if row != nil {
			a.openPicker(pickShape, "Shape for "+row.AgentName, model.ShapeOptions, row.Shape)
		} else {
			a.status = "Select an agent row first."
		}
	case "c":
		if row != nil {
			a.openPicker(pickColorMode, "Color mode for "+row.AgentName, model.ColorModeOptions, row.ColorMode)
		} else {
			a.status = "Select an agent row first."
		}
	case "i":
		if row == nil {
			a.status = "Select an agent row first."
			return a, nil
		}
		agent := a.doc.Agent(row.AgentName)
		if agent == nil || len(agent.Variables) == 0 {
			a.status = row.AgentName + " has no variables to interpolate over."
			return a, nil
		}
		names := make([]string, 0, len(agent.Variables))
		for _, v := range agent.Variables {
			names = append(names, v.Name)
		}
		selected := ""
		if row.Interpolation != nil {
			selected = row.Interpolation.Variable
		}
		a.interpDraft = &interpolationDraft{agent: row.AgentName}
		a.openPicker(pickInterpVariable, "Interpolate over", names, selected)
	}
	return a, nil
}

func (a *App) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if a.catalogCursor < len(a.projects)-1 {
			a.catalogCursor++
		}
	case "k", "up":
		if a.catalogCursor > 0 {
			a.catalogCursor--
		}
	case "enter":
		if len(a.projects) > 0 {
			a.catalogCursor = clamp(a.catalogCursor, len(a.projects))
			p := a.projects[a.catalogCursor]
			a.status = "Opening " + p.Name + "..."
			return a, a.openModel(p.Path)
		}
	case "n":
		a.openPrompt(promptNewModel, "New model name", "")
	case "b":
		a.doc = sample.Project()
		a.docPath = ""
		a.dirty = true
		a.view = viewOverview
		a.refreshIssues()
		a.status = "Loaded the boids sample. Save it to add it to the catalog."
	case "g":
		a.openPrompt(promptDraftDescription, "Describe the model to draft", "")
	case "i":
		a.openPrompt(promptImportPath, "Path to an exported model scaffold (.py)", "")
	case "o":
		a.openPrompt(promptOpenPath, "Path to a model file", "")
	case "s":
		if !a.requireDoc() {
			return a, nil
		}
		if a.docPath != "" {
			return a, a.saveModel(a.docPath)
		}
		a.openPrompt(promptSaveAs, "Save as", a.defaultSavePath())
	case "S":
		if a.requireDoc() {
			a.openPrompt(promptSaveAs, "Save as", a.defaultSavePath())
		}
	case "R":
		a.status = "Rescanning the configs directory..."
		return a, a.syncCatalog()
	case "d":
		if len(a.projects) > 0 {
			a.catalogCursor = clamp(a.catalogCursor, len(a.projects))
			p := a.projects[a.catalogCursor]
			return a, a.forgetProject(p.ID, p.Name)
		}
	}
	return a, nil
}

func (a *App) defaultSavePath() string {
	if a.docPath != "" {
		return a.docPath
	}
	return filepath.Join(a.cfg.Paths.ConfigsDir, a.doc.Name+modelfile.Ext)
}

func (a *App) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e":
		if a.requireDoc() {
			a.status = "Exporting..."
			return a, a.runExport()
		}
	case "o":
		a.openPrompt(promptExportDir, "Export output directory", a.exportDir)
	case "r":
		if a.requireDoc() {
			a.status = "Writing function report..."
			return a, a.runReport()
		}
	}
	return a, nil
}

func (a *App) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if a.settingsCursor < len(settingsRows)-1 {
			a.settingsCursor++
		}
	case "k", "up":
		if a.settingsCursor > 0 {
			a.settingsCursor--
		}
	case "v":
		a.showAPIKey = !a.showAPIKey
	case "enter":
		switch a.settingsCursor {
		case 0:
			a.openPrompt(promptConfigsDir, "Configs directory", a.cfg.Paths.ConfigsDir)
		case 1:
			a.openPrompt(promptTemplatesDir, "Templates directory (blank for embedded)", a.cfg.Paths.TemplatesDir)
		case 2:
			a.openPrompt(promptExportsDir, "Exports directory", a.cfg.Paths.ExportsDir)
		case 3:
			a.openPicker(pickProvider, "Drafting provider", llm.ProviderOptions, a.cfg.LLM.Provider)
		case 4:
			a.openPicker(pickLLMModel, "Drafting model", llmModelOptions, a.cfg.LLM.Model)
		case 5:
			a.openPrompt(promptAPIKey, "API key for "+a.cfg.LLM.Provider, "")
		case 6:
			a.status = "Drop a JSON array of hex colors in the config directory as palette.json."
		case 7:
			a.openConfirm(confirmReset,
				"Reset the catalog? Tracked models, export history and custom presets are cleared.")
		}
	}
	return a, nil
}
