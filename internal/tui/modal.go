package tui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
	"abmconf/internal/prefs"
	"abmconf/internal/service"
)

type modalState string

const (
	modalNone    modalState = ""
	modalPrompt  modalState = "prompt"
	modalPicker  modalState = "picker"
	modalConfirm modalState = "confirm"
	modalDraft   modalState = "draft"
	modalWiring  modalState = "wiring"
)

type promptKind string

const (
	promptRenameModel      promptKind = "rename_model"
	promptDescription      promptKind = "description"
	promptAddAgent         promptKind = "add_agent"
	promptRenameAgent      promptKind = "rename_agent"
	promptAgentColor       promptKind = "agent_color"
	promptPresetName       promptKind = "preset_name"
	promptAddVariable      promptKind = "add_variable"
	promptVarName          promptKind = "var_name"
	promptVarDefault       promptKind = "var_default"
	promptAddFunction      promptKind = "add_function"
	promptFuncName         promptKind = "func_name"
	promptFuncDescription  promptKind = "func_description"
	promptAddGlobal        promptKind = "add_global"
	promptGlobalName       promptKind = "global_name"
	promptGlobalValue      promptKind = "global_value"
	promptAddLayer         promptKind = "add_layer"
	promptRenameLayer      promptKind = "rename_layer"
	promptLayerHeight      promptKind = "layer_height"
	promptDomainWidth      promptKind = "domain_width"
	promptInterpMin        promptKind = "interp_min"
	promptInterpMax        promptKind = "interp_max"
	promptNewModel         promptKind = "new_model"
	promptOpenPath         promptKind = "open_path"
	promptSaveAs           promptKind = "save_as"
	promptImportPath       promptKind = "import_path"
	promptDraftDescription promptKind = "draft_description"
	promptExportDir        promptKind = "export_dir"
	promptConfigsDir       promptKind = "configs_dir"
	promptTemplatesDir     promptKind = "templates_dir"
	promptExportsDir       promptKind = "exports_dir"
	promptAPIKey           promptKind = "api_key"
)

type pickKind string

const (
	pickVarType        pickKind = "var_type"
	pickLogging        pickKind = "logging"
	pickGlobalType     pickKind = "global_type"
	pickFuncInput      pickKind = "func_input"
	pickFuncOutput     pickKind = "func_output"
	pickShape          pickKind = "shape"
	pickColorMode      pickKind = "color_mode"
	pickInterpVariable pickKind = "interp_variable"
	pickConnSrc        pickKind = "conn_src"
	pickConnDst        pickKind = "conn_dst"
	pickConnType       pickKind = "conn_type"
	pickLayerFunction  pickKind = "layer_function"
	pickPreset         pickKind = "preset"
	pickProvider       pickKind = "provider"
	pickLLMModel       pickKind = "llm_model"
)

type confirmKind string

const (
	confirmQuit         confirmKind = "quit"
	confirmDeleteAgent  confirmKind = "delete_agent"
	confirmDeleteGlobal confirmKind = "delete_global"
	confirmDeleteLayer  confirmKind = "delete_layer"
	confirmReset        confirmKind = "reset"
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

func (a *App) openPrompt(kind promptKind, title, initial string) {
	a.modal = modalPrompt
	a.prompt = kind
	a.promptTitle = title
	a.promptMasked = kind == promptAPIKey
	a.inputBuffer = initial
}

func (a *App) openPicker(kind pickKind, title string, options []string, selected string) {
	a.modal = modalPicker
	a.pick = kind
	a.pickTitle = title
	a.pickOptions = options
	a.pickCursor = 0
	for i, o := range options {
		if o == selected {
			a.pickCursor = i
		}
	}
}

func (a *App) openConfirm(kind confirmKind, text string) {
	a.modal = modalConfirm
	a.confirm = kind
	a.confirmText = text
}

func (a *App) closeModal() {
	a.modal = modalNone
	a.inputBuffer = ""
	a.promptMasked = false
	a.pickOptions = nil
	a.pickCursor = 0
}

// cancelModal additionally abandons any half built flow.
func (a *App) cancelModal() {
	a.closeModal()
	a.connDraft = nil
	a.interpDraft = nil
	a.pendingDraft = nil
	a.pendingWiring = nil
}

func (a *App) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalPrompt:
		return a.handlePromptKey(msg)
	case modalPicker:
		return a.handlePickerKey(msg)
	case modalConfirm:
		return a.handleConfirmKey(msg)
	case modalDraft:
		return a.handleDraftPreviewKey(msg)
	case modalWiring:
		return a.handleWiringPreviewKey(msg)
	}
	return a, nil
}

func (a *App) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.cancelModal()
	case tea.KeyEnter:
		value := strings.TrimSpace(a.inputBuffer)
		kind := a.prompt
		a.closeModal()
		return a, a.applyPrompt(kind, value)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.inputBuffer) > 0 {
			a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
		}
	case tea.KeySpace:
		a.inputBuffer += " "
	case tea.KeyRunes:
		a.inputBuffer += string(msg.Runes)
	}
	return a, nil
}

func (a *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.cancelModal()
	case "up", "k":
		if a.pickCursor > 0 {
			a.pickCursor--
		}
	case "down", "j":
		if a.pickCursor < len(a.pickOptions)-1 {
			a.pickCursor++
		}
	case "enter":
		if len(a.pickOptions) == 0 {
			a.cancelModal()
			return a, nil
		}
		kind := a.pick
		choice := a.pickOptions[a.pickCursor]
		a.closeModal()
		return a, a.applyPick(kind, choice)
	}
	return a, nil
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		kind := a.confirm
		a.closeModal()
		return a, a.applyConfirm(kind)
	case "n", "esc":
		a.cancelModal()
	}
	return a, nil
}

func (a *App) handleDraftPreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		draft := a.pendingDraft
		a.cancelModal()
		if draft != nil {
			a.applyDraft(*draft)
		}
	case "esc":
		a.cancelModal()
		a.status = "Draft discarded."
	}
	return a, nil
}

func (a *App) handleWiringPreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		proposal := a.pendingWiring
		a.cancelModal()
		if proposal != nil && a.doc != nil {
			applied := a.services.Assist.ApplyWiring(a.doc, proposal.Connections)
			a.markDirty()
			a.status = describeCount("Applied %d connection", applied) + "."
		}
	case "esc":
		a.cancelModal()
		a.status = "Suggestions discarded."
	}
	return a, nil
}

func (a *App) applyPrompt(kind promptKind, value string) tea.Cmd {
	switch kind {
	case promptRenameModel:
		if value == "" {
			a.status = "The model needs a name."
			return nil
		}
		a.doc.Name = value
		a.markDirty()
	case promptDescription:
		a.doc.Description = value
		a.markDirty()

	case promptAddAgent:
		if !identRe.MatchString(value) {
			a.status = "Agent names are identifiers, like Boid or Predator."
			return nil
		}
		if a.doc.Agent(value) != nil {
			a.status = "Agent " + value + " already exists."
			return nil
		}
		agent := model.NewAgentType(value, len(a.doc.Agents))
		agent.Color = a.paletteColor(len(a.doc.Agents))
		a.doc.Agents = append(a.doc.Agents, agent)
		a.agentCursor = len(a.doc.Agents) - 1
		a.varCursor, a.funcCursor = 0, 0
		a.markDirty()
		a.status = "Added agent " + value + "."
	case promptRenameAgent:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Agent names are identifiers, like Boid or Predator."
			return nil
		}
		if value != agent.Name && a.doc.Agent(value) != nil {
			a.status = "Agent " + value + " already exists."
			return nil
		}
		a.doc.RenameAgent(agent.Name, value)
		a.markDirty()
	case promptAgentColor:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		if !hexColorRe.MatchString(value) {
			a.status = "Colors use the #RRGGBB form."
			return nil
		}
		agent.Color = value
		a.markDirty()
	case promptPresetName:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		if value == "" {
			a.status = "The preset needs a name."
			return nil
		}
		return a.savePreset(value, *agent)

	case promptAddVariable:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Variable names are identifiers."
			return nil
		}
		for _, v := range agent.Variables {
			if v.Name == value {
				a.status = "Variable " + value + " already exists."
				return nil
			}
		}
		agent.Variables = append(agent.Variables, model.AgentVariable{
			Name:    value,
			Default: "0.0",
			Type:    model.DefaultVarType,
			Logging: model.DefaultLogging,
		})
		a.varCursor = len(agent.Variables) - 1
		a.markDirty()
	case promptVarName:
		agent, v := a.currentAgent(), a.currentVariable()
		if agent == nil || v == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Variable names are identifiers."
			return nil
		}
		for _, other := range agent.Variables {
			if other.Name == value && other.Name != v.Name {
				a.status = "Variable " + value + " already exists."
				return nil
			}
		}
		v.Name = value
		a.markDirty()
	case promptVarDefault:
		if v := a.currentVariable(); v != nil {
			v.Default = value
			a.markDirty()
		}

	case promptAddFunction:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Function names are identifiers."
			return nil
		}
		for _, f := range agent.Functions {
			if f.Name == value {
				a.status = "Function " + value + " already exists."
				return nil
			}
		}
		agent.Functions = append(agent.Functions, model.AgentFunction{
			Name:       value,
			InputType:  model.MessageNone,
			OutputType: model.MessageNone,
		})
		a.funcCursor = len(agent.Functions) - 1
		a.markDirty()
	case promptFuncName:
		agent, fn := a.currentAgent(), a.currentFunction()
		if agent == nil || fn == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Function names are identifiers."
			return nil
		}
		for _, other := range agent.Functions {
			if other.Name == value && other.Name != fn.Name {
				a.status = "Function " + value + " already exists."
				return nil
			}
		}
		a.doc.RenameFunction(agent.Name, fn.Name, value)
		a.markDirty()
	case promptFuncDescription:
		if fn := a.currentFunction(); fn != nil {
			fn.Description = value
			a.markDirty()
		}

	case promptAddGlobal:
		if !identRe.MatchString(value) {
			a.status = "Global names are identifiers, like POPULATION_SIZE."
			return nil
		}
		if a.doc.Global(value) != nil {
			a.status = "Global " + value + " already exists."
			return nil
		}
		a.doc.Globals = append(a.doc.Globals, model.GlobalVariable{
			Name:  value,
			Value: "0.0",
			Type:  model.DefaultVarType,
		})
		a.globalCursor = len(a.doc.Globals) - 1
		a.markDirty()
	case promptGlobalName:
		g := a.currentGlobal()
		if g == nil {
			return nil
		}
		if !identRe.MatchString(value) {
			a.status = "Global names are identifiers."
			return nil
		}
		if value != g.Name && a.doc.Global(value) != nil {
			a.status = "Global " + value + " already exists."
			return nil
		}
		g.Name = value
		a.markDirty()
	case promptGlobalValue:
		if g := a.currentGlobal(); g != nil {
			g.Value = value
			a.markDirty()
		}

	case promptAddLayer:
		if value == "" {
			a.status = "The layer needs a name."
			return nil
		}
		a.doc.Layers = append(a.doc.Layers, model.Layer{Name: value, FunctionIDs: []string{}})
		a.layerCursor = len(a.doc.Layers) - 1
		a.layerFnCursor = 0
		a.markDirty()
	case promptRenameLayer:
		if l := a.currentLayer(); l != nil && value != "" {
			l.Name = value
			a.markDirty()
		}
	case promptLayerHeight:
		l := a.currentLayer()
		if l == nil {
			return nil
		}
		if value == "" {
			l.Height = nil
			a.markDirty()
			return nil
		}
		h, err := strconv.ParseFloat(value, 64)
		if err != nil {
			a.status = "Heights are numbers, or blank for automatic."
			return nil
		}
		l.Height = &h
		a.markDirty()

	case promptDomainWidth:
		vis := a.ensureVisualization()
		vis.DomainWidth = value
		a.markDirty()
	case promptInterpMin:
		if a.interpDraft == nil {
			return nil
		}
		a.interpDraft.min = value
		a.openPrompt(promptInterpMax, "Maximum value for "+a.interpDraft.variable, "")
	case promptInterpMax:
		draft := a.interpDraft
		a.interpDraft = nil
		if draft == nil {
			return nil
		}
		if row := a.visRowFor(draft.agent); row != nil {
			row.ColorMode = model.ColorInterpolated
			row.Interpolation = &model.Interpolation{
				Variable: draft.variable,
				MinValue: draft.min,
				MaxValue: value,
			}
			a.markDirty()
		}

	case promptNewModel:
		if value == "" {
			a.status = "The model needs a name."
			return nil
		}
		doc := model.New(value)
		modelfile.Normalize(doc)
		a.doc = doc
		a.docPath = ""
		a.dirty = true
		a.view = viewOverview
		a.refreshIssues()
		a.status = "Created " + value + ". Save it from the Catalog view."
	case promptOpenPath:
		if value == "" {
			return nil
		}
		return a.openModel(expandPath(value))
	case promptSaveAs:
		if value == "" {
			return nil
		}
		path := expandPath(value)
		if filepath.Ext(path) == "" {
			path += modelfile.Ext
		}
		return a.saveModel(path)
	case promptImportPath:
		if value == "" {
			return nil
		}
		return a.importScaffold(expandPath(value))
	case promptDraftDescription:
		if value == "" {
			a.status = "Describe the simulation in a sentence or two."
			return nil
		}
		a.status = "Drafting model from description..."
		return a.draftModel(value)

	case promptExportDir:
		if value == "" {
			return nil
		}
		a.exportDir = expandPath(value)
		a.status = "Exports go to " + a.exportDir + "."
	case promptConfigsDir:
		if value == "" {
			return nil
		}
		a.cfg.Paths.ConfigsDir = expandPath(value)
		return a.saveConfig()
	case promptTemplatesDir:
		a.cfg.Paths.TemplatesDir = expandPath(value)
		if a.services.Export != nil {
			a.services.Export.TemplateDir = a.cfg.Paths.TemplatesDir
		}
		return a.saveConfig()
	case promptExportsDir:
		if value == "" {
			return nil
		}
		a.cfg.Paths.ExportsDir = expandPath(value)
		a.exportDir = a.cfg.Paths.ExportsDir
		return a.saveConfig()
	case promptAPIKey:
		if value == "" {
			a.status = "API key unchanged."
			return nil
		}
		a.apiKey = value
		if p, ok := a.services.Assist.Provider.(*llm.OpenAIProvider); ok {
			p.SetAPIKey(value)
		}
		return a.storeAPIKey(value)
	}
	return nil
}

func (a *App) applyPick(kind pickKind, choice string) tea.Cmd {
	switch kind {
	case pickVarType:
		if v := a.currentVariable(); v != nil {
			v.Type = choice
			a.markDirty()
		}
	case pickLogging:
		if v := a.currentVariable(); v != nil {
			v.Logging = choice
			a.markDirty()
		}
	case pickGlobalType:
		if g := a.currentGlobal(); g != nil {
			g.Type = choice
			if choice == model.TypeShape && !g.IsMacro {
				a.status = "Shape globals are macro buffers. Press m to mark it."
			}
			a.markDirty()
		}
	case pickFuncInput:
		if fn := a.currentFunction(); fn != nil {
			fn.InputType = choice
			a.markDirty()
		}
	case pickFuncOutput:
		if fn := a.currentFunction(); fn != nil {
			fn.OutputType = choice
			a.markDirty()
		}

	case pickShape:
		if row := a.currentVisRow(); row != nil {
			row.Shape = choice
			a.markDirty()
		}
	case pickColorMode:
		if row := a.currentVisRow(); row != nil {
			row.ColorMode = choice
			if choice != model.ColorInterpolated {
				row.Interpolation = nil
			}
			a.markDirty()
		}
	case pickInterpVariable:
		if a.interpDraft == nil {
			return nil
		}
		a.interpDraft.variable = choice
		a.openPrompt(promptInterpMin, "Minimum value for "+choice, "")

	case pickConnSrc:
		a.connDraft = &connectionDraft{src: choice}
		targets := a.messageConsumers(choice)
		if len(targets) == 0 {
			a.connDraft = nil
			a.status = "No function consumes messages yet. Set an input type first."
			return nil
		}
		a.openPicker(pickConnDst, "Deliver to", targets, "")
	case pickConnDst:
		if a.connDraft == nil {
			return nil
		}
		a.connDraft.dst = choice
		preselect := ""
		if _, fn, ok := a.doc.Function(choice); ok {
			preselect = fn.InputType
		}
		a.openPicker(pickConnType, "Message type", model.MessageTypeOptions[1:], preselect)
	case pickConnType:
		draft := a.connDraft
		a.connDraft = nil
		if draft == nil {
			return nil
		}
		for _, c := range a.doc.Connections {
			if c.Src == draft.src && c.Dst == draft.dst && c.Type == choice {
				a.status = "That connection already exists."
				return nil
			}
		}
		a.doc.Connections = append(a.doc.Connections, model.Connection{
			Src:  draft.src,
			Dst:  draft.dst,
			Type: choice,
		})
		a.connCursor = len(a.doc.Connections) - 1
		a.markDirty()
		a.status = "Connected " + draft.src + " -> " + draft.dst + "."

	case pickLayerFunction:
		if l := a.currentLayer(); l != nil {
			l.FunctionIDs = append(l.FunctionIDs, choice)
			a.layerFnCursor = len(l.FunctionIDs) - 1
			a.markDirty()
		}
	case pickPreset:
		return a.stampPreset(choice)

	case pickProvider:
		a.cfg.LLM.Provider = choice
		if a.services.Assist != nil {
			a.services.Assist.Provider = llm.NewProviderFor(choice, a.apiKey, a.cfg.LLM.Model)
		}
		return a.saveConfig()
	case pickLLMModel:
		a.cfg.LLM.Model = choice
		if p, ok := a.services.Assist.Provider.(*llm.OpenAIProvider); ok {
			p.SetModel(choice)
		}
		return a.saveConfig()
	}
	return nil
}

func (a *App) applyConfirm(kind confirmKind) tea.Cmd {
	switch kind {
	case confirmQuit:
		return tea.Quit
	case confirmReset:
		a.status = "Resetting catalog..."
		return a.resetCatalog()
	case confirmDeleteAgent:
		agent := a.currentAgent()
		if agent == nil {
			return nil
		}
		name := agent.Name
		a.doc.RemoveAgent(name)
		a.agentCursor = clamp(a.agentCursor, len(a.doc.Agents))
		a.varCursor, a.funcCursor = 0, 0
		a.agentPane = paneAgentList
		a.markDirty()
		a.status = "Deleted agent " + name + " and every reference to it."
	case confirmDeleteGlobal:
		if len(a.doc.Globals) == 0 {
			return nil
		}
		idx := clamp(a.globalCursor, len(a.doc.Globals))
		name := a.doc.Globals[idx].Name
		a.doc.Globals = append(a.doc.Globals[:idx], a.doc.Globals[idx+1:]...)
		a.globalCursor = clamp(a.globalCursor, len(a.doc.Globals))
		a.markDirty()
		a.status = "Deleted global " + name + "."
	case confirmDeleteLayer:
		if len(a.doc.Layers) == 0 {
			return nil
		}
		idx := clamp(a.layerCursor, len(a.doc.Layers))
		name := a.doc.Layers[idx].Name
		a.doc.Layers = append(a.doc.Layers[:idx], a.doc.Layers[idx+1:]...)
		a.layerCursor = clamp(a.layerCursor, len(a.doc.Layers))
		a.layerFocus = false
		a.markDirty()
		a.status = "Deleted layer " + name + "."
	}
	return nil
}

// applyDraft folds an accepted draft into the open model, or starts a
// fresh one when nothing is open.
func (a *App) applyDraft(draft llm.DraftResponse) {
	var res service.DraftApplyResult
	if a.doc == nil {
		a.doc, res = a.services.Assist.NewModelFromDraft(draft)
		a.docPath = ""
		a.view = viewOverview
	} else {
		res = a.services.Assist.MergeDraft(a.doc, draft)
	}
	a.markDirty()
	a.status = describeDraftApply(res)
}

func describeDraftApply(res service.DraftApplyResult) string {
	out := fmt.Sprintf("Draft applied: %d agents, %d globals, %d layers, %d connections.",
		res.AgentsAdded, res.GlobalsAdded, res.LayersAdded, res.ConnectionsAdded)
	if len(res.Skipped) > 0 {
		out += describeCount(" %d item", len(res.Skipped)) + " skipped."
	}
	return out
}

// stampPreset copies a stored agent definition into the model under a
// free name, colored from the active palette.
func (a *App) stampPreset(name string) tea.Cmd {
	for _, p := range a.presets {
		if p.Name != name {
			continue
		}
		var agent model.AgentType
		if err := json.Unmarshal([]byte(p.Definition), &agent); err != nil {
			a.status = "Preset " + name + " is unreadable: " + err.Error()
			return nil
		}
		agent.Name = a.freeAgentName(agent.Name)
		agent.Color = a.paletteColor(len(a.doc.Agents))
		a.doc.Agents = append(a.doc.Agents, agent)
		a.agentCursor = len(a.doc.Agents) - 1
		a.varCursor, a.funcCursor = 0, 0
		a.markDirty()
		a.status = "Stamped preset as " + agent.Name + "."
		return nil
	}
	a.status = "Preset " + name + " is gone."
	return nil
}

func (a *App) freeAgentName(base string) string {
	if base == "" || !identRe.MatchString(base) {
		base = "Agent"
	}
	if a.doc.Agent(base) == nil {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if a.doc.Agent(candidate) == nil {
			return candidate
		}
	}
}

func (a *App) paletteColor(index int) string {
	palette := prefs.ActivePalette()
	return palette[index%len(palette)]
}

// messageConsumers lists functions that can receive messages, excluding
// the source itself.
func (a *App) messageConsumers(src string) []string {
	var out []string
	for _, id := range a.doc.FunctionIDs() {
		if id == src {
			continue
		}
		if _, fn, ok := a.doc.Function(id); ok && fn.InputType != model.MessageNone {
			out = append(out, id)
		}
	}
	return out
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalPrompt:
		value := a.inputBuffer
		if a.promptMasked {
			value = strings.Repeat("*", len(value))
		}
		out := titleStyle.Render(a.promptTitle) + "\n"
		out += "> " + value + "▌\n"
		return out + dimStyle.Render("[enter] Confirm  [esc] Cancel")
	case modalPicker:
		out := titleStyle.Render(a.pickTitle) + "\n"
		for i, option := range a.pickOptions {
			marker := " "
			if i == a.pickCursor {
				marker = "▶"
			}
			out += fmt.Sprintf("%s %s\n", marker, option)
		}
		return out + dimStyle.Render("[j/k] Navigate  [enter] Select  [esc] Cancel")
	case modalConfirm:
		out := titleStyle.Render("Confirm") + "\n"
		out += a.confirmText + "\n"
		return out + dimStyle.Render("[y] Yes  [n] Cancel")
	case modalDraft:
		return a.renderDraftPreview()
	case modalWiring:
		return a.renderWiringPreview()
	}
	return ""
}

func (a *App) renderDraftPreview() string {
	draft := a.pendingDraft
	if draft == nil {
		return ""
	}
	out := titleStyle.Render("Draft: "+draft.ModelName) + "\n"
	if draft.Summary != "" {
		out += draft.Summary + "\n\n"
	}
	for _, agent := range draft.Agents {
		out += fmt.Sprintf("  agent %-16s %d variables, %d functions\n",
			agent.Name, len(agent.Variables), len(agent.Functions))
	}
	if len(draft.Globals) > 0 {
		out += describeCount("  %d global", len(draft.Globals)) + "\n"
	}
	if len(draft.Layers) > 0 {
		out += describeCount("  %d layer", len(draft.Layers)) + "\n"
	}
	if len(draft.Connections) > 0 {
		out += describeCount("  %d connection", len(draft.Connections)) + "\n"
	}
	target := "start a new model"
	if a.doc != nil {
		target = "merge into " + a.doc.Name
	}
	return out + dimStyle.Render("[enter] Accept and "+target+"  [esc] Discard")
}

func (a *App) renderWiringPreview() string {
	proposal := a.pendingWiring
	if proposal == nil {
		return ""
	}
	out := titleStyle.Render("Suggested wiring") + "\n"
	for _, c := range proposal.Connections {
		out += fmt.Sprintf("  %s -> %s  %s\n", c.Src, c.Dst, c.Type)
	}
	if proposal.Reasoning != "" {
		out += dimStyle.Render(proposal.Reasoning) + "\n"
	}
	return out + dimStyle.Render("[enter] Apply  [esc] Discard")
}
