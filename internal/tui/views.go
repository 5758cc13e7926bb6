package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"abmconf/internal/model"
	"abmconf/internal/prefs"
)

var paneStyle = lipgloss.NewStyle().Bold(true)

// paneHeader renders a section label, bold while its pane has focus.
func paneHeader(label string, active bool) string {
	if active {
		return paneStyle.Render(label) + "\n"
	}
	return dimStyle.Render(label) + "\n"
}

func marker(selected bool) string {
	if selected {
		return "▶"
	}
	return " "
}

const noModelHint = "No model open.\nSwitch to the Catalog view to open, create or import one.\n"

func (a *App) renderOverview() string {
	out := a.renderTitle("Overview")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}

	vars, funcs := 0, 0
	for _, agent := range a.doc.Agents {
		vars += len(agent.Variables)
		funcs += len(agent.Functions)
	}
	out += fmt.Sprintf("Model: %s\n", a.doc.Name)
	if a.doc.Description != "" {
		out += a.doc.Description + "\n"
	}
	if a.docPath != "" {
		out += dimStyle.Render(a.docPath) + "\n"
	}
	out += fmt.Sprintf("\nAgents: %d (%d variables, %d functions)  Globals: %d  Layers: %d  Connections: %d\n",
		len(a.doc.Agents), vars, funcs, len(a.doc.Globals), len(a.doc.Layers), len(a.doc.Connections))

	if len(a.issues) == 0 {
		out += "\nValidation: no issues.\n"
	} else {
		out += "\n" + describeCount("Validation: %d issue", len(a.issues)) + "\n"
		for i, issue := range a.issues {
			if i == 6 {
				out += dimStyle.Render(fmt.Sprintf("  ... and %d more", len(a.issues)-i)) + "\n"
				break
			}
			out += "  - " + truncate(issue.String(), 96) + "\n"
		}
	}

	if len(a.exports) > 0 {
		out += "\nRecent exports:\n"
		for i, e := range a.exports {
			if i == 3 {
				break
			}
			out += fmt.Sprintf("  %s  %-16s %s\n",
				e.CreatedAt.Format(a.dateFormat()), truncate(e.ModelName, 16), truncate(e.OutputDir, 48))
		}
	}
	return out + "\n" + footer(overviewHelp)
}

func (a *App) renderAgents() string {
	out := a.renderTitle("Agents")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}

	out += paneHeader("Agent types", a.agentPane == paneAgentList)
	if len(a.doc.Agents) == 0 {
		out += dimStyle.Render("  (none yet, press a to add one)") + "\n"
	}
	for i, agent := range a.doc.Agents {
		out += fmt.Sprintf("%s %-18s %s  %d variables, %d functions\n",
			marker(a.agentPane == paneAgentList && i == a.agentCursor),
			agent.Name, agent.Color, len(agent.Variables), len(agent.Functions))
	}

	agent := a.currentAgent()
	if agent != nil {
		out += "\n" + paneHeader("Variables of "+agent.Name, a.agentPane == paneVariables)
		if len(agent.Variables) == 0 {
			out += dimStyle.Render("  (none)") + "\n"
		}
		for i, v := range agent.Variables {
			logText := ""
			if v.Logging != model.LogNone {
				logText = "  log " + v.Logging
			}
			out += fmt.Sprintf("%s %-16s %-11s %-14s%s\n",
				marker(a.agentPane == paneVariables && i == a.varCursor),
				v.Name, v.Type, v.Default, logText)
		}

		out += "\n" + paneHeader("Functions of "+agent.Name, a.agentPane == paneFunctions)
		if len(agent.Functions) == 0 {
			out += dimStyle.Render("  (none)") + "\n"
		}
		for i, fn := range agent.Functions {
			out += fmt.Sprintf("%s %-18s in %-18s out %s\n",
				marker(a.agentPane == paneFunctions && i == a.funcCursor),
				fn.Name, fn.InputType, fn.OutputType)
			if fn.Description != "" {
				out += dimStyle.Render("    "+truncate(fn.Description, 92)) + "\n"
			}
		}
	}

	help := agentListHelp
	switch a.agentPane {
	case paneVariables:
		help = variablesHelp
	case paneFunctions:
		help = functionsHelp
	}
	return out + "\n" + footer(help)
}

func (a *App) renderGlobals() string {
	out := a.renderTitle("Globals")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}
	if len(a.doc.Globals) == 0 {
		out += dimStyle.Render("(no globals yet, press a to add one)") + "\n"
	}
	for i, g := range a.doc.Globals {
		macro := ""
		if g.IsMacro {
			macro = "macro"
		}
		out += fmt.Sprintf("%s %-24s %-11s %-18s %s\n",
			marker(i == a.globalCursor), g.Name, g.Type, truncate(g.Value, 18), macro)
	}
	return out + "\n" + footer(globalsHelp)
}

func (a *App) renderLayers() string {
	out := a.renderTitle("Layers")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}

	out += paneHeader("Execution order", !a.layerFocus)
	if len(a.doc.Layers) == 0 {
		out += dimStyle.Render("  (no layers yet, press a to add one)") + "\n"
	}
	for i, layer := range a.doc.Layers {
		height := ""
		if layer.Height != nil {
			height = fmt.Sprintf("  height %g", *layer.Height)
		}
		out += fmt.Sprintf("%s %2d. %-20s %s%s\n",
			marker(!a.layerFocus && i == a.layerCursor),
			i+1, layer.Name, describeCount("%d function", len(layer.FunctionIDs)), height)
	}

	if layer := a.currentLayer(); layer != nil {
		out += "\n" + paneHeader("Functions in "+layer.Name, a.layerFocus)
		if len(layer.FunctionIDs) == 0 {
			out += dimStyle.Render("  (empty, press f to attach a function)") + "\n"
		}
		for i, id := range layer.FunctionIDs {
			note := ""
			if _, _, ok := a.doc.Function(id); !ok {
				note = "  (unknown)"
			}
			out += fmt.Sprintf("%s %s%s\n", marker(a.layerFocus && i == a.layerFnCursor), id, note)
		}
	}

	help := layerListHelp
	if a.layerFocus {
		help = layerFnHelp
	}
	return out + "\n" + footer(help)
}

// diagramNode is one function box in the wiring diagram. Band -1 holds
// functions no layer schedules.
type diagramNode struct {
	id   string
	band int
	x, y float64
}

// diagramNodes lays out every function once, in band order, using the
// persisted manual layout where present and slot positions otherwise.
func (a *App) diagramNodes() []diagramNode {
	var nodes []diagramNode
	seen := make(map[string]bool)
	place := func(id string, band, slot int) {
		pos, ok := a.doc.Layout[id]
		if !ok {
			pos = model.NodePos{X: float64(slot * 20), Y: float64(band)}
		}
		nodes = append(nodes, diagramNode{id: id, band: band, x: pos.X, y: pos.Y})
		seen[id] = true
	}
	for li, layer := range a.doc.Layers {
		for slot, id := range layer.FunctionIDs {
			if seen[id] {
				continue
			}
			place(id, li, slot)
		}
	}
	slot := 0
	for _, id := range a.doc.FunctionIDs() {
		if seen[id] {
			continue
		}
		place(id, -1, slot)
		slot++
	}
	return nodes
}

func (a *App) renderWiring() string {
	out := a.renderTitle("Wiring")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}

	nodes := a.diagramNodes()
	a.nodeCursor = clamp(a.nodeCursor, len(nodes))

	out += paneHeader("Diagram", a.wiringPane == paneNodes)
	if len(nodes) == 0 {
		out += dimStyle.Render("  (declare agent functions to see them here)") + "\n"
	}
	bandLabel := func(band int) string {
		if band < 0 {
			return "  - unscheduled "
		}
		return fmt.Sprintf(" %2d %-12s", band+1, truncate(a.doc.Layers[band].Name, 12))
	}
	lastBand := -2
	line := ""
	col := 0
	flush := func() {
		if lastBand != -2 {
			out += line + "\n"
		}
	}
	for i, n := range nodes {
		if n.band != lastBand {
			flush()
			line = bandLabel(n.band) + " |"
			col = 0
			lastBand = n.band
		}
		box := "[" + n.id + "]"
		if a.wiringPane == paneNodes && i == a.nodeCursor {
			box = "▶" + n.id + "◀"
		}
		pad := int(n.x/2) - col
		if pad < 1 {
			pad = 1
		}
		line += strings.Repeat(" ", pad) + box
		col += pad + len([]rune(box))
	}
	flush()
	if a.wiringPane == paneNodes && len(nodes) > 0 {
		n := nodes[a.nodeCursor]
		out += dimStyle.Render(fmt.Sprintf("  selected %s at (%g, %g)", n.id, n.x, n.y)) + "\n"
	}

	out += "\n" + paneHeader("Connections", a.wiringPane == paneConnections)
	if len(a.doc.Connections) == 0 {
		out += dimStyle.Render("  (none yet, press a to wire two functions)") + "\n"
	}
	a.connCursor = clamp(a.connCursor, len(a.doc.Connections))
	for i, c := range a.doc.Connections {
		note := ""
		if _, _, ok := a.doc.Function(c.Src); !ok {
			note = "  (unknown source)"
		} else if _, _, ok := a.doc.Function(c.Dst); !ok {
			note = "  (unknown target)"
		}
		out += fmt.Sprintf("%s %-28s -> %-28s %s%s\n",
			marker(a.wiringPane == paneConnections && i == a.connCursor),
			c.Src, c.Dst, c.Type, note)
	}

	help := wiringNodesHelp
	if a.wiringPane == paneConnections {
		help = wiringConnsHelp
	}
	return out + "\n" + footer(help)
}

func (a *App) renderVisualization() string {
	out := a.renderTitle("Visualization")
	if a.doc == nil {
		return out + noModelHint + "\n" + footer(nil)
	}
	vis := a.doc.Visualization
	if vis == nil {
		out += "Visualization is not set up for this model yet.\n"
		out += dimStyle.Render("Press space to enable it with defaults.") + "\n"
		return out + "\n" + footer(visualizationHelp)
	}

	width := vis.DomainWidth
	if width == "" {
		width = dimStyle.Render("(not set)")
	}
	fixed := []string{
		"Activated              " + yesNo(vis.Activated),
		"Domain width           " + width,
		"Begin paused           " + yesNo(vis.BeginPaused),
		"Show domain boundaries " + yesNo(vis.ShowDomainBoundaries),
	}
	for i, row := range fixed {
		out += fmt.Sprintf("%s %s\n", marker(i == a.visCursor), row)
	}

	out += "\nAgents\n"
	if len(vis.Agents) == 0 {
		out += dimStyle.Render("  (no agents in the model)") + "\n"
	}
	for i, row := range vis.Agents {
		out += fmt.Sprintf("%s %-18s include %-4s %-12s %s\n",
			marker(i+visFixedRows == a.visCursor),
			row.AgentName, yesNo(row.Include), row.Shape, row.ColorMode)
		if row.Interpolation != nil {
			out += dimStyle.Render(fmt.Sprintf("    over %s from %s to %s",
				row.Interpolation.Variable, row.Interpolation.MinValue, row.Interpolation.MaxValue)) + "\n"
		}
	}
	return out + "\n" + footer(visualizationHelp)
}

func (a *App) renderCatalog() string {
	out := a.renderTitle("Catalog")
	if len(a.projects) == 0 {
		out += dimStyle.Render("No tracked models yet.") + "\n"
		out += dimStyle.Render("Create one with n, draft one with g, or rescan the configs directory with R.") + "\n"
	}
	for i, p := range a.projects {
		opened := "never opened"
		if p.LastOpenedAt != nil {
			opened = p.LastOpenedAt.Format(a.dateFormat())
		}
		out += fmt.Sprintf("%s %-20s %-14s %-44s %s\n",
			marker(i == a.catalogCursor), truncate(p.Name, 20),
			describeCount("%d agent", p.AgentCount), truncate(p.Path, 44), opened)
	}
	out += "\n" + dimStyle.Render("Configs directory: "+a.cfg.Paths.ConfigsDir) + "\n"
	return out + "\n" + footer(catalogHelp)
}

func (a *App) renderExport() string {
	out := a.renderTitle("Export")
	out += "Output directory: " + a.exportDir + "\n"

	if a.lastExport != nil {
		res := a.lastExport
		out += fmt.Sprintf("\nLast export: %d files under %s\n", res.FileCount, res.OutputDir)
		if len(res.Issues) > 0 {
			out += dimStyle.Render(describeCount("  %d validation note", len(res.Issues))+" (see Overview)") + "\n"
		}
		if len(res.Unresolved) == 0 {
			out += "  Every placeholder resolved.\n"
		} else {
			out += describeCount("  %d line", len(res.Unresolved)) + " still carrying a ? marker:\n"
			for i, mark := range res.Unresolved {
				if i == 6 {
					out += dimStyle.Render(fmt.Sprintf("    ... and %d more", len(res.Unresolved)-i)) + "\n"
					break
				}
				out += fmt.Sprintf("    %s:%d  %s\n", mark.File, mark.Line, truncate(mark.Text, 60))
			}
		}
	}
	if a.lastReport != nil {
		out += fmt.Sprintf("\nFunction report: %d rows in %s\n", a.lastReport.Rows, a.lastReport.Path)
	}

	if len(a.exports) > 0 {
		out += "\nHistory:\n"
		for i, e := range a.exports {
			if i == 8 {
				break
			}
			unresolved := ""
			if e.UnresolvedCount > 0 {
				unresolved = describeCount("  %d unresolved", e.UnresolvedCount)
			}
			out += fmt.Sprintf("  %s  %-16s %s%s\n",
				e.CreatedAt.Format(a.dateFormat()), truncate(e.ModelName, 16),
				describeCount("%d file", e.FileCount), unresolved)
		}
	}
	return out + "\n" + footer(exportHelp)
}

// Rows of the settings view, in cursor order.
var settingsRows = []string{
	"Configs directory",
	"Templates directory",
	"Exports directory",
	"Drafting provider",
	"Drafting model",
	"API key",
	"Agent palette",
	"Reset catalog",
}

// Structured output capable models offered by the settings picker.
var llmModelOptions = []string{"gpt-4o-2024-08-06", "gpt-4o-mini", "gpt-4o"}

func (a *App) renderSettings() string {
	out := a.renderTitle("Settings")

	templates := a.cfg.Paths.TemplatesDir
	if templates == "" {
		templates = "(embedded)"
	}
	apiValue := "(not set)"
	if a.apiKey != "" {
		if a.showAPIKey {
			apiValue = a.apiKey
		} else {
			apiValue = strings.Repeat("*", len(a.apiKey))
		}
	}
	values := []string{
		a.cfg.Paths.ConfigsDir,
		templates,
		a.cfg.Paths.ExportsDir,
		a.cfg.LLM.Provider,
		a.cfg.LLM.Model,
		apiValue,
		strings.Join(prefs.ActivePalette(), " "),
		"clears tracked models, export history and custom presets",
	}
	for i, label := range settingsRows {
		out += fmt.Sprintf("%s %-20s %s\n", marker(i == a.settingsCursor), label, truncate(values[i], 72))
	}
	out += "\n" + dimStyle.Render("Keys resolve from $"+a.cfg.LLM.APIKeyEnv+" first, then the key store, then this config.") + "\n"
	return out + "\n" + footer(settingsHelp)
}

func (a *App) dateFormat() string {
	if a.cfg.UI.DateFormat != "" {
		return a.cfg.UI.DateFormat
	}
	return "2006-01-02 15:04"
}
