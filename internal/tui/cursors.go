package tui

import (
	"os"
	"path/filepath"
	"strings"

	"abmconf/internal/model"
)

// Selection helpers. Every view keeps its own cursor; these resolve a
// cursor into the document entry it points at, or nil when the list is
// empty. Callers treat nil as "nothing selected" and stay quiet.

func (a *App) currentAgent() *model.AgentType {
	if a.doc == nil || len(a.doc.Agents) == 0 {
		return nil
	}
	a.agentCursor = clamp(a.agentCursor, len(a.doc.Agents))
	return &a.doc.Agents[a.agentCursor]
}

func (a *App) currentVariable() *model.AgentVariable {
	agent := a.currentAgent()
	if agent == nil || len(agent.Variables) == 0 {
		return nil
	}
	a.varCursor = clamp(a.varCursor, len(agent.Variables))
	return &agent.Variables[a.varCursor]
}

func (a *App) currentFunction() *model.AgentFunction {
	agent := a.currentAgent()
	if agent == nil || len(agent.Functions) == 0 {
		return nil
	}
	a.funcCursor = clamp(a.funcCursor, len(agent.Functions))
	return &agent.Functions[a.funcCursor]
}

func (a *App) currentGlobal() *model.GlobalVariable {
	if a.doc == nil || len(a.doc.Globals) == 0 {
		return nil
	}
	a.globalCursor = clamp(a.globalCursor, len(a.doc.Globals))
	return &a.doc.Globals[a.globalCursor]
}

func (a *App) currentLayer() *model.Layer {
	if a.doc == nil || len(a.doc.Layers) == 0 {
		return nil
	}
	a.layerCursor = clamp(a.layerCursor, len(a.doc.Layers))
	return &a.doc.Layers[a.layerCursor]
}

// visFixedRows are the settings lines above the per agent table in the
// visualization view: activated, domain width, begin paused, show
// boundaries.
const visFixedRows = 4

// ensureVisualization materialises the visualization section and keeps
// one row per declared agent, the way the original editor synthesised
// table rows when the tab was opened. Rows for removed agents are
// already scrubbed by the model mutators.
func (a *App) ensureVisualization() *model.VisualizationSettings {
	if a.doc.Visualization == nil {
		a.doc.Visualization = &model.VisualizationSettings{DomainWidth: "1.0"}
	}
	vis := a.doc.Visualization
	have := make(map[string]bool, len(vis.Agents))
	for _, row := range vis.Agents {
		have[row.AgentName] = true
	}
	for _, agent := range a.doc.Agents {
		if have[agent.Name] {
			continue
		}
		vis.Agents = append(vis.Agents, model.AgentVisualization{
			AgentName: agent.Name,
			Include:   true,
			Shape:     model.DefaultShape,
			ColorMode: model.DefaultColorMode,
		})
	}
	return vis
}

// currentVisRow resolves the visualization cursor when it sits on an
// agent row, nil while it is on one of the fixed settings lines.
func (a *App) currentVisRow() *model.AgentVisualization {
	if a.doc == nil || a.doc.Visualization == nil {
		return nil
	}
	idx := a.visCursor - visFixedRows
	if idx < 0 || idx >= len(a.doc.Visualization.Agents) {
		return nil
	}
	return &a.doc.Visualization.Agents[idx]
}

func (a *App) visRowFor(agentName string) *model.AgentVisualization {
	if a.doc == nil || a.doc.Visualization == nil {
		return nil
	}
	for i := range a.doc.Visualization.Agents {
		if a.doc.Visualization.Agents[i].AgentName == agentName {
			return &a.doc.Visualization.Agents[i]
		}
	}
	return nil
}

// expandPath resolves ~ and relative paths so typed paths behave like
// they would in a shell.
func expandPath(path string) string {
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	return path
}
