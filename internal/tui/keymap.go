package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Help bindings drive the footer lines. Key handling matches on the raw
// key strings, so these carry the display text only.
func helpKey(keys, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
}

var navHelp = []key.Binding{
	helpKey("tab", "Next view"),
	helpKey("1-9", "Jump"),
	helpKey("q", "Quit"),
}

var overviewHelp = []key.Binding{
	helpKey("n", "Rename model"),
	helpKey("e", "Description"),
	helpKey("g", "Describe functions"),
}

var agentListHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("a", "Add agent"),
	helpKey("r", "Rename"),
	helpKey("c", "Color"),
	helpKey("d", "Delete"),
	helpKey("p", "Stamp preset"),
	helpKey("P", "Save preset"),
}

var variablesHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("a", "Add variable"),
	helpKey("e", "Name"),
	helpKey("t", "Type"),
	helpKey("v", "Default"),
	helpKey("g", "Logging"),
	helpKey("d", "Delete"),
}

var functionsHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("a", "Add function"),
	helpKey("e", "Name"),
	helpKey("s", "Description"),
	helpKey("i", "Input"),
	helpKey("o", "Output"),
	helpKey("d", "Delete"),
}

var globalsHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("a", "Add"),
	helpKey("e", "Rename"),
	helpKey("v", "Value"),
	helpKey("t", "Type"),
	helpKey("m", "Macro"),
	helpKey("d", "Delete"),
}

var layerListHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("a", "Add layer"),
	helpKey("r", "Rename"),
	helpKey("e", "Height"),
	helpKey("J/K", "Move"),
	helpKey("f", "Attach function"),
	helpKey("d", "Delete"),
}

var layerFnHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("f", "Attach function"),
	helpKey("x", "Detach"),
}

var wiringNodesHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("H/J/K/L", "Nudge node"),
	helpKey("a", "Add connection"),
	helpKey("s", "Suggest wiring"),
}

var wiringConnsHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("h/l", "Pane"),
	helpKey("a", "Add connection"),
	helpKey("d", "Remove"),
	helpKey("s", "Suggest wiring"),
}

var visualizationHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("space", "Toggle"),
	helpKey("enter", "Edit"),
	helpKey("s", "Shape"),
	helpKey("c", "Color mode"),
	helpKey("i", "Interpolation"),
}

var catalogHelp = []key.Binding{
	helpKey("enter", "Open"),
	helpKey("n", "New"),
	helpKey("b", "Boids sample"),
	helpKey("g", "From description"),
	helpKey("i", "Import scaffold"),
	helpKey("o", "Open path"),
	helpKey("s", "Save"),
	helpKey("S", "Save as"),
	helpKey("R", "Rescan"),
	helpKey("d", "Forget"),
}

var exportHelp = []key.Binding{
	helpKey("e", "Export"),
	helpKey("o", "Output dir"),
	helpKey("r", "Report"),
}

var settingsHelp = []key.Binding{
	helpKey("j/k", "Navigate"),
	helpKey("enter", "Edit"),
	helpKey("v", "Reveal key"),
}

func footerLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, "["+h.Key+"] "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// footer renders the view actions above the shared navigation line.
func footer(bindings []key.Binding) string {
	return footerLine(bindings) + "\n" + dimStyle.Render(footerLine(navHelp))
}
