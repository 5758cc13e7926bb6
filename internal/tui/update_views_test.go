package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"abmconf/internal/config"
	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/sample"
	"abmconf/internal/service"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := New(context.Background(), config.Config{}, Repos{}, Services{
		Assist: &service.AssistService{Provider: llm.NewHeuristicProvider()},
	})
	a.SetModel(sample.Project(), "")
	return a
}

func press(t *testing.T, a *App, keys ...string) {
	t.Helper()
	for _, k := range keys {
		a.Update(keyMsg(k))
	}
}

func typeText(t *testing.T, a *App, s string) {
	t.Helper()
	for _, r := range s {
		a.Update(keyMsg(string(r)))
	}
}

func TestAddAgentFlowSeedsVariables(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "a")
	if a.modal != modalPrompt || a.prompt != promptAddAgent {
		t.Fatalf("modal = %v/%v, want add agent prompt", a.modal, a.prompt)
	}
	typeText(t, a, "Predator")
	press(t, a, "enter")

	agent := a.doc.Agent("Predator")
	if agent == nil {
		t.Fatal("agent was not created")
	}
	if len(agent.Variables) == 0 {
		t.Fatal("new agents should carry the position and velocity seed variables")
	}
	if a.agentCursor != len(a.doc.Agents)-1 {
		t.Fatalf("agentCursor = %d, want the new agent selected", a.agentCursor)
	}
	if !a.dirty {
		t.Fatal("expected the document to be dirty")
	}
	if a.modal != modalNone {
		t.Fatal("modal should be closed after enter")
	}
}

func TestAddAgentRejectsBadIdentifier(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "a")
	typeText(t, a, "bad name")
	press(t, a, "enter")

	if a.doc.Agent("bad name") != nil {
		t.Fatal("invalid name must not create an agent")
	}
	if a.status == "" {
		t.Fatal("expected a validation message in the status line")
	}
}

func TestRenameAgentRewritesReferences(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "r")
	press(t, a, "backspace", "backspace", "backspace", "backspace")
	typeText(t, a, "Bird")
	press(t, a, "enter")

	if a.doc.Agent("Bird") == nil || a.doc.Agent("Boid") != nil {
		t.Fatal("rename did not replace the agent")
	}
	if got := a.doc.Layers[0].FunctionIDs[0]; got != "Bird::output_location" {
		t.Fatalf("layer reference = %q, want Bird::output_location", got)
	}
	if got := a.doc.Connections[0].Src; got != "Bird::output_location" {
		t.Fatalf("connection source = %q, want Bird::output_location", got)
	}
}

func TestVariableTypePickerApplies(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "l") // variables pane
	press(t, a, "t")
	if a.modal != modalPicker || a.pick != pickVarType {
		t.Fatalf("modal = %v/%v, want variable type picker", a.modal, a.pick)
	}
	// x is Float, the option after it is Int
	press(t, a, "j", "enter")

	if got := a.doc.Agents[0].Variables[0].Type; got != model.TypeInt {
		t.Fatalf("variable type = %q, want %q", got, model.TypeInt)
	}
}

func TestAddFunctionDefaultsToNoMessages(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "l", "l") // functions pane
	press(t, a, "a")
	typeText(t, a, "avoid")
	press(t, a, "enter")

	fns := a.doc.Agents[0].Functions
	fn := fns[len(fns)-1]
	if fn.Name != "avoid" {
		t.Fatalf("function name = %q", fn.Name)
	}
	if fn.InputType != model.MessageNone || fn.OutputType != model.MessageNone {
		t.Fatalf("new functions default to no messages, got %q/%q", fn.InputType, fn.OutputType)
	}
	if a.funcCursor != len(fns)-1 {
		t.Fatalf("funcCursor = %d, want the new function selected", a.funcCursor)
	}
}

func TestLayerMoveFollowsCursor(t *testing.T) {
	a := newTestApp(t)
	a.view = viewLayers

	press(t, a, "J")
	if a.doc.Layers[0].Name != "Steer" || a.doc.Layers[1].Name != "Broadcast" {
		t.Fatalf("layers = %q, %q; want swapped order", a.doc.Layers[0].Name, a.doc.Layers[1].Name)
	}
	if a.layerCursor != 1 {
		t.Fatalf("layerCursor = %d, want 1", a.layerCursor)
	}
	if !a.dirty {
		t.Fatal("expected dirty document")
	}
}

func TestLayerHeightPrompt(t *testing.T) {
	a := newTestApp(t)
	a.view = viewLayers

	press(t, a, "e")
	typeText(t, a, "1.5")
	press(t, a, "enter")

	h := a.doc.Layers[0].Height
	if h == nil || *h != 1.5 {
		t.Fatalf("layer height = %v, want 1.5", h)
	}

	press(t, a, "e")
	typeText(t, a, "tall")
	press(t, a, "enter")
	if *a.doc.Layers[0].Height != 1.5 {
		t.Fatal("non numeric input must not change the height")
	}
}

func TestDetachFunctionFromLayer(t *testing.T) {
	a := newTestApp(t)
	a.view = viewLayers

	press(t, a, "l") // function pane
	press(t, a, "x")

	if got := len(a.doc.Layers[0].FunctionIDs); got != 0 {
		t.Fatalf("layer still has %d functions", got)
	}
}

func TestWiringNudgeWritesLayout(t *testing.T) {
	a := newTestApp(t)
	a.view = viewWiring

	before := a.diagramNodes()[0]
	press(t, a, "L")

	pos, ok := a.doc.Layout[before.id]
	if !ok {
		t.Fatalf("no layout entry for %s", before.id)
	}
	if pos.X != before.x+4 {
		t.Fatalf("x = %g, want %g", pos.X, before.x+4)
	}

	press(t, a, "H", "H")
	if got := a.doc.Layout[before.id].X; got != 0 {
		t.Fatalf("x = %g, nudging left clamps at zero", got)
	}
}

func TestConnectionChainAddsConnection(t *testing.T) {
	a := newTestApp(t)
	a.view = viewWiring
	before := len(a.doc.Connections)

	press(t, a, "a")
	if a.modal != modalPicker || a.pick != pickConnSrc {
		t.Fatalf("modal = %v/%v, want source picker", a.modal, a.pick)
	}
	press(t, a, "enter") // Boid::output_location
	if a.pick != pickConnDst {
		t.Fatalf("pick = %v, want destination picker", a.pick)
	}
	press(t, a, "enter") // Boid::steer
	if a.pick != pickConnType {
		t.Fatalf("pick = %v, want type picker", a.pick)
	}
	// preselected on the spatial type the target already consumes; pick
	// the next type so the result is not a duplicate
	press(t, a, "j", "enter")

	if got := len(a.doc.Connections); got != before+1 {
		t.Fatalf("connections = %d, want %d", got, before+1)
	}
	c := a.doc.Connections[len(a.doc.Connections)-1]
	if c.Src != "Boid::output_location" || c.Dst != "Boid::steer" || c.Type != model.MessageBucket {
		t.Fatalf("connection = %+v", c)
	}
	if a.connCursor != len(a.doc.Connections)-1 {
		t.Fatalf("connCursor = %d, want the new connection selected", a.connCursor)
	}
}

func TestConnectionChainRejectsDuplicate(t *testing.T) {
	a := newTestApp(t)
	a.view = viewWiring
	before := len(a.doc.Connections)

	press(t, a, "a", "enter", "enter", "enter")

	if got := len(a.doc.Connections); got != before {
		t.Fatalf("connections = %d, duplicates must be rejected", got)
	}
	if a.status != "That connection already exists." {
		t.Fatalf("status = %q", a.status)
	}
}

func TestVisualizationToggles(t *testing.T) {
	a := newTestApp(t)
	a.view = viewVisualization

	press(t, a, "space")
	if a.doc.Visualization.Activated {
		t.Fatal("space on the first row should deactivate visualization")
	}

	a.visCursor = visFixedRows // first agent row
	press(t, a, "space")
	if a.doc.Visualization.Agents[0].Include {
		t.Fatal("space on an agent row should exclude it")
	}
}

func TestInterpolationFlow(t *testing.T) {
	a := newTestApp(t)
	a.view = viewVisualization
	a.visCursor = visFixedRows

	press(t, a, "i")
	if a.modal != modalPicker || a.pick != pickInterpVariable {
		t.Fatalf("modal = %v/%v, want variable picker", a.modal, a.pick)
	}
	press(t, a, "enter") // x
	if a.modal != modalPrompt || a.prompt != promptInterpMin {
		t.Fatalf("modal = %v/%v, want minimum prompt", a.modal, a.prompt)
	}
	typeText(t, a, "0")
	press(t, a, "enter")
	typeText(t, a, "2")
	press(t, a, "enter")

	row := a.doc.Visualization.Agents[0]
	if row.ColorMode != model.ColorInterpolated {
		t.Fatalf("color mode = %q, want %q", row.ColorMode, model.ColorInterpolated)
	}
	if row.Interpolation == nil || row.Interpolation.Variable != "x" ||
		row.Interpolation.MinValue != "0" || row.Interpolation.MaxValue != "2" {
		t.Fatalf("interpolation = %+v", row.Interpolation)
	}
}

func TestCatalogSampleLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := New(context.Background(), config.Config{}, Repos{}, Services{})
	a.view = viewCatalog

	press(t, a, "b")

	if a.doc == nil || a.doc.Name != "boids" {
		t.Fatal("sample was not loaded")
	}
	if !a.dirty || a.docPath != "" {
		t.Fatal("sample starts as an unsaved document")
	}
	if a.view != viewOverview {
		t.Fatalf("view = %v, want overview", a.view)
	}
}

func TestQuitGuardsDirtyDocument(t *testing.T) {
	a := newTestApp(t)
	a.dirty = true

	_, cmd := a.Update(keyMsg("q"))
	if cmd != nil {
		t.Fatal("dirty quit must not produce a command")
	}
	if a.modal != modalConfirm || a.confirm != confirmQuit {
		t.Fatalf("modal = %v/%v, want quit confirm", a.modal, a.confirm)
	}
	press(t, a, "n")
	if a.modal != modalNone {
		t.Fatal("n should dismiss the confirm")
	}

	a.dirty = false
	_, cmd = a.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("clean quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected a quit message, got %T", cmd())
	}
}

func TestDeleteAgentCascades(t *testing.T) {
	a := newTestApp(t)
	a.view = viewAgents

	press(t, a, "d")
	if a.modal != modalConfirm || a.confirm != confirmDeleteAgent {
		t.Fatalf("modal = %v/%v, want delete confirm", a.modal, a.confirm)
	}
	press(t, a, "y")

	if len(a.doc.Agents) != 0 {
		t.Fatal("agent was not deleted")
	}
	if len(a.doc.Connections) != 0 {
		t.Fatal("connections referencing the agent must be removed")
	}
	for _, layer := range a.doc.Layers {
		if len(layer.FunctionIDs) != 0 {
			t.Fatalf("layer %s still references deleted functions", layer.Name)
		}
	}
}

func TestSettingsProviderPicker(t *testing.T) {
	a := newTestApp(t)
	a.view = viewSettings

	press(t, a, "j", "j", "j", "enter")
	if a.modal != modalPicker || a.pick != pickProvider {
		t.Fatalf("modal = %v/%v, want provider picker", a.modal, a.pick)
	}
	if len(a.pickOptions) != len(llm.ProviderOptions) {
		t.Fatalf("options = %v", a.pickOptions)
	}
	press(t, a, "esc")

	press(t, a, "v")
	if !a.showAPIKey {
		t.Fatal("v should reveal the key")
	}
}

func TestEditViewsNeedADocument(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := New(context.Background(), config.Config{}, Repos{}, Services{})
	a.view = viewAgents

	press(t, a, "a")

	if a.modal != modalNone {
		t.Fatal("no modal without an open document")
	}
	if a.status == "" {
		t.Fatal("expected a hint in the status line")
	}
}
