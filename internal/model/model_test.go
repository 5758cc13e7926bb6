package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAgentTypeDefaults(t *testing.T) {
	t.Parallel()

	a := NewAgentType("Boid", 0)
	require.Equal(t, "Boid", a.Name)
	require.Equal(t, "#e6194B", a.Color)
	require.Len(t, a.Variables, 6)

	names := make([]string, 0, len(a.Variables))
	for _, v := range a.Variables {
		names = append(names, v.Name)
		require.Equal(t, TypeFloat, v.Type)
		require.Equal(t, "0.0", v.Default)
		require.Equal(t, LogNone, v.Logging)
	}
	require.Equal(t, []string{"x", "y", "z", "vx", "vy", "vz"}, names)
}

func TestNewAgentTypeColorCycles(t *testing.T) {
	t.Parallel()

	first := NewAgentType("A", 0)
	wrapped := NewAgentType("B", len(DefaultColors))
	require.Equal(t, first.Color, wrapped.Color)

	second := NewAgentType("C", 1)
	require.NotEqual(t, first.Color, second.Color)
}

func TestSplitFunctionID(t *testing.T) {
	t.Parallel()

	agent, fn, ok := SplitFunctionID("Boid::move")
	require.True(t, ok)
	require.Equal(t, "Boid", agent)
	require.Equal(t, "move", fn)

	for _, bad := range []string{"", "Boid", "::move", "Boid::"} {
		_, _, ok := SplitFunctionID(bad)
		require.False(t, ok, "id %q should be rejected", bad)
	}
}

func TestFunctionResolution(t *testing.T) {
	t.Parallel()

	cfg := New("test")
	cfg.Agents = []AgentType{
		{
			Name: "Boid",
			Functions: []AgentFunction{
				{Name: "move", OutputType: MessageSpatial3D},
			},
		},
	}

	agent, fn, ok := cfg.Function("Boid::move")
	require.True(t, ok)
	require.Equal(t, "Boid", agent.Name)
	require.Equal(t, MessageSpatial3D, fn.OutputType)

	_, _, ok = cfg.Function("Boid::missing")
	require.False(t, ok)
	_, _, ok = cfg.Function("Ghost::move")
	require.False(t, ok)
}

func TestRemoveAgentScrubsReferences(t *testing.T) {
	t.Parallel()

	cfg := New("test")
	cfg.Agents = []AgentType{
		{Name: "Boid", Functions: []AgentFunction{{Name: "move"}}},
		{Name: "Predator", Functions: []AgentFunction{{Name: "hunt"}}},
	}
	cfg.Layers = []Layer{
		{Name: "Step", FunctionIDs: []string{"Boid::move", "Predator::hunt"}},
	}
	cfg.Connections = []Connection{
		{Src: "Boid::move", Dst: "Predator::hunt", Type: MessageSpatial3D},
	}
	cfg.Visualization = &VisualizationSettings{
		Agents: []AgentVisualization{
			{AgentName: "Boid"},
			{AgentName: "Predator"},
		},
	}
	cfg.Layout = map[string]NodePos{
		"Boid":       {X: 1, Y: 2},
		"Boid::move": {X: 3, Y: 4},
		"Predator":   {X: 5, Y: 6},
	}

	cfg.RemoveAgent("Boid")

	require.Len(t, cfg.Agents, 1)
	require.Equal(t, "Predator", cfg.Agents[0].Name)
	require.Equal(t, []string{"Predator::hunt"}, cfg.Layers[0].FunctionIDs)
	require.Empty(t, cfg.Connections)
	require.Len(t, cfg.Visualization.Agents, 1)
	require.Equal(t, "Predator", cfg.Visualization.Agents[0].AgentName)
	require.NotContains(t, cfg.Layout, "Boid")
	require.NotContains(t, cfg.Layout, "Boid::move")
	require.Contains(t, cfg.Layout, "Predator")
}

func TestRenameAgentRewritesReferences(t *testing.T) {
	t.Parallel()

	cfg := New("test")
	cfg.Agents = []AgentType{
		{Name: "Boid", Functions: []AgentFunction{{Name: "move"}}},
	}
	cfg.Layers = []Layer{{Name: "Step", FunctionIDs: []string{"Boid::move"}}}
	cfg.Connections = []Connection{
		{Src: "Boid::move", Dst: "Boid::move", Type: MessageSpatial3D},
	}
	cfg.Visualization = &VisualizationSettings{
		Agents: []AgentVisualization{{AgentName: "Boid"}},
	}
	cfg.Layout = map[string]NodePos{"Boid::move": {X: 1, Y: 1}}

	cfg.RenameAgent("Boid", "Bird")

	require.Equal(t, "Bird", cfg.Agents[0].Name)
	require.Equal(t, []string{"Bird::move"}, cfg.Layers[0].FunctionIDs)
	require.Equal(t, "Bird::move", cfg.Connections[0].Src)
	require.Equal(t, "Bird::move", cfg.Connections[0].Dst)
	require.Equal(t, "Bird", cfg.Visualization.Agents[0].AgentName)
	require.Contains(t, cfg.Layout, "Bird::move")
	require.NotContains(t, cfg.Layout, "Boid::move")
}

func TestInputSourceFirstMatchWins(t *testing.T) {
	t.Parallel()

	cfg := New("test")
	cfg.Connections = []Connection{
		{Src: "A::out", Dst: "B::in", Type: MessageSpatial3D},
		{Src: "C::out", Dst: "B::in", Type: MessageBucket},
	}

	src, ok := cfg.InputSource("B::in")
	require.True(t, ok)
	require.Equal(t, "A::out", src)

	_, ok = cfg.InputSource("D::in")
	require.False(t, ok)
}
