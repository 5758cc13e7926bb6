package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"abmconf/internal/llm"
	"abmconf/internal/model"
)

func TestAssistDraftNewModel(t *testing.T) {
	t.Parallel()

	svc := &AssistService{Provider: llm.NewHeuristicProvider()}
	draft, err := svc.Draft(context.Background(), "A flocking simulation of 500 boids", 3)
	require.NoError(t, err)

	cfg, res := svc.NewModelFromDraft(draft)
	require.Equal(t, "flocking_500_boids", cfg.Name)
	require.Equal(t, draft.Summary, cfg.Description)
	require.Empty(t, res.Skipped)
	require.Equal(t, 1, res.AgentsAdded)
	require.Equal(t, 2, res.GlobalsAdded)
	require.Equal(t, 2, res.LayersAdded)
	require.Equal(t, 1, res.ConnectionsAdded)

	require.Len(t, cfg.Agents, 1)
	require.Equal(t, "Boid", cfg.Agents[0].Name)
	require.Len(t, cfg.Agents[0].Variables, len(model.DefaultAgentVariables))
	require.Equal(t, "500", cfg.Globals[0].Value)
}

func TestAssistDraftRejectsEmptyDescription(t *testing.T) {
	t.Parallel()

	svc := &AssistService{Provider: llm.NewHeuristicProvider()}
	_, err := svc.Draft(context.Background(), "   ", 0)
	require.ErrorContains(t, err, "description")
}

func TestAssistMergeDraftSkipsCollisions(t *testing.T) {
	t.Parallel()

	cfg := flockProject()
	svc := &AssistService{Provider: llm.NewHeuristicProvider()}
	draft := llm.DraftResponse{
		Agents: []llm.DraftAgent{
			{Name: "Boid"},
			{Name: "Predator", Functions: []llm.DraftFunction{
				{Name: "hunt", InputType: model.MessageSpatial3D, OutputType: model.MessageNone},
			}},
		},
		Globals: []llm.DraftGlobal{
			{Name: "SEPARATION", Value: "9.9", Type: model.TypeFloat},
			{Name: "SPEED", Value: "1.5", Type: "Bogus"},
		},
		Layers: []llm.DraftLayer{
			{Name: "Broadcast", FunctionIDs: []string{"Predator::hunt", "Ghost::walk"}},
			{Name: "Hunt", FunctionIDs: []string{"Predator::hunt"}},
		},
		Connections: []llm.DraftConnection{
			{Src: "Boid::output_location", Dst: "Predator::hunt", Type: "weird"},
			{Src: "Ghost::x", Dst: "Predator::hunt"},
		},
	}

	res := svc.MergeDraft(cfg, draft)
	require.Equal(t, 1, res.AgentsAdded)
	require.Equal(t, 1, res.GlobalsAdded)
	require.Equal(t, 1, res.LayersAdded)
	require.Equal(t, 1, res.ConnectionsAdded)
	require.Equal(t, []string{
		"agent Boid already exists",
		"global SEPARATION already exists",
		"layer Broadcast references unknown function Ghost::walk",
		"connection Ghost::x -> Predator::hunt references unknown functions",
	}, res.Skipped)

	predator := cfg.Agent("Predator")
	require.NotNil(t, predator)
	require.Equal(t, model.DefaultColors[1], predator.Color)
	// Drafts without variables keep the seeded motion state.
	require.Len(t, predator.Variables, len(model.DefaultAgentVariables))

	require.Equal(t, "0.5", cfg.Global("SEPARATION").Value)
	speed := cfg.Global("SPEED")
	require.NotNil(t, speed)
	require.Equal(t, model.DefaultVarType, speed.Type)

	require.Equal(t, []string{"Boid::output_location", "Predator::hunt"}, cfg.Layers[0].FunctionIDs)
	require.Equal(t, "Hunt", cfg.Layers[2].Name)

	require.Len(t, cfg.Connections, 2)
	// The bogus message type falls back to what the input consumes.
	require.Equal(t, model.MessageSpatial3D, cfg.Connections[1].Type)
}

func TestAssistSuggestAndApplyWiring(t *testing.T) {
	t.Parallel()

	cfg := flockProject()
	cfg.Connections = nil
	svc := &AssistService{Provider: llm.NewHeuristicProvider()}

	resp, err := svc.SuggestWiring(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, resp.Connections, 1)
	require.Equal(t, "Boid::output_location", resp.Connections[0].Src)
	require.Equal(t, "Boid::steer", resp.Connections[0].Dst)
	require.NotEmpty(t, resp.Reasoning)

	require.Equal(t, 1, svc.ApplyWiring(cfg, resp.Connections))
	require.Len(t, cfg.Connections, 1)

	resp, err = svc.SuggestWiring(context.Background(), cfg)
	require.NoError(t, err)
	require.Empty(t, resp.Connections)
}

func TestAssistDescribeFunction(t *testing.T) {
	t.Parallel()

	cfg := flockProject()
	svc := &AssistService{Provider: llm.NewHeuristicProvider()}

	desc, err := svc.DescribeFunction(context.Background(), cfg, "Boid::steer")
	require.NoError(t, err)
	require.Equal(t, "Iterates incoming spatial location messages and updates the agent's state.", desc)

	_, err = svc.DescribeFunction(context.Background(), cfg, "Ghost::walk")
	require.ErrorContains(t, err, "unknown function")
}

func TestAssistAnnotateFunctions(t *testing.T) {
	t.Parallel()

	cfg := flockProject()
	svc := &AssistService{Provider: llm.NewHeuristicProvider()}

	require.Equal(t, 2, svc.AnnotateFunctions(context.Background(), cfg))
	require.Equal(t,
		"Publishes the agent's state as spatial location messages for other agents.",
		cfg.Agents[0].Functions[0].Description)
	require.Equal(t,
		"Iterates incoming spatial location messages and updates the agent's state.",
		cfg.Agents[0].Functions[1].Description)

	// Second pass finds nothing left to write.
	require.Equal(t, 0, svc.AnnotateFunctions(context.Background(), cfg))
}
