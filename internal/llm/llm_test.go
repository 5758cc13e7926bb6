package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"abmconf/internal/model"
)

func TestHeuristicDraftBoids(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	resp, err := h.DraftModel(context.Background(), DraftRequest{
		Description: "A flocking simulation of 500 boids with separation",
	})
	require.NoError(t, err)

	require.Equal(t, "flocking_500_boids", resp.ModelName)
	require.Len(t, resp.Agents, 1)
	require.Equal(t, "Boid", resp.Agents[0].Name)
	require.Len(t, resp.Agents[0].Variables, len(model.DefaultAgentVariables))
	require.Len(t, resp.Agents[0].Functions, 2)
	require.Equal(t, model.MessageSpatial3D, resp.Agents[0].Functions[0].OutputType)

	require.Len(t, resp.Globals, 2)
	require.Equal(t, "AGENT_COUNT", resp.Globals[0].Name)
	require.Equal(t, "500", resp.Globals[0].Value)

	require.Len(t, resp.Layers, 2)
	require.Equal(t, "Output", resp.Layers[0].Name)
	require.Equal(t, []string{"Boid::output_location"}, resp.Layers[0].FunctionIDs)
	require.Equal(t, "Update", resp.Layers[1].Name)

	require.Len(t, resp.Connections, 1)
	require.Equal(t, "Boid::output_location", resp.Connections[0].Src)
	require.Equal(t, "Boid::move", resp.Connections[0].Dst)
	require.Equal(t, model.MessageSpatial3D, resp.Connections[0].Type)

	require.Contains(t, resp.Summary, "one agent type (Boid)")
}

func TestHeuristicDraftFallsBackToParticle(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	resp, err := h.DraftModel(context.Background(), DraftRequest{Description: "something abstract"})
	require.NoError(t, err)

	require.Equal(t, "something_abstract", resp.ModelName)
	require.Len(t, resp.Agents, 1)
	require.Equal(t, "Particle", resp.Agents[0].Name)
	require.Equal(t, "1024", resp.Globals[0].Value)
}

func TestHeuristicDraftIsDeterministic(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	req := DraftRequest{Description: "virus spread across a contact network"}
	first, err := h.DraftModel(context.Background(), req)
	require.NoError(t, err)
	second, err := h.DraftModel(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, "Node", first.Agents[0].Name)
	require.Equal(t, model.MessageBucket, first.Connections[0].Type)
}

func TestHeuristicDraftRespectsMaxAgents(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	resp, err := h.DraftModel(context.Background(), DraftRequest{
		Description: "birds chasing a virus across nodes on a grid",
		MaxAgents:   2,
	})
	require.NoError(t, err)

	require.Len(t, resp.Agents, 2)
	require.Equal(t, "Boid", resp.Agents[0].Name)
	require.Equal(t, "Node", resp.Agents[1].Name)
}

func TestHeuristicSuggestWiring(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	req := WiringRequest{
		Functions: []FunctionSignature{
			{ID: "Boid::output_location", OutputType: model.MessageSpatial3D},
			{ID: "Boid::steer", InputType: model.MessageSpatial3D},
			{ID: "Node::update_state", InputType: model.MessageBucket},
		},
	}
	resp, err := h.SuggestWiring(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Connections, 1)
	require.Equal(t, "Boid::output_location", resp.Connections[0].Src)
	require.Equal(t, "Boid::steer", resp.Connections[0].Dst)
	require.Contains(t, resp.Reasoning, "no source emits MessageBucket for Node::update_state")
}

func TestHeuristicSuggestWiringSkipsCoveredInputs(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	req := WiringRequest{
		Functions: []FunctionSignature{
			{ID: "Boid::output_location", OutputType: model.MessageSpatial3D},
			{ID: "Boid::steer", InputType: model.MessageSpatial3D},
		},
		Connections: []DraftConnection{
			{Src: "Boid::output_location", Dst: "Boid::steer", Type: model.MessageSpatial3D},
		},
	}
	resp, err := h.SuggestWiring(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, resp.Connections)
}

func TestHeuristicSuggestWiringPrefersSameAgent(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	req := WiringRequest{
		Functions: []FunctionSignature{
			{ID: "Prey::output_location", OutputType: model.MessageSpatial3D},
			{ID: "Predator::output_location", OutputType: model.MessageSpatial3D},
			{ID: "Predator::hunt", InputType: model.MessageSpatial3D},
		},
	}
	resp, err := h.SuggestWiring(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Connections, 1)
	require.Equal(t, "Predator::output_location", resp.Connections[0].Src)
}

func TestHeuristicDescribeFunction(t *testing.T) {
	t.Parallel()

	h := NewHeuristicProvider()
	cases := []struct {
		name    string
		in, out string
		want    string
	}{
		{"output only", model.MessageNone, model.MessageSpatial3D, "Publishes the agent's state as spatial location messages for other agents."},
		{"input only", model.MessageBucket, model.MessageNone, "Iterates incoming bucket messages and updates the agent's state."},
		{"both", model.MessageArray3D, model.MessageArray3D, "Reads incoming grid messages and publishes the result as grid messages."},
		{"neither", model.MessageNone, "", "Updates internal agent state each step."},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp, err := h.DescribeFunction(context.Background(), DescribeRequest{
				FunctionID: "Agent::fn", InputType: tc.in, OutputType: tc.out,
			})
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.Description)
		})
	}
}

func TestOpenAIProviderRequiresAPIKey(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("", "")
	_, err := p.DraftModel(context.Background(), DraftRequest{Description: "boids"})
	require.ErrorIs(t, err, ErrNoAPIKey)

	_, err = p.SuggestWiring(context.Background(), WiringRequest{})
	require.ErrorIs(t, err, ErrNoAPIKey)

	_, err = p.DescribeFunction(context.Background(), DescribeRequest{})
	require.ErrorIs(t, err, ErrNoAPIKey)
}
