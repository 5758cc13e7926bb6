package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"abmconf/internal/model"
)

// HeuristicProvider is a lightweight, offline implementation. It mimics
// the interface and behavior (timeouts) so the rest of the app can work
// without an API key, drafting from keyword matching instead.
type HeuristicProvider struct{}

func NewHeuristicProvider() *HeuristicProvider { return &HeuristicProvider{} }

type archetype struct {
	keywords []string
	build    func() DraftAgent
}

var archetypes = []archetype{
	{
		keywords: []string{"boid", "flock", "bird", "fish", "swarm"},
		build: func() DraftAgent {
			a := motionAgent("Boid")
			a.Functions = spatialFunctionPair("Broadcast position and velocity to nearby agents.", "Adjust velocity from neighbour positions.")
			return a
		},
	},
	{
		keywords: []string{"network", "node", "graph", "epidemic", "virus", "infection"},
		build: func() DraftAgent {
			a := motionAgent("Node")
			a.Variables = append(a.Variables,
				DraftVariable{Name: "state", Default: "0", Type: model.TypeInt, Logging: model.LogSum},
				DraftVariable{Name: "linked_nodes", Default: "", Type: model.TypeArrayUInt, Logging: model.LogNone},
			)
			a.Functions = []DraftFunction{
				{Name: "output_state", Description: "Publish state to the linked nodes.", InputType: model.MessageNone, OutputType: model.MessageBucket},
				{Name: "update_state", Description: "Fold incoming neighbour states into this node.", InputType: model.MessageBucket, OutputType: model.MessageNone},
			}
			return a
		},
	},
	{
		keywords: []string{"cell", "grid", "lattice", "automaton"},
		build: func() DraftAgent {
			a := motionAgent("Cell")
			a.Variables = append(a.Variables,
				DraftVariable{Name: "state", Default: "0", Type: model.TypeInt, Logging: model.LogMean},
			)
			a.Functions = []DraftFunction{
				{Name: "output_state", Description: "Publish cell state onto the grid.", InputType: model.MessageNone, OutputType: model.MessageArray3D},
				{Name: "update_state", Description: "Read the neighbourhood and update the cell state.", InputType: model.MessageArray3D, OutputType: model.MessageNone},
			}
			return a
		},
	},
	{
		keywords: []string{"pedestrian", "walker", "crowd", "people"},
		build: func() DraftAgent {
			a := motionAgent("Walker")
			a.Functions = spatialFunctionPair("Broadcast position to nearby walkers.", "Steer away from crowded positions.")
			return a
		},
	},
}

func motionAgent(name string) DraftAgent {
	agent := DraftAgent{Name: name}
	for _, varName := range model.DefaultAgentVariables {
		agent.Variables = append(agent.Variables, DraftVariable{
			Name: varName, Default: "0.0", Type: model.TypeFloat, Logging: model.LogNone,
		})
	}
	return agent
}

func spatialFunctionPair(outDesc, inDesc string) []DraftFunction {
	return []DraftFunction{
		{Name: "output_location", Description: outDesc, InputType: model.MessageNone, OutputType: model.MessageSpatial3D},
		{Name: "move", Description: inDesc, InputType: model.MessageSpatial3D, OutputType: model.MessageNone},
	}
}

var countRe = regexp.MustCompile(`(\d+)\s*(agents|boids|nodes|cells|walkers|individuals)`)

// DraftModel assembles a starting model from keyword archetypes.
// Timeout: 8s for interface parity with remote providers.
func (h *HeuristicProvider) DraftModel(ctx context.Context, req DraftRequest) (DraftResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return DraftResponse{}, err
	}

	desc := strings.ToLower(req.Description)
	maxAgents := req.MaxAgents
	if maxAgents <= 0 {
		maxAgents = 3
	}

	var agents []DraftAgent
	for _, at := range archetypes {
		if len(agents) >= maxAgents {
			break
		}
		for _, kw := range at.keywords {
			if strings.Contains(desc, kw) {
				agents = append(agents, at.build())
				break
			}
		}
	}
	if len(agents) == 0 {
		a := motionAgent("Particle")
		a.Functions = spatialFunctionPair("Broadcast position to nearby particles.", "Move using neighbour positions.")
		agents = append(agents, a)
	}

	resp := DraftResponse{
		ModelName: slugify(req.Description),
		Agents:    agents,
		Globals: []DraftGlobal{
			{Name: "AGENT_COUNT", Value: agentCount(desc), Type: model.TypeInt},
			{Name: "INTERACTION_RADIUS", Value: "1.0", Type: model.TypeFloat},
		},
	}

	for _, agent := range agents {
		for _, fn := range agent.Functions {
			id := model.FunctionID(agent.Name, fn.Name)
			layerName := "Update"
			if fn.OutputType != model.MessageNone {
				layerName = "Output"
			}
			resp.Layers = upsertLayer(resp.Layers, layerName, id)
		}
		if len(agent.Functions) == 2 && agent.Functions[0].OutputType != model.MessageNone {
			resp.Connections = append(resp.Connections, DraftConnection{
				Src:  model.FunctionID(agent.Name, agent.Functions[0].Name),
				Dst:  model.FunctionID(agent.Name, agent.Functions[1].Name),
				Type: agent.Functions[0].OutputType,
			})
		}
	}
	// Output layers run before update layers.
	resp.Layers = orderLayers(resp.Layers)

	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	resp.Summary = fmt.Sprintf("Offline draft with %s from keyword matching.", pluralizeAgents(names))
	return resp, nil
}

// SuggestWiring proposes a source for every unwired input, preferring
// a function of the same agent.
func (h *HeuristicProvider) SuggestWiring(ctx context.Context, req WiringRequest) (WiringResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return WiringResponse{}, err
	}

	covered := make(map[string]bool)
	for _, conn := range req.Connections {
		covered[conn.Dst+"\x00"+conn.Type] = true
	}

	var resp WiringResponse
	var notes []string
	for _, fn := range req.Functions {
		if fn.InputType == "" || fn.InputType == model.MessageNone {
			continue
		}
		if covered[fn.ID+"\x00"+fn.InputType] {
			continue
		}
		src := pickSource(fn, req.Functions)
		if src == "" {
			notes = append(notes, fmt.Sprintf("no source emits %s for %s", fn.InputType, fn.ID))
			continue
		}
		resp.Connections = append(resp.Connections, DraftConnection{Src: src, Dst: fn.ID, Type: fn.InputType})
		notes = append(notes, fmt.Sprintf("%s feeds %s (%s)", src, fn.ID, fn.InputType))
	}
	resp.Reasoning = strings.Join(notes, "; ")
	return resp, nil
}

// DescribeFunction composes a description from the message signature.
func (h *HeuristicProvider) DescribeFunction(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	in := req.InputType != "" && req.InputType != model.MessageNone
	out := req.OutputType != "" && req.OutputType != model.MessageNone

	var desc string
	switch {
	case in && out:
		desc = fmt.Sprintf("Reads incoming %s and publishes the result as %s.",
			humanMessage(req.InputType), humanMessage(req.OutputType))
	case out:
		desc = fmt.Sprintf("Publishes the agent's state as %s for other agents.", humanMessage(req.OutputType))
	case in:
		desc = fmt.Sprintf("Iterates incoming %s and updates the agent's state.", humanMessage(req.InputType))
	default:
		desc = "Updates internal agent state each step."
	}
	return DescribeResponse{Description: desc}, nil
}

func pickSource(target FunctionSignature, all []FunctionSignature) string {
	targetAgent, _, _ := strings.Cut(target.ID, "::")
	fallback := ""
	for _, fn := range all {
		if fn.ID == target.ID || fn.OutputType != target.InputType {
			continue
		}
		srcAgent, _, _ := strings.Cut(fn.ID, "::")
		if srcAgent == targetAgent {
			return fn.ID
		}
		if fallback == "" {
			fallback = fn.ID
		}
	}
	return fallback
}

func humanMessage(messageType string) string {
	switch messageType {
	case model.MessageSpatial3D:
		return "spatial location messages"
	case model.MessageArray3D:
		return "grid messages"
	case model.MessageBucket:
		return "bucket messages"
	}
	return "messages"
}

func upsertLayer(layers []DraftLayer, name, funcID string) []DraftLayer {
	for i := range layers {
		if layers[i].Name == name {
			layers[i].FunctionIDs = append(layers[i].FunctionIDs, funcID)
			return layers
		}
	}
	return append(layers, DraftLayer{Name: name, FunctionIDs: []string{funcID}})
}

func orderLayers(layers []DraftLayer) []DraftLayer {
	var ordered []DraftLayer
	for _, name := range []string{"Output", "Update"} {
		for _, layer := range layers {
			if layer.Name == name {
				ordered = append(ordered, layer)
			}
		}
	}
	for _, layer := range layers {
		if layer.Name != "Output" && layer.Name != "Update" {
			ordered = append(ordered, layer)
		}
	}
	return ordered
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

var slugStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "with": true,
	"for": true, "and": true, "model": true, "simulation": true, "simulate": true,
}

func slugify(description string) string {
	words := strings.Fields(strings.ToLower(description))
	var kept []string
	for _, w := range words {
		w = slugRe.ReplaceAllString(w, "")
		if w == "" || slugStopwords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return "new_model"
	}
	return strings.Join(kept, "_")
}

func agentCount(desc string) string {
	if m := countRe.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	return "1024"
}

func pluralizeAgents(names []string) string {
	switch len(names) {
	case 1:
		return "one agent type (" + names[0] + ")"
	default:
		return fmt.Sprintf("%d agent types (%s)", len(names), strings.Join(names, ", "))
	}
}
