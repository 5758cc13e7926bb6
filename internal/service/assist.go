package service

import (
	"context"
	"fmt"
	"strings"

	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
)

// AssistService turns provider proposals into model edits. Nothing is
// merged until the caller passes a draft back through one of the apply
// methods, so the editor can show a proposal first.
type AssistService struct {
	Provider llm.LLMProvider
}

// DraftApplyResult reports what a merged draft changed. Skipped holds
// human readable notes for parts that were dropped.
type DraftApplyResult struct {
	AgentsAdded      int
	GlobalsAdded     int
	LayersAdded      int
	ConnectionsAdded int
	Skipped          []string
}

func (s *AssistService) Draft(ctx context.Context, description string, maxAgents int) (llm.DraftResponse, error) {
	if strings.TrimSpace(description) == "" {
		return llm.DraftResponse{}, fmt.Errorf("drafting needs a description")
	}
	resp, err := s.Provider.DraftModel(ctx, llm.DraftRequest{
		Description: description,
		MaxAgents:   maxAgents,
	})
	if err != nil {
		return llm.DraftResponse{}, fmt.Errorf("drafting model: %w", err)
	}
	return resp, nil
}

// NewModelFromDraft builds a fresh configuration from an accepted
// draft.
func (s *AssistService) NewModelFromDraft(draft llm.DraftResponse) (*model.Config, DraftApplyResult) {
	name := strings.TrimSpace(draft.ModelName)
	if name == "" {
		name = "new_model"
	}
	cfg := model.New(name)
	cfg.Description = strings.TrimSpace(draft.Summary)
	res := s.MergeDraft(cfg, draft)
	return cfg, res
}

// MergeDraft folds an accepted draft into an open configuration.
// Existing agents and globals win on name collisions, layers merge by
// name, and anything referencing an unknown function is dropped with a
// note.
func (s *AssistService) MergeDraft(cfg *model.Config, draft llm.DraftResponse) DraftApplyResult {
	var res DraftApplyResult

	for _, da := range draft.Agents {
		name := strings.TrimSpace(da.Name)
		if !isIdentifier(name) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("agent %q is not a valid name", da.Name))
			continue
		}
		if cfg.Agent(name) != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("agent %s already exists", name))
			continue
		}
		agent := model.NewAgentType(name, len(cfg.Agents))
		if len(da.Variables) > 0 {
			agent.Variables = nil
			for _, v := range da.Variables {
				if !isIdentifier(v.Name) {
					res.Skipped = append(res.Skipped, fmt.Sprintf("variable %s.%s is not a valid name", name, v.Name))
					continue
				}
				agent.Variables = append(agent.Variables, model.AgentVariable{
					Name:    v.Name,
					Default: v.Default,
					Type:    pickOption(v.Type, model.VarTypeOptions, model.DefaultVarType),
					Logging: pickOption(v.Logging, model.LoggingOptions, model.DefaultLogging),
				})
			}
		}
		for _, f := range da.Functions {
			if !isIdentifier(f.Name) {
				res.Skipped = append(res.Skipped, fmt.Sprintf("function %s.%s is not a valid name", name, f.Name))
				continue
			}
			agent.Functions = append(agent.Functions, model.AgentFunction{
				Name:        f.Name,
				Description: strings.TrimSpace(f.Description),
				InputType:   pickOption(f.InputType, model.MessageTypeOptions, model.MessageNone),
				OutputType:  pickOption(f.OutputType, model.MessageTypeOptions, model.MessageNone),
			})
		}
		cfg.Agents = append(cfg.Agents, agent)
		res.AgentsAdded++
	}

	for _, dg := range draft.Globals {
		name := strings.TrimSpace(dg.Name)
		if !isIdentifier(name) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("global %q is not a valid name", dg.Name))
			continue
		}
		if cfg.Global(name) != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("global %s already exists", name))
			continue
		}
		cfg.Globals = append(cfg.Globals, model.GlobalVariable{
			Name:    name,
			Value:   dg.Value,
			Type:    pickOption(dg.Type, model.GlobalTypeOptions, model.DefaultVarType),
			IsMacro: dg.IsMacro,
		})
		res.GlobalsAdded++
	}

	for _, dl := range draft.Layers {
		var ids []string
		for _, id := range dl.FunctionIDs {
			if _, _, ok := cfg.Function(id); !ok {
				res.Skipped = append(res.Skipped, fmt.Sprintf("layer %s references unknown function %s", dl.Name, id))
				continue
			}
			ids = append(ids, id)
		}
		if existing := findLayer(cfg, dl.Name); existing != nil {
			for _, id := range ids {
				if !containsString(existing.FunctionIDs, id) {
					existing.FunctionIDs = append(existing.FunctionIDs, id)
				}
			}
			continue
		}
		cfg.Layers = append(cfg.Layers, model.Layer{Name: dl.Name, FunctionIDs: ids})
		res.LayersAdded++
	}

	res.ConnectionsAdded = s.applyConnections(cfg, draft.Connections, &res.Skipped)
	modelfile.Normalize(cfg)
	return res
}

// SuggestWiring asks the provider for connections covering message
// inputs nothing feeds yet. Proposals for inputs that are already
// covered, or that reference unknown functions, are filtered out
// before the caller sees them.
func (s *AssistService) SuggestWiring(ctx context.Context, cfg *model.Config) (llm.WiringResponse, error) {
	req := llm.WiringRequest{}
	for _, id := range cfg.FunctionIDs() {
		_, fn, ok := cfg.Function(id)
		if !ok {
			continue
		}
		req.Functions = append(req.Functions, llm.FunctionSignature{
			ID:         id,
			InputType:  fn.InputType,
			OutputType: fn.OutputType,
		})
	}
	for _, conn := range cfg.Connections {
		req.Connections = append(req.Connections, llm.DraftConnection{
			Src: conn.Src, Dst: conn.Dst, Type: conn.Type,
		})
	}

	resp, err := s.Provider.SuggestWiring(ctx, req)
	if err != nil {
		return llm.WiringResponse{}, fmt.Errorf("suggesting wiring: %w", err)
	}

	var kept []llm.DraftConnection
	for _, conn := range resp.Connections {
		if !connectionFits(cfg, conn) || hasConnection(cfg, conn) {
			continue
		}
		kept = append(kept, conn)
	}
	resp.Connections = kept
	return resp, nil
}

// ApplyWiring appends accepted proposals and returns how many landed.
func (s *AssistService) ApplyWiring(cfg *model.Config, conns []llm.DraftConnection) int {
	var skipped []string
	added := s.applyConnections(cfg, conns, &skipped)
	modelfile.Normalize(cfg)
	return added
}

func (s *AssistService) applyConnections(cfg *model.Config, conns []llm.DraftConnection, skipped *[]string) int {
	added := 0
	for _, conn := range conns {
		if !connectionFits(cfg, conn) {
			*skipped = append(*skipped, fmt.Sprintf("connection %s -> %s references unknown functions", conn.Src, conn.Dst))
			continue
		}
		if hasConnection(cfg, conn) {
			continue
		}
		connType := conn.Type
		if !containsString(model.MessageTypeOptions, connType) || connType == model.MessageNone {
			_, dst, _ := cfg.Function(conn.Dst)
			connType = dst.InputType
		}
		cfg.Connections = append(cfg.Connections, model.Connection{
			Src: conn.Src, Dst: conn.Dst, Type: connType,
		})
		added++
	}
	return added
}

// DescribeFunction asks the provider for a one or two sentence
// description of a function.
func (s *AssistService) DescribeFunction(ctx context.Context, cfg *model.Config, functionID string) (string, error) {
	_, fn, ok := cfg.Function(functionID)
	if !ok {
		return "", fmt.Errorf("unknown function %q", functionID)
	}
	resp, err := s.Provider.DescribeFunction(ctx, llm.DescribeRequest{
		FunctionID:   functionID,
		InputType:    fn.InputType,
		OutputType:   fn.OutputType,
		ModelSummary: cfg.Description,
	})
	if err != nil {
		return "", fmt.Errorf("describing %s: %w", functionID, err)
	}
	return strings.TrimSpace(resp.Description), nil
}

// AnnotateFunctions fills in empty function descriptions and returns
// how many it wrote. Provider failures skip the function so a partial
// pass still lands.
func (s *AssistService) AnnotateFunctions(ctx context.Context, cfg *model.Config) int {
	annotated := 0
	for ai := range cfg.Agents {
		agent := &cfg.Agents[ai]
		for fi := range agent.Functions {
			fn := &agent.Functions[fi]
			if fn.Description != "" {
				continue
			}
			desc, err := s.DescribeFunction(ctx, cfg, model.FunctionID(agent.Name, fn.Name))
			if err != nil || desc == "" {
				continue // degrade gracefully
			}
			fn.Description = desc
			annotated++
		}
	}
	return annotated
}

func pickOption(value string, options []string, fallback string) string {
	value = strings.TrimSpace(value)
	if containsString(options, value) {
		return value
	}
	return fallback
}

func findLayer(cfg *model.Config, name string) *model.Layer {
	for i := range cfg.Layers {
		if cfg.Layers[i].Name == name {
			return &cfg.Layers[i]
		}
	}
	return nil
}

func connectionFits(cfg *model.Config, conn llm.DraftConnection) bool {
	if _, _, ok := cfg.Function(conn.Src); !ok {
		return false
	}
	_, dst, ok := cfg.Function(conn.Dst)
	if !ok {
		return false
	}
	return dst.InputType != model.MessageNone
}

func hasConnection(cfg *model.Config, conn llm.DraftConnection) bool {
	for _, existing := range cfg.Connections {
		if existing.Dst == conn.Dst && existing.Type == conn.Type {
			return true
		}
	}
	return false
}
