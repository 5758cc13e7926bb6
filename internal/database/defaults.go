package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"abmconf/internal/database/repository"
	"abmconf/internal/model"
)

// SeedDefaults ensures the builtin agent presets exist for new
// databases. It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	presetRepo := repository.NewPresetRepo(db)
	existing, err := presetRepo.List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	for _, agent := range builtinPresets() {
		definition, err := json.Marshal(agent)
		if err != nil {
			return err
		}
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("preset:"+agent.Name)).String()
		preset := repository.AgentPreset{ID: id, Name: agent.Name, Definition: string(definition), Builtin: true}
		if err := presetRepo.Upsert(ctx, preset); err != nil {
			return err
		}
	}
	return nil
}

// builtinPresets returns the agent definitions seeded into fresh
// catalogs. Each comes with the variables and message wiring a common
// modelling pattern starts from.
func builtinPresets() []model.AgentType {
	particle := model.NewAgentType("Particle", 0)

	boid := model.NewAgentType("Boid", 1)
	boid.Functions = []model.AgentFunction{
		{
			Name:        "output_location",
			Description: "Broadcast position and velocity to nearby agents.",
			InputType:   model.MessageNone,
			OutputType:  model.MessageSpatial3D,
		},
		{
			Name:        "steer",
			Description: "Adjust velocity from neighbour positions.",
			InputType:   model.MessageSpatial3D,
			OutputType:  model.MessageNone,
		},
	}

	node := model.NewAgentType("NetworkNode", 2)
	node.Variables = append(node.Variables, model.AgentVariable{
		Name:    "linked_nodes",
		Default: "",
		Type:    model.TypeArrayUInt,
		Logging: model.LogNone,
	})
	node.Functions = []model.AgentFunction{
		{
			Name:        "output_state",
			Description: "Publish state to the linked nodes.",
			InputType:   model.MessageNone,
			OutputType:  model.MessageBucket,
		},
		{
			Name:        "update_state",
			Description: "Fold incoming neighbour states into this node.",
			InputType:   model.MessageBucket,
			OutputType:  model.MessageNone,
		},
	}

	return []model.AgentType{particle, boid, node}
}
