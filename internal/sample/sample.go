// Package sample builds the bundled Boids project used by the
// catalog's "new from sample" action and the -sample flag.
package sample

import (
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
)

// Project returns the classic flocking model, fully wired and ready to
// export.
func Project() *model.Config {
	cfg := model.New("boids")
	cfg.Description = "Classic flocking: boids broadcast their position and steer to separate, align and cohere with neighbours."

	boid := model.NewAgentType("Boid", 0)
	for i := range boid.Variables {
		// Velocity components feed the step log as flock averages.
		if boid.Variables[i].Name[0] == 'v' {
			boid.Variables[i].Logging = model.LogMean
		}
	}
	boid.Functions = []model.AgentFunction{
		{
			Name:        "output_location",
			Description: "Broadcast position and velocity to boids within the search radius.",
			InputType:   model.MessageNone,
			OutputType:  model.MessageSpatial3D,
		},
		{
			Name:        "steer",
			Description: "Combine separation, alignment and cohesion over neighbour messages into a new velocity.",
			InputType:   model.MessageSpatial3D,
			OutputType:  model.MessageNone,
		},
	}
	cfg.Agents = []model.AgentType{boid}

	cfg.Globals = []model.GlobalVariable{
		{Name: "POPULATION_SIZE", Value: "1024", Type: model.TypeInt},
		{Name: "TIME_SCALE", Value: "0.0005", Type: model.TypeFloat},
		{Name: "STEER_SCALE", Value: "0.055", Type: model.TypeFloat},
		{Name: "COLLISION_SCALE", Value: "10.0", Type: model.TypeFloat},
		{Name: "MATCH_SCALE", Value: "0.015", Type: model.TypeFloat},
		{Name: "SEPARATION_RADIUS", Value: "0.5", Type: model.TypeFloat},
	}

	cfg.Layers = []model.Layer{
		{Name: "Broadcast", FunctionIDs: []string{"Boid::output_location"}},
		{Name: "Steer", FunctionIDs: []string{"Boid::steer"}},
	}
	cfg.Connections = []model.Connection{
		{Src: "Boid::output_location", Dst: "Boid::steer", Type: model.MessageSpatial3D},
	}

	cfg.Visualization = &model.VisualizationSettings{
		Activated:            true,
		DomainWidth:          "2.0",
		ShowDomainBoundaries: true,
		Agents: []model.AgentVisualization{
			{
				AgentName: "Boid",
				Include:   true,
				Shape:     model.ShapeStuntplane,
				ColorMode: model.ColorStatic,
			},
		},
	}

	modelfile.Normalize(cfg)
	return cfg
}

// Write saves the sample model to path.
func Write(path string) error {
	return modelfile.Save(path, Project())
}
