// Package modelfile persists simulation projects as JSON documents.
// Saves are atomic and loads normalise older files so the rest of the
// application can assume every field is populated.
package modelfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"abmconf/internal/model"
)

// Ext is the canonical project file extension.
const Ext = ".json"

// Load reads and normalises a project file. Files written before
// versioning was introduced load as version 1. Files from a newer
// release are rejected rather than silently dropped on save.
func Load(path string) (*model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing project file: %w", err)
	}
	if cfg.Version > model.CurrentVersion {
		return nil, fmt.Errorf("project file version %d is newer than supported version %d", cfg.Version, model.CurrentVersion)
	}
	Normalize(&cfg)
	if cfg.Name == "" {
		cfg.Name = nameFromPath(path)
	}
	return &cfg, nil
}

// Save writes the project atomically so a crash mid write never
// truncates an existing file.
func Save(path string, cfg *model.Config) error {
	Normalize(cfg)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project file: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing project file: %w", err)
	}
	return nil
}

// Normalize fills defaults left empty by older files or partial edits.
// It is idempotent, which keeps saved output stable across cycles.
func Normalize(cfg *model.Config) {
	if cfg.Version == 0 {
		cfg.Version = model.CurrentVersion
	}
	if cfg.Agents == nil {
		cfg.Agents = []model.AgentType{}
	}
	if cfg.Globals == nil {
		cfg.Globals = []model.GlobalVariable{}
	}
	if cfg.Layers == nil {
		cfg.Layers = []model.Layer{}
	}
	if cfg.Connections == nil {
		cfg.Connections = []model.Connection{}
	}

	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		if a.Color == "" {
			a.Color = model.DefaultColors[i%len(model.DefaultColors)]
		}
		if a.Variables == nil {
			a.Variables = []model.AgentVariable{}
		}
		if a.Functions == nil {
			a.Functions = []model.AgentFunction{}
		}
		for j := range a.Variables {
			v := &a.Variables[j]
			if v.Type == "" {
				v.Type = model.DefaultVarType
			}
			if v.Logging == "" {
				v.Logging = model.DefaultLogging
			}
			if v.Type == model.TypeUInt8 {
				v.Default = clampUInt8(v.Default)
			}
		}
		for j := range a.Functions {
			f := &a.Functions[j]
			if f.InputType == "" {
				f.InputType = model.MessageNone
			}
			if f.OutputType == "" {
				f.OutputType = model.MessageNone
			}
		}
	}

	for i := range cfg.Globals {
		g := &cfg.Globals[i]
		if g.Type == "" {
			g.Type = model.DefaultVarType
		}
		if g.Type == model.TypeUInt8 {
			g.Value = clampUInt8(g.Value)
		}
	}

	for i := range cfg.Layers {
		if cfg.Layers[i].Name == "" {
			cfg.Layers[i].Name = fmt.Sprintf("Layer %d", i+1)
		}
		if cfg.Layers[i].FunctionIDs == nil {
			cfg.Layers[i].FunctionIDs = []string{}
		}
	}

	for i := range cfg.Connections {
		if cfg.Connections[i].Type == "" {
			cfg.Connections[i].Type = model.MessageNone
		}
	}

	if cfg.Visualization != nil {
		normalizeVisualization(cfg)
	}
}

// normalizeVisualization keeps display presets in step with the agent
// list: agents without a row get one, stale options reset to defaults.
func normalizeVisualization(cfg *model.Config) {
	vis := cfg.Visualization
	if vis.Agents == nil {
		vis.Agents = []model.AgentVisualization{}
	}
	present := make(map[string]bool, len(vis.Agents))
	for _, av := range vis.Agents {
		present[av.AgentName] = true
	}
	for _, a := range cfg.Agents {
		if present[a.Name] {
			continue
		}
		vis.Agents = append(vis.Agents, model.AgentVisualization{
			AgentName: a.Name,
			Include:   true,
			Shape:     model.DefaultShape,
			ColorMode: model.DefaultColorMode,
		})
	}
	for i := range vis.Agents {
		av := &vis.Agents[i]
		if !contains(model.ShapeOptions, av.Shape) {
			av.Shape = model.DefaultShape
		}
		if !contains(model.ColorModeOptions, av.ColorMode) {
			av.ColorMode = model.DefaultColorMode
		}
		// An interpolation preset only applies in interpolated mode.
		if av.ColorMode != model.ColorInterpolated {
			av.Interpolation = nil
		}
	}
}

// clampUInt8 pulls an out of range UInt8 literal back into 0..255.
// Non numeric values pass through for validation to report.
func clampUInt8(raw string) string {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if n < 0 {
		return "0"
	}
	if n > 255 {
		return "255"
	}
	return raw
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
