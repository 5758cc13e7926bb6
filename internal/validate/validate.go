// Package validate checks a simulation configuration for problems that
// would surface later as broken generated code or a pyflamegpu runtime
// error. Checks are advisory, the editor and the exporter both keep
// working on an invalid configuration.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"abmconf/internal/model"
)

// Issue represents a single finding with optional location metadata.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Path, i.Field, i.Message)
}

// Result captures the outcome of a configuration check.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Names that the generated driver script declares itself. A global with
// one of these names would shadow the scaffold constant.
var reservedNames = map[string]bool{
	"ENSEMBLE":                  true,
	"VISUALISATION":             true,
	"DEBUG_PRINTING":            true,
	"LOGGING":                   true,
	"STEP_COUNT":                true,
	"RANDOM_SEED":               true,
	"MIN_EXPECTED_BOUNDARY_POS": true,
	"MAX_EXPECTED_BOUNDARY_POS": true,
	"BOUNDARY_COORDS":           true,
	"INIT_CAM":                  true,
}

// Check runs every configuration check and returns the collected
// findings. Valid is true when no issue was found.
func Check(cfg *model.Config) Result {
	var issues []Issue
	issues = append(issues, checkAgents(cfg)...)
	issues = append(issues, checkGlobals(cfg)...)
	issues = append(issues, checkLayers(cfg)...)
	issues = append(issues, checkConnections(cfg)...)
	issues = append(issues, checkVisualization(cfg)...)
	return Result{Valid: len(issues) == 0, Issues: issues}
}

func checkAgents(cfg *model.Config) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for ai, agent := range cfg.Agents {
		path := fmt.Sprintf("agents[%d]", ai)
		if agent.Name == "" {
			issues = append(issues, Issue{Path: path, Field: "name", Message: "agent name is empty"})
		} else if !identifierRe.MatchString(agent.Name) {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("agent name %q is not a valid identifier", agent.Name)})
		}
		if seen[agent.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("duplicate agent name %q", agent.Name)})
		}
		seen[agent.Name] = true

		issues = append(issues, checkVariables(path, agent)...)
		issues = append(issues, checkFunctions(path, agent)...)
	}
	return issues
}

func checkVariables(agentPath string, agent model.AgentType) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for vi, v := range agent.Variables {
		path := fmt.Sprintf("%s.variables[%d]", agentPath, vi)
		if v.Name == "" {
			issues = append(issues, Issue{Path: path, Field: "name", Message: "variable name is empty"})
		} else if !identifierRe.MatchString(v.Name) {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("variable name %q is not a valid identifier", v.Name)})
		}
		if seen[v.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("duplicate variable name %q in agent %q", v.Name, agent.Name)})
		}
		seen[v.Name] = true

		if v.Type != "" && !contains(model.VarTypeOptions, v.Type) {
			issues = append(issues, Issue{Path: path, Field: "var_type",
				Message: fmt.Sprintf("unknown variable type %q", v.Type)})
		}
		if v.Logging != "" && !contains(model.LoggingOptions, v.Logging) {
			issues = append(issues, Issue{Path: path, Field: "logging",
				Message: fmt.Sprintf("unknown logging mode %q", v.Logging)})
		}
		issues = append(issues, checkLiteral(path, "default", v.Type, v.Default)...)
	}
	return issues
}

func checkFunctions(agentPath string, agent model.AgentType) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for fi, fn := range agent.Functions {
		path := fmt.Sprintf("%s.functions[%d]", agentPath, fi)
		if fn.Name == "" {
			issues = append(issues, Issue{Path: path, Field: "name", Message: "function name is empty"})
		} else if !identifierRe.MatchString(fn.Name) {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("function name %q is not a valid identifier", fn.Name)})
		}
		if seen[fn.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("duplicate function name %q in agent %q", fn.Name, agent.Name)})
		}
		seen[fn.Name] = true

		if fn.InputType != "" && !contains(model.MessageTypeOptions, fn.InputType) {
			issues = append(issues, Issue{Path: path, Field: "input_type",
				Message: fmt.Sprintf("unknown message type %q", fn.InputType)})
		}
		if fn.OutputType != "" && !contains(model.MessageTypeOptions, fn.OutputType) {
			issues = append(issues, Issue{Path: path, Field: "output_type",
				Message: fmt.Sprintf("unknown message type %q", fn.OutputType)})
		}
	}
	return issues
}

func checkGlobals(cfg *model.Config) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for gi, g := range cfg.Globals {
		path := fmt.Sprintf("globals[%d]", gi)
		if g.Name == "" {
			issues = append(issues, Issue{Path: path, Field: "name", Message: "global name is empty"})
		} else if !identifierRe.MatchString(g.Name) {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("global name %q is not a valid identifier", g.Name)})
		}
		if seen[g.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("duplicate global name %q", g.Name)})
		}
		seen[g.Name] = true

		if reservedNames[g.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("global name %q collides with a constant declared by the generated script", g.Name)})
		}
		if g.Type != "" && !contains(model.GlobalTypeOptions, g.Type) {
			issues = append(issues, Issue{Path: path, Field: "var_type",
				Message: fmt.Sprintf("unknown global type %q", g.Type)})
		}
		if g.Type == model.TypeShape && !g.IsMacro {
			issues = append(issues, Issue{Path: path, Field: "var_type",
				Message: "Shape globals are only supported as macro properties"})
		}
		if g.Type == model.TypeShape && g.IsMacro {
			issues = append(issues, checkShape(path, g.Value)...)
		}
		issues = append(issues, checkLiteral(path, "value", g.Type, g.Value)...)
	}
	return issues
}

func checkLayers(cfg *model.Config) []Issue {
	var issues []Issue
	known := cfg.FunctionIDs()
	seen := make(map[string]bool)
	for li, layer := range cfg.Layers {
		path := fmt.Sprintf("layers[%d]", li)
		if layer.Name == "" {
			issues = append(issues, Issue{Path: path, Field: "name", Message: "layer name is empty"})
		}
		if seen[layer.Name] {
			issues = append(issues, Issue{Path: path, Field: "name",
				Message: fmt.Sprintf("duplicate layer name %q", layer.Name)})
		}
		seen[layer.Name] = true

		if len(layer.FunctionIDs) == 0 {
			issues = append(issues, Issue{Path: path,
				Message: fmt.Sprintf("layer %q has no functions assigned", layer.Name)})
		}
		for fi, funcID := range layer.FunctionIDs {
			fnPath := fmt.Sprintf("%s.function_ids[%d]", path, fi)
			if _, _, ok := model.SplitFunctionID(funcID); !ok {
				issues = append(issues, Issue{Path: fnPath,
					Message: fmt.Sprintf("malformed function reference %q, expected Agent::function", funcID)})
				continue
			}
			if !contains(known, funcID) {
				issues = append(issues, Issue{Path: fnPath, Message: unknownRefMessage("function", funcID, known)})
			}
		}
	}
	return issues
}

func checkConnections(cfg *model.Config) []Issue {
	var issues []Issue
	known := cfg.FunctionIDs()
	for ci, conn := range cfg.Connections {
		path := fmt.Sprintf("connections[%d]", ci)
		issues = append(issues, checkEndpoint(cfg, path, "src", conn.Src, known)...)
		issues = append(issues, checkEndpoint(cfg, path, "dst", conn.Dst, known)...)

		if conn.Type == "" || conn.Type == model.MessageNone {
			issues = append(issues, Issue{Path: path, Field: "type",
				Message: "connection carries no message type"})
			continue
		}
		if !contains(model.MessageTypeOptions, conn.Type) {
			issues = append(issues, Issue{Path: path, Field: "type",
				Message: fmt.Sprintf("unknown message type %q", conn.Type)})
			continue
		}

		if _, fn, ok := cfg.Function(conn.Src); ok && fn.OutputType != conn.Type {
			issues = append(issues, Issue{Path: path, Field: "type",
				Message: fmt.Sprintf("connection type %q does not match output type %q of %s", conn.Type, fn.OutputType, conn.Src)})
		}
		if _, fn, ok := cfg.Function(conn.Dst); ok && fn.InputType != conn.Type {
			issues = append(issues, Issue{Path: path, Field: "type",
				Message: fmt.Sprintf("connection type %q does not match input type %q of %s", conn.Type, fn.InputType, conn.Dst)})
		}
	}
	return issues
}

func checkEndpoint(cfg *model.Config, path, field, funcID string, known []string) []Issue {
	if _, _, ok := model.SplitFunctionID(funcID); !ok {
		return []Issue{{Path: path, Field: field,
			Message: fmt.Sprintf("malformed function reference %q, expected Agent::function", funcID)}}
	}
	if _, _, ok := cfg.Function(funcID); !ok {
		return []Issue{{Path: path, Field: field, Message: unknownRefMessage("function", funcID, known)}}
	}
	return nil
}

func checkVisualization(cfg *model.Config) []Issue {
	vis := cfg.Visualization
	if vis == nil {
		return nil
	}
	var issues []Issue
	agentNames := make([]string, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agentNames = append(agentNames, a.Name)
	}

	if vis.Activated && strings.TrimSpace(vis.DomainWidth) != "" {
		if _, err := strconv.ParseFloat(strings.TrimSpace(vis.DomainWidth), 64); err != nil {
			issues = append(issues, Issue{Path: "visualization", Field: "domain_width",
				Message: fmt.Sprintf("domain width %q is not numeric", vis.DomainWidth)})
		}
	}

	for vi, av := range vis.Agents {
		path := fmt.Sprintf("visualization.agents[%d]", vi)
		agent := cfg.Agent(av.AgentName)
		if agent == nil {
			issues = append(issues, Issue{Path: path, Field: "agent_name",
				Message: unknownRefMessage("agent", av.AgentName, agentNames)})
			continue
		}
		if av.Shape != "" && !contains(model.ShapeOptions, av.Shape) {
			issues = append(issues, Issue{Path: path, Field: "shape",
				Message: fmt.Sprintf("unknown shape %q", av.Shape)})
		}
		if av.ColorMode != "" && !contains(model.ColorModeOptions, av.ColorMode) {
			issues = append(issues, Issue{Path: path, Field: "color_mode",
				Message: fmt.Sprintf("unknown color mode %q", av.ColorMode)})
		}
		if av.ColorMode == model.ColorInterpolated && av.Interpolation != nil {
			issues = append(issues, checkInterpolation(path, av.Interpolation, agent)...)
		}
	}
	return issues
}

func checkInterpolation(path string, interp *model.Interpolation, agent *model.AgentType) []Issue {
	var issues []Issue
	if interp.Variable != "" {
		varNames := make([]string, 0, len(agent.Variables))
		for _, v := range agent.Variables {
			varNames = append(varNames, v.Name)
		}
		if !contains(varNames, interp.Variable) {
			issues = append(issues, Issue{Path: path, Field: "interpolation.variable",
				Message: unknownRefMessage("variable", interp.Variable, varNames)})
		}
	}
	bounds := []struct{ field, value string }{
		{"interpolation.min_value", interp.MinValue},
		{"interpolation.max_value", interp.MaxValue},
	}
	for _, b := range bounds {
		value := strings.TrimSpace(b.value)
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			issues = append(issues, Issue{Path: path, Field: b.field,
				Message: fmt.Sprintf("interpolation bound %q is not numeric", b.value)})
		}
	}
	return issues
}

// checkLiteral flags values that the exporter would silently coerce.
func checkLiteral(path, field, varType, raw string) []Issue {
	value := strings.TrimSpace(raw)
	if value == "" || value == "?" {
		return nil
	}
	switch varType {
	case model.TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return []Issue{{Path: path, Field: field,
				Message: fmt.Sprintf("value %q is not an integer, it will export as 0", raw)}}
		}
	case model.TypeUInt8:
		n, err := strconv.Atoi(value)
		if err != nil {
			return []Issue{{Path: path, Field: field,
				Message: fmt.Sprintf("value %q is not an integer, it will export as 0", raw)}}
		}
		if n < 0 || n > 255 {
			return []Issue{{Path: path, Field: field,
				Message: fmt.Sprintf("value %q is outside the UInt8 range, it will export clamped", raw)}}
		}
	case model.TypeArrayFloat, model.TypeArrayInt, model.TypeArrayUInt:
		return checkArrayLiteral(path, field, varType, value)
	case model.TypeShape:
		// Dimensions are checked by checkShape, which knows the macro
		// context.
		return nil
	default:
		// Float and unknown types export through the float path.
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return []Issue{{Path: path, Field: field,
				Message: fmt.Sprintf("value %q is not numeric, it will export as 0.0", raw)}}
		}
	}
	return nil
}

func checkArrayLiteral(path, field, varType, value string) []Issue {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(value, "]"), "[")
	var bad []string
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var err error
		if varType == model.TypeArrayFloat {
			_, err = strconv.ParseFloat(part, 64)
		} else {
			_, err = strconv.Atoi(part)
		}
		if err != nil {
			bad = append(bad, part)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return []Issue{{Path: path, Field: field,
		Message: fmt.Sprintf("array elements %s are not valid for %s and will be dropped on export", strings.Join(bad, ", "), varType)}}
}

// checkShape validates macro property dimensions. Each dimension is a
// positive whole number or the name of a constant declared in the
// generated script; the framework supports at most four.
func checkShape(path, raw string) []Issue {
	var dims []string
	for _, part := range strings.Split(strings.Trim(strings.TrimSpace(raw), "[]"), ",") {
		if piece := strings.TrimSpace(part); piece != "" {
			dims = append(dims, piece)
		}
	}
	if len(dims) == 0 {
		return []Issue{{Path: path, Field: "value",
			Message: "macro property needs at least one dimension"}}
	}
	var issues []Issue
	if len(dims) > 4 {
		issues = append(issues, Issue{Path: path, Field: "value",
			Message: fmt.Sprintf("macro property has %d dimensions, at most 4 are supported", len(dims))})
	}
	for _, dim := range dims {
		if dim == "?" {
			continue
		}
		if f, err := strconv.ParseFloat(dim, 64); err == nil {
			if f < 1 || f != math.Trunc(f) {
				issues = append(issues, Issue{Path: path, Field: "value",
					Message: fmt.Sprintf("dimension %q is not a positive whole number", dim)})
			}
			continue
		}
		if !identifierRe.MatchString(dim) {
			issues = append(issues, Issue{Path: path, Field: "value",
				Message: fmt.Sprintf("dimension %q is neither a number nor a constant name", dim)})
		}
	}
	return issues
}

// unknownRefMessage builds the finding for a dangling reference,
// suggesting the closest known name when one is close enough.
func unknownRefMessage(kind, name string, known []string) string {
	msg := fmt.Sprintf("unknown %s %q", kind, name)
	if suggestion := nearest(name, known); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return msg
}

// nearest returns the known name with the smallest edit distance,
// provided the distance is small relative to the name length.
func nearest(name string, known []string) string {
	best := ""
	bestDist := -1
	for _, candidate := range known {
		if candidate == "" || candidate == name {
			continue
		}
		dist := levenshtein.ComputeDistance(strings.ToUpper(name), strings.ToUpper(candidate))
		if bestDist < 0 || dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}
	if best == "" {
		return ""
	}
	maxLen := len(name)
	if len(best) > maxLen {
		maxLen = len(best)
	}
	if maxLen == 0 || float64(bestDist)/float64(maxLen) >= 0.4 {
		return ""
	}
	return best
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
