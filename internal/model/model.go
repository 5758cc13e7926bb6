// Package model holds the editable description of an agent-based
// simulation: agent types, environment globals, execution layers,
// message wiring and visualisation presets. Everything in here is
// plain data so it can round-trip through the JSON project file.
package model

import "strings"

// Variable types understood by the generated simulation code.
const (
	TypeFloat      = "Float"
	TypeInt        = "Int"
	TypeUInt8      = "UInt8"
	TypeArrayFloat = "ArrayFloat"
	TypeArrayInt   = "ArrayInt"
	TypeArrayUInt  = "ArrayUInt"
	// TypeShape is only valid for macro properties. The value field
	// holds the comma separated dimensions instead of a literal.
	TypeShape = "Shape"
)

// DefaultVarType is used when a variable is created without an
// explicit type, and as the fallback for unrecognised types.
const DefaultVarType = TypeFloat

// VarTypeOptions is the picker order for agent variable types.
var VarTypeOptions = []string{
	TypeFloat, TypeInt, TypeUInt8,
	TypeArrayFloat, TypeArrayInt, TypeArrayUInt,
}

// GlobalTypeOptions adds Shape, which only makes sense for macro
// properties backed by a multi dimensional buffer.
var GlobalTypeOptions = []string{
	TypeFloat, TypeInt, TypeUInt8,
	TypeArrayFloat, TypeArrayInt, TypeArrayUInt,
	TypeShape,
}

// Per step logging options for an agent variable.
const (
	LogNone = "None"
	LogMean = "Mean"
	LogMin  = "Min"
	LogMax  = "Max"
	LogSum  = "Sum"
	LogStd  = "Std"
)

// DefaultLogging is applied to newly created variables.
const DefaultLogging = LogNone

// LoggingOptions is the picker order for per variable logging.
var LoggingOptions = []string{LogNone, LogMean, LogMin, LogMax, LogSum, LogStd}

// Message types an agent function can consume or emit.
const (
	MessageNone      = "MessageNone"
	MessageSpatial3D = "MessageSpatial3D"
	MessageBucket    = "MessageBucket"
	MessageArray3D   = "MessageArray3D"
)

// MessageTypeOptions is the picker order for function input/output.
var MessageTypeOptions = []string{MessageNone, MessageSpatial3D, MessageBucket, MessageArray3D}

// Stock visualisation meshes shipped with the simulation runtime.
const (
	ShapeIcosphere  = "ICOSPHERE"
	ShapeSphere     = "SPHERE"
	ShapeCube       = "CUBE"
	ShapeTeapot     = "TEAPOT"
	ShapeStuntplane = "STUNTPLANE"
)

// DefaultShape is used for agents without an explicit mesh.
const DefaultShape = ShapeIcosphere

// ShapeOptions is the picker order for visualisation meshes.
var ShapeOptions = []string{ShapeIcosphere, ShapeSphere, ShapeCube, ShapeTeapot, ShapeStuntplane}

// Colour modes for visualised agents.
const (
	ColorStatic       = "Static"
	ColorInterpolated = "Interpolated"
)

// DefaultColorMode is applied to newly visualised agents.
const DefaultColorMode = ColorStatic

// ColorModeOptions is the picker order for agent colour modes.
var ColorModeOptions = []string{ColorStatic, ColorInterpolated}

// DefaultColors is the palette cycled through when agents are created
// without an explicit colour.
var DefaultColors = []string{
	"#e6194B", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

// DefaultAgentVariables are seeded into every new agent type. Position
// and velocity are expected by the spatial messaging helpers.
var DefaultAgentVariables = []string{"x", "y", "z", "vx", "vy", "vz"}

// AgentVariable is a per agent state variable.
type AgentVariable struct {
	Name    string `json:"name"`
	Default string `json:"default"`
	Type    string `json:"var_type"`
	Logging string `json:"logging"`
}

// AgentFunction is a behaviour slot on an agent type. Input and output
// describe the message type consumed and emitted per step.
type AgentFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputType   string `json:"input_type"`
	OutputType  string `json:"output_type"`
}

// AgentType is one kind of agent in the simulated population.
type AgentType struct {
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Variables []AgentVariable `json:"variables"`
	Functions []AgentFunction `json:"functions"`
}

// GlobalVariable is an environment property shared by all agents.
// Macro properties are device side buffers; for the Shape type the
// value holds the buffer dimensions, comma separated.
type GlobalVariable struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Type    string `json:"var_type"`
	IsMacro bool   `json:"is_macro"`
}

// Layer is one step of the execution schedule. FunctionIDs reference
// agent functions as "Agent::Function" and run in slice order.
type Layer struct {
	Name        string   `json:"name"`
	FunctionIDs []string `json:"function_ids"`
	Height      *float64 `json:"height"`
}

// Connection wires the output message of one agent function to the
// input of another. Src and Dst use the "Agent::Function" form.
type Connection struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Type string `json:"type"`
}

// NodePos is a manually placed diagram node position.
type NodePos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Interpolation maps a variable range onto a colour gradient.
type Interpolation struct {
	Variable string `json:"variable"`
	MinValue string `json:"min_value"`
	MaxValue string `json:"max_value"`
}

// AgentVisualization is the per agent display preset.
type AgentVisualization struct {
	AgentName     string         `json:"agent_name"`
	Include       bool           `json:"include"`
	Shape         string         `json:"shape"`
	ColorMode     string         `json:"color_mode"`
	Interpolation *Interpolation `json:"interpolation"`
}

// VisualizationSettings is the optional visualisation preset for a
// model. DomainWidth stays a string so partial input survives a
// save/load cycle unchanged.
type VisualizationSettings struct {
	Activated            bool                 `json:"activated"`
	DomainWidth          string               `json:"domain_width"`
	BeginPaused          bool                 `json:"begin_paused"`
	ShowDomainBoundaries bool                 `json:"show_domain_boundaries"`
	Agents               []AgentVisualization `json:"agents"`
}

// Config is the complete editable state of one simulation project.
type Config struct {
	Version       int                    `json:"version"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Agents        []AgentType            `json:"agents"`
	Globals       []GlobalVariable       `json:"globals"`
	Layers        []Layer                `json:"layers"`
	Connections   []Connection           `json:"connections"`
	Layout        map[string]NodePos     `json:"manual_layout,omitempty"`
	Visualization *VisualizationSettings `json:"visualization,omitempty"`
}

// CurrentVersion is written into new project files.
const CurrentVersion = 1

// New returns an empty project with the version stamped.
func New(name string) *Config {
	return &Config{
		Version: CurrentVersion,
		Name:    name,
	}
}

// NewAgentType builds an agent with the default position and velocity
// variables. The colour cycles through the palette by creation index.
func NewAgentType(name string, index int) AgentType {
	a := AgentType{
		Name:  name,
		Color: DefaultColors[index%len(DefaultColors)],
	}
	for _, v := range DefaultAgentVariables {
		a.Variables = append(a.Variables, AgentVariable{
			Name:    v,
			Default: "0.0",
			Type:    DefaultVarType,
			Logging: DefaultLogging,
		})
	}
	return a
}

// FunctionID joins an agent and function name into the canonical
// "Agent::Function" reference used by layers and connections.
func FunctionID(agent, function string) string {
	return agent + "::" + function
}

// SplitFunctionID splits an "Agent::Function" reference. ok is false
// for malformed ids, which callers are expected to skip.
func SplitFunctionID(id string) (agent, function string, ok bool) {
	agent, function, ok = strings.Cut(id, "::")
	if !ok || agent == "" || function == "" {
		return "", "", false
	}
	return agent, function, true
}

// IsArrayType reports whether a variable type holds multiple elements.
func IsArrayType(t string) bool {
	switch t {
	case TypeArrayFloat, TypeArrayInt, TypeArrayUInt:
		return true
	}
	return false
}

// Agent returns the agent with the given name, or nil.
func (c *Config) Agent(name string) *AgentType {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i]
		}
	}
	return nil
}

// Global returns the global with the given name, or nil.
func (c *Config) Global(name string) *GlobalVariable {
	for i := range c.Globals {
		if c.Globals[i].Name == name {
			return &c.Globals[i]
		}
	}
	return nil
}

// Function resolves an "Agent::Function" id against the model.
func (c *Config) Function(id string) (*AgentType, *AgentFunction, bool) {
	agentName, funcName, ok := SplitFunctionID(id)
	if !ok {
		return nil, nil, false
	}
	agent := c.Agent(agentName)
	if agent == nil {
		return nil, nil, false
	}
	for i := range agent.Functions {
		if agent.Functions[i].Name == funcName {
			return agent, &agent.Functions[i], true
		}
	}
	return nil, nil, false
}

// FunctionIDs lists every "Agent::Function" id in declaration order.
func (c *Config) FunctionIDs() []string {
	var ids []string
	for _, a := range c.Agents {
		for _, f := range a.Functions {
			ids = append(ids, FunctionID(a.Name, f.Name))
		}
	}
	return ids
}

// InputSource returns the function id feeding messages into dst, if a
// connection exists. The first matching connection wins, mirroring how
// the schedule resolves ambiguous wiring.
func (c *Config) InputSource(dst string) (string, bool) {
	for _, conn := range c.Connections {
		if conn.Dst == dst {
			return conn.Src, true
		}
	}
	return "", false
}

// RemoveAgent deletes an agent and scrubs every reference to it from
// layers, connections and visualisation presets.
func (c *Config) RemoveAgent(name string) {
	agents := c.Agents[:0]
	for _, a := range c.Agents {
		if a.Name != name {
			agents = append(agents, a)
		}
	}
	c.Agents = agents

	prefix := name + "::"
	for i := range c.Layers {
		ids := c.Layers[i].FunctionIDs[:0]
		for _, id := range c.Layers[i].FunctionIDs {
			if !strings.HasPrefix(id, prefix) {
				ids = append(ids, id)
			}
		}
		c.Layers[i].FunctionIDs = ids
	}

	conns := c.Connections[:0]
	for _, conn := range c.Connections {
		if strings.HasPrefix(conn.Src, prefix) || strings.HasPrefix(conn.Dst, prefix) {
			continue
		}
		conns = append(conns, conn)
	}
	c.Connections = conns

	if c.Visualization != nil {
		vis := c.Visualization.Agents[:0]
		for _, av := range c.Visualization.Agents {
			if av.AgentName != name {
				vis = append(vis, av)
			}
		}
		c.Visualization.Agents = vis
	}

	for id := range c.Layout {
		if id == name || strings.HasPrefix(id, prefix) {
			delete(c.Layout, id)
		}
	}
}

// RemoveFunction deletes one function from an agent and scrubs its
// "Agent::Function" id from layers, connections and the layout.
func (c *Config) RemoveFunction(agentName, funcName string) {
	agent := c.Agent(agentName)
	if agent == nil {
		return
	}
	funcs := agent.Functions[:0]
	for _, f := range agent.Functions {
		if f.Name != funcName {
			funcs = append(funcs, f)
		}
	}
	agent.Functions = funcs

	id := FunctionID(agentName, funcName)
	for i := range c.Layers {
		ids := c.Layers[i].FunctionIDs[:0]
		for _, fid := range c.Layers[i].FunctionIDs {
			if fid != id {
				ids = append(ids, fid)
			}
		}
		c.Layers[i].FunctionIDs = ids
	}

	conns := c.Connections[:0]
	for _, conn := range c.Connections {
		if conn.Src == id || conn.Dst == id {
			continue
		}
		conns = append(conns, conn)
	}
	c.Connections = conns

	delete(c.Layout, id)
}

// RenameFunction renames one function on an agent and rewrites every
// reference to its "Agent::Function" id.
func (c *Config) RenameFunction(agentName, oldName, newName string) {
	if oldName == newName {
		return
	}
	agent := c.Agent(agentName)
	if agent == nil {
		return
	}
	for i := range agent.Functions {
		if agent.Functions[i].Name == oldName {
			agent.Functions[i].Name = newName
			break
		}
	}

	oldID := FunctionID(agentName, oldName)
	newID := FunctionID(agentName, newName)
	for i := range c.Layers {
		for j, id := range c.Layers[i].FunctionIDs {
			if id == oldID {
				c.Layers[i].FunctionIDs[j] = newID
			}
		}
	}
	for i := range c.Connections {
		if c.Connections[i].Src == oldID {
			c.Connections[i].Src = newID
		}
		if c.Connections[i].Dst == oldID {
			c.Connections[i].Dst = newID
		}
	}
	if pos, ok := c.Layout[oldID]; ok {
		c.Layout[newID] = pos
		delete(c.Layout, oldID)
	}
}

// RenameAgent renames an agent and rewrites every "Agent::Function"
// reference that points at it.
func (c *Config) RenameAgent(oldName, newName string) {
	if oldName == newName {
		return
	}
	if a := c.Agent(oldName); a != nil {
		a.Name = newName
	}

	oldPrefix := oldName + "::"
	rewrite := func(id string) string {
		if strings.HasPrefix(id, oldPrefix) {
			return newName + "::" + strings.TrimPrefix(id, oldPrefix)
		}
		return id
	}

	for i := range c.Layers {
		for j, id := range c.Layers[i].FunctionIDs {
			c.Layers[i].FunctionIDs[j] = rewrite(id)
		}
	}
	for i := range c.Connections {
		c.Connections[i].Src = rewrite(c.Connections[i].Src)
		c.Connections[i].Dst = rewrite(c.Connections[i].Dst)
	}
	if c.Visualization != nil {
		for i := range c.Visualization.Agents {
			if c.Visualization.Agents[i].AgentName == oldName {
				c.Visualization.Agents[i].AgentName = newName
			}
		}
	}
	if c.Layout != nil {
		moved := make(map[string]NodePos, len(c.Layout))
		for id, pos := range c.Layout {
			if id == oldName {
				moved[newName] = pos
			} else {
				moved[rewrite(id)] = pos
			}
		}
		c.Layout = moved
	}
}
