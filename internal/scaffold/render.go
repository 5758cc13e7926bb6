package scaffold

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"abmconf/internal/model"
)

// Method tables for the generated pyflamegpu calls. Unknown types fall
// back to the float variants, mirroring how the form editor treats
// unknown input.
var messageTypeKeys = map[string]string{
	model.MessageSpatial3D: "spatial",
	model.MessageArray3D:   "grid",
	model.MessageBucket:    "bucket",
}

var envPropertyMethods = map[string]string{
	model.TypeFloat:      "newPropertyFloat",
	model.TypeInt:        "newPropertyInt",
	model.TypeUInt8:      "newPropertyUInt",
	model.TypeArrayFloat: "newPropertyArrayFloat",
	model.TypeArrayInt:   "newPropertyArrayInt",
	model.TypeArrayUInt:  "newPropertyArrayUInt",
}

var macroPropertyMethods = map[string]string{
	model.TypeFloat:      "newMacroPropertyFloat",
	model.TypeArrayFloat: "newMacroPropertyFloat",
	model.TypeInt:        "newMacroPropertyInt",
	model.TypeUInt8:      "newMacroPropertyInt",
	model.TypeArrayInt:   "newMacroPropertyInt",
	model.TypeArrayUInt:  "newMacroPropertyInt",
}

var macroPropertyAccessors = map[string]string{
	model.TypeFloat:      "getMacroPropertyFloat",
	model.TypeArrayFloat: "getMacroPropertyFloat",
	model.TypeInt:        "getMacroPropertyInt",
	model.TypeUInt8:      "getMacroPropertyInt",
	model.TypeArrayInt:   "getMacroPropertyInt",
	model.TypeArrayUInt:  "getMacroPropertyInt",
	model.TypeShape:      "getMacroPropertyFloat",
}

var agentVariableMethods = map[string]string{
	model.TypeFloat:      "newVariableFloat",
	model.TypeInt:        "newVariableInt",
	model.TypeUInt8:      "newVariableUInt8",
	model.TypeArrayFloat: "newVariableArrayFloat",
	model.TypeArrayInt:   "newVariableArrayInt",
	model.TypeArrayUInt:  "newVariableArrayUInt",
}

var messageConstructors = map[string]string{
	model.MessageSpatial3D: "newMessageSpatial3D",
	model.MessageArray3D:   "newMessageArray3D",
	model.MessageBucket:    "newMessageBucket",
}

var loggingMethods = map[string]string{
	model.LogMean: "logMean",
	model.LogMin:  "logMin",
	model.LogMax:  "logMax",
	model.LogSum:  "logSum",
	model.LogStd:  "logStandardDev",
}

func varTypeOrDefault(t string) string {
	if t == "" {
		return model.DefaultVarType
	}
	return t
}

func renderAllGlobals(globals []model.GlobalVariable) string {
	if len(globals) == 0 {
		return "# No global variables defined"
	}
	var lines []string
	for _, g := range globals {
		lines = append(lines, fmt.Sprintf("%s = %s", g.Name, formatLiteral(g.Type, g.Value)))
	}
	return strings.Join(lines, "\n")
}

func renderModelGlobals(globals []model.GlobalVariable) string {
	if len(globals) == 0 {
		return "# No model globals configured"
	}
	var lines []string
	for _, g := range globals {
		var method string
		if g.IsMacro {
			method = macroPropertyMethods[g.Type]
			if method == "" {
				method = "newMacroPropertyFloat"
			}
		} else {
			method = envPropertyMethods[g.Type]
			if method == "" {
				method = envPropertyMethods[model.DefaultVarType]
			}
		}
		lines = append(lines, fmt.Sprintf("env.%s(%q, %s)", method, g.Name, formatLiteral(g.Type, g.Value)))
	}
	return strings.Join(lines, "\n")
}

func macroAccessorFor(varType string) string {
	if a, ok := macroPropertyAccessors[varTypeOrDefault(varType)]; ok {
		return a
	}
	return "getMacroPropertyFloat"
}

func renderMacroInitialisation(globals []model.GlobalVariable) string {
	var macros []model.GlobalVariable
	for _, g := range globals {
		if g.IsMacro {
			macros = append(macros, g)
		}
	}
	if len(macros) == 0 {
		return "# No macro properties initialisation required"
	}

	lines := []string{
		"# Initialize the MacroProperties",
		"class initMacroProperties(pyflamegpu.HostFunction):",
		"    def run(self, FLAMEGPU):",
		"        # Get property handles and modify their values.  Replace getMacroPropertyFloat by getMacroPropertyInt if needed",
	}
	for _, g := range macros {
		lines = append(lines, fmt.Sprintf("        %s = FLAMEGPU.environment.%s(%q)", g.Name, macroAccessorFor(g.Type), g.Name))
	}
	lines = append(lines,
		"        # TODO: initialize values. All 0 by default",
		"",
		"        return",
		"",
		"initialMacroProperties = initMacroProperties()",
		"model.addInitFunction(initialMacroProperties)",
	)
	return strings.Join(lines, "\n")
}

func renderFunctionFiles(agents []model.AgentType) string {
	var blocks []string
	for _, agent := range agents {
		if len(agent.Functions) == 0 {
			continue
		}
		lines := []string{`"""`, "  " + agent.Name, `"""`}
		for _, fn := range agent.Functions {
			lines = append(lines, fmt.Sprintf("%s_file = %q", fn.Name, fn.Name+".cpp"))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if len(blocks) == 0 {
		return "# No agent function files declared"
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessages declares one location message per (agent, type) pair
// that any function of the agent emits. It also reports which agents
// need a MAX_SEARCH_RADIUS constant.
func renderMessages(agents []model.AgentType) (string, map[string]bool) {
	var blocks []string
	spatialAgents := make(map[string]bool)
	seen := make(map[string]bool)
	for _, agent := range agents {
		for _, fn := range agent.Functions {
			msgType := fn.OutputType
			if msgType == model.MessageNone {
				continue
			}
			key := agent.Name + "\x00" + msgType
			if seen[key] {
				continue
			}
			seen[key] = true
			constructor := messageConstructors[msgType]
			msgKey := messageTypeKeys[msgType]
			if constructor == "" || msgKey == "" {
				continue
			}
			varName := fmt.Sprintf("%s_%s_location_message", agent.Name, msgKey)

			var lines []string
			if msgType == model.MessageBucket {
				lines = []string{
					fmt.Sprintf("%s_MAX_CONNECTIVITY = ? # the maximum expected connectivity of each node", agent.Name),
					fmt.Sprintf("%s_N_NODES = ? # number of nodes in the bucket network", agent.Name),
					fmt.Sprintf("%s = model.newMessageBucket(%q)", varName, agent.Name+"_bucket_location_message"),
					"# Set the range and bounds.",
					fmt.Sprintf("%s.setBounds(0,%s_N_NODES)", varName, agent.Name),
				}
			} else {
				lines = []string{fmt.Sprintf("%s = model.%s(%q)", varName, constructor, varName)}
			}

			switch msgType {
			case model.MessageSpatial3D:
				spatialAgents[agent.Name] = true
				lines = append(lines,
					fmt.Sprintf("%s.setRadius(MAX_SEARCH_RADIUS_%s)", varName, agent.Name),
					fmt.Sprintf("%s.setMin(MIN_EXPECTED_BOUNDARY_POS, MIN_EXPECTED_BOUNDARY_POS, MIN_EXPECTED_BOUNDARY_POS)", varName),
					fmt.Sprintf("%s.setMax(MAX_EXPECTED_BOUNDARY_POS, MAX_EXPECTED_BOUNDARY_POS, MAX_EXPECTED_BOUNDARY_POS)", varName),
				)
			case model.MessageArray3D:
				lines = append(lines,
					fmt.Sprintf("%s_AGENTS_PER_DIR = [?, ?, ?]", agent.Name),
					fmt.Sprintf("%s.setDimensions(%s_AGENTS_PER_DIR[0], %s_AGENTS_PER_DIR[1], %s_AGENTS_PER_DIR[2])", varName, agent.Name, agent.Name, agent.Name),
				)
			}

			lines = appendAgentVariablesToMessage(lines, varName, agent, msgType)

			if msgType == model.MessageBucket {
				lines = append(lines, fmt.Sprintf("%s.newVariableArrayUInt(\"linked_nodes\", %s_MAX_CONNECTIVITY)", varName, agent.Name))
			}

			lines = append(lines, "# TODO: add or remove variables manually to leave only those that need to be reported. If message type is MessageSpatial3D, variables x, y, z are included internally.")
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	if len(blocks) == 0 {
		return "# No location messages defined", spatialAgents
	}
	return strings.Join(blocks, "\n\n"), spatialAgents
}

func appendAgentVariablesToMessage(lines []string, messageVar string, agent model.AgentType, msgType string) []string {
	handled := make(map[string]bool)
	if msgType == model.MessageBucket {
		handled["linked_nodes"] = true
	}
	for _, v := range agent.Variables {
		if v.Name == "" || handled[v.Name] {
			continue
		}
		// Spatial messages carry x, y, z internally.
		if msgType == model.MessageSpatial3D && (v.Name == "x" || v.Name == "y" || v.Name == "z") {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		method := agentVariableMethods[varType]
		if method == "" {
			method = agentVariableMethods[model.DefaultVarType]
		}
		if model.IsArrayType(varType) {
			length := "?"
			if n := arrayLength(varType, v.Default); n > 0 {
				length = strconv.Itoa(n)
			}
			lines = append(lines, fmt.Sprintf("%s.%s(%q, %s)", messageVar, method, v.Name, length))
		} else {
			lines = append(lines, fmt.Sprintf("%s.%s(%q)", messageVar, method, v.Name))
		}
		handled[v.Name] = true
	}
	return lines
}

func arrayLength(varType, raw string) int {
	if varType == model.TypeArrayFloat {
		return len(parseFloatArray(raw))
	}
	return len(parseIntArray(raw))
}

func renderAgents(agents []model.AgentType, connections []model.Connection) string {
	if len(agents) == 0 {
		return "# No agents available"
	}
	inputMap := buildInputMap(connections)
	var blocks []string
	for _, agent := range agents {
		lines := []string{
			`"""`,
			fmt.Sprintf("  %s agent", agent.Name),
			`"""`,
			fmt.Sprintf("%s_agent = model.newAgent(%q)", agent.Name, agent.Name),
		}

		for _, v := range agent.Variables {
			if v.Name == "" {
				continue
			}
			varType := varTypeOrDefault(v.Type)
			method := agentVariableMethods[varType]
			if method == "" {
				method = agentVariableMethods[model.DefaultVarType]
			}
			if model.IsArrayType(varType) {
				lines = append(lines, fmt.Sprintf("%s_agent.%s(%q, %d)", agent.Name, method, v.Name, arrayLength(varType, v.Default)))
				lines = append(lines, "# TODO: default array values must be explicitly defined when initializing agent populations")
			} else {
				lines = append(lines, fmt.Sprintf("%s_agent.%s(%q, %s)", agent.Name, method, v.Name, formatLiteral(varType, v.Default)))
			}
		}

		for _, fn := range agent.Functions {
			base := fmt.Sprintf("%s_agent.newRTCFunctionFile(%q, %s_file)", agent.Name, fn.Name, fn.Name)
			suffix := ""
			if fn.OutputType != model.MessageNone {
				if msgKey := messageTypeKeys[fn.OutputType]; msgKey != "" {
					suffix += fmt.Sprintf(".setMessageOutput(%q)", agent.Name+"_"+msgKey+"_location_message ")
				}
			}
			if fn.InputType != model.MessageNone {
				msgKey := messageTypeKeys[fn.InputType]
				sourceAgent := inputSourceAgent(agent.Name, fn.Name, fn.InputType, inputMap)
				if msgKey != "" && sourceAgent != "" {
					suffix += fmt.Sprintf(".setMessageInput(%q)", sourceAgent+"_"+msgKey+"_location_message ")
				} else if msgKey != "" {
					lines = append(lines, fmt.Sprintf("# TODO: connect message input for %s::%s", agent.Name, fn.Name))
				}
			}
			lines = append(lines, base+suffix)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func renderLayers(layers []model.Layer) string {
	if len(layers) == 0 {
		return "layer_count = 0\n# No layers defined"
	}
	lines := []string{"layer_count = 0"}
	for _, layer := range layers {
		lines = append(lines, "# "+layer.Name, "layer_count += 1")
		for idx, funcID := range layer.FunctionIDs {
			agentName, funcName, ok := model.SplitFunctionID(funcID)
			if !ok {
				continue
			}
			accessor := "Layer"
			if idx == 0 {
				accessor = "newLayer"
			}
			lines = append(lines, fmt.Sprintf("model.%s(%q).addAgentFunction(%q, %q)", accessor, layer.Name, agentName, funcName))
		}
	}
	return strings.Join(lines, "\n")
}

func renderSpatialConstants(spatialAgents map[string]bool) string {
	if len(spatialAgents) == 0 {
		return "# MAX_SEARCH_RADIUS constants can be declared per agent when spatial messages are in use"
	}
	names := make([]string, 0, len(spatialAgents))
	for name := range spatialAgents {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("MAX_SEARCH_RADIUS_%s = ?", name))
	}
	return strings.Join(lines, "\n")
}

func renderLogging(agents []model.AgentType) string {
	if len(agents) == 0 {
		return "# No agents available for logging configuration"
	}
	var blocks []string
	for _, agent := range agents {
		lines := []string{
			fmt.Sprintf("%s_agent_log = logging_config.agent(%q)", agent.Name, agent.Name),
			fmt.Sprintf("%s_agent_log.logCount()", agent.Name),
		}
		for _, v := range agent.Variables {
			method := loggingMethods[v.Logging]
			if method == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s_agent_log.%s(%q)", agent.Name, method, v.Name))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// renderAgentLogs emits the per step log processing body. The lines
// carry their own indent because they sit inside the template's log
// processing loop.
func renderAgentLogs(agents []model.AgentType) string {
	const indent = "            "
	if len(agents) == 0 {
		return indent + "# No agent log data available"
	}
	var lines []string
	for _, agent := range agents {
		lines = append(lines,
			fmt.Sprintf("%s%s_agents = step.getAgent(%q)", indent, agent.Name, agent.Name),
			fmt.Sprintf("%s%s_agent_counts[counter] = %s_agents.getCount()", indent, agent.Name, agent.Name),
		)
		for _, v := range agent.Variables {
			if loggingMethods[v.Logging] == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s = %s_agents.getSumFloat(%q)", indent, v.Name, agent.Name, v.Name))
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \n")
}

func renderVisualisationBlocks(agents []model.AgentType, vis *model.VisualizationSettings) (string, string) {
	if vis == nil || !vis.Activated {
		return "# Visualisation disabled in configuration", "# Visualisation join disabled"
	}

	beginPaused := "False"
	if vis.BeginPaused {
		beginPaused = "True"
	}

	lines := []string{
		`"""`,
		"  Create Visualisation",
		`"""`,
		"if pyflamegpu.VISUALISATION and VISUALISATION:",
		"    vis = simulation.getVisualisation()",
		"    # Configure vis",
		fmt.Sprintf("    domain_width = %s", safeNumericLiteral(vis.DomainWidth)),
		"    INIT_CAM = ? # A value of the position of the domain by the end of the simulation, multiplied by 5, looks nice",
		"    vis.setInitialCameraLocation(0.0, 0.0, INIT_CAM)",
		"    vis.setCameraSpeed(? * domain_width) # values <<1 (e.g. 0.002) work fine",
		"    if DEBUG_PRINTING:",
		"        vis.setSimulationSpeed(1)",
		fmt.Sprintf("    vis.setBeginPaused(%s)", beginPaused),
	}

	agentMap := make(map[string]*model.AgentType, len(agents))
	for i := range agents {
		agentMap[agents[i].Name] = &agents[i]
	}

	for _, cfg := range vis.Agents {
		if !cfg.Include {
			continue
		}
		agent := agentMap[cfg.AgentName]
		if agent == nil {
			continue
		}

		visVar := cfg.AgentName + "_vis_agent"
		shape := cfg.Shape
		if !validShape(shape) {
			shape = model.DefaultShape
		}
		colorMode := cfg.ColorMode
		if !validColorMode(colorMode) {
			colorMode = model.DefaultColorMode
		}
		colorValue := agent.Color
		if colorValue == "" {
			colorValue = "#ffffff"
		}

		lines = append(lines,
			"",
			fmt.Sprintf("    %s = vis.addAgent(%q)", visVar, cfg.AgentName),
			"    # Position vars are named x, y, z so they are used by default",
			fmt.Sprintf("    %s.setModel(pyflamegpu.%s)", visVar, shape),
			fmt.Sprintf("    %s.setModelScale(? * domain_width) # values <<1 (e.g. 0.03) work fine", visVar),
		)

		if colorMode == model.ColorInterpolated {
			variable := resolveInterpolationVariable(cfg.Interpolation, agent)
			minValue, maxValue := resolveInterpolationBounds(cfg.Interpolation)
			lines = append(lines, fmt.Sprintf("    %s.setColor(pyflamegpu.HSVInterpolation.GREENRED(%q, %s, %s))", visVar, variable, minValue, maxValue))
		} else {
			lines = append(lines, fmt.Sprintf("    %s.setColor(pyflamegpu.Color(%q))", visVar, colorValue))
		}
	}

	if vis.ShowDomainBoundaries {
		lines = append(lines, boundaryPenLines()...)
	}

	lines = append(lines, "", "    vis.activate()")

	blockTwo := "if pyflamegpu.VISUALISATION and VISUALISATION and not ENSEMBLE:\n" +
		"    vis.join() # join the visualisation thread and stops the visualisation closing after the simulation finishes"
	return strings.Join(lines, "\n"), blockTwo
}

// boundaryPenLines sketches the twelve edges of the domain box as
// three fans of segments, one per axis.
func boundaryPenLines() []string {
	return []string{
		"",
		"    coord_boundary = list(env.getPropertyArrayFloat(\"BOUNDARY_COORDS\"))",
		"    pen = vis.newLineSketch(1, 1, 1, 0.8)",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[5])",
		"",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[5])",
		"",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[4])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[2], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[0], coord_boundary[3], coord_boundary[5])",
		"    pen.addVertex(coord_boundary[1], coord_boundary[3], coord_boundary[5])",
	}
}

func validShape(shape string) bool {
	for _, s := range model.ShapeOptions {
		if s == shape {
			return true
		}
	}
	return false
}

func validColorMode(mode string) bool {
	for _, m := range model.ColorModeOptions {
		if m == mode {
			return true
		}
	}
	return false
}

func resolveInterpolationVariable(interp *model.Interpolation, agent *model.AgentType) string {
	if interp != nil && interp.Variable != "" {
		return interp.Variable
	}
	for _, v := range agent.Variables {
		if v.Name != "" {
			return v.Name
		}
	}
	return "?"
}

func resolveInterpolationBounds(interp *model.Interpolation) (string, string) {
	if interp == nil {
		return formatNumber(0.0), formatNumber(1.0)
	}
	return formatNumber(parseFloatOrZero(interp.MinValue)), formatNumber(parseFloatOrZero(interp.MaxValue))
}

func buildInputMap(connections []model.Connection) map[string]map[string]string {
	mapping := make(map[string]map[string]string)
	for _, conn := range connections {
		if conn.Dst == "" || conn.Src == "" || conn.Type == "" {
			continue
		}
		byType, ok := mapping[conn.Dst]
		if !ok {
			byType = make(map[string]string)
			mapping[conn.Dst] = byType
		}
		byType[conn.Type] = conn.Src
	}
	return mapping
}

func inputSourceAgent(agentName, funcName, msgType string, inputMap map[string]map[string]string) string {
	src := inputMap[model.FunctionID(agentName, funcName)][msgType]
	if src == "" {
		return ""
	}
	srcAgent, _, _ := strings.Cut(src, "::")
	return srcAgent
}
