package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"abmconf/internal/model"
	"abmconf/internal/modelfile"
)

// ImportService rebuilds an editable model from a previously exported
// pyflamegpu driver script. The scanner reads top level statements
// only, so scripts with unresolved ? markers still import.
type ImportService struct{}

type ImportResult struct {
	Agents      int
	Globals     int
	Layers      int
	Connections int
	Warnings    []string
}

// ImportFile parses the driver at path. The model is named after the
// file stem.
func (s *ImportService) ImportFile(path string) (*model.Config, ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ImportResult{}, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s.Import(name, f)
}

func (s *ImportService) Import(name string, r io.Reader) (*model.Config, ImportResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, ImportResult{}, fmt.Errorf("reading driver: %w", err)
	}
	a := newDriverAnalyzer()
	a.scan(string(src))
	cfg := a.build()
	cfg.Name = name
	modelfile.Normalize(cfg)
	res := ImportResult{
		Agents:      len(cfg.Agents),
		Globals:     len(cfg.Globals),
		Layers:      len(cfg.Layers),
		Connections: len(cfg.Connections),
		Warnings:    a.warnings,
	}
	return cfg, res, nil
}

var messageTypeByConstructor = map[string]string{
	"newMessageSpatial3D": model.MessageSpatial3D,
	"newMessageArray3D":   model.MessageArray3D,
	"newMessageBucket":    model.MessageBucket,
}

var varTypeByMethod = map[string]string{
	"newVariableFloat":      model.TypeFloat,
	"newVariableInt":        model.TypeInt,
	"newVariableUInt8":      model.TypeUInt8,
	"newVariableUInt16":     "UInt16",
	"newVariableUInt32":     "UInt32",
	"newVariableArrayFloat": model.TypeArrayFloat,
	"newVariableArrayInt":   model.TypeArrayInt,
	"newVariableArrayUInt":  model.TypeArrayUInt,
}

var globalTypeByEnvMethod = map[string]string{
	"newPropertyFloat":      model.TypeFloat,
	"newPropertyInt":        model.TypeInt,
	"newPropertyUInt":       model.TypeUInt8,
	"newPropertyArrayFloat": model.TypeArrayFloat,
	"newPropertyArrayInt":   model.TypeArrayInt,
	"newPropertyArrayUInt":  model.TypeArrayUInt,
}

var loggingModeByMethod = map[string]string{
	"logMean":        model.LogMean,
	"logMin":         model.LogMin,
	"logMax":         model.LogMax,
	"logSum":         model.LogSum,
	"logStandardDev": model.LogStd,
}

// driverConstants are declared by the generated script itself and never
// come back in as model globals.
var driverConstants = map[string]bool{
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

type driverAnalyzer struct {
	assignments     map[string]string
	assignmentOrder []string

	agentVars      map[string]string // script var -> agent name
	agentOrder     []string
	agentColors    map[string]string
	agentVariables map[string][]model.AgentVariable
	agentFunctions map[string]map[string]*model.AgentFunction
	functionOrder  map[string][]string

	messageVars    map[string]string   // message name or script var -> type
	messageOutputs map[string][]string // message name -> emitting function ids
	functionInputs map[string]string   // function id -> message name
	inputOrder     []string

	layerVars  map[string]string
	layerNames []string
	layers     map[string][]string

	envProps map[string]model.GlobalVariable
	envOrder []string

	logVars      map[string]string
	loggingMap   map[string]map[string]string
	functionVars map[string][2]string // script var -> (agent, function)
	fileVars     map[string]bool

	warnings []string
}

func newDriverAnalyzer() *driverAnalyzer {
	return &driverAnalyzer{
		assignments:    map[string]string{},
		agentVars:      map[string]string{},
		agentColors:    map[string]string{},
		agentVariables: map[string][]model.AgentVariable{},
		agentFunctions: map[string]map[string]*model.AgentFunction{},
		functionOrder:  map[string][]string{},
		messageVars:    map[string]string{},
		messageOutputs: map[string][]string{},
		functionInputs: map[string]string{},
		layerVars:      map[string]string{},
		layers:         map[string][]string{},
		envProps:       map[string]model.GlobalVariable{},
		logVars:        map[string]string{},
		loggingMap:     map[string]map[string]string{},
		functionVars:   map[string][2]string{},
		fileVars:       map[string]bool{},
	}
}

// scan walks top level statements. Indented lines are function, class
// and branch bodies with nothing the model needs.
func (a *driverAnalyzer) scan(src string) {
	inDoc := false
	for _, line := range strings.Split(src, "\n") {
		if strings.Count(line, `"""`)%2 == 1 {
			inDoc = !inDoc
			continue
		}
		if inDoc || line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' || line[0] == '#' {
			continue
		}
		a.scanLine(strings.TrimRight(line, " \r"))
	}
}

func (a *driverAnalyzer) scanLine(line string) {
	if name, rhs, ok := splitAssignment(line); ok {
		a.assignments[name] = rhs
		if !containsString(a.assignmentOrder, name) {
			a.assignmentOrder = append(a.assignmentOrder, name)
		}
		a.recordAssignedCall(name, rhs)
	}
	a.recordCalls(line)
}

// recordAssignedCall handles constructors whose result is bound to a
// script variable the rest of the driver refers back to.
func (a *driverAnalyzer) recordAssignedCall(target, rhs string) {
	if args, ok := callArgs(rhs, "newAgent"); ok {
		if name, ok := stringArg(args, 0); ok && name != "" {
			a.agentVars[target] = name
			a.ensureAgent(name)
		}
	}
	if args, ok := callArgs(rhs, "newRTCFunctionFile"); ok {
		if agentName := a.agentVars[callReceiver(rhs, "newRTCFunctionFile")]; agentName != "" {
			if funcName, ok := stringArg(args, 0); ok && funcName != "" {
				a.functionVars[target] = [2]string{agentName, funcName}
			}
		}
	}
	for method, msgType := range messageTypeByConstructor {
		if args, ok := callArgs(rhs, method); ok {
			if name, ok := stringArg(args, 0); ok && name != "" {
				a.messageVars[name] = msgType
			}
			a.messageVars[target] = msgType
		}
	}
	if args, ok := callArgs(rhs, "agent"); ok && callReceiver(rhs, "agent") == "logging_config" {
		if name, ok := stringArg(args, 0); ok && name != "" {
			a.logVars[target] = name
		}
	}
	for _, method := range []string{"newLayer", "Layer"} {
		if args, ok := callArgs(rhs, method); ok {
			if name, ok := stringArg(args, 0); ok && name != "" {
				a.layerVars[target] = name
				a.ensureLayer(name)
			}
		}
	}
}

func (a *driverAnalyzer) recordCalls(line string) {
	for method, varType := range globalTypeByEnvMethod {
		if args, ok := callArgs(line, method); ok && callReceiver(line, method) == "env" {
			if name, ok := stringArg(args, 0); ok && name != "" {
				a.setGlobal(name, a.resolveValue(args, 1), varType, false)
			}
		}
	}

	if method := macroMethodOn(line); method != "" && callReceiver(line, method) == "env" {
		if args, ok := callArgs(line, method); ok {
			if name, ok := stringArg(args, 0); ok && name != "" {
				var dims []string
				for i := 1; i < len(args); i++ {
					if dim := a.resolveValue(args, i); dim != "" {
						dims = append(dims, dim)
					}
				}
				varType := model.TypeShape
				if len(args) <= 2 {
					varType = model.TypeFloat
					if strings.HasSuffix(method, "Int") {
						varType = model.TypeInt
					}
				}
				a.setGlobal(name, strings.Join(dims, ", "), varType, true)
			}
		}
	}

	for method, varType := range varTypeByMethod {
		if args, ok := callArgs(line, method); ok {
			if agentName := a.agentVars[callReceiver(line, method)]; agentName != "" {
				if varName, ok := stringArg(args, 0); ok && varName != "" {
					a.addAgentVariable(agentName, varName, a.resolveValue(args, 1), varType)
				}
			}
		}
	}

	if args, ok := callArgs(line, "newRTCFunctionFile"); ok {
		if agentName := a.agentVars[callReceiver(line, "newRTCFunctionFile")]; agentName != "" {
			if funcName, ok := stringArg(args, 0); ok && funcName != "" {
				a.ensureFunction(agentName, funcName)
				if len(args) > 1 && isIdentifier(args[1]) {
					a.fileVars[args[1]] = true
				}
			}
		}
	}

	for _, method := range []string{"setMessageOutput", "setMessageInput"} {
		args, ok := callArgs(line, method)
		if !ok {
			continue
		}
		agentName, funcName := a.functionForChain(line, method)
		msgName, _ := stringArg(args, 0)
		msgName = strings.TrimSpace(msgName)
		if agentName == "" || funcName == "" || msgName == "" {
			continue
		}
		a.ensureFunction(agentName, funcName)
		msgType := a.messageTypeFor(msgName)
		if method == "setMessageOutput" {
			a.setFunctionOutput(agentName, funcName, msgName, msgType)
		} else {
			a.setFunctionInput(agentName, funcName, msgName, msgType)
		}
	}

	if args, ok := callArgs(line, "addAgentFunction"); ok {
		agentName, ok1 := stringArg(args, 0)
		funcName, ok2 := stringArg(args, 1)
		if ok1 && ok2 && agentName != "" && funcName != "" {
			layerName := ""
			for _, ctor := range []string{"newLayer", "Layer"} {
				if largs, ok := callArgs(line, ctor); ok {
					layerName, _ = stringArg(largs, 0)
					break
				}
			}
			if layerName == "" {
				layerName = a.layerVars[callReceiver(line, "addAgentFunction")]
			}
			if layerName != "" {
				a.ensureLayer(layerName)
				a.layers[layerName] = append(a.layers[layerName], model.FunctionID(agentName, funcName))
			}
		}
	}

	for method, mode := range loggingModeByMethod {
		if args, ok := callArgs(line, method); ok {
			if agentName := a.logVars[callReceiver(line, method)]; agentName != "" {
				if varName, ok := stringArg(args, 0); ok && varName != "" {
					if a.loggingMap[agentName] == nil {
						a.loggingMap[agentName] = map[string]string{}
					}
					a.loggingMap[agentName][varName] = mode
				}
			}
		}
	}
}

// functionForChain resolves which agent function a setMessage call sits
// on, either chained onto newRTCFunctionFile or through a bound var.
func (a *driverAnalyzer) functionForChain(line, method string) (agentName, funcName string) {
	if rtcArgs, ok := callArgs(line, "newRTCFunctionFile"); ok {
		if an := a.agentVars[callReceiver(line, "newRTCFunctionFile")]; an != "" {
			fn, _ := stringArg(rtcArgs, 0)
			return an, fn
		}
		return "", ""
	}
	if fv, ok := a.functionVars[callReceiver(line, method)]; ok {
		return fv[0], fv[1]
	}
	return "", ""
}

func (a *driverAnalyzer) ensureAgent(name string) {
	if _, ok := a.agentColors[name]; ok {
		return
	}
	a.agentColors[name] = model.DefaultColors[len(a.agentOrder)%len(model.DefaultColors)]
	a.agentOrder = append(a.agentOrder, name)
	a.agentFunctions[name] = map[string]*model.AgentFunction{}
}

func (a *driverAnalyzer) ensureFunction(agentName, funcName string) {
	a.ensureAgent(agentName)
	if _, ok := a.agentFunctions[agentName][funcName]; ok {
		return
	}
	a.agentFunctions[agentName][funcName] = &model.AgentFunction{
		Name:       funcName,
		InputType:  model.MessageNone,
		OutputType: model.MessageNone,
	}
	a.functionOrder[agentName] = append(a.functionOrder[agentName], funcName)
}

func (a *driverAnalyzer) ensureLayer(name string) {
	if _, ok := a.layers[name]; ok {
		return
	}
	a.layers[name] = []string{}
	a.layerNames = append(a.layerNames, name)
}

func (a *driverAnalyzer) addAgentVariable(agentName, varName, defaultExpr, varType string) {
	a.ensureAgent(agentName)
	if model.IsArrayType(varType) {
		// Array defaults live in the population setup, not the driver.
		defaultExpr = ""
	}
	if !containsString(model.VarTypeOptions, varType) {
		a.warnf("variable %s.%s has unsupported type %s, kept as-is", agentName, varName, varType)
	}
	a.agentVariables[agentName] = append(a.agentVariables[agentName], model.AgentVariable{
		Name:    varName,
		Default: defaultExpr,
		Type:    varType,
		Logging: model.DefaultLogging,
	})
}

func (a *driverAnalyzer) setFunctionOutput(agentName, funcName, msgName, msgType string) {
	a.agentFunctions[agentName][funcName].OutputType = msgType
	a.messageOutputs[msgName] = append(a.messageOutputs[msgName], model.FunctionID(agentName, funcName))
}

func (a *driverAnalyzer) setFunctionInput(agentName, funcName, msgName, msgType string) {
	a.agentFunctions[agentName][funcName].InputType = msgType
	id := model.FunctionID(agentName, funcName)
	if _, ok := a.functionInputs[id]; !ok {
		a.inputOrder = append(a.inputOrder, id)
	}
	a.functionInputs[id] = msgName
}

func (a *driverAnalyzer) setGlobal(name, value, varType string, isMacro bool) {
	if name == "" {
		return
	}
	if model.IsArrayType(varType) || varType == model.TypeShape {
		value = stripBrackets(value)
	}
	if _, ok := a.envProps[name]; !ok {
		a.envOrder = append(a.envOrder, name)
	}
	a.envProps[name] = model.GlobalVariable{Name: name, Value: value, Type: varType, IsMacro: isMacro}
}

func (a *driverAnalyzer) messageTypeFor(msgName string) string {
	if t, ok := a.messageVars[msgName]; ok {
		return t
	}
	lowered := strings.ToLower(msgName)
	switch {
	case strings.Contains(lowered, "spatial"):
		return model.MessageSpatial3D
	case strings.Contains(lowered, "grid"), strings.Contains(lowered, "array"):
		return model.MessageArray3D
	case strings.Contains(lowered, "bucket"):
		return model.MessageBucket
	}
	return model.MessageNone
}

func (a *driverAnalyzer) resolveValue(args []string, idx int) string {
	if idx >= len(args) {
		return ""
	}
	raw := strings.TrimSpace(args[idx])
	if isIdentifier(raw) {
		if v, ok := a.assignments[raw]; ok {
			return v
		}
	}
	return raw
}

func (a *driverAnalyzer) warnf(format string, args ...interface{}) {
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

func (a *driverAnalyzer) build() *model.Config {
	cfg := &model.Config{Version: model.CurrentVersion}

	for _, name := range a.agentOrder {
		agent := model.AgentType{Name: name, Color: a.agentColors[name]}
		vars := a.agentVariables[name]
		for i := range vars {
			if mode := a.loggingMap[name][vars[i].Name]; mode != "" {
				vars[i].Logging = mode
			}
		}
		agent.Variables = vars
		for _, funcName := range a.functionOrder[name] {
			agent.Functions = append(agent.Functions, *a.agentFunctions[name][funcName])
		}
		cfg.Agents = append(cfg.Agents, agent)
	}

	for _, dst := range a.inputOrder {
		msgName := a.functionInputs[dst]
		sources := a.messageOutputs[msgName]
		if len(sources) == 0 {
			a.warnf("no output feeds message %q consumed by %s", msgName, dst)
			continue
		}
		agentName, funcName, _ := model.SplitFunctionID(dst)
		cfg.Connections = append(cfg.Connections, model.Connection{
			Src:  sources[0],
			Dst:  dst,
			Type: a.agentFunctions[agentName][funcName].InputType,
		})
	}

	for _, name := range a.layerNames {
		cfg.Layers = append(cfg.Layers, model.Layer{Name: name, FunctionIDs: a.layers[name]})
	}

	cfg.Globals = a.buildGlobals()
	return cfg
}

func (a *driverAnalyzer) buildGlobals() []model.GlobalVariable {
	var out []model.GlobalVariable
	seen := map[string]bool{}
	for _, name := range a.assignmentOrder {
		if a.skipGlobal(name) || !unicode.IsUpper(rune(name[0])) {
			continue
		}
		raw := a.assignments[name]
		inferred := inferGlobalType(raw)
		value := raw
		if model.IsArrayType(inferred) || inferred == model.TypeShape {
			value = stripBrackets(value)
		}
		if g, ok := a.envProps[name]; ok {
			if g.Value == "" {
				g.Value = value
			}
			if g.Type == "" {
				g.Type = inferred
			}
			out = append(out, g)
		} else {
			out = append(out, model.GlobalVariable{Name: name, Value: value, Type: inferred})
		}
		seen[name] = true
	}
	// Properties declared on env without a matching constant keep their
	// declaration order, whatever their case.
	for _, name := range a.envOrder {
		if seen[name] || a.skipGlobal(name) {
			continue
		}
		out = append(out, a.envProps[name])
	}
	return out
}

// skipGlobal filters out script variables the driver needs but the
// model does not: agent handles, message and layer vars, per agent
// helper constants and everything the template declares itself.
func (a *driverAnalyzer) skipGlobal(name string) bool {
	if driverConstants[name] || strings.HasPrefix(name, "MAX_SEARCH_RADIUS_") {
		return true
	}
	if _, ok := a.agentVars[name]; ok {
		return true
	}
	if _, ok := a.messageVars[name]; ok {
		return true
	}
	if _, ok := a.logVars[name]; ok {
		return true
	}
	if _, ok := a.layerVars[name]; ok {
		return true
	}
	if _, ok := a.functionVars[name]; ok {
		return true
	}
	if a.fileVars[name] {
		return true
	}
	for _, suffix := range []string{"_MAX_CONNECTIVITY", "_N_NODES", "_AGENTS_PER_DIR"} {
		if agent := strings.TrimSuffix(name, suffix); agent != name {
			if _, ok := a.agentColors[agent]; ok {
				return true
			}
		}
	}
	return false
}

func splitAssignment(line string) (name, rhs string, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 || eq+1 >= len(line) {
		return "", "", false
	}
	// ==, +=, -= and friends are not assignments.
	if line[eq+1] == '=' || !isIdentChar(line[eq-1]) && line[eq-1] != ' ' {
		return "", "", false
	}
	name = strings.TrimSpace(line[:eq])
	if !isIdentifier(name) {
		return "", "", false
	}
	rhs = strings.TrimSpace(line[eq+1:])
	if rhs == "" {
		return "", "", false
	}
	return name, rhs, true
}

// callArgs returns the arguments of the first .method( call on the
// line, split on top level commas.
func callArgs(line, method string) ([]string, bool) {
	marker := "." + method + "("
	idx := strings.Index(line, marker)
	if idx < 0 {
		return nil, false
	}
	rest := line[idx+len(marker):]
	var args []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ']', '}':
			depth--
		case ')':
			if depth == 0 {
				if arg := strings.TrimSpace(rest[start:i]); arg != "" {
					args = append(args, arg)
				}
				return args, true
			}
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(rest[start:i]))
				start = i + 1
			}
		}
	}
	return nil, false
}

// callReceiver returns the bare identifier a .method( call hangs off.
// Chained and dotted receivers yield "".
func callReceiver(line, method string) string {
	idx := strings.Index(line, "."+method+"(")
	if idx < 0 {
		return ""
	}
	start := idx
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	if start > 0 && line[start-1] == '.' {
		return ""
	}
	return line[start:idx]
}

func macroMethodOn(line string) string {
	idx := strings.Index(line, ".newMacroProperty")
	if idx < 0 {
		return ""
	}
	end := idx + 1
	for end < len(line) && isIdentChar(line[end]) {
		end++
	}
	if end >= len(line) || line[end] != '(' {
		return ""
	}
	return line[idx+1 : end]
}

func stringArg(args []string, idx int) (string, bool) {
	if idx >= len(args) {
		return "", false
	}
	s := strings.TrimSpace(args[idx])
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return s[0] < '0' || s[0] > '9'
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func stripBrackets(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	}
	return trimmed
}

func inferGlobalType(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "True" || v == "False" {
		return model.TypeInt
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return model.TypeInt
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return model.TypeFloat
	}
	inner := v
	isList := strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") ||
		strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")")
	if isList {
		inner = strings.TrimSpace(v[1 : len(v)-1])
	}
	if parts := strings.Split(inner, ","); isList || len(parts) > 1 {
		numeric := len(parts) > 0
		allInt := true
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if _, err := strconv.ParseInt(p, 10, 64); err == nil {
				continue
			}
			if _, err := strconv.ParseFloat(p, 64); err == nil {
				allInt = false
				continue
			}
			numeric = false
		}
		if numeric {
			if allInt {
				return model.TypeArrayInt
			}
			return model.TypeArrayFloat
		}
		if isList {
			return model.TypeArrayFloat
		}
	}
	return model.DefaultVarType
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
