package scaffold

import (
	"fmt"

	"abmconf/internal/model"
)

// renderFunctionSource fills a function template for one agent
// function. sourceAgent is the agent feeding the input message, nil
// when the function is not wired to any source.
func renderFunctionSource(template string, agent model.AgentType, fn model.AgentFunction, sourceAgent *model.AgentType) string {
	replacements := []replacement{
		{"[PLACEHOLDER_FUNCTION_NAME]", fn.Name},
		{"[PLACEHOLDER_INPUT_MESSAGE]", orMessageNone(fn.InputType)},
		{"[PLACEHOLDER_OUTPUT_MESSAGE]", orMessageNone(fn.OutputType)},
		{"[PLACEHOLDER_GET_AGENT_VARS]", renderAgentVariableGetters(agent)},
		{"[PLACEHOLDER_SET_AGENT_VARS]", renderAgentVariableSetters(agent)},
		{"[PLACE_HODER_MESSAGE_OUTPUT]", renderMessageOutput(agent, orMessageNone(fn.OutputType))},
		{"[PLACEHOLDER_GET_MESSAGE_VARS]", renderMessageVariableGetters(sourceAgent, orMessageNone(fn.InputType))},
	}
	return applyReplacements(template, replacements)
}

func orMessageNone(t string) string {
	if t == "" {
		return model.MessageNone
	}
	return t
}

func renderAgentVariableGetters(agent model.AgentType) string {
	var lines []string
	for _, v := range agent.Variables {
		if v.Name == "" {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		if model.IsArrayType(varType) {
			lines = append(lines, arrayGetterBlock(v.Name, arrayElementType(varType))...)
		} else {
			cppType := cppTypeFor(varType)
			lines = append(lines, fmt.Sprintf("%s agent_%s = FLAMEGPU->getVariable<%s>(%q);", cppType, v.Name, cppType, v.Name))
		}
	}
	return indentLines(lines)
}

func renderAgentVariableSetters(agent model.AgentType) string {
	var lines []string
	for _, v := range agent.Variables {
		if v.Name == "" {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		if model.IsArrayType(varType) {
			lines = append(lines, arraySetterBlock(v.Name, arrayElementType(varType))...)
		} else {
			cppType := cppTypeFor(varType)
			lines = append(lines, fmt.Sprintf("FLAMEGPU->setVariable<%s>(%q, agent_%s);", cppType, v.Name, v.Name))
		}
	}
	return indentLines(lines)
}

// renderMessageOutput publishes every agent variable onto the output
// message. The emitted code is intentionally exhaustive so the user
// can delete what they do not need.
func renderMessageOutput(agent model.AgentType, outputType string) string {
	if outputType == model.MessageNone {
		return ""
	}
	var lines []string
	for _, v := range agent.Variables {
		if v.Name == "" {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		if model.IsArrayType(varType) {
			elem := arrayElementType(varType)
			lines = append(lines,
				"// Agent array variables",
				fmt.Sprintf("const uint8_t %s_ARRAY_SIZE = ?; // WARNING: this variable must be hard coded to have the same value as the one defined in the main python function.", v.Name),
				"",
				fmt.Sprintf("for (int i = 0; i < %s_ARRAY_SIZE; i++) {", v.Name),
				fmt.Sprintf("  %s ncol = FLAMEGPU->getVariable<%s, %s_ARRAY_SIZE>(%q, i);", elem, elem, v.Name, v.Name),
				fmt.Sprintf("  FLAMEGPU->message_out.setVariable<%s, %s_ARRAY_SIZE>(%q, i, ncol);", elem, v.Name, v.Name),
				"}",
			)
		} else {
			cppType := cppTypeFor(varType)
			lines = append(lines, fmt.Sprintf("FLAMEGPU->message_out.setVariable<%s>(%q, FLAMEGPU->getVariable<%s>(%q));", cppType, v.Name, cppType, v.Name))
		}
	}
	return indentLines(lines)
}

// renderMessageVariableGetters declares locals for the sender's
// variables and loops over the incoming messages to fill them.
func renderMessageVariableGetters(sourceAgent *model.AgentType, inputType string) string {
	if inputType == model.MessageNone {
		return ""
	}

	lines := []string{"//Define message variables (agent sending the input message)"}
	var messageVars []model.AgentVariable
	if sourceAgent != nil {
		messageVars = sourceAgent.Variables
	}
	hasConnection := sourceAgent != nil

	for _, v := range messageVars {
		if v.Name == "" {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		if model.IsArrayType(varType) {
			elem := arrayElementType(varType)
			lines = append(lines,
				fmt.Sprintf("const uint8_t message_%s_ARRAY_SIZE = ?; // WARNING: this variable must be hard coded to have the same value as the one defined in the main python function.", v.Name),
				fmt.Sprintf("%s message_%s[message_%s_ARRAY_SIZE] = {};", elem, v.Name, v.Name),
			)
		} else {
			cppType := cppTypeFor(varType)
			lines = append(lines, fmt.Sprintf("%s message_%s = %s;", cppType, v.Name, defaultCppValue(cppType)))
		}
	}

	if len(lines) == 1 {
		if !hasConnection {
			lines = append(lines, "// WARNING: this function is not currently wired to any message source")
		}
		lines = append(lines, "// TODO: initialise message variables as needed")
	}

	lines = append(lines, "", "//Loop through all agents sending input messages", messageIterationHeader(inputType))

	var loopBody []string
	for _, v := range messageVars {
		if v.Name == "" {
			continue
		}
		varType := varTypeOrDefault(v.Type)
		if model.IsArrayType(varType) {
			elem := arrayElementType(varType)
			loopBody = append(loopBody,
				fmt.Sprintf("  for (int i = 0; i < message_%s_ARRAY_SIZE; i++) {", v.Name),
				fmt.Sprintf("    message_%s[i] = message.getVariable<%s, message_%s_ARRAY_SIZE>(%q, i);", v.Name, elem, v.Name, v.Name),
				"  }",
			)
		} else {
			cppType := cppTypeFor(varType)
			loopBody = append(loopBody, fmt.Sprintf("  message_%s = message.getVariable<%s>(%q);", v.Name, cppType, v.Name))
		}
	}
	if len(loopBody) == 0 {
		if !hasConnection {
			loopBody = append(loopBody, "  // WARNING: this function is not currently wired to any message source")
		}
		loopBody = append(loopBody, "  // TODO: process incoming message data")
	}

	lines = append(lines, loopBody...)
	lines = append(lines, "}")
	return indentLines(lines)
}

func arrayGetterBlock(name, elementType string) []string {
	return []string{
		"// Agent array variables",
		fmt.Sprintf("const uint8_t %s_ARRAY_SIZE = ?; // WARNING: this variable must be hard coded to have the same value as the one defined in the main python function.", name),
		fmt.Sprintf("%s %s[%s_ARRAY_SIZE] = {};", elementType, name, name),
		fmt.Sprintf("for (int i = 0; i < %s_ARRAY_SIZE; i++) {", name),
		fmt.Sprintf("  %s[i] = FLAMEGPU->getVariable<%s, %s_ARRAY_SIZE>(%q, i);", name, elementType, name, name),
		"}",
	}
}

func arraySetterBlock(name, elementType string) []string {
	return []string{
		"// Agent array variables",
		fmt.Sprintf("const uint8_t %s_ARRAY_SIZE = ?; // WARNING: this variable must be hard coded to have the same value as the one defined in the main python function.", name),
		"",
		fmt.Sprintf("for (int i = 0; i < %s_ARRAY_SIZE; i++) {", name),
		fmt.Sprintf("  FLAMEGPU->setVariable<%s, %s_ARRAY_SIZE>(%q, i, %s[i]);", elementType, name, name, name),
		"}",
	}
}

func messageIterationHeader(messageType string) string {
	switch messageType {
	case model.MessageSpatial3D:
		return "for (const auto &message : FLAMEGPU->message_in(agent_x, agent_y, agent_z)) {"
	case model.MessageArray3D:
		return "for (const auto &message : FLAMEGPU->message_in(/* TODO: provide grid coordinates */)) {"
	case model.MessageBucket:
		return "for (const auto &message : FLAMEGPU->message_in(/* TODO: provide bucket index */)) {"
	}
	return "for (const auto &message : FLAMEGPU->message_in()) {"
}
