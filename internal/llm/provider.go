// Package llm drafts model structure from plain language descriptions.
// Providers return proposals only, the editor merges nothing without
// the user confirming.
package llm

import "context"

// LLMProvider defines methods used by services.
type LLMProvider interface {
	DraftModel(ctx context.Context, req DraftRequest) (DraftResponse, error)
	SuggestWiring(ctx context.Context, req WiringRequest) (WiringResponse, error)
	DescribeFunction(ctx context.Context, req DescribeRequest) (DescribeResponse, error)
}

// DraftRequest asks for a starting model from a prose description.
type DraftRequest struct {
	Description string `json:"description"`
	MaxAgents   int    `json:"max_agents"`
}

// DraftResponse mirrors the editable parts of a model configuration.
// The jsonschema descriptions feed the structured output schema.
type DraftResponse struct {
	ModelName   string            `json:"model_name" jsonschema_description:"Short snake_case name for the simulation model"`
	Summary     string            `json:"summary" jsonschema_description:"One sentence describing the drafted model"`
	Agents      []DraftAgent      `json:"agents" jsonschema_description:"The agent types of the model"`
	Globals     []DraftGlobal     `json:"globals" jsonschema_description:"Environment properties shared by all agents"`
	Layers      []DraftLayer      `json:"layers" jsonschema_description:"Execution layers in run order"`
	Connections []DraftConnection `json:"connections" jsonschema_description:"Message wiring between agent functions"`
}

type DraftAgent struct {
	Name      string          `json:"name" jsonschema_description:"Agent type name, a valid identifier"`
	Variables []DraftVariable `json:"variables" jsonschema_description:"Per agent state variables"`
	Functions []DraftFunction `json:"functions" jsonschema_description:"Agent functions executed each step"`
}

type DraftVariable struct {
	Name    string `json:"name" jsonschema_description:"Variable name, a valid identifier"`
	Default string `json:"default" jsonschema_description:"Default value literal"`
	Type    string `json:"var_type" jsonschema_description:"One of Float, Int, UInt8, ArrayFloat, ArrayInt, ArrayUInt"`
	Logging string `json:"logging" jsonschema_description:"One of None, Mean, Min, Max, Sum, Std"`
}

type DraftFunction struct {
	Name        string `json:"name" jsonschema_description:"Function name, a valid identifier"`
	Description string `json:"description" jsonschema_description:"What the function does"`
	InputType   string `json:"input_type" jsonschema_description:"One of MessageNone, MessageSpatial3D, MessageArray3D, MessageBucket"`
	OutputType  string `json:"output_type" jsonschema_description:"One of MessageNone, MessageSpatial3D, MessageArray3D, MessageBucket"`
}

type DraftGlobal struct {
	Name    string `json:"name" jsonschema_description:"Global name, conventionally UPPER_CASE"`
	Value   string `json:"value" jsonschema_description:"Value literal"`
	Type    string `json:"var_type" jsonschema_description:"One of Float, Int, UInt8, ArrayFloat, ArrayInt, ArrayUInt"`
	IsMacro bool   `json:"is_macro" jsonschema_description:"True for mutable macro properties"`
}

type DraftLayer struct {
	Name        string   `json:"name" jsonschema_description:"Layer name"`
	FunctionIDs []string `json:"function_ids" jsonschema_description:"Function references as Agent::function in execution order"`
}

type DraftConnection struct {
	Src  string `json:"src" jsonschema_description:"Sending function as Agent::function"`
	Dst  string `json:"dst" jsonschema_description:"Receiving function as Agent::function"`
	Type string `json:"type" jsonschema_description:"Message type carried by the connection"`
}

// WiringRequest asks for connections covering unwired message inputs.
type WiringRequest struct {
	Functions   []FunctionSignature `json:"functions"`
	Connections []DraftConnection   `json:"connections"`
}

type FunctionSignature struct {
	ID         string `json:"id" jsonschema_description:"Function reference as Agent::function"`
	InputType  string `json:"input_type"`
	OutputType string `json:"output_type"`
}

type WiringResponse struct {
	Connections []DraftConnection `json:"connections" jsonschema_description:"Proposed connections for unwired inputs"`
	Reasoning   string            `json:"reasoning" jsonschema_description:"Why these sources were chosen"`
}

// DescribeRequest asks for a description of one agent function.
type DescribeRequest struct {
	FunctionID   string `json:"function_id"`
	InputType    string `json:"input_type"`
	OutputType   string `json:"output_type"`
	ModelSummary string `json:"model_summary"`
}

type DescribeResponse struct {
	Description string `json:"description" jsonschema_description:"One or two sentences describing the function"`
}
