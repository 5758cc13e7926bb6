package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider drafts through the Chat Completions structured output
// API. Response schemas are reflected from the provider types so the
// model cannot return anything the merge step does not understand.
type OpenAIProvider struct {
	apiKey string
	model  string
	client *openai.Client
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{apiKey: strings.TrimSpace(apiKey), model: strings.TrimSpace(model)}
}

// ErrNoAPIKey is returned by providers that need a key before any
// request is attempted. Callers route it to the settings screen.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// Schemas are reflected once at init, the types never change at runtime.
var (
	draftSchema    = generateSchema[DraftResponse]()
	wiringSchema   = generateSchema[WiringResponse]()
	describeSchema = generateSchema[DescribeResponse]()
)

// generateSchema builds the Structured Outputs subset of JSON schema.
func generateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func (p *OpenAIProvider) ensureClient() error {
	if strings.TrimSpace(p.apiKey) == "" {
		return ErrNoAPIKey
	}
	if p.client == nil {
		p.client = openai.NewClient(option.WithAPIKey(p.apiKey))
	}
	return nil
}

func (p *OpenAIProvider) SetAPIKey(key string) {
	p.apiKey = strings.TrimSpace(key)
	p.client = nil
}

func (p *OpenAIProvider) SetModel(model string) {
	p.model = strings.TrimSpace(model)
}

func (p *OpenAIProvider) DraftModel(ctx context.Context, req DraftRequest) (DraftResponse, error) {
	if err := p.ensureClient(); err != nil {
		return DraftResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	payload, _ := json.Marshal(req)
	system := "You design FLAME GPU 2 agent based models. From the description, propose agent types with variables (include x, y, z for positioned agents), agent functions, environment globals, execution layers and message wiring. Use only the listed type names. Function references are Agent::function."
	respText, err := p.structuredCompletion(ctx, "model_draft", "A drafted agent based model", system, "Input JSON:\n"+string(payload), draftSchema)
	if err != nil {
		return DraftResponse{}, err
	}
	var out DraftResponse
	if err := decodeJSON(respText, &out); err != nil {
		return DraftResponse{}, fmt.Errorf("openai: parse draft: %w", err)
	}
	return out, nil
}

func (p *OpenAIProvider) SuggestWiring(ctx context.Context, req WiringRequest) (WiringResponse, error) {
	if err := p.ensureClient(); err != nil {
		return WiringResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	payload, _ := json.Marshal(req)
	system := "You wire FLAME GPU 2 message passing. For every function whose input_type is not MessageNone and which no existing connection feeds, pick a source function with a matching output_type. Never invent function ids."
	respText, err := p.structuredCompletion(ctx, "wiring_proposal", "Connections covering unwired inputs", system, "Input JSON:\n"+string(payload), wiringSchema)
	if err != nil {
		return WiringResponse{}, err
	}
	var out WiringResponse
	if err := decodeJSON(respText, &out); err != nil {
		return WiringResponse{}, fmt.Errorf("openai: parse wiring: %w", err)
	}
	return out, nil
}

func (p *OpenAIProvider) DescribeFunction(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	if err := p.ensureClient(); err != nil {
		return DescribeResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	payload, _ := json.Marshal(req)
	system := "You document FLAME GPU 2 agent functions. Write one or two plain sentences describing what the function does given its message input and output types."
	respText, err := p.structuredCompletion(ctx, "function_description", "A description for one agent function", system, "Input JSON:\n"+string(payload), describeSchema)
	if err != nil {
		return DescribeResponse{}, err
	}
	var out DescribeResponse
	if err := decodeJSON(respText, &out); err != nil {
		return DescribeResponse{}, fmt.Errorf("openai: parse description: %w", err)
	}
	return out, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	if err := p.ensureClient(); err != nil {
		return nil, err
	}
	// Static shortlist of models supporting structured outputs.
	return []string{
		"gpt-4o-2024-08-06",
		"gpt-4o-mini",
		"gpt-4o",
	}, nil
}

func (p *OpenAIProvider) structuredCompletion(ctx context.Context, name, description, system, user string, schema interface{}) (string, error) {
	model := p.model
	if model == "" {
		model = openai.ChatModelGPT4o2024_08_06
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        openai.F(name),
		Description: openai.F(description),
		Schema:      openai.F(schema),
		Strict:      openai.Bool(true),
	}

	chat, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONSchemaParam{
				Type:       openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
				JSONSchema: openai.F(schemaParam),
			},
		),
		Model: openai.F(openai.ChatModel(model)),
	})
	if err != nil {
		return "", err
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}

func decodeJSON(text string, out interface{}) error {
	trimmed := strings.TrimSpace(text)
	// Models occasionally wrap JSON in a fenced block despite the
	// response format.
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(trimmed)), out)
}
