package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrToolsUnsupported is returned by ToolSession.Next when the configured
// model rejects the tool-calling protocol. Callers are expected to fall back
// to a plain completion.
var ErrToolsUnsupported = errors.New("model does not support tool calls")

// Message represents a chat message exchanged with the completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes the expected JSON output structure for structured responses.
type Schema struct {
	Name       string
	Properties map[string]SchemaProperty
	Required   []string
}

// SchemaProperty describes a single field within a Schema.
type SchemaProperty struct {
	Type        string
	Description string
}

// ToolDef declares a callable tool offered to the model.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a model-initiated request to invoke a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Turn is the outcome of one round of a tool session: either text content or
// a batch of tool calls to execute.
type Turn struct {
	Text      string
	ToolCalls []ToolCall
}

// Client talks to an OpenAI-compatible chat completion endpoint. Structured
// output and tool calling are attempted optimistically and downgraded at
// runtime when the provider rejects them.
type Client struct {
	oa    openai.Client
	model string

	structuredOK atomic.Bool
	toolsOK      atomic.Bool
}

// New creates a Client for the given model. baseURL may be empty for the
// default OpenAI endpoint.
func New(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := &Client{
		oa:    openai.NewClient(opts...),
		model: model,
	}
	c.structuredOK.Store(true)
	c.toolsOK.Store(true)
	return c
}

// SupportsTools reports whether the provider is still believed to accept the
// tool-calling protocol. Starts true; flips false after a rejection.
func (c *Client) SupportsTools() bool {
	return c.toolsOK.Load()
}

// Complete sends instructions plus messages and returns the assistant text.
// When schema is non-nil the response is requested in structured JSON mode;
// if the provider rejects structured mode the call is retried as free text
// and structured mode is disabled for the rest of the process lifetime.
func (c *Client) Complete(ctx context.Context, instructions string, msgs []Message, schema *Schema) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildMessages(instructions, msgs),
	}

	if schema != nil && c.structuredOK.Load() {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schema.Name,
					Strict: openai.Bool(true),
					Schema: schema.jsonSchema(),
				},
			},
		}
		resp, err := c.oa.Chat.Completions.New(ctx, params)
		if err == nil {
			return firstContent(resp)
		}
		if !isBadRequestMentioning(err, "response_format") {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		c.structuredOK.Store(false)
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{}
	}

	resp, err := c.oa.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return firstContent(resp)
}

// ToolSession carries the growing conversation of a tool-calling exchange.
type ToolSession struct {
	c      *Client
	params openai.ChatCompletionNewParams
}

// NewToolSession starts a tool-calling conversation with the given tools
// registered. The caller drives rounds via Next and feeds results back via
// AddToolResult.
func (c *Client) NewToolSession(instructions string, msgs []Message, tools []ToolDef) *ToolSession {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildMessages(instructions, msgs),
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return &ToolSession{c: c, params: params}
}

// Next sends the conversation and returns the model's turn. The assistant
// message is appended to the session history so tool results can follow it.
func (s *ToolSession) Next(ctx context.Context) (Turn, error) {
	resp, err := s.c.oa.Chat.Completions.New(ctx, s.params)
	if err != nil {
		if isBadRequestMentioning(err, "tool") {
			s.c.toolsOK.Store(false)
			return Turn{}, ErrToolsUnsupported
		}
		return Turn{}, fmt.Errorf("tool round: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Turn{}, errors.New("tool round: empty choices")
	}

	msg := resp.Choices[0].Message
	s.params.Messages = append(s.params.Messages, msg.ToParam())

	turn := Turn{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return turn, nil
}

// AddToolResult appends a tool response message for the given call ID.
func (s *ToolSession) AddToolResult(callID, content string) {
	s.params.Messages = append(s.params.Messages, openai.ToolMessage(content, callID))
}

func buildMessages(instructions string, msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if instructions != "" {
		out = append(out, openai.SystemMessage(instructions))
	}
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func firstContent(resp *openai.ChatCompletion) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func isBadRequestMentioning(err error, substr string) bool {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return false
	}
	if apierr.StatusCode != 400 {
		return false
	}
	return strings.Contains(strings.ToLower(apierr.Error()), substr)
}

// jsonSchema renders the Schema as a JSON-schema object map.
func (s *Schema) jsonSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Type == "array" {
			prop["items"] = map[string]any{"type": "string"}
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// StripFence removes a single leading/trailing Markdown code fence from s,
// tolerating a "json" language tag. Content without fences is returned
// trimmed and unchanged.
func StripFence(s string) string {
	out := strings.TrimSpace(s)
	if strings.Contains(out, "```json") {
		rest := strings.SplitN(out, "```json", 2)[1]
		return strings.TrimSpace(strings.SplitN(rest, "```", 2)[0])
	}
	if strings.Contains(out, "```") {
		parts := strings.Split(out, "```")
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return out
}
