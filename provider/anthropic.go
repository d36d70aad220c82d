package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"canopy/stream"
)

const (
	defaultAnthropicBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
)

// supportedAnthropicPrefixes gates model ids before any network call.
// Most specific prefixes first.
var supportedAnthropicPrefixes = []string{
	"claude-sonnet-4",
	"claude-opus-4",
	"claude-haiku-4",
	"claude-3-7",
	"claude-3-5",
	"claude-3",
}

// AnthropicAdapter speaks the Anthropic messages protocol.
type AnthropicAdapter struct {
	baseURL string
	apiKey  string
	model   string
}

// NewAnthropicAdapter creates an adapter for the Anthropic API.
func NewAnthropicAdapter(baseURL, apiKey, model string) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// BuildRequest implements Adapter.BuildRequest. System-role messages are
// pulled out of the message list and concatenated (blank-line separated, in
// order) into the top-level system field. Unsupported model ids fail here,
// before any network call.
func (a *AnthropicAdapter) BuildRequest(opts RequestOptions) (*HTTPRequest, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}
	if !anthropicModelSupported(model) {
		return nil, fmt.Errorf("unsupported Anthropic model: %q", model)
	}

	var systemParts []string
	messages := make([]anthropicMessage, 0, len(opts.Messages))
	for _, msg := range opts.Messages {
		if msg.Role == RoleSystem {
			systemParts = append(systemParts, messageText(msg))
			continue
		}
		messages = append(messages, anthropicMessage{
			Role:    msg.Role,
			Content: anthropicContent(msg),
		})
	}

	maxTokens := defaultAnthropicMaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		System:      strings.Join(systemParts, "\n\n"),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Stream:      opts.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if opts.Stream {
		headers["Accept"] = "text/event-stream"
	}

	return &HTTPRequest{
		URL:     a.baseURL + "/messages",
		Body:    body,
		Headers: headers,
	}, nil
}

func anthropicModelSupported(model string) bool {
	for _, prefix := range supportedAnthropicPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func anthropicContent(msg Message) any {
	if len(msg.Parts) == 0 {
		return msg.Text
	}
	parts := make([]map[string]any, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p.ImageData != "" {
			parts = append(parts, map[string]any{
				"type": "image",
				"source": map[string]any{
					"type":       "base64",
					"media_type": p.MimeType,
					"data":       p.ImageData,
				},
			})
			continue
		}
		parts = append(parts, map[string]any{"type": "text", "text": p.Text})
	}
	return parts
}

func messageText(msg Message) string {
	if len(msg.Parts) == 0 {
		return msg.Text
	}
	var b strings.Builder
	for _, p := range msg.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ParseResponse implements Adapter.ParseResponse. Text is the concatenation
// of all text content blocks.
func (a *AnthropicAdapter) ParseResponse(data []byte) (Response, error) {
	obj, ok, err := decodeObject(data)
	if err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}
	if !ok {
		return defaultResponse("stop"), nil
	}

	model, ok := stringField(obj, "model")
	if !ok {
		model = unknownModel
	}

	var text strings.Builder
	for _, block := range arrayField(obj, "content") {
		blockObj, _ := block.(map[string]any)
		if kind, _ := stringField(blockObj, "type"); kind != "text" {
			continue
		}
		if s, ok := stringField(blockObj, "text"); ok {
			text.WriteString(s)
		}
	}

	finish := "stop"
	switch reason, _ := stringField(obj, "stop_reason"); reason {
	case "", "end_turn":
	case "max_tokens":
		finish = "length"
	default:
		finish = reason
	}

	return Response{Text: text.String(), FinishReason: finish, Model: model}, nil
}

// StreamDecoder implements Adapter.StreamDecoder.
func (a *AnthropicAdapter) StreamDecoder(r io.Reader) stream.Decoder {
	return stream.NewAnthropicDecoder(r)
}
