package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"canopy/stream"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIAdapter speaks the OpenAI chat-completions protocol. It also serves
// any OpenAI-compatible endpoint (OpenRouter, local servers) via BaseURL.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAIAdapter creates an adapter for an OpenAI-compatible endpoint.
func NewOpenAIAdapter(baseURL, apiKey, model string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// BuildRequest implements Adapter.BuildRequest. The neutral options map onto
// the wire body almost verbatim.
func (a *OpenAIAdapter) BuildRequest(opts RequestOptions) (*HTTPRequest, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	messages := make([]openAIMessage, len(opts.Messages))
	for i, msg := range opts.Messages {
		messages[i] = openAIMessage{Role: msg.Role, Content: openAIContent(msg)}
	}

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      opts.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + a.apiKey,
	}
	if opts.Stream {
		headers["Accept"] = "text/event-stream"
	}

	return &HTTPRequest{
		URL:     a.baseURL + "/chat/completions",
		Body:    body,
		Headers: headers,
	}, nil
}

func openAIContent(msg Message) any {
	if len(msg.Parts) == 0 {
		return msg.Text
	}
	parts := make([]map[string]any, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p.ImageData != "" {
			parts = append(parts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:%s;base64,%s", p.MimeType, p.ImageData),
				},
			})
			continue
		}
		parts = append(parts, map[string]any{"type": "text", "text": p.Text})
	}
	return parts
}

// ParseResponse implements Adapter.ParseResponse. This is the one adapter
// that signals a malformed payload through finishReason "error": when
// choices[0].message.content is not a string the caller still gets a full
// Response, just a flagged one.
func (a *OpenAIAdapter) ParseResponse(data []byte) (Response, error) {
	obj, ok, err := decodeObject(data)
	if err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}
	if !ok {
		return defaultResponse("error"), nil
	}

	model, ok := stringField(obj, "model")
	if !ok {
		model = unknownModel
	}

	choice := firstObject(arrayField(obj, "choices"))
	message := objectField(choice, "message")
	content, ok := stringField(message, "content")
	if !ok {
		return Response{Text: "", FinishReason: "error", Model: model}, nil
	}

	finish, ok := stringField(choice, "finish_reason")
	if !ok {
		finish = "stop"
	}

	return Response{Text: content, FinishReason: finish, Model: model}, nil
}

// StreamDecoder implements Adapter.StreamDecoder.
func (a *OpenAIAdapter) StreamDecoder(r io.Reader) stream.Decoder {
	return stream.NewOpenAIDecoder(r)
}
