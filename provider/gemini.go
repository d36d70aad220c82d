package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"canopy/stream"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAdapter speaks the Gemini generateContent protocol.
type GeminiAdapter struct {
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiAdapter creates an adapter for the Gemini API.
func NewGeminiAdapter(baseURL, apiKey, model string) *GeminiAdapter {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type geminiPart map[string]any

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// BuildRequest implements Adapter.BuildRequest. Gemini has no system role:
// system messages are folded into user-role turns, and "assistant" maps to
// "model". The streaming and non-streaming endpoints differ only by URL
// suffix. generationConfig carries only the keys that were actually
// supplied.
func (a *GeminiAdapter) BuildRequest(opts RequestOptions) (*HTTPRequest, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	contents := make([]geminiContent, len(opts.Messages))
	for i, msg := range opts.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents[i] = geminiContent{Role: role, Parts: geminiParts(msg)}
	}

	req := geminiRequest{Contents: contents}
	if opts.Temperature != nil || opts.MaxTokens != nil {
		req.GenerationConfig = &geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.baseURL, model, url.QueryEscape(a.apiKey))
	if opts.Stream {
		endpoint = fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
			a.baseURL, model, url.QueryEscape(a.apiKey))
	}

	return &HTTPRequest{
		URL:     endpoint,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	}, nil
}

func geminiParts(msg Message) []geminiPart {
	if len(msg.Parts) == 0 {
		return []geminiPart{{"text": msg.Text}}
	}
	parts := make([]geminiPart, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p.ImageData != "" {
			parts = append(parts, geminiPart{
				"inline_data": map[string]any{
					"mime_type": p.MimeType,
					"data":      p.ImageData,
				},
			})
			continue
		}
		parts = append(parts, geminiPart{"text": p.Text})
	}
	return parts
}

// ParseResponse implements Adapter.ParseResponse. All parts of the first
// candidate are joined into the response text.
func (a *GeminiAdapter) ParseResponse(data []byte) (Response, error) {
	obj, ok, err := decodeObject(data)
	if err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}
	if !ok {
		return defaultResponse("stop"), nil
	}

	model, ok := stringField(obj, "modelVersion")
	if !ok {
		model = unknownModel
	}

	candidate := firstObject(arrayField(obj, "candidates"))
	content := objectField(candidate, "content")

	var text strings.Builder
	for _, part := range arrayField(content, "parts") {
		partObj, _ := part.(map[string]any)
		if s, ok := stringField(partObj, "text"); ok {
			text.WriteString(s)
		}
	}

	finish := "stop"
	switch reason, _ := stringField(candidate, "finishReason"); reason {
	case "", "STOP":
	case "MAX_TOKENS":
		finish = "length"
	default:
		finish = strings.ToLower(reason)
	}

	return Response{Text: text.String(), FinishReason: finish, Model: model}, nil
}

// StreamDecoder implements Adapter.StreamDecoder.
func (a *GeminiAdapter) StreamDecoder(r io.Reader) stream.Decoder {
	return stream.NewGeminiDecoder(r)
}
