// Package provider normalizes three incompatible chat-completion protocols
// (OpenAI-compatible, Anthropic, Gemini) into one request/response model.
//
// Canopy talks to multiple LLM vendors through a common Adapter interface so
// the orchestration logic stays provider-agnostic. An adapter translates the
// vendor-neutral RequestOptions into that vendor's wire shape (URL, body,
// headers) and translates a non-streaming response body back into the
// neutral Response. Streaming responses are handed to the matching decoder
// in the stream package.
//
// Response parsing is total: a structurally off-shape payload produces a
// Response with safe defaults rather than an error. Only literally
// unparsable bytes fail. Network reachability and HTTP status handling are
// the Client's concern, not the adapters'.
package provider

import (
	"io"

	"canopy/stream"
)

// ProviderType identifies the adapter implementation.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeGemini    ProviderType = "gemini"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string
}

// Message roles shared by all adapters.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one element of a multi-part message: either text or an
// inline image.
type ContentPart struct {
	Text      string
	ImageData string // base64-encoded image payload
	MimeType  string
}

// Message is a vendor-neutral chat message. When Parts is non-empty it takes
// precedence over Text. Messages are constructed per request and never
// persisted.
type Message struct {
	Role  string
	Text  string
	Parts []ContentPart
}

// TextMessage is a convenience constructor for plain-text messages.
func TextMessage(role, text string) Message {
	return Message{Role: role, Text: text}
}

// RequestOptions describes one outbound completion call.
type RequestOptions struct {
	Provider    ProviderType
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

// Response is the vendor-neutral completion result. All fields are always
// populated; parse paths that cannot recover a field substitute the safe
// defaults ("", "stop"/"error", "unknown").
type Response struct {
	Text         string
	FinishReason string
	Model        string
}

// HTTPRequest is the fully built wire request for one adapter call.
type HTTPRequest struct {
	URL     string
	Body    []byte
	Headers map[string]string
}

// Adapter translates between the neutral model and one vendor protocol.
type Adapter interface {
	// BuildRequest renders opts into the vendor wire shape. It fails only
	// for input the vendor can never accept (e.g. an unsupported model id);
	// it performs no I/O.
	BuildRequest(opts RequestOptions) (*HTTPRequest, error)

	// ParseResponse decodes a non-streaming response body. It returns an
	// error only for bytes that are not JSON at all; any off-shape but
	// parsable payload yields a safe-default Response.
	ParseResponse(data []byte) (Response, error)

	// StreamDecoder wraps a streaming response body in this vendor's SSE
	// decoder.
	StreamDecoder(r io.Reader) stream.Decoder
}

const unknownModel = "unknown"

// defaultResponse is the safe fallback for off-shape payloads. The OpenAI
// adapter overrides finishReason to "error" for its malformed-payload case.
func defaultResponse(finishReason string) Response {
	return Response{Text: "", FinishReason: finishReason, Model: unknownModel}
}
