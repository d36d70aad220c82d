package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"canopy/stream"
)

const defaultRequestTimeout = 5 * time.Minute

// Client executes adapter-built requests over HTTP. The adapters own the
// wire shapes; the client owns reachability, status handling and stream
// plumbing.
type Client struct {
	adapter    Adapter
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		adapter:    adapter,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        log,
	}, nil
}

// NewClientWithAdapter wires an explicit adapter; used by tests.
func NewClientWithAdapter(adapter Adapter, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		adapter:    adapter,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        log,
	}
}

// Complete performs one non-streaming completion call.
func (c *Client) Complete(ctx context.Context, opts RequestOptions) (Response, error) {
	opts.Stream = false
	resp, err := c.do(ctx, opts)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("completion finished",
		zap.String("model", opts.Model),
		zap.Int("response_bytes", len(body)))

	return c.adapter.ParseResponse(body)
}

// Stream performs one streaming completion call. The returned closer must be
// called once the decoder is drained or abandoned; closing it is also how a
// caller stops chunk delivery after cancellation.
func (c *Client) Stream(ctx context.Context, opts RequestOptions) (stream.Decoder, io.Closer, error) {
	opts.Stream = true
	resp, err := c.do(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return c.adapter.StreamDecoder(resp.Body), resp.Body, nil
}

func (c *Client) do(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	wire, err := c.adapter.BuildRequest(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wire.URL, bytes.NewReader(wire.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range wire.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		resp.Body.Close()
		c.log.Debug("upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("url", wire.URL))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
