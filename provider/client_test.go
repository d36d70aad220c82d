package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		Type:    ProviderTypeOpenAI,
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestClientComplete(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth: got %q", got)
		}
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"pong"},"finish_reason":"stop"}]}`))
	})

	resp, err := client.Complete(context.Background(), RequestOptions{
		Messages: []Message{TextMessage(RoleUser, "ping")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "pong" {
		t.Errorf("text: got %q", resp.Text)
	}
}

func TestClientUpstreamError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
		wantCode      string
	}{
		{"rate limited", http.StatusTooManyRequests, true, "rate_limit"},
		{"server error", http.StatusInternalServerError, true, "upstream"},
		{"unauthorized", http.StatusUnauthorized, false, "auth"},
		{"bad request", http.StatusBadRequest, false, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream said no", tt.status)
			})

			_, err := client.Complete(context.Background(), RequestOptions{
				Messages: []Message{TextMessage(RoleUser, "hi")},
			})
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("got %v, want UpstreamError", err)
			}
			if upstream.Status != tt.status {
				t.Errorf("status: got %d, want %d", upstream.Status, tt.status)
			}
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient: got %v, want %v", IsTransient(err), tt.wantTransient)
			}
			if got := ErrorCode(err); got != tt.wantCode {
				t.Errorf("ErrorCode: got %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestClientNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	client, err := NewClient(Config{
		Type:    ProviderTypeOpenAI,
		BaseURL: srv.URL,
		APIKey:  "k",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Complete(context.Background(), RequestOptions{
		Messages: []Message{TextMessage(RoleUser, "hi")},
	})
	if err == nil {
		t.Fatal("expected network error")
	}
	if !IsTransient(err) {
		t.Errorf("network failure should be transient: %v", err)
	}
	if got := ErrorCode(err); got != "network" {
		t.Errorf("ErrorCode: got %q, want %q", got, "network")
	}
}

func TestClientStream(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"str\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"eam\"}}]}\n" +
			"data: [DONE]\n"))
	})

	decoder, closer, err := client.Stream(context.Background(), RequestOptions{
		Messages: []Message{TextMessage(RoleUser, "hi")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer closer.Close()

	var text string
	for {
		chunk, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if chunk.Done {
			break
		}
		text += chunk.Text
	}
	if text != "stream" {
		t.Errorf("streamed text: got %q, want %q", text, "stream")
	}
}

func TestIsTransientCancellation(t *testing.T) {
	if IsTransient(context.Canceled) {
		t.Error("context.Canceled must not be transient")
	}
	if IsTransient(&url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}) {
		t.Error("a url.Error wrapping cancellation must not be transient")
	}
}
