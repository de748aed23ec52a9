package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	Auth  string
	Model string
	Body  string
}

func newGroqServer(t *testing.T, status int, body string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if got != nil {
			got.Auth = r.Header.Get("Authorization")
			got.Model = req.Model
			if len(req.Messages) > 0 {
				got.Body = req.Messages[0].Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGroq_Invoke(t *testing.T) {
	var got capturedRequest
	srv := newGroqServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "  fabricated  "}, "finish_reason": "stop"}]
	}`, &got)

	g := NewGroq("gsk_test", "meta-llama/llama-4-scout-17b-16e-instruct", Options{BaseURL: srv.URL + "/openai/v1"})
	reply, err := g.Invoke(context.Background(), "hello prompt")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if reply.Message == nil || reply.Message.Content != "  fabricated  " {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if got.Auth != "Bearer gsk_test" {
		t.Errorf("expected bearer auth, got %q", got.Auth)
	}
	if got.Model != "meta-llama/llama-4-scout-17b-16e-instruct" {
		t.Errorf("unexpected model %q", got.Model)
	}
	if got.Body != "hello prompt" {
		t.Errorf("prompt not sent verbatim, got %q", got.Body)
	}
	if g.Model() != got.Model {
		t.Errorf("Model() should report the bound model")
	}
}

func TestGroq_InvokeAPIError(t *testing.T) {
	srv := newGroqServer(t, http.StatusInternalServerError,
		`{"error": {"message": "timeout", "type": "server_error"}}`, nil)

	g := NewGroq("gsk_test", "m", Options{BaseURL: srv.URL})
	_, err := g.Invoke(context.Background(), "x")
	if err == nil {
		t.Fatalf("expected error from failing endpoint")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error should carry the remote message, got %v", err)
	}
}

func TestGroq_InvokeNoChoices(t *testing.T) {
	srv := newGroqServer(t, http.StatusOK, `{"id": "x", "choices": []}`, nil)

	g := NewGroq("gsk_test", "m", Options{BaseURL: srv.URL})
	_, err := g.Invoke(context.Background(), "x")
	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}
