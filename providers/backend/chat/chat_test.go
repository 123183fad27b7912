package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pmoura/loom/providers/backend"
)

func responseEnvelope(text string) string {
	return `{"id":"resp_test","output":[{"type":"message","content":[{"type":"output_text","text":"` + text + `"}]}]}`
}

// recordedRequest captures what the fake backend saw for one call.
type recordedRequest struct {
	model    string
	hasTools bool
}

func decodeRequest(t *testing.T, r *http.Request) recordedRequest {
	t.Helper()
	var body payload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	return recordedRequest{model: body.Model, hasTools: len(body.Tools) > 0}
}

func TestInvokeSuccess(t *testing.T) {
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, decodeRequest(t, r))
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		w.Write([]byte(responseEnvelope("the composed answer")))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	result, err := adapter.Invoke(context.Background(), backend.Request{
		Prompt: "say something",
		Model:  "gpt-4o",
		APIKey: "key-123",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Kind != backend.OutputText {
		t.Errorf("Expected text output, got %v", result.Kind)
	}
	if result.Text != "the composed answer" {
		t.Errorf("Expected extracted text, got %q", result.Text)
	}
	if len(requests) != 1 || requests[0].model != "gpt-4o" {
		t.Errorf("Expected one request for gpt-4o, got %+v", requests)
	}
}

func TestInvokeModelFallback(t *testing.T) {
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		requests = append(requests, req)
		if req.model == "custom-model" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"The model custom-model does not exist","code":"model_not_found"}}`))
			return
		}
		w.Write([]byte(responseEnvelope("fallback model answered")))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	result, err := adapter.Invoke(context.Background(), backend.Request{
		Prompt: "hello",
		Model:  "custom-model",
		APIKey: "key",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Text != "fallback model answered" {
		t.Errorf("Expected fallback answer, got %q", result.Text)
	}
	if len(requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(requests))
	}
	if requests[0].model != "custom-model" || requests[1].model != "gpt-5" {
		t.Errorf("Expected requested model first then gpt-5, got %+v", requests)
	}
}

func TestInvokeRateLimitStopsChain(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached for requests"}}`))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	_, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "hello", APIKey: "key"})

	if !errors.Is(err, backend.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected fallback chain to stop after 1 call, got %d", calls)
	}
}

func TestInvokeSafetyBlockIsFatal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Your request was rejected by the content_policy"}}`))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	_, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "hello", APIKey: "key"})

	if !errors.Is(err, backend.ErrSafetyBlocked) {
		t.Errorf("Expected ErrSafetyBlocked, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestInvokeSearchToolDegradation(t *testing.T) {
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		requests = append(requests, req)
		if req.hasTools {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"The web_search tool is not supported with this model"}}`))
			return
		}
		w.Write([]byte(responseEnvelope("answered without the tool")))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	result, err := adapter.Invoke(context.Background(), backend.Request{
		Prompt: "look this up",
		Model:  "gpt-4o",
		APIKey: "key",
		Mode:   ModeSearch,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Text != "answered without the tool" {
		t.Errorf("Expected degraded answer, got %q", result.Text)
	}
	if len(requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(requests))
	}
	if !requests[0].hasTools || requests[1].hasTools {
		t.Errorf("Expected tool on first request only, got %+v", requests)
	}
	if requests[0].model != requests[1].model {
		t.Errorf("Expected same model on degraded retry, got %+v", requests)
	}
}

func TestInvokeAllModelsExhausted(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	_, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "hello", APIKey: "key"})

	if err == nil || !strings.Contains(err.Error(), "all candidate models failed") {
		t.Errorf("Expected exhaustion error, got %v", err)
	}
	if !errors.Is(err, backend.ErrModelUnavailable) {
		t.Errorf("Expected wrapped ErrModelUnavailable, got %v", err)
	}
	if calls != len(defaultModels) {
		t.Errorf("Expected %d calls, got %d", len(defaultModels), calls)
	}
}

func TestInvokeUnparseableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"resp_only_metadata","status":"completed"}`))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL)
	_, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "hello", APIKey: "key"})

	if !errors.Is(err, backend.ErrUnparseable) {
		t.Errorf("Expected ErrUnparseable, got %v", err)
	}
}

func TestInvokeConfigErrors(t *testing.T) {
	adapter := New()

	var configErr *backend.ConfigError
	if _, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "hello"}); !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigError for missing API key, got %v", err)
	}
	if _, err := adapter.Invoke(context.Background(), backend.Request{APIKey: "key", Prompt: "   "}); !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigError for empty prompt, got %v", err)
	}
}
