package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pmoura/loom/providers/backend"
)

func testAdapter(serverURL string) *Adapter {
	return New().WithBaseURL(serverURL).WithPollPolicy(time.Millisecond, 5)
}

func TestInvokeReturnsVideoURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"vid-1","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"vid-1","status":"completed","result":{"url":"https://cdn.example.com/vid-1.mp4"}}`))
	}))
	defer server.Close()

	result, err := testAdapter(server.URL).Invoke(context.Background(), backend.Request{
		Prompt: "a drone shot of a coastline",
		APIKey: "key",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Kind != backend.OutputText {
		t.Errorf("Expected text output kind, got %v", result.Kind)
	}
	if result.Text != "https://cdn.example.com/vid-1.mp4" {
		t.Errorf("Expected video URL, got %q", result.Text)
	}
}

func TestInvokeModelFallback(t *testing.T) {
	var models []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Write([]byte(`{"id":"vid-2","status":"succeeded","result":{"url":"https://cdn.example.com/vid-2.mp4"}}`))
			return
		}

		var body submitPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode submit body: %v", err)
		}
		models = append(models, body.Model)

		if body.Model == "sora-experimental" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"The model sora-experimental does not exist"}}`))
			return
		}
		w.Write([]byte(`{"id":"vid-2","status":"queued"}`))
	}))
	defer server.Close()

	result, err := testAdapter(server.URL).Invoke(context.Background(), backend.Request{
		Prompt: "a drone shot",
		Model:  "sora-experimental",
		APIKey: "key",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Text != "https://cdn.example.com/vid-2.mp4" {
		t.Errorf("Expected fallback result, got %q", result.Text)
	}
	if len(models) != 2 || models[0] != "sora-experimental" || models[1] != "sora-2" {
		t.Errorf("Expected requested model then sora-2, got %v", models)
	}
}

func TestInvokeJobFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"vid-3","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"vid-3","status":"failed","error":{"message":"render farm unavailable"}}`))
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).Invoke(context.Background(), backend.Request{
		Prompt: "a drone shot",
		APIKey: "key",
	})

	if err == nil || !strings.Contains(err.Error(), "render farm unavailable") {
		t.Errorf("Expected job failure message, got %v", err)
	}
}

func TestInvokeSucceededWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"vid-4","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"vid-4","status":"completed","result":{}}`))
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).Invoke(context.Background(), backend.Request{
		Prompt: "a drone shot",
		APIKey: "key",
	})

	if err == nil || !strings.Contains(err.Error(), "no result URL") {
		t.Errorf("Expected missing URL error, got %v", err)
	}
}

func TestInvokePollTimeout(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"vid-5","status":"queued"}`))
			return
		}
		polls++
		w.Write([]byte(`{"id":"vid-5","status":"in_progress"}`))
	}))
	defer server.Close()

	adapter := New().WithBaseURL(server.URL).WithPollPolicy(time.Millisecond, 4)
	_, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "a drone shot", APIKey: "key"})

	if !errors.Is(err, backend.ErrPollTimeout) {
		t.Errorf("Expected ErrPollTimeout, got %v", err)
	}
	if polls != 4 {
		t.Errorf("Expected exactly 4 polls, got %d", polls)
	}
}

func TestInvokeConfigErrors(t *testing.T) {
	adapter := New()

	var configErr *backend.ConfigError
	if _, err := adapter.Invoke(context.Background(), backend.Request{Prompt: "a shot"}); !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigError for missing API key, got %v", err)
	}
	if _, err := adapter.Invoke(context.Background(), backend.Request{APIKey: "key"}); !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigError for empty prompt, got %v", err)
	}
}
