// internal/providers/llamacpp/provider_test.go
package llamacpp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mwiater/gyan/internal/appconfig"
)

func newTestProvider(url string) *Provider {
	cfg := appconfig.Default()
	cfg.TimeoutSeconds = 5
	cfg.Generator.Host = appconfig.Host{Name: "test", URL: url, Type: "llama.cpp"}
	cfg.Generator.Model = "tinyllama"
	return New(&cfg)
}

func TestProviderGenerate(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":"  Gravity pulls masses together.\n","stop":true,"tokens_predicted":6}`))
	}))
	defer server.Close()

	got, err := newTestProvider(server.URL).Generate(context.Background(), "Context: x", 100)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "Gravity pulls masses together." {
		t.Fatalf("unexpected answer %q", got)
	}
	if payload["prompt"] != "Context: x" {
		t.Fatalf("unexpected prompt %v", payload["prompt"])
	}
	if n, ok := payload["n_predict"].(float64); !ok || n != 100 {
		t.Fatalf("expected n_predict 100, got %v", payload["n_predict"])
	}
	if stream, ok := payload["stream"].(bool); !ok || stream {
		t.Fatalf("expected stream false, got %v", payload["stream"])
	}
	if temp, ok := payload["temperature"].(float64); !ok || temp != 0.2 {
		t.Fatalf("expected answer profile temperature, got %v", payload["temperature"])
	}
}

func TestProviderGenerateHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Generate(context.Background(), "q", 10)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestProviderHealth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	if err := newTestProvider(server.URL).Health(context.Background()); err != nil {
		t.Fatalf("expected healthy host, got %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if err := newTestProvider(down.URL).Health(context.Background()); err == nil {
		t.Fatalf("expected unhealthy host error")
	}
}

func TestHostIdentifier(t *testing.T) {
	if got := hostIdentifier(appconfig.Host{Name: "local", URL: "http://x"}); got != "local" {
		t.Fatalf("expected name, got %q", got)
	}
	if got := hostIdentifier(appconfig.Host{URL: "http://x"}); got != "http://x" {
		t.Fatalf("expected url, got %q", got)
	}
	if got := hostIdentifier(appconfig.Host{}); got != "llama.cpp-host" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
