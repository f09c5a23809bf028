// internal/models/models_test.go
package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/providers"
)

func TestLlamaCppHostListModelsVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		body       string
		wantIDs    []string
		wantStatus map[string]string
	}{
		{
			name:       "wrapped data",
			body:       `{"data":[{"id":"model-a","status":"loaded"},{"name":"model-b","status":"unloaded"}]}`,
			wantIDs:    []string{"model-a", "model-b"},
			wantStatus: map[string]string{"model-a": "loaded", "model-b": "unloaded"},
		},
		{
			name:       "wrapped models",
			body:       `{"models":[{"name":"model-c","status":{"value":"loading"}}]}`,
			wantIDs:    []string{"model-c"},
			wantStatus: map[string]string{"model-c": "loading"},
		},
		{
			name:       "direct array",
			body:       `[{"id":"model-d","status":"loaded"}]`,
			wantIDs:    []string{"model-d"},
			wantStatus: map[string]string{"model-d": "loaded"},
		},
		{
			name:       "names list",
			body:       `{"models":["model-e","model-f"]}`,
			wantIDs:    []string{"model-e", "model-f"},
			wantStatus: map[string]string{"model-e": "", "model-f": ""},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			host := &LlamaCppHost{Name: "test", URL: server.URL, client: server.Client(), requestTimeout: time.Second}
			models, err := host.ListModels(context.Background())
			if err != nil {
				t.Fatalf("ListModels returned error: %v", err)
			}
			if len(models) != len(tc.wantIDs) {
				t.Fatalf("expected %d models, got %d", len(tc.wantIDs), len(models))
			}
			for i, want := range tc.wantIDs {
				if models[i].Name != want {
					t.Fatalf("model %d name = %q, want %q", i, models[i].Name, want)
				}
				if models[i].Status != tc.wantStatus[want] {
					t.Fatalf("model %q status = %q, want %q", want, models[i].Status, tc.wantStatus[want])
				}
				if models[i].Loaded != (tc.wantStatus[want] == "loaded") {
					t.Fatalf("model %q loaded = %v", want, models[i].Loaded)
				}
			}
		})
	}
}

func TestLlamaCppHostListModelsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	host := &LlamaCppHost{Name: "test", URL: server.URL, client: server.Client(), requestTimeout: time.Second}
	if _, err := host.ListModels(context.Background()); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected status error, got %v", err)
	}

	server.Close()
	if _, err := host.ListModels(context.Background()); err == nil || !strings.Contains(err.Error(), "not accessible") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestOllamaHostListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"qwen2:0.5b"}]}`))
		case "/api/ps":
			_, _ = w.Write([]byte(`{"models":[{"name":"qwen2:0.5b"}]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	host := &OllamaHost{Name: "local", URL: server.URL, client: server.Client(), requestTimeout: time.Second}
	models, err := host.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels returned error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %+v", models)
	}
	if models[0].Loaded || !models[1].Loaded || models[1].Status != "loaded" {
		t.Fatalf("unexpected loaded flags: %+v", models)
	}
}

func TestOllamaHostRunningModelsOptional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ps" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
	}))
	defer server.Close()

	host := &OllamaHost{Name: "local", URL: server.URL, client: server.Client(), requestTimeout: time.Second}
	models, err := host.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels returned error: %v", err)
	}
	if len(models) != 1 || models[0].Loaded {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestNewHost(t *testing.T) {
	if _, err := NewHost(appconfig.GeneratorConfig{}, time.Second); err == nil {
		t.Fatal("expected error without a host")
	}

	cfg := appconfig.GeneratorConfig{Host: appconfig.Host{URL: "http://127.0.0.1:8080/", Type: "llamacpp"}}
	host, err := NewHost(cfg, time.Second)
	if err != nil {
		t.Fatalf("NewHost returned error: %v", err)
	}
	llama, ok := host.(*LlamaCppHost)
	if !ok || llama.URL != "http://127.0.0.1:8080" || host.GetName() != "http://127.0.0.1:8080/" {
		t.Fatalf("unexpected llama host: %+v", host)
	}

	cfg.Host = appconfig.Host{Name: "box", URL: "http://127.0.0.1:11434", Type: "Ollama"}
	host, err = NewHost(cfg, time.Second)
	if err != nil {
		t.Fatalf("NewHost returned error: %v", err)
	}
	if host.GetType() != "ollama" || host.GetName() != "box" {
		t.Fatalf("unexpected ollama host: %s %s", host.GetType(), host.GetName())
	}

	cfg.Host.Type = "gpt4all"
	if _, err := NewHost(cfg, time.Second); !errors.Is(err, providers.ErrUnsupportedHostType) {
		t.Fatalf("expected unsupported host type, got %v", err)
	}
}

func TestContainsAndFormat(t *testing.T) {
	models := []Model{
		{Name: "llama3:latest", Loaded: true},
		{Name: "qwen2", Status: "loading"},
		{Name: "phi3"},
	}

	if !Contains(models, "LLAMA3") || !Contains(models, "qwen2") || Contains(models, "mistral") || Contains(models, " ") {
		t.Fatal("unexpected Contains results")
	}

	lines := Format(models, "llama3")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"- llama3:latest (LOADED) [configured]", "- qwen2 (LOADING)", "- phi3"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
}
