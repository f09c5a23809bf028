// internal/models/models.go
// Package models inspects which models the configured generation host offers.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/providerfactory"
	"github.com/mwiater/gyan/internal/providers"
)

// NewHost returns the Host for cfg.Host. It returns an error when no host is
// configured or its type is unsupported.
func NewHost(cfg appconfig.GeneratorConfig, timeout time.Duration) (Host, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("no generator host configured")
	}
	hostType, err := providerfactory.NormalizeHostType(cfg.Host.Type)
	if err != nil {
		return nil, err
	}
	name := providers.HostIdentifier(cfg.Host, hostType)
	url := strings.TrimRight(cfg.Host.URL, "/")
	client := &http.Client{}

	if hostType == providerfactory.HostTypeOllama {
		return &OllamaHost{Name: name, URL: url, client: client, requestTimeout: timeout}, nil
	}
	return &LlamaCppHost{Name: name, URL: url, client: client, requestTimeout: timeout}, nil
}

// Contains reports whether name is among models, ignoring case. Ollama's
// implicit ":latest" tag is ignored.
func Contains(models []Model, name string) bool {
	want := normalizeName(name)
	if want == "" {
		return false
	}
	for _, m := range models {
		if normalizeName(m.Name) == want {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ":latest")
}

// Format renders one styled line per model, marking loaded models and the
// configured one.
func Format(models []Model, configured string) []string {
	loadedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	loadingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	idleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	lines := make([]string, 0, len(models))
	for _, m := range models {
		status := strings.ToUpper(strings.TrimSpace(m.Status))
		if status == "" && m.Loaded {
			status = "LOADED"
		}
		entry := "- " + m.Name
		if status != "" {
			entry += " (" + status + ")"
		}
		if normalizeName(m.Name) == normalizeName(configured) {
			entry += " [configured]"
		}
		switch {
		case m.Loaded:
			lines = append(lines, loadedStyle.Render(entry))
		case strings.EqualFold(status, "loading"):
			lines = append(lines, loadingStyle.Render(entry))
		default:
			lines = append(lines, idleStyle.Render(entry))
		}
	}
	return lines
}

// doRequest executes a GET against baseURL+path bounded by timeout. The caller
// must call the returned cancel func after reading the body.
func doRequest(ctx context.Context, client *http.Client, timeout time.Duration, baseURL, path string) (*http.Response, context.CancelFunc, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

func readBody(resp *http.Response, hostName string) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body from %s: %v", hostName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not list models: %s", strings.TrimSpace(string(body)))
	}
	return body, nil
}
