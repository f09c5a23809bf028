// internal/providers/llamacpp/provider.go
// Package llamacpp provides a Generator backed by the llama.cpp server's native completion API.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/providers"
)

// Provider implements providers.Generator using llama.cpp HTTP APIs.
type Provider struct {
	client  *http.Client
	timeout time.Duration
	host    appconfig.Host
	model   string
	params  appconfig.Parameters
}

var _ providers.Generator = (*Provider)(nil)

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		host:    cfg.Generator.Host,
		model:   cfg.Generator.Model,
		params:  cfg.Generator.Parameters,
	}
}

type completionResponse struct {
	Content         string `json:"content"`
	Stop            bool   `json:"stop"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// Generate posts prompt to /completion and returns the generated text.
func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"prompt":    prompt,
		"n_predict": maxTokens,
		"stream":    false,
	}
	applyParameters(payload, p.params)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	requestID := logging.RequestID(ctx)
	logging.LogRequest("GYAN->LLM", hostIdentifier(p.host), p.model, requestID, body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host.URL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	logging.LogRequest("LLM->GYAN", hostIdentifier(p.host), p.model, requestID, raw)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama.cpp: /completion returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llama.cpp: decode /completion response: %w", err)
	}
	return strings.TrimSpace(parsed.Content), nil
}

// Health checks the server's /health endpoint.
func (p *Provider) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llama.cpp: /health returned %s", resp.Status)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func applyParameters(payload map[string]any, params appconfig.Parameters) {
	if params.Temperature != nil {
		payload["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		payload["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		payload["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		payload["min_p"] = *params.MinP
	}
	if params.RepeatPenalty != nil {
		payload["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.Seed != nil {
		payload["seed"] = *params.Seed
	}
	if len(params.Stop) > 0 {
		payload["stop"] = params.Stop
	}
}

func hostIdentifier(host appconfig.Host) string {
	return providers.HostIdentifier(host, "llama.cpp-host")
}
