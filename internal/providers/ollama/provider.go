// internal/providers/ollama/provider.go
// Package ollama provides a Generator backed by the Ollama generate API.
package ollama

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

// Provider implements providers.Generator against an Ollama host.
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
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		host:    cfg.Generator.Host,
		model:   cfg.Generator.Model,
		params:  cfg.Generator.Parameters,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	EvalDuration    int64  `json:"eval_duration"`
	Error           string `json:"error"`
}

// Generate posts a non-streaming /api/generate request.
func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	options := buildOptions(p.params)
	options["num_predict"] = maxTokens

	body, err := json.Marshal(generateRequest{
		Model:   p.model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", err
	}
	requestID := logging.RequestID(ctx)
	logging.LogRequest("GYAN->LLM", hostIdentifier(p.host), p.model, requestID, body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host.URL+"/api/generate", bytes.NewReader(body))
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
		return "", fmt.Errorf("ollama: /api/generate returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("ollama: decode /api/generate response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	return strings.TrimSpace(result.Response), nil
}

// Health lists the host's models via /api/tags.
func (p *Provider) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host.URL+"/api/tags", nil)
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
		return fmt.Errorf("ollama: /api/tags returned %s", resp.Status)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func buildOptions(params appconfig.Parameters) map[string]any {
	options := map[string]any{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		options["min_p"] = *params.MinP
	}
	if params.RepeatPenalty != nil {
		options["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.Seed != nil {
		options["seed"] = *params.Seed
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}
	return options
}

func hostIdentifier(host appconfig.Host) string {
	return providers.HostIdentifier(host, "ollama-host")
}
