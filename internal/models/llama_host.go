// internal/models/llama_host.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/gyan/internal/logging"
)

// LlamaCppHost lists models on a llama.cpp server.
type LlamaCppHost struct {
	Name           string
	URL            string
	client         *http.Client
	requestTimeout time.Duration
}

// GetName returns the display name of the llama.cpp host.
func (h *LlamaCppHost) GetName() string {
	return h.Name
}

// GetType returns the type identifier for llama.cpp hosts ("llama.cpp").
func (h *LlamaCppHost) GetType() string {
	return "llama.cpp"
}

// ListModels queries /models. A server started with a single model reports
// just that one.
func (h *LlamaCppHost) ListModels(ctx context.Context) ([]Model, error) {
	raw, err := h.listModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Model, 0, len(raw))
	for _, m := range raw {
		name := modelDisplayName(m)
		if name == "" {
			continue
		}
		status := strings.TrimSpace(m.Status.Value)
		out = append(out, Model{
			Name:   name,
			Status: status,
			Loaded: strings.EqualFold(status, "loaded"),
		})
	}
	return out, nil
}

type llamaModel struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Model  string      `json:"model"`
	Path   string      `json:"path"`
	Status statusField `json:"status"`
}

type modelsResponse struct {
	Data   []llamaModel `json:"data"`
	Models []llamaModel `json:"models"`
}

func (h *LlamaCppHost) listModels(ctx context.Context) ([]llamaModel, error) {
	logging.LogRequest("GYAN->LLM", h.Name, "", "", map[string]string{
		"method": http.MethodGet,
		"url":    h.URL + "/models",
	})
	resp, cancel, err := doRequest(ctx, h.client, h.requestTimeout, h.URL, "/models")
	if err != nil {
		return nil, fmt.Errorf("could not list models: llama.cpp is not accessible on %s", h.Name)
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := readBody(resp, h.Name)
	if err != nil {
		return nil, err
	}
	logging.LogRequest("LLM->GYAN", h.Name, "", "", body)

	models, ok := parseModels(body)
	if !ok {
		return nil, fmt.Errorf("unrecognized /models response from %s", h.Name)
	}
	return models, nil
}

// parseModels accepts the OpenAI-style {"data": [...]}, the router's
// {"models": [...]}, a bare array, or a plain list of names.
func parseModels(body []byte) ([]llamaModel, bool) {
	var wrapped modelsResponse
	if json.Unmarshal(body, &wrapped) == nil {
		switch {
		case len(wrapped.Models) > 0:
			return wrapped.Models, true
		case len(wrapped.Data) > 0:
			return wrapped.Data, true
		}
	}

	var direct []llamaModel
	if json.Unmarshal(body, &direct) == nil && len(direct) > 0 {
		return direct, true
	}

	var names struct {
		Models []string `json:"models"`
	}
	if json.Unmarshal(body, &names) != nil || len(names.Models) == 0 {
		return nil, false
	}
	out := make([]llamaModel, len(names.Models))
	for i, name := range names.Models {
		out[i] = llamaModel{Name: name}
	}
	return out, true
}

func modelDisplayName(model llamaModel) string {
	for _, candidate := range []string{model.ID, model.Name, model.Model, model.Path} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return ""
}

// statusField accepts either "loaded" or {"value": "loaded"}.
type statusField struct {
	Value string
}

func (s *statusField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		s.Value = ""
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(data, &s.Value)
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Value = obj.Value
	return nil
}
