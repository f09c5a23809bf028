// internal/models/ollama_host.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mwiater/gyan/internal/logging"
)

// OllamaHost lists models on an Ollama server.
type OllamaHost struct {
	Name           string
	URL            string
	client         *http.Client
	requestTimeout time.Duration
}

// GetName returns the display name of the Ollama host.
func (h *OllamaHost) GetName() string {
	return h.Name
}

// GetType returns the type identifier for Ollama hosts ("ollama").
func (h *OllamaHost) GetType() string {
	return "ollama"
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels queries /api/tags and marks entries that /api/ps reports as running.
func (h *OllamaHost) ListModels(ctx context.Context) ([]Model, error) {
	tags, err := h.get(ctx, "/api/tags")
	if err != nil {
		return nil, err
	}

	running, err := h.get(ctx, "/api/ps")
	if err != nil {
		logging.LogWarning("could not get running models from %s: %v", h.Name, err)
		running = tagsResponse{}
	}
	loaded := make(map[string]struct{}, len(running.Models))
	for _, m := range running.Models {
		loaded[m.Name] = struct{}{}
	}

	out := make([]Model, 0, len(tags.Models))
	for _, m := range tags.Models {
		_, ok := loaded[m.Name]
		model := Model{Name: m.Name, Loaded: ok}
		if ok {
			model.Status = "loaded"
		}
		out = append(out, model)
	}
	return out, nil
}

func (h *OllamaHost) get(ctx context.Context, path string) (tagsResponse, error) {
	logging.LogRequest("GYAN->LLM", h.Name, "", "", map[string]string{
		"method": http.MethodGet,
		"url":    h.URL + path,
	})
	resp, cancel, err := doRequest(ctx, h.client, h.requestTimeout, h.URL, path)
	if err != nil {
		return tagsResponse{}, fmt.Errorf("could not list models: Ollama is not accessible on %s", h.Name)
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := readBody(resp, h.Name)
	if err != nil {
		return tagsResponse{}, err
	}
	logging.LogRequest("LLM->GYAN", h.Name, "", "", body)

	var parsed tagsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return tagsResponse{}, fmt.Errorf("error parsing models from %s: %v", h.Name, err)
	}
	return parsed, nil
}
