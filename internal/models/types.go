// internal/models/types.go
package models

import "context"

// Model is one model a generation host reports.
type Model struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Loaded bool   `json:"loaded"`
}

// Host lists the models a generation host can serve.
type Host interface {
	// ListModels returns every model the host knows about.
	ListModels(ctx context.Context) ([]Model, error)
	// GetName returns the display name of the host.
	GetName() string
	// GetType returns the type of the host (e.g., "ollama").
	GetType() string
}
