// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"
	"strings"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/providers"
	"github.com/mwiater/gyan/internal/providers/llamacpp"
	"github.com/mwiater/gyan/internal/providers/ollama"
)

// Canonical generator host types.
const (
	HostTypeLlamaCpp = "llama.cpp"
	HostTypeOllama   = "ollama"
)

// NewGenerator builds the generator described by cfg.Generator, records its
// latency into agg when agg is non-nil, and guards it with providers.Exclusive.
// It returns (nil, nil) when no generator host is configured.
func NewGenerator(cfg *appconfig.Config, agg *metrics.Aggregator) (providers.Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	if !cfg.Generator.Enabled() {
		logging.LogEvent("No generator host configured; answers are disabled")
		return nil, nil
	}

	hostType, err := NormalizeHostType(cfg.Generator.Host.Type)
	if err != nil {
		return nil, err
	}

	var gen providers.Generator
	switch hostType {
	case HostTypeOllama:
		gen = ollama.New(cfg)
	default:
		gen = llamacpp.New(cfg)
	}
	logging.LogEvent("Generator ready: %s at %s (model %s)", hostType, cfg.Generator.Host.URL, cfg.Generator.Model)

	if agg != nil {
		gen = metrics.NewGenerator(gen, agg)
	}
	return providers.NewExclusive(gen, cfg.GenerationTimeout()), nil
}

// NormalizeHostType maps the accepted spellings of a host type to its canonical form.
func NormalizeHostType(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "llama.cpp", "llamacpp", "llama-cpp":
		return HostTypeLlamaCpp, nil
	case "ollama":
		return HostTypeOllama, nil
	default:
		return "", fmt.Errorf("%w: %q", providers.ErrUnsupportedHostType, raw)
	}
}
