package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/embedding"
	"github.com/mwiater/gyan/internal/embedding/onnx"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/providerfactory"
	"github.com/mwiater/gyan/internal/providers"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/tokenizer"
)

// openGraph loads the inference graph. Tests swap it for a stub.
var openGraph = func(cfg appconfig.Config) (embedding.Graph, error) {
	g, err := onnx.Open(cfg.Assets.ModelPath, cfg.Assets.OnnxRuntimeLibrary, cfg.Corpus.Dimension)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// newGenerator builds the generation collaborator. Tests swap it for a stub.
var newGenerator = providerfactory.NewGenerator

// engine is everything a command needs to answer queries, loaded once.
type engine struct {
	cfg       appconfig.Config
	tokenizer *tokenizer.Tokenizer
	embedder  *embedding.Embedder
	store     *corpus.Store
	report    corpus.LoadReport
	generator providers.Generator
	metrics   *metrics.Aggregator
	service   *rag.Service
}

// bootstrap loads the dictionary, corpus and inference graph and connects
// the generator. Any load failure is returned; nothing is served half-loaded.
func bootstrap(ctx context.Context, cfg appconfig.Config) (*engine, error) {
	dict, err := tokenizer.LoadDictionary(cfg.Assets.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	if missing := dict.Missing(tokenizer.CommonQueryWords); len(missing) > 0 {
		logging.LogWarning("dictionary %s lacks common query words: %s", cfg.Assets.DictionaryPath, strings.Join(missing, ", "))
	}
	logging.LogEvent("Dictionary loaded: %d words from %s", dict.Len(), cfg.Assets.DictionaryPath)

	store, report, err := loadStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	logging.LogEvent("Corpus loaded from %s: %d of %d entries (%d invalid)", report.Source, report.Loaded, report.Total, report.Invalid)

	graph, err := openGraph(cfg)
	if err != nil {
		return nil, fmt.Errorf("load inference graph %s: %w", cfg.Assets.ModelPath, err)
	}
	if graph == nil {
		logging.LogWarning("no inference graph loaded; queries embed to zero vectors")
	}
	embedder := embedding.New(graph, cfg.Corpus.Dimension)

	var agg *metrics.Aggregator
	if cfg.Metrics.Enabled {
		agg = metrics.NewAggregator(cfg.Metrics.Path)
	}

	gen, err := newGenerator(&cfg, agg)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("configure generator: %w", err)
	}

	tok := tokenizer.New(dict)
	retriever := rag.NewRetriever(tok, embedder, store, rag.NewRanker(cfg.Retrieval), cfg.Retrieval.ApplySubjectFilter).WithMetrics(agg)

	return &engine{
		cfg:       cfg,
		tokenizer: tok,
		embedder:  embedder,
		store:     store,
		report:    report,
		generator: gen,
		metrics:   agg,
		service:   rag.NewService(retriever, gen, cfg.Generator).WithMetrics(agg),
	}, nil
}

// loadStore reads the corpus from the configured source.
func loadStore(ctx context.Context, cfg appconfig.Config) (*corpus.Store, corpus.LoadReport, error) {
	switch cfg.Corpus.Source {
	case "sqlite":
		return corpus.LoadSQLite(ctx, cfg.Corpus.SQLitePath, cfg.Corpus.Dimension)
	default:
		return corpus.LoadJSON(cfg.Assets.CorpusPath, cfg.Corpus.Dimension)
	}
}

// Close releases the graph and the generator and saves metrics.
func (e *engine) Close() error {
	var errs []error
	if err := e.embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close inference graph: %w", err))
	}
	if e.generator != nil {
		if err := e.generator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close generator: %w", err))
		}
	}
	if err := e.metrics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("save metrics: %w", err))
	}
	return errors.Join(errs...)
}

// requireConfig returns the merged config or an error when none was loaded.
func requireConfig() (appconfig.Config, error) {
	cfg := GetConfig()
	if cfg == nil {
		return appconfig.Config{}, fmt.Errorf("config is nil")
	}
	return *cfg, nil
}
