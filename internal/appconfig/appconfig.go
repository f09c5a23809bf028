// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// EnvPrefix is the prefix for environment variable overrides (GYAN_DEBUG, ...).
	EnvPrefix = "GYAN"
	// EmbeddingDimension is the width of every corpus and query vector.
	EmbeddingDimension = 768

	defaultRequestTimeout    = 600 * time.Second
	defaultGenerationTimeout = 120 * time.Second
	defaultCorpusPath        = "assets/ai/vectors.json"
	defaultDictionaryPath    = "assets/ai/word_map.json"
	defaultModelPath         = "assets/ai/labse.onnx"
	defaultSQLitePath        = "assets/ai/corpus.db"
	defaultListenAddr        = ":8000"
	defaultMetricsPath       = "reports/data/retrieval_metrics.json"
	defaultKeywordBoost      = 0.05
	defaultMinWordLength     = 3
	defaultMaxTokens         = 100
	defaultParameterProfile  = "answer"

	// DefaultPromptTemplate is the fixed instruction template handed to the generator.
	// {context} and {query} are substituted at call time.
	DefaultPromptTemplate = "Context: {context}\nQuestion: {query}\nAnswer (Short & Simple):\n"
)

// DefaultStopwords are query words never treated as keywords by the ranker.
var DefaultStopwords = []string{"what", "where", "when", "which", "this", "that"}

// Config represents the top-level application configuration.
type Config struct {
	Debug          bool            `json:"debug" mapstructure:"debug" yaml:"debug"`
	LogFile        string          `json:"logFile,omitempty" mapstructure:"logFile" yaml:"logFile,omitempty"`
	TimeoutSeconds int             `json:"timeout,omitempty" mapstructure:"timeout" yaml:"timeout,omitempty"`
	Assets         AssetsConfig    `json:"assets" mapstructure:"assets" yaml:"assets"`
	Corpus         CorpusConfig    `json:"corpus" mapstructure:"corpus" yaml:"corpus"`
	Retrieval      RetrievalConfig `json:"retrieval" mapstructure:"retrieval" yaml:"retrieval"`
	Generator      GeneratorConfig `json:"generator" mapstructure:"generator" yaml:"generator"`
	Server         ServerConfig    `json:"server" mapstructure:"server" yaml:"server"`
	Metrics        MetricsConfig   `json:"metrics" mapstructure:"metrics" yaml:"metrics"`
	ConfigPath     string          `json:"-" mapstructure:"-" yaml:"-"`
}

// AssetsConfig locates the files loaded once at startup.
type AssetsConfig struct {
	CorpusPath         string `json:"corpusPath" mapstructure:"corpusPath" yaml:"corpusPath"`
	DictionaryPath     string `json:"dictionaryPath" mapstructure:"dictionaryPath" yaml:"dictionaryPath"`
	ModelPath          string `json:"modelPath" mapstructure:"modelPath" yaml:"modelPath"`
	OnnxRuntimeLibrary string `json:"onnxRuntimeLibrary,omitempty" mapstructure:"onnxRuntimeLibrary" yaml:"onnxRuntimeLibrary,omitempty"`
}

// CorpusConfig selects where corpus entries are read from.
type CorpusConfig struct {
	Source     string `json:"source" mapstructure:"source" yaml:"source"`
	SQLitePath string `json:"sqlitePath,omitempty" mapstructure:"sqlitePath" yaml:"sqlitePath,omitempty"`
	Dimension  int    `json:"dimension" mapstructure:"dimension" yaml:"dimension"`
}

// RetrievalConfig tunes the hybrid ranker.
type RetrievalConfig struct {
	KeywordBoost       float64  `json:"keywordBoost" mapstructure:"keywordBoost" yaml:"keywordBoost"`
	MinWordLength      int      `json:"minWordLength" mapstructure:"minWordLength" yaml:"minWordLength"`
	Stopwords          []string `json:"stopwords" mapstructure:"stopwords" yaml:"stopwords"`
	ApplySubjectFilter bool     `json:"applySubjectFilter" mapstructure:"applySubjectFilter" yaml:"applySubjectFilter"`
}

// GeneratorConfig configures the answer-generation collaborator.
type GeneratorConfig struct {
	Host             Host       `json:"host" mapstructure:"host" yaml:"host"`
	Model            string     `json:"model" mapstructure:"model" yaml:"model"`
	MaxTokens        int        `json:"maxTokens" mapstructure:"maxTokens" yaml:"maxTokens"`
	PromptTemplate   string     `json:"promptTemplate,omitempty" mapstructure:"promptTemplate" yaml:"promptTemplate,omitempty"`
	TimeoutSeconds   int        `json:"timeoutSeconds,omitempty" mapstructure:"timeoutSeconds" yaml:"timeoutSeconds,omitempty"`
	ParameterProfile string     `json:"parameterProfile,omitempty" mapstructure:"parameterProfile" yaml:"parameterProfile,omitempty"`
	Parameters       Parameters `json:"parameters" mapstructure:"parameters" yaml:"parameters"`
}

// Host represents a single host that serves the generative model.
type Host struct {
	Name string `json:"name" mapstructure:"name" yaml:"name"`
	URL  string `json:"url" mapstructure:"url" yaml:"url"`
	Type string `json:"type" mapstructure:"type" yaml:"type"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr               string `json:"listenAddr" mapstructure:"listenAddr" yaml:"listenAddr"`
	ReadHeaderTimeoutSeconds int    `json:"readHeaderTimeoutSeconds,omitempty" mapstructure:"readHeaderTimeoutSeconds" yaml:"readHeaderTimeoutSeconds,omitempty"`
}

// MetricsConfig controls latency bookkeeping.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" mapstructure:"path" yaml:"path,omitempty"`
}

// Enabled reports whether a generation host is configured.
func (g GeneratorConfig) Enabled() bool {
	return strings.TrimSpace(g.Host.URL) != ""
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerationTimeout bounds a single in-flight generation call.
func (c Config) GenerationTimeout() time.Duration {
	if c.Generator.TimeoutSeconds <= 0 {
		return defaultGenerationTimeout
	}
	return time.Duration(c.Generator.TimeoutSeconds) * time.Second
}

// ReadHeaderTimeout returns the HTTP server header read timeout.
func (c Config) ReadHeaderTimeout() time.Duration {
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "gyan.log"
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() error {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if strings.TrimSpace(c.Assets.CorpusPath) == "" {
		c.Assets.CorpusPath = defaultCorpusPath
	}
	if strings.TrimSpace(c.Assets.DictionaryPath) == "" {
		c.Assets.DictionaryPath = defaultDictionaryPath
	}
	if strings.TrimSpace(c.Assets.ModelPath) == "" {
		c.Assets.ModelPath = defaultModelPath
	}

	c.Corpus.Source = strings.ToLower(strings.TrimSpace(c.Corpus.Source))
	switch c.Corpus.Source {
	case "":
		c.Corpus.Source = "json"
	case "json", "sqlite":
	default:
		return fmt.Errorf("corpus.source must be json or sqlite, got %q", c.Corpus.Source)
	}
	if strings.TrimSpace(c.Corpus.SQLitePath) == "" {
		c.Corpus.SQLitePath = defaultSQLitePath
	}
	if c.Corpus.Dimension <= 0 {
		c.Corpus.Dimension = EmbeddingDimension
	}

	if c.Retrieval.KeywordBoost == 0 {
		c.Retrieval.KeywordBoost = defaultKeywordBoost
	}
	if c.Retrieval.MinWordLength <= 0 {
		c.Retrieval.MinWordLength = defaultMinWordLength
	}
	if c.Retrieval.Stopwords == nil {
		c.Retrieval.Stopwords = append([]string(nil), DefaultStopwords...)
	}

	if c.Generator.MaxTokens <= 0 {
		c.Generator.MaxTokens = defaultMaxTokens
	}
	if strings.TrimSpace(c.Generator.PromptTemplate) == "" {
		c.Generator.PromptTemplate = DefaultPromptTemplate
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = int(defaultGenerationTimeout.Seconds())
	}
	if strings.TrimSpace(c.Generator.ParameterProfile) == "" {
		c.Generator.ParameterProfile = defaultParameterProfile
	}
	c.Generator.Parameters = mergeParams(ParamsForProfile(c.Generator.ParameterProfile), c.Generator.Parameters)

	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(c.Metrics.Path) == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	return nil
}

// Load reads the application configuration from the specified path. Any
// format viper understands (json, yaml, toml) is accepted.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	return Decode(v, path)
}

// Decode materializes a viper instance into a Config with defaults applied.
func Decode(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = path
	if err := cfg.ApplyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	_ = cfg.ApplyDefaults()
	return cfg
}
