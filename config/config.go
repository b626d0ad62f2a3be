// Package config loads the server configuration from YAML with environment
// overrides for deploy-time switches.
package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the embedding gateway.
type EmbedderConfig struct {
	// Provider is "mock", "openai" or "onnx".
	Provider string `yaml:"provider"`

	// CacheSize is the embedding cache capacity in vectors; zero disables
	// the cache.
	CacheSize int `yaml:"cache_size"`

	OpenAI OpenAIEmbedderConfig `yaml:"openai"`
	ONNX   ONNXEmbedderConfig   `yaml:"onnx"`
}

// OpenAIEmbedderConfig holds settings for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ONNXEmbedderConfig holds settings for the local ONNX embedder.
type ONNXEmbedderConfig struct {
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	Dimensions    int    `yaml:"dimensions"`
}

// GeneratorConfig selects and configures the language-generation gateway.
type GeneratorConfig struct {
	// Provider is "mock" or "anthropic".
	Provider string `yaml:"provider"`

	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// StoreConfig configures the vector memory store.
type StoreConfig struct {
	Collection string `yaml:"collection"`

	// PersistPath enables on-disk persistence; empty keeps the store in
	// memory.
	PersistPath string `yaml:"persist_path"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
	Workers           int `yaml:"workers"`
	MaxRawTextBytes   int `yaml:"max_raw_text_bytes"`
}

// SupportConfig tunes the decision-support façade.
type SupportConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
	DeadlineSecs  int     `yaml:"deadline_secs"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Addr      string          `yaml:"addr"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Support   SupportConfig   `yaml:"support"`
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Addr: ":8080",
		Embedder: EmbedderConfig{
			Provider:  "mock",
			CacheSize: 10000,
			OpenAI: OpenAIEmbedderConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				Dimensions:  1536,
				TimeoutSecs: 30,
			},
			ONNX: ONNXEmbedderConfig{Dimensions: 384},
		},
		Generator: GeneratorConfig{
			Provider:  "mock",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		Store:   StoreConfig{Collection: "decision_snapshots"},
		Ingest:  IngestConfig{SentencesPerChunk: 5, OverlapSentences: 1, Workers: 4},
		Support: SupportConfig{TopK: 5, MinSimilarity: 0.5, DeadlineSecs: 20},
	}
}

func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = def.Embedder.Provider
	}
	if cfg.Embedder.OpenAI.BaseURL == "" {
		cfg.Embedder.OpenAI.BaseURL = def.Embedder.OpenAI.BaseURL
	}
	if cfg.Embedder.OpenAI.APIKeyEnv == "" {
		cfg.Embedder.OpenAI.APIKeyEnv = def.Embedder.OpenAI.APIKeyEnv
	}
	if cfg.Embedder.OpenAI.Model == "" {
		cfg.Embedder.OpenAI.Model = def.Embedder.OpenAI.Model
	}
	if cfg.Embedder.OpenAI.Dimensions == 0 {
		cfg.Embedder.OpenAI.Dimensions = def.Embedder.OpenAI.Dimensions
	}
	if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
		cfg.Embedder.OpenAI.TimeoutSecs = def.Embedder.OpenAI.TimeoutSecs
	}
	if cfg.Embedder.ONNX.Dimensions == 0 {
		cfg.Embedder.ONNX.Dimensions = def.Embedder.ONNX.Dimensions
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = def.Generator.Provider
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = def.Generator.Model
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = def.Generator.MaxTokens
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = def.Generator.APIKeyEnv
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = def.Store.Collection
	}
	if cfg.Ingest.SentencesPerChunk == 0 {
		cfg.Ingest.SentencesPerChunk = def.Ingest.SentencesPerChunk
	}
	if cfg.Ingest.OverlapSentences == 0 {
		cfg.Ingest.OverlapSentences = def.Ingest.OverlapSentences
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = def.Ingest.Workers
	}
	if cfg.Support.TopK == 0 {
		cfg.Support.TopK = def.Support.TopK
	}
	if cfg.Support.MinSimilarity == 0 {
		cfg.Support.MinSimilarity = def.Support.MinSimilarity
	}
	if cfg.Support.DeadlineSecs == 0 {
		cfg.Support.DeadlineSecs = def.Support.DeadlineSecs
	}
}

// applyEnvOverrides maps deploy-time switches over whatever the file said.
// MOCK_MODE=true forces both gateways to their mock implementations.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv("TEXT_LLM_PROVIDER"); v != "" {
		cfg.Generator.Provider = v
	}
	if v := os.Getenv("PERSIST_PATH"); v != "" {
		cfg.Store.PersistPath = v
	}
	if mock, err := strconv.ParseBool(os.Getenv("MOCK_MODE")); err == nil && mock {
		cfg.Embedder.Provider = "mock"
		cfg.Generator.Provider = "mock"
	}
}
