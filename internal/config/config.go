// Package config provides unified configuration loading for the answer engine.
// Supports YAML files, environment variables, and programmatic overrides.
// Configuration is frozen after Load; nothing mutates it at steady state.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the answer engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Query         QueryConfig         `yaml:"query"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// StorageConfig holds the document store settings.
type StorageConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	JournalMode string `yaml:"journal_mode"`
}

// CacheConfig holds query-cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory, redis, or none
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	// MockMode swaps the provider for deterministic hash-derived vectors,
	// for tests and offline demos.
	MockMode bool `yaml:"mock_mode"`
}

// LLMConfig holds language-model provider settings.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChunkingConfig holds sliding-window chunker settings (in tokens).
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds the hybrid retrieval settings.
type RetrievalConfig struct {
	MinSimilarityThreshold    float64 `yaml:"min_similarity_threshold"`
	MediumSimilarityThreshold float64 `yaml:"medium_similarity_threshold"`
	HighSimilarityThreshold   float64 `yaml:"high_similarity_threshold"`
	AdaptiveThreshold         bool    `yaml:"adaptive_threshold"`
	MinResultsRequired        int     `yaml:"min_results_required"`
	EnableHybridSearch        bool    `yaml:"enable_hybrid_search"`
	SemanticWeight            float64 `yaml:"semantic_weight"`
	KeywordWeight             float64 `yaml:"keyword_weight"`
	EnableKeywordAnchoring    bool    `yaml:"enable_keyword_anchoring"`
	MaxKeywordSearchVectors   int     `yaml:"max_keyword_search_vectors"`
	MaxKeywordResults         int     `yaml:"max_keyword_results"`
	EnableQueryEnhancement    bool    `yaml:"enable_query_enhancement"`
	MaxQueryVariants          int     `yaml:"max_query_variants"`
	CandidatesPerVariant      int     `yaml:"candidates_per_variant"`
}

// QueryConfig holds per-query execution settings.
type QueryConfig struct {
	DeadlineMs  int `yaml:"query_deadline_ms"`
	MaxLength   int `yaml:"max_question_length"`
	DefaultTopK int `yaml:"default_top_k"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Storage: StorageConfig{
			SQLitePath:  "/tmp/answer-engine.db",
			JournalMode: "WAL",
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Embedding: EmbeddingConfig{
			Model:     "baai/bge-large-en-v1.5",
			BaseURL:   "https://openrouter.ai/api/v1",
			Dimension: 1024,
			BatchSize: 64,
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "google/gemini-2.5-flash",
			BaseURL:     "https://openrouter.ai/api/v1",
			MaxTokens:   8000,
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    800,
			ChunkOverlap: 300,
		},
		Retrieval: RetrievalConfig{
			MinSimilarityThreshold:    0.2,
			MediumSimilarityThreshold: 0.5,
			HighSimilarityThreshold:   0.8,
			AdaptiveThreshold:         true,
			MinResultsRequired:        1,
			EnableHybridSearch:        true,
			SemanticWeight:            0.7,
			KeywordWeight:             0.3,
			EnableKeywordAnchoring:    true,
			MaxKeywordSearchVectors:   1000,
			MaxKeywordResults:         3,
			EnableQueryEnhancement:    true,
			MaxQueryVariants:          5,
			CandidatesPerVariant:      10,
		},
		Query: QueryConfig{
			DeadlineMs:  10000,
			MaxLength:   4000,
			DefaultTopK: 5,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "answer-engine",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}

	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}

	r := c.Retrieval
	if r.MinSimilarityThreshold < 0 || r.HighSimilarityThreshold > 1 {
		return fmt.Errorf("similarity thresholds must lie in [0,1]")
	}

	if !(r.MinSimilarityThreshold <= r.MediumSimilarityThreshold &&
		r.MediumSimilarityThreshold <= r.HighSimilarityThreshold) {
		return fmt.Errorf("similarity thresholds must be ordered min <= medium <= high")
	}

	if math.Abs(r.SemanticWeight+r.KeywordWeight-1.0) > 1e-9 {
		return fmt.Errorf("semantic_weight + keyword_weight must equal 1, got %.3f",
			r.SemanticWeight+r.KeywordWeight)
	}

	if r.MinResultsRequired < 1 {
		return fmt.Errorf("min_results_required must be at least 1")
	}

	if r.MaxQueryVariants < 1 || r.MaxQueryVariants > 5 {
		return fmt.Errorf("max_query_variants must be between 1 and 5")
	}

	if r.CandidatesPerVariant < 1 {
		return fmt.Errorf("candidates_per_variant must be at least 1")
	}

	if c.Query.DeadlineMs < 100 {
		return fmt.Errorf("query_deadline_ms must be at least 100")
	}

	if c.LLM.MaxTokens < 4000 {
		return fmt.Errorf("llm max_tokens must be at least 4000, got %d", c.LLM.MaxTokens)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 0.1 {
		return fmt.Errorf("llm temperature must lie in [0, 0.1], got %.2f", c.LLM.Temperature)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// QueryDeadline returns the per-query budget as a duration.
func (c *Config) QueryDeadline() time.Duration {
	return time.Duration(c.Query.DeadlineMs) * time.Millisecond
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("EMBEDDING_DIMENSION"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = dim
		}
	}

	if v := os.Getenv("EMBEDDING_MOCK_MODE"); v == "true" {
		cfg.Embedding.MockMode = true
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("QUERY_DEADLINE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Query.DeadlineMs = ms
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
