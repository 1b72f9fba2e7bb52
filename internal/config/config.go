// Package config loads promptforge configuration from .forge/config.yaml
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all promptforge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Knowledge store configuration
	Store StoreConfig `yaml:"store"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configuration
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Enhancement service configuration
	Enhancement EnhancementConfig `yaml:"enhancement"`

	// Confidence scoring weights
	Scoring ScoringConfig `yaml:"scoring"`

	// Tool profile catalog
	Profiles ProfilesConfig `yaml:"profiles"`

	// Analytics sink
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the SQLite knowledge store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "ollama", "genai", or "none"
	Provider string `yaml:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
}

// RetrievalConfig configures similarity search behavior.
type RetrievalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxResults          int     `yaml:"max_results"`
	Timeout             string  `yaml:"timeout"`
}

// EnhancementConfig configures the optional LLM refinement pass.
type EnhancementConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

// ScoringConfig holds the confidence sub-signal weights. The weights are a
// tunable constant table; they must sum to 1.0.
type ScoringConfig struct {
	CompletenessWeight float64 `yaml:"completeness_weight"`
	RetrievalWeight    float64 `yaml:"retrieval_weight"`
	EnhancementWeight  float64 `yaml:"enhancement_weight"`
}

// ProfilesConfig configures the tool profile catalog source.
type ProfilesConfig struct {
	// Optional directory of YAML profile files. When empty, the embedded
	// default catalog is used.
	Directory string `yaml:"directory"`
}

// AnalyticsConfig configures the best-effort analytics sink.
type AnalyticsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	FilePath   string `yaml:"file_path"`
	BufferSize int    `yaml:"buffer_size"`
}

// LoggingConfig controls the category file loggers.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "promptforge",
		Version: "0.3.0",

		Store: StoreConfig{
			DatabasePath: ".forge/knowledge.db",
		},

		Embedding: EmbeddingConfig{
			Provider:       "none",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},

		Retrieval: RetrievalConfig{
			SimilarityThreshold: 0.5,
			MaxResults:          5,
			Timeout:             "10s",
		},

		Enhancement: EnhancementConfig{
			Enabled:   false,
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			Model:     "gemini-2.0-flash",
			MaxTokens: 4096,
			Timeout:   "20s",
		},

		Scoring: ScoringConfig{
			CompletenessWeight: 0.40,
			RetrievalWeight:    0.35,
			EnhancementWeight:  0.25,
		},

		Analytics: AnalyticsConfig{
			Enabled:    true,
			FilePath:   ".forge/analytics.jsonl",
			BufferSize: 256,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Enhancement.APIKey == "" {
			c.Enhancement.APIKey = key
		}
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if key := os.Getenv("FORGE_ENHANCEMENT_API_KEY"); key != "" {
		c.Enhancement.APIKey = key
	}
	if key := os.Getenv("FORGE_EMBEDDING_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
	}
	if provider := os.Getenv("FORGE_EMBEDDING_PROVIDER"); provider != "" {
		c.Embedding.Provider = provider
	}
	if path := os.Getenv("FORGE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("FORGE_PROFILES_DIR"); dir != "" {
		c.Profiles.Directory = dir
	}
}

// GetRetrievalTimeout returns the retrieval phase timeout as a duration.
func (c *Config) GetRetrievalTimeout() time.Duration {
	d, err := time.ParseDuration(c.Retrieval.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetEnhancementTimeout returns the enhancement call timeout as a duration.
func (c *Config) GetEnhancementTimeout() time.Duration {
	d, err := time.ParseDuration(c.Enhancement.Timeout)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// ValidEmbeddingProviders lists all supported embedding providers.
var ValidEmbeddingProviders = []string{"ollama", "genai", "none"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidEmbeddingProviders {
		if c.Embedding.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidEmbeddingProviders)
	}

	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("embedding provider genai requires an API key (set GEMINI_API_KEY)")
	}
	if c.Enhancement.Enabled && c.Enhancement.APIKey == "" {
		return fmt.Errorf("enhancement enabled but no API key configured (set GEMINI_API_KEY)")
	}

	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval similarity_threshold must be in [0,1], got %v", c.Retrieval.SimilarityThreshold)
	}
	if c.Retrieval.MaxResults <= 0 {
		return fmt.Errorf("retrieval max_results must be positive, got %d", c.Retrieval.MaxResults)
	}

	sum := c.Scoring.CompletenessWeight + c.Scoring.RetrievalWeight + c.Scoring.EnhancementWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}

	return nil
}

// IsEnhancementEnabled returns whether the enhancement pass should run.
func (c *Config) IsEnhancementEnabled() bool {
	return c.Enhancement.Enabled && c.Enhancement.APIKey != ""
}
