// Package config loads logsage settings from YAML files, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/logsage/ai"
	"github.com/poiesic/logsage/analysis"
	"github.com/poiesic/logsage/chunker"
	"github.com/poiesic/logsage/embedding"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Vector store backends.
const (
	StoreBadger = "badger"
	StoreQdrant = "qdrant"
	StoreMemory = "memory"
)

// Config holds application configuration
type Config struct {
	// DataDir holds the badger database.
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	VectorStore string `mapstructure:"vector_store" yaml:"vector_store"`

	Qdrant       QdrantConfig       `mapstructure:"qdrant" yaml:"qdrant"`
	Inference    InferenceConfig    `mapstructure:"inference" yaml:"inference"`
	Ingest       IngestConfig       `mapstructure:"ingest" yaml:"ingest"`
	Analysis     AnalysisConfig     `mapstructure:"analysis" yaml:"analysis"`
	Conversation ConversationConfig `mapstructure:"conversation" yaml:"conversation"`
}

// QdrantConfig locates the external vector store.
type QdrantConfig struct {
	URL        string `mapstructure:"url" yaml:"url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// InferenceConfig selects the embedding and reasoning services.
type InferenceConfig struct {
	Provider        string `mapstructure:"provider" yaml:"provider"`
	EmbeddingAPI    string `mapstructure:"embedding_api" yaml:"embedding_api"`
	EmbeddingURL    string `mapstructure:"embedding_url" yaml:"embedding_url"`
	EmbeddingModel  string `mapstructure:"embedding_model" yaml:"embedding_model"`
	EmbeddingAPIKey string `mapstructure:"embedding_api_key" yaml:"embedding_api_key,omitempty"`
	OllamaURL       string `mapstructure:"ollama_url" yaml:"ollama_url"`
	OllamaModel     string `mapstructure:"ollama_model" yaml:"ollama_model"`
	GroqURL         string `mapstructure:"groq_url" yaml:"groq_url"`
	GroqAPIKey      string `mapstructure:"groq_api_key" yaml:"groq_api_key,omitempty"`
	GroqModel       string `mapstructure:"groq_model" yaml:"groq_model"`
}

// IngestConfig bounds uploads, chunking and embedding fan-out.
type IngestConfig struct {
	MaxFileSizeMB        int           `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
	WarnFileSizeMB       int           `mapstructure:"warn_file_size_mb" yaml:"warn_file_size_mb"`
	MaxChunks            int           `mapstructure:"max_chunks" yaml:"max_chunks"`
	TargetChars          int           `mapstructure:"target_chars" yaml:"target_chars"`
	MaxChars             int           `mapstructure:"max_chars" yaml:"max_chars"`
	MaxEntries           int           `mapstructure:"max_entries" yaml:"max_entries"`
	OverlapEntries       int           `mapstructure:"overlap_entries" yaml:"overlap_entries"`
	TimeGap              time.Duration `mapstructure:"time_gap" yaml:"time_gap"`
	EmbeddingConcurrency int           `mapstructure:"embedding_concurrency" yaml:"embedding_concurrency"`
	EmbeddingAttempts    int           `mapstructure:"embedding_attempts" yaml:"embedding_attempts"`
	EmbeddingTimeout     time.Duration `mapstructure:"embedding_timeout" yaml:"embedding_timeout"`
}

// AnalysisConfig tunes question answering.
type AnalysisConfig struct {
	TopK          int           `mapstructure:"top_k" yaml:"top_k"`
	HistoryWindow int           `mapstructure:"history_window" yaml:"history_window"`
	MinScore      float32       `mapstructure:"min_score" yaml:"min_score"`
	CallTimeout   time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
}

// ConversationConfig bounds conversation history.
type ConversationConfig struct {
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
	// IdleTTL evicts conversations idle this long. Zero keeps them until reset.
	IdleTTL time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	Persist bool          `mapstructure:"persist" yaml:"persist"`
}

// Default returns a Config with default values
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	chunkDefaults := chunker.DefaultConfig()
	embedDefaults := embedding.DefaultConfig()
	analysisDefaults := analysis.DefaultConfig()

	dataDir := ".logsage"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".logsage")
	}

	return &Config{
		DataDir:     dataDir,
		VectorStore: StoreBadger,
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "log_chunks",
		},
		Inference: InferenceConfig{
			Provider:       string(aiDefaults.Provider),
			EmbeddingAPI:   string(aiDefaults.EmbeddingAPI),
			EmbeddingURL:   aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			OllamaURL:      aiDefaults.OllamaHost,
			OllamaModel:    aiDefaults.OllamaModel,
			GroqURL:        aiDefaults.GroqHost,
			GroqModel:      aiDefaults.GroqModel,
		},
		Ingest: IngestConfig{
			MaxFileSizeMB:        50,
			WarnFileSizeMB:       10,
			MaxChunks:            chunkDefaults.MaxChunks,
			TargetChars:          chunkDefaults.TargetChars,
			MaxChars:             chunkDefaults.MaxChars,
			MaxEntries:           chunkDefaults.MaxEntries,
			OverlapEntries:       chunkDefaults.OverlapEntries,
			TimeGap:              chunkDefaults.TimeGap,
			EmbeddingConcurrency: embedDefaults.Concurrency,
			EmbeddingAttempts:    embedDefaults.MaxAttempts,
			EmbeddingTimeout:     embedDefaults.CallTimeout,
		},
		Analysis: AnalysisConfig{
			TopK:          analysisDefaults.TopK,
			HistoryWindow: analysisDefaults.HistoryWindow,
			MinScore:      analysisDefaults.MinScore,
			CallTimeout:   analysisDefaults.CallTimeout,
		},
		Conversation: ConversationConfig{
			MaxTurns: 20,
			Persist:  true,
		},
	}
}

// Load builds the effective configuration.
//
// Precedence, lowest first: defaults, the YAML file at path (or the first
// file found by FindConfigFile when path is empty), a .env file in the
// working directory, and the process environment. Variables already set in
// the environment are not overwritten by .env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: decoding %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
// Search order (highest precedence first):
// 1. ./logsage.yaml or ./.logsage.yaml
// 2. $XDG_CONFIG_HOME/logsage/config.yaml (or ~/.config/logsage/config.yaml)
func FindConfigFile() string {
	names := []string{"logsage.yaml", "logsage.yml", ".logsage.yaml", ".logsage.yml"}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(cwd, name))
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "logsage", "config.yaml"))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"DATA_DIR":           &cfg.DataDir,
		"VECTOR_STORE":       &cfg.VectorStore,
		"QDRANT_URL":         &cfg.Qdrant.URL,
		"QDRANT_API_KEY":     &cfg.Qdrant.APIKey,
		"COLLECTION_NAME":    &cfg.Qdrant.Collection,
		"INFERENCE_PROVIDER": &cfg.Inference.Provider,
		"EMBEDDING_API":      &cfg.Inference.EmbeddingAPI,
		"EMBEDDING_BASE_URL": &cfg.Inference.EmbeddingURL,
		"EMBEDDING_API_KEY":  &cfg.Inference.EmbeddingAPIKey,
		"OLLAMA_EMBED_MODEL": &cfg.Inference.EmbeddingModel,
		"OLLAMA_MODEL":       &cfg.Inference.OllamaModel,
		"GROQ_API_KEY":       &cfg.Inference.GroqAPIKey,
		"GROQ_MODEL":         &cfg.Inference.GroqModel,
		"GROQ_BASE_URL":      &cfg.Inference.GroqURL,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	// OLLAMA_BASE_URL moves both Ollama endpoints unless the embedding
	// endpoint was set on its own.
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Inference.OllamaURL = v
		if os.Getenv("EMBEDDING_BASE_URL") == "" {
			cfg.Inference.EmbeddingURL = v
		}
	}

	ints := map[string]*int{
		"MAX_CHUNKS":            &cfg.Ingest.MaxChunks,
		"EMBEDDING_CONCURRENCY": &cfg.Ingest.EmbeddingConcurrency,
		"MAX_FILE_SIZE_MB":      &cfg.Ingest.MaxFileSizeMB,
		"WARN_FILE_SIZE_MB":     &cfg.Ingest.WarnFileSizeMB,
		"TOP_K":                 &cfg.Analysis.TopK,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", key, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.VectorStore) {
	case StoreBadger, StoreQdrant, StoreMemory:
		c.VectorStore = strings.ToLower(c.VectorStore)
	default:
		return fmt.Errorf("config: vector_store must be badger, qdrant or memory, got %q", c.VectorStore)
	}
	if c.VectorStore == StoreBadger && c.DataDir == "" {
		return errors.New("config: data_dir is required for the badger store")
	}
	if c.VectorStore == StoreQdrant && (c.Qdrant.URL == "" || c.Qdrant.Collection == "") {
		return errors.New("config: qdrant url and collection are required for the qdrant store")
	}
	if c.Ingest.MaxFileSizeMB <= 0 {
		return fmt.Errorf("config: max_file_size_mb must be positive, got %d", c.Ingest.MaxFileSizeMB)
	}
	if c.Ingest.WarnFileSizeMB < 0 || c.Ingest.WarnFileSizeMB > c.Ingest.MaxFileSizeMB {
		return fmt.Errorf("config: warn_file_size_mb must be between 0 and max_file_size_mb, got %d", c.Ingest.WarnFileSizeMB)
	}
	if c.Conversation.MaxTurns <= 0 {
		return fmt.Errorf("config: conversation max_turns must be positive, got %d", c.Conversation.MaxTurns)
	}
	if c.Conversation.IdleTTL < 0 {
		return errors.New("config: conversation idle_ttl cannot be negative")
	}
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if err := c.ChunkerConfig().Validate(); err != nil {
		return err
	}
	if err := c.EmbeddingConfig().Validate(); err != nil {
		return err
	}
	return c.AnalysisConfig().Validate()
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// YAML renders the configuration. Secrets are included.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Redacted returns a copy with API keys masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Qdrant.APIKey = redact(out.Qdrant.APIKey)
	out.Inference.EmbeddingAPIKey = redact(out.Inference.EmbeddingAPIKey)
	out.Inference.GroqAPIKey = redact(out.Inference.GroqAPIKey)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// MaxFileSizeBytes returns the hard upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Ingest.MaxFileSizeMB) * 1024 * 1024
}

// WarnFileSizeBytes returns the warning threshold in bytes.
func (c *Config) WarnFileSizeBytes() int64 {
	return int64(c.Ingest.WarnFileSizeMB) * 1024 * 1024
}

// AIConfig converts the inference settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.InferenceProvider(c.Inference.Provider)),
		ai.WithEmbeddingAPI(ai.EmbeddingAPI(c.Inference.EmbeddingAPI)),
		ai.WithEmbeddingHost(c.Inference.EmbeddingURL),
		ai.WithEmbeddingModel(c.Inference.EmbeddingModel),
		ai.WithEmbeddingAPIKey(c.Inference.EmbeddingAPIKey),
		ai.WithOllamaHost(c.Inference.OllamaURL),
		ai.WithOllamaModel(c.Inference.OllamaModel),
		ai.WithGroqHost(c.Inference.GroqURL),
		ai.WithGroqAPIKey(c.Inference.GroqAPIKey),
		ai.WithGroqModel(c.Inference.GroqModel),
	)
}

// ChunkerConfig converts the chunking settings.
func (c *Config) ChunkerConfig() *chunker.Config {
	return chunker.NewConfig(
		chunker.WithMaxChunks(c.Ingest.MaxChunks),
		chunker.WithTargetChars(c.Ingest.TargetChars),
		chunker.WithMaxChars(c.Ingest.MaxChars),
		chunker.WithMaxEntries(c.Ingest.MaxEntries),
		chunker.WithOverlapEntries(c.Ingest.OverlapEntries),
		chunker.WithTimeGap(c.Ingest.TimeGap),
	)
}

// EmbeddingConfig converts the embedding pool settings.
func (c *Config) EmbeddingConfig() *embedding.Config {
	return embedding.NewConfig(
		embedding.WithConcurrency(c.Ingest.EmbeddingConcurrency),
		embedding.WithMaxAttempts(c.Ingest.EmbeddingAttempts),
		embedding.WithCallTimeout(c.Ingest.EmbeddingTimeout),
	)
}

// AnalysisConfig converts the analysis settings.
func (c *Config) AnalysisConfig() *analysis.Config {
	return analysis.NewConfig(
		analysis.WithTopK(c.Analysis.TopK),
		analysis.WithHistoryWindow(c.Analysis.HistoryWindow),
		analysis.WithMinScore(c.Analysis.MinScore),
		analysis.WithCallTimeout(c.Analysis.CallTimeout),
	)
}
