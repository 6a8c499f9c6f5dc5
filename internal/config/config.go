package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendFile     = "file"
	BackendPostgres = "postgres"

	DriverPG = "pgdriver"
	DriverPQ = "pq"

	// MaxEmbedBatchSize is the ceiling on texts sent in one embedding call.
	MaxEmbedBatchSize = 1000

	defaultChunkTokens = 500
	defaultTopK        = 5
	defaultEncoding    = "cl100k_base"
	defaultOrdersFile  = "service_orders.json"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1500
)

type Config struct {
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	Corpus       CorpusConfig   `yaml:"corpus"`
	Storage      StorageConfig  `yaml:"storage"`
	Database     DatabaseConfig `yaml:"database"`
	Log          LogConfig      `yaml:"log"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkTokens    int           `yaml:"chunk_tokens"`
	TopK           int           `yaml:"top_k"`
	EmbedBatchSize int           `yaml:"embed_batch_size"`
	ContextTokens  int           `yaml:"context_tokens"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	Encoding       string        `yaml:"encoding"`
}

// DocumentRef points at a report document below the corpus root. Essential
// documents abort the request when they cannot be extracted.
type DocumentRef struct {
	Path      string `yaml:"path"`
	Essential bool   `yaml:"essential"`
}

type CorpusConfig struct {
	Root      string        `yaml:"root"`
	Documents []DocumentRef `yaml:"documents"`
	Catalog   string        `yaml:"catalog"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"`
	FilePath string `yaml:"file_path"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the yaml file at path, loads a .env file when present and
// applies defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes yaml data into a Config with defaults applied.
func Parse(data []byte) (*Config, error) {
	// absent keys keep these values; an explicit zero survives
	cfg := Config{InferenceLLM: LLMConfig{Temperature: defaultTemperature}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for _, llm := range []*LLMConfig{&c.EmbedLLM, &c.InferenceLLM} {
		if llm.Provider == "" {
			llm.Provider = ProviderOpenAI
		}
		if llm.Key == "" && llm.Provider == ProviderOpenAI {
			llm.Key = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.InferenceLLM.MaxTokens == 0 {
		c.InferenceLLM.MaxTokens = defaultMaxTokens
	}

	if c.RAG.ChunkTokens == 0 {
		c.RAG.ChunkTokens = defaultChunkTokens
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.EmbedBatchSize == 0 {
		c.RAG.EmbedBatchSize = MaxEmbedBatchSize
	}
	if c.RAG.Encoding == "" {
		c.RAG.Encoding = defaultEncoding
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.FilePath == "" {
		c.Storage.FilePath = defaultOrdersFile
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPG
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	for name, llm := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "inference_llm": c.InferenceLLM} {
		if llm.Provider != ProviderOpenAI && llm.Provider != ProviderOllama {
			return fmt.Errorf("%s: unsupported provider %q", name, llm.Provider)
		}
	}
	if c.RAG.ChunkTokens < 1 {
		return fmt.Errorf("rag.chunk_tokens must be positive, got %d", c.RAG.ChunkTokens)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.RAG.EmbedBatchSize < 1 || c.RAG.EmbedBatchSize > MaxEmbedBatchSize {
		return fmt.Errorf("rag.embed_batch_size must be between 1 and %d, got %d", MaxEmbedBatchSize, c.RAG.EmbedBatchSize)
	}
	if c.InferenceLLM.Temperature < 0 || c.InferenceLLM.Temperature > 2 {
		return fmt.Errorf("inference_llm.temperature must be between 0 and 2, got %v", c.InferenceLLM.Temperature)
	}
	if c.RAG.ContextTokens < 0 || c.RAG.CallTimeout < 0 {
		return errors.New("rag.context_tokens and rag.call_timeout must not be negative")
	}
	switch c.Storage.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres backend")
		}
		if c.Database.Driver != DriverPG && c.Database.Driver != DriverPQ {
			return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("storage: unsupported backend %q", c.Storage.Backend)
	}
	return nil
}
