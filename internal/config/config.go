// Package config loads the ragqa YAML configuration.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Config holds the ragqa service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Collection  CollectionConfig  `yaml:"collection"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Health      HealthConfig      `yaml:"health"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorStoreConfig selects and addresses the vector store backend.
type VectorStoreConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, qdrant (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"`     // qdrant REST endpoint
	APIKey           string   `yaml:"api_key"` // qdrant api-key header
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CollectionConfig describes the single collection the pipeline writes to.
type CollectionConfig struct {
	Name              string `yaml:"name"`
	Dimensions        int    `yaml:"dimensions"`
	Metric            string `yaml:"metric"` // cosine, l2, ip
	HNSWM             int    `yaml:"hnsw_m"`
	HNSWEFConstruct   int    `yaml:"hnsw_ef_construction"`
	RecreateOnStartup *bool  `yaml:"recreate_on_startup"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxBatchSize   int    `yaml:"max_batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency"` // sub-batches in flight
	Cache          bool   `yaml:"cache"`

	// Prefixes for instruction-tuned models (e5, bge): chunks get
	// DocumentInstruction, questions get QueryInstruction.
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// GenerationConfig holds generative model settings.
type GenerationConfig struct {
	Provider        string  `yaml:"provider"` // openai, anthropic
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float32 `yaml:"temperature"`
	PromptTemplate  string  `yaml:"prompt_template"` // text/template with .Context and .Question
}

// IngestConfig holds source and chunking settings of the indexer.
type IngestConfig struct {
	SourceURL       string `yaml:"source_url"`
	WindowSize      int    `yaml:"window_size"`
	Overlap         int    `yaml:"overlap"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	UserAgent       string `yaml:"user_agent"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// HealthConfig holds /health probe settings.
type HealthConfig struct {
	ProbeTimeoutSec int `yaml:"probe_timeout_sec"` // per dependency probe
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// ingestion embeds a whole page and generation is slow on CPU
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Health.ProbeTimeoutSec <= 0 {
		c.Health.ProbeTimeoutSec = 5
	}

	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = "valkey"
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}
	if c.VectorStore.KeyPrefix == "" {
		c.VectorStore.KeyPrefix = "ragqa:"
	}

	if c.Collection.Name == "" {
		c.Collection.Name = "hotmart_knowledge"
	}
	if c.Collection.Dimensions == 0 {
		c.Collection.Dimensions = 384
	}
	if c.Collection.Metric == "" {
		c.Collection.Metric = "cosine"
	}
	if c.Collection.HNSWM <= 0 {
		c.Collection.HNSWM = 16
	}
	if c.Collection.HNSWEFConstruct <= 0 {
		c.Collection.HNSWEFConstruct = 200
	}
	if c.Collection.RecreateOnStartup == nil {
		recreate := true
		c.Collection.RecreateOnStartup = &recreate
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.MaxConcurrency == 0 {
		c.Embedding.MaxConcurrency = 4
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = "openai"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "google/flan-t5-small"
	}
	if c.Generation.MaxOutputTokens == 0 {
		c.Generation.MaxOutputTokens = 100
	}

	// an explicit window keeps its overlap, including zero
	if c.Ingest.WindowSize == 0 {
		c.Ingest.WindowSize = 200
		if c.Ingest.Overlap == 0 {
			c.Ingest.Overlap = 20
		}
	}
	if c.Ingest.FetchTimeoutSec <= 0 {
		c.Ingest.FetchTimeoutSec = 30
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = "ragqa/1.0"
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		fail("http.port must be in 1..65535, got %d", c.HTTP.Port)
	}

	vs := c.VectorStore
	switch vs.Driver {
	case "valkey", "redis":
		if len(vs.Addrs) == 0 {
			fail("vector_store.addrs is required for driver %q", vs.Driver)
		}
	case "qdrant":
		if vs.URL == "" {
			fail("vector_store.url is required for driver \"qdrant\"")
		}
		if c.Embedding.Cache {
			fail("embedding.cache requires a valkey or redis vector_store")
		}
	default:
		fail("vector_store.driver must be one of valkey, redis, qdrant, got %q", vs.Driver)
	}

	if !domain.ValidCollectionName(c.Collection.Name) {
		fail("collection.name may only contain letters, digits, '_' and '-', got %q", c.Collection.Name)
	}
	if c.Collection.Dimensions <= 0 {
		fail("collection.dimensions must be positive, got %d", c.Collection.Dimensions)
	}
	if !slices.Contains([]string{"cosine", "l2", "ip"}, c.Collection.Metric) {
		fail("collection.metric must be one of cosine, l2, ip, got %q", c.Collection.Metric)
	}

	if c.Embedding.MaxConcurrency < 0 {
		fail("embedding.max_concurrency must be positive, got %d", c.Embedding.MaxConcurrency)
	}
	if !slices.Contains([]string{"openai", "anthropic"}, c.Generation.Provider) {
		fail("generation.provider must be openai or anthropic, got %q", c.Generation.Provider)
	}
	if c.Generation.MaxOutputTokens < 0 {
		fail("generation.max_output_tokens must be positive, got %d", c.Generation.MaxOutputTokens)
	}

	in := c.Ingest
	if in.WindowSize <= 0 {
		fail("ingest.window_size must be positive, got %d", in.WindowSize)
	} else if in.Overlap < 0 || in.Overlap >= in.WindowSize {
		fail("ingest.overlap must be in [0, window_size), got %d with window_size %d", in.Overlap, in.WindowSize)
	}
	if c.Retrieval.TopK < 0 {
		fail("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return errors.Join(errs...)
}

// ShouldRecreate reports whether the collection is recreated when the server starts.
func (c CollectionConfig) ShouldRecreate() bool {
	return c.RecreateOnStartup == nil || *c.RecreateOnStartup
}
