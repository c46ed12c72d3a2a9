package ragqa

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver       string // "valkey", "redis" or "qdrant"
	addrs        []string
	password     string
	qdrantURL    string
	qdrantAPIKey string
	keyPrefix    string

	embedder  Embedder
	generator Generator

	collection string
	dimensions int
	metric     string

	windowSize      int
	overlap         int
	topK            int
	maxOutputTokens int
	promptTemplate  string
	maxBatchSize    int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:  "ragqa:",
		collection: "default",
		dimensions: 384,
		metric:     "cosine",
		windowSize: 200,
		overlap:    20,
		topK:       3,
	}
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance with a search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithQdrant configures the client to use a Qdrant REST endpoint.
// apiKey may be empty.
func WithQdrant(url, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.qdrantURL = url
		c.qdrantAPIKey = apiKey
	})
}

// WithKeyPrefix sets the Valkey/Redis key prefix. Default: "ragqa:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the text embedding model. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the generative model. Required for Ask.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithCollection sets the collection name, vector dimensionality and metric
// ("cosine", "l2" or "ip"). Defaults: "default", 384, "cosine".
func WithCollection(name string, dimensions int, metric string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
		c.dimensions = dimensions
		c.metric = metric
	})
}

// WithChunking sets the window size and overlap in words. Defaults: 200, 20.
func WithChunking(windowSize, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.windowSize = windowSize
		c.overlap = overlap
	})
}

// WithTopK sets how many chunks Ask retrieves. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMaxOutputTokens bounds the generated answer. Default: 100.
func WithMaxOutputTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxOutputTokens = n
	})
}

// WithPromptTemplate overrides the prompt, a text/template over .Context and .Question.
func WithPromptTemplate(tmpl string) Option {
	return optionFunc(func(c *clientConfig) {
		c.promptTemplate = tmpl
	})
}

// WithMaxBatchSize caps the number of texts per embedding request. Default: 256.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
