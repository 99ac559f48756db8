package ai

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/aico-ai/aico/internal/profile"
)

// Config represents AI configuration for the thread resolver subsystem.
type Config struct {
	Embedding    EmbeddingConfig
	ModelService ModelServiceConfig
	Resolver     ResolverConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai-compatible provider or "service" for the in-house endpoint
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// ModelServiceConfig represents the NER / intent / sentiment model service.
type ModelServiceConfig struct {
	BaseURL string
}

// ResolverConfig holds the thread resolver tunables.
type ResolverConfig struct {
	// DormancyThreshold is the inactivity gap after which a thread is dormant.
	DormancyThreshold time.Duration

	// SemanticSimilarityThreshold gates the CONTINUE decision.
	SemanticSimilarityThreshold float64

	// TopicShiftThreshold gates the BRANCH/CREATE-on-shift decision.
	TopicShiftThreshold float64

	// MaxThreadContextMessages caps messages returned per thread context.
	MaxThreadContextMessages int

	// MaxThreadsPerUser caps the context set; older threads are truncated.
	MaxThreadsPerUser int

	// EnableCaching toggles the embedding and context caches.
	EnableCaching bool

	// TotalDeadline is the umbrella deadline for a single resolve call.
	TotalDeadline time.Duration

	// AnalyzerDeadline bounds the message-analysis fan-out.
	AnalyzerDeadline time.Duration

	// AdapterDeadline is the per-call deadline for external adapters.
	AdapterDeadline time.Duration

	// ContextCacheTTL / ContextCacheSize bound the per-user context cache.
	ContextCacheTTL  time.Duration
	ContextCacheSize int

	// EmbeddingCacheTTL / EmbeddingCacheSize bound the embedding cache.
	EmbeddingCacheTTL  time.Duration
	EmbeddingCacheSize int

	// EmbeddingDimension is the expected vector length D.
	EmbeddingDimension int
}

// DefaultResolverConfig returns the resolver defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		DormancyThreshold:           2 * time.Hour,
		SemanticSimilarityThreshold: 0.7,
		TopicShiftThreshold:         0.4,
		MaxThreadContextMessages:    50,
		MaxThreadsPerUser:           256,
		EnableCaching:               true,
		TotalDeadline:               3 * time.Second,
		AnalyzerDeadline:            1500 * time.Millisecond,
		AdapterDeadline:             2 * time.Second,
		ContextCacheTTL:             5 * time.Minute,
		ContextCacheSize:            5000,
		EmbeddingCacheTTL:           time.Hour,
		EmbeddingCacheSize:          10000,
		EmbeddingDimension:          768,
	}
}

// Validate checks configuration invariants.
func (c *ResolverConfig) Validate() error {
	if c.SemanticSimilarityThreshold < 0 || c.SemanticSimilarityThreshold > 1 {
		return errors.Errorf("semantic similarity threshold out of range: %f", c.SemanticSimilarityThreshold)
	}
	if c.TopicShiftThreshold < 0 || c.TopicShiftThreshold > 1 {
		return errors.Errorf("topic shift threshold out of range: %f", c.TopicShiftThreshold)
	}
	if c.TotalDeadline <= 0 || c.AnalyzerDeadline <= 0 || c.AdapterDeadline <= 0 {
		return errors.New("deadlines must be positive")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.Errorf("invalid embedding dimension: %d", c.EmbeddingDimension)
	}
	if c.MaxThreadsPerUser <= 0 {
		c.MaxThreadsPerUser = 256
	}
	return nil
}

// NewConfigFromProfile creates AI config from the instance profile,
// applying AICO_RESOLVER_* environment overrides for the tunables.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Provider:   p.EmbeddingProvider,
			Model:      p.EmbeddingModel,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.EmbeddingDimensions,
		},
		ModelService: ModelServiceConfig{
			BaseURL: p.ModelServiceURL,
		},
		Resolver: DefaultResolverConfig(),
	}
	cfg.Resolver.EmbeddingDimension = p.EmbeddingDimensions

	r := &cfg.Resolver
	if hours := envFloat("AICO_RESOLVER_DORMANCY_THRESHOLD_HOURS"); hours > 0 {
		r.DormancyThreshold = time.Duration(hours * float64(time.Hour))
	}
	if v := envFloat("AICO_RESOLVER_SEMANTIC_SIMILARITY_THRESHOLD"); v > 0 {
		r.SemanticSimilarityThreshold = v
	}
	if v := envFloat("AICO_RESOLVER_TOPIC_SHIFT_THRESHOLD"); v > 0 {
		r.TopicShiftThreshold = v
	}
	if v := envInt("AICO_RESOLVER_MAX_THREAD_CONTEXT_MESSAGES"); v > 0 {
		r.MaxThreadContextMessages = v
	}
	if v := os.Getenv("AICO_RESOLVER_ENABLE_CACHING"); v != "" {
		r.EnableCaching = v == "true"
	}
	if v := envInt("AICO_RESOLVER_TOTAL_DEADLINE_MS"); v > 0 {
		r.TotalDeadline = time.Duration(v) * time.Millisecond
	}
	if v := envInt("AICO_RESOLVER_ANALYZER_DEADLINE_MS"); v > 0 {
		r.AnalyzerDeadline = time.Duration(v) * time.Millisecond
	}
	if v := envInt("AICO_RESOLVER_ADAPTER_DEADLINE_MS"); v > 0 {
		r.AdapterDeadline = time.Duration(v) * time.Millisecond
	}
	if v := envInt("AICO_RESOLVER_CONTEXT_CACHE_TTL_SECONDS"); v > 0 {
		r.ContextCacheTTL = time.Duration(v) * time.Second
	}
	if v := envInt("AICO_RESOLVER_EMBEDDING_CACHE_TTL_SECONDS"); v > 0 {
		r.EmbeddingCacheTTL = time.Duration(v) * time.Second
	}

	return cfg
}

func envInt(key string) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return 0
}

func envFloat(key string) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return 0
}
