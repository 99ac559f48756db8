// Package v1 exposes the resolver REST API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aico-ai/aico/ai/cache"
	"github.com/aico-ai/aico/ai/clients"
	aicontext "github.com/aico-ai/aico/ai/context"
	"github.com/aico-ai/aico/ai/metrics"
	"github.com/aico-ai/aico/ai/thread"
	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/store"
)

// APIV1Service carries the wired resolver stack for the HTTP handlers.
type APIV1Service struct {
	Profile  *profile.Profile
	Resolver *thread.Resolver
	Contexts *aicontext.Builder
	Exporter *metrics.PrometheusExporter
	Status   *clients.StatusBoard

	// EmbedCache is shared by the analyzer and context builder; held here
	// only for stats reporting.
	EmbedCache *cache.LoadingCache[[]float32]

	// Working is the local working store; nil when messages are persisted
	// elsewhere, which disables the append endpoint.
	Working store.WorkingStore

	// Semantic and Embedder back the related-segment search; nil Semantic
	// disables the endpoint.
	Semantic *clients.SemanticMemoryAdapter
	Embedder clients.Embedder

	// Sentiment tags stored user messages; optional.
	Sentiment clients.SentimentAnalyzer
}

// Register mounts the v1 routes on the group.
func (s *APIV1Service) Register(g *echo.Group) {
	g.POST("/resolver/resolve", s.handleResolve)
	g.GET("/resolver/health", s.handleHealth)
	if s.Working != nil {
		g.POST("/messages", s.handleAppendMessage)
	}
	if s.Semantic != nil {
		g.POST("/resolver/segments/search", s.handleSegmentSearch)
	}
}

// Healthz is the liveness endpoint.
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// Metrics serves the Prometheus scrape endpoint, refreshing cache gauges
// first so scrapes see current counters.
func (s *APIV1Service) Metrics(c echo.Context) error {
	s.syncCacheStats()
	s.Exporter.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *APIV1Service) syncCacheStats() {
	if s.Exporter == nil {
		return
	}
	if s.EmbedCache != nil {
		s.Exporter.SyncCacheStats("embedding", s.EmbedCache.Stats())
	}
	if s.Contexts != nil {
		s.Exporter.SyncCacheStats("context", s.Contexts.CacheStats())
	}
}
