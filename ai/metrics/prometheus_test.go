package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aico-ai/aico/ai/cache"
)

func TestPrometheusExporter(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	t.Run("RecordResolution", func(t *testing.T) {
		exporter.RecordResolution("CONTINUE", "SEMANTIC_SIMILARITY", 120*time.Millisecond)
		exporter.RecordResolution("CREATE", "NEW_SESSION", 80*time.Millisecond)
		exporter.RecordResolution("CREATE", "FALLBACK", 3*time.Second)
	})

	t.Run("RecordTimeoutAndFailure", func(t *testing.T) {
		exporter.RecordTimeout()
		exporter.RecordFailure("resolve")
		exporter.RecordAdapterError("embedding")
	})

	t.Run("ActiveResolves", func(t *testing.T) {
		exporter.ResolveStarted()
		exporter.ResolveStarted()
		exporter.ResolveFinished()
	})

	t.Run("SyncCacheStats", func(t *testing.T) {
		exporter.SyncCacheStats("embedding", cache.Stats{Hits: 10, Misses: 3, Evictions: 1, Size: 7})
		exporter.SyncCacheStats("context", cache.Stats{Hits: 4, Misses: 4, Size: 2})
	})
}

func TestPrometheusExporterHandler(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	exporter.RecordResolution("CONTINUE", "SEMANTIC_SIMILARITY", 100*time.Millisecond)
	exporter.RecordTimeout()
	exporter.RecordAdapterError("ner")
	exporter.SyncCacheStats("embedding", cache.Stats{Hits: 1, Misses: 1, Size: 1})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	exporter.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, metric := range []string{
		"aico_resolver_resolutions_total",
		"aico_resolver_resolve_latency_seconds",
		"aico_resolver_timeouts_total",
		"aico_resolver_adapter_errors_total",
		"aico_resolver_cache_hits",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %s metric in output", metric)
		}
	}
}

func TestPrometheusExporterCustomRegistry(t *testing.T) {
	exporter := NewPrometheusExporter(Config{})
	exporter.RecordResolution("BRANCH", "TOPIC_SHIFT", 50*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	exporter.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func BenchmarkPrometheusExporter(b *testing.B) {
	exporter := NewPrometheusExporter(DefaultConfig())

	b.Run("RecordResolution", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			exporter.RecordResolution("CONTINUE", "TEMPORAL_CONTINUITY", 100*time.Millisecond)
		}
	})

	b.Run("RecordAdapterError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			exporter.RecordAdapterError("embedding")
		}
	})
}
