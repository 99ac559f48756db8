// Package analyzer turns one raw user message into the signal bundle the
// thread scorer consumes: embedding, intent, entities, and the lexical
// heuristics for topic shift, conversation boundary, and context dependency.
// Remote signals are fetched in parallel under the analyzer deadline; every
// failure degrades to a neutral default, so analysis itself never fails.
package analyzer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/aico-ai/aico/ai"
	"github.com/aico-ai/aico/ai/cache"
	"github.com/aico-ai/aico/ai/clients"
	"github.com/aico-ai/aico/ai/thread"
)

// minIntentConfidence is the classifier confidence below which the intent
// degrades to "general".
const minIntentConfidence = 0.3

// defaultUrgency is a neutral placeholder until urgency modeling lands.
const defaultUrgency = 0.5

// Analyzer produces a thread.Analysis per message.
type Analyzer struct {
	cfg        ai.ResolverConfig
	embedder   clients.Embedder
	intents    clients.IntentClassifier
	entities   clients.EntityExtractor
	embedCache *cache.LoadingCache[[]float32]
}

// New creates a message analyzer. embedCache may be nil to disable embedding
// caching; every other dependency is required.
func New(
	cfg ai.ResolverConfig,
	embedder clients.Embedder,
	intents clients.IntentClassifier,
	entities clients.EntityExtractor,
	embedCache *cache.LoadingCache[[]float32],
) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		embedder:   embedder,
		intents:    intents,
		entities:   entities,
		embedCache: embedCache,
	}
}

// Analyze inspects the message and returns its signal bundle. It never
// returns nil and never panics: remote failures yield the zero-vector
// embedding sentinel, the "general" intent, and an empty entity map.
// recentIntents gives the classifier short-term conversational context.
func (a *Analyzer) Analyze(ctx context.Context, text, userID string, recentIntents []string) (analysis *thread.Analysis) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("message analysis panicked", "panic", r)
			analysis = a.degraded(text)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.AnalyzerDeadline)
	defer cancel()

	// Heuristics are pure and cheap; only the three remote signals fan out.
	analysis = &thread.Analysis{
		DetectedIntent:            thread.IntentGeneral,
		TopicShiftScore:           topicShiftScore(text),
		ConversationBoundaryScore: boundaryScore(text),
		UrgencyScore:              defaultUrgency,
		ContextDependencyScore:    contextDependencyScore(text),
		Entities:                  map[string][]string{},
	}

	var g errgroup.Group
	g.Go(func() error {
		analysis.MessageEmbedding = a.embed(ctx, text)
		return nil
	})
	g.Go(func() error {
		result := a.intents.Classify(ctx, text, userID, recentIntents)
		switch {
		case !result.OK:
			slog.Default().Warn("intent unavailable, defaulting to general", "reason", result.Reason)
		case result.Confidence < minIntentConfidence:
			slog.Default().Debug("intent confidence too low, defaulting to general",
				"intent", result.Intent, "confidence", result.Confidence)
		case !thread.IsKnownIntent(result.Intent):
			slog.Default().Warn("unknown intent label, defaulting to general", "intent", result.Intent)
		default:
			analysis.DetectedIntent = result.Intent
		}
		return nil
	})
	g.Go(func() error {
		result := a.entities.Extract(ctx, text, nil)
		if result.OK {
			analysis.Entities = result.Entities
		}
		return nil
	})
	g.Wait() //nolint:errcheck // tasks degrade in place, never error

	return analysis
}

// embed returns the message embedding, or the zero-vector sentinel when the
// embedder is unavailable. Cached lookups are keyed by content hash so
// repeated messages skip the model entirely.
func (a *Analyzer) embed(ctx context.Context, text string) []float32 {
	load := func(ctx context.Context) ([]float32, bool) {
		result := a.embedder.Embed(ctx, text)
		if !result.OK {
			return nil, false
		}
		return result.Vector, true
	}

	var vector []float32
	var ok bool
	if a.embedCache != nil {
		vector, ok = a.embedCache.GetOrLoad(ctx, cache.HashKey(text), load)
	} else {
		vector, ok = load(ctx)
	}
	if !ok {
		slog.Default().Warn("embedding unavailable, using zero vector")
		return a.zeroVector()
	}
	return vector
}

// degraded is the analysis used when analysis itself panicked: heuristics
// still apply, remote signals fall back to their neutral defaults.
func (a *Analyzer) degraded(text string) *thread.Analysis {
	return &thread.Analysis{
		MessageEmbedding:          a.zeroVector(),
		DetectedIntent:            thread.IntentGeneral,
		TopicShiftScore:           topicShiftScore(text),
		ConversationBoundaryScore: boundaryScore(text),
		UrgencyScore:              defaultUrgency,
		ContextDependencyScore:    contextDependencyScore(text),
		Entities:                  map[string][]string{},
	}
}

func (a *Analyzer) zeroVector() []float32 {
	return make([]float32, a.cfg.EmbeddingDimension)
}
