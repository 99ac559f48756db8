package thread

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aico-ai/aico/ai"
	"github.com/aico-ai/aico/ai/cache"
	"github.com/aico-ai/aico/ai/clients"
)

// MessageAnalyzer produces the per-message signal bundle. Implemented by the
// analyzer package; declared here so the resolver depends only on behavior.
type MessageAnalyzer interface {
	Analyze(ctx context.Context, text, userID string, recentIntents []string) *Analysis
}

// ContextProvider returns a user's thread contexts. ok is false when working
// memory could not be read; an empty list with ok true means the user
// genuinely has no recent history.
type ContextProvider interface {
	Contexts(ctx context.Context, userID string) (contexts []*Context, ok bool)
}

// Recorder receives resolution telemetry. Implemented by the metrics package.
type Recorder interface {
	RecordResolution(action, reason string, latency time.Duration)
	RecordTimeout()
	RecordFailure(stage string)
}

// fallbackConfidence is deliberately low so downstream consumers can tell a
// degraded resolution from a reasoned one.
const fallbackConfidence = 0.4

// Resolver orchestrates one resolve call: analyze the message and build the
// user's contexts in parallel, score every thread, then run the decision
// matrix. Resolve never fails; any panic, timeout, or dependency outage
// degrades to a CREATE resolution with reason FALLBACK.
type Resolver struct {
	cfg      ai.ResolverConfig
	analyzer MessageAnalyzer
	contexts ContextProvider
	scorer   *Scorer
	matrix   *DecisionMatrix
	status   *clients.StatusBoard
	metrics  Recorder
	nowFn    func() time.Time
}

// NewResolver creates the resolver. status and metrics may be nil.
func NewResolver(
	cfg ai.ResolverConfig,
	analyzer MessageAnalyzer,
	contexts ContextProvider,
	status *clients.StatusBoard,
	metrics Recorder,
) *Resolver {
	return &Resolver{
		cfg:      cfg,
		analyzer: analyzer,
		contexts: contexts,
		scorer:   NewScorer(),
		matrix:   NewDecisionMatrix(cfg),
		status:   status,
		metrics:  metrics,
		nowFn:    time.Now,
	}
}

// Resolve decides where the message belongs in the user's conversation
// graph. The whole call is bounded by the configured total deadline.
func (r *Resolver) Resolve(ctx context.Context, userID, message string) *Resolution {
	start := r.nowFn()
	requestID := uuid.NewString()
	logger := slog.Default().With(
		"request_id", requestID,
		"user", cache.HashKey(userID),
	)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.TotalDeadline)
	defer cancel()

	res := r.resolve(ctx, logger, userID, message)
	elapsed := r.nowFn().Sub(start)

	if res.ContextFactors == nil {
		res.ContextFactors = map[string]any{}
	}
	res.ContextFactors["request_id"] = requestID
	res.ContextFactors["resolution_time_ms"] = elapsed.Milliseconds()
	if r.status != nil {
		res.ContextFactors["service_status"] = r.status.Snapshot()
	}
	if r.metrics != nil {
		r.metrics.RecordResolution(string(res.Action), string(res.PrimaryReason), elapsed)
	}

	logger.Info("thread resolved",
		"action", res.Action,
		"thread_id", res.ThreadID,
		"reason", res.PrimaryReason,
		"confidence", res.Confidence,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return res
}

func (r *Resolver) resolve(ctx context.Context, logger *slog.Logger, userID, message string) (res *Resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("thread resolution panicked", "panic", rec)
			if r.metrics != nil {
				r.metrics.RecordFailure("resolve")
			}
			res = r.fallback("internal error during resolution")
		}
	}()

	var (
		analysis   *Analysis
		contexts   []*Context
		contextsOK bool
		panicked   atomic.Bool
	)
	// Recover inside each branch: a panic in an errgroup goroutine would
	// otherwise escape the recover above.
	var g errgroup.Group
	g.Go(func() error {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("message analysis panicked", "panic", rec)
				panicked.Store(true)
			}
		}()
		analysis = r.analyzer.Analyze(ctx, message, userID, nil)
		return nil
	})
	g.Go(func() error {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("context build panicked", "panic", rec)
				panicked.Store(true)
			}
		}()
		contexts, contextsOK = r.contexts.Contexts(ctx, userID)
		return nil
	})
	g.Wait() //nolint:errcheck // both branches degrade internally

	if panicked.Load() {
		if r.metrics != nil {
			r.metrics.RecordFailure("resolve")
		}
		return r.fallback("internal error during resolution")
	}
	if ctx.Err() != nil {
		logger.Warn("resolution deadline exceeded", "deadline", r.cfg.TotalDeadline)
		if r.metrics != nil {
			r.metrics.RecordTimeout()
		}
		return r.fallback("resolution deadline exceeded")
	}
	if !contextsOK {
		// Indistinguishable from a new user without this signal: working
		// memory is down, so history may exist that cannot be seen.
		logger.Warn("working memory unavailable, degrading to fallback")
		if r.metrics != nil {
			r.metrics.RecordFailure("contexts")
		}
		return r.fallback("working memory unavailable")
	}
	if analysis == nil {
		// The analyzer contract forbids nil, but a fallback beats a panic.
		analysis = &Analysis{DetectedIntent: IntentGeneral, Entities: map[string][]string{}}
	}

	scores := r.scorer.Score(analysis, contexts)
	return r.matrix.Decide(userID, message, analysis, contexts, scores)
}

// fallback is the degraded resolution: a fresh thread the caller can always
// safely use, marked so consumers can tell it apart.
func (r *Resolver) fallback(reasoning string) *Resolution {
	res := r.matrix.create(ReasonFallback, fallbackConfidence, reasoning)
	res.ContextFactors = map[string]any{"degraded": true}
	return res
}
