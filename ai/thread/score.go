package thread

import (
	"log/slog"
	"time"
)

// Aggregate weights. They sum to 1.0; Overall is their weighted sum.
const (
	weightSemantic = 0.30
	weightTemporal = 0.25
	weightIntent   = 0.20
	weightEntity   = 0.10
	weightFlow     = 0.10
	weightPattern  = 0.05
)

// Reserved scores for signals without a trained model yet. Kept constant so
// the aggregate stays deterministic.
const (
	defaultConversationFlow = 0.5
	neutralIntentAlignment  = 0.5
)

// Scorer computes per-thread score rows for a message analysis.
type Scorer struct {
	nowFn func() time.Time
}

// NewScorer creates a scorer using the wall clock.
func NewScorer() *Scorer {
	return &Scorer{nowFn: time.Now}
}

// Score computes a ScoreRow for every context. Per-thread scoring never
// raises: a panic while scoring one thread yields an all-zero row for that
// thread and a warning, and the remaining threads are still scored.
func (s *Scorer) Score(analysis *Analysis, contexts []*Context) map[string]ScoreRow {
	rows := make(map[string]ScoreRow, len(contexts))
	now := s.nowFn()

	for _, tc := range contexts {
		if tc == nil || tc.ThreadID == "" {
			continue
		}
		rows[tc.ThreadID] = s.scoreOne(analysis, tc, now)
	}
	return rows
}

func (s *Scorer) scoreOne(analysis *Analysis, tc *Context, now time.Time) (row ScoreRow) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("thread scoring panicked, emitting zero row",
				"thread_id", tc.ThreadID,
				"panic", r,
			)
			row = ScoreRow{}
		}
	}()

	row.SemanticSimilarity = semanticScore(analysis.MessageEmbedding, tc.TopicEmbedding)
	row.TemporalContinuity = TemporalContinuity(now.Sub(tc.LastActivity))
	row.IntentAlignment = intentAlignment(analysis.DetectedIntent, tc.IntentHistory)
	row.EntityOverlap = entityOverlap(analysis.Entities, tc.Entities)
	row.ConversationFlow = defaultConversationFlow
	row.UserPatternMatch = Clamp01(tc.UserEngagementScore)

	row.Overall = weightSemantic*row.SemanticSimilarity +
		weightTemporal*row.TemporalContinuity +
		weightIntent*row.IntentAlignment +
		weightEntity*row.EntityOverlap +
		weightFlow*row.ConversationFlow +
		weightPattern*row.UserPatternMatch
	return row
}

// semanticScore is cosine similarity clamped to [0,1]. Missing or zero-norm
// vectors score 0; the zero vector is the "no embedding" sentinel.
func semanticScore(message, topic []float32) float64 {
	if IsZeroVector(message) || IsZeroVector(topic) {
		return 0
	}
	return Clamp01(Cosine(message, topic))
}

// TemporalContinuity maps the gap since a thread's last activity onto the
// piecewise continuity scale. It is monotonically non-increasing in the gap.
func TemporalContinuity(gap time.Duration) float64 {
	switch {
	case gap <= 30*time.Minute:
		return 1.0
	case gap <= 2*time.Hour:
		return 0.8
	case gap <= 6*time.Hour:
		return 0.5
	case gap <= 24*time.Hour:
		return 0.2
	default:
		return 0.0
	}
}

// intentAlignment is the fraction of the last up-to-5 intents equal to the
// current intent, or 0.5 on empty history.
func intentAlignment(current string, history []string) float64 {
	if len(history) == 0 {
		return neutralIntentAlignment
	}
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	matches := 0
	for _, intent := range recent {
		if intent == current {
			matches++
		}
	}
	return float64(matches) / float64(len(recent))
}

// entityOverlap is the size of the per-type intersection divided by the size
// of the current entity set, 0 when the message carries no entities.
func entityOverlap(current, thread map[string][]string) float64 {
	total := 0
	overlap := 0
	for entityType, surfaces := range current {
		total += len(surfaces)
		known := make(map[string]bool, len(thread[entityType]))
		for _, surface := range thread[entityType] {
			known[surface] = true
		}
		for _, surface := range surfaces {
			if known[surface] {
				overlap++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(overlap) / float64(total)
}
