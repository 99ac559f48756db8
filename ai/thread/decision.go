package thread

import (
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/aico-ai/aico/ai"
)

// DecisionMatrix maps score rows and analysis signals to a resolution.
// Rules are evaluated in order; the first match wins.
type DecisionMatrix struct {
	cfg         ai.ResolverConfig
	nowFn       func() time.Time
	newThreadID func() string
}

// NewDecisionMatrix creates a decision matrix with the given thresholds.
func NewDecisionMatrix(cfg ai.ResolverConfig) *DecisionMatrix {
	return &DecisionMatrix{
		cfg:         cfg,
		nowFn:       time.Now,
		newThreadID: func() string { return "t-" + shortuuid.New() },
	}
}

// Decide produces a resolution for the message. It assumes scores contains a
// row per context (all-zero rows for threads that failed to score).
func (m *DecisionMatrix) Decide(userID, message string, analysis *Analysis, contexts []*Context, scores map[string]ScoreRow) *Resolution {
	// Rule 1: no context at all means a brand-new session.
	if len(contexts) == 0 {
		res := m.create(ReasonNewSession, 1.0, "no active conversation context for user")
		res.ContextFactors = analysisFactors(analysis)
		return res
	}

	best, bestRow := m.pickBest(contexts, scores)
	degraded := best == nil || bestRow.Overall == 0

	if best == nil {
		// Contexts exist but none could be scored; safest is a new thread.
		res := m.create(ReasonNewSession, 0.5, "no scorable conversation context")
		res.ContextFactors = analysisFactors(analysis)
		return res
	}

	if !degraded {
		// Rule 3: strong semantic match on a recent thread continues it.
		if bestRow.SemanticSimilarity >= m.cfg.SemanticSimilarityThreshold && bestRow.TemporalContinuity > 0.5 {
			res := m.forThread(best, ActionContinue, ReasonSemanticSimilarity,
				min(bestRow.SemanticSimilarity+bestRow.TemporalContinuity, 1.0),
				fmt.Sprintf("message closely matches topic of thread %s", best.ThreadID))
			m.attach(res, best, bestRow)
			return res
		}

		// Rule 4: explicit topic shift branches from a recent thread,
		// or starts over when the thread has gone stale.
		if analysis.TopicShiftScore > m.cfg.TopicShiftThreshold {
			if bestRow.TemporalContinuity > 0.3 {
				res := m.create(ReasonTopicShift, analysis.TopicShiftScore,
					fmt.Sprintf("topic shift detected, branching from thread %s", best.ThreadID))
				res.Action = ActionBranch
				res.ParentThreadID = best.ThreadID
				m.attach(res, best, bestRow)
				return res
			}
			res := m.create(ReasonTopicShift, 1.0, "topic shift on a stale thread, starting fresh")
			m.attach(res, best, bestRow)
			return res
		}

		// Rule 5: conversation boundary (greeting/farewell) opens a new thread.
		if analysis.ConversationBoundaryScore > 0.7 {
			res := m.create(ReasonConversationBoundary, 1.0, "conversation boundary marker detected")
			m.attach(res, best, bestRow)
			return res
		}
	}

	// Rule 6: semantically related but long-idle thread gets reactivated.
	if bestRow.TemporalContinuity < 0.2 && bestRow.SemanticSimilarity > 0.4 {
		res := m.forThread(best, ActionReactivate, ReasonSemanticSimilarity,
			bestRow.SemanticSimilarity,
			fmt.Sprintf("reactivating dormant thread %s on semantic match", best.ThreadID))
		m.attach(res, best, bestRow)
		return res
	}

	// Rule 7: default to continuing the best-scoring thread.
	res := m.forThread(best, ActionContinue, ReasonTemporalContinuity,
		bestRow.Overall,
		fmt.Sprintf("continuing most recent matching thread %s", best.ThreadID))
	m.attach(res, best, bestRow)
	return res
}

// pickBest returns the context with the highest overall score.
func (m *DecisionMatrix) pickBest(contexts []*Context, scores map[string]ScoreRow) (*Context, ScoreRow) {
	var best *Context
	var bestRow ScoreRow
	for _, tc := range contexts {
		row, ok := scores[tc.ThreadID]
		if !ok {
			continue
		}
		if best == nil || row.Overall > bestRow.Overall {
			best = tc
			bestRow = row
		}
	}
	return best, bestRow
}

func (m *DecisionMatrix) create(reason Reason, confidence float64, reasoning string) *Resolution {
	now := m.nowFn()
	return &Resolution{
		ThreadID:      m.newThreadID(),
		Action:        ActionCreate,
		Confidence:    Clamp01(confidence),
		PrimaryReason: reason,
		Reasoning:     reasoning,
		CreatedAt:     &now,
	}
}

func (m *DecisionMatrix) forThread(tc *Context, action Action, reason Reason, confidence float64, reasoning string) *Resolution {
	res := &Resolution{
		ThreadID:      tc.ThreadID,
		Action:        action,
		Confidence:    Clamp01(confidence),
		PrimaryReason: reason,
		Reasoning:     reasoning,
	}
	if action == ActionBranch {
		now := m.nowFn()
		res.CreatedAt = &now
	}
	return res
}

// attach records the winning score row and dominant signals for observability.
func (m *DecisionMatrix) attach(res *Resolution, best *Context, row ScoreRow) {
	sim := row.SemanticSimilarity
	gap := m.nowFn().Sub(best.LastActivity).Seconds()
	res.SemanticSimilarity = &sim
	res.TemporalGap = &gap

	factors := map[string]any{
		"best_thread_id": best.ThreadID,
		"scores":         row,
	}
	res.ContextFactors = factors
}

func analysisFactors(analysis *Analysis) map[string]any {
	if analysis == nil {
		return nil
	}
	return map[string]any{
		"detected_intent":             analysis.DetectedIntent,
		"topic_shift_score":           analysis.TopicShiftScore,
		"conversation_boundary_score": analysis.ConversationBoundaryScore,
		"urgency_score":               analysis.UrgencyScore,
		"context_dependency_score":    analysis.ContextDependencyScore,
	}
}
