package thread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aico-ai/aico/ai"
)

func newTestMatrix() *DecisionMatrix {
	m := NewDecisionMatrix(ai.DefaultResolverConfig())
	m.nowFn = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	m.newThreadID = func() string { return "t-new" }
	return m
}

func activeContext(threadID string, lastActivity time.Time) *Context {
	return &Context{
		ThreadID:     threadID,
		UserID:       "u-1",
		LastActivity: lastActivity,
		Status:       StatusActive,
	}
}

func TestDecideNewSession(t *testing.T) {
	m := newTestMatrix()
	analysis := &Analysis{DetectedIntent: IntentQuestion}

	res := m.Decide("u-1", "hello", analysis, nil, nil)

	assert.Equal(t, ActionCreate, res.Action)
	assert.Equal(t, ReasonNewSession, res.PrimaryReason)
	assert.Equal(t, "t-new", res.ThreadID)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	require.NotNil(t, res.CreatedAt)
	assert.Equal(t, IntentQuestion, res.ContextFactors["detected_intent"])
}

func TestDecideContinueOnSemanticMatch(t *testing.T) {
	m := newTestMatrix()
	tc := activeContext("t-1", m.nowFn().Add(-10*time.Minute))
	scores := map[string]ScoreRow{
		"t-1": {SemanticSimilarity: 0.85, TemporalContinuity: 1.0, Overall: 0.8},
	}

	res := m.Decide("u-1", "more on that", &Analysis{}, []*Context{tc}, scores)

	assert.Equal(t, ActionContinue, res.Action)
	assert.Equal(t, ReasonSemanticSimilarity, res.PrimaryReason)
	assert.Equal(t, "t-1", res.ThreadID)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9, "confidence caps at 1.0")
	require.NotNil(t, res.SemanticSimilarity)
	assert.InDelta(t, 0.85, *res.SemanticSimilarity, 1e-9)
	require.NotNil(t, res.TemporalGap)
	assert.InDelta(t, 600, *res.TemporalGap, 1e-6)
}

func TestDecideTopicShift(t *testing.T) {
	t.Run("branches from a recent thread", func(t *testing.T) {
		m := newTestMatrix()
		tc := activeContext("t-1", m.nowFn().Add(-20*time.Minute))
		scores := map[string]ScoreRow{
			"t-1": {SemanticSimilarity: 0.3, TemporalContinuity: 1.0, Overall: 0.5},
		}
		analysis := &Analysis{TopicShiftScore: 0.8}

		res := m.Decide("u-1", "by the way...", analysis, []*Context{tc}, scores)

		assert.Equal(t, ActionBranch, res.Action)
		assert.Equal(t, ReasonTopicShift, res.PrimaryReason)
		assert.Equal(t, "t-new", res.ThreadID)
		assert.Equal(t, "t-1", res.ParentThreadID)
		assert.InDelta(t, 0.8, res.Confidence, 1e-9)
		require.NotNil(t, res.CreatedAt)
	})

	t.Run("creates fresh when the thread is stale", func(t *testing.T) {
		m := newTestMatrix()
		tc := activeContext("t-1", m.nowFn().Add(-30*time.Hour))
		scores := map[string]ScoreRow{
			"t-1": {SemanticSimilarity: 0.3, TemporalContinuity: 0.0, Overall: 0.2},
		}
		analysis := &Analysis{TopicShiftScore: 0.8}

		res := m.Decide("u-1", "by the way...", analysis, []*Context{tc}, scores)

		assert.Equal(t, ActionCreate, res.Action)
		assert.Equal(t, ReasonTopicShift, res.PrimaryReason)
		assert.Empty(t, res.ParentThreadID)
		assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	})
}

func TestDecideConversationBoundary(t *testing.T) {
	m := newTestMatrix()
	tc := activeContext("t-1", m.nowFn().Add(-10*time.Minute))
	scores := map[string]ScoreRow{
		"t-1": {SemanticSimilarity: 0.2, TemporalContinuity: 1.0, Overall: 0.45},
	}
	analysis := &Analysis{ConversationBoundaryScore: 0.9}

	res := m.Decide("u-1", "goodbye!", analysis, []*Context{tc}, scores)

	assert.Equal(t, ActionCreate, res.Action)
	assert.Equal(t, ReasonConversationBoundary, res.PrimaryReason)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestDecideReactivate(t *testing.T) {
	m := newTestMatrix()
	tc := activeContext("t-1", m.nowFn().Add(-30*time.Hour))
	tc.Status = StatusDormant
	scores := map[string]ScoreRow{
		"t-1": {SemanticSimilarity: 0.6, TemporalContinuity: 0.0, Overall: 0.3},
	}

	res := m.Decide("u-1", "back to the trip planning", &Analysis{}, []*Context{tc}, scores)

	assert.Equal(t, ActionReactivate, res.Action)
	assert.Equal(t, ReasonSemanticSimilarity, res.PrimaryReason)
	assert.Equal(t, "t-1", res.ThreadID)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
}

func TestDecideDefaultContinue(t *testing.T) {
	m := newTestMatrix()
	older := activeContext("t-1", m.nowFn().Add(-90*time.Minute))
	newer := activeContext("t-2", m.nowFn().Add(-5*time.Minute))
	scores := map[string]ScoreRow{
		"t-1": {SemanticSimilarity: 0.4, TemporalContinuity: 0.8, Overall: 0.5},
		"t-2": {SemanticSimilarity: 0.5, TemporalContinuity: 1.0, Overall: 0.65},
	}

	res := m.Decide("u-1", "and then?", &Analysis{}, []*Context{older, newer}, scores)

	assert.Equal(t, ActionContinue, res.Action)
	assert.Equal(t, ReasonTemporalContinuity, res.PrimaryReason)
	assert.Equal(t, "t-2", res.ThreadID, "best overall row wins")
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)
}

func TestDecideDegraded(t *testing.T) {
	t.Run("all-zero rows skip similarity rules", func(t *testing.T) {
		m := newTestMatrix()
		tc := activeContext("t-1", m.nowFn().Add(-10*time.Minute))
		scores := map[string]ScoreRow{"t-1": {}}
		// Even with a boundary marker, degraded scoring falls through to
		// the default continue rule.
		analysis := &Analysis{ConversationBoundaryScore: 0.9}

		res := m.Decide("u-1", "hello again", analysis, []*Context{tc}, scores)

		assert.Equal(t, ActionContinue, res.Action)
		assert.Equal(t, "t-1", res.ThreadID)
	})

	t.Run("contexts without rows create a fresh thread", func(t *testing.T) {
		m := newTestMatrix()
		tc := activeContext("t-1", m.nowFn().Add(-10*time.Minute))

		res := m.Decide("u-1", "hi", &Analysis{}, []*Context{tc}, map[string]ScoreRow{})

		assert.Equal(t, ActionCreate, res.Action)
		assert.Equal(t, ReasonNewSession, res.PrimaryReason)
		assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	})
}

func TestDecideNeverMerges(t *testing.T) {
	m := newTestMatrix()
	contexts := []*Context{
		activeContext("t-1", m.nowFn().Add(-time.Minute)),
		activeContext("t-2", m.nowFn().Add(-2*time.Minute)),
	}
	scores := map[string]ScoreRow{
		"t-1": {SemanticSimilarity: 0.9, TemporalContinuity: 1.0, Overall: 0.9},
		"t-2": {SemanticSimilarity: 0.9, TemporalContinuity: 1.0, Overall: 0.9},
	}

	res := m.Decide("u-1", "same topic everywhere", &Analysis{}, contexts, scores)
	assert.NotEqual(t, ActionMerge, res.Action)
}
