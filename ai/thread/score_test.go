package thread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalContinuity(t *testing.T) {
	tests := []struct {
		gap  time.Duration
		want float64
	}{
		{10 * time.Minute, 1.0},
		{30 * time.Minute, 1.0},
		{90 * time.Minute, 0.8},
		{2 * time.Hour, 0.8},
		{4 * time.Hour, 0.5},
		{12 * time.Hour, 0.2},
		{48 * time.Hour, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.gap.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, TemporalContinuity(tt.gap), 1e-9)
		})
	}

	t.Run("monotonically non-increasing", func(t *testing.T) {
		prev := TemporalContinuity(0)
		for gap := time.Minute; gap <= 48*time.Hour; gap += 17 * time.Minute {
			cur := TemporalContinuity(gap)
			assert.LessOrEqual(t, cur, prev, "gap %s", gap)
			prev = cur
		}
	})
}

func TestIntentAlignment(t *testing.T) {
	tests := []struct {
		name    string
		current string
		history []string
		want    float64
	}{
		{"empty history is neutral", IntentQuestion, nil, 0.5},
		{"full match", IntentQuestion, []string{IntentQuestion, IntentQuestion}, 1.0},
		{"partial match", IntentQuestion, []string{IntentQuestion, IntentRequest}, 0.5},
		{"only last five count", IntentQuestion,
			[]string{IntentQuestion, IntentRequest, IntentRequest, IntentRequest, IntentRequest, IntentRequest}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, intentAlignment(tt.current, tt.history), 1e-9)
		})
	}
}

func TestEntityOverlap(t *testing.T) {
	tests := []struct {
		name    string
		current map[string][]string
		thread  map[string][]string
		want    float64
	}{
		{"no entities in message", nil, map[string][]string{"PERSON": {"Ada"}}, 0.0},
		{"full overlap",
			map[string][]string{"PERSON": {"Ada"}},
			map[string][]string{"PERSON": {"Ada", "Bob"}}, 1.0},
		{"half overlap",
			map[string][]string{"PERSON": {"Ada", "Eve"}},
			map[string][]string{"PERSON": {"Ada"}}, 0.5},
		{"type must match",
			map[string][]string{"ORG": {"Ada"}},
			map[string][]string{"PERSON": {"Ada"}}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, entityOverlap(tt.current, tt.thread), 1e-9)
		})
	}
}

func TestScorer(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	scorer := &Scorer{nowFn: func() time.Time { return now }}

	t.Run("weights sum into overall", func(t *testing.T) {
		analysis := &Analysis{
			MessageEmbedding: []float32{1, 0},
			DetectedIntent:   IntentQuestion,
			Entities:         map[string][]string{"PERSON": {"Ada"}},
		}
		tc := &Context{
			ThreadID:            "t-1",
			LastActivity:        now.Add(-10 * time.Minute),
			TopicEmbedding:      []float32{1, 0},
			IntentHistory:       []string{IntentQuestion},
			Entities:            map[string][]string{"PERSON": {"Ada"}},
			UserEngagementScore: 1.0,
		}

		rows := scorer.Score(analysis, []*Context{tc})
		row, ok := rows["t-1"]
		require.True(t, ok)

		assert.InDelta(t, 1.0, row.SemanticSimilarity, 1e-6)
		assert.InDelta(t, 1.0, row.TemporalContinuity, 1e-9)
		assert.InDelta(t, 1.0, row.IntentAlignment, 1e-9)
		assert.InDelta(t, 1.0, row.EntityOverlap, 1e-9)
		assert.InDelta(t, 0.5, row.ConversationFlow, 1e-9)
		assert.InDelta(t, 1.0, row.UserPatternMatch, 1e-9)

		// 0.30 + 0.25 + 0.20 + 0.10 + 0.10*0.5 + 0.05
		assert.InDelta(t, 0.95, row.Overall, 1e-6)
	})

	t.Run("zero embedding sentinel scores zero semantics", func(t *testing.T) {
		analysis := &Analysis{
			MessageEmbedding: make([]float32, 2),
			DetectedIntent:   IntentGeneral,
		}
		tc := &Context{
			ThreadID:       "t-1",
			LastActivity:   now.Add(-5 * time.Minute),
			TopicEmbedding: []float32{1, 0},
		}

		rows := scorer.Score(analysis, []*Context{tc})
		assert.Zero(t, rows["t-1"].SemanticSimilarity)
		assert.Positive(t, rows["t-1"].Overall, "other signals still contribute")
	})

	t.Run("scores all bounded to unit interval", func(t *testing.T) {
		analysis := &Analysis{
			MessageEmbedding: []float32{0.3, -0.9},
			DetectedIntent:   IntentRequest,
			Entities:         map[string][]string{"ORG": {"ACME"}},
		}
		tc := &Context{
			ThreadID:            "t-1",
			LastActivity:        now.Add(-3 * time.Hour),
			TopicEmbedding:      []float32{-0.5, 0.5},
			IntentHistory:       []string{IntentQuestion},
			UserEngagementScore: 7.0, // out-of-range input must be clamped
		}

		row := scorer.Score(analysis, []*Context{tc})["t-1"]
		for name, v := range map[string]float64{
			"semantic": row.SemanticSimilarity,
			"temporal": row.TemporalContinuity,
			"intent":   row.IntentAlignment,
			"entity":   row.EntityOverlap,
			"flow":     row.ConversationFlow,
			"pattern":  row.UserPatternMatch,
			"overall":  row.Overall,
		} {
			assert.GreaterOrEqual(t, v, 0.0, name)
			assert.LessOrEqual(t, v, 1.0, name)
		}
	})

	t.Run("nil or unkeyed contexts are skipped", func(t *testing.T) {
		rows := scorer.Score(&Analysis{}, []*Context{nil, {ThreadID: ""}})
		assert.Empty(t, rows)
	})
}
