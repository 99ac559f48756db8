// Package thread implements the conversation thread resolver: for each
// incoming user message it decides whether the message continues an existing
// thread, branches a new thread from one, reactivates a dormant one, or
// starts fresh. Scoring fuses semantic similarity, temporal dynamics, intent
// alignment, entity overlap, and per-user behavioral context.
package thread

import (
	"time"
)

// Action is the resolver's decision for a message.
type Action string

const (
	// ActionContinue appends the message to an existing active thread.
	ActionContinue Action = "CONTINUE"
	// ActionCreate starts a fresh thread.
	ActionCreate Action = "CREATE"
	// ActionBranch creates a new thread referencing a parent thread.
	ActionBranch Action = "BRANCH"
	// ActionReactivate resumes a dormant thread.
	ActionReactivate Action = "REACTIVATE"
	// ActionMerge is reserved; the resolver never produces it.
	ActionMerge Action = "MERGE"
)

// Reason is the dominant signal behind a resolution.
type Reason string

const (
	ReasonTemporalContinuity   Reason = "TEMPORAL_CONTINUITY"
	ReasonSemanticSimilarity   Reason = "SEMANTIC_SIMILARITY"
	ReasonTopicShift           Reason = "TOPIC_SHIFT"
	ReasonUserIntentChange     Reason = "USER_INTENT_CHANGE"
	ReasonConversationBoundary Reason = "CONVERSATION_BOUNDARY"
	ReasonContextOverflow      Reason = "CONTEXT_OVERFLOW"
	ReasonNewSession           Reason = "NEW_SESSION"
	ReasonFallback             Reason = "FALLBACK"
)

// Status describes a thread's activity state, derived per request.
type Status string

const (
	StatusActive  Status = "active"
	StatusDormant Status = "dormant"
)

// Resolution is the result of every resolve call.
type Resolution struct {
	ThreadID           string         `json:"thread_id"`
	Action             Action         `json:"action"`
	Confidence         float64        `json:"confidence"`
	PrimaryReason      Reason         `json:"primary_reason"`
	Reasoning          string         `json:"reasoning"`
	CreatedAt          *time.Time     `json:"created_at,omitempty"`
	ParentThreadID     string         `json:"parent_thread_id,omitempty"`
	SemanticSimilarity *float64       `json:"semantic_similarity,omitempty"`
	TemporalGap        *float64       `json:"temporal_gap,omitempty"`
	ContextFactors     map[string]any `json:"context_factors,omitempty"`
}

// Analysis is the per-message signal bundle produced by the message analyzer.
type Analysis struct {
	// MessageEmbedding is the dense vector for the message. A zero vector
	// is the "no embedding available" sentinel; the scorer never computes
	// cosine against it.
	MessageEmbedding []float32 `json:"-"`

	DetectedIntent string `json:"detected_intent"`

	TopicShiftScore           float64 `json:"topic_shift_score"`
	ConversationBoundaryScore float64 `json:"conversation_boundary_score"`
	UrgencyScore              float64 `json:"urgency_score"`
	ContextDependencyScore    float64 `json:"context_dependency_score"`

	// Entities maps entity type (PERSON, ORG, GPE, ...) to ordered-unique
	// surface forms.
	Entities map[string][]string `json:"entities,omitempty"`
}

// Message is one recent message inside a thread context.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// Context is the per-request view of one conversational thread.
type Context struct {
	LastActivity time.Time `json:"last_activity"`
	ThreadID     string    `json:"thread_id"`
	UserID       string    `json:"user_id"`
	MessageCount int       `json:"message_count"`
	Status       Status    `json:"status"`

	// TopicEmbedding is the mean embedding over the last up-to-3 messages,
	// nil when none were available.
	TopicEmbedding []float32 `json:"-"`

	// RecentMessages holds up to 10 messages, oldest first.
	RecentMessages []Message `json:"recent_messages,omitempty"`

	Entities      map[string][]string `json:"entities,omitempty"`
	IntentHistory []string            `json:"intent_history,omitempty"`

	ConversationType    string  `json:"conversation_type"`
	UserEngagementScore float64 `json:"user_engagement_score"`
}

// ScoreRow is the per-thread score vector plus the weighted aggregate.
type ScoreRow struct {
	SemanticSimilarity float64 `json:"semantic_similarity"`
	TemporalContinuity float64 `json:"temporal_continuity"`
	IntentAlignment    float64 `json:"intent_alignment"`
	EntityOverlap      float64 `json:"entity_overlap"`
	ConversationFlow   float64 `json:"conversation_flow"`
	UserPatternMatch   float64 `json:"user_pattern_match"`
	Overall            float64 `json:"overall"`
}

// Intent labels produced by the classifier. Unknown or low-confidence
// classifications degrade to IntentGeneral.
const (
	IntentGreeting    = "greeting"
	IntentQuestion    = "question"
	IntentRequest     = "request"
	IntentInfoSharing = "information_sharing"
	IntentConfirm     = "confirmation"
	IntentNegation    = "negation"
	IntentComplaint   = "complaint"
	IntentFarewell    = "farewell"
	IntentGeneral     = "general"
)

// KnownIntents is the closed set of intents the resolver reasons over.
var KnownIntents = []string{
	IntentGreeting, IntentQuestion, IntentRequest, IntentInfoSharing,
	IntentConfirm, IntentNegation, IntentComplaint, IntentFarewell,
	IntentGeneral,
}

// IsKnownIntent reports whether the label belongs to the closed intent set.
func IsKnownIntent(label string) bool {
	for _, intent := range KnownIntents {
		if intent == label {
			return true
		}
	}
	return false
}
