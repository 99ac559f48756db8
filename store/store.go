// Package store defines the persistence contracts the thread resolver reads
// from: the working-memory store (recent messages) and the semantic memory
// (vector-indexed conversation segments). The resolver itself persists
// nothing; both stores are owned by other parts of the backend.
package store

import (
	"context"
	"time"
)

// MessageType classifies a working-memory message record.
type MessageType string

const (
	// MessageTypeUserInput is a message authored by the user.
	MessageTypeUserInput MessageType = "user_input"
	// MessageTypeAIResponse is a message authored by the assistant.
	MessageTypeAIResponse MessageType = "ai_response"
	// MessageTypeOther covers system and tool messages.
	MessageTypeOther MessageType = "other"
)

// Role returns the conversational role for a message type.
func (t MessageType) Role() string {
	switch t {
	case MessageTypeUserInput:
		return "user"
	case MessageTypeAIResponse:
		return "assistant"
	default:
		return "system"
	}
}

// MessageRecord is a single message from the working-memory store.
type MessageRecord struct {
	Timestamp time.Time
	ThreadID  string
	UserID    string
	Type      MessageType
	Content   string
}

// WorkingStore provides access to a user's recent message history.
type WorkingStore interface {
	// Recent returns the user's messages within the given window,
	// ordered by timestamp ascending.
	Recent(ctx context.Context, userID string, window time.Duration) ([]MessageRecord, error)

	// Append stores a message record. Only used by the stand-alone
	// deployment; the production working store is written elsewhere.
	Append(ctx context.Context, record *MessageRecord) error
}

// Segment is a semantically indexed conversation fragment.
type Segment struct {
	CreatedAt  time.Time
	ID         string
	UserID     string
	ThreadID   string
	Content    string
	Similarity float64
}

// SemanticMemory retrieves conversation segments near an embedding.
// An empty result is always a valid response; the resolver must function
// without semantic memory entirely.
type SemanticMemory interface {
	QueryNearby(ctx context.Context, userID string, embedding []float32, k int) ([]Segment, error)
}

// Closer is implemented by drivers holding database handles.
type Closer interface {
	Close() error
}
