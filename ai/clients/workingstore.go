package clients

import (
	"context"
	"log/slog"
	"time"

	"github.com/aico-ai/aico/store"
)

// MessageReader returns a user's recent messages. It never returns an error;
// ok is false when the backing store could not be read, which is distinct
// from a user who genuinely has no history.
type MessageReader interface {
	RecentMessages(ctx context.Context, userID string, window time.Duration) (records []store.MessageRecord, ok bool)
}

// WorkingStoreAdapter wraps any store.WorkingStore with fail-closed
// semantics and a per-call deadline.
type WorkingStoreAdapter struct {
	store    store.WorkingStore
	status   *StatusBoard
	deadline time.Duration
}

// NewWorkingStoreAdapter wraps the given working store.
func NewWorkingStoreAdapter(s store.WorkingStore, deadline time.Duration, status *StatusBoard) *WorkingStoreAdapter {
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return &WorkingStoreAdapter{store: s, status: status, deadline: deadline}
}

// RecentMessages returns messages ordered by timestamp ascending. ok is
// false when the store is unavailable.
func (a *WorkingStoreAdapter) RecentMessages(ctx context.Context, userID string, window time.Duration) ([]store.MessageRecord, bool) {
	if a.store == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	records, err := a.store.Recent(ctx, userID, window)
	if err != nil {
		slog.Default().Error("working store query failed", "error", err)
		a.status.MarkError("working_store", err.Error())
		return nil, false
	}
	a.status.MarkOK("working_store")
	return records, true
}

// HTTPWorkingStore reads recent messages from the working-memory service
// over HTTP. Wire format per record:
// {thread_id, user_id, message_type, message_content, timestamp (ISO-8601 UTC)}.
type HTTPWorkingStore struct {
	client *ModelServiceClient
	status *StatusBoard
}

// NewHTTPWorkingStore creates an HTTP working-store reader.
func NewHTTPWorkingStore(baseURL string, deadline time.Duration, status *StatusBoard) *HTTPWorkingStore {
	return &HTTPWorkingStore{
		client: NewModelServiceClient(baseURL, deadline),
		status: status,
	}
}

type wireMessage struct {
	ThreadID       string `json:"thread_id"`
	UserID         string `json:"user_id"`
	MessageType    string `json:"message_type"`
	MessageContent string `json:"message_content"`
	Timestamp      string `json:"timestamp"`
}

// RecentMessages fetches the user's messages for the window, ascending by
// timestamp. Records with unparseable timestamps are dropped; ok is false
// when the service could not be reached.
func (h *HTTPWorkingStore) RecentMessages(ctx context.Context, userID string, window time.Duration) ([]store.MessageRecord, bool) {
	request := struct {
		UserID string  `json:"user_id"`
		Hours  float64 `json:"hours"`
	}{UserID: userID, Hours: window.Hours()}

	var payload struct {
		Messages []wireMessage `json:"messages"`
	}
	if reason, ok := h.client.postJSON(ctx, "/api/memory/recent", request, &payload); !ok {
		slog.Default().Error("working store request failed", "reason", reason)
		h.status.MarkError("working_store", reason)
		return nil, false
	}

	records := make([]store.MessageRecord, 0, len(payload.Messages))
	for _, msg := range payload.Messages {
		ts, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			slog.Default().Warn("dropping message with bad timestamp",
				"timestamp", msg.Timestamp, "error", err)
			continue
		}
		records = append(records, store.MessageRecord{
			ThreadID:  msg.ThreadID,
			UserID:    msg.UserID,
			Type:      store.MessageType(msg.MessageType),
			Content:   msg.MessageContent,
			Timestamp: ts.UTC(),
		})
	}

	h.status.MarkOK("working_store")
	return records, true
}

// SemanticMemoryAdapter wraps a store.SemanticMemory fail-closed. A nil
// memory is valid and always yields an empty result.
type SemanticMemoryAdapter struct {
	memory   store.SemanticMemory
	status   *StatusBoard
	deadline time.Duration
}

// NewSemanticMemoryAdapter wraps the given semantic memory (may be nil).
func NewSemanticMemoryAdapter(m store.SemanticMemory, deadline time.Duration, status *StatusBoard) *SemanticMemoryAdapter {
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return &SemanticMemoryAdapter{memory: m, status: status, deadline: deadline}
}

// QueryNearby returns up to k segments near the embedding, or an empty list.
func (a *SemanticMemoryAdapter) QueryNearby(ctx context.Context, userID string, embedding []float32, k int) []store.Segment {
	if a.memory == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	segments, err := a.memory.QueryNearby(ctx, userID, embedding, k)
	if err != nil {
		slog.Default().Error("semantic memory query failed", "error", err)
		a.status.MarkError("semantic_memory", err.Error())
		return nil
	}
	a.status.MarkOK("semantic_memory")
	return segments
}
