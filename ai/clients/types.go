// Package clients provides the typed adapters the resolver uses to talk to
// its external collaborators: the embedding provider, the NER / intent /
// sentiment model service, the working-memory store, and semantic memory.
//
// Every adapter is fail-closed: it returns a well-typed unavailable result
// instead of an error, logs the failure, and never crashes the resolver.
package clients

import (
	"sync"
	"time"
)

// VectorResult is the outcome of an embedding call.
type VectorResult struct {
	Vector []float32
	Reason string
	OK     bool
}

// EntitiesResult is the outcome of an entity-extraction call.
type EntitiesResult struct {
	Entities map[string][]string
	Reason   string
	OK       bool
}

// IntentAlternative is a lower-ranked intent candidate.
type IntentAlternative struct {
	Intent     string
	Confidence float64
}

// IntentResult is the outcome of an intent-classification call.
type IntentResult struct {
	Intent       string
	Confidence   float64
	Alternatives []IntentAlternative
	Reason       string
	OK           bool
}

// SentimentResult is the outcome of a sentiment call.
type SentimentResult struct {
	Label      string
	Confidence float64
	Reason     string
	OK         bool
}

func unavailableVector(reason string) VectorResult {
	return VectorResult{Reason: reason}
}

func unavailableEntities(reason string) EntitiesResult {
	return EntitiesResult{Reason: reason}
}

func unavailableIntent(reason string) IntentResult {
	return IntentResult{Reason: reason}
}

func unavailableSentiment(reason string) SentimentResult {
	return SentimentResult{Reason: reason}
}

// AdapterState is a point-in-time view of one adapter's health.
type AdapterState struct {
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Available   bool      `json:"available"`
}

// StatusBoard tracks per-adapter availability for the health endpoint and
// for the service_status snapshot attached to resolutions.
type StatusBoard struct {
	mu     sync.RWMutex
	states map[string]AdapterState
}

// NewStatusBoard creates an empty status board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{states: make(map[string]AdapterState)}
}

// MarkOK records a successful call for the adapter.
func (b *StatusBoard) MarkOK(adapter string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.states[adapter]
	state.Available = true
	state.LastSuccess = time.Now()
	state.LastError = ""
	b.states[adapter] = state
}

// MarkError records a failed call for the adapter.
func (b *StatusBoard) MarkError(adapter, reason string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.states[adapter]
	state.Available = false
	state.LastFailure = time.Now()
	state.LastError = reason
	b.states[adapter] = state
}

// Snapshot returns a copy of all adapter states.
func (b *StatusBoard) Snapshot() map[string]AdapterState {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot := make(map[string]AdapterState, len(b.states))
	for name, state := range b.states {
		snapshot[name] = state
	}
	return snapshot
}
