// Package context assembles per-user thread contexts for the resolver: the
// last day of working-memory messages grouped into threads, each enriched
// with a topic embedding, intent history, entity set, and activity status.
package context

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aico-ai/aico/ai"
	"github.com/aico-ai/aico/ai/cache"
	"github.com/aico-ai/aico/ai/clients"
	"github.com/aico-ai/aico/ai/thread"
	"github.com/aico-ai/aico/store"
)

const (
	// contextWindow is how far back working memory is read per request.
	contextWindow = 24 * time.Hour

	// recentMessagesLimit caps the messages carried inside each context.
	recentMessagesLimit = 10

	// topicEmbeddingWindow is how many trailing messages feed the topic
	// embedding mean.
	topicEmbeddingWindow = 3

	// buildConcurrency bounds parallel per-thread builds.
	buildConcurrency = 4

	// engagementSaturation is the user-message count at which engagement
	// reaches 1.0.
	engagementSaturation = 10.0
)

// Builder produces the thread contexts for one user.
type Builder struct {
	cfg      ai.ResolverConfig
	messages clients.MessageReader
	embedder clients.Embedder
	intents  clients.IntentClassifier
	entities clients.EntityExtractor

	embedCache *cache.LoadingCache[[]float32]
	contexts   *cache.LoadingCache[[]*thread.Context]

	nowFn func() time.Time
}

// New creates a context builder. embedCache may be nil; the per-user context
// cache is created internally when caching is enabled.
func New(
	cfg ai.ResolverConfig,
	messages clients.MessageReader,
	embedder clients.Embedder,
	intents clients.IntentClassifier,
	entities clients.EntityExtractor,
	embedCache *cache.LoadingCache[[]float32],
) *Builder {
	b := &Builder{
		cfg:        cfg,
		messages:   messages,
		embedder:   embedder,
		intents:    intents,
		entities:   entities,
		embedCache: embedCache,
		nowFn:      time.Now,
	}
	if cfg.EnableCaching {
		b.contexts = cache.NewLoading(cache.NewLRU[string, []*thread.Context](cfg.ContextCacheSize, cfg.ContextCacheTTL))
	}
	return b
}

// Contexts returns the user's thread contexts, most recently active first.
// It never returns an error; ok is false when working memory could not be
// read, which the caller must treat differently from a user with no history.
// Results are cached per user; an unavailable result is not cached, so a
// transient working-memory outage does not mask recovery.
func (b *Builder) Contexts(ctx context.Context, userID string) ([]*thread.Context, bool) {
	if b.contexts == nil {
		return b.build(ctx, userID)
	}
	contexts, ok := b.contexts.GetOrLoad(ctx, userID, func(ctx context.Context) ([]*thread.Context, bool) {
		return b.build(ctx, userID)
	})
	if !ok {
		return nil, false
	}
	return contexts, true
}

// Invalidate drops the cached contexts for a user, typically after a write
// to their working memory.
func (b *Builder) Invalidate(userID string) {
	if b.contexts != nil {
		b.contexts.Remove(userID)
	}
}

// CacheStats returns the context cache counters, zero when caching is off.
func (b *Builder) CacheStats() cache.Stats {
	if b.contexts == nil {
		return cache.Stats{}
	}
	return b.contexts.Stats()
}

func (b *Builder) build(ctx context.Context, userID string) ([]*thread.Context, bool) {
	records, ok := b.messages.RecentMessages(ctx, userID, contextWindow)
	if !ok {
		return nil, false
	}
	if len(records) == 0 {
		return []*thread.Context{}, true
	}

	groups := groupByThread(records)
	if len(groups) > b.cfg.MaxThreadsPerUser {
		// Keep the most recently active threads.
		sort.Slice(groups, func(i, j int) bool {
			return lastTimestamp(groups[i]).After(lastTimestamp(groups[j]))
		})
		dropped := len(groups) - b.cfg.MaxThreadsPerUser
		slog.Default().Warn("thread cap exceeded, truncating oldest",
			"dropped", dropped, "cap", b.cfg.MaxThreadsPerUser)
		groups = groups[:b.cfg.MaxThreadsPerUser]
	}

	memo := newBuildMemo()
	results := make([]*thread.Context, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			results[i] = b.buildOne(gctx, userID, group, memo)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-thread failures degrade to nil entries

	contexts := make([]*thread.Context, 0, len(results))
	for _, tc := range results {
		if tc != nil {
			contexts = append(contexts, tc)
		}
	}
	sort.Slice(contexts, func(i, j int) bool {
		return contexts[i].LastActivity.After(contexts[j].LastActivity)
	})
	return contexts, true
}

// buildOne assembles one thread context. A panic drops only this thread.
func (b *Builder) buildOne(ctx context.Context, userID string, records []store.MessageRecord, memo *buildMemo) (tc *thread.Context) {
	threadID := records[0].ThreadID
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("thread context build panicked, dropping thread",
				"thread_id", threadID, "panic", r)
			tc = nil
		}
	}()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	if limit := b.cfg.MaxThreadContextMessages; limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	last := records[len(records)-1].Timestamp
	status := thread.StatusActive
	if b.nowFn().Sub(last) > b.cfg.DormancyThreshold {
		status = thread.StatusDormant
	}

	userMessageCount := 0
	for _, r := range records {
		if r.Type == store.MessageTypeUserInput {
			userMessageCount++
		}
	}

	// Intent history and entities come from the same trailing window the
	// context carries as recent messages, across all roles.
	recent := trailingWindow(records, recentMessagesLimit)
	intentHistory := b.intentHistory(ctx, userID, recent, memo)

	tc = &thread.Context{
		ThreadID:            threadID,
		UserID:              userID,
		MessageCount:        len(records),
		LastActivity:        last,
		Status:              status,
		TopicEmbedding:      b.topicEmbedding(ctx, records),
		RecentMessages:      recentMessages(recent),
		Entities:            b.entityUnion(ctx, recent, memo),
		IntentHistory:       intentHistory,
		ConversationType:    dominantIntent(intentHistory),
		UserEngagementScore: thread.Clamp01(float64(userMessageCount) / engagementSaturation),
	}
	return tc
}

func trailingWindow(records []store.MessageRecord, limit int) []store.MessageRecord {
	if len(records) > limit {
		return records[len(records)-limit:]
	}
	return records
}

// topicEmbedding is the mean embedding over the trailing messages, nil when
// no embedding could be produced.
func (b *Builder) topicEmbedding(ctx context.Context, records []store.MessageRecord) []float32 {
	start := len(records) - topicEmbeddingWindow
	if start < 0 {
		start = 0
	}
	vectors := make([][]float32, 0, topicEmbeddingWindow)
	for _, r := range records[start:] {
		if vector, ok := b.embed(ctx, r.Content); ok {
			vectors = append(vectors, vector)
		}
	}
	return thread.MeanVector(vectors)
}

func (b *Builder) embed(ctx context.Context, text string) ([]float32, bool) {
	load := func(ctx context.Context) ([]float32, bool) {
		result := b.embedder.Embed(ctx, text)
		if !result.OK {
			return nil, false
		}
		return result.Vector, true
	}
	if b.embedCache != nil {
		return b.embedCache.GetOrLoad(ctx, cache.HashKey(text), load)
	}
	return load(ctx)
}

// intentHistory classifies the given messages, oldest first. Classifications
// are memoized by content hash so threads sharing phrasing within one build
// do not repeat calls; failures degrade to "general".
func (b *Builder) intentHistory(ctx context.Context, userID string, records []store.MessageRecord, memo *buildMemo) []string {
	if len(records) == 0 {
		return nil
	}

	history := make([]string, 0, len(records))
	for _, r := range records {
		key := cache.HashKey(r.Content)
		if intent, ok := memo.intent(key); ok {
			history = append(history, intent)
			continue
		}
		intent := thread.IntentGeneral
		result := b.intents.Classify(ctx, r.Content, userID, nil)
		if result.OK && thread.IsKnownIntent(result.Intent) {
			intent = result.Intent
		}
		memo.setIntent(key, intent)
		history = append(history, intent)
	}
	return history
}

// entityUnion extracts entities from the given messages and unions them per
// type, keeping first-seen order and dropping duplicates.
func (b *Builder) entityUnion(ctx context.Context, records []store.MessageRecord, memo *buildMemo) map[string][]string {
	union := map[string][]string{}
	seen := map[string]map[string]bool{}
	for _, r := range records {
		key := cache.HashKey(r.Content)
		entities, ok := memo.entities(key)
		if !ok {
			result := b.entities.Extract(ctx, r.Content, nil)
			if result.OK {
				entities = result.Entities
			} else {
				entities = map[string][]string{}
			}
			memo.setEntities(key, entities)
		}
		for entityType, surfaces := range entities {
			if seen[entityType] == nil {
				seen[entityType] = map[string]bool{}
			}
			for _, surface := range surfaces {
				if seen[entityType][surface] {
					continue
				}
				seen[entityType][surface] = true
				union[entityType] = append(union[entityType], surface)
			}
		}
	}
	return union
}

func recentMessages(records []store.MessageRecord) []thread.Message {
	messages := make([]thread.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, thread.Message{
			Timestamp: r.Timestamp,
			Role:      r.Type.Role(),
			Content:   r.Content,
		})
	}
	return messages
}

func groupByThread(records []store.MessageRecord) [][]store.MessageRecord {
	byThread := map[string][]store.MessageRecord{}
	order := []string{}
	for _, r := range records {
		if r.ThreadID == "" {
			continue
		}
		if _, ok := byThread[r.ThreadID]; !ok {
			order = append(order, r.ThreadID)
		}
		byThread[r.ThreadID] = append(byThread[r.ThreadID], r)
	}
	groups := make([][]store.MessageRecord, 0, len(order))
	for _, id := range order {
		groups = append(groups, byThread[id])
	}
	return groups
}

func lastTimestamp(records []store.MessageRecord) time.Time {
	last := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last
}

// dominantIntent is the most frequent intent in the history, first-seen
// winning ties; empty history yields "general".
func dominantIntent(history []string) string {
	if len(history) == 0 {
		return thread.IntentGeneral
	}
	counts := map[string]int{}
	best := history[0]
	for _, intent := range history {
		counts[intent]++
		if counts[intent] > counts[best] {
			best = intent
		}
	}
	return best
}

// buildMemo shares intent and entity results across the per-thread builds of
// one Contexts call.
type buildMemo struct {
	mu        sync.Mutex
	intentMap map[string]string
	entityMap map[string]map[string][]string
}

func newBuildMemo() *buildMemo {
	return &buildMemo{
		intentMap: map[string]string{},
		entityMap: map[string]map[string][]string{},
	}
}

func (m *buildMemo) intent(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intentMap[key]
	return intent, ok
}

func (m *buildMemo) setIntent(key, intent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentMap[key] = intent
}

func (m *buildMemo) entities(key string) (map[string][]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entities, ok := m.entityMap[key]
	return entities, ok
}

func (m *buildMemo) setEntities(key string, entities map[string][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entityMap[key] = entities
}
