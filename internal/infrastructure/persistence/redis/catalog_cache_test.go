package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/memory"
)

// fakeStore mimics Cache: values are JSON-encoded, missing keys return ErrCacheMiss.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	counter map[string]int64
	gets    int
	getErr  error
	setErr  error
	incrErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data:    make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
		counter: make(map[string]int64),
	}
}

func (f *fakeStore) Get(_ context.Context, key string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counter[key]++
	return f.counter[key], nil
}

// countingSource counts ListTopics calls on the backing catalog.
type countingSource struct {
	*memory.Catalog
	calls int
}

func (c *countingSource) ListTopics(ctx context.Context) ([]catalog.Topic, error) {
	c.calls++
	return c.Catalog.ListTopics(ctx)
}

func sampleTopics() []catalog.Topic {
	return []catalog.Topic{
		{ID: uuid.New(), Levels: []catalog.Level{
			{ID: uuid.New(), Generators: []catalog.TaskGenerator{{ID: uuid.New()}, {ID: uuid.New()}}},
		}},
		{ID: uuid.New(), Levels: []catalog.Level{}},
	}
}

func newTestCache(topics []catalog.Topic) (*CatalogCache, *countingSource, *fakeStore) {
	source := &countingSource{Catalog: memory.NewCatalog(topics)}
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalogCache(source, store, time.Minute, logger), source, store
}

func TestCatalogCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	topics := sampleTopics()
	cache, source, store := newTestCache(topics)

	first, err := cache.ListTopics(ctx)
	require.NoError(t, err)
	second, err := cache.ListTopics(ctx)
	require.NoError(t, err)

	assert.Equal(t, topics, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, time.Minute, store.ttls[CatalogKey])
}

func TestCatalogCache_Lookups(t *testing.T) {
	ctx := context.Background()
	topics := sampleTopics()
	cache, source, _ := newTestCache(topics)
	topic, level := topics[0], topics[0].Levels[0]

	got, err := cache.FindTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.ID, got.ID)

	levels, err := cache.ListLevelsOfTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 1)

	levels, err = cache.ListLevelsOfTopic(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, levels)

	l, err := cache.FindLevel(ctx, topic.ID, level.ID)
	require.NoError(t, err)
	assert.Equal(t, level.Generators, l.Generators)

	g, err := cache.FindGenerator(ctx, topic.ID, level.ID, level.Generators[1].ID)
	require.NoError(t, err)
	assert.Equal(t, level.Generators[1], *g)

	_, err = cache.FindTopic(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrTopicNotFound)
	_, err = cache.FindLevel(ctx, topics[1].ID, level.ID)
	assert.ErrorIs(t, err, shared.ErrLevelNotFound)
	_, err = cache.FindGenerator(ctx, topic.ID, level.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrGeneratorNotFound)

	assert.Equal(t, 1, source.calls, "lookups are answered from the cached tree")
}

func TestCatalogCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, source, _ := newTestCache(sampleTopics())

	_, err := cache.ListTopics(ctx)
	require.NoError(t, err)

	replaced := sampleTopics()
	source.Replace(replaced)
	require.NoError(t, cache.Invalidate(ctx))

	got, err := cache.ListTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.TopicIDs(replaced), catalog.TopicIDs(got))
	assert.Equal(t, 2, source.calls)
}

func TestCatalogCache_FallsBackOnStoreError(t *testing.T) {
	ctx := context.Background()
	topics := sampleTopics()
	cache, source, store := newTestCache(topics)
	store.getErr = errors.New("connection refused")

	got, err := cache.ListTopics(ctx)
	require.NoError(t, err)
	_, err = cache.ListTopics(ctx)
	require.NoError(t, err)

	assert.Equal(t, topics, got)
	assert.Equal(t, 2, source.calls)
}

func TestCatalogCache_BreakerSkipsDeadRedis(t *testing.T) {
	ctx := context.Background()
	cache, source, store := newTestCache(sampleTopics())
	store.getErr = ErrCacheConnection
	store.setErr = ErrCacheConnection

	for i := 0; i < 5; i++ {
		_, err := cache.ListTopics(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, source.calls)
	assert.Equal(t, 2, store.gets, "get, set, get opens the breaker")
}

func TestCatalogCache_MissesDoNotOpenBreaker(t *testing.T) {
	ctx := context.Background()
	cache, _, store := newTestCache(sampleTopics())

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Invalidate(ctx))
		_, err := cache.ListTopics(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, store.gets)
}

func TestCatalogCache_DefaultTTL(t *testing.T) {
	cache := NewCatalogCache(memory.NewCatalog(nil), newFakeStore(), 0, nil)

	assert.Equal(t, TTLCatalog, cache.ttl)
}

func TestCursorStore_Next(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cursors := NewCursorStore(store)

	for want := uint64(0); want < 3; want++ {
		got, err := cursors.Next(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := cursors.Next(ctx, "def")
	require.NoError(t, err)
	assert.Zero(t, other)
	assert.Equal(t, int64(3), store.counter[PrefixCursor+"abc"])
}

func TestCursorStore_Error(t *testing.T) {
	store := newFakeStore()
	store.incrErr = ErrCacheConnection

	_, err := NewCursorStore(store).Next(context.Background(), "abc")

	assert.ErrorIs(t, err, ErrCacheConnection)
}
