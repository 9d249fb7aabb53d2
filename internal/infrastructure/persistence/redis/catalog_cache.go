package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/memory"
	"github.com/quiz-hub/level-manager/pkg/circuitbreaker"
)

// jsonStore is the part of Cache used by CatalogCache.
type jsonStore interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogKey is the key holding the cached catalog tree.
const CatalogKey = PrefixCatalog + "topics"

// CatalogCache is a read-through catalog.Repository. The whole tree is cached
// under one key, and every lookup is answered from that tree, so a reader
// never mixes two catalog versions. Redis failures fall back to the source;
// after a few in a row the breaker skips Redis entirely for a while.
type CatalogCache struct {
	source  catalog.Repository
	store   jsonStore
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuitbreaker.CircuitBreaker
}

// NewCatalogCache wraps source. A non-positive ttl means TTLCatalog.
func NewCatalogCache(source catalog.Repository, store jsonStore, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = TTLCatalog
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog_cache")
	breaker := circuitbreaker.RedisBreaker(
		func(err error) bool { return !errors.Is(err, ErrCacheMiss) },
		func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	)

	return &CatalogCache{
		source:  source,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		breaker: breaker,
	}
}

// Invalidate drops the cached tree. Call it after the catalog is re-seeded.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.store.Delete(ctx, CatalogKey)
	})
}

// ListTopics returns the whole catalog tree.
func (c *CatalogCache) ListTopics(ctx context.Context) ([]catalog.Topic, error) {
	return c.topics(ctx)
}

// FindTopic returns a topic by id.
func (c *CatalogCache) FindTopic(ctx context.Context, topicID uuid.UUID) (*catalog.Topic, error) {
	view, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return view.FindTopic(ctx, topicID)
}

// ListLevelsOfTopic returns the levels of a topic; unknown topics have none.
func (c *CatalogCache) ListLevelsOfTopic(ctx context.Context, topicID uuid.UUID) ([]catalog.Level, error) {
	view, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return view.ListLevelsOfTopic(ctx, topicID)
}

// FindLevel returns a level of a topic.
func (c *CatalogCache) FindLevel(ctx context.Context, topicID, levelID uuid.UUID) (*catalog.Level, error) {
	view, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return view.FindLevel(ctx, topicID, levelID)
}

// FindGenerator returns a generator of a level.
func (c *CatalogCache) FindGenerator(ctx context.Context, topicID, levelID, generatorID uuid.UUID) (*catalog.TaskGenerator, error) {
	view, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return view.FindGenerator(ctx, topicID, levelID, generatorID)
}

func (c *CatalogCache) view(ctx context.Context) (*memory.Catalog, error) {
	topics, err := c.topics(ctx)
	if err != nil {
		return nil, err
	}
	return memory.NewCatalog(topics), nil
}

func (c *CatalogCache) topics(ctx context.Context) ([]catalog.Topic, error) {
	var topics []catalog.Topic
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.store.Get(ctx, CatalogKey, &topics)
	})
	switch {
	case err == nil:
		return topics, nil
	case errors.Is(err, ErrCacheMiss), circuitbreaker.IsRejected(err):
	default:
		c.logger.Warn("catalog cache read failed, using source", "error", err)
	}

	topics, err = c.source.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, CatalogKey, topics, c.ttl)
	})
	if err != nil && !circuitbreaker.IsRejected(err) {
		c.logger.Warn("catalog cache write failed", "error", err)
	}
	return topics, nil
}
