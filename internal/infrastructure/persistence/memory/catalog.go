package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// Catalog implements catalog.Repository over an in-memory topic list.
type Catalog struct {
	mu     sync.RWMutex
	topics []catalog.Topic
}

// NewCatalog creates a Catalog holding a copy of topics.
func NewCatalog(topics []catalog.Topic) *Catalog {
	c := &Catalog{}
	c.Replace(topics)
	return c
}

// Replace swaps the whole catalog, e.g. after an authoring change.
func (c *Catalog) Replace(topics []catalog.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = cloneTopics(topics)
}

// ListTopics returns all topics in catalog order.
func (c *Catalog) ListTopics(_ context.Context) ([]catalog.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTopics(c.topics), nil
}

// FindTopic returns a topic by id.
func (c *Catalog) FindTopic(_ context.Context, topicID uuid.UUID) (*catalog.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.topic(topicID)
	if !ok {
		return nil, shared.ErrTopicNotFound
	}
	out := cloneTopics([]catalog.Topic{t})[0]
	return &out, nil
}

// ListLevelsOfTopic returns the levels of a topic; unknown topics have none.
func (c *Catalog) ListLevelsOfTopic(_ context.Context, topicID uuid.UUID) ([]catalog.Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.topic(topicID)
	if !ok {
		return []catalog.Level{}, nil
	}
	return cloneTopics([]catalog.Topic{t})[0].Levels, nil
}

// FindLevel returns a level of a topic.
func (c *Catalog) FindLevel(_ context.Context, topicID, levelID uuid.UUID) (*catalog.Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.topic(topicID)
	if !ok {
		return nil, shared.ErrLevelNotFound
	}
	l, ok := t.FindLevel(levelID)
	if !ok {
		return nil, shared.ErrLevelNotFound
	}
	l.Generators = append([]catalog.TaskGenerator(nil), l.Generators...)
	return &l, nil
}

// FindGenerator returns a generator of a level.
func (c *Catalog) FindGenerator(ctx context.Context, topicID, levelID, generatorID uuid.UUID) (*catalog.TaskGenerator, error) {
	l, err := c.FindLevel(ctx, topicID, levelID)
	if err != nil {
		return nil, shared.ErrGeneratorNotFound
	}
	g, ok := l.FindGenerator(generatorID)
	if !ok {
		return nil, shared.ErrGeneratorNotFound
	}
	return &g, nil
}

func (c *Catalog) topic(id uuid.UUID) (catalog.Topic, bool) {
	for _, t := range c.topics {
		if t.ID == id {
			return t, true
		}
	}
	return catalog.Topic{}, false
}

func cloneTopics(topics []catalog.Topic) []catalog.Topic {
	out := make([]catalog.Topic, len(topics))
	for i, t := range topics {
		levels := make([]catalog.Level, len(t.Levels))
		for j, l := range t.Levels {
			levels[j] = catalog.Level{
				ID:         l.ID,
				Generators: append([]catalog.TaskGenerator(nil), l.Generators...),
			}
		}
		out[i] = catalog.Topic{ID: t.ID, Levels: levels}
	}
	return out
}
