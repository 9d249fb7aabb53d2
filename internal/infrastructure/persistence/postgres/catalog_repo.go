package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository for PostgreSQL.
// Catalog order is the ordinal column at every level of the tree.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// ListTopics returns the whole catalog tree.
func (r *CatalogRepository) ListTopics(ctx context.Context) ([]catalog.Topic, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT t.id, l.id, g.id
		FROM topics t
		LEFT JOIN levels l ON l.topic_id = t.id
		LEFT JOIN task_generators g ON g.topic_id = l.topic_id AND g.level_id = l.id
		ORDER BY t.ordinal, l.ordinal, g.ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []catalog.Topic
	for rows.Next() {
		var (
			topicID              uuid.UUID
			levelID, generatorID *uuid.UUID
		)
		if err := rows.Scan(&topicID, &levelID, &generatorID); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}

		if n := len(topics); n == 0 || topics[n-1].ID != topicID {
			topics = append(topics, catalog.Topic{ID: topicID, Levels: []catalog.Level{}})
		}
		t := &topics[len(topics)-1]
		if levelID == nil {
			continue
		}

		if n := len(t.Levels); n == 0 || t.Levels[n-1].ID != *levelID {
			t.Levels = append(t.Levels, catalog.Level{ID: *levelID, Generators: []catalog.TaskGenerator{}})
		}
		if generatorID != nil {
			l := &t.Levels[len(t.Levels)-1]
			l.Generators = append(l.Generators, catalog.TaskGenerator{ID: *generatorID})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if topics == nil {
		topics = []catalog.Topic{}
	}
	return topics, nil
}

// FindTopic returns a topic with its levels.
func (r *CatalogRepository) FindTopic(ctx context.Context, topicID uuid.UUID) (*catalog.Topic, error) {
	var exists bool
	if err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM topics WHERE id = $1)`, topicID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	if !exists {
		return nil, shared.ErrTopicNotFound
	}

	levels, err := r.ListLevelsOfTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return &catalog.Topic{ID: topicID, Levels: levels}, nil
}

// ListLevelsOfTopic returns the levels of a topic; unknown topics have none.
func (r *CatalogRepository) ListLevelsOfTopic(ctx context.Context, topicID uuid.UUID) ([]catalog.Level, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT l.id, g.id
		FROM levels l
		LEFT JOIN task_generators g ON g.topic_id = l.topic_id AND g.level_id = l.id
		WHERE l.topic_id = $1
		ORDER BY l.ordinal, g.ordinal
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	levels := []catalog.Level{}
	for rows.Next() {
		var (
			levelID     uuid.UUID
			generatorID *uuid.UUID
		)
		if err := rows.Scan(&levelID, &generatorID); err != nil {
			return nil, fmt.Errorf("failed to scan level row: %w", err)
		}

		if n := len(levels); n == 0 || levels[n-1].ID != levelID {
			levels = append(levels, catalog.Level{ID: levelID, Generators: []catalog.TaskGenerator{}})
		}
		if generatorID != nil {
			l := &levels[len(levels)-1]
			l.Generators = append(l.Generators, catalog.TaskGenerator{ID: *generatorID})
		}
	}

	return levels, rows.Err()
}

// FindLevel returns a level with its generators.
func (r *CatalogRepository) FindLevel(ctx context.Context, topicID, levelID uuid.UUID) (*catalog.Level, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT g.id
		FROM levels l
		LEFT JOIN task_generators g ON g.topic_id = l.topic_id AND g.level_id = l.id
		WHERE l.topic_id = $1 AND l.id = $2
		ORDER BY g.ordinal
	`, topicID, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get level: %w", err)
	}
	defer rows.Close()

	found := false
	level := catalog.Level{ID: levelID, Generators: []catalog.TaskGenerator{}}
	for rows.Next() {
		found = true
		var generatorID *uuid.UUID
		if err := rows.Scan(&generatorID); err != nil {
			return nil, fmt.Errorf("failed to scan generator row: %w", err)
		}
		if generatorID != nil {
			level.Generators = append(level.Generators, catalog.TaskGenerator{ID: *generatorID})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, shared.ErrLevelNotFound
	}

	return &level, nil
}

// FindGenerator returns a generator of a level.
func (r *CatalogRepository) FindGenerator(ctx context.Context, topicID, levelID, generatorID uuid.UUID) (*catalog.TaskGenerator, error) {
	var id uuid.UUID
	err := r.conn.QueryRow(ctx, `
		SELECT id FROM task_generators
		WHERE topic_id = $1 AND level_id = $2 AND id = $3
	`, topicID, levelID, generatorID).Scan(&id)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGeneratorNotFound
		}
		return nil, fmt.Errorf("failed to get generator: %w", err)
	}

	return &catalog.TaskGenerator{ID: id}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Authoring
// ─────────────────────────────────────────────────────────────────────────────

// Replace swaps the stored catalog for topics in one transaction.
// Ordinals follow slice order.
func (r *CatalogRepository) Replace(ctx context.Context, topics []catalog.Topic) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM topics`); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}

		batch := &pgx.Batch{}
		for ti, t := range topics {
			batch.Queue(`INSERT INTO topics (id, ordinal) VALUES ($1, $2)`, t.ID, ti)
			for li, l := range t.Levels {
				batch.Queue(`INSERT INTO levels (id, topic_id, ordinal) VALUES ($1, $2, $3)`, l.ID, t.ID, li)
				for gi, g := range l.Generators {
					batch.Queue(
						`INSERT INTO task_generators (id, topic_id, level_id, ordinal) VALUES ($1, $2, $3, $4)`,
						g.ID, t.ID, l.ID, gi)
				}
			}
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		return nil
	})
}
