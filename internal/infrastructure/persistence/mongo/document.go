package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

type userDocument struct {
	ID        string           `bson:"_id"`
	Progress  progressDocument `bson:"progress"`
	Version   int64            `bson:"version"`
	CreatedAt time.Time        `bson:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

type progressDocument struct {
	ID             string                   `bson:"id"`
	CurrentTopicID string                   `bson:"current_topic_id"`
	CurrentLevelID string                   `bson:"current_level_id"`
	CurrentTask    *taskDocument            `bson:"current_task,omitempty"`
	Topics         map[string]topicDocument `bson:"topics"`
}

type taskDocument struct {
	GeneratorID       string `bson:"generator_id"`
	ParentGeneratorID string `bson:"parent_generator_id"`
	LevelID           string `bson:"level_id"`
	TopicID           string `bson:"topic_id"`
}

type topicDocument struct {
	TopicID string                   `bson:"topic_id"`
	Levels  map[string]levelDocument `bson:"levels"`
}

type levelDocument struct {
	LevelID string         `bson:"level_id"`
	Streaks map[string]int `bson:"streaks"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

func toUserDocument(u *progress.UserEntity) userDocument {
	p := u.Progress
	doc := progressDocument{
		ID:             p.ID.String(),
		CurrentTopicID: p.CurrentTopicID.String(),
		CurrentLevelID: p.CurrentLevelID.String(),
		Topics:         make(map[string]topicDocument, len(p.TopicsProgress)),
	}
	if t := p.CurrentTask; t != nil {
		doc.CurrentTask = &taskDocument{
			GeneratorID:       t.GeneratorID.String(),
			ParentGeneratorID: t.ParentGeneratorID.String(),
			LevelID:           t.LevelID.String(),
			TopicID:           t.TopicID.String(),
		}
	}

	for topicID, tp := range p.TopicsProgress {
		td := topicDocument{
			TopicID: tp.TopicID.String(),
			Levels:  make(map[string]levelDocument, len(tp.LevelProgress)),
		}
		for levelID, lp := range tp.LevelProgress {
			streaks := make(map[string]int, len(lp.Streaks))
			for g, n := range lp.Streaks {
				streaks[g.String()] = n
			}
			td.Levels[levelID.String()] = levelDocument{LevelID: lp.LevelID.String(), Streaks: streaks}
		}
		doc.Topics[topicID.String()] = td
	}

	return userDocument{ID: u.ID.String(), Progress: doc, Version: u.Version}
}

func (d userDocument) toEntity() (*progress.UserEntity, error) {
	var ids idParser

	user := &progress.UserEntity{ID: ids.parse(d.ID), Version: d.Version}
	p := progress.UserProgress{
		ID:             ids.parse(d.Progress.ID),
		CurrentTopicID: ids.parse(d.Progress.CurrentTopicID),
		CurrentLevelID: ids.parse(d.Progress.CurrentLevelID),
		TopicsProgress: make(map[uuid.UUID]progress.TopicProgress, len(d.Progress.Topics)),
	}
	if t := d.Progress.CurrentTask; t != nil {
		p.CurrentTask = &progress.Task{
			GeneratorID:       ids.parse(t.GeneratorID),
			ParentGeneratorID: ids.parse(t.ParentGeneratorID),
			LevelID:           ids.parse(t.LevelID),
			TopicID:           ids.parse(t.TopicID),
		}
	}

	for topicKey, td := range d.Progress.Topics {
		tp := progress.TopicProgress{
			TopicID:       ids.parse(td.TopicID),
			LevelProgress: make(map[uuid.UUID]progress.LevelProgress, len(td.Levels)),
		}
		for levelKey, ld := range td.Levels {
			streaks := make(progress.Streaks, len(ld.Streaks))
			for g, n := range ld.Streaks {
				streaks[ids.parse(g)] = n
			}
			tp.LevelProgress[ids.parse(levelKey)] = progress.LevelProgress{LevelID: ids.parse(ld.LevelID), Streaks: streaks}
		}
		p.TopicsProgress[ids.parse(topicKey)] = tp
	}

	if ids.err != nil {
		return nil, fmt.Errorf("corrupt user document %s: %w", d.ID, ids.err)
	}

	user.Progress = p
	return user, nil
}

// idParser parses ids and keeps the first failure.
type idParser struct {
	err error
}

func (p *idParser) parse(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id
}
