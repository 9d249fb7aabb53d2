package progress

import (
	"maps"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAKS
// ══════════════════════════════════════════════════════════════════════════════

// Streaks - серии успешных ответов по генераторам уровня (GeneratorID → серия).
type Streaks map[uuid.UUID]int

// Clone возвращает независимую копию серий.
func (s Streaks) Clone() Streaks {
	if s == nil {
		return Streaks{}
	}
	return maps.Clone(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// LevelProgress - прогресс ученика на одном уровне.
type LevelProgress struct {
	// LevelID - идентификатор уровня каталога.
	LevelID uuid.UUID `json:"level_id"`

	// Streaks - серии по генераторам уровня.
	Streaks Streaks `json:"streaks"`
}

// NewLevelProgress создаёт прогресс уровня с нулевой серией для каждого генератора.
func NewLevelProgress(level catalog.Level) LevelProgress {
	streaks := make(Streaks, len(level.Generators))
	for _, g := range level.Generators {
		streaks[g.ID] = 0
	}
	return LevelProgress{LevelID: level.ID, Streaks: streaks}
}

// WithStreaks возвращает копию с заменёнными сериями.
func (lp LevelProgress) WithStreaks(streaks Streaks) LevelProgress {
	lp.Streaks = streaks
	return lp
}

// Clone возвращает глубокую копию.
func (lp LevelProgress) Clone() LevelProgress {
	lp.Streaks = lp.Streaks.Clone()
	return lp
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// TopicProgress - прогресс ученика по теме.
type TopicProgress struct {
	// TopicID - идентификатор темы каталога.
	TopicID uuid.UUID `json:"topic_id"`

	// LevelProgress - прогресс по уровням темы (LevelID → прогресс).
	LevelProgress map[uuid.UUID]LevelProgress `json:"level_progress"`
}

// NewTopicProgress создаёт прогресс темы с пустым набором уровней.
func NewTopicProgress(topicID uuid.UUID) TopicProgress {
	return TopicProgress{
		TopicID:       topicID,
		LevelProgress: make(map[uuid.UUID]LevelProgress),
	}
}

// WithLevelProgress возвращает копию с заменённым набором уровней.
func (tp TopicProgress) WithLevelProgress(levels map[uuid.UUID]LevelProgress) TopicProgress {
	tp.LevelProgress = levels
	return tp
}

// Clone возвращает глубокую копию.
func (tp TopicProgress) Clone() TopicProgress {
	levels := make(map[uuid.UUID]LevelProgress, len(tp.LevelProgress))
	for id, lp := range tp.LevelProgress {
		levels[id] = lp.Clone()
	}
	tp.LevelProgress = levels
	return tp
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Task - задание, которое сейчас показано ученику.
type Task struct {
	GeneratorID       uuid.UUID `json:"generator_id"`
	ParentGeneratorID uuid.UUID `json:"parent_generator_id"`
	LevelID           uuid.UUID `json:"level_id"`
	TopicID           uuid.UUID `json:"topic_id"`
}

// UserProgress - полное дерево прогресса ученика.
type UserProgress struct {
	// ID - идентификатор записи прогресса.
	ID uuid.UUID `json:"id"`

	// CurrentTopicID - текущая тема.
	CurrentTopicID uuid.UUID `json:"current_topic_id"`

	// CurrentLevelID - текущий уровень.
	CurrentLevelID uuid.UUID `json:"current_level_id"`

	// CurrentTask - текущее задание (nil, если задания нет).
	CurrentTask *Task `json:"current_task,omitempty"`

	// TopicsProgress - прогресс по темам (TopicID → прогресс).
	TopicsProgress map[uuid.UUID]TopicProgress `json:"topics_progress"`
}

// NewUserProgress создаёт прогресс, где у каждой темы каталога есть пустая запись.
// Текущая позиция указывает на первый уровень первой темы, если он существует.
func NewUserProgress(topics []catalog.Topic) UserProgress {
	p := UserProgress{
		ID:             uuid.New(),
		TopicsProgress: make(map[uuid.UUID]TopicProgress, len(topics)),
	}
	for _, t := range topics {
		p.TopicsProgress[t.ID] = NewTopicProgress(t.ID)
	}
	if len(topics) > 0 {
		p.CurrentTopicID = topics[0].ID
		if first, ok := topics[0].FirstLevel(); ok {
			p.CurrentLevelID = first.ID
		}
	}
	return p
}

// WithTopicsProgress возвращает копию с заменённым набором тем.
func (p UserProgress) WithTopicsProgress(topics map[uuid.UUID]TopicProgress) UserProgress {
	p.TopicsProgress = topics
	return p
}

// WithTopic возвращает копию, в которой прогресс одной темы заменён.
func (p UserProgress) WithTopic(tp TopicProgress) UserProgress {
	topics := maps.Clone(p.TopicsProgress)
	if topics == nil {
		topics = make(map[uuid.UUID]TopicProgress, 1)
	}
	topics[tp.TopicID] = tp
	p.TopicsProgress = topics
	return p
}

// WithLevel возвращает копию, в которой прогресс уровня темы заменён.
func (p UserProgress) WithLevel(topicID uuid.UUID, lp LevelProgress) UserProgress {
	tp, ok := p.TopicsProgress[topicID]
	if !ok {
		tp = NewTopicProgress(topicID)
	}
	levels := maps.Clone(tp.LevelProgress)
	if levels == nil {
		levels = make(map[uuid.UUID]LevelProgress, 1)
	}
	levels[lp.LevelID] = lp
	return p.WithTopic(tp.WithLevelProgress(levels))
}

// WithCurrentTask возвращает копию с заменённым текущим заданием.
func (p UserProgress) WithCurrentTask(task *Task) UserProgress {
	p.CurrentTask = task
	return p
}

// WithPosition возвращает копию с новой текущей темой и уровнем.
func (p UserProgress) WithPosition(topicID, levelID uuid.UUID) UserProgress {
	p.CurrentTopicID = topicID
	p.CurrentLevelID = levelID
	return p
}

// Clone возвращает глубокую копию дерева.
func (p UserProgress) Clone() UserProgress {
	topics := make(map[uuid.UUID]TopicProgress, len(p.TopicsProgress))
	for id, tp := range p.TopicsProgress {
		topics[id] = tp.Clone()
	}
	p.TopicsProgress = topics
	if p.CurrentTask != nil {
		task := *p.CurrentTask
		p.CurrentTask = &task
	}
	return p
}

// HasCurrentTask возвращает true, если ученику показано задание.
func (p UserProgress) HasCurrentTask() bool {
	return p.CurrentTask != nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// UserEntity - ученик и его дерево прогресса.
type UserEntity struct {
	// ID - идентификатор ученика.
	ID uuid.UUID `json:"id"`

	// Progress - прогресс ученика, принадлежит только этой сущности.
	Progress UserProgress `json:"progress"`

	// Version - версия записи для оптимистичной блокировки.
	Version int64 `json:"version"`
}

// NewUserEntity создаёт ученика с прогрессом, инициализированным по каталогу.
func NewUserEntity(id uuid.UUID, topics []catalog.Topic) *UserEntity {
	return &UserEntity{
		ID:       id,
		Progress: NewUserProgress(topics),
	}
}

// WithProgress возвращает копию сущности с заменённым прогрессом.
func (u UserEntity) WithProgress(p UserProgress) *UserEntity {
	u.Progress = p
	return &u
}
