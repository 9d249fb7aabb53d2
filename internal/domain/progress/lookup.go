package progress

import (
	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// Option - явный выбор между значением и «текущим» значением из прогресса.
type Option[T any] struct {
	value T
	set   bool
}

// Current означает «взять текущее значение из прогресса».
func Current[T any]() Option[T] {
	return Option[T]{}
}

// Use задаёт конкретное значение.
func Use[T any](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// Get возвращает значение и признак того, что оно задано.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// OrElse возвращает значение или результат fallback, если значение не задано.
func (o Option[T]) OrElse(fallback func() (T, error)) (T, error) {
	if o.set {
		return o.value, nil
	}
	return fallback()
}

// StreakQuery описывает, какую серию читать. Пустые поля означают текущую позицию.
type StreakQuery struct {
	Topic     Option[uuid.UUID]
	Level     Option[uuid.UUID]
	Generator Option[uuid.UUID]
}

// CurrentStreak читает серию генератора на уровне темы.
// Незаданные части запроса берутся из текущей темы, уровня и задания.
// Возвращает ошибку вида ErrNotFound, если какого-либо ключа нет.
func (p UserProgress) CurrentStreak(q StreakQuery) (int, error) {
	topicID, _ := q.Topic.OrElse(func() (uuid.UUID, error) { return p.CurrentTopicID, nil })
	levelID, _ := q.Level.OrElse(func() (uuid.UUID, error) { return p.CurrentLevelID, nil })
	generatorID, err := q.Generator.OrElse(func() (uuid.UUID, error) {
		if p.CurrentTask == nil {
			return uuid.Nil, shared.ErrNoCurrentTask
		}
		return p.CurrentTask.ParentGeneratorID, nil
	})
	if err != nil {
		return 0, err
	}

	tp, ok := p.TopicsProgress[topicID]
	if !ok {
		return 0, shared.WrapError("progress", "CurrentStreak", shared.ErrNotFound,
			"topic "+topicID.String(), shared.ErrTopicProgressNotFound)
	}
	lp, ok := tp.LevelProgress[levelID]
	if !ok {
		return 0, shared.WrapError("progress", "CurrentStreak", shared.ErrNotFound,
			"level "+levelID.String(), shared.ErrLevelProgressNotFound)
	}
	streak, ok := lp.Streaks[generatorID]
	if !ok {
		return 0, shared.WrapError("progress", "CurrentStreak", shared.ErrNotFound,
			"generator "+generatorID.String(), shared.ErrStreakNotFound)
	}
	return streak, nil
}
