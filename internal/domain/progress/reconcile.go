package progress

import (
	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILIATION
// Все функции чистые: вход не изменяется, результат не разделяет с ним карты.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileUserProgress добавляет пустой прогресс для новых тем каталога
// и удаляет прогресс тем, которых в каталоге больше нет.
func ReconcileUserProgress(p UserProgress, topics []catalog.Topic) UserProgress {
	ids := catalog.TopicIDs(topics)
	synced := alignKeys(p.TopicsProgress, ids, ids, NewTopicProgress, TopicProgress.Clone)
	return p.WithTopicsProgress(synced)
}

// ReconcileTopicProgress гарантирует наличие первого уровня темы
// и оставляет только уровни, существующие в каталоге.
// Тема без уровней сводится к пустому набору.
func ReconcileTopicProgress(tp TopicProgress, levels []catalog.Level) TopicProgress {
	if len(levels) == 0 {
		return tp.WithLevelProgress(make(map[uuid.UUID]LevelProgress))
	}

	first := levels[0]
	initFirst := func(uuid.UUID) LevelProgress { return NewLevelProgress(first) }

	synced := alignKeys(
		tp.LevelProgress,
		[]uuid.UUID{first.ID},
		catalog.LevelIDs(levels),
		initFirst,
		LevelProgress.Clone,
	)
	return tp.WithLevelProgress(synced)
}

// ReconcileLevelProgress добавляет нулевые серии для новых генераторов
// и удаляет серии генераторов, которых в уровне больше нет.
// Если уровень не найден (nil), прогресс возвращается без изменений.
func ReconcileLevelProgress(lp LevelProgress, level *catalog.Level) LevelProgress {
	if level == nil {
		return lp
	}

	ids := level.GeneratorIDs()
	synced := alignKeys(lp.Streaks, ids, ids, func(uuid.UUID) int { return 0 }, identity[int])
	return lp.WithStreaks(synced)
}

// ReconcileTree выравнивает всё дерево: темы, их уровни и серии уровней.
// Уровни берутся из вложенных списков тем каталога.
func ReconcileTree(p UserProgress, topics []catalog.Topic) UserProgress {
	p = ReconcileUserProgress(p, topics)

	for _, topic := range topics {
		tp := ReconcileTopicProgress(p.TopicsProgress[topic.ID], topic.Levels)
		tp.TopicID = topic.ID
		for levelID, lp := range tp.LevelProgress {
			level, ok := topic.FindLevel(levelID)
			if !ok {
				continue
			}
			tp.LevelProgress[levelID] = ReconcileLevelProgress(lp, &level)
		}
		p.TopicsProgress[topic.ID] = tp
	}

	return p
}

// alignKeys возвращает новую карту: сначала в копию m добавляются
// init(id) для отсутствующих id из seed, затем остаются только ключи из keep.
// Порядок важен: только что добавленное значение не должно быть отброшено
// тем же проходом, если его id входит в keep.
func alignKeys[V any](
	m map[uuid.UUID]V,
	seed []uuid.UUID,
	keep []uuid.UUID,
	init func(uuid.UUID) V,
	clone func(V) V,
) map[uuid.UUID]V {
	merged := make(map[uuid.UUID]V, len(m)+len(seed))
	for id, v := range m {
		merged[id] = v
	}
	for _, id := range seed {
		if _, ok := merged[id]; !ok {
			merged[id] = init(id)
		}
	}

	out := make(map[uuid.UUID]V, len(keep))
	for _, id := range keep {
		if v, ok := merged[id]; ok {
			out[id] = clone(v)
		}
	}
	return out
}

func identity[T any](v T) T { return v }
