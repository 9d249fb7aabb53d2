// Package progress содержит дерево прогресса ученика и его согласование с каталогом.
//
// Дерево состоит из трёх уровней:
//
//   - UserProgress: текущая позиция и прогресс по темам
//   - TopicProgress: прогресс по уровням темы
//   - LevelProgress: серии (streaks) по генераторам уровня
//
// # Согласование
//
// Каталог может меняться: темы, уровни и генераторы добавляются и удаляются.
// Функции Reconcile* выравнивают поддерево по текущему каталогу по одной схеме:
// сначала добавить недостающее значение по умолчанию, затем оставить только
// ключи, которые есть в каталоге сейчас.
//
//	p = progress.ReconcileUserProgress(p, topics)
//	tp = progress.ReconcileTopicProgress(tp, levels)
//	lp = progress.ReconcileLevelProgress(lp, &level)
//
// Согласование идемпотентно и не меняет серии генераторов, которые остались
// в каталоге. Функции не изменяют аргументы: значения копируются через With*.
package progress
