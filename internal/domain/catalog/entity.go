// Package catalog содержит модель каталога заданий: темы, уровни и генераторы.
// Каталог принадлежит внешней системе и для ядра доступен только на чтение.
package catalog

import (
	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// TaskGenerator - единица, порождающая задания внутри уровня.
type TaskGenerator struct {
	// ID - идентификатор генератора.
	ID uuid.UUID `json:"id" yaml:"id"`
}

// Level - уровень темы с упорядоченным списком генераторов.
type Level struct {
	// ID - идентификатор уровня.
	ID uuid.UUID `json:"id" yaml:"id"`

	// Generators - генераторы в порядке каталога.
	Generators []TaskGenerator `json:"generators" yaml:"generators"`
}

// Topic - тема с упорядоченным списком уровней.
type Topic struct {
	// ID - идентификатор темы.
	ID uuid.UUID `json:"id" yaml:"id"`

	// Levels - уровни в порядке каталога.
	Levels []Level `json:"levels" yaml:"levels"`
}

// GeneratorIDs возвращает идентификаторы генераторов уровня в порядке каталога.
func (l Level) GeneratorIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(l.Generators))
	for i, g := range l.Generators {
		ids[i] = g.ID
	}
	return ids
}

// FindGenerator ищет генератор уровня по идентификатору.
func (l Level) FindGenerator(id uuid.UUID) (TaskGenerator, bool) {
	for _, g := range l.Generators {
		if g.ID == id {
			return g, true
		}
	}
	return TaskGenerator{}, false
}

// FirstLevel возвращает первый уровень темы, если он есть.
func (t Topic) FirstLevel() (Level, bool) {
	if len(t.Levels) == 0 {
		return Level{}, false
	}
	return t.Levels[0], true
}

// FindLevel ищет уровень темы по идентификатору.
func (t Topic) FindLevel(id uuid.UUID) (Level, bool) {
	for _, l := range t.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// TopicIDs возвращает идентификаторы тем в исходном порядке.
func TopicIDs(topics []Topic) []uuid.UUID {
	ids := make([]uuid.UUID, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
	}
	return ids
}

// LevelIDs возвращает идентификаторы уровней в исходном порядке.
func LevelIDs(levels []Level) []uuid.UUID {
	ids := make([]uuid.UUID, len(levels))
	for i, l := range levels {
		ids[i] = l.ID
	}
	return ids
}
