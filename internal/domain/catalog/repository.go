package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции чтения каталога.
type Repository interface {
	// ListTopics возвращает все темы в порядке каталога.
	ListTopics(ctx context.Context) ([]Topic, error)

	// FindTopic возвращает тему по ID.
	// Возвращает ErrTopicNotFound, если темы нет.
	FindTopic(ctx context.Context, topicID uuid.UUID) (*Topic, error)

	// ListLevelsOfTopic возвращает уровни темы в порядке каталога.
	// Для неизвестной темы возвращает пустой список.
	ListLevelsOfTopic(ctx context.Context, topicID uuid.UUID) ([]Level, error)

	// FindLevel возвращает уровень темы.
	// Возвращает ErrLevelNotFound, если уровня нет.
	FindLevel(ctx context.Context, topicID, levelID uuid.UUID) (*Level, error)

	// FindGenerator возвращает генератор уровня.
	// Возвращает ErrGeneratorNotFound, если генератора нет.
	FindGenerator(ctx context.Context, topicID, levelID, generatorID uuid.UUID) (*TaskGenerator, error)
}
