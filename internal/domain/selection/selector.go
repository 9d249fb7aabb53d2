// Package selection выбирает следующий генератор заданий для уровня.
// Стратегии взаимозаменяемы и выбираются конфигурацией.
package selection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// Selector выбирает генератор из непустого списка кандидатов.
// Пустой список - ошибка конфигурации каталога, возвращается ErrNoGenerators.
type Selector interface {
	Select(ctx context.Context, candidates []catalog.TaskGenerator, streaks map[uuid.UUID]int) (catalog.TaskGenerator, error)
}

// Policy - имя стратегии выбора.
type Policy string

const (
	// PolicyRoundRobin - по кругу, курсор в памяти процесса.
	PolicyRoundRobin Policy = "round_robin"
	// PolicyStreakBiased - генератор с наименьшей серией.
	PolicyStreakBiased Policy = "streak_biased"
	// PolicyHash - без состояния, индекс из хеша кандидатов и серий.
	PolicyHash Policy = "hash"
	// PolicySharedRoundRobin - по кругу, курсор во внешнем хранилище.
	PolicySharedRoundRobin Policy = "redis_round_robin"
)

// IsValid проверяет, что стратегия известна.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyRoundRobin, PolicyStreakBiased, PolicyHash, PolicySharedRoundRobin:
		return true
	default:
		return false
	}
}

// CursorStore хранит курсоры ротации вне процесса (например, в Redis).
type CursorStore interface {
	// Next атомарно увеличивает курсор key и возвращает предыдущее значение.
	Next(ctx context.Context, key string) (uint64, error)
}

// New создаёт стратегию по имени. Для PolicySharedRoundRobin нужен cursors.
func New(policy Policy, cursors CursorStore) (Selector, error) {
	switch policy {
	case PolicyRoundRobin, "":
		return NewRoundRobin(), nil
	case PolicyStreakBiased:
		return NewStreakBiased(), nil
	case PolicyHash:
		return NewHash(), nil
	case PolicySharedRoundRobin:
		if cursors == nil {
			return nil, shared.NewDomainError("selection", "New", shared.ErrInvalidInput,
				"redis_round_robin requires a cursor store")
		}
		return NewSharedRoundRobin(cursors), nil
	default:
		return nil, shared.NewDomainError("selection", "New", shared.ErrInvalidInput,
			fmt.Sprintf("unknown selector policy %q", policy))
	}
}

func checkCandidates(candidates []catalog.TaskGenerator) error {
	if len(candidates) == 0 {
		return shared.ErrNoGenerators
	}
	return nil
}
