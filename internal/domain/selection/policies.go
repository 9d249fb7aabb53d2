package selection

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUND ROBIN
// ══════════════════════════════════════════════════════════════════════════════

// RoundRobin выбирает кандидатов по кругу. Серии не учитываются.
// Курсор общий для всех вызовов экземпляра и защищён мьютексом.
type RoundRobin struct {
	mu      sync.Mutex
	current uint64
}

// NewRoundRobin создаёт стратегию с курсором в нуле.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select реализует Selector.
func (r *RoundRobin) Select(_ context.Context, candidates []catalog.TaskGenerator, _ map[uuid.UUID]int) (catalog.TaskGenerator, error) {
	if err := checkCandidates(candidates); err != nil {
		return catalog.TaskGenerator{}, err
	}

	r.mu.Lock()
	idx := r.current % uint64(len(candidates))
	r.current++
	r.mu.Unlock()

	return candidates[idx], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK BIASED
// ══════════════════════════════════════════════════════════════════════════════

// StreakBiased выбирает генератор с наименьшей серией, чтобы закреплять слабые места.
// При равенстве побеждает генератор, который раньше в каталоге.
// Генератор без записи в streaks считается серией 0.
type StreakBiased struct{}

// NewStreakBiased создаёт стратегию.
func NewStreakBiased() StreakBiased {
	return StreakBiased{}
}

// Select реализует Selector.
func (StreakBiased) Select(_ context.Context, candidates []catalog.TaskGenerator, streaks map[uuid.UUID]int) (catalog.TaskGenerator, error) {
	if err := checkCandidates(candidates); err != nil {
		return catalog.TaskGenerator{}, err
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if streaks[candidates[i].ID] < streaks[candidates[best].ID] {
			best = i
		}
	}
	return candidates[best], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HASH
// ══════════════════════════════════════════════════════════════════════════════

// Hash выбирает без состояния: индекс - хеш набора кандидатов и суммы их серий.
// Выбор смещается по мере роста серий ученика, поэтому экземпляр можно
// разделять между горутинами без синхронизации.
type Hash struct{}

// NewHash создаёт стратегию.
func NewHash() Hash {
	return Hash{}
}

// Select реализует Selector.
func (Hash) Select(_ context.Context, candidates []catalog.TaskGenerator, streaks map[uuid.UUID]int) (catalog.TaskGenerator, error) {
	if err := checkCandidates(candidates); err != nil {
		return catalog.TaskGenerator{}, err
	}

	h := fnv.New64a()
	var total uint64
	for _, c := range candidates {
		h.Write(c.ID[:])
		total += uint64(max(streaks[c.ID], 0))
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], total)
	h.Write(buf[:])

	return candidates[h.Sum64()%uint64(len(candidates))], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED ROUND ROBIN
// ══════════════════════════════════════════════════════════════════════════════

// SharedRoundRobin - ротация, курсор которой хранится в CursorStore.
// У каждого набора кандидатов свой курсор.
type SharedRoundRobin struct {
	cursors CursorStore
}

// NewSharedRoundRobin создаёт стратегию поверх хранилища курсоров.
func NewSharedRoundRobin(cursors CursorStore) *SharedRoundRobin {
	return &SharedRoundRobin{cursors: cursors}
}

// Select реализует Selector.
func (s *SharedRoundRobin) Select(ctx context.Context, candidates []catalog.TaskGenerator, _ map[uuid.UUID]int) (catalog.TaskGenerator, error) {
	if err := checkCandidates(candidates); err != nil {
		return catalog.TaskGenerator{}, err
	}

	n, err := s.cursors.Next(ctx, CandidateSetKey(candidates))
	if err != nil {
		return catalog.TaskGenerator{}, fmt.Errorf("selection: advance cursor: %w", err)
	}
	return candidates[n%uint64(len(candidates))], nil
}

// CandidateSetKey возвращает ключ курсора для упорядоченного набора кандидатов.
func CandidateSetKey(candidates []catalog.TaskGenerator) string {
	h := fnv.New64a()
	for _, c := range candidates {
		h.Write(c.ID[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
