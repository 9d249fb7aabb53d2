package selection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

type fakeCursors struct {
	mu     sync.Mutex
	values map[string]uint64
	err    error
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{values: make(map[string]uint64)}
}

func (f *fakeCursors) Next(_ context.Context, key string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.values[key]
	f.values[key] = n + 1
	return n, nil
}

func candidates(n int) []catalog.TaskGenerator {
	out := make([]catalog.TaskGenerator, n)
	for i := range out {
		out[i] = catalog.TaskGenerator{ID: uuid.New()}
	}
	return out
}

func allPolicies(t *testing.T) map[Policy]Selector {
	t.Helper()
	out := make(map[Policy]Selector)
	for _, p := range []Policy{PolicyRoundRobin, PolicyStreakBiased, PolicyHash, PolicySharedRoundRobin} {
		s, err := New(p, newFakeCursors())
		require.NoError(t, err)
		out[p] = s
	}
	return out
}

func TestSelect_EmptyCandidates(t *testing.T) {
	for policy, s := range allPolicies(t) {
		t.Run(string(policy), func(t *testing.T) {
			_, err := s.Select(context.Background(), nil, map[uuid.UUID]int{})

			assert.ErrorIs(t, err, shared.ErrNoGenerators)
			assert.True(t, shared.IsEmptyCandidateSet(err))
		})
	}
}

func TestSelect_ReturnsACandidate(t *testing.T) {
	ctx := context.Background()
	cands := candidates(4)
	streaks := map[uuid.UUID]int{cands[0].ID: 3, cands[2].ID: 1}

	for policy, s := range allPolicies(t) {
		t.Run(string(policy), func(t *testing.T) {
			for i := 0; i < 10; i++ {
				got, err := s.Select(ctx, cands, streaks)
				require.NoError(t, err)
				assert.Contains(t, cands, got)
			}
		})
	}
}

func TestRoundRobin_Rotates(t *testing.T) {
	ctx := context.Background()
	cands := candidates(3)
	rr := NewRoundRobin()

	var got []catalog.TaskGenerator
	for i := 0; i < 6; i++ {
		g, err := rr.Select(ctx, cands, nil)
		require.NoError(t, err)
		got = append(got, g)
	}

	assert.Equal(t, []catalog.TaskGenerator{cands[0], cands[1], cands[2], cands[0], cands[1], cands[2]}, got)
}

func TestRoundRobin_DifferentCandidateSets(t *testing.T) {
	ctx := context.Background()
	rr := NewRoundRobin()

	g, err := rr.Select(ctx, candidates(5), nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, g.ID)

	single := candidates(1)
	for i := 0; i < 3; i++ {
		g, err := rr.Select(ctx, single, nil)
		require.NoError(t, err)
		assert.Equal(t, single[0], g)
	}
}

func TestRoundRobin_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	cands := candidates(4)
	rr := NewRoundRobin()

	const workers, calls = 8, 100
	var (
		mu     sync.Mutex
		counts = make(map[uuid.UUID]int)
		wg     sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				g, err := rr.Select(ctx, cands, nil)
				if err != nil {
					return
				}
				mu.Lock()
				counts[g.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, c := range cands {
		assert.Equal(t, workers*calls/len(cands), counts[c.ID])
	}
}

func TestStreakBiased(t *testing.T) {
	ctx := context.Background()
	cands := candidates(3)
	s := NewStreakBiased()

	tests := []struct {
		name    string
		streaks map[uuid.UUID]int
		want    catalog.TaskGenerator
	}{
		{"lowest streak wins", map[uuid.UUID]int{cands[0].ID: 5, cands[1].ID: 1, cands[2].ID: 3}, cands[1]},
		{"tie goes to catalog order", map[uuid.UUID]int{cands[0].ID: 2, cands[1].ID: 1, cands[2].ID: 1}, cands[1]},
		{"missing streak counts as zero", map[uuid.UUID]int{cands[0].ID: 2, cands[1].ID: 1}, cands[2]},
		{"no streaks at all", nil, cands[0]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Select(ctx, cands, tt.streaks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	ctx := context.Background()
	cands := candidates(5)
	streaks := map[uuid.UUID]int{cands[1].ID: 2}

	first, err := NewHash().Select(ctx, cands, streaks)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := NewHash().Select(ctx, cands, streaks)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestSharedRoundRobin_CursorPerCandidateSet(t *testing.T) {
	ctx := context.Background()
	cursors := newFakeCursors()
	s := NewSharedRoundRobin(cursors)
	a, b := candidates(2), candidates(3)

	g, _ := s.Select(ctx, a, nil)
	assert.Equal(t, a[0], g)
	g, _ = s.Select(ctx, b, nil)
	assert.Equal(t, b[0], g)
	g, _ = s.Select(ctx, a, nil)
	assert.Equal(t, a[1], g)

	assert.Equal(t, uint64(2), cursors.values[CandidateSetKey(a)])
	assert.Equal(t, uint64(1), cursors.values[CandidateSetKey(b)])
}

func TestSharedRoundRobin_CursorError(t *testing.T) {
	cursors := newFakeCursors()
	cursors.err = errors.New("redis down")

	_, err := NewSharedRoundRobin(cursors).Select(context.Background(), candidates(2), nil)

	assert.ErrorIs(t, err, cursors.err)
}

func TestCandidateSetKey(t *testing.T) {
	a := candidates(3)
	reversed := []catalog.TaskGenerator{a[2], a[1], a[0]}

	assert.Equal(t, CandidateSetKey(a), CandidateSetKey(append([]catalog.TaskGenerator(nil), a...)))
	assert.NotEqual(t, CandidateSetKey(a), CandidateSetKey(reversed))
	assert.Len(t, CandidateSetKey(a), 16)
}

func TestNew(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)
	assert.IsType(t, &RoundRobin{}, s)

	s, err = New(PolicyStreakBiased, nil)
	require.NoError(t, err)
	assert.IsType(t, StreakBiased{}, s)

	_, err = New(PolicySharedRoundRobin, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = New("weighted", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPolicy_IsValid(t *testing.T) {
	assert.True(t, PolicyHash.IsValid())
	assert.True(t, PolicySharedRoundRobin.IsValid())
	assert.False(t, Policy("").IsValid())
	assert.False(t, Policy("random").IsValid())
}
