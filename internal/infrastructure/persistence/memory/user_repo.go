// Package memory implements in-process repositories for development and tests.
// Stored values are deep-copied on the way in and out so callers never share
// maps with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// UserRepository implements progress.UserRepository in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]progress.UserEntity
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]progress.UserEntity)}
}

// FindByID returns a copy of the stored user.
func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*progress.UserEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Insert stores a new user with version 1.
func (r *UserRepository) Insert(_ context.Context, user *progress.UserEntity) (*progress.UserEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return nil, shared.ErrUserAlreadyExists
	}

	stored := *cloneUser(*user)
	stored.Version = 1
	r.users[user.ID] = stored
	return cloneUser(stored), nil
}

// Update replaces the user when the stored version matches user.Version.
func (r *UserRepository) Update(_ context.Context, user *progress.UserEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if current.Version != user.Version {
		return shared.ErrUserConflict
	}

	user.Version++
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

// ListIDs returns the ids of all users in a stable order.
func (r *UserRepository) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func cloneUser(u progress.UserEntity) *progress.UserEntity {
	u.Progress = u.Progress.Clone()
	return &u
}
