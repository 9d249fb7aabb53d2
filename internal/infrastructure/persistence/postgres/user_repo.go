package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements progress.UserRepository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*progress.UserEntity, error) {
	var (
		raw     []byte
		version int64
	)
	err := r.conn.QueryRow(ctx,
		`SELECT progress, version FROM users WHERE id = $1`, id,
	).Scan(&raw, &version)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var p progress.UserProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress of user %s: %w", id, err)
	}

	return &progress.UserEntity{ID: id, Progress: p, Version: version}, nil
}

// Insert creates a new user with version 1.
func (r *UserRepository) Insert(ctx context.Context, user *progress.UserEntity) (*progress.UserEntity, error) {
	raw, err := json.Marshal(user.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}

	_, err = r.conn.Exec(ctx,
		`INSERT INTO users (id, progress, version) VALUES ($1, $2, 1)`,
		user.ID, raw,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, shared.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	stored := user.WithProgress(user.Progress.Clone())
	stored.Version = 1
	return stored, nil
}

// Update writes the progress tree when the stored version still equals
// user.Version, then bumps user.Version.
func (r *UserRepository) Update(ctx context.Context, user *progress.UserEntity) error {
	raw, err := json.Marshal(user.Progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE users
		SET progress = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
	`, user.ID, raw, user.Version)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, user.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user existence: %w", err)
		}
		if !exists {
			return shared.ErrUserNotFound
		}
		return shared.ErrUserConflict
	}

	user.Version++
	return nil
}

// ListIDs returns all user ids ordered by id.
func (r *UserRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
