// Package jobs contains the scheduled jobs of the level-manager worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
	"github.com/quiz-hub/level-manager/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH ALL USERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// UserRefresher reconciles one user's progress against the catalog and
// persists it. *service.ProgressService implements it.
type UserRefresher interface {
	RefreshUserProgress(ctx context.Context, user *progress.UserEntity) (*progress.UserEntity, error)
}

// RefreshAllUsersJob brings every stored user in line with the current
// catalog. A user whose update loses a version race is re-read and refreshed
// again; reconciliation is idempotent, so the retry is always safe.
type RefreshAllUsersJob struct {
	users     progress.UserRepository
	refresher UserRefresher
	logger    *slog.Logger
	config    RefreshAllUsersConfig

	lastStats atomic.Pointer[RefreshStats]
}

// RefreshAllUsersConfig contains configuration for the refresh job.
type RefreshAllUsersConfig struct {
	// Concurrency is the number of users refreshed in parallel.
	Concurrency int

	// Timeout bounds a whole run. Zero means no limit.
	Timeout time.Duration

	// ConflictAttempts is how many times one user is tried before giving up.
	ConflictAttempts int

	// ConflictBackoff is the delay before the first conflict retry.
	ConflictBackoff time.Duration

	// MaxFailureRate fails the run when more users than this share failed.
	MaxFailureRate float64
}

// DefaultRefreshAllUsersConfig returns sensible defaults.
func DefaultRefreshAllUsersConfig() RefreshAllUsersConfig {
	return RefreshAllUsersConfig{
		Concurrency:      8,
		Timeout:          10 * time.Minute,
		ConflictAttempts: 5,
		ConflictBackoff:  20 * time.Millisecond,
		MaxFailureRate:   0.5,
	}
}

// RefreshStats contains statistics from a refresh run.
type RefreshStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	TotalUsers   int
	Refreshed    int
	Skipped      int
	Failed       int
	ConflictHits int
	Errors       []RefreshError
}

// RefreshError records a user that could not be refreshed.
type RefreshError struct {
	UserID uuid.UUID
	Err    error
}

// NewRefreshAllUsersJob creates a new refresh job.
func NewRefreshAllUsersJob(
	users progress.UserRepository,
	refresher UserRefresher,
	logger *slog.Logger,
	config RefreshAllUsersConfig,
) *RefreshAllUsersJob {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRefreshAllUsersConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.ConflictAttempts <= 0 {
		config.ConflictAttempts = defaults.ConflictAttempts
	}
	if config.MaxFailureRate <= 0 {
		config.MaxFailureRate = defaults.MaxFailureRate
	}

	return &RefreshAllUsersJob{
		users:     users,
		refresher: refresher,
		logger:    logger.With("job", "refresh_all_users"),
		config:    config,
	}
}

// Name returns the job name.
func (j *RefreshAllUsersJob) Name() string {
	return "refresh_all_users"
}

// Description returns a human-readable description.
func (j *RefreshAllUsersJob) Description() string {
	return "Reconciles every user's progress tree with the current quiz catalog"
}

// Run executes the refresh job.
func (j *RefreshAllUsersJob) Run(ctx context.Context) error {
	stats := &RefreshStats{StartedAt: time.Now()}
	defer func() {
		stats.CompletedAt = time.Now()
		stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	ids, err := j.users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	stats.TotalUsers = len(ids)
	if len(ids) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			conflicts, err := j.refresh(gctx, id)

			mu.Lock()
			defer mu.Unlock()

			stats.ConflictHits += conflicts
			switch {
			case err == nil:
				stats.Refreshed++
			case shared.IsNotFound(err):
				stats.Skipped++
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				stats.Failed++
				stats.Errors = append(stats.Errors, RefreshError{UserID: id, Err: err})
				j.logger.Error("failed to refresh user", "user_id", id, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh interrupted: %w", err)
	}

	j.logger.Info("refresh_all_users completed",
		"total", stats.TotalUsers,
		"refreshed", stats.Refreshed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"conflicts", stats.ConflictHits,
	)

	if rate := float64(stats.Failed) / float64(stats.TotalUsers); rate > j.config.MaxFailureRate {
		return fmt.Errorf("refresh failed for %d of %d users", stats.Failed, stats.TotalUsers)
	}
	return nil
}

// RefreshOne refreshes a single user, retrying on version conflicts.
func (j *RefreshAllUsersJob) RefreshOne(ctx context.Context, id uuid.UUID) (*progress.UserEntity, error) {
	var updated *progress.UserEntity
	_, err := j.refreshWith(ctx, id, func(u *progress.UserEntity) { updated = u })
	return updated, err
}

// LastStats returns statistics from the last run, or nil before the first run.
func (j *RefreshAllUsersJob) LastStats() *RefreshStats {
	return j.lastStats.Load()
}

func (j *RefreshAllUsersJob) refresh(ctx context.Context, id uuid.UUID) (int, error) {
	return j.refreshWith(ctx, id, nil)
}

func (j *RefreshAllUsersJob) refreshWith(ctx context.Context, id uuid.UUID, done func(*progress.UserEntity)) (int, error) {
	conflicts := 0
	err := retry.Do(ctx,
		func(ctx context.Context) error {
			user, err := j.users.FindByID(ctx, id)
			if err != nil {
				return err
			}
			updated, err := j.refresher.RefreshUserProgress(ctx, user)
			if err != nil {
				return err
			}
			if done != nil {
				done(updated)
			}
			return nil
		},
		retry.WithMaxAttempts(j.config.ConflictAttempts),
		retry.WithInitialDelay(j.config.ConflictBackoff),
		retry.WithMaxDelay(time.Second),
		retry.WithRetryIf(shared.IsConflict),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			conflicts++
			j.logger.Debug("version conflict, retrying", "user_id", id, "attempt", attempt, "delay", delay.String())
		}),
	)
	return conflicts, err
}
