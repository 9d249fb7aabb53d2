// Package service contains application services that orchestrate domain logic
// and persistence. Services hold no state between calls besides their collaborators.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/selection"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SERVICE
// Find-or-create users, reconcile their progress against the catalog
// and pick the next task generator.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressService orchestrates progress reconciliation at user, topic and level
// granularity. Conflicting updates are returned as is: reconciliation is
// idempotent, so the caller can re-fetch the user and call again.
type ProgressService struct {
	users    progress.UserRepository
	catalog  catalog.Repository
	selector selection.Selector
	logger   *slog.Logger
}

// NewProgressService creates a new ProgressService.
func NewProgressService(
	users progress.UserRepository,
	catalogRepo catalog.Repository,
	selector selection.Selector,
	logger *slog.Logger,
) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = selection.NewRoundRobin()
	}

	return &ProgressService{
		users:    users,
		catalog:  catalogRepo,
		selector: selector,
		logger:   logger.With("component", "progress_service"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// FindOrCreateUser returns the stored user or inserts a new one whose progress
// has an empty entry for every catalog topic. When a concurrent caller wins the
// insert, the stored user is returned instead.
func (s *ProgressService) FindOrCreateUser(ctx context.Context, userID uuid.UUID) (*progress.UserEntity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("find_or_create_user: find: %w", err)
	}

	topics, err := s.catalog.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("find_or_create_user: list topics: %w", err)
	}

	created, err := s.users.Insert(ctx, progress.NewUserEntity(userID, topics))
	if err != nil {
		if shared.IsAlreadyExists(err) {
			s.logger.Debug("user inserted concurrently, re-reading", "user_id", userID)
			user, err = s.users.FindByID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("find_or_create_user: re-read: %w", err)
			}
			return user, nil
		}
		return nil, fmt.Errorf("find_or_create_user: insert: %w", err)
	}

	s.logger.Info("user created", "user_id", userID, "topics", len(topics))
	return created, nil
}

// HasCurrentTask reports whether a task is currently presented to the user.
func (s *ProgressService) HasCurrentTask(user *progress.UserEntity) bool {
	return user.Progress.HasCurrentTask()
}

// ─────────────────────────────────────────────────────────────────────────────
// Reconciliation
// ─────────────────────────────────────────────────────────────────────────────

// RefreshUserProgress reconciles the whole progress tree and persists it.
// The returned entity carries the new version; the argument is not modified.
func (s *ProgressService) RefreshUserProgress(ctx context.Context, user *progress.UserEntity) (*progress.UserEntity, error) {
	topics, err := s.catalog.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh_user_progress: list topics: %w", err)
	}

	updated := user.WithProgress(progress.ReconcileTree(user.Progress, topics))
	if err := s.users.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("refresh_user_progress: %w", err)
	}

	s.logger.Debug("user progress refreshed", "user_id", user.ID, "topics", len(updated.Progress.TopicsProgress))
	return updated, nil
}

// RefreshTopicProgress reconciles one topic subtree and persists the user.
// It is a no-op returning the user unchanged when the topic has no progress entry.
func (s *ProgressService) RefreshTopicProgress(ctx context.Context, user *progress.UserEntity, topicID uuid.UUID) (*progress.UserEntity, error) {
	tp, ok := user.Progress.TopicsProgress[topicID]
	if !ok {
		return user, nil
	}

	levels, err := s.catalog.ListLevelsOfTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("refresh_topic_progress: list levels: %w", err)
	}

	tp = progress.ReconcileTopicProgress(tp, levels)
	for _, level := range levels {
		if lp, ok := tp.LevelProgress[level.ID]; ok {
			tp.LevelProgress[level.ID] = progress.ReconcileLevelProgress(lp, &level)
		}
	}

	updated := user.WithProgress(user.Progress.WithTopic(tp))
	if err := s.users.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("refresh_topic_progress: %w", err)
	}

	s.logger.Debug("topic progress refreshed", "user_id", user.ID, "topic_id", topicID)
	return updated, nil
}

// RefreshLevelProgress reconciles the streaks of one level and persists the user.
// It is a no-op when the topic or level has no progress entry. A level missing
// from the catalog keeps its streaks.
func (s *ProgressService) RefreshLevelProgress(ctx context.Context, user *progress.UserEntity, topicID, levelID uuid.UUID) (*progress.UserEntity, error) {
	tp, ok := user.Progress.TopicsProgress[topicID]
	if !ok {
		return user, nil
	}
	lp, ok := tp.LevelProgress[levelID]
	if !ok {
		return user, nil
	}

	level, err := s.catalog.FindLevel(ctx, topicID, levelID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("refresh_level_progress: find level: %w", err)
		}
		level = nil
	}

	lp = progress.ReconcileLevelProgress(lp, level)
	updated := user.WithProgress(user.Progress.WithLevel(topicID, lp))
	if err := s.users.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("refresh_level_progress: %w", err)
	}

	s.logger.Debug("level progress refreshed", "user_id", user.ID, "topic_id", topicID, "level_id", levelID)
	return updated, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// CurrentStreak reads a streak; unset query parts default to the user's
// current topic, level and task generator.
func (s *ProgressService) CurrentStreak(user *progress.UserEntity, q progress.StreakQuery) (int, error) {
	streak, err := user.Progress.CurrentStreak(q)
	if err != nil {
		return 0, fmt.Errorf("current_streak: user %s: %w", user.ID, err)
	}
	return streak, nil
}

// SelectNextGenerator picks the next task generator of a level using the
// user's streaks on that level. A level without generators fails with
// shared.ErrEmptyCandidateSet.
func (s *ProgressService) SelectNextGenerator(ctx context.Context, user *progress.UserEntity, topicID, levelID uuid.UUID) (catalog.TaskGenerator, error) {
	level, err := s.catalog.FindLevel(ctx, topicID, levelID)
	if err != nil {
		return catalog.TaskGenerator{}, fmt.Errorf("select_next_generator: %w", err)
	}

	var streaks progress.Streaks
	if tp, ok := user.Progress.TopicsProgress[topicID]; ok {
		streaks = tp.LevelProgress[levelID].Streaks
	}

	generator, err := s.selector.Select(ctx, level.Generators, streaks)
	if err != nil {
		s.logger.Error("generator selection failed",
			"user_id", user.ID, "topic_id", topicID, "level_id", levelID, "error", err)
		return catalog.TaskGenerator{}, fmt.Errorf("select_next_generator: %w", err)
	}
	return generator, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog checks
// ─────────────────────────────────────────────────────────────────────────────

// TopicExists reports whether the catalog has the topic.
func (s *ProgressService) TopicExists(ctx context.Context, topicID uuid.UUID) (bool, error) {
	_, err := s.catalog.FindTopic(ctx, topicID)
	return existence(err)
}

// LevelExists reports whether the catalog has the level under the topic.
func (s *ProgressService) LevelExists(ctx context.Context, topicID, levelID uuid.UUID) (bool, error) {
	_, err := s.catalog.FindLevel(ctx, topicID, levelID)
	return existence(err)
}

// GeneratorExists reports whether the catalog has the generator under the level.
func (s *ProgressService) GeneratorExists(ctx context.Context, topicID, levelID, generatorID uuid.UUID) (bool, error) {
	_, err := s.catalog.FindGenerator(ctx, topicID, levelID, generatorID)
	return existence(err)
}

func existence(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case shared.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
