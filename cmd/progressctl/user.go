package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

func newUserCmd(s *session) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and reconcile user progress",
	}

	userCmd.AddCommand(
		newUserEnsureCmd(s),
		newUserShowCmd(s),
		newUserRefreshCmd(s),
		newUserStreakCmd(s),
	)
	return userCmd
}

func newUserEnsureCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <user>",
		Short: "Find a user, creating it from the catalog when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}

			user, err := s.app.Progress.FindOrCreateUser(cmd.Context(), userID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s version %d topics %d current_task %t\n",
				user.ID, user.Version, len(user.Progress.TopicsProgress), s.app.Progress.HasCurrentTask(user))
			return nil
		},
	}
}

func newUserShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Print a user's progress tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}

			user, err := s.app.Users.FindByID(cmd.Context(), userID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}
}

func newUserRefreshCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <user>",
		Short: "Reconcile a user's progress with the catalog",
		Long: "Without flags the whole tree is reconciled. With --topic only that topic " +
			"and its levels are; with --topic and --level only that level's streaks are.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			topicID, hasTopic, err := optionalID(cmd, "topic")
			if err != nil {
				return err
			}
			levelID, hasLevel, err := optionalID(cmd, "level")
			if err != nil {
				return err
			}
			if hasLevel && !hasTopic {
				return fmt.Errorf("--level requires --topic")
			}

			var updated *progress.UserEntity
			if !hasTopic {
				updated, err = s.app.Refresh.RefreshOne(ctx, userID)
			} else {
				user, ferr := s.app.Users.FindByID(ctx, userID)
				if ferr != nil {
					return ferr
				}
				if hasLevel {
					updated, err = s.app.Progress.RefreshLevelProgress(ctx, user, topicID, levelID)
				} else {
					updated, err = s.app.Progress.RefreshTopicProgress(ctx, user, topicID)
				}
			}
			if err != nil {
				if shared.IsConflict(err) {
					return fmt.Errorf("%w (user changed concurrently, run again)", err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s refreshed, version %d\n", updated.ID, updated.Version)
			return nil
		},
	}
	cmd.Flags().String("topic", "", "Only reconcile this topic")
	cmd.Flags().String("level", "", "Only reconcile this level (requires --topic)")
	return cmd
}

func newUserStreakCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak <user>",
		Short: "Print a streak; omitted flags default to the user's current position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}

			var q progress.StreakQuery
			for flag, opt := range map[string]*progress.Option[uuid.UUID]{
				"topic":     &q.Topic,
				"level":     &q.Level,
				"generator": &q.Generator,
			} {
				id, ok, err := optionalID(cmd, flag)
				if err != nil {
					return err
				}
				if ok {
					*opt = progress.Use(id)
				}
			}

			user, err := s.app.Users.FindByID(cmd.Context(), userID)
			if err != nil {
				return err
			}

			streak, err := s.app.Progress.CurrentStreak(user, q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), streak)
			return nil
		},
	}
	cmd.Flags().String("topic", "", "Topic id (default: current topic)")
	cmd.Flags().String("level", "", "Level id (default: current level)")
	cmd.Flags().String("generator", "", "Generator id (default: parent generator of the current task)")
	return cmd
}
