package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNextCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "next <user> <topic> <level>",
		Short: "Pick the next task generator for a user on a level",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			topicID, err := parseID("topic", args[1])
			if err != nil {
				return err
			}
			levelID, err := parseID("level", args[2])
			if err != nil {
				return err
			}

			user, err := s.app.Progress.FindOrCreateUser(ctx, userID)
			if err != nil {
				return err
			}

			generator, err := s.app.Progress.SelectNextGenerator(ctx, user, topicID, levelID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), generator.ID)
			return nil
		},
	}
}

func newRefreshAllCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-all",
		Short: "Reconcile every stored user once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runErr := s.app.Refresh.Run(cmd.Context())

			if st := s.app.Refresh.LastStats(); st != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "total %d refreshed %d skipped %d failed %d conflicts %d in %s\n",
					st.TotalUsers, st.Refreshed, st.Skipped, st.Failed, st.ConflictHits, st.Duration)
				for _, e := range st.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", e.UserID, e.Err)
				}
			}
			return runErr
		},
	}
}
