package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quiz-hub/level-manager/config"
	"github.com/quiz-hub/level-manager/internal/bootstrap"
)

// session carries the application wired for one command invocation.
type session struct {
	app *bootstrap.Container
}

func newRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Operate the quiz level manager",
		Long:          "progressctl manages the quiz catalog and inspects, creates and reconciles user progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
				if err := os.Setenv("ENV_FILE", envFile); err != nil {
					return err
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := bootstrap.NewLogger(cfg, cmd.ErrOrStderr())

			app, err := bootstrap.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			s.app = app
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.app != nil {
				s.app.Close()
			}
		},
	}

	root.PersistentFlags().String("env-file", "", "Path to an env file (overrides ENV_FILE, default .env)")

	root.AddCommand(
		newMigrateCmd(s),
		newSeedCmd(s),
		newUserCmd(s),
		newNextCmd(s),
		newRefreshAllCmd(s),
		newCatalogCmd(s),
	)
	return root
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}

// optionalID parses a flag that may be left empty.
func optionalID(cmd *cobra.Command, flag string) (uuid.UUID, bool, error) {
	raw, _ := cmd.Flags().GetString(flag)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := parseID(flag, raw)
	return id, err == nil, err
}
