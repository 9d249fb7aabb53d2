package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quiz-hub/level-manager/internal/infrastructure/catalogfile"
)

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := s.app.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}

func newSeedCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored catalog with a YAML catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			topics, err := catalogfile.Load(path)
			if err != nil {
				return err
			}
			if err := s.app.SeedCatalog(cmd.Context(), topics); err != nil {
				return err
			}

			levels, generators := 0, 0
			for _, t := range topics {
				levels += len(t.Levels)
				for _, l := range t.Levels {
					generators += len(l.Generators)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d topic(s), %d level(s), %d generator(s)\n",
				len(topics), levels, generators)
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML catalog file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCatalogCmd(s *session) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the quiz catalog",
	}

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "check <topic> [level] [generator]",
		Short: "Report whether a topic, level or generator exists",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := s.app.Progress

			topicID, err := parseID("topic", args[0])
			if err != nil {
				return err
			}

			var (
				what   = "topic"
				exists bool
			)
			switch len(args) {
			case 1:
				exists, err = svc.TopicExists(ctx, topicID)
			case 2:
				levelID, perr := parseID("level", args[1])
				if perr != nil {
					return perr
				}
				what = "level"
				exists, err = svc.LevelExists(ctx, topicID, levelID)
			case 3:
				levelID, perr := parseID("level", args[1])
				if perr != nil {
					return perr
				}
				generatorID, perr := parseID("generator", args[2])
				if perr != nil {
					return perr
				}
				what = "generator"
				exists, err = svc.GeneratorExists(ctx, topicID, levelID, generatorID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %t\n", what, args[len(args)-1], exists)
			return nil
		},
	})

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the catalog tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topics, err := s.app.Catalog.ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range topics {
				fmt.Fprintf(out, "topic %s\n", t.ID)
				for _, l := range t.Levels {
					fmt.Fprintf(out, "  level %s (%d generators)\n", l.ID, len(l.Generators))
					for _, g := range l.Generators {
						fmt.Fprintf(out, "    generator %s\n", g.ID)
					}
				}
			}
			return nil
		},
	})

	return catalogCmd
}
