package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/formatter"
	"github.com/kyleking/askdb/internal/storage"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "List recently asked questions",
		Description: `Show the questions recorded in the local history database, newest first.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "number of entries to show",
				Value:   20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withHistory(ctx, cmd, func(repo storage.Repository) error {
				entries, err := repo.List(ctx, int(cmd.Int("limit")), 0)
				if err != nil {
					return err
				}

				return formatter.NewFormatter().FormatHistory(stdout(cmd), entries)
			})
		},
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Summarise the history by outcome",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withHistory(ctx, cmd, func(repo storage.Repository) error {
						stats, err := repo.Stats(ctx)
						if err != nil {
							return err
						}

						return formatter.NewFormatter().FormatHistoryStats(stdout(cmd), stats)
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every recorded question",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withHistory(ctx, cmd, func(repo storage.Repository) error {
						n, err := repo.Clear(ctx)
						if err != nil {
							return err
						}

						_, err = fmt.Fprintf(stdout(cmd), "Cleared %d history entries\n", n)

						return err
					})
				},
			},
		},
	}
}

func withHistory(ctx context.Context, cmd *cli.Command, fn func(repo storage.Repository) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	if !cfg.History.Enabled {
		return errors.New(errors.ErrTypeConfig, "history is disabled").
			WithSuggestion("Set ASKDB_HISTORY_ENABLED=true to record questions")
	}

	return runWithHistory(ctx, cfg.History, fn)
}

func runWithHistory(ctx context.Context, cfg config.HistoryConfig, fn func(repo storage.Repository) error) error {
	repo, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	return fn(repo)
}
