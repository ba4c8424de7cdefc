// Package cmd implements the askdb command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/errors"
)

// NewRootCommand builds the askdb command tree
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "askdb",
		Usage: "Ask questions about a SQLite database in plain English",
		Description: `askdb translates a natural-language question into SQLite SQL, checks that the
query is a read-only SELECT with a row cap, runs it against the dataset and
prints the rows. A hosted or local language model is consulted when one is
configured; otherwise a built-in set of question patterns is used.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "path to the SQLite dataset",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
			&cli.IntFlag{
				Name:  "max-rows",
				Usage: "row cap appended to queries without a LIMIT",
			},
		},
		Commands: []*cli.Command{
			AskCommand(),
			SQLCommand(),
			SchemaCommand(),
			HistoryCommand(),
			CacheCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the command line and prints any error to stderr
func Execute(ctx context.Context, args []string) error {
	err := NewRootCommand().Run(ctx, args)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	for _, suggestion := range errors.SuggestionsOf(err) {
		fmt.Fprintf(w, "  - %s\n", suggestion)
	}
}
