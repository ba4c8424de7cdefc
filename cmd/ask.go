package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/formatter"
	"github.com/kyleking/askdb/internal/query"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format: table, csv, json or markdown",
		Value:   string(formatter.FormatTable),
	}
}

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:  "ask",
		Usage: "Answer a question about the dataset",
		Description: `Translate the question into SQL, run it and print the rows.

Examples:
  askdb ask "Show me the top 3 products by revenue"
  askdb ask --no-llm "How many orders last month?"
  askdb ask -f csv "List total revenue by month for 2024"`,
		ArgsUsage: " <question...>",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{
				Name:  "no-llm",
				Usage: "use only the built-in question patterns",
			},
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "print the SQL before the result",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return errors.New(errors.ErrTypeValidation, "a question is required").
					WithSuggestion(`Try: askdb ask "How many customers are there?"`)
			}

			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			extra := map[string]any{}
			if cmd.Bool("no-llm") {
				extra["no-llm"] = true
			}

			cfg, err := loadConfig(cmd, extra)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var answer *query.Answer

			progress(providerReady(cfg.LLM), "Asking "+cfg.LLM.Provider+"...", func() {
				answer = a.engine.Ask(ctx, question)
			})

			return printAnswer(stdout(cmd), answer, format, cmd.Bool("show-sql"))
		},
	}
}

// printAnswer writes the SQL when requested or on failure, then the rows
func printAnswer(w io.Writer, answer *query.Answer, format formatter.OutputFormat, showSQL bool) error {
	if showSQL || answer.Err != nil {
		fmt.Fprintf(w, "-- source: %s\n%s\n\n", answer.Translation.Source, answer.SQL)
	}

	if answer.Err != nil {
		return answer.Err
	}

	return formatter.NewFormatter().FormatResult(w, answer.Result, format)
}

func SQLCommand() *cli.Command {
	return &cli.Command{
		Name:      "sql",
		Usage:     "Run a read-only SELECT statement",
		ArgsUsage: " <statement...>",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "print the guarded SQL before the result",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			statement := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if statement == "" {
				return errors.New(errors.ErrTypeValidation, "a SQL statement is required")
			}

			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd, map[string]any{"no-llm": true})
			if err != nil {
				return err
			}

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			return printAnswer(stdout(cmd), a.engine.Run(ctx, statement), format, cmd.Bool("show-sql"))
		},
	}
}
