package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/executor"
	"github.com/kyleking/askdb/internal/formatter"
	"github.com/kyleking/askdb/internal/schema"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Print the dataset tables and columns",
		Description: `Show the schema that is handed to the language model, one table per section.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the schema as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			db, err := executor.OpenDataset(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := schema.Introspect(ctx, db)
			if err != nil {
				return err
			}

			f := formatter.NewFormatter()
			if cmd.Bool("json") {
				return f.FormatSchemaJSON(stdout(cmd), s)
			}

			return f.FormatSchema(stdout(cmd), s)
		},
	}
}
