package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/cache"
)

func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the provider answer cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cached answer count and size",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withCache(cmd, func(c *cache.FileCache) error {
						stats, err := c.GetStats(ctx)
						if err != nil {
							return err
						}

						w := stdout(cmd)
						fmt.Fprintf(w, "Directory: %s\n", c.Directory())
						fmt.Fprintf(w, "Entries: %d\n", stats.TotalEntries)
						_, err = fmt.Fprintf(w, "Size: %.2f KB\n", float64(stats.TotalSize)/1024)

						return err
					})
				},
			},
			{
				Name:  "cleanup",
				Usage: "Remove expired answers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withCache(cmd, func(c *cache.FileCache) error {
						n, err := c.Cleanup(ctx)
						if err != nil {
							return err
						}

						_, err = fmt.Fprintf(stdout(cmd), "Removed %d expired entries\n", n)

						return err
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Remove every cached answer",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withCache(cmd, func(c *cache.FileCache) error {
						if err := c.Clear(ctx); err != nil {
							return err
						}

						_, err := fmt.Fprintln(stdout(cmd), "Cache cleared")

						return err
					})
				},
			},
		},
	}
}

func withCache(cmd *cli.Command, fn func(c *cache.FileCache) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	c, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}

	return fn(c)
}
