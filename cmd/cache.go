package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// CacheCommand creates the cache command
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the Redis search response cache",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Delete every cached search response",
				Action: func(ctx context.Context, c *cli.Command) error {
					return purgeCache(ctx, os.Stdout, c.String("config"))
				},
			},
		},
	}
}

func purgeCache(ctx context.Context, w io.Writer, configPath string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cache == nil {
		return fmt.Errorf("no reachable cache configured (set cache.redis_addr)")
	}
	n, err := a.cache.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	fmt.Fprintf(w, "Removed %d cached responses\n", n)
	return nil
}
