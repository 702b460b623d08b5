package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// RecentCommand creates the recent command
func RecentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recent searches",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of searches to show (defaults to search.recent_limit)",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Forget all recent searches",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showRecent(ctx, os.Stdout, c.String("config"), c.Int("limit"), c.Bool("clear"))
		},
	}
}

func showRecent(ctx context.Context, w io.Writer, configPath string, limit int, clear bool) error {
	a, err := newApp(ctx, configPath, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if clear {
		if err := a.history.Clear(ctx); err != nil {
			return fmt.Errorf("clearing recent searches: %w", err)
		}
		fmt.Fprintln(w, "Recent searches cleared")
		return nil
	}

	if limit <= 0 {
		limit = a.cfg.Search.RecentLimit
	}
	recent, err := a.history.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing recent searches: %w", err)
	}
	if len(recent) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No recent searches"))
		return nil
	}
	for i, q := range recent {
		fmt.Fprintf(w, "%2d. %s\n", i+1, q)
	}
	return nil
}
