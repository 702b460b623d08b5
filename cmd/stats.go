package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show search history statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top",
				Usage: "Number of most frequent queries to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print statistics as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, os.Stdout, c.String("config"), c.Int("top"), c.Bool("json"))
		},
	}
}

func showStats(ctx context.Context, w io.Writer, configPath string, top int, asJSON bool) error {
	a, err := newApp(ctx, configPath, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.history.Stats(ctx, top)
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	formatStats(w, stats)
	fmt.Fprintf(w, "\nFallback index: %s entries\n", formatNumber(a.index.Len()))
	return nil
}
