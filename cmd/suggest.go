package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/panchamjain/suvidha/pkg/suggest"
)

// SuggestCommand creates the suggest command
func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Type-ahead suggestions: each input line is treated as the search box contents",
		Description: `Lines read from stdin update the search box. Suggestions appear once
typing pauses for the debounce interval.

  !N      select suggestion N
  !!TEXT  submit TEXT as a full search
  ?       list recent searches`,
		Action: func(ctx context.Context, c *cli.Command) error {
			return suggestLoop(ctx, os.Stdin, os.Stdout, c.String("config"))
		},
	}
}

func suggestLoop(ctx context.Context, in io.Reader, out io.Writer, configPath string) error {
	a, err := newApp(ctx, configPath, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	o := suggest.New(a.service,
		suggest.WithDebounce(a.cfg.Search.Debounce.Duration),
		suggest.WithMaxSuggestions(a.cfg.Search.MaxSuggestions),
		suggest.WithRecents(a.history),
	)

	_, events := o.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			switch ev.Type {
			case suggest.EventSnapshot:
				fmt.Fprint(out, formatSnapshot(*ev.Snapshot))
			case suggest.EventNavigate:
				fmt.Fprintln(out, formatTarget(*ev.Target))
			}
		}
	}()
	defer func() {
		o.Close()
		<-printed
	}()

	if isTerminal() {
		fmt.Fprintln(out, metaStyle.Render("Type to search, !N to select, ? for recent searches, Ctrl+D to quit"))
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		switch {
		case line == "?":
			recent, err := o.Recent(ctx)
			if err != nil {
				return fmt.Errorf("listing recent searches: %w", err)
			}
			if len(recent) > a.cfg.Search.RecentLimit {
				recent = recent[:a.cfg.Search.RecentLimit]
			}
			fmt.Fprintln(out, headerStyle.Render("Recent searches"))
			for _, q := range recent {
				fmt.Fprintf(out, "  %s\n", q)
			}
		case strings.HasPrefix(line, "!!"):
			o.Submit(strings.TrimPrefix(line, "!!"))
		case strings.HasPrefix(line, "!"):
			n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
			snap := o.Snapshot()
			if err != nil || n < 1 || n > len(snap.Suggestions) {
				fmt.Fprintln(out, warnStyle.Render("no such suggestion: "+line[1:]))
				continue
			}
			o.Select(snap.Suggestions[n-1])
		default:
			o.Input(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Let the last input settle so piped input still prints its suggestions.
	settle(ctx, o, a.cfg.Search.Debounce.Duration+a.cfg.API.Timeout.Duration)
	return nil
}

func settle(ctx context.Context, o *suggest.Orchestrator, limit time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch o.Snapshot().State {
		case suggest.StateDebouncing, suggest.StateSearching:
		default:
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
