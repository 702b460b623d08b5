package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/panchamjain/suvidha/pkg/search"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search merchants, categories, locations and discounts",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the result as JSON",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print the raw API response, its detected shape and the normalized results",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Search the local catalog only",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the search",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return fmt.Errorf("a search query is required")
			}
			opts := searchOptions{
				JSON:      c.Bool("json"),
				Raw:       c.Bool("raw"),
				Offline:   c.Bool("offline"),
				NoHistory: c.Bool("no-history"),
			}
			return searchData(ctx, os.Stdout, c.String("config"), query, opts)
		},
	}
}

type searchOptions struct {
	JSON      bool
	Raw       bool
	Offline   bool
	NoHistory bool
}

func searchData(ctx context.Context, w io.Writer, configPath, query string, opts searchOptions) error {
	a, err := newApp(ctx, configPath, appOptions{history: !opts.NoHistory && !opts.Raw})
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Raw {
		return rawSearch(ctx, w, a, query)
	}

	var out search.Outcome
	if opts.Offline {
		hits := a.index.Search(query)
		results := make([]search.SearchResult, len(hits))
		for i, h := range hits {
			results[i] = h.Result
		}
		out = search.Outcome{Query: query, Response: search.NewResponse(results), Source: search.SourceFallback}
		if out.Count == 0 {
			out.Source = search.SourceNone
		}
	} else {
		out = a.service.Search(ctx, query)
	}

	if a.history != nil {
		if err := a.history.Add(ctx, query); err != nil {
			a.logger.Warnf("saving recent search: %v", err)
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprint(w, formatOutcome(out))
	return nil
}

// rawSearch shows what the API actually returned and how it was read, to
// debug response shape changes.
func rawSearch(ctx context.Context, w io.Writer, a *app, query string) error {
	body, err := a.client.Raw(ctx, query)
	if err != nil {
		return fmt.Errorf("fetching raw response: %w", err)
	}

	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding raw response: %w", err)
	}
	results, shape := search.NormalizeShape(body)

	fmt.Fprintln(w, headerStyle.Render("Raw response"))
	fmt.Fprintln(w, string(pretty))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Detected shape:"), shape)
	fmt.Fprintln(w)
	for i, r := range results {
		fmt.Fprint(w, formatResult(i+1, r))
	}
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d normalized results", len(results))))
	return nil
}
