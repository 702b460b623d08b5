package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

// ResolveCommand creates the resolve command
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Show where selecting a suggestion would navigate to",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Suggestion URL, e.g. /merchant/42"},
			&cli.StringFlag{Name: "type", Usage: "Suggestion type (category, merchant, location, discount)"},
			&cli.StringFlag{Name: "id", Usage: "Suggestion id"},
			&cli.StringFlag{Name: "title", Usage: "Suggestion title"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			r := search.SearchResult{
				ID:    c.String("id"),
				Title: c.String("title"),
				Type:  search.Type(c.String("type")),
				URL:   c.String("url"),
				Data:  search.Record{},
			}
			return resolveSuggestion(os.Stdout, r)
		},
	}
}

func resolveSuggestion(w io.Writer, r search.SearchResult) error {
	if r.URL == "" && r.ID == "" && r.Title == "" {
		return fmt.Errorf("one of --url, --id or --title is required")
	}
	if r.ID != "" {
		r.Data["id"] = r.ID
	}
	fmt.Fprintln(w, formatTarget(suggest.Resolve(r)))
	return nil
}
