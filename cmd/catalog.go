package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/panchamjain/suvidha/pkg/catalog"
	"github.com/panchamjain/suvidha/pkg/search"
)

// CatalogCommand creates the catalog command
func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Browse the merchant directory",
		Commands: []*cli.Command{
			{
				Name:  "categories",
				Usage: "List categories from the API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listCategories(ctx, os.Stdout, c.String("config"))
				},
			},
			{
				Name:      "merchants",
				Usage:     "List the merchants of a category from the API",
				ArgsUsage: "CATEGORY_SLUG",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listCategoryMerchants(ctx, os.Stdout, c.String("config"), c.Args().First())
				},
			},
			{
				Name:      "merchant",
				Usage:     "Show one merchant from the API",
				ArgsUsage: "ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showDetail(ctx, os.Stdout, c.String("config"), "merchant", c.Args().First())
				},
			},
			{
				Name:      "branches",
				Usage:     "List the branches of a merchant from the API",
				ArgsUsage: "MERCHANT_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listMerchantBranches(ctx, os.Stdout, c.String("config"), c.Args().First())
				},
			},
			{
				Name:      "category",
				Usage:     "Show one category from the API",
				ArgsUsage: "SLUG",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showDetail(ctx, os.Stdout, c.String("config"), "category", c.Args().First())
				},
			},
			{
				Name:  "local",
				Usage: "Summarize the catalog used for offline search",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showLocalCatalog(ctx, os.Stdout, c.String("config"))
				},
			},
			{
				Name:  "export",
				Usage: "Fetch the full catalog from the API and save it for offline search",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "File to write the catalog JSON to",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return exportCatalog(ctx, os.Stdout, c.String("config"), c.String("output"))
				},
			},
		},
	}
}

func listCategories(ctx context.Context, w io.Writer, configPath string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.client.Categories(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("📂 %d categories", len(categories))))
	for _, rec := range categories {
		line := resultStyle.Render(rec.String("name"))
		if slug := rec.String("slug"); slug != "" {
			line += "  " + metaStyle.Render(slug)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func listCategoryMerchants(ctx context.Context, w io.Writer, configPath, slug string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.client.CategoryMerchants(ctx, slug)
	if err != nil {
		return fmt.Errorf("listing merchants of %q: %w", slug, err)
	}
	results := search.TransformAll(list.Results, "merchants")
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("🏪 %s: %d merchants", slug, list.Count)))
	for i, r := range results {
		fmt.Fprint(w, formatResult(i+1, r))
	}
	return nil
}

func listMerchantBranches(ctx context.Context, w io.Writer, configPath, merchantID string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.client.MerchantBranches(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("listing branches of merchant %q: %w", merchantID, err)
	}
	branches, skipped := catalog.BranchesFromRecords(list.Results)
	if skipped > 0 {
		a.logger.Warnf("skipped %d unusable branch records", skipped)
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("📍 merchant %s: %d branches", merchantID, list.Count)))
	for i, b := range branches {
		line := fmt.Sprintf("%2d. %s", i+1, resultStyle.Render(b.Name))
		if b.IsMainBranch {
			line += " " + headerStyle.Render("main")
		}
		if b.Address != "" {
			line += "  " + metaStyle.Render(b.Address)
		}
		if b.Contact != "" {
			line += "  " + urlStyle.Render(b.Contact)
		}
		fmt.Fprintln(w, line)
		if hours := formatHours(b.OperatingHours); hours != "" {
			fmt.Fprintln(w, "    "+metaStyle.Render(hours))
		}
	}
	if list.Next != "" {
		fmt.Fprintln(w, metaStyle.Render("More branches are available from the API."))
	}
	return nil
}

func formatHours(h catalog.OperatingHours) string {
	var parts []string
	if h.Weekdays != "" {
		parts = append(parts, "weekdays "+h.Weekdays)
	}
	if h.Weekends != "" {
		parts = append(parts, "weekends "+h.Weekends)
	}
	return strings.Join(parts, ", ")
}

func showDetail(ctx context.Context, w io.Writer, configPath, kind, ref string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var rec search.Record
	switch kind {
	case "merchant":
		rec, err = a.client.Merchant(ctx, ref)
	default:
		rec, err = a.client.Category(ctx, ref)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func showLocalCatalog(ctx context.Context, w io.Writer, configPath string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	source := "bundled"
	if a.cfg.Catalog.Path != "" {
		source = a.cfg.Catalog.Path
	}
	counts := map[search.Type]int{}
	for _, e := range a.index.Entries() {
		counts[e.Type]++
	}

	fmt.Fprintln(w, titleStyle.Render("📚 Offline catalog"))
	fmt.Fprintf(w, "Source: %s\n", source)
	for _, t := range []search.Type{search.TypeCategory, search.TypeMerchant, search.TypeLocation, search.TypeDiscount} {
		fmt.Fprintf(w, "  %s %-9s %s\n", typeBadges[t], t, formatNumber(counts[t]))
	}
	return nil
}

func exportCatalog(ctx context.Context, w io.Writer, configPath, output string) error {
	a, err := newApp(ctx, configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.client.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetching categories: %w", err)
	}
	merchants, err := a.client.Merchants(ctx)
	if err != nil {
		return fmt.Errorf("fetching merchants: %w", err)
	}

	c, skipped := catalog.FromRecords(categories, merchants)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("fetched catalog is unusable: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}

	msg := fmt.Sprintf("Saved %d categories and %d merchants to %s", len(c.Categories), len(c.Merchants), output)
	if skipped > 0 {
		msg += fmt.Sprintf(" (%d records skipped)", skipped)
	}
	fmt.Fprintln(w, msg)
	if !strings.EqualFold(a.cfg.Catalog.Path, output) {
		fmt.Fprintln(w, metaStyle.Render("Set catalog.path in the config file to search it offline."))
	}
	return nil
}
