package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/panchamjain/suvidha/pkg/search"
)

var (
	// ErrSlugRequired is returned when a category endpoint is called without
	// a usable slug.
	ErrSlugRequired = errors.New("category slug is required")
	ErrIDRequired   = errors.New("id is required")
)

// maxPages bounds how many paginated merchant pages Merchants follows.
const maxPages = 50

// Page is one page of a listing in the API's paginated form.
type Page struct {
	Count    int             `json:"count"`
	Next     string          `json:"next,omitempty"`
	Previous string          `json:"previous,omitempty"`
	Results  []search.Record `json:"results"`
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context) ([]search.Record, error) {
	body, err := c.getJSON(ctx, c.baseURL+"/api/categories/")
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	if arr, ok := body.([]any); ok {
		return records(arr), nil
	}
	if obj, ok := body.(map[string]any); ok {
		for _, key := range []string{"results", "data", "categories"} {
			if arr, ok := obj[key].([]any); ok {
				return records(arr), nil
			}
		}
	}
	return nil, fmt.Errorf("fetching categories: %w", ErrUnrecognizedShape)
}

// CategoryMerchants lists the merchants of the category with the given slug.
// Payloads it cannot make sense of yield an empty list, not an error.
func (c *Client) CategoryMerchants(ctx context.Context, slug string) (Page, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || slug == "undefined" {
		return Page{}, ErrSlugRequired
	}

	body, err := c.getJSON(ctx, c.baseURL+"/api/categories/"+url.PathEscape(slug)+"/merchants/")
	if err != nil {
		return Page{}, fmt.Errorf("fetching merchants of %s: %w", slug, err)
	}

	list, ok := listPage(body, "data", "merchants")
	if !ok {
		c.logger.Warnf("unrecognized merchant list for category %s", slug)
		return Page{Results: []search.Record{}}, nil
	}
	return list, nil
}

// MerchantBranches lists the branches of the merchant with the given id.
// Like CategoryMerchants, payloads it cannot make sense of yield an empty
// list.
func (c *Client) MerchantBranches(ctx context.Context, id string) (Page, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "undefined" {
		return Page{}, fmt.Errorf("merchant %w", ErrIDRequired)
	}

	body, err := c.getJSON(ctx, c.baseURL+"/api/merchants/"+url.PathEscape(id)+"/branches/")
	if err != nil {
		return Page{}, fmt.Errorf("fetching branches of merchant %s: %w", id, err)
	}

	list, ok := listPage(body, "data", "branches")
	if !ok {
		c.logger.Warnf("unrecognized branch list for merchant %s", id)
		return Page{Results: []search.Record{}}, nil
	}
	return list, nil
}

// Merchants walks the paginated merchant listing.
func (c *Client) Merchants(ctx context.Context) ([]search.Record, error) {
	next := c.baseURL + "/api/merchants/"
	var all []search.Record
	for page := 0; next != "" && page < maxPages; page++ {
		body, err := c.getJSON(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("fetching merchants page %d: %w", page+1, err)
		}
		list, ok := listPage(body, "data", "merchants")
		if !ok {
			return nil, fmt.Errorf("fetching merchants page %d: %w", page+1, ErrUnrecognizedShape)
		}
		all = append(all, list.Results...)
		next = c.resolve(next, list.Next)
	}
	if next != "" {
		c.logger.Warnf("stopped after %d merchant pages", maxPages)
	}
	return all, nil
}

// Merchant fetches a single merchant by id.
func (c *Client) Merchant(ctx context.Context, id string) (search.Record, error) {
	return c.detail(ctx, "merchant", id)
}

// Category fetches a single category by slug.
func (c *Client) Category(ctx context.Context, slug string) (search.Record, error) {
	if slug == "" || slug == "undefined" {
		return nil, ErrSlugRequired
	}
	return c.detail(ctx, "category", slug)
}

func (c *Client) detail(ctx context.Context, kind, ref string) (search.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%s %w", kind, ErrIDRequired)
	}
	body, err := c.getJSON(ctx, c.baseURL+"/"+kind+"/"+url.PathEscape(ref)+"/")
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", kind, ref, err)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fetching %s %s: %w", kind, ref, ErrUnrecognizedShape)
	}
	return search.Record(obj), nil
}

// listPage recognizes the listing layouts the API has used: a bare array, a
// paginated results envelope, an array under one of keys, or a single record.
func listPage(body any, keys ...string) (Page, bool) {
	if arr, ok := body.([]any); ok {
		recs := records(arr)
		return Page{Count: len(recs), Results: recs}, true
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return Page{}, false
	}
	rec := search.Record(obj)

	if arr, ok := obj["results"].([]any); ok {
		recs := records(arr)
		count := len(recs)
		if n, err := countOf(rec); err == nil {
			count = n
		}
		return Page{
			Count:    count,
			Next:     rec.String("next"),
			Previous: rec.String("previous"),
			Results:  recs,
		}, true
	}

	for _, key := range keys {
		if arr, ok := obj[key].([]any); ok {
			recs := records(arr)
			return Page{
				Count:    len(recs),
				Next:     rec.String("next"),
				Previous: rec.String("previous"),
				Results:  recs,
			}, true
		}
	}

	if rec.Truthy("id") && rec.Truthy("name") {
		return Page{Count: 1, Results: []search.Record{rec}}, true
	}
	return Page{}, false
}

func countOf(rec search.Record) (int, error) {
	s := rec.String("count")
	if s == "" {
		return 0, errors.New("no count")
	}
	var n int
	if _, err := fmt.Sscan(s, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// resolve turns a pagination link into an absolute URL relative to the page
// it came from.
func (c *Client) resolve(current, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		c.logger.Warnf("ignoring invalid next link %q: %v", ref, err)
		return ""
	}
	return base.ResolveReference(u).String()
}

func records(arr []any) []search.Record {
	out := make([]search.Record, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, search.Record(obj))
		}
	}
	return out
}
