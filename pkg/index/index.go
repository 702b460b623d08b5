// Package index is the local fallback used when the directory API returns
// nothing. It is built once from a catalog and never mutated afterwards, so
// any number of goroutines may search it concurrently.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/panchamjain/suvidha/pkg/catalog"
	"github.com/panchamjain/suvidha/pkg/search"
)

const (
	// DefaultThreshold is the worst score still considered a match.
	DefaultThreshold = 0.4
	MaxResults       = 8
)

type entry struct {
	result search.SearchResult
	// folded title and subtitle
	fields [2]string
}

type Index struct {
	entries    []entry
	source     fieldSource
	threshold  float64
	maxResults int
}

type Option func(*Index)

// WithThreshold sets the worst accepted score, between 0 and 1.
func WithThreshold(t float64) Option {
	return func(ix *Index) {
		if t > 0 && t <= 1 {
			ix.threshold = t
		}
	}
}

func WithMaxResults(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.maxResults = n
		}
	}
}

// FromCatalog indexes every entry of c.
func FromCatalog(c *catalog.Catalog, opts ...Option) *Index {
	return Build(c.Categories, c.Merchants, opts...)
}

// Build indexes categories, merchants, the distinct areas found in merchant
// addresses and the distinct discount offers.
func Build(categories []catalog.Category, merchants []catalog.Merchant, opts ...Option) *Index {
	ix := &Index{threshold: DefaultThreshold, maxResults: MaxResults}
	for _, opt := range opts {
		opt(ix)
	}

	lookup := &catalog.Catalog{Categories: categories}
	var results []search.SearchResult

	for i, cat := range categories {
		rec, err := catalog.Record(cat)
		if err != nil {
			continue
		}
		if r, ok := search.TransformItem(rec, i, "categories"); ok {
			results = append(results, r)
		}
	}

	for i, m := range merchants {
		rec, err := catalog.Record(m)
		if err != nil {
			continue
		}
		if cat, ok := lookup.CategoryOf(m); ok {
			rec["category_name"] = cat.Name
			rec["category_slug"] = cat.Slug
		}
		if r, ok := search.TransformItem(rec, len(categories)+i, "merchants"); ok {
			results = append(results, r)
		}
	}

	results = append(results, locations(merchants)...)
	results = append(results, discounts(merchants)...)

	ix.entries = make([]entry, len(results))
	ix.source = make(fieldSource, 0, 2*len(results))
	for i, r := range results {
		e := entry{result: r, fields: [2]string{search.Fold(r.Title), search.Fold(r.Subtitle)}}
		ix.entries[i] = e
		ix.source = append(ix.source, e.fields[0], e.fields[1])
	}
	return ix
}

// locations derives one entry per distinct area, taken from the first
// segment of merchant addresses. The city is the last segment.
func locations(merchants []catalog.Merchant) []search.SearchResult {
	seen := make(map[string]bool)
	var out []search.SearchResult
	for _, m := range merchants {
		parts := strings.Split(m.Address, ",")
		area := strings.TrimSpace(parts[0])
		key := search.Slugify(area)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		rec := search.Record{
			"id":   "location-" + key,
			"name": area,
			"type": string(search.TypeLocation),
		}
		if len(parts) > 1 {
			if city := strings.TrimSpace(parts[len(parts)-1]); city != "" {
				rec["city"] = city
			}
		}
		if r, ok := search.TransformItem(rec, 0, ""); ok {
			out = append(out, r)
		}
	}
	return out
}

// discounts derives one entry per distinct discount label.
func discounts(merchants []catalog.Merchant) []search.SearchResult {
	seen := make(map[string]bool)
	var out []search.SearchResult
	for _, m := range merchants {
		label := strings.TrimSpace(m.Discount)
		key := search.Fold(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, search.SearchResult{
			ID:       fmt.Sprintf("discount-%d", len(out)+1),
			Title:    label,
			Subtitle: "Discount at " + m.Name,
			Type:     search.TypeDiscount,
			Icon:     search.IconDiscount,
			Data: search.Record{
				"discount":      label,
				"merchant_id":   string(m.ID),
				"merchant_name": m.Name,
			},
		})
	}
	return out
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns a copy of every indexed result in index order.
func (ix *Index) Entries() []search.SearchResult {
	out := make([]search.SearchResult, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.result
	}
	return out
}

// Search returns the best matches for query, best first, at most
// MaxResults of them. A blank query matches nothing.
func (ix *Index) Search(query string) []search.Scored {
	q := search.Fold(query)
	if q == "" || len(ix.entries) == 0 {
		return []search.Scored{}
	}

	subseq := subsequenceScores(q, ix.source)

	var hits []search.Scored
	for i, e := range ix.entries {
		best := 1.0
		for f, field := range e.fields {
			s := fieldScore(q, field)
			if sub, ok := subseq[2*i+f]; ok && sub < s {
				s = sub
			}
			if f == 1 {
				s += subtitlePenalty
			}
			if s < best {
				best = s
			}
		}
		if best <= ix.threshold {
			hits = append(hits, search.Scored{Result: e.result, Score: best})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score < hits[b].Score
		}
		if hits[a].Result.Title != hits[b].Result.Title {
			return hits[a].Result.Title < hits[b].Result.Title
		}
		return hits[a].Result.ID < hits[b].Result.ID
	})

	if len(hits) > ix.maxResults {
		hits = hits[:ix.maxResults]
	}
	if hits == nil {
		hits = []search.Scored{}
	}
	return hits
}
