package catalog

import (
	"encoding/json"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

// FromRecords builds a catalog out of raw API records. Records that do not fit
// the typed model are skipped and counted.
func FromRecords(categories, merchants []search.Record) (*Catalog, int) {
	logger := log.ForService("catalog")
	c := &Catalog{}
	skipped := 0

	for _, rec := range categories {
		var cat Category
		if err := convert(rec, &cat); err != nil || cat.Name == "" {
			logger.Debugf("skipping category record: %v", err)
			skipped++
			continue
		}
		c.Categories = append(c.Categories, cat)
	}

	for _, rec := range merchants {
		var m Merchant
		if err := convert(rec, &m); err != nil || m.Name == "" || m.ID == "" {
			logger.Debugf("skipping merchant record: %v", err)
			skipped++
			continue
		}
		c.Merchants = append(c.Merchants, m)
	}

	return c, skipped
}

// BranchesFromRecords converts raw branch records. Records without a name or
// that do not fit the typed model are skipped and counted.
func BranchesFromRecords(recs []search.Record) ([]Branch, int) {
	logger := log.ForService("catalog")
	branches := make([]Branch, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		var b Branch
		if err := convert(rec, &b); err != nil || b.Name == "" {
			logger.Debugf("skipping branch record: %v", err)
			skipped++
			continue
		}
		branches = append(branches, b)
	}
	return branches, skipped
}

func convert(rec search.Record, v any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
