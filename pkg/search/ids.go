package search

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.daysahmedabad.com/api/search/"))

// resultID keeps the record's own id when there is one and otherwise derives
// a stable one, so normalizing the same payload twice gives the same ids.
func resultID(rec Record, typ Type, title string, index int) string {
	if id := rec.String("id"); id != "" {
		return id
	}
	return SyntheticID(typ, title, index)
}

// SyntheticID returns "search-{index}-{8 hex}" derived from the inputs.
func SyntheticID(typ Type, title string, index int) string {
	u := uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s\x00%s\x00%d", typ, title, index)))
	return fmt.Sprintf("search-%d-%s", index, strings.ReplaceAll(u.String(), "-", "")[:8])
}
