package suggest

import (
	"net/url"
	"strings"

	"github.com/panchamjain/suvidha/pkg/search"
)

const (
	ScreenCategory       = "Category"
	ScreenMerchantDetail = "MerchantDetail"
	ScreenSearch         = "Search"
)

// Target is where selecting a suggestion leads.
type Target struct {
	Screen string            `json:"screen"`
	Params map[string]string `json:"params"`
}

// Resolve maps a suggestion to a navigation target. A recognizable URL wins
// over the result type and data.
func Resolve(r search.SearchResult) Target {
	if t, ok := targetFromURL(r.URL, r.Title); ok {
		return t
	}

	switch r.Type {
	case search.TypeCategory:
		ref := r.Data.String("slug")
		if ref == "" {
			ref = r.Data.String("id")
		}
		if ref == "" {
			ref = search.Slugify(r.Data.String("name"))
		}
		if ref == "" {
			ref = r.ID
		}
		return categoryTarget(ref, r.Title)
	case search.TypeMerchant:
		id := r.Data.String("id")
		if id == "" {
			id = r.ID
		}
		return merchantTarget(id)
	}
	return Target{Screen: ScreenSearch, Params: map[string]string{"query": r.Title}}
}

// targetFromURL recognizes /category/{x}, /merchant/{x} and /business/{x}
// anywhere in the path of an absolute or relative URL.
func targetFromURL(raw, title string) (Target, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		ref := segments[i+1]
		if ref == "" {
			continue
		}
		switch segments[i] {
		case "category":
			return categoryTarget(ref, title), true
		case "merchant", "business":
			return merchantTarget(ref), true
		}
	}
	return Target{}, false
}

func categoryTarget(ref, name string) Target {
	return Target{
		Screen: ScreenCategory,
		Params: map[string]string{"categoryId": ref, "categoryName": name},
	}
}

func merchantTarget(id string) Target {
	return Target{
		Screen: ScreenMerchantDetail,
		Params: map[string]string{"merchantId": id},
	}
}
