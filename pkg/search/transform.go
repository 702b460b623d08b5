package search

import (
	"strings"
	"unicode/utf8"
)

// titleFields are tried in order, the first non-blank string wins.
var titleFields = []string{
	"label", "title", "name", "business_name", "merchant_name",
	"shop_name", "store_name", "category_name",
}

const descriptionLimit = 40

// TypeRule maps a record to a result type when Match reports true.
type TypeRule struct {
	Name  string
	Type  Type
	Match func(rec Record, context string) bool
}

// TypeRules is evaluated top to bottom. Records matching none are merchants.
var TypeRules = []TypeRule{
	{Name: "explicit-category", Type: TypeCategory, Match: explicitType("category")},
	{Name: "explicit-merchant", Type: TypeMerchant, Match: explicitType("merchant")},
	{Name: "explicit-location", Type: TypeLocation, Match: explicitType("location", "area", "place")},
	{Name: "context-category", Type: TypeCategory, Match: contextIn("categories")},
	{Name: "context-merchant", Type: TypeMerchant, Match: contextIn("merchants", "businesses", "shops", "stores")},
	{Name: "category-fields", Type: TypeCategory, Match: hasCategoryFields},
	{Name: "merchant-fields", Type: TypeMerchant, Match: hasAny(
		"address", "phone", "contact", "branches", "branch_count",
		"discount", "rating", "business_type", "merchant_id",
	)},
	{Name: "location-fields", Type: TypeLocation, Match: hasAny("area", "city", "location_type", "coordinates")},
}

func explicitType(literals ...string) func(Record, string) bool {
	return func(rec Record, _ string) bool {
		t, ok := rec["type"].(string)
		if !ok {
			return false
		}
		t = strings.TrimSpace(t)
		for _, l := range literals {
			if strings.EqualFold(t, l) {
				return true
			}
		}
		return false
	}
}

func contextIn(keys ...string) func(Record, string) bool {
	return func(_ Record, context string) bool {
		for _, k := range keys {
			if context == k {
				return true
			}
		}
		return false
	}
}

func hasAny(fields ...string) func(Record, string) bool {
	return func(rec Record, _ string) bool {
		for _, f := range fields {
			if rec.Truthy(f) {
				return true
			}
		}
		return false
	}
}

func hasCategoryFields(rec Record, _ string) bool {
	if rec.Truthy("category_id") || rec.Truthy("is_category") {
		return true
	}
	return rec.Truthy("slug") && !rec.Truthy("address") && !rec.Truthy("phone") && !rec.Truthy("contact")
}

// InferType runs TypeRules against rec and reports the matching rule name.
func InferType(rec Record, context string) (Type, string) {
	for _, rule := range TypeRules {
		if rule.Match(rec, context) {
			return rule.Type, rule.Name
		}
	}
	return TypeMerchant, "default"
}

// Title returns the first non-blank title field of rec.
func Title(rec Record) string {
	for _, f := range titleFields {
		if s, ok := rec[f].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// TransformItem maps one raw record into a SearchResult. The boolean is false
// when the record is not an object or has no usable title.
func TransformItem(record any, index int, context string) (SearchResult, bool) {
	rec, ok := asRecord(record)
	if !ok {
		return SearchResult{}, false
	}
	title := Title(rec)
	if title == "" {
		return SearchResult{}, false
	}

	typ, _ := InferType(rec, context)
	subtitle, icon := describe(rec, typ)

	return SearchResult{
		ID:       resultID(rec, typ, title, index),
		Title:    title,
		Subtitle: subtitle,
		Type:     typ,
		URL:      resultURL(rec, typ),
		Icon:     icon,
		Data:     rec,
	}, true
}

// TransformAll maps records from a listing endpoint, dropping the unusable
// ones.
func TransformAll(records []Record, context string) []SearchResult {
	results := make([]SearchResult, 0, len(records))
	for i, rec := range records {
		if r, ok := TransformItem(rec, i, context); ok {
			results = append(results, r)
		}
	}
	return results
}

func describe(rec Record, typ Type) (subtitle, icon string) {
	switch typ {
	case TypeCategory:
		icon = rec.String("icon")
		if icon == "" {
			icon = IconCategory
		}
		if desc := rec.String("description"); desc != "" {
			return "Category - " + truncate(desc, descriptionLimit), icon
		}
		return "Category", icon
	case TypeLocation:
		if city := rec.String("city"); city != "" {
			return "Location in " + city, IconLocation
		}
		return "Location", IconLocation
	case TypeDiscount:
		return "Discount", IconDiscount
	}

	if name := rec.String("category_name"); name != "" {
		return name, IconStore
	}
	if discount := rec.String("discount"); discount != "" {
		return "Merchant - " + discount, IconStore
	}
	if area := firstSegment(rec.String("address")); area != "" {
		return "Merchant in " + area, IconStore
	}
	return "Merchant", IconStore
}

func resultURL(rec Record, typ Type) string {
	if u := rec.String("url"); u != "" {
		return u
	}
	if u := rec.String("link"); u != "" {
		return u
	}
	switch typ {
	case TypeCategory:
		ref := rec.String("slug")
		if ref == "" {
			ref = rec.String("id")
		}
		if ref != "" {
			return "/category/" + ref
		}
	case TypeMerchant:
		if id := rec.String("id"); id != "" {
			return "/merchant/" + id
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// firstSegment returns the trimmed text before the first comma.
func firstSegment(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
