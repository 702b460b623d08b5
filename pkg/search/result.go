package search

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Type is the kind of entity a SearchResult points at.
type Type string

const (
	TypeCategory Type = "category"
	TypeMerchant Type = "merchant"
	TypeLocation Type = "location"
	TypeDiscount Type = "discount"
)

// Icons used for suggestions. They are symbolic names, not validated against
// any icon set.
const (
	IconCategory = "category"
	IconStore    = "store"
	IconLocation = "location-on"
	IconDiscount = "local-offer"
)

// Record is an untyped JSON object as decoded from the API or the catalog.
// Numbers are json.Number so ids survive verbatim.
type Record map[string]any

// SearchResult is the canonical suggestion shape.
type SearchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Type     Type   `json:"type"`
	URL      string `json:"url,omitempty"`
	Icon     string `json:"icon"`
	// Data is the original record, untouched.
	Data Record `json:"data"`
}

// Response is the result of one remote search call.
type Response struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// NewResponse wraps results, never returning a nil slice so the JSON form is
// always an array.
func NewResponse(results []SearchResult) Response {
	if results == nil {
		results = []SearchResult{}
	}
	return Response{Results: results, Count: len(results)}
}

// Scored is a fallback index hit. Lower scores are better, 0 is a perfect match.
type Scored struct {
	Result SearchResult `json:"result"`
	Score  float64      `json:"score"`
}

// Dedupe drops results whose type and id were already seen, keeping the first.
func Dedupe(results []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		key := string(r.Type) + "\x00" + r.ID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func asRecord(v any) (Record, bool) {
	switch obj := v.(type) {
	case Record:
		return obj, obj != nil
	case map[string]any:
		return Record(obj), obj != nil
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []Record:
		out := make([]any, len(arr))
		for i, r := range arr {
			out[i] = r
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(arr))
		for i, r := range arr {
			out[i] = r
		}
		return out, true
	}
	return nil, false
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Truthy applies JavaScript truthiness to the value under key, which is what
// the API's field-presence conventions assume.
func (r Record) Truthy(key string) bool {
	return truthy(r[key])
}

// String returns the value under key as a trimmed string. Numbers are
// formatted without exponent, everything else that is not a string yields "".
func (r Record) String(key string) string {
	return stringify(r[key])
}

// Object returns the nested object under key, if any.
func (r Record) Object(key string) (Record, bool) {
	return asRecord(r[key])
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}
	return ""
}
