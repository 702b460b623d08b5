package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	body, err := Decode(strings.NewReader(s))
	if err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return body
}

func TestNormalizeDropsRecordsWithoutTitle(t *testing.T) {
	body := []any{map[string]any{}, map[string]any{"title": "X"}}

	results := Normalize(body)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Title != "X" {
		t.Errorf("title = %q", results[0].Title)
	}
}

func TestNormalizeSkipsMalformedRecords(t *testing.T) {
	body := mustDecode(t, `[42, "str", null, [], {"name": "   "}, {"name": 5}, {"name": " Kept "}]`)

	results := Normalize(body)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(results), results)
	}
	if results[0].Title != "Kept" {
		t.Errorf("title = %q, want trimmed %q", results[0].Title, "Kept")
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	body := mustDecode(t, `{"merchants":[{"name":"A","address":"1 Road, Ahmedabad"},{"name":"B"}],"categories":[{"name":"Food"}]}`)

	first := Normalize(body)
	second := Normalize(body)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalizing twice differs (-first +second):\n%s", diff)
	}
	for _, r := range first {
		if r.ID == "" {
			t.Errorf("result %q has no id", r.Title)
		}
	}
}

func TestNormalizeShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantShape Shape
		want      []string // "type:title"
	}{
		{
			name:      "bare array",
			body:      `[{"name":"Café Ahmedabad","address":"123 SG Highway"},{"title":"Food","slug":"food"}]`,
			wantShape: ShapeArray,
			want:      []string{"merchant:Café Ahmedabad", "category:Food"},
		},
		{
			name:      "paginated results",
			body:      `{"count":1,"next":null,"results":[{"label":"Satellite","city":"Ahmedabad"}]}`,
			wantShape: ShapeResults,
			want:      []string{"location:Satellite"},
		},
		{
			name:      "keyed collections concatenated in key order",
			body:      `{"data":[{"name":"D"}],"categories":[{"name":"C"}],"merchants":[{"name":"M"}],"stores":[{"name":"S"}]}`,
			wantShape: ShapeKeyed,
			want:      []string{"merchant:M", "category:C", "merchant:S", "merchant:D"},
		},
		{
			name:      "single record",
			body:      `{"id":9,"title":"Only One","type":"Category"}`,
			wantShape: ShapeSingle,
			want:      []string{"category:Only One"},
		},
		{
			name:      "nested objects sorted by key",
			body:      `{"zeta":{"name":"Z","area":"Bodakdev"},"alpha":{"title":"A"},"meta":{"total":3},"flag":true}`,
			wantShape: ShapeNested,
			want:      []string{"merchant:A", "location:Z"},
		},
		{
			name:      "first present shape wins even when empty",
			body:      `{"results":[],"merchants":[{"name":"Ignored"}]}`,
			wantShape: ShapeResults,
			want:      []string{},
		},
		{
			name:      "unknown",
			body:      `{"status":"ok","total":0}`,
			wantShape: ShapeUnknown,
			want:      []string{},
		},
		{
			name:      "scalar",
			body:      `"nothing here"`,
			wantShape: ShapeUnknown,
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, shape, err := NormalizeBytes([]byte(tt.body))
			if err != nil {
				t.Fatalf("NormalizeBytes: %v", err)
			}
			if shape != tt.wantShape {
				t.Errorf("shape = %s, want %s", shape, tt.wantShape)
			}
			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, string(r.Type)+":"+r.Title)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeBytesRejectsInvalidJSON(t *testing.T) {
	bodies := []string{
		`{"results": [`,
		`{"title":"Joe's Cafe","address":"x"}<html>oops</html>`,
		`[{"title":"A"}] [{"title":"B"}]`,
		``,
	}
	for _, body := range bodies {
		results, _, err := NormalizeBytes([]byte(body))
		if err == nil {
			t.Errorf("NormalizeBytes(%q) = %d results, want an error", body, len(results))
		}
	}
}

func TestNormalizeBytesAllowsTrailingWhitespace(t *testing.T) {
	results, shape, err := NormalizeBytes([]byte("{\"title\":\"Joe's Cafe\",\"address\":\"x\"}\n\t "))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || shape != ShapeSingle {
		t.Errorf("got %d results with shape %s", len(results), shape)
	}
}

func TestNormalizeKeepsNumericIDsVerbatim(t *testing.T) {
	results, _, err := NormalizeBytes([]byte(`[{"id":12345678901234567890,"name":"Big"},{"id":0,"name":"Zero"},{"id":"  m-7 ","name":"Str"}]`))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"12345678901234567890", "0", "m-7"}
	for i, r := range results {
		if r.ID != want[i] {
			t.Errorf("result %d id = %q, want %q", i, r.ID, want[i])
		}
	}
}

func TestTransformMerchantByFields(t *testing.T) {
	body := mustDecode(t, `{"id":1,"name":"Joe's Cafe","address":"12 Main St","rating":4.2}`)

	r, ok := TransformItem(body, 0, "")
	if !ok {
		t.Fatal("record dropped")
	}
	want := SearchResult{
		ID:       "1",
		Title:    "Joe's Cafe",
		Subtitle: "Merchant in 12 Main St",
		Type:     TypeMerchant,
		URL:      "/merchant/1",
		Icon:     IconStore,
	}
	if diff := cmp.Diff(want, r, cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "Data"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if r.Data["rating"] != json.Number("4.2") {
		t.Errorf("data not preserved: %#v", r.Data)
	}
}

func TestTransformCategoryBySlug(t *testing.T) {
	body := mustDecode(t, `{"id":2,"name":"Food","slug":"food","description":"All about food"}`)

	r, ok := TransformItem(body, 0, "")
	if !ok {
		t.Fatal("record dropped")
	}
	if r.Type != TypeCategory {
		t.Errorf("type = %s, want category", r.Type)
	}
	if r.Subtitle != "Category - All about food" {
		t.Errorf("subtitle = %q", r.Subtitle)
	}
	if r.Icon != IconCategory {
		t.Errorf("icon = %q", r.Icon)
	}
	if r.URL != "/category/food" {
		t.Errorf("url = %q", r.URL)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		record   string
		context  string
		want     Type
		wantRule string
	}{
		{"explicit category wins over fields", `{"type":"CATEGORY","address":"x"}`, "merchants", TypeCategory, "explicit-category"},
		{"explicit merchant", `{"type":"merchant","slug":"x"}`, "", TypeMerchant, "explicit-merchant"},
		{"area is a location", `{"type":"Area"}`, "", TypeLocation, "explicit-location"},
		{"place is a location", `{"type":"place"}`, "", TypeLocation, "explicit-location"},
		{"unknown explicit type falls through", `{"type":"discount","city":"Ahmedabad"}`, "", TypeLocation, "location-fields"},
		{"categories context", `{"address":"x"}`, "categories", TypeCategory, "context-category"},
		{"shops context", `{"slug":"x"}`, "shops", TypeMerchant, "context-merchant"},
		{"data context has no meaning", `{"slug":"x"}`, "data", TypeCategory, "category-fields"},
		{"category_id", `{"category_id":3,"address":"x"}`, "", TypeCategory, "category-fields"},
		{"is_category false is ignored", `{"is_category":false}`, "", TypeMerchant, "default"},
		{"slug with phone is a merchant", `{"slug":"x","phone":"123"}`, "", TypeMerchant, "merchant-fields"},
		{"zero rating is not a merchant field", `{"rating":0,"city":"Ahmedabad"}`, "", TypeLocation, "location-fields"},
		{"branch_count", `{"branch_count":2}`, "", TypeMerchant, "merchant-fields"},
		{"coordinates", `{"coordinates":{"latitude":1}}`, "", TypeLocation, "location-fields"},
		{"nothing matches", `{"name":"x"}`, "", TypeMerchant, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := asRecord(mustDecode(t, tt.record))
			if !ok {
				t.Fatal("not an object")
			}
			got, rule := InferType(rec, tt.context)
			if got != tt.want || rule != tt.wantRule {
				t.Errorf("InferType = %s (%s), want %s (%s)", got, rule, tt.want, tt.wantRule)
			}
		})
	}
}

func TestSubtitlesAndIcons(t *testing.T) {
	tests := []struct {
		name         string
		record       string
		wantSubtitle string
		wantIcon     string
	}{
		{"bare category", `{"name":"Food","type":"category"}`, "Category", IconCategory},
		{"category icon from record", `{"name":"Food","type":"category","icon":"restaurant"}`, "Category", "restaurant"},
		{
			"long description is cut at 40 runes",
			`{"name":"Food","type":"category","description":"Exclusive dining discounts at top restaurants in Ahmedabad"}`,
			"Category - Exclusive dining discounts at top restau...", IconCategory,
		},
		{
			"cut counts runes not bytes",
			`{"name":"Cafe","type":"category","description":"` + strings.Repeat("é", 41) + `"}`,
			"Category - " + strings.Repeat("é", 40) + "...", IconCategory,
		},
		{"merchant category name", `{"name":"M","category_name":"Restaurants","discount":"10%"}`, "Restaurants", IconStore},
		{"merchant discount", `{"name":"M","discount":"10% off","address":"1 Road, City"}`, "Merchant - 10% off", IconStore},
		{"merchant address", `{"name":"M","address":" 45 CG Road , Ahmedabad"}`, "Merchant in 45 CG Road", IconStore},
		{"plain merchant", `{"name":"M"}`, "Merchant", IconStore},
		{"location with city", `{"name":"Satellite","area":"Satellite","city":"Ahmedabad"}`, "Location in Ahmedabad", IconLocation},
		{"location without city", `{"name":"Satellite","type":"location"}`, "Location", IconLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := TransformItem(mustDecode(t, tt.record), 0, "")
			if !ok {
				t.Fatal("record dropped")
			}
			if r.Subtitle != tt.wantSubtitle {
				t.Errorf("subtitle = %q, want %q", r.Subtitle, tt.wantSubtitle)
			}
			if r.Icon != tt.wantIcon {
				t.Errorf("icon = %q, want %q", r.Icon, tt.wantIcon)
			}
		})
	}
}

func TestResultURL(t *testing.T) {
	tests := []struct {
		record string
		want   string
	}{
		{`{"name":"M","id":4,"url":"https://example.com/m/4"}`, "https://example.com/m/4"},
		{`{"name":"M","id":4,"link":"/business/4"}`, "/business/4"},
		{`{"name":"Food","type":"category","id":3}`, "/category/3"},
		{`{"name":"Food","type":"category","id":3,"slug":"eatery"}`, "/category/eatery"},
		{`{"name":"M","id":"m1"}`, "/merchant/m1"},
		{`{"name":"M"}`, ""},
		{`{"name":"Vastrapur","type":"location","id":5}`, ""},
	}

	for _, tt := range tests {
		r, ok := TransformItem(mustDecode(t, tt.record), 0, "")
		if !ok {
			t.Fatalf("%s dropped", tt.record)
		}
		if r.URL != tt.want {
			t.Errorf("%s: url = %q, want %q", tt.record, r.URL, tt.want)
		}
	}
}

func TestSyntheticID(t *testing.T) {
	re := regexp.MustCompile(`^search-3-[0-9a-f]{8}$`)
	id := SyntheticID(TypeMerchant, "Café", 3)
	if !re.MatchString(id) {
		t.Fatalf("id %q does not match %s", id, re)
	}
	if again := SyntheticID(TypeMerchant, "Café", 3); again != id {
		t.Errorf("ids differ: %q vs %q", id, again)
	}
	if other := SyntheticID(TypeCategory, "Café", 3); other == id {
		t.Errorf("type is not part of the id")
	}
}

func TestDedupe(t *testing.T) {
	in := []SearchResult{
		{ID: "1", Type: TypeMerchant, Title: "first"},
		{ID: "1", Type: TypeCategory, Title: "category"},
		{ID: "1", Type: TypeMerchant, Title: "second"},
	}
	got := Dedupe(in)
	if len(got) != 2 || got[0].Title != "first" || got[1].Title != "category" {
		t.Errorf("Dedupe = %+v", got)
	}
}

func ExampleNormalize() {
	body, _ := Decode(strings.NewReader(`{"results":[{"id":7,"name":"Café Ahmedabad","discount":"15% off on total bill"},{"title":"  "}]}`))
	for _, r := range Normalize(body) {
		fmt.Println(r.ID, r.Type, r.Title, "|", r.Subtitle, "|", r.URL)
	}
	// Output:
	// 7 merchant Café Ahmedabad | Merchant - 15% off on total bill | /merchant/7
}

func TestTransformAllUsesListingContext(t *testing.T) {
	records := []Record{
		{"id": "7", "name": "Spice Garden"},
		{"id": "8"},
		{"id": "9", "title": "Chai Point"},
	}
	results := TransformAll(records, "merchants")
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Type != TypeMerchant {
			t.Errorf("%s: type = %s, want merchant", r.Title, r.Type)
		}
	}
}
