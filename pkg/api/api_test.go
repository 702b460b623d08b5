package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/panchamjain/suvidha/pkg/metrics"
	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/storage"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

type fakeSearcher struct {
	err error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) search.Outcome {
	results := []search.SearchResult{
		{ID: "101", Title: "Spice Garden", Subtitle: "Food & Dining", Type: search.TypeMerchant, URL: "/merchant/101", Icon: search.IconStore, Data: search.Record{"id": "101"}},
		{ID: "1", Title: "Food & Dining", Subtitle: "Category", Type: search.TypeCategory, Icon: search.IconCategory, Data: search.Record{"slug": "food-dining"}},
	}
	if strings.Contains(query, "zzz") {
		results = nil
	}
	source := search.SourceRemote
	if f.err != nil {
		source = search.SourceFallback
	}
	return search.Outcome{Query: query, Response: search.NewResponse(results), Source: source, Err: f.err}
}

func setupTestAPIServer(t *testing.T, opts ...Option) (*Server, *http.ServeMux) {
	t.Helper()
	server := NewServer(&fakeSearcher{}, opts...)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return server, mux
}

func openHistory(t *testing.T) *storage.History {
	t.Helper()
	h, err := storage.OpenHistory(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func TestAPISearch(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/api/search?q=spice", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	resp := decode[SearchResponse](t, w)
	if resp.Query != "spice" || resp.Count != 2 || resp.Source != search.SourceRemote {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.RemoteError != "" {
		t.Errorf("RemoteError = %q", resp.RemoteError)
	}
}

func TestAPISearchEmptyResults(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/api/search?q=zzz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("results should encode as an empty array: %s", w.Body.String())
	}
}

func TestAPISearchReportsRemoteError(t *testing.T) {
	server := NewServer(&fakeSearcher{err: errors.New("upstream down")})
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/api/search?q=spice", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := decode[SearchResponse](t, w)
	if resp.Source != search.SourceFallback || resp.RemoteError != "upstream down" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAPISearchMissingQuery(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	for _, target := range []string{"/api/search", "/api/search?q=%20%20"} {
		req := httptest.NewRequest("GET", target, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, w.Code)
		}
		if resp := decode[ErrorResponse](t, w); resp.Error == "" {
			t.Errorf("%s: missing error body", target)
		}
	}
}

func TestAPIResolve(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	tests := []struct {
		name   string
		target string
		want   suggest.Target
	}{
		{
			name:   "url wins over id",
			target: "/api/resolve?url=/merchant/42&type=merchant&id=7",
			want:   suggest.Target{Screen: suggest.ScreenMerchantDetail, Params: map[string]string{"merchantId": "42"}},
		},
		{
			name:   "merchant by id",
			target: "/api/resolve?type=merchant&id=7",
			want:   suggest.Target{Screen: suggest.ScreenMerchantDetail, Params: map[string]string{"merchantId": "7"}},
		},
		{
			name:   "location falls back to search",
			target: "/api/resolve?type=location&title=Navrangpura",
			want:   suggest.Target{Screen: suggest.ScreenSearch, Params: map[string]string{"query": "Navrangpura"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status %d: %s", w.Code, w.Body.String())
			}
			got := decode[ResolveResponse](t, w)
			if diff := cmp.Diff(tt.want, got.Target); diff != "" {
				t.Errorf("target mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAPIResolveMissingParameters(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/api/resolve?type=merchant", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAPIRecent(t *testing.T) {
	history := openHistory(t)
	ctx := context.Background()
	for _, q := range []string{"a", "b", "c", "d", "e", "f"} {
		if err := history.Add(ctx, q); err != nil {
			t.Fatal(err)
		}
	}
	_, mux := setupTestAPIServer(t, WithHistory(history))

	req := httptest.NewRequest("GET", "/api/recent", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := decode[RecentResponse](t, w)
	if diff := cmp.Diff([]string{"f", "e", "d", "c", "b"}, resp.Recent); diff != "" {
		t.Errorf("recent mismatch (-want +got):\n%s", diff)
	}

	req = httptest.NewRequest("GET", "/api/recent?limit=2", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if resp := decode[RecentResponse](t, w); resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}

	req = httptest.NewRequest("GET", "/api/recent?limit=nope", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAPIRecentWithoutHistory(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/api/recent", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"recent":[]`) {
		t.Errorf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIStats(t *testing.T) {
	history := openHistory(t)
	ctx := context.Background()
	outcome := search.Outcome{Query: "spice", Response: search.Response{Count: 2}, Source: search.SourceRemote}
	if err := history.RecordSearch(ctx, outcome); err != nil {
		t.Fatal(err)
	}
	_, mux := setupTestAPIServer(t, WithHistory(history))

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decode[StatsResponse](t, w)
	if resp.History == nil || resp.History.Total != 1 || resp.History.BySource["remote"] != 1 {
		t.Errorf("unexpected stats: %+v", resp.History)
	}
	if resp.Catalog != nil {
		t.Errorf("catalog status without a refresher: %+v", resp.Catalog)
	}
}

func TestAPIHealth(t *testing.T) {
	_, mux := setupTestAPIServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if resp := decode[HealthResponse](t, w); resp.Status != "ok" || resp.Version == "" {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestAPIMetrics(t *testing.T) {
	m := metrics.New()
	m.SetIndexEntries(12)
	_, mux := setupTestAPIServer(t, WithMetrics(m))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "suvidha_index_entries 12") {
		t.Errorf("metrics output missing index gauge")
	}
}

func TestHandlerCompressesAndSetsCORS(t *testing.T) {
	server, _ := setupTestAPIServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	// Echoing a long query pushes the body past the compression threshold.
	req, err := http.NewRequest("GET", ts.URL+"/api/search?q="+strings.Repeat("spice", 300), nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	// A custom Accept-Encoding disables transparent decompression.
	resp, err := ts.Client().Transport.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if got := resp.Header.Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	opt, err := http.NewRequest("OPTIONS", ts.URL+"/api/search", nil)
	if err != nil {
		t.Fatal(err)
	}
	optResp, err := ts.Client().Do(opt)
	if err != nil {
		t.Fatal(err)
	}
	_ = optResp.Body.Close()
	if optResp.StatusCode != http.StatusOK {
		t.Errorf("OPTIONS status = %d", optResp.StatusCode)
	}
}

// traceSearcher remembers the span context each search ran under.
type traceSearcher struct {
	fakeSearcher
	got chan trace.SpanContext
}

func (s *traceSearcher) Search(ctx context.Context, query string) search.Outcome {
	s.got <- trace.SpanContextFromContext(ctx)
	return s.fakeSearcher.Search(ctx, query)
}

func TestHandlerContinuesIncomingTrace(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	searcher := &traceSearcher{got: make(chan trace.SpanContext, 1)}
	server := NewServer(searcher, WithTracing(tp, propagation.TraceContext{}))
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req, err := http.NewRequest("GET", ts.URL+"/api/search?q=spice", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	sc := <-searcher.got
	if sc.TraceID().String() != traceID {
		t.Errorf("search ran under trace %s, want %s", sc.TraceID(), traceID)
	}
	// The server span ends after the response has been written.
	deadline := time.Now().Add(time.Second)
	for len(exporter.GetSpans()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].SpanKind != trace.SpanKindServer || spans[0].Parent.TraceID().String() != traceID {
		t.Errorf("exported spans = %+v", spans)
	}
}
