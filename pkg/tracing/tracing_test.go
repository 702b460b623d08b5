package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/panchamjain/suvidha/pkg/config"
	"github.com/panchamjain/suvidha/pkg/remote"
)

func resetGlobals(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})
}

func TestSetupDisabledInstallsPropagatorOnly(t *testing.T) {
	resetGlobals(t)

	shutdown, err := Setup(config.TracingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fields := otel.GetTextMapPropagator().Fields(); !slices.Contains(fields, "traceparent") {
		t.Errorf("propagator fields = %v", fields)
	}
}

func TestSetupExportsDirectorySpans(t *testing.T) {
	resetGlobals(t)
	output := filepath.Join(t.TempDir(), "traces", "spans.jsonl")

	shutdown, err := Setup(config.TracingConfig{Enabled: true, Output: output, SampleRatio: 1})
	if err != nil {
		t.Fatal(err)
	}

	headers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Joe's Cafe"}]`))
	}))
	defer srv.Close()

	resp, err := remote.NewClient(srv.URL).TrySearch(context.Background(), "cafe")
	if err != nil || resp.Count != 1 {
		t.Fatalf("TrySearch = %+v, %v", resp, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	// traceparent is version-traceid-spanid-flags.
	traceparent := <-headers
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		t.Fatalf("traceparent = %q", traceparent)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), parts[1]) {
		t.Errorf("exported spans do not mention trace %s:\n%s", parts[1], data)
	}
	if !strings.Contains(string(data), ServiceName) {
		t.Errorf("exported spans miss the service name:\n%s", data)
	}
}

func TestSetupFailsOnUnwritableOutput(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Setup(config.TracingConfig{Enabled: true, Output: filepath.Join(blocker, "spans.jsonl"), SampleRatio: 1}); err == nil {
		t.Fatal("expected an error")
	}
}
