package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/metrics"
	"github.com/panchamjain/suvidha/pkg/refresh"
	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/storage"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

const defaultRecentLimit = 5

// History is the part of the history store the API reads.
// *storage.History implements it.
type History interface {
	suggest.Recents
	Stats(ctx context.Context, top int) (*storage.Stats, error)
}

// RefreshStatus reports on the background catalog refresh.
// *refresh.Refresher implements it.
type RefreshStatus interface {
	Status() refresh.Status
}

type Server struct {
	searcher    suggest.Searcher
	history     History
	metrics     *metrics.Metrics
	refresher   RefreshStatus
	suggestOpts []suggest.Option
	recentLimit int
	upgrader    websocket.Upgrader
	otelOpts    []otelhttp.Option
	logger      *log.Logger

	mu       sync.Mutex
	live     map[*session]struct{}
	sessions sync.WaitGroup
}

type Option func(*Server)

// WithHistory enables /api/recent, /api/stats and recent searches in live
// suggestion sessions.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics serves /metrics and counts live suggestion sessions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithRefresher(r RefreshStatus) Option {
	return func(s *Server) { s.refresher = r }
}

// WithSuggestOptions is applied to every live suggestion session.
func WithSuggestOptions(opts ...suggest.Option) Option {
	return func(s *Server) { s.suggestOpts = append(s.suggestOpts, opts...) }
}

// WithTracing traces requests with tp and reads incoming trace headers with
// p instead of the otel globals.
func WithTracing(tp trace.TracerProvider, p propagation.TextMapPropagator) Option {
	return func(s *Server) {
		s.otelOpts = append(s.otelOpts, otelhttp.WithTracerProvider(tp), otelhttp.WithPropagators(p))
	}
}

func WithRecentLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// NewServer builds an API server answering searches with searcher, normally
// a *search.Service.
func NewServer(searcher suggest.Searcher, opts ...Option) *Server {
	s := &Server{
		searcher:    searcher,
		recentLimit: defaultRecentLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.ForService("api"),
		live:   make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns every route with CORS headers. Plain HTTP responses are
// gzip compressed; the WebSocket endpoint is left unwrapped so the upgrade
// can hijack the connection.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	outer := http.NewServeMux()
	outer.HandleFunc("GET /api/suggest/ws", s.HandleSuggestWS)
	outer.Handle("/", gzhttp.GzipHandler(mux))
	return otelhttp.NewHandler(CorsMiddleware(outer), "suvidha-api", s.otelOpts...)
}

// Wait blocks until every live suggestion session has ended.
func (s *Server) Wait() {
	s.sessions.Wait()
}

// CloseSessions disconnects every live suggestion client and waits for the
// sessions to end. http.Server.Shutdown does not track hijacked connections.
func (s *Server) CloseSessions() {
	s.mu.Lock()
	for sess := range s.live {
		sess.close()
	}
	s.mu.Unlock()
	s.sessions.Wait()
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	s.live[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.live, sess)
	s.mu.Unlock()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warnf("error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

var _ suggest.Searcher = (*search.Service)(nil)
