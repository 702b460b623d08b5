package search

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panchamjain/suvidha/pkg/log"
)

// MaxSuggestions is the number of fallback hits returned for a query.
const MaxSuggestions = 8

// Source tells where the results of an Outcome came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Remote is the directory search API.
type Remote interface {
	TrySearch(ctx context.Context, query string) (Response, error)
}

// Fallback searches the local catalog.
type Fallback interface {
	Search(query string) []Scored
}

// Recorder persists search outcomes.
type Recorder interface {
	RecordSearch(ctx context.Context, o Outcome) error
}

// Observer is notified after every search.
type Observer interface {
	ObserveSearch(o Outcome, elapsed time.Duration)
}

// Outcome is the result of a single Service.Search call.
type Outcome struct {
	Query string `json:"query"`
	Response
	Source Source `json:"source"`
	// Err is the remote failure, if any. Fallback results may still be
	// present.
	Err error `json:"-"`
}

type Service struct {
	remote     Remote
	fallback   atomic.Pointer[fallbackRef]
	recorder   Recorder
	observer   Observer
	maxResults int
	logger     *log.Logger
}

type fallbackRef struct {
	Fallback
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithMaxResults caps fallback results. Values below one are ignored.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewService returns a Service searching remote first and fallback when the
// remote has nothing. Either may be nil.
func NewService(remote Remote, fallback Fallback, opts ...Option) *Service {
	s := &Service{
		remote:     remote,
		maxResults: MaxSuggestions,
		logger:     log.ForService("search"),
	}
	s.SetFallback(fallback)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFallback swaps the fallback index. Searches already running keep using
// the previous one.
func (s *Service) SetFallback(f Fallback) {
	if f == nil {
		s.fallback.Store(nil)
		return
	}
	s.fallback.Store(&fallbackRef{f})
}

// Fallback returns the current fallback, or nil.
func (s *Service) Fallback() Fallback {
	ref := s.fallback.Load()
	if ref == nil {
		return nil
	}
	return ref.Fallback
}

// Search runs query against the remote and, when that yields nothing, the
// fallback. It never fails; Outcome.Err reports remote errors.
func (s *Service) Search(ctx context.Context, query string) Outcome {
	start := time.Now()
	q := strings.TrimSpace(query)
	if q == "" {
		return Outcome{Query: query, Response: NewResponse(nil), Source: SourceNone}
	}

	out := s.search(ctx, q)
	if errors.Is(out.Err, context.Canceled) {
		return out
	}

	if s.observer != nil {
		s.observer.ObserveSearch(out, time.Since(start))
	}
	if s.recorder != nil {
		if err := s.recorder.RecordSearch(context.WithoutCancel(ctx), out); err != nil {
			s.logger.Warnf("recording search %q: %v", q, err)
		}
	}
	return out
}

func (s *Service) search(ctx context.Context, q string) Outcome {
	var remoteErr error
	if s.remote != nil {
		resp, err := s.remote.TrySearch(ctx, q)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Query: q, Response: NewResponse(nil), Source: SourceNone, Err: ctxErr}
		}
		if len(resp.Results) > 0 {
			return Outcome{Query: q, Response: NewResponse(Dedupe(resp.Results)), Source: SourceRemote}
		}
		if err != nil {
			s.logger.Warnf("remote search for %q failed, using fallback: %v", q, err)
		}
		remoteErr = err
	}

	fb := s.Fallback()
	if fb == nil {
		return Outcome{Query: q, Response: NewResponse(nil), Source: SourceNone, Err: remoteErr}
	}

	hits := fb.Search(q)
	if len(hits) > s.maxResults {
		hits = hits[:s.maxResults]
	}
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.Result
	}
	s.logger.Debugf("fallback for %q: %d results", q, len(results))
	return Outcome{Query: q, Response: NewResponse(Dedupe(results)), Source: SourceFallback, Err: remoteErr}
}
