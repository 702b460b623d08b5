package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMaxSuggestions = 8
)

// Searcher runs one search. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, query string) search.Outcome
}

type Orchestrator struct {
	searcher Searcher
	recents  Recents
	clock    Clock
	debounce time.Duration
	max      int
	hub      *Hub
	logger   *log.Logger

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	mu          sync.Mutex
	state       State
	query       string
	suggestions []search.SearchResult
	source      search.Source
	errText     string
	gen         uint64
	timer       Timer
	cancel      context.CancelFunc
}

type Option func(*Orchestrator)

func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithRecents(r Recents) Option {
	return func(o *Orchestrator) { o.recents = r }
}

func WithMaxSuggestions(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.max = n
		}
	}
}

// WithHubBuffer sets the per-subscriber event buffer.
func WithHubBuffer(n int) Option {
	return func(o *Orchestrator) { o.hub = NewHub(n) }
}

func New(searcher Searcher, opts ...Option) *Orchestrator {
	ctx, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		searcher: searcher,
		clock:    SystemClock,
		debounce: DefaultDebounce,
		max:      DefaultMaxSuggestions,
		hub:      NewHub(0),
		logger:   log.ForService("suggest"),
		ctx:      ctx,
		stop:     stop,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers for snapshot and navigation events. The channel is
// closed by Unsubscribe or Close.
func (o *Orchestrator) Subscribe() (uint64, <-chan Event) {
	return o.hub.Register()
}

func (o *Orchestrator) Unsubscribe(id uint64) {
	o.hub.Unregister(id)
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Input records new text in the search box and restarts the debounce timer.
func (o *Orchestrator) Input(query string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	gen := o.resetLocked()
	o.query = query
	o.state = StateDebouncing
	o.timer = o.clock.AfterFunc(o.debounce, func() { o.fire(gen) })
	o.publishLocked()
}

// Submit searches for query right away and remembers it as a recent search.
func (o *Orchestrator) Submit(query string) {
	o.remember(query)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	gen := o.resetLocked()
	o.query = query
	o.startLocked(gen)
}

// Select clears the box, hides the suggestions and returns where the
// suggestion leads. Subscribers also receive a navigate event.
func (o *Orchestrator) Select(r search.SearchResult) Target {
	target := Resolve(r)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return target
	}
	o.resetLocked()
	o.query = ""
	o.state = StateIdle
	o.publishLocked()
	o.mu.Unlock()

	o.remember(r.Title)
	o.hub.Broadcast(Event{Type: EventNavigate, Target: &target})
	return target
}

// Recent lists the recent searches, most recent first.
func (o *Orchestrator) Recent(ctx context.Context) ([]string, error) {
	if o.recents == nil {
		return []string{}, nil
	}
	return o.recents.List(ctx, 0)
}

// Close stops pending work, waits for in-flight searches to return and
// closes every subscription. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.resetLocked()
	o.stop()
	o.mu.Unlock()

	o.wg.Wait()
	o.hub.Close()
}

// resetLocked invalidates everything scheduled or running for earlier
// inputs and returns the new generation.
func (o *Orchestrator) resetLocked() uint64 {
	o.gen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.suggestions = nil
	o.source = ""
	o.errText = ""
	return o.gen
}

func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || gen != o.gen {
		return
	}
	o.timer = nil
	o.startLocked(gen)
}

// startLocked runs the search for o.query, or settles on Empty when there is
// nothing to search for.
func (o *Orchestrator) startLocked(gen uint64) {
	q := strings.TrimSpace(o.query)
	if q == "" {
		o.state = StateEmpty
		o.publishLocked()
		return
	}

	ctx, cancel := context.WithCancel(o.ctx)
	o.cancel = cancel
	o.state = StateSearching
	o.publishLocked()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		out := o.searcher.Search(ctx, q)
		o.finish(gen, out)
	}()
}

func (o *Orchestrator) finish(gen uint64, out search.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || gen != o.gen {
		o.logger.Debugf("dropping stale results for %q (generation %d, current %d)", out.Query, gen, o.gen)
		return
	}
	o.cancel = nil

	results := search.Dedupe(out.Results)
	if len(results) > o.max {
		results = results[:o.max]
	}
	o.suggestions = results
	o.source = out.Source

	switch {
	case len(results) > 0:
		o.state = StatePopulated
	case out.Err != nil && !errors.Is(out.Err, context.Canceled):
		o.state = StateErrored
		o.errText = out.Err.Error()
	default:
		o.state = StateEmpty
	}
	o.publishLocked()
}

func (o *Orchestrator) remember(query string) {
	if o.recents == nil || strings.TrimSpace(query) == "" {
		return
	}
	if err := o.recents.Add(context.Background(), query); err != nil {
		o.logger.Warnf("saving recent search %q: %v", query, err)
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	suggestions := make([]search.SearchResult, len(o.suggestions))
	copy(suggestions, o.suggestions)
	return Snapshot{
		State:       o.state,
		Query:       o.query,
		Suggestions: suggestions,
		Source:      o.source,
		Generation:  o.gen,
		Error:       o.errText,
	}
}

func (o *Orchestrator) publishLocked() {
	snap := o.snapshotLocked()
	o.hub.Broadcast(Event{Type: EventSnapshot, Snapshot: &snap})
}
