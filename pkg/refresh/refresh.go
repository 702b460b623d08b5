// Package refresh keeps the local fallback index in step with the remote
// catalog by periodically rebuilding it from the listing endpoints.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panchamjain/suvidha/pkg/catalog"
	"github.com/panchamjain/suvidha/pkg/index"
	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

// ErrEmptyCatalog is returned when the remote listings yield nothing usable.
// The current index is left in place.
var ErrEmptyCatalog = errors.New("remote catalog is empty")

// Source lists the remote catalog. *remote.Client implements it.
type Source interface {
	Categories(ctx context.Context) ([]search.Record, error)
	Merchants(ctx context.Context) ([]search.Record, error)
}

// Target receives each rebuilt index. *search.Service implements it.
type Target interface {
	SetFallback(f search.Fallback)
}

// Observer is told about every refresh attempt. *metrics.Metrics implements it.
type Observer interface {
	SetIndexEntries(n int)
	ObserveRefresh(at time.Time, err error)
}

type Config struct {
	// Interval between refreshes. Zero refreshes once at Start.
	Interval time.Duration
	// Index options applied to each rebuilt index.
	IndexOptions []index.Option
}

// Status describes the last refresh attempt.
type Status struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Entries     int       `json:"entries"`
	Skipped     int       `json:"skipped"`
}

type Refresher struct {
	config   Config
	source   Source
	target   Target
	observer Observer
	logger   *log.Logger
	now      func() time.Time

	mu      sync.RWMutex
	status  Status
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a refresher. observer may be nil.
func New(config Config, source Source, target Target, observer Observer) *Refresher {
	return &Refresher{
		config:   config,
		source:   source,
		target:   target,
		observer: observer,
		logger:   log.ForService("refresh"),
		now:      time.Now,
	}
}

// Refresh fetches the remote catalog once and, if it is not empty, swaps a
// freshly built index into the target.
func (r *Refresher) Refresh(ctx context.Context) (*index.Index, error) {
	at := r.now()
	ix, skipped, err := r.build(ctx)

	r.mu.Lock()
	r.status.LastAttempt = at
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
		r.status.LastSuccess = at
		r.status.Entries = ix.Len()
		r.status.Skipped = skipped
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.ObserveRefresh(at, err)
	}
	if err != nil {
		return nil, err
	}

	r.target.SetFallback(ix)
	if r.observer != nil {
		r.observer.SetIndexEntries(ix.Len())
	}
	r.logger.Infof("fallback index rebuilt with %d entries (%d records skipped)", ix.Len(), skipped)
	return ix, nil
}

func (r *Refresher) build(ctx context.Context) (*index.Index, int, error) {
	categories, err := r.source.Categories(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching categories: %w", err)
	}
	merchants, err := r.source.Merchants(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching merchants: %w", err)
	}

	c, skipped := catalog.FromRecords(categories, merchants)
	if len(c.Merchants) == 0 {
		return nil, skipped, ErrEmptyCatalog
	}
	return index.FromCatalog(c, r.config.IndexOptions...), skipped, nil
}

// Start refreshes in the background: once immediately, then on every
// interval tick until Stop or ctx is done.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("refresher is already running")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true

	r.wg.Add(1)
	go r.run(ctx)

	if r.config.Interval > 0 {
		r.logger.Infof("catalog refresh every %v", r.config.Interval)
	} else {
		r.logger.Infof("catalog refresh scheduled once (interval is 0)")
	}
	return nil
}

func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warnf("initial catalog refresh failed, keeping current index: %v", err)
	}
	if r.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debugf("refresh loop stopped")
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warnf("scheduled catalog refresh failed, keeping current index: %v", err)
			}
		}
	}
}

// Stop cancels the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
}

// Status returns a copy of the last refresh status.
func (r *Refresher) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}
