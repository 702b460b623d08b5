package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/panchamjain/suvidha/pkg/cache"
	"github.com/panchamjain/suvidha/pkg/catalog"
	"github.com/panchamjain/suvidha/pkg/config"
	"github.com/panchamjain/suvidha/pkg/index"
	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/metrics"
	"github.com/panchamjain/suvidha/pkg/remote"
	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/storage"
	"github.com/panchamjain/suvidha/pkg/tracing"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	client  *remote.Client
	cache   *cache.Redis
	history *storage.History
	metrics *metrics.Metrics
	index   *index.Index
	service *search.Service
	logger  *log.Logger

	shutdownTracing tracing.Shutdown
}

type appOptions struct {
	// history opens the SQLite history store.
	history bool
	// metrics creates the Prometheus collectors.
	metrics bool
}

// newApp wires the remote client, fallback index and search service from
// the config file.
func newApp(ctx context.Context, configPath string, opts appOptions) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg, logger: log.ForService("suvidha")}

	// Before the client: its transport picks up the global tracer provider.
	a.shutdownTracing, err = tracing.Setup(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	clientOpts := []remote.Option{
		remote.WithTimeout(cfg.API.Timeout.Duration),
		remote.WithUserAgent(cfg.API.UserAgent),
	}
	if cfg.API.RateLimit > 0 {
		clientOpts = append(clientOpts, remote.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))
	}
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.TTL.Duration)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			a.logger.Warnf("redis cache at %s unavailable, continuing without it: %v", cfg.Cache.RedisAddr, err)
			_ = rc.Close()
		} else {
			a.cache = rc
			clientOpts = append(clientOpts, remote.WithCache(rc))
		}
	}
	a.client = remote.NewClient(cfg.API.BaseURL, clientOpts...)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	a.index = index.FromCatalog(cat, a.indexOptions()...)

	var serviceOpts []search.Option
	serviceOpts = append(serviceOpts, search.WithMaxResults(cfg.Search.MaxSuggestions))

	if opts.history {
		if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
			a.Close()
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
		h, err := storage.OpenHistory(cfg.HistoryDBPath(), 0)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.history = h
		serviceOpts = append(serviceOpts, search.WithRecorder(h))
	}

	if opts.metrics {
		a.metrics = metrics.New()
		a.metrics.SetIndexEntries(a.index.Len())
		serviceOpts = append(serviceOpts, search.WithObserver(a.metrics))
	}

	a.service = search.NewService(a.client, a.index, serviceOpts...)
	return a, nil
}

func (a *app) indexOptions() []index.Option {
	return []index.Option{
		index.WithThreshold(a.cfg.Search.FuzzyThreshold),
		index.WithMaxResults(a.cfg.Search.MaxSuggestions),
	}
}

// reloadCatalog rebuilds the fallback index from the configured catalog file.
func (a *app) reloadCatalog() error {
	cat, err := catalog.Load(a.cfg.Catalog.Path)
	if err != nil {
		return err
	}
	a.index = index.FromCatalog(cat, a.indexOptions()...)
	a.service.SetFallback(a.index)
	if a.metrics != nil {
		a.metrics.SetIndexEntries(a.index.Len())
	}
	return nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warnf("failed to close history: %v", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warnf("failed to close cache: %v", err)
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warnf("failed to flush traces: %v", err)
		}
	}
}
