package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/panchamjain/suvidha/pkg/api"
	"github.com/panchamjain/suvidha/pkg/config"
	"github.com/panchamjain/suvidha/pkg/refresh"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API and live suggestions over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the config file)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath, listen string) error {
	a, err := newApp(ctx, configPath, appOptions{history: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if listen == "" {
		listen = a.cfg.Server.Listen
	}

	var refresher *refresh.Refresher
	apiOpts := []api.Option{
		api.WithHistory(a.history),
		api.WithMetrics(a.metrics),
		api.WithRecentLimit(a.cfg.Search.RecentLimit),
		api.WithSuggestOptions(
			suggest.WithDebounce(a.cfg.Search.Debounce.Duration),
			suggest.WithMaxSuggestions(a.cfg.Search.MaxSuggestions),
		),
	}
	if a.cfg.Catalog.RefreshInterval.Duration > 0 {
		refresher = refresh.New(refresh.Config{
			Interval:     a.cfg.Catalog.RefreshInterval.Duration,
			IndexOptions: a.indexOptions(),
		}, a.client, a.service, a.metrics)
		apiOpts = append(apiOpts, api.WithRefresher(refresher))
	}

	server := api.NewServer(a.service, apiOpts...)
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Infof("listening on http://%s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		server.CloseSessions()
		return err
	})

	if refresher != nil {
		if err := refresher.Start(gctx); err != nil {
			return fmt.Errorf("starting catalog refresh: %w", err)
		}
		defer refresher.Stop()
	}

	g.Go(func() error {
		watchForReload(gctx, a, configPath)
		return nil
	})

	return g.Wait()
}

// watchForReload rebuilds the fallback index when the config file or the
// catalog file changes, or on SIGHUP.
func watchForReload(ctx context.Context, a *app, configPath string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watched := map[string]bool{configPath: true}
	if a.cfg.Catalog.Path != "" {
		watched[a.cfg.Catalog.Path] = true
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warnf("failed to create file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				a.logger.Warnf("failed to close file watcher: %v", err)
			}
		}()
		for path := range watched {
			if err := watcher.Add(path); err != nil {
				a.logger.Warnf("failed to watch %s: %v", path, err)
			} else {
				a.logger.Infof("watching %s for changes", path)
			}
		}
		events, errs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			a.logger.Infof("received SIGHUP, reloading catalog")
			reload(a, configPath)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			a.logger.Infof("%s changed (%s), reloading catalog", event.Name, event.Op)

			// Editors replace files with atomic renames.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(event.Name); os.IsNotExist(err) {
					a.logger.Warnf("%s was removed and not replaced, skipping reload", event.Name)
					continue
				}
				if err := watcher.Add(event.Name); err != nil {
					a.logger.Warnf("failed to re-watch %s: %v", event.Name, err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(a, configPath)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warnf("file watcher error: %v", err)
		}
	}
}

// reload picks up a new catalog path from the config file and rebuilds the
// fallback index. A broken config or catalog leaves the current index alone.
func reload(a *app, configPath string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		a.logger.Errorf("failed to reload configuration: %v", err)
		return
	}
	previous := a.cfg.Catalog.Path
	a.cfg.Catalog.Path = cfg.Catalog.Path
	if err := a.reloadCatalog(); err != nil {
		a.cfg.Catalog.Path = previous
		a.logger.Errorf("failed to reload catalog: %v", err)
		return
	}
	a.logger.Infof("fallback index reloaded with %d entries", a.index.Len())
}
