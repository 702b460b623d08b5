package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/panchamjain/suvidha/pkg/db"
	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

// ErrClosed is returned by History methods after Close.
var ErrClosed = errors.New("history store is closed")

// DefaultKeep is the number of recent queries kept on disk.
const DefaultKeep = 50

// History persists recent searches and a log of every search outcome in
// SQLite. It implements search.Recorder and suggest.Recents.
type History struct {
	db     *sql.DB
	keep   int
	now    func() time.Time
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
}

// QueryCount is a query and how often it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Stats summarizes the search log.
type Stats struct {
	Total      int            `json:"total"`
	BySource   map[string]int `json:"by_source"`
	Errors     int            `json:"errors"`
	TopQueries []QueryCount   `json:"top_queries"`
	Last       *time.Time     `json:"last,omitempty"`
}

// OpenHistory opens (or creates) the history database at dbPath and applies
// pending migrations. keep bounds the number of recent queries retained; zero
// or negative uses DefaultKeep.
func OpenHistory(dbPath string, keep int) (*History, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Per-connection pragmas only stick with a single connection.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	if keep <= 0 {
		keep = DefaultKeep
	}
	return &History{
		db:     conn,
		keep:   keep,
		now:    time.Now,
		logger: log.ForService("storage"),
	}, nil
}

// DB returns the underlying database connection.
func (h *History) DB() *sql.DB {
	return h.db
}

// Close releases the database. Subsequent calls return ErrClosed.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	return h.db.Close()
}

func (h *History) check() error {
	if h.closed {
		return ErrClosed
	}
	return nil
}

// Add moves query to the front of the recent searches, trimming the list to
// the retention limit. Blank queries are ignored.
func (h *History) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.check(); err != nil {
		return err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				h.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	// Re-inserting gives the query a fresh rowid so ordering follows use.
	if _, err := tx.ExecContext(ctx, "DELETE FROM recent_searches WHERE query = ?", query); err != nil {
		return fmt.Errorf("removing previous entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO recent_searches (query, searched_at) VALUES (?, ?)",
		query, h.now().UnixMilli()); err != nil {
		return fmt.Errorf("inserting recent search: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_searches
		WHERE id NOT IN (SELECT id FROM recent_searches ORDER BY id DESC LIMIT ?)
	`, h.keep); err != nil {
		return fmt.Errorf("trimming recent searches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// List returns up to limit recent queries, most recent first.
func (h *History) List(ctx context.Context, limit int) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = h.keep
	}

	rows, err := h.db.QueryContext(ctx, "SELECT query FROM recent_searches ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent searches: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			h.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	queries := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scanning recent search: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Clear forgets all recent searches. The search log is kept.
func (h *History) Clear(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.check(); err != nil {
		return err
	}
	if _, err := h.db.ExecContext(ctx, "DELETE FROM recent_searches"); err != nil {
		return fmt.Errorf("clearing recent searches: %w", err)
	}
	return nil
}

// RecordSearch appends an outcome to the search log.
func (h *History) RecordSearch(ctx context.Context, o search.Outcome) error {
	query := strings.TrimSpace(o.Query)
	if query == "" {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.check(); err != nil {
		return err
	}

	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO search_log (query, source, result_count, error, searched_at)
		VALUES (?, ?, ?, ?, ?)
	`, query, string(o.Source), o.Count, errText, h.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("recording search %q: %w", query, err)
	}
	return nil
}

// Stats aggregates the search log. top bounds the number of most frequent
// queries returned.
func (h *History) Stats(ctx context.Context, top int) (*Stats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.check(); err != nil {
		return nil, err
	}

	stats := &Stats{BySource: make(map[string]int), TopQueries: []QueryCount{}}

	var last sql.NullInt64
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0), MAX(searched_at)
		FROM search_log
	`).Scan(&stats.Total, &stats.Errors, &last)
	if err != nil {
		return nil, fmt.Errorf("counting searches: %w", err)
	}
	if last.Valid {
		t := time.UnixMilli(last.Int64)
		stats.Last = &t
	}

	if err := h.collect(ctx, "SELECT source, COUNT(*) FROM search_log GROUP BY source", func(rows *sql.Rows) error {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return err
		}
		stats.BySource[source] = count
		return nil
	}); err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}

	if top > 0 {
		if err := h.collect(ctx, `
			SELECT query, COUNT(*) AS n FROM search_log
			GROUP BY query ORDER BY n DESC, MAX(searched_at) DESC, query LIMIT ?
		`, func(rows *sql.Rows) error {
			var qc QueryCount
			if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
				return err
			}
			stats.TopQueries = append(stats.TopQueries, qc)
			return nil
		}, top); err != nil {
			return nil, fmt.Errorf("ranking queries: %w", err)
		}
	}

	return stats, nil
}

func (h *History) collect(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			h.logger.Warnf("failed to close rows: %v", err)
		}
	}()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
