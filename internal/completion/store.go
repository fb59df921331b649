// Package completion provides the durable record of processed URLs.
// The store is the pipeline's memory between runs: retrievers load
// their completed set at startup and the orchestrator appends batches
// as documents leave the terminal channel.
package completion

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/logger"
)

// schema creates the completion table. Column types are text; the URL
// is the primary key, so a re-inserted URL fails the statement rather
// than silently duplicating.
const schema = `
CREATE TABLE IF NOT EXISTS completed_urls (
	url TEXT PRIMARY KEY,
	plugin TEXT,
	pubdate TEXT,
	section_name TEXT,
	title TEXT,
	unique_id TEXT,
	filename TEXT
)`

// Store records completed URLs in a SQLite file.
// Writes happen only on the orchestrator's drain thread; retriever
// reads are snapshots taken before any writer is active, so the store
// needs no locking of its own.
type Store struct {
	path string
	db   *sql.DB
}

// NewStore creates a store backed by the SQLite file at path.
// The file is opened lazily on first use.
func NewStore(path string) *Store {
	if path == "" {
		path = "newslookout_urls.db"
	}
	return &Store{path: path}
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// open opens or reuses the database connection and ensures the schema.
func (s *Store) open() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening completion store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring completion schema: %w", err)
	}

	s.db = db
	return db, nil
}

// Close closes the database connection if one was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// LoadFor returns every URL previously recorded under the given plugin
// name. Failure to open or query the store is logged and yields the
// empty set; the run proceeds and may re-fetch.
func (s *Store) LoadFor(ctx context.Context, plugin string) map[string]bool {
	urls := make(map[string]bool)

	db, err := s.open()
	if err != nil {
		logger.Warn("completion store unavailable, proceeding without history",
			"path", s.path, "error", err)
		return urls
	}

	rows, err := db.QueryContext(ctx, "SELECT url FROM completed_urls WHERE plugin = ?", plugin)
	if err != nil {
		logger.Warn("completion store query failed, proceeding without history",
			"plugin", plugin, "error", err)
		return urls
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			logger.Warn("completion store scan failed", "plugin", plugin, "error", err)
			return urls
		}
		urls[url] = true
	}
	if err := rows.Err(); err != nil {
		logger.Warn("completion store iteration failed", "plugin", plugin, "error", err)
	}

	logger.Debug("loaded completed urls", "plugin", plugin, "count", len(urls))
	return urls
}

// AppendBatch inserts the given records and returns how many committed.
// Each record is inserted in its own statement so a duplicate URL only
// loses that one record: the constraint violation is logged and the
// rest of the batch still commits.
func (s *Store) AppendBatch(ctx context.Context, records []domain.CompletionRecord) int {
	if len(records) == 0 {
		return 0
	}

	db, err := s.open()
	if err != nil {
		logger.Error("completion batch lost, store unavailable",
			"expected", len(records), "committed", 0, "error", err)
		return 0
	}

	committed := 0
	for _, rec := range records {
		_, err := db.ExecContext(ctx, `
			INSERT INTO completed_urls (url, plugin, pubdate, section_name, title, unique_id, filename)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.URL, rec.Plugin, rec.PubDate, rec.SectionName, rec.Title, rec.UniqueID, rec.Filename)
		if err != nil {
			if isConstraintViolation(err) {
				logger.Warn("url already recorded, skipping", "url", rec.URL, "plugin", rec.Plugin)
			} else {
				logger.Error("completion insert failed", "url", rec.URL, "error", err)
			}
			continue
		}
		committed++
	}

	if committed < len(records) {
		logger.Warn("completion batch partially committed",
			"expected", len(records), "committed", committed)
	}
	return committed
}

// isConstraintViolation reports whether err is a primary-key or unique
// constraint failure.
func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "CONSTRAINT")
}
