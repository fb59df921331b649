// Package persist implements the mod_persist_data processor. Each
// document is written either as a JSON file under the data directory
// or as a row in a SQLite documents database, then forwarded. It runs
// at the highest priority so every upstream enrichment is already in
// place.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// Sink destinations.
const (
	DestinationFile     = "file"
	DestinationDatabase = "database"
)

// DefaultDatabaseFile is the documents database name used when the
// plugin table names no db_path.
const DefaultDatabaseFile = "newslookout_documents.db"

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	url          TEXT PRIMARY KEY,
	module       TEXT,
	plugin       TEXT,
	section_name TEXT,
	title        TEXT,
	pubdate      TEXT,
	content      TEXT
)`

// Processor writes documents to the configured sink.
type Processor struct {
	name        string
	destination string
	dbPath      string
	db          *sql.DB
}

// New builds a persistence processor from its plugin table. Options:
// destination ("file" or "database", default "file") and db_path for
// the database sink.
func New(p config.Plugin) (pipeline.Processor, error) {
	dest := p.Options.GetString("destination", DestinationFile)
	if dest != DestinationFile && dest != DestinationDatabase {
		return nil, fmt.Errorf("plugin %s: unknown destination %q", p.Name, dest)
	}
	return &Processor{
		name:        p.Name,
		destination: dest,
		dbPath:      p.Options.GetString("db_path", ""),
	}, nil
}

// Name returns the plugin name this processor was configured under.
func (s *Processor) Name() string { return s.name }

// Process drains the queue, persisting each document. A sink failure
// is logged and the document forwarded anyway.
func (s *Processor) Process(ctx context.Context, rc pipeline.RunContext, in *pipeline.Queue, out *pipeline.Sender) error {
	defer func() {
		if s.db != nil {
			s.db.Close()
			s.db = nil
		}
	}()

	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}

		var err error
		switch s.destination {
		case DestinationFile:
			err = s.writeFile(rc, doc)
		case DestinationDatabase:
			err = s.writeRow(ctx, rc, doc)
		}
		if err != nil {
			logger.Error("persist failed", "plugin", s.name, "url", doc.URL, "error", err)
		}

		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", s.name, "url", doc.URL)
		}
	}
}

// writeFile serialises the document to its deterministic JSON filename
// under the data directory and records the absolute path on the
// document.
func (s *Processor) writeFile(rc pipeline.RunContext, doc *domain.Document) error {
	dataDir := "."
	if rc.Config != nil {
		dataDir = rc.Config.DataDir
	}

	path, err := filepath.Abs(filepath.Join(dataDir, domain.BuildFilename(doc, "json")))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	doc.Filename = path
	data, err := doc.Serialise()
	if err != nil {
		doc.Filename = ""
		return fmt.Errorf("serialising %s: %w", doc.URL, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		doc.Filename = ""
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeRow upserts the document into the documents table, storing the
// full JSON alongside the lookup columns.
func (s *Processor) writeRow(ctx context.Context, rc pipeline.RunContext, doc *domain.Document) error {
	db, err := s.open(rc)
	if err != nil {
		return err
	}

	data, err := doc.Serialise()
	if err != nil {
		return fmt.Errorf("serialising %s: %w", doc.URL, err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (url, module, plugin, section_name, title, pubdate, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.URL, doc.Module, doc.PluginName, doc.SectionName, doc.Title, doc.PublishDate, string(data))
	if err != nil {
		return fmt.Errorf("inserting %s: %w", doc.URL, err)
	}
	return nil
}

func (s *Processor) open(rc pipeline.RunContext) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	path := s.dbPath
	if path == "" {
		dataDir := "."
		if rc.Config != nil {
			dataDir = rc.Config.DataDir
		}
		path = filepath.Join(dataDir, DefaultDatabaseFile)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening documents db %s: %w", path, err)
	}
	if _, err := db.Exec(documentsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents schema: %w", err)
	}
	s.db = db
	return db, nil
}
