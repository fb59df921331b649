// Package offline implements the filesystem retriever. It emits one
// document per matching file under a configured folder, which lets
// previously downloaded corpora re-enter the pipeline without network
// access.
package offline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/extract"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// ModuleName identifies this retriever module in document metadata.
const ModuleName = "mod_offline_docs"

// Retriever walks a folder and emits documents for files not yet in
// the completion store.
type Retriever struct {
	name      string
	folder    string
	extension string
	pastDays  int
	section   string
	runner    extract.CommandRunner
}

// New builds an offline-docs retriever from its plugin table.
func New(p config.Plugin) (pipeline.Retriever, error) {
	folder := p.Options.GetString("folder", "")
	if folder == "" {
		return nil, fmt.Errorf("plugin %s: %w: folder is required", p.Name, domain.ErrInvalidInput)
	}
	return &Retriever{
		name:      p.Name,
		folder:    folder,
		extension: strings.TrimPrefix(p.Options.GetString("file_extension", "txt"), "."),
		pastDays:  p.Options.GetInt("published_in_past_days", 0),
		section:   p.Options.GetString("section_name", "offline"),
		runner:    extract.ExecRunner{},
	}, nil
}

// Name returns the plugin name this retriever was configured under.
func (r *Retriever) Name() string { return r.name }

// Retrieve walks the folder recursively, emitting one document per
// matching file. Unreadable files are logged and skipped. The file's
// modification time stands in for the publish date; when
// published_in_past_days is set, older files are skipped.
func (r *Retriever) Retrieve(ctx context.Context, rc pipeline.RunContext, out *pipeline.Sender) error {
	completed := rc.Completed.LoadFor(ctx, r.name)

	var cutoff time.Time
	if r.pastDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -r.pastDays)
	}

	err := filepath.WalkDir(r.folder, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk error, skipping entry", "plugin", r.name, "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), r.extension) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("unreadable file, skipping", "plugin", r.name, "path", path, "error", err)
			return nil
		}
		if !cutoff.IsZero() && info.ModTime().Before(cutoff) {
			return nil
		}

		doc, err := r.fileToDocument(ctx, path, info.ModTime(), completed)
		if err != nil {
			logger.Warn("skipping file", "plugin", r.name, "path", path, "error", err)
			return nil
		}
		if doc == nil {
			return nil
		}
		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", r.name, "path", path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", r.folder, err)
	}
	return nil
}

// fileToDocument reads one file into a document, or returns nil when
// the file's URL is already recorded as completed.
func (r *Retriever) fileToDocument(
	ctx context.Context,
	path string,
	modTime time.Time,
	completed map[string]bool,
) (*domain.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	url := "file://" + filepath.ToSlash(abs)
	if completed[url] {
		return nil, nil
	}
	completed[url] = true

	doc := domain.NewDocument(ModuleName, r.name)
	doc.URL = url
	doc.SectionName = r.section
	doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc.SetPublishDate(modTime)
	doc.DataProcFlags = domain.FlagSummarise | domain.FlagExtractActions

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc.PDFURL = url
		text, err := extract.PDFText(ctx, r.runner, path)
		if err != nil {
			return nil, err
		}
		doc.Text = text
		return doc, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".html") || strings.EqualFold(filepath.Ext(path), ".htm") {
		doc.HTMLContent = string(raw)
		doc.Text = extract.HTMLToText(doc.HTMLContent)
		if title := extract.HTMLTitle(doc.HTMLContent); title != "" {
			doc.Title = title
		}
	} else {
		doc.Text = strings.TrimSpace(string(raw))
	}
	return doc, nil
}
