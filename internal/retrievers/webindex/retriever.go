// Package webindex implements the consolidated HTML-listing retriever.
// One retriever instance covers one listing section of a publisher
// site; the selector set and pagination scheme come entirely from the
// plugin configuration, so per-site variants are config, not code.
package webindex

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/extract"
	"github.com/newslookout/newslookout/internal/fetch"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// ModuleName identifies this retriever module in document metadata.
const ModuleName = "mod_web_index"

// Default listing tuning.
const (
	DefaultMaxPages     = 10
	DefaultItemsPerPage = 50
	DefaultDateFormat   = "Jan 02, 2006"
)

// Retriever walks a paginated HTML listing and emits one document per
// row not already present in the completion store.
type Retriever struct {
	name            string
	section         string
	baseURL         string
	listingTemplate string
	rowSelector     string
	linkSelector    string
	titleSelector   string
	dateSelector    string
	dateFormat      string
	maxPages        int
	itemsPerPage    int
	fetchArticle    bool
	client          *fetch.Client
	runner          extract.CommandRunner
}

// New builds a web-index retriever from its plugin table.
func New(p config.Plugin) (pipeline.Retriever, error) {
	opts := p.Options
	r := &Retriever{
		name:            p.Name,
		section:         opts.GetString("section_name", "main"),
		baseURL:         opts.GetString("base_url", ""),
		listingTemplate: opts.GetString("listing_page_template", ""),
		rowSelector:     opts.GetString("row_selector", "tr"),
		linkSelector:    opts.GetString("link_selector", "a"),
		titleSelector:   opts.GetString("title_selector", "a"),
		dateSelector:    opts.GetString("date_selector", ""),
		dateFormat:      opts.GetString("date_format", DefaultDateFormat),
		maxPages:        opts.GetInt("maxpages", DefaultMaxPages),
		itemsPerPage:    opts.GetInt("items_per_page", DefaultItemsPerPage),
		fetchArticle:    opts.GetBool("fetch_article", false),
		client: fetch.NewClient(
			fetch.WithTimeout(opts.GetDuration("fetch_timeout", fetch.DefaultTimeout)),
			fetch.WithAttempts(opts.GetInt("retry_count", fetch.DefaultAttempts)),
			fetch.WithRate(opts.GetFloat("requests_per_second", fetch.DefaultRate)),
		),
		runner: extract.ExecRunner{},
	}
	if r.listingTemplate == "" {
		r.listingTemplate = r.baseURL
	}
	return r, nil
}

// Name returns the plugin name this retriever was configured under.
func (r *Retriever) Name() string { return r.name }

// Retrieve walks the listing pages in order, stopping at maxpages or
// at the first page with no matching rows. Failures on a single URL
// are logged and skipped; a listing-page failure ends pagination.
func (r *Retriever) Retrieve(ctx context.Context, rc pipeline.RunContext, out *pipeline.Sender) error {
	completed := rc.Completed.LoadFor(ctx, r.name)

	for page := 1; page <= r.maxPages; page++ {
		listingURL := r.listingURL(page)
		body, err := r.client.Get(ctx, listingURL)
		if err != nil {
			logger.Warn("listing page fetch failed, stopping pagination",
				"plugin", r.name, "url", listingURL, "error", err)
			return nil
		}

		listing, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			logger.Warn("listing page unparsable, stopping pagination",
				"plugin", r.name, "url", listingURL, "error", err)
			return nil
		}

		rows := listing.Find(r.rowSelector)
		if rows.Length() == 0 {
			logger.Debug("listing exhausted", "plugin", r.name, "page", page)
			return nil
		}

		rows.Each(func(_ int, row *goquery.Selection) {
			doc := r.rowToDocument(ctx, listingURL, row, completed)
			if doc == nil {
				return
			}
			if err := out.Send(doc); err != nil {
				logger.Warn("send failed during teardown", "plugin", r.name, "url", doc.URL)
			}
		})
	}
	return nil
}

// listingURL substitutes the page number and page size into the
// listing template.
func (r *Retriever) listingURL(page int) string {
	u := strings.ReplaceAll(r.listingTemplate, "{page}", strconv.Itoa(page))
	return strings.ReplaceAll(u, "{items}", strconv.Itoa(r.itemsPerPage))
}

// rowToDocument extracts one listing row into a document, or nil when
// the row has no usable link or its URL is already completed.
// Newly discovered URLs are added to the local completed set so a URL
// repeated across listing pages is emitted once per run.
func (r *Retriever) rowToDocument(
	ctx context.Context,
	listingURL string,
	row *goquery.Selection,
	completed map[string]bool,
) *domain.Document {
	href, ok := row.Find(r.linkSelector).First().Attr("href")
	if !ok {
		return nil
	}

	resolved, err := extract.ResolveURL(listingURL, href)
	if err != nil {
		logger.Debug("skipping row link", "plugin", r.name, "error", err)
		return nil
	}
	if completed[resolved] {
		return nil
	}
	completed[resolved] = true

	doc := domain.NewDocument(ModuleName, r.name)
	doc.SectionName = r.section
	doc.URL = resolved
	doc.Title = strings.TrimSpace(row.Find(r.titleSelector).First().Text())
	doc.ReferrerText = extract.CleanRecipients(strings.TrimSpace(row.Text()))
	doc.LinksInward = []string{listingURL}
	doc.DataProcFlags = domain.FlagSummarise | domain.FlagExtractActions

	if strings.HasSuffix(strings.ToLower(resolved), ".pdf") {
		doc.PDFURL = resolved
	}

	if r.dateSelector != "" {
		raw := strings.TrimSpace(row.Find(r.dateSelector).First().Text())
		if t, err := time.Parse(r.dateFormat, raw); err == nil {
			doc.SetPublishDate(t)
		} else {
			logger.Debug("row date unparsable, keeping creation time",
				"plugin", r.name, "url", resolved, "value", raw)
		}
	}

	if r.fetchArticle {
		if doc.PDFURL != "" {
			r.fetchPDF(ctx, doc)
		} else {
			body, err := r.client.Get(ctx, resolved)
			if err != nil {
				logger.Warn("article fetch failed, emitting listing metadata only",
					"plugin", r.name, "url", resolved, "error", err)
			} else {
				doc.HTMLContent = string(body)
				doc.Text = extract.HTMLToText(doc.HTMLContent)
				if title := extract.HTMLTitle(doc.HTMLContent); title != "" {
					doc.Title = title
				}
			}
		}
	}

	return doc
}

// fetchPDF downloads the linked PDF and extracts its text. The bytes
// go through a temporary file because the extractor works on paths.
// Any failure leaves the document with listing metadata only.
func (r *Retriever) fetchPDF(ctx context.Context, doc *domain.Document) {
	body, err := r.client.Get(ctx, doc.PDFURL)
	if err != nil {
		logger.Warn("pdf fetch failed, emitting listing metadata only",
			"plugin", r.name, "url", doc.PDFURL, "error", err)
		return
	}

	tmp, err := os.CreateTemp("", "newslookout-*.pdf")
	if err != nil {
		logger.Warn("pdf staging failed", "plugin", r.name, "url", doc.PDFURL, "error", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		logger.Warn("pdf staging failed", "plugin", r.name, "url", doc.PDFURL, "error", err)
		return
	}
	tmp.Close()

	text, err := extract.PDFText(ctx, r.runner, tmp.Name())
	if err != nil {
		logger.Warn("pdf extraction failed, emitting listing metadata only",
			"plugin", r.name, "url", doc.PDFURL, "error", err)
		return
	}
	doc.Text = text
}
