package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is the unit of work transferred between pipeline stages.
// It is created inside a retriever, mutated exclusively by the stage
// currently holding it, and recorded by the drain loop once the last
// processor forwards it. Queue transfer is a move, not a share.
type Document struct {
	// Module and PluginName identify the retriever that produced the
	// document. SectionName identifies the listing section within a site.
	Module      string `json:"module"`
	PluginName  string `json:"plugin_name"`
	SectionName string `json:"section_name"`

	// URL is the primary identity of the document.
	URL      string `json:"url"`
	PDFURL   string `json:"pdf_url"`
	Filename string `json:"filename"`

	HTMLContent  string `json:"html_content"`
	Text         string `json:"text"`
	Title        string `json:"title"`
	ReferrerText string `json:"referrer_text"`
	SourceAuthor string `json:"source_author"`
	Recipients   string `json:"recipients"`
	UniqueID     string `json:"unique_id"`

	// PublishDateMS is signed epoch milliseconds. PublishDate is the same
	// instant truncated to an ISO date string. The two must agree.
	PublishDateMS int64    `json:"publish_date_ms"`
	PublishDate   string   `json:"publish_date"`
	RevisionDates []string `json:"revision_dates"`

	LinksInward   []string `json:"links_inward"`
	LinksOutwards []string `json:"links_outwards"`

	// TextParts is empty until the splitter runs. Once populated every
	// part has an id unique within the document and non-empty text.
	TextParts []TextPart `json:"text_parts"`

	Classification   map[string]string `json:"classification"`
	GeneratedContent map[string]string `json:"generated_content"`

	// DataProcFlags selects which enrichment processors apply.
	DataProcFlags int `json:"data_proc_flags"`
}

// TextPart is one split of a document's text, produced by the splitter
// and enriched by the LLM stages.
type TextPart struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Summary  string   `json:"summary,omitempty"`
	Insights []string `json:"insights"`
}

// ISODateFormat is the date layout used for publish and revision dates.
const ISODateFormat = "2006-01-02"

// NewDocument creates a document attributed to the given retriever.
// The publish date defaults to the wall clock at creation; retrievers
// overwrite it via SetPublishDate once a real date is known. Retrievers
// that extract a source identifier (circular number, notification id)
// replace the generated UniqueID with it.
func NewDocument(module, pluginName string) *Document {
	d := &Document{
		Module:           module,
		PluginName:       pluginName,
		UniqueID:         uuid.NewString(),
		Classification:   make(map[string]string),
		GeneratedContent: make(map[string]string),
	}
	d.SetPublishDate(time.Now())
	return d
}

// SetPublishDate sets both publish date fields from the same instant,
// keeping the millisecond and ISO-date representations consistent.
func (d *Document) SetPublishDate(t time.Time) {
	d.PublishDateMS = t.UnixMilli()
	d.PublishDate = t.Format(ISODateFormat)
}

// HasFlag reports whether the given processing flag is set.
func (d *Document) HasFlag(flag int) bool {
	return d.DataProcFlags&flag != 0
}

// Serialise encodes the document as JSON.
func (d *Document) Serialise() ([]byte, error) {
	return json.Marshal(d)
}

// Deserialise decodes a document from JSON.
func Deserialise(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CompletionRecord is the projection of a document written to the
// completion store once it leaves the terminal channel.
type CompletionRecord struct {
	URL         string
	Plugin      string
	PubDate     string
	SectionName string
	Title       string
	UniqueID    string
	Filename    string
}

// NewCompletionRecord projects a document onto its completion record.
func NewCompletionRecord(d *Document) CompletionRecord {
	return CompletionRecord{
		URL:         d.URL,
		Plugin:      d.PluginName,
		PubDate:     d.PublishDate,
		SectionName: d.SectionName,
		Title:       d.Title,
		UniqueID:    d.UniqueID,
		Filename:    d.Filename,
	}
}
