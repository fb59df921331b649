// Package splitter implements the split_text processor. It breaks a
// document's extracted text into parts small enough for LLM context
// windows, keeping paragraph boundaries intact and carrying a word
// overlap between consecutive parts for continuity.
package splitter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// Default splitting tuning.
const (
	DefaultMaxWords = 500
	DefaultOverlap  = 50
)

// Processor splits Document.Text into Document.TextParts.
type Processor struct {
	name      string
	maxWords  int
	overlap   int
	overwrite bool
	marker    *regexp.Regexp
}

// New builds a splitter from its plugin table. Options:
// min_word_limit_to_split caps words per part, previous_part_overlap
// sets how many trailing words repeat at the start of the next part,
// section_marker_regex forces a split before matching paragraphs.
func New(p config.Plugin) (pipeline.Processor, error) {
	s := &Processor{
		name:      p.Name,
		maxWords:  p.Options.GetInt("min_word_limit_to_split", DefaultMaxWords),
		overlap:   p.Options.GetInt("previous_part_overlap", DefaultOverlap),
		overwrite: p.Options.GetBool("overwrite", false),
	}
	if s.maxWords < 1 {
		s.maxWords = DefaultMaxWords
	}
	if s.overlap < 0 {
		s.overlap = 0
	}
	if pattern := p.Options.GetString("section_marker_regex", ""); pattern != "" {
		marker, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: section_marker_regex: %w", p.Name, err)
		}
		s.marker = marker
	}
	return s, nil
}

// Name returns the plugin name this processor was configured under.
func (s *Processor) Name() string { return s.name }

// Process drains the queue, splitting each document's text unless
// parts already exist and overwrite is off. Every document is
// forwarded.
func (s *Processor) Process(_ context.Context, _ pipeline.RunContext, in *pipeline.Queue, out *pipeline.Sender) error {
	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}
		if len(doc.TextParts) == 0 || s.overwrite {
			s.split(doc)
		}
		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", s.name, "url", doc.URL)
		}
	}
}

// split populates doc.TextParts from doc.Text. Paragraphs merge
// greedily until the next one would push the part past maxWords; a
// paragraph matching the section marker always opens a new part. An
// overlap tail of the previous part is prepended to each later part.
func (s *Processor) split(doc *domain.Document) {
	paragraphs := splitParagraphs(doc.Text)
	if len(paragraphs) == 0 {
		return
	}

	var parts []domain.TextPart
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n\n")
		if s.overlap > 0 && len(parts) > 0 {
			prev := strings.Fields(parts[len(parts)-1].Text)
			k := s.overlap
			if k > len(prev) {
				k = len(prev)
			}
			if k > 0 {
				body = strings.Join(prev[len(prev)-k:], " ") + "\n\n" + body
			}
		}
		parts = append(parts, domain.TextPart{
			ID:       len(parts) + 1,
			Text:     body,
			Insights: []string{},
		})
		current = nil
		currentWords = 0
	}

	for _, paragraph := range paragraphs {
		words := countWords(paragraph)
		forced := s.marker != nil && s.marker.MatchString(paragraph)
		if len(current) > 0 && (forced || currentWords+words > s.maxWords) {
			flush()
		}
		current = append(current, paragraph)
		currentWords += words
	}
	flush()

	doc.TextParts = parts
}

// splitParagraphs breaks text on blank lines, dropping empty chunks.
func splitParagraphs(text string) []string {
	var out []string
	for _, chunk := range strings.Split(text, "\n\n") {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// countWords counts whitespace-separated tokens containing at least
// one letter, so page numbers and rule lines do not inflate part
// sizes.
func countWords(text string) int {
	count := 0
	for _, token := range strings.Fields(text) {
		if strings.ContainsFunc(token, unicode.IsLetter) {
			count++
		}
	}
	return count
}
