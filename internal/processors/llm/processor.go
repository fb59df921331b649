// Package llm implements the summarisation processors. A shared
// scaffold iterates a document's text parts and fills in per-part
// summaries and insights, then an executive summary and an action list
// for the whole document. Backends (Ollama, OpenAI-compatible, Gemini)
// plug in through the Client interface.
package llm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// Generated-content keys filled in by this processor.
const (
	KeyExecSummary    = "exec_summary"
	KeyActionsSummary = "actions_summary"
)

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 120 * time.Second

// Client is one LLM backend. Generate sends a system and user prompt
// and returns the model's text completion.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Processor enriches documents through an LLM backend. A model call
// that fails is logged and its output left empty; the document always
// moves on.
type Processor struct {
	name             string
	client           Client
	overwrite        bool
	saveIntermediate bool
	timeout          time.Duration
}

// newProcessor wires the scaffold around a backend client, reading the
// options shared by every LLM plugin.
func newProcessor(p config.Plugin, client Client) *Processor {
	return &Processor{
		name:             p.Name,
		client:           client,
		overwrite:        p.Options.GetBool("overwrite", false),
		saveIntermediate: p.Options.GetBool("save_intermediate", false),
		timeout:          p.Options.GetDuration("fetch_timeout", DefaultCallTimeout),
	}
}

// Name returns the plugin name this processor was configured under.
func (s *Processor) Name() string { return s.name }

// Process drains the queue. Documents flagged for summarisation or
// action extraction are enriched; everything else passes through
// unchanged.
func (s *Processor) Process(ctx context.Context, rc pipeline.RunContext, in *pipeline.Queue, out *pipeline.Sender) error {
	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}
		if doc.HasFlag(domain.FlagSummarise) || doc.HasFlag(domain.FlagExtractActions) {
			s.enrich(ctx, rc, doc)
		}
		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", s.name, "url", doc.URL)
		}
	}
}

// enrich fills part summaries and insights, then the document-level
// executive summary and action list. Outputs already present are kept
// unless overwrite is on.
func (s *Processor) enrich(ctx context.Context, rc pipeline.RunContext, doc *domain.Document) {
	summarise := doc.HasFlag(domain.FlagSummarise)

	for i := range doc.TextParts {
		part := &doc.TextParts[i]
		if summarise {
			if part.Summary == "" || s.overwrite {
				part.Summary = s.generate(ctx, rc, promptContexts(rc).summaryPart, part.Text, doc.URL)
			}
			if len(part.Insights) == 0 || s.overwrite {
				part.Insights = splitLines(s.generate(ctx, rc, promptContexts(rc).insightsPart, part.Text, doc.URL))
			}
		}
		if s.saveIntermediate {
			s.snapshot(rc, doc)
		}
	}

	var summaries []string
	for _, part := range doc.TextParts {
		if part.Summary != "" {
			summaries = append(summaries, part.Summary)
		}
	}
	combined := strings.Join(summaries, "\n")
	if combined == "" {
		combined = doc.Text
	}
	if combined == "" {
		return
	}

	if doc.GeneratedContent == nil {
		doc.GeneratedContent = make(map[string]string)
	}
	if summarise && (doc.GeneratedContent[KeyExecSummary] == "" || s.overwrite) {
		doc.GeneratedContent[KeyExecSummary] = s.generate(ctx, rc, promptContexts(rc).summaryExec, combined, doc.URL)
	}
	if doc.HasFlag(domain.FlagExtractActions) && (doc.GeneratedContent[KeyActionsSummary] == "" || s.overwrite) {
		doc.GeneratedContent[KeyActionsSummary] = s.generate(ctx, rc, promptContexts(rc).actionsExec, combined, doc.URL)
	}
}

// generate performs one bounded model call. Failure yields the empty
// string.
func (s *Processor) generate(ctx context.Context, rc pipeline.RunContext, instruction, text, url string) string {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.client.Generate(callCtx, promptContexts(rc).system, instruction+"\n\n"+text)
	if err != nil {
		logger.Warn("model call failed", "plugin", s.name, "url", url, "error", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

// snapshot writes the document's current state to the data directory,
// so a crash mid-run loses at most one part's work.
func (s *Processor) snapshot(rc pipeline.RunContext, doc *domain.Document) {
	if rc.Config == nil {
		return
	}
	data, err := doc.Serialise()
	if err != nil {
		logger.Warn("snapshot serialise failed", "plugin", s.name, "url", doc.URL, "error", err)
		return
	}
	path := filepath.Join(rc.Config.DataDir, domain.BuildFilename(doc, "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("snapshot write failed", "plugin", s.name, "path", path, "error", err)
	}
}

// prompts holds the resolved prompt templates for one run.
type prompts struct {
	system       string
	summaryPart  string
	insightsPart string
	summaryExec  string
	actionsExec  string
}

// promptContexts resolves prompt templates from the run configuration,
// falling back to the documented defaults.
func promptContexts(rc pipeline.RunContext) prompts {
	if rc.Config == nil {
		return prompts{
			system:       config.DefaultSystemContext,
			summaryPart:  config.DefaultSummaryPartContext,
			insightsPart: config.DefaultInsightsPartContext,
			summaryExec:  config.DefaultSummaryExecContext,
			actionsExec:  config.DefaultActionsExecContext,
		}
	}
	return prompts{
		system:       rc.Config.SystemContext,
		summaryPart:  rc.Config.SummaryPartContext,
		insightsPart: rc.Config.InsightsPartContext,
		summaryExec:  rc.Config.SummaryExecContext,
		actionsExec:  rc.Config.ActionsExecContext,
	}
}

// splitLines breaks a model answer into one insight per non-empty line.
func splitLines(answer string) []string {
	out := []string{}
	for _, line := range strings.Split(answer, "\n") {
		if line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t")); line != "" {
			out = append(out, line)
		}
	}
	return out
}
