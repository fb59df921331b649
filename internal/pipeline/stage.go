package pipeline

import (
	"context"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
)

// CompletionStore is the durable record of processed URLs.
// Implemented by completion.Store; faked in tests.
type CompletionStore interface {
	// LoadFor returns the set of URLs already recorded for a plugin.
	LoadFor(ctx context.Context, plugin string) map[string]bool

	// AppendBatch records completed documents, returning how many
	// rows actually committed.
	AppendBatch(ctx context.Context, records []domain.CompletionRecord) int
}

// RunContext carries everything a stage needs beyond its channels: the
// full application configuration, the stage's own plugin table, and
// read access to the completion store.
type RunContext struct {
	Config    *config.Config
	Plugin    config.Plugin
	Completed CompletionStore
}

// Retriever is a named concurrent producer. Retrieve runs to
// completion, sending one document per source URL not already present
// in the completion store, then returns; the orchestrator closes the
// sender. Retrievers are fail-isolated: an error return is logged, not
// propagated.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, rc RunContext, out *Sender) error
}

// Processor is a named concurrent transformer. Process drains the
// incoming queue, forwarding every document exactly once; even when
// per-document work fails the document proceeds with whatever partial
// enrichment succeeded. When Recv reports end-of-stream the processor
// returns; the orchestrator closes the sender.
type Processor interface {
	Name() string
	Process(ctx context.Context, rc RunContext, in *Queue, out *Sender) error
}
