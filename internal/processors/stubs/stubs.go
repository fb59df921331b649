// Package stubs holds the forward-only processors reserved for future
// enrichment work: classification, near-duplicate detection and vector
// indexing. They honour the processor contract so configurations can
// already chain them; the enrichment itself is not implemented yet.
package stubs

import (
	"context"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// Stub plugin names.
const (
	NameClassify    = "mod_classify"
	NameDedupe      = "mod_dedupe"
	NameVectorStore = "mod_vector_store"
)

// Forwarder passes every document through unchanged.
type Forwarder struct {
	name string
}

var _ pipeline.Processor = (*Forwarder)(nil)

// NewForwarder builds a forward-only processor under the plugin's name.
func NewForwarder(p config.Plugin) (pipeline.Processor, error) {
	return &Forwarder{name: p.Name}, nil
}

// Name returns the plugin name this processor was configured under.
func (s *Forwarder) Name() string { return s.name }

// Process forwards every received document.
func (s *Forwarder) Process(_ context.Context, _ pipeline.RunContext, in *pipeline.Queue, out *pipeline.Sender) error {
	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}
		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", s.name, "url", doc.URL)
		}
	}
}
