package pipeline

import (
	"fmt"

	"github.com/newslookout/newslookout/internal/config"
)

// RetrieverFactory builds a retriever stage from its plugin table.
type RetrieverFactory func(p config.Plugin) (Retriever, error)

// ProcessorFactory builds a processor stage from its plugin table.
type ProcessorFactory func(p config.Plugin) (Processor, error)

// Registry maps plugin names to stage factories. It replaces
// name-by-name dispatch: the orchestrator resolves each configured
// plugin through the registry without knowing any stage concretely.
type Registry struct {
	retrievers map[string]RetrieverFactory
	processors map[string]ProcessorFactory
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{
		retrievers: make(map[string]RetrieverFactory),
		processors: make(map[string]ProcessorFactory),
	}
}

// RegisterRetriever adds a retriever factory under the given plugin name.
func (r *Registry) RegisterRetriever(name string, factory RetrieverFactory) {
	r.retrievers[name] = factory
}

// RegisterProcessor adds a processor factory under the given plugin name.
func (r *Registry) RegisterProcessor(name string, factory ProcessorFactory) {
	r.processors[name] = factory
}

// BuildRetriever instantiates the retriever configured by p.
func (r *Registry) BuildRetriever(p config.Plugin) (Retriever, error) {
	factory, ok := r.retrievers[p.Name]
	if !ok {
		return nil, fmt.Errorf("unknown retriever plugin: %s", p.Name)
	}
	return factory(p)
}

// BuildProcessor instantiates the processor configured by p.
func (r *Registry) BuildProcessor(p config.Plugin) (Processor, error) {
	factory, ok := r.processors[p.Name]
	if !ok {
		return nil, fmt.Errorf("unknown processor plugin: %s", p.Name)
	}
	return factory(p)
}

// HasRetriever reports whether a retriever is registered under name.
func (r *Registry) HasRetriever(name string) bool {
	_, ok := r.retrievers[name]
	return ok
}

// HasProcessor reports whether a processor is registered under name.
func (r *Registry) HasProcessor(name string) bool {
	_, ok := r.processors[name]
	return ok
}
