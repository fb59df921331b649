package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/logger"
)

// Orchestrator configures, launches and tears down the pipeline.
// Retrievers fan into the intake queue; processors chain serially in
// ascending priority order; the orchestrator drains the terminal queue
// on the calling goroutine, batching completion records to the store.
type Orchestrator struct {
	cfg      *config.Config
	registry *Registry
	store    CompletionStore
}

// RunReport summarises a pipeline run.
type RunReport struct {
	// Documents holds every document that exited the terminal queue,
	// in drain order.
	Documents []*domain.Document

	// Committed is the number of completion rows the store accepted.
	Committed int
}

// NewOrchestrator creates an orchestrator over the given configuration,
// stage registry and completion store.
func NewOrchestrator(cfg *config.Config, registry *Registry, store CompletionStore) *Orchestrator {
	return &Orchestrator{cfg: cfg, registry: registry, store: store}
}

// OrderByPriority returns the processor plugins sorted ascending by
// priority: the numerically smallest priority runs first in the chain.
// Equal priorities keep their configuration order. An explicit stable
// sort is used rather than a heap so the resulting order is trivially
// inspectable.
func OrderByPriority(plugins []config.Plugin) []config.Plugin {
	ordered := make([]config.Plugin, len(plugins))
	copy(ordered, plugins)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// Run executes the full pipeline and blocks until every retriever has
// finished, end-of-stream has walked the processor chain, and the
// terminal queue is drained. Stage construction failures are fatal;
// everything after launch is handled locally by the stages.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	retrieverPlugins := o.cfg.Retrievers()
	processorPlugins := OrderByPriority(o.cfg.Processors())

	retrievers := make([]Retriever, 0, len(retrieverPlugins))
	for _, p := range retrieverPlugins {
		r, err := o.registry.BuildRetriever(p)
		if err != nil {
			return nil, fmt.Errorf("building retriever %s: %w", p.Name, err)
		}
		retrievers = append(retrievers, r)
	}

	processors := make([]Processor, 0, len(processorPlugins))
	for _, p := range processorPlugins {
		proc, err := o.registry.BuildProcessor(p)
		if err != nil {
			return nil, fmt.Errorf("building processor %s: %w", p.Name, err)
		}
		processors = append(processors, proc)
	}

	stageCount := len(retrievers) + len(processors)
	report := &RunReport{}
	if stageCount == 0 {
		logger.Warn("no enabled stages configured, nothing to do")
		return report, nil
	}

	pool, err := ants.NewPool(stageCount)
	if err != nil {
		return nil, fmt.Errorf("creating stage pool: %w", err)
	}
	defer pool.Release()

	// Wire the chain before launching anything: every sender handle
	// must exist before a receiver can observe end-of-stream.
	intake := NewQueue()
	terminal := intake

	type processorWiring struct {
		proc Processor
		cfg  config.Plugin
		in   *Queue
		out  *Sender
	}
	wirings := make([]processorWiring, 0, len(processors))
	for i, proc := range processors {
		next := NewQueue()
		wirings = append(wirings, processorWiring{
			proc: proc,
			cfg:  processorPlugins[i],
			in:   terminal,
			out:  next.Sender(),
		})
		terminal = next
	}

	intakeSenders := make([]*Sender, len(retrievers))
	for i := range retrievers {
		intakeSenders[i] = intake.Sender()
	}

	var wg sync.WaitGroup

	for _, w := range wirings {
		wg.Add(1)
		w := w
		rc := RunContext{Config: o.cfg, Plugin: w.cfg, Completed: o.store}
		if err := pool.Submit(func() {
			defer wg.Done()
			o.runProcessor(ctx, w.proc, rc, w.in, w.out)
		}); err != nil {
			wg.Done()
			w.out.Close()
			logger.Error("failed to launch processor", "name", w.proc.Name(), "error", err)
		}
	}

	for i, r := range retrievers {
		wg.Add(1)
		r := r
		out := intakeSenders[i]
		rc := RunContext{Config: o.cfg, Plugin: retrieverPlugins[i], Completed: o.store}
		if err := pool.Submit(func() {
			defer wg.Done()
			o.runRetriever(ctx, r, rc, out)
		}); err != nil {
			wg.Done()
			out.Close()
			logger.Error("failed to launch retriever", "name", r.Name(), "error", err)
		}
	}

	// Drain the terminal queue, flushing completion records in batches.
	// The final flush is inclusive: every terminal document is recorded.
	batchSize := o.cfg.CompletionBatchSize
	var batch []domain.CompletionRecord

	for {
		doc, ok := terminal.Recv()
		if !ok {
			break
		}
		report.Documents = append(report.Documents, doc)
		batch = append(batch, domain.NewCompletionRecord(doc))
		if len(batch) >= batchSize {
			report.Committed += o.flush(ctx, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		report.Committed += o.flush(ctx, batch)
	}

	wg.Wait()
	logger.Info("pipeline run complete",
		"documents", len(report.Documents), "committed", report.Committed)
	return report, nil
}

// flush writes one batch of completion records, logging short commits.
func (o *Orchestrator) flush(ctx context.Context, batch []domain.CompletionRecord) int {
	committed := o.store.AppendBatch(ctx, batch)
	if committed < len(batch) {
		logger.Warn("completion flush came up short",
			"submitted", len(batch), "committed", committed)
	}
	return committed
}

// runRetriever executes one retriever with panic protection. The
// sender is always closed so the intake queue can reach end-of-stream
// even when the retriever crashes.
func (o *Orchestrator) runRetriever(ctx context.Context, r Retriever, rc RunContext, out *Sender) {
	defer out.Close()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("retriever panicked", "name", r.Name(), "panic", rec)
		}
	}()

	logger.Debug("retriever starting", "name", r.Name())
	if err := r.Retrieve(ctx, rc, out); err != nil {
		logger.Error("retriever failed", "name", r.Name(), "error", err)
		return
	}
	logger.Debug("retriever finished", "name", r.Name())
}

// runProcessor executes one processor with panic protection. The
// downstream sender is always closed so end-of-stream propagates even
// when the processor crashes; documents still in the incoming queue are
// lost in that case, which the next run re-fetches.
func (o *Orchestrator) runProcessor(ctx context.Context, p Processor, rc RunContext, in *Queue, out *Sender) {
	defer out.Close()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("processor panicked", "name", p.Name(), "panic", rec)
		}
	}()

	logger.Debug("processor starting", "name", p.Name(), "priority", rc.Plugin.Priority)
	if err := p.Process(ctx, rc, in, out); err != nil {
		logger.Error("processor failed", "name", p.Name(), "error", err)
		return
	}
	logger.Debug("processor finished", "name", p.Name())
}
