package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
)

// fakeStore is an in-memory CompletionStore double.
type fakeStore struct {
	completed map[string]map[string]bool
	batches   [][]domain.CompletionRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{completed: make(map[string]map[string]bool)}
}

func (f *fakeStore) preload(plugin string, urls ...string) {
	set := f.completed[plugin]
	if set == nil {
		set = make(map[string]bool)
		f.completed[plugin] = set
	}
	for _, u := range urls {
		set[u] = true
	}
}

func (f *fakeStore) LoadFor(_ context.Context, plugin string) map[string]bool {
	out := make(map[string]bool)
	for u := range f.completed[plugin] {
		out[u] = true
	}
	return out
}

func (f *fakeStore) AppendBatch(_ context.Context, records []domain.CompletionRecord) int {
	batch := make([]domain.CompletionRecord, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	for _, rec := range records {
		f.preload(rec.Plugin, rec.URL)
	}
	return len(records)
}

func (f *fakeStore) recordCount() int {
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

// fakeRetriever emits one document per configured URL.
type fakeRetriever struct {
	name string
	urls []string
}

func (f *fakeRetriever) Name() string { return f.name }

func (f *fakeRetriever) Retrieve(ctx context.Context, rc RunContext, out *Sender) error {
	completed := rc.Completed.LoadFor(ctx, f.name)
	for _, u := range f.urls {
		if completed[u] {
			continue
		}
		completed[u] = true
		doc := domain.NewDocument("mod_fake", f.name)
		doc.URL = u
		if err := out.Send(doc); err != nil {
			return err
		}
	}
	return nil
}

// markingProcessor appends its name to every passing document so tests
// can observe chain order.
type markingProcessor struct {
	name string
}

func (m *markingProcessor) Name() string { return m.name }

func (m *markingProcessor) Process(_ context.Context, _ RunContext, in *Queue, out *Sender) error {
	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}
		doc.LinksOutwards = append(doc.LinksOutwards, m.name)
		if err := out.Send(doc); err != nil {
			return err
		}
	}
}

// panickingProcessor crashes on the first document.
type panickingProcessor struct{}

func (panickingProcessor) Name() string { return "boom" }

func (panickingProcessor) Process(_ context.Context, _ RunContext, in *Queue, _ *Sender) error {
	_, ok := in.Recv()
	if ok {
		panic("processor exploded")
	}
	return nil
}

func plugin(name, typ string, priority int, order int) config.Plugin {
	return config.Plugin{
		Name: name, Type: typ, Enabled: true,
		Priority: priority, Order: order,
		Options: config.Options{},
	}
}

func TestOrderByPriority(t *testing.T) {
	t.Run("smallest priority first", func(t *testing.T) {
		plugins := []config.Plugin{
			plugin("p10", config.TypeProcessor, 10, 0),
			plugin("pneg20", config.TypeProcessor, -20, 1),
			plugin("p2", config.TypeProcessor, 2, 2),
		}

		ordered := OrderByPriority(plugins)

		assert.Equal(t, []int{-20, 2, 10}, []int{
			ordered[0].Priority, ordered[1].Priority, ordered[2].Priority,
		})
	})

	t.Run("ties keep configuration order", func(t *testing.T) {
		plugins := []config.Plugin{
			plugin("first", config.TypeProcessor, 5, 0),
			plugin("second", config.TypeProcessor, 5, 1),
			plugin("earlier", config.TypeProcessor, 1, 2),
		}

		ordered := OrderByPriority(plugins)

		assert.Equal(t, []string{"earlier", "first", "second"},
			[]string{ordered[0].Name, ordered[1].Name, ordered[2].Name})
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		plugins := []config.Plugin{
			plugin("b", config.TypeProcessor, 2, 0),
			plugin("a", config.TypeProcessor, 1, 1),
		}

		OrderByPriority(plugins)

		assert.Equal(t, "b", plugins[0].Name)
	})
}

func testConfig(plugins ...config.Plugin) *config.Config {
	cfg, _ := config.Parse([]byte(""))
	cfg.Plugins = plugins
	return cfg
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("documents traverse processors in priority order", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterRetriever("src", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "src", urls: []string{"https://a.example/1"}}, nil
		})
		for _, name := range []string{"late", "early", "middle"} {
			name := name
			registry.RegisterProcessor(name, func(config.Plugin) (Processor, error) {
				return &markingProcessor{name: name}, nil
			})
		}

		cfg := testConfig(
			plugin("src", config.TypeRetriever, 0, 0),
			plugin("late", config.TypeProcessor, 10, 1),
			plugin("early", config.TypeProcessor, -20, 2),
			plugin("middle", config.TypeProcessor, 2, 3),
		)

		report, err := NewOrchestrator(cfg, registry, newFakeStore()).Run(ctx)
		require.NoError(t, err)
		require.Len(t, report.Documents, 1)
		assert.Equal(t, []string{"early", "middle", "late"}, report.Documents[0].LinksOutwards)
	})

	t.Run("retrievers fan in and every document is recorded once", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterRetriever("alpha", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "alpha", urls: []string{
				"https://a.example/1", "https://a.example/2",
			}}, nil
		})
		registry.RegisterRetriever("beta", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "beta", urls: []string{"https://b.example/1"}}, nil
		})
		registry.RegisterProcessor("pass", func(config.Plugin) (Processor, error) {
			return &markingProcessor{name: "pass"}, nil
		})

		cfg := testConfig(
			plugin("alpha", config.TypeRetriever, 0, 0),
			plugin("beta", config.TypeRetriever, 0, 1),
			plugin("pass", config.TypeProcessor, 1, 2),
		)
		store := newFakeStore()

		report, err := NewOrchestrator(cfg, registry, store).Run(ctx)
		require.NoError(t, err)

		assert.Len(t, report.Documents, 3)
		assert.Equal(t, 3, report.Committed)
		assert.Equal(t, 3, store.recordCount())

		seen := make(map[string]int)
		for _, batch := range store.batches {
			for _, rec := range batch {
				seen[rec.URL]++
			}
		}
		for url, count := range seen {
			assert.Equal(t, 1, count, "url %s recorded %d times", url, count)
		}
	})

	t.Run("already completed urls are skipped", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterRetriever("src", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "src", urls: []string{
				"https://a.example/old", "https://a.example/new",
			}}, nil
		})

		cfg := testConfig(plugin("src", config.TypeRetriever, 0, 0))
		store := newFakeStore()
		store.preload("src", "https://a.example/old")

		report, err := NewOrchestrator(cfg, registry, store).Run(ctx)
		require.NoError(t, err)

		require.Len(t, report.Documents, 1)
		assert.Equal(t, "https://a.example/new", report.Documents[0].URL)
	})

	t.Run("batch flushes every N documents and final flush is inclusive", func(t *testing.T) {
		urls := make([]string, 7)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://a.example/%d", i)
		}

		registry := NewRegistry()
		registry.RegisterRetriever("src", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "src", urls: urls}, nil
		})

		cfg := testConfig(plugin("src", config.TypeRetriever, 0, 0))
		cfg.CompletionBatchSize = 3
		store := newFakeStore()

		report, err := NewOrchestrator(cfg, registry, store).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 7, report.Committed)
		require.Len(t, store.batches, 3)
		assert.Len(t, store.batches[0], 3)
		assert.Len(t, store.batches[1], 3)
		assert.Len(t, store.batches[2], 1)
	})

	t.Run("processor panic does not hang the pipeline", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterRetriever("src", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "src", urls: []string{
				"https://a.example/1", "https://a.example/2",
			}}, nil
		})
		registry.RegisterProcessor("boom", func(config.Plugin) (Processor, error) {
			return panickingProcessor{}, nil
		})

		cfg := testConfig(
			plugin("src", config.TypeRetriever, 0, 0),
			plugin("boom", config.TypeProcessor, 1, 1),
		)

		report, err := NewOrchestrator(cfg, registry, newFakeStore()).Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Documents)
	})

	t.Run("unknown plugin is a fatal configuration error", func(t *testing.T) {
		cfg := testConfig(plugin("nonexistent", config.TypeRetriever, 0, 0))

		_, err := NewOrchestrator(cfg, NewRegistry(), newFakeStore()).Run(ctx)
		assert.ErrorContains(t, err, "unknown retriever plugin")
	})

	t.Run("no stages completes immediately", func(t *testing.T) {
		report, err := NewOrchestrator(testConfig(), NewRegistry(), newFakeStore()).Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Documents)
	})

	t.Run("retriever error is isolated", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterRetriever("bad", func(config.Plugin) (Retriever, error) {
			return &erroringRetriever{}, nil
		})
		registry.RegisterRetriever("good", func(config.Plugin) (Retriever, error) {
			return &fakeRetriever{name: "good", urls: []string{"https://g.example/1"}}, nil
		})

		cfg := testConfig(
			plugin("bad", config.TypeRetriever, 0, 0),
			plugin("good", config.TypeRetriever, 0, 1),
		)

		report, err := NewOrchestrator(cfg, registry, newFakeStore()).Run(ctx)
		require.NoError(t, err)
		require.Len(t, report.Documents, 1)
		assert.Equal(t, "https://g.example/1", report.Documents[0].URL)
	})
}

type erroringRetriever struct{}

func (erroringRetriever) Name() string { return "bad" }

func (erroringRetriever) Retrieve(context.Context, RunContext, *Sender) error {
	return errors.New("listing fetch failed")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterRetriever("r", func(config.Plugin) (Retriever, error) {
		return &fakeRetriever{name: "r"}, nil
	})
	registry.RegisterProcessor("p", func(config.Plugin) (Processor, error) {
		return &markingProcessor{name: "p"}, nil
	})

	assert.True(t, registry.HasRetriever("r"))
	assert.False(t, registry.HasRetriever("p"))
	assert.True(t, registry.HasProcessor("p"))
	assert.False(t, registry.HasProcessor("r"))

	_, err := registry.BuildRetriever(config.Plugin{Name: "absent"})
	assert.Error(t, err)

	_, err = registry.BuildProcessor(config.Plugin{Name: "absent"})
	assert.Error(t, err)

	r, err := registry.BuildRetriever(config.Plugin{Name: "r"})
	require.NoError(t, err)
	assert.Equal(t, "r", r.Name())
}
