package cmdline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/pipeline"
)

type fakeRunner struct {
	err     error
	invoked [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.invoked = append(f.invoked, append([]string{name}, args...))
	return []byte("indexed\n"), f.err
}

func run(t *testing.T, p pipeline.Processor, docs ...*domain.Document) []*domain.Document {
	t.Helper()

	in := pipeline.NewQueue()
	src := in.Sender()
	for _, doc := range docs {
		require.NoError(t, src.Send(doc))
	}
	src.Close()

	out := pipeline.NewQueue()
	dst := out.Sender()
	require.NoError(t, p.Process(context.Background(), pipeline.RunContext{}, in, dst))
	dst.Close()

	var forwarded []*domain.Document
	for {
		doc, ok := out.Recv()
		if !ok {
			return forwarded
		}
		forwarded = append(forwarded, doc)
	}
}

func fileDoc(filename string) *domain.Document {
	doc := domain.NewDocument("mod_test", "mod_cmdline")
	doc.URL = "https://w.example/doc"
	doc.Filename = filename
	return doc
}

func TestProcess(t *testing.T) {
	t.Run("runs the command with the filename argument", func(t *testing.T) {
		runner := &fakeRunner{}
		p := &Processor{name: "mod_cmdline", command: "/usr/local/bin/index", timeout: DefaultCommandTimeout, runner: runner}

		docs := run(t, p, fileDoc("/data/doc.json"))

		require.Len(t, docs, 1)
		require.Len(t, runner.invoked, 1)
		assert.Equal(t, []string{"/usr/local/bin/index", "/data/doc.json"}, runner.invoked[0])
	})

	t.Run("documents without a filename are forwarded untouched", func(t *testing.T) {
		runner := &fakeRunner{}
		p := &Processor{name: "mod_cmdline", command: "/bin/true", timeout: DefaultCommandTimeout, runner: runner}

		docs := run(t, p, fileDoc(""))

		require.Len(t, docs, 1)
		assert.Empty(t, runner.invoked)
	})

	t.Run("command failure does not stop the document", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 2")}
		p := &Processor{name: "mod_cmdline", command: "/bin/false", timeout: DefaultCommandTimeout, runner: runner}

		docs := run(t, p, fileDoc("/data/doc.json"))

		require.Len(t, docs, 1)
	})
}

func TestNew(t *testing.T) {
	t.Run("command_name is required", func(t *testing.T) {
		_, err := New(config.Plugin{Name: "mod_cmdline", Options: config.Options{}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("valid options build", func(t *testing.T) {
		p, err := New(config.Plugin{Name: "mod_cmdline", Options: config.Options{"command_name": "/bin/true"}})
		require.NoError(t, err)
		assert.Equal(t, "mod_cmdline", p.Name())
	})
}
