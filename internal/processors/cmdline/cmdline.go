// Package cmdline implements the external-command processor. It hands
// each persisted document's filename to a configured executable, which
// lets downstream systems (indexers, notifiers) hook into the pipeline
// without linking against it.
package cmdline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newslookout/newslookout/internal/config"
	"github.com/newslookout/newslookout/internal/domain"
	"github.com/newslookout/newslookout/internal/extract"
	"github.com/newslookout/newslookout/internal/logger"
	"github.com/newslookout/newslookout/internal/pipeline"
)

// DefaultCommandTimeout bounds a single command invocation.
const DefaultCommandTimeout = 60 * time.Second

// Processor invokes a command with each document's filename as its
// single argument. Exit status never stops the document.
type Processor struct {
	name    string
	command string
	timeout time.Duration
	runner  extract.CommandRunner
}

// New builds a cmdline processor from its plugin table. The
// command_name option is required.
func New(p config.Plugin) (pipeline.Processor, error) {
	command := p.Options.GetString("command_name", "")
	if command == "" {
		return nil, fmt.Errorf("plugin %s: %w: command_name is required", p.Name, domain.ErrInvalidInput)
	}
	return &Processor{
		name:    p.Name,
		command: command,
		timeout: p.Options.GetDuration("command_timeout", DefaultCommandTimeout),
		runner:  extract.ExecRunner{},
	}, nil
}

// Name returns the plugin name this processor was configured under.
func (s *Processor) Name() string { return s.name }

// Process drains the queue, running the command once per document that
// carries a filename. Output and failures are logged; the document is
// always forwarded.
func (s *Processor) Process(ctx context.Context, _ pipeline.RunContext, in *pipeline.Queue, out *pipeline.Sender) error {
	for {
		doc, ok := in.Recv()
		if !ok {
			return nil
		}

		if doc.Filename == "" {
			logger.Debug("no filename yet, command skipped", "plugin", s.name, "url", doc.URL)
		} else {
			s.invoke(ctx, doc)
		}

		if err := out.Send(doc); err != nil {
			logger.Warn("send failed during teardown", "plugin", s.name, "url", doc.URL)
		}
	}
}

func (s *Processor) invoke(ctx context.Context, doc *domain.Document) {
	cmdCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.runner.Run(cmdCtx, s.command, doc.Filename)
	if err != nil {
		logger.Warn("command failed", "plugin", s.name, "command", s.command,
			"file", doc.Filename, "error", err)
		return
	}
	if text := strings.TrimSpace(string(output)); text != "" {
		logger.Info("command output", "plugin", s.name, "command", s.command, "output", text)
	}
}
