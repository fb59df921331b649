package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command and returns its stdout.
// The seam exists so tests can fake the pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns combined stdout.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFText extracts plain text from a PDF file using pdftotext.
// Extraction failure is a parse error: the caller logs it and the
// document proceeds with the field left blank.
func PDFText(ctx context.Context, runner CommandRunner, path string) (string, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	out, err := runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
