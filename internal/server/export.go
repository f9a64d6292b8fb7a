package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrWorkbookNotFound is returned when the export ran but left no workbook.
var ErrWorkbookNotFound = errors.New("workbook not found")

// ExportError reports a non-zero exit of the export command.
type ExportError struct {
	Stderr string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export command failed: %v: %s", e.Err, strings.TrimSpace(e.Stderr))
}

func (e *ExportError) Unwrap() error { return e.Err }

// Exporter produces a workbook on demand and returns its path.
type Exporter interface {
	Export(ctx context.Context) (string, error)
}

// SubprocessExporter runs an external command that writes Output.
type SubprocessExporter struct {
	Args    []string
	Dir     string
	Output  string
	Timeout time.Duration
}

func NewSubprocessExporter(command, dir, output string, timeout time.Duration) *SubprocessExporter {
	return &SubprocessExporter{Args: strings.Fields(command), Dir: dir, Output: output, Timeout: timeout}
}

func (e *SubprocessExporter) Export(ctx context.Context) (string, error) {
	if len(e.Args) == 0 {
		return "", errors.New("no export command configured")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Args[0], e.Args[1:]...)
	cmd.Dir = e.Dir
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExportError{Stderr: stderr.String(), Err: err}
		}
		return "", err
	}

	if _, err := os.Stat(e.Output); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", e.Output, ErrWorkbookNotFound)
	} else if err != nil {
		return "", err
	}
	return e.Output, nil
}
