// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"
)

type (
	// ExitStatusError reports a non-zero exit from an external tool,
	// carrying the exit code and the tool's stderr tail for diagnosis.
	ExitStatusError struct {
		Tool   string
		Code   int
		Stderr string
	}
)

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, e.Stderr)
}

// Run invokes the backend with the given arguments and blocks until it
// exits. Stdout is discarded; stderr is captured and surfaced through
// ExitStatusError on a non-zero exit. There is no timeout — a hung tool
// hangs the caller.
func (b *Backend) Run(ctx context.Context, args ...string) error {
	_, err := b.run(ctx, io.Discard, args)
	return err
}

// Output invokes the backend and returns its captured stdout. Used for the
// tools' inspection modes, where classification is parsed from the output.
func (b *Backend) Output(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	_, err := b.run(ctx, &stdout, args)
	return stdout.String(), err
}

func (b *Backend) run(ctx context.Context, stdout io.Writer, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, b.path, args...)

	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	log.Debug("invoking backend", "tool", b.kind.String(), "args", args)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), &ExitStatusError{
				Tool:   b.kind.String(),
				Code:   exitErr.ExitCode(),
				Stderr: tail(stderr.String(), 1024),
			}
		}
		return -1, fmt.Errorf("invoking %s: %w", b.kind, err)
	}
	return 0, nil
}
