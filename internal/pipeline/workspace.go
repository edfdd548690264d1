// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type (
	// Workspace is the arena of scoped temporary directories one pipeline
	// invocation owns. Every subdirectory is created before first use and
	// released no later than Release; ReleaseEarly drops a named
	// subdirectory ahead of time to bound peak disk usage. Workspaces are
	// never shared between concurrent invocations — isolation comes from
	// the unique root, not locking.
	Workspace struct {
		root     string
		released bool
	}
)

// NewWorkspace creates a fresh workspace root under tempRoot.
func NewWorkspace(tempRoot string) (*Workspace, error) {
	root, err := os.MkdirTemp(tempRoot, "yanu-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Dir creates (if needed) and returns the named subdirectory. Nested names
// like "patch/nca" are allowed.
func (w *Workspace) Dir(name string) (string, error) {
	p := filepath.Join(w.root, name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace dir %s: %w", name, err)
	}
	return p, nil
}

// ReleaseEarly deletes the named subdirectory now, before the workspace as
// a whole is released. Used between extraction and repacking, where the
// extraction trees are no longer needed but dominate disk usage.
func (w *Workspace) ReleaseEarly(name string) error {
	p := filepath.Join(w.root, name)
	log.Info("cleaning up", "dir", p)
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("releasing workspace dir %s: %w", name, err)
	}
	return nil
}

// Release deletes the whole workspace tree. Idempotent; meant for defer so
// every exit path, including early error returns, releases the arena.
func (w *Workspace) Release() {
	if w.released {
		return
	}
	w.released = true
	if err := os.RemoveAll(w.root); err != nil {
		// Nothing actionable for the caller at this point; the temp root
		// reaper will collect leftovers.
		log.Warn("failed to release workspace", "root", w.root, "err", err)
	}
}
