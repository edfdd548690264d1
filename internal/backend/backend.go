// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/cache"
)

type (
	// Backend pairs a Kind with a resolved absolute executable path. The
	// handle is transient; the cached file it points at persists across
	// runs. A Backend is never mutated after construction.
	Backend struct {
		kind Kind
		path string
	}
)

// New resolves kind against the default per-user cache. See NewWithCache.
func New(ctx context.Context, kind Kind) (*Backend, error) {
	c, err := cache.Default()
	if err != nil {
		return nil, err
	}
	return NewWithCache(ctx, kind, c)
}

// NewWithCache resolves kind to a local executable: a cache hit is returned
// as-is (no content revalidation), otherwise an embedded payload is written
// out, otherwise the tool is built from upstream source. Any freshly
// acquired executable gets its executable bit set (non-Windows).
func NewWithCache(ctx context.Context, kind Kind, c *cache.Cache) (*Backend, error) {
	if !kind.Supported() {
		return nil, fmt.Errorf("%s: %w", kind, ErrUnsupported)
	}

	filename := kind.Filename()
	if c.Contains(filename) {
		path, err := c.Path(filename)
		if err != nil {
			return nil, err
		}
		log.Debug("backend cache hit", "tool", kind.String(), "path", path)
		return &Backend{kind: kind, path: path}, nil
	}

	var (
		path string
		err  error
	)
	if data, ok := embeddedPayload(kind); ok {
		log.Info("extracting embedded backend", "tool", kind.String())
		path, err = c.StoreBytes(filename, data)
	} else {
		path, err = buildFromSource(ctx, kind, c)
	}
	if err != nil {
		return nil, err
	}

	if err := cache.SetExecutable(path); err != nil {
		return nil, err
	}
	return &Backend{kind: kind, path: path}, nil
}

// Kind returns the tool identity.
func (b *Backend) Kind() Kind {
	return b.kind
}

// Path returns the absolute executable path.
func (b *Backend) Path() string {
	return b.path
}
