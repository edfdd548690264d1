// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates the multi-stage patch and repack flows:
// backend resolution, archive extraction, entry classification and
// selection, title-key derivation, and the repack/meta/assemble sequence
// that yields the final archive. Execution is strictly sequential — every
// external tool call blocks, and each stage consumes only what its
// predecessor produced.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/cache"
	"github.com/Amr112345/yanu/internal/config"
	"github.com/Amr112345/yanu/internal/ticket"
)

// patchedSuffix is the literal filename suffix of produced archives.
const patchedSuffix = "[patched]"

type (
	// Pipeline owns the backends and settings for one or more runs.
	// Construct via New; concurrent invocations of one Pipeline are not
	// coordinated — callers serialize or use distinct temp roots.
	Pipeline struct {
		cfg          *config.Config
		readers      []*backend.Backend
		packer       *backend.Backend
		keyStorePath string
	}

	// Option configures a Pipeline during construction.
	Option func(*Pipeline)
)

// WithBackends injects pre-resolved reader and packer backends, bypassing
// resolution against the cache. Primarily a test seam.
func WithBackends(readers []*backend.Backend, packer *backend.Backend) Option {
	return func(p *Pipeline) {
		p.readers = readers
		p.packer = packer
	}
}

// WithKeyStorePath overrides the well-known title.keys location.
func WithKeyStorePath(path string) Option {
	return func(p *Pipeline) {
		p.keyStorePath = path
	}
}

// New builds a Pipeline for cfg, resolving the configured reader backends
// and the packer unless WithBackends supplied them. Resolution may build
// tools from source on first use.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.keyStorePath == "" {
		path, err := ticket.DefaultKeyStorePath()
		if err != nil {
			return nil, err
		}
		p.keyStorePath = path
	}

	if p.packer != nil && len(p.readers) > 0 {
		return p, nil
	}

	c, err := p.cacheFor(cfg)
	if err != nil {
		return nil, err
	}

	kinds, err := cfg.ReaderKinds()
	if err != nil {
		return nil, err
	}
	for _, kind := range kinds {
		r, err := backend.NewWithCache(ctx, kind, c)
		if err != nil {
			return nil, fmt.Errorf("resolving reader %s: %w", kind, err)
		}
		p.readers = append(p.readers, r)
	}

	packer, err := backend.NewWithCache(ctx, backend.Hacpack, c)
	if err != nil {
		return nil, fmt.Errorf("resolving packer: %w", err)
	}
	p.packer = packer

	return p, nil
}

func (p *Pipeline) cacheFor(cfg *config.Config) (*cache.Cache, error) {
	if cfg.CacheDir != "" {
		return cache.New(cfg.CacheDir), nil
	}
	return cache.Default()
}

// keysetPath resolves the prod.keys location: the configured path, or the
// well-known ~/.switch default.
func (p *Pipeline) keysetPath() (string, error) {
	if p.cfg.KeysetPath != "" {
		return p.cfg.KeysetPath, nil
	}
	return ticket.DefaultKeysetPath()
}

// extractor is the preferred reader, used for the heavy extraction calls.
// Classification still walks the full fallback chain.
func (p *Pipeline) extractor() *backend.Backend {
	return p.readers[0]
}
