// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Amr112345/yanu/internal/backend"
)

var (
	// ErrInvalidTempDir is returned when the temp_dir value is empty or
	// whitespace-only.
	ErrInvalidTempDir = errors.New("invalid temp dir")
	// ErrInvalidReader is returned when the reader value is not a known,
	// platform-supported reader backend.
	ErrInvalidReader = errors.New("invalid reader backend")
)

type (
	// Config holds the tool's settings: where temporary workspaces live,
	// where the cryptographic keyset file is, which reader backend to
	// prefer, and an optional cache-directory override.
	Config struct {
		// TempDir is the root under which pipeline workspaces are created.
		TempDir string `mapstructure:"temp_dir" toml:"temp_dir"`
		// KeysetPath points at the prod.keys file handed to the packer.
		// Empty means the well-known ~/.switch/prod.keys location.
		KeysetPath string `mapstructure:"keyset_path" toml:"keyset_path"`
		// Reader names the preferred reader backend (hactool, hactoolnet,
		// hac2l). It is tried first; the remaining supported readers stay
		// in the fallback chain.
		Reader string `mapstructure:"reader" toml:"reader"`
		// CacheDir overrides the per-user backend cache directory.
		CacheDir string `mapstructure:"cache_dir" toml:"cache_dir"`
	}
)

// Validate checks field values, wrapping the package sentinels.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TempDir) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTempDir)
	}

	kind, err := backend.ParseKind(c.Reader)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidReader, c.Reader)
	}
	if kind == backend.Hacpack {
		return fmt.Errorf("%w: %q is the packer", ErrInvalidReader, c.Reader)
	}
	if !kind.Supported() {
		return fmt.Errorf("%w: %q is not available on this platform", ErrInvalidReader, c.Reader)
	}
	return nil
}

// ReaderKinds returns the ranked reader list for this configuration: the
// configured reader first, then the platform's remaining supported readers
// as fallbacks.
func (c *Config) ReaderKinds() ([]backend.Kind, error) {
	preferred, err := backend.ParseKind(c.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReader, c.Reader)
	}

	kinds := []backend.Kind{preferred}
	for _, k := range backend.DefaultReaders() {
		if k != preferred {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
