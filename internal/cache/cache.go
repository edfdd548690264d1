// SPDX-License-Identifier: MPL-2.0

// Package cache provides the persistent on-disk store for acquired backend
// executables. The cache root is injectable so tests can substitute an
// isolated directory instead of mutating the real per-user cache.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used for the per-user cache.
const AppName = "yanu"

// ErrNotCached is returned by Path when the named file is not in the cache.
var ErrNotCached = errors.New("not cached")

// cacheDirOverride allows tests to override the default cache directory.
// This is necessary because os.UserCacheDir() doesn't reliably respect
// environment overrides on all platforms.
var cacheDirOverride string

// SetDirOverride sets a custom cache directory path. Primarily intended for
// testing to bypass os.UserCacheDir().
func SetDirOverride(dir string) {
	cacheDirOverride = dir
}

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	cacheDirOverride = ""
}

// DefaultDir returns the per-user cache directory using platform conventions:
// Windows uses %LOCALAPPDATA%, macOS uses ~/Library/Caches, and Linux/others
// use $XDG_CACHE_HOME (defaulting to ~/.cache).
func DefaultDir() (string, error) {
	if cacheDirOverride != "" {
		return cacheDirOverride, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

type (
	// Cache is a flat directory of named files that persists across runs.
	// All store operations create the root on demand; concurrent first-time
	// stores from two processes are not coordinated.
	Cache struct {
		root string
	}
)

// New returns a Cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Default returns a Cache rooted at the per-user cache directory.
func Default() (*Cache, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return New(dir), nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Contains reports whether a regular file with the given name exists in the
// cache. The file contents are not revalidated.
func (c *Cache) Contains(name string) bool {
	info, err := os.Stat(filepath.Join(c.root, name))
	return err == nil && info.Mode().IsRegular()
}

// Path returns the absolute path of the named cached file, or ErrNotCached
// if it does not exist.
func (c *Cache) Path(name string) (string, error) {
	p := filepath.Join(c.root, name)
	if !c.Contains(name) {
		return "", fmt.Errorf("%s: %w", p, ErrNotCached)
	}
	return filepath.Abs(p)
}

// StoreBytes writes data into the cache under name and returns the resulting
// absolute path.
func (c *Cache) StoreBytes(name string, data []byte) (string, error) {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("creating cache root: %w", err)
	}

	p := filepath.Join(c.root, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	return filepath.Abs(p)
}

// StorePath moves the file at src into the cache, keeping its base name, and
// returns the resulting absolute path. The move falls back to copy+remove
// when src resides on a different filesystem than the cache root.
func (c *Cache) StorePath(src string) (string, error) {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("creating cache root: %w", err)
	}

	dest := filepath.Join(c.root, filepath.Base(src))
	if err := MoveFile(src, dest); err != nil {
		return "", err
	}
	return filepath.Abs(dest)
}

// SetExecutable sets the executable permission bits on the named file.
// It is a no-op on Windows, where execute permission is filename-driven.
func SetExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// MoveFile renames src to dest, falling back to copy+remove when the rename
// crosses filesystems (temp dirs frequently live on a different mount than
// the cache or output directory).
func MoveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	if err := CopyFile(src, dest); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing %s after copy: %w", src, err)
	}
	return nil
}

// CopyFile copies src to dest, preserving the source's permission bits.
func CopyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }() // Read-only file; close error non-critical

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		// Best-effort removal of partially written destination.
		_ = os.Remove(dest)
		return fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	return nil
}
