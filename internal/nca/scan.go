// SPDX-License-Identifier: MPL-2.0

package nca

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/cache"
)

// ErrNoEntry is the sentinel wrapped by NoEntryError.
var ErrNoEntry = errors.New("no matching entry")

type (
	// Selector decides whether a freshly classified candidate should
	// replace the currently selected entry. current is nil until a first
	// match is found. Selection is a strategy so the convention behind it
	// (the primary payload being the largest sibling of its kind) can be
	// swapped without touching the walk.
	Selector func(current, candidate *Entry) bool

	// NoEntryError reports that a full walk of Dir found no entry of the
	// required type. Fatal to the enclosing pipeline stage.
	NoEntryError struct {
		Dir  string
		Type ContentType
	}
)

// Error implements the error interface.
func (e *NoEntryError) Error() string {
	return fmt.Sprintf("no %s entry in %s", e.Type, e.Dir)
}

// Unwrap returns ErrNoEntry for errors.Is chains.
func (e *NoEntryError) Unwrap() error { return ErrNoEntry }

// LargestFirst keeps the candidate with the largest file size; equal sizes
// keep the first encountered in walk order. This is the default selection
// rule: the primary payload of a kind is conventionally packaged as the
// largest sibling entry.
func LargestFirst(current, candidate *Entry) bool {
	return current == nil || candidate.Size > current.Size
}

// FirstMatch keeps the first candidate encountered, independent of size.
// Used for update archives, which typically carry exactly one entry per
// kind.
func FirstMatch(current, candidate *Entry) bool {
	return current == nil
}

// FindByType walks dir for NCA entries, classifies each via the readers,
// and returns the entry of the wanted type chosen by sel. Entries that are
// not valid containers are skipped with a warning. A full walk without a
// match returns a NoEntryError.
func FindByType(ctx context.Context, readers []*backend.Backend, dir string, want ContentType, sel Selector) (*Entry, error) {
	var selected *Entry

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), Extension) {
			return nil
		}

		entry, err := Classify(ctx, readers, path)
		if err != nil {
			// Non-fatal per entry: skip and continue the walk.
			log.Warn("skipping unclassifiable entry", "path", path, "err", err)
			return nil
		}
		if entry.Type != want {
			return nil
		}

		if sel(selected, entry) {
			selected = entry
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	if selected == nil {
		return nil, &NoEntryError{Dir: dir, Type: want}
	}
	return selected, nil
}

// Relocate moves the entry's backing file into dir, keeping its base name,
// and updates the entry's recorded path.
func (e *Entry) Relocate(dir string) error {
	dest := filepath.Join(dir, filepath.Base(e.Path))
	if err := cache.MoveFile(e.Path, dest); err != nil {
		return fmt.Errorf("relocating %s: %w", e.Path, err)
	}
	e.Path = dest
	return nil
}
