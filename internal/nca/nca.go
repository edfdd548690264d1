// SPDX-License-Identifier: MPL-2.0

// Package nca classifies NCA container entries and selects candidates out
// of extraction directories.
//
// Classification shells out to a ranked list of reader backends in their
// inspection mode and parses the reported content type and title id; the
// first reader producing a definitive answer wins. No byte-level NCA
// parsing happens here — the readers own the format.
package nca

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/backend"
)

// Extension is the filename extension entries of interest carry during
// directory walks.
const Extension = ".nca"

// TitleIDLen is the fixed width of a title identifier in hex characters.
// Longer ids reported by tools are truncated before any downstream use.
const TitleIDLen = 16

const (
	// ContentUnknown marks output the readers reported but this package
	// does not recognize.
	ContentUnknown ContentType = iota
	// ContentProgram is the primary payload entry (romfs/exefs carrier).
	ContentProgram
	// ContentControl carries application metadata (NACP, icons).
	ContentControl
	// ContentMeta is the CNMT entry referencing the others.
	ContentMeta
	// ContentManual is the HTML manual entry.
	ContentManual
	// ContentData is a generic data entry.
	ContentData
	// ContentPublicData is a public data entry.
	ContentPublicData
)

// ErrNotAContainer is returned when no reader recognizes the file as an
// NCA. Callers scanning directories treat it as non-fatal and skip.
var ErrNotAContainer = errors.New("not an NCA container")

type (
	// ContentType is the classification of one container entry.
	ContentType int

	// Entry is one classified container entry. Path is updated when the
	// backing file is relocated; everything else is fixed at
	// classification time.
	Entry struct {
		Path    string
		Type    ContentType
		TitleID string
		Size    int64
	}
)

// contentTypeNames maps the strings the reader tools print to ContentType.
// hactool and hactoolnet agree on these labels; hac2l adds qualifiers that
// the prefix match below tolerates.
var contentTypeNames = map[string]ContentType{
	"program":    ContentProgram,
	"control":    ContentControl,
	"meta":       ContentMeta,
	"manual":     ContentManual,
	"data":       ContentData,
	"publicdata": ContentPublicData,
}

// String returns the lowercase content type name.
func (t ContentType) String() string {
	for name, ct := range contentTypeNames {
		if ct == t {
			return name
		}
	}
	return "unknown"
}

// ParseContentType maps a tool-reported label to a ContentType. Matching is
// case-insensitive and ignores trailing qualifiers ("Program (...)").
func ParseContentType(label string) ContentType {
	norm := strings.ToLower(strings.TrimSpace(label))
	for name, ct := range contentTypeNames {
		if strings.HasPrefix(norm, name) {
			return ct
		}
	}
	return ContentUnknown
}

// Classify resolves the content type and title id of the file at path by
// invoking each reader in order and stopping at the first definitive
// answer. Returns ErrNotAContainer when every reader fails or reports an
// unrecognized type; callers walking directories skip such files.
func Classify(ctx context.Context, readers []*backend.Backend, path string) (*Entry, error) {
	if len(readers) == 0 {
		return nil, errors.New("no reader backends configured")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	for _, r := range readers {
		out, err := r.Output(ctx, inspectArgs(r.Kind(), abs)...)
		if err != nil {
			log.Debug("reader rejected entry", "tool", r.Kind().String(), "path", abs, "err", err)
			continue
		}

		entry := parseInspectOutput(out)
		if entry == nil {
			log.Debug("reader output had no content type", "tool", r.Kind().String(), "path", abs)
			continue
		}

		entry.Path = abs
		entry.Size = info.Size()
		log.Debug("classified entry",
			"path", abs, "type", entry.Type.String(), "titleid", entry.TitleID, "tool", r.Kind().String())
		return entry, nil
	}

	return nil, fmt.Errorf("%s: %w", abs, ErrNotAContainer)
}

// inspectArgs builds the inspection-mode command line for a reader kind.
func inspectArgs(kind backend.Kind, path string) []string {
	switch kind {
	case backend.Hac2l:
		return []string{path}
	default: // hactool, hactoolnet
		return []string{"-t", "nca", path}
	}
}

// parseInspectOutput extracts content type and title id from a reader's
// inspection output. Returns nil when no recognizable content type is
// present (the definitive-answer test for the fallback chain).
func parseInspectOutput(out string) *Entry {
	var (
		entry   Entry
		typeSet bool
	)

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "content type":
			if ct := ParseContentType(value); ct != ContentUnknown && !typeSet {
				entry.Type = ct
				typeSet = true
			}
		case "title id", "program id":
			if entry.TitleID == "" {
				entry.TitleID = NormalizeTitleID(value)
			}
		}
	}

	if !typeSet {
		return nil
	}
	return &entry
}

// NormalizeTitleID lowercases a title identifier and truncates it to the
// fixed width used in command lines and output filenames.
func NormalizeTitleID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) > TitleIDLen {
		id = id[:TitleIDLen]
	}
	return id
}
