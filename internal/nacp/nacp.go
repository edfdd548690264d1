// SPDX-License-Identifier: MPL-2.0

// Package nacp reads the application name/author descriptor out of the
// NACP file found in a control entry's romfs. Only the first language
// entry of the fixed layout is decoded; the rest of the structure is
// ignored.
package nacp

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// First language entry layout: application name then author, NUL-padded.
const (
	nameOffset = 0x0
	nameLen    = 0x200
	authorLen  = 0x100
	entryLen   = nameLen + authorLen
)

// Extension is the NACP filename extension inside a control romfs.
const Extension = ".nacp"

// ErrNoNACP is returned when a control romfs extraction carries no NACP
// file, which points at an improper extraction.
var ErrNoNACP = errors.New("no NACP file in extraction")

type (
	// Data is the decoded application descriptor.
	Data struct {
		Title  string
		Author string
	}
)

// Parse decodes the first language entry of the NACP file at path.
func Parse(path string) (Data, error) {
	var data Data

	f, err := os.Open(path)
	if err != nil {
		return data, fmt.Errorf("opening NACP %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	entry := make([]byte, entryLen)
	if _, err := f.ReadAt(entry, nameOffset); err != nil {
		return data, fmt.Errorf("reading NACP entry from %s: %w", path, err)
	}

	data.Title = trimField(entry[:nameLen])
	data.Author = trimField(entry[nameLen:])
	return data, nil
}

// Find walks dir for an NACP file and returns its path, or ErrNoNACP.
func Find(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), Extension) {
			return nil
		}
		found = path
		return fs.SkipAll
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%s: %w", dir, ErrNoNACP)
	}
	return found, nil
}

// trimField cuts a NUL-padded fixed-width field down to its string value.
func trimField(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
