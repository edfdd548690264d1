// SPDX-License-Identifier: MPL-2.0

// Package ticket extracts title identifier/key pairs from fixed-layout
// ticket binaries and maintains the append-only title.keys store.
//
// This is deliberately a minimal reading of the ticket format: two
// positioned reads at known offsets, no signature or version validation.
package ticket

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Fixed byte offsets of the two fields inside a ticket. Everything around
// them is ignored.
const (
	titleIDOffset  = 0x2a0
	titleKeyOffset = 0x180
	fieldLen       = 16
)

// Extension is the ticket filename extension inside NSP extractions.
const Extension = ".tik"

type (
	// TitleKey is an immutable title identifier/decryption key pair.
	TitleKey struct {
		TitleID [fieldLen]byte
		Key     [fieldLen]byte
	}
)

// String renders the pair in the title.keys line format:
// lowercase-hex(title_id)=lowercase-hex(key).
func (k TitleKey) String() string {
	return fmt.Sprintf("%s=%s", hex.EncodeToString(k.TitleID[:]), hex.EncodeToString(k.Key[:]))
}

// Extract reads the title id and key fields out of the ticket at path.
// A ticket shorter than required or unreadable yields an error; callers in
// the patch pipeline downgrade that to a warning.
func Extract(path string) (TitleKey, error) {
	var key TitleKey

	f, err := os.Open(path)
	if err != nil {
		return key, fmt.Errorf("opening ticket %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	log.Debug("reading ticket", "path", path)

	if _, err := f.ReadAt(key.TitleID[:], titleIDOffset); err != nil {
		return key, fmt.Errorf("reading title id from %s: %w", path, err)
	}
	if _, err := f.ReadAt(key.Key[:], titleKeyOffset); err != nil {
		return key, fmt.Errorf("reading title key from %s: %w", path, err)
	}

	return key, nil
}

// AppendKeys appends the given keys to the key-store file at path, one line
// per key, creating the file and its parent directories as needed. Existing
// entries are never truncated.
func AppendKeys(path string, keys ...TitleKey) (err error) {
	if len(keys) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating key-store dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening key store %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k.String())
		sb.WriteByte('\n')
	}

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("appending to key store %s: %w", path, err)
	}

	log.Info("stored title keys", "keyfile", path, "count", len(keys))
	return nil
}

// DefaultKeyStorePath returns the well-known ~/.switch/title.keys location.
func DefaultKeyStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".switch", "title.keys"), nil
}

// DefaultKeysetPath returns the well-known ~/.switch/prod.keys location the
// packer's --keyset flag points at by default.
func DefaultKeysetPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".switch", "prod.keys"), nil
}
