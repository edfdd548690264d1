// SPDX-License-Identifier: MPL-2.0

// Package nsp models an NSP container archive on disk: extraction of its
// contents through a reader backend and best-effort title-key derivation
// from the ticket the extraction yields.
package nsp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/ticket"
)

// Extension is the container archive filename extension.
const Extension = ".nsp"

var (
	// ErrNotAnNSP is returned when the given path does not carry the NSP
	// extension.
	ErrNotAnNSP = errors.New("not an NSP archive")
	// ErrNoTicket is returned when an extraction contains no ticket to
	// derive a title key from.
	ErrNoTicket = errors.New("no ticket in extraction")
)

type (
	// NSP is a handle to one container archive. TitleKey is nil until a
	// successful DeriveTitleKey.
	NSP struct {
		Path     string
		TitleKey *ticket.TitleKey
	}
)

// New validates that path names an existing .nsp file and returns a handle
// with an absolute path.
func New(path string) (*NSP, error) {
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotAnNSP)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return &NSP{Path: abs}, nil
}

// Extract unpacks the archive's contents into outdir using the reader's
// pfs0 mode. Fatal on a non-zero exit.
func (n *NSP) Extract(ctx context.Context, reader *backend.Backend, outdir string) error {
	log.Info("extracting archive", "nsp", n.Path, "outdir", outdir, "tool", reader.Kind().String())
	if err := reader.Run(ctx, extractArgs(reader.Kind(), n.Path, outdir)...); err != nil {
		return fmt.Errorf("extracting %s: %w", n.Path, err)
	}
	return nil
}

// extractArgs builds the pfs0 extraction command line for a reader kind.
func extractArgs(kind backend.Kind, path, outdir string) []string {
	switch kind {
	case backend.Hac2l:
		return []string{path, "--outdir", outdir}
	default: // hactool, hactoolnet
		return []string{"-t", "pfs0", "--outdir", outdir, path}
	}
}

// DeriveTitleKey locates a ticket in the extraction directory and reads the
// title id/key pair out of it, recording the result on the handle. Returns
// ErrNoTicket when the archive shipped without one; the patch pipeline
// treats any failure here as a warning, not an abort.
func (n *NSP) DeriveTitleKey(dir string) error {
	var ticketPath string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ticket.Extension) {
			return nil
		}
		ticketPath = path
		return fs.SkipAll
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	if ticketPath == "" {
		return fmt.Errorf("%s: %w", dir, ErrNoTicket)
	}

	key, err := ticket.Extract(ticketPath)
	if err != nil {
		return err
	}

	n.TitleKey = &key
	log.Debug("derived title key", "nsp", n.Path, "ticket", ticketPath)
	return nil
}
