// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/cache"
	"github.com/Amr112345/yanu/internal/nacp"
	"github.com/Amr112345/yanu/internal/nca"
	"github.com/Amr112345/yanu/internal/nsp"
)

var (
	// ErrNotControl is returned when the supplied entry is not a Control
	// type NCA.
	ErrNotControl = errors.New("not a Control type NCA")
	// ErrEmptyTitleID is returned when no usable title id was supplied.
	ErrEmptyTitleID = errors.New("empty title id")
)

// Repack packs the supplied romfs/exefs trees into a fresh Program entry,
// generates its Meta entry against the given control entry, and assembles
// all three into <titleid>[patched].nsp in outdir. The application
// name/author decoded from the control entry's NACP is returned alongside
// the archive.
func (p *Pipeline) Repack(ctx context.Context, controlPath, titleID, romfsDir, exefsDir, outdir string) (*nsp.NSP, nacp.Data, error) {
	var meta nacp.Data

	titleID = nca.NormalizeTitleID(titleID)
	if titleID == "" {
		return nil, meta, ErrEmptyTitleID
	}

	// Validate the given entry really is a Control NCA before staging
	// anything around it.
	control, err := nca.Classify(ctx, p.readers, controlPath)
	if err != nil {
		return nil, meta, err
	}
	if control.Type != nca.ContentControl {
		return nil, meta, fmt.Errorf("%s (%s): %w", control.Path, control.Type, ErrNotControl)
	}
	log.Debug("selected program id for packing", "titleid", titleID)

	ws, err := NewWorkspace(p.cfg.TempDir)
	if err != nil {
		return nil, meta, err
	}
	defer ws.Release()

	controlRomfs, err := ws.Dir("controlromfs")
	if err != nil {
		return nil, meta, err
	}

	log.Info("extracting control metadata", "control", control.Path)
	err = p.extractor().Run(ctx, unpackRomfsArgs(p.extractor().Kind(), control.Path, controlRomfs)...)
	if err := p.runStage("unpack-control", false, err); err != nil {
		return nil, meta, err
	}

	nacpPath, err := nacp.Find(controlRomfs)
	if err != nil {
		return nil, meta, err
	}
	meta, err = nacp.Parse(nacpPath)
	if err != nil {
		return nil, meta, err
	}

	// The control romfs served its purpose; drop it before the pack
	// doubles disk usage.
	if err := ws.ReleaseEarly("controlromfs"); err != nil {
		return nil, meta, err
	}

	ncaDir, err := ws.Dir("nca")
	if err != nil {
		return nil, meta, err
	}

	keyset, err := p.keysetPath()
	if err != nil {
		return nil, meta, err
	}

	log.Info("packing romfs/exefs into a program entry", "titleid", titleID)
	err = p.packer.Run(ctx,
		"--keyset", keyset,
		"--type", "nca",
		"--ncatype", "program",
		"--plaintext",
		"--exefsdir", exefsDir,
		"--romfsdir", romfsDir,
		"--titleid", titleID,
		"--outdir", ncaDir,
	)
	if err := p.runStage("pack-program", false, err); err != nil {
		return nil, meta, err
	}

	patched, err := nca.FindByType(ctx, p.readers, ncaDir, nca.ContentProgram, nca.FirstMatch)
	if err != nil {
		return nil, meta, fmt.Errorf("locating packed program entry: %w", err)
	}

	if err := p.runStage("pack-meta", false,
		p.packMeta(ctx, keyset, titleID, patched.Path, control.Path, ncaDir)); err != nil {
		return nil, meta, err
	}

	// The control entry travels into the archive alongside the fresh
	// program and meta entries. Copy, not move: the caller keeps their
	// original.
	if err := cache.CopyFile(control.Path, filepath.Join(ncaDir, filepath.Base(control.Path))); err != nil {
		return nil, meta, err
	}

	packed, err := p.assemble(ctx, ws, keyset, titleID, ncaDir, outdir)
	if err != nil {
		return nil, meta, err
	}
	return packed, meta, nil
}

// unpackRomfsArgs builds the romfs-extraction command line for a reader
// kind against a single NCA.
func unpackRomfsArgs(kind backend.Kind, ncaPath, outdir string) []string {
	switch kind {
	case backend.Hac2l:
		return []string{ncaPath, "--romfsdir", outdir}
	default: // hactool, hactoolnet
		return []string{"-t", "nca", "--romfsdir", outdir, ncaPath}
	}
}
