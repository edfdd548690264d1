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
	"github.com/Amr112345/yanu/internal/nca"
	"github.com/Amr112345/yanu/internal/nsp"
	"github.com/Amr112345/yanu/internal/ticket"
)

// ErrMissingTitleID is returned when the base Program entry carries no
// title identifier to name the output after.
var ErrMissingTitleID = errors.New("base program entry has no title id")

// ApplyUpdate merges the update archive into the base archive and writes
// the patched result as <titleid>[patched].nsp into outdir, returning a
// handle to it. The workspace is released on every exit path; the two
// extraction trees are dropped early, before repacking, to bound peak disk
// usage.
func (p *Pipeline) ApplyUpdate(ctx context.Context, basePath, updatePath, outdir string) (*nsp.NSP, error) {
	base, err := nsp.New(basePath)
	if err != nil {
		return nil, err
	}
	update, err := nsp.New(updatePath)
	if err != nil {
		return nil, err
	}

	ws, err := NewWorkspace(p.cfg.TempDir)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	baseDir, err := ws.Dir("basedata")
	if err != nil {
		return nil, err
	}
	updateDir, err := ws.Dir("updatedata")
	if err != nil {
		return nil, err
	}

	if err := p.runStage("extract-base", false, base.Extract(ctx, p.extractor(), baseDir)); err != nil {
		return nil, err
	}
	if err := p.runStage("extract-update", false, update.Extract(ctx, p.extractor(), updateDir)); err != nil {
		return nil, err
	}

	// Title-key derivation is best-effort: a failure costs the merged
	// archive its key, nothing more.
	var keys []ticket.TitleKey
	for _, src := range []struct {
		archive *nsp.NSP
		dir     string
	}{
		{base, baseDir},
		{update, updateDir},
	} {
		if err := src.archive.DeriveTitleKey(src.dir); err != nil {
			_ = proceed("derive-titlekey", warn(err))
			continue
		}
		keys = append(keys, *src.archive.TitleKey)
	}
	if err := ticket.AppendKeys(p.keyStorePath, keys...); err != nil {
		return nil, err
	}

	baseProgram, err := nca.FindByType(ctx, p.readers, baseDir, nca.ContentProgram, nca.LargestFirst)
	if err != nil {
		return nil, err
	}
	log.Debug("selected base program entry", "path", baseProgram.Path, "size", baseProgram.Size)

	// Updates typically carry exactly one entry per kind, so first match
	// suffices and skips redundant classification work.
	updateProgram, err := nca.FindByType(ctx, p.readers, updateDir, nca.ContentProgram, nca.FirstMatch)
	if err != nil {
		return nil, err
	}
	control, err := nca.FindByType(ctx, p.readers, updateDir, nca.ContentControl, nca.FirstMatch)
	if err != nil {
		return nil, err
	}

	ncaDir, err := ws.Dir("patch/nca")
	if err != nil {
		return nil, err
	}
	if err := control.Relocate(ncaDir); err != nil {
		return nil, err
	}

	// Early cleanup: the extraction trees are no longer needed and the
	// repack below doubles disk usage if they linger.
	if err := ws.ReleaseEarly("basedata"); err != nil {
		return nil, err
	}
	if err := ws.ReleaseEarly("updatedata"); err != nil {
		return nil, err
	}

	romfsDir, err := ws.Dir("patch/romfs")
	if err != nil {
		return nil, err
	}
	exefsDir, err := ws.Dir("patch/exefs")
	if err != nil {
		return nil, err
	}

	// A partial romfs/exefs extraction is frequently still packable, so a
	// non-zero exit here degrades instead of aborting.
	log.Info("extracting romfs/exefs", "base", baseProgram.Path, "update", updateProgram.Path)
	err = p.extractor().Run(ctx,
		"--basenca", baseProgram.Path, updateProgram.Path,
		"--romfsdir", romfsDir,
		"--exefsdir", exefsDir,
	)
	if err := p.runStage("extract-fs", true, err); err != nil {
		return nil, err
	}

	titleID := nca.NormalizeTitleID(baseProgram.TitleID)
	if titleID == "" {
		return nil, fmt.Errorf("%s: %w", baseProgram.Path, ErrMissingTitleID)
	}

	keyset, err := p.keysetPath()
	if err != nil {
		return nil, err
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
		return nil, err
	}

	patched, err := nca.FindByType(ctx, p.readers, ncaDir, nca.ContentProgram, nca.FirstMatch)
	if err != nil {
		return nil, fmt.Errorf("locating packed program entry: %w", err)
	}

	if err := p.runStage("pack-meta", false,
		p.packMeta(ctx, keyset, titleID, patched.Path, control.Path, ncaDir)); err != nil {
		return nil, err
	}

	return p.assemble(ctx, ws, keyset, titleID, ncaDir, outdir)
}

// packMeta generates the Meta entry referencing the program and control
// entries.
func (p *Pipeline) packMeta(ctx context.Context, keyset, titleID, programPath, controlPath, outdir string) error {
	log.Info("generating meta entry", "program", programPath, "control", controlPath)
	return p.packer.Run(ctx,
		"--keyset", keyset,
		"--type", "nca",
		"--ncatype", "meta",
		"--titletype", "application",
		"--programnca", programPath,
		"--controlnca", controlPath,
		"--titleid", titleID,
		"--outdir", outdir,
	)
}

// assemble packs the staged entries into the final archive inside the
// workspace and moves it to outdir under the deterministic patched name.
func (p *Pipeline) assemble(ctx context.Context, ws *Workspace, keyset, titleID, ncaDir, outdir string) (*nsp.NSP, error) {
	log.Info("packing entries into archive", "titleid", titleID)
	err := p.packer.Run(ctx,
		"--keyset", keyset,
		"--type", "nsp",
		"--ncadir", ncaDir,
		"--titleid", titleID,
		"--outdir", ws.Root(),
	)
	if err := p.runStage("pack-archive", false, err); err != nil {
		return nil, err
	}

	packed := filepath.Join(ws.Root(), titleID+nsp.Extension)
	dest := filepath.Join(outdir, titleID+patchedSuffix+nsp.Extension)
	log.Info("moving archive", "from", packed, "to", dest)
	if err := cache.MoveFile(packed, dest); err != nil {
		return nil, err
	}

	return nsp.New(dest)
}

// runStage applies the continuation policy to a stage result: tool exits
// downgrade to warnings only where warnOnExit says so; anything else
// non-nil is fatal.
func (p *Pipeline) runStage(stage string, warnOnExit bool, err error) error {
	if err == nil {
		return proceed(stage, ok())
	}

	var exitErr *backend.ExitStatusError
	if warnOnExit && errors.As(err, &exitErr) {
		return proceed(stage, warn(err))
	}
	return proceed(stage, fatal(fmt.Errorf("%s: %w", stage, err)))
}
