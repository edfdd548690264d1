// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/config"
	"github.com/Amr112345/yanu/internal/issue"
	"github.com/Amr112345/yanu/internal/pipeline"
	"github.com/Amr112345/yanu/internal/ticket"
)

var (
	patchBase   string
	patchUpdate string
	patchOutdir string

	patchCmd = &cobra.Command{
		Use:   "patch",
		Short: "Apply an update NSP to a base NSP",
		Long: `Apply an update NSP to a base NSP and produce a single merged archive.

Both archives are extracted, the base Program entry and the update's
Program and Control entries are selected, the layered romfs/exefs trees
are repacked into a fresh Program entry, and everything is assembled into
<titleid>[patched].nsp in the output directory.

Title keys found in either archive's tickets are appended to the
well-known title.keys store so the tools can decrypt the content.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(cmd, patchBase, patchUpdate, patchOutdir)
		},
	}
)

func init() {
	patchCmd.Flags().StringVar(&patchBase, "base", "", "base NSP archive (required)")
	patchCmd.Flags().StringVar(&patchUpdate, "update", "", "update NSP archive (required)")
	patchCmd.Flags().StringVarP(&patchOutdir, "outdir", "o", ".", "directory for the patched archive")
	_ = patchCmd.MarkFlagRequired("base")
	_ = patchCmd.MarkFlagRequired("update")
}

func runPatch(cmd *cobra.Command, base, update, outdir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkKeyset(cfg); err != nil {
		return err
	}

	outdir, err = ensureOutdir(outdir)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("preparing backends: %w", err)
	}

	out, err := p.ApplyUpdate(cmd.Context(), base, update, outdir)
	if err != nil {
		return toolFailure(err)
	}

	fmt.Printf("%s Patched archive written to %s\n",
		SuccessStyle.Render("✓"), ValueStyle.Render(out.Path))
	return nil
}

// ensureOutdir creates the output directory if needed and returns its
// absolute path.
func ensureOutdir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	return abs, nil
}

// checkKeyset verifies the prod.keys keyset exists before any backend work
// starts. Failing up front beats a cryptic packer error half an hour into a
// from-source tool build.
func checkKeyset(cfg *config.Config) error {
	path := cfg.KeysetPath
	if path == "" {
		var err error
		path, err = ticket.DefaultKeysetPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err != nil {
		return issue.NewErrorContext().
			WithOperation("resolve keyset").
			WithResource(path).
			WithSuggestion("Dump prod.keys from your console with Lockpick_RCM and place it in ~/.switch").
			WithSuggestion("Or point keyset_path in the config at an existing keyset").
			Wrap(err).
			BuildError()
	}
	return nil
}

// toolFailure propagates an external tool's exit code through ExitError so
// scripts wrapping yanu see the original status.
func toolFailure(err error) error {
	var exitErr *backend.ExitStatusError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.Code, Err: err}
	}
	return err
}
