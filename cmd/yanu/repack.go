// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr112345/yanu/internal/pipeline"
)

var (
	repackControl string
	repackTitleID string
	repackRomfs   string
	repackExefs   string
	repackOutdir  string

	repackCmd = &cobra.Command{
		Use:   "repack",
		Short: "Pack extracted romfs/exefs trees back into an NSP",
		Long: `Pack extracted romfs/exefs trees back into an NSP.

The supplied Control NCA provides the application metadata for the new
archive; a fresh Program entry is packed from the given trees and a Meta
entry generated against both. The result lands in the output directory
as <titleid>[patched].nsp.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepack(cmd)
		},
	}
)

func init() {
	repackCmd.Flags().StringVar(&repackControl, "controlnca", "", "Control type NCA (required)")
	repackCmd.Flags().StringVar(&repackTitleID, "titleid", "", "program title id (required)")
	repackCmd.Flags().StringVar(&repackRomfs, "romfsdir", "", "extracted romfs directory (required)")
	repackCmd.Flags().StringVar(&repackExefs, "exefsdir", "", "extracted exefs directory (required)")
	repackCmd.Flags().StringVarP(&repackOutdir, "outdir", "o", ".", "directory for the packed archive")
	_ = repackCmd.MarkFlagRequired("controlnca")
	_ = repackCmd.MarkFlagRequired("titleid")
	_ = repackCmd.MarkFlagRequired("romfsdir")
	_ = repackCmd.MarkFlagRequired("exefsdir")
}

func runRepack(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkKeyset(cfg); err != nil {
		return err
	}

	outdir, err := ensureOutdir(repackOutdir)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("preparing backends: %w", err)
	}

	out, meta, err := p.Repack(cmd.Context(), repackControl, repackTitleID, repackRomfs, repackExefs, outdir)
	if err != nil {
		return toolFailure(err)
	}

	fmt.Printf("%s Packed %s by %s\n",
		SuccessStyle.Render("✓"), ValueStyle.Render(meta.Title), ValueStyle.Render(meta.Author))
	fmt.Printf("  Archive written to %s\n", ValueStyle.Render(out.Path))
	return nil
}
