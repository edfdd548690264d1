// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr112345/yanu/internal/backend"
	"github.com/Amr112345/yanu/internal/cache"
	"github.com/Amr112345/yanu/internal/config"
)

// allKinds is the display order for `backends list`.
var allKinds = []backend.Kind{backend.Hactool, backend.Hactoolnet, backend.Hac2l, backend.Hacpack}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Manage the external tool cache",
	Long: `Manage the external tool cache.

yanu drives external tools (hactool, hactoolnet, hac2l, hacpack) for all
container work. Each tool is resolved on first use: cache hit, embedded
payload, or a from-source build. These commands inspect the cache and
pre-resolve tools ahead of a patch run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	backendsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show per-tool availability and cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBackends()
		},
	})

	backendsCmd.AddCommand(&cobra.Command{
		Use:   "build [tool...]",
		Short: "Resolve tools into the cache ahead of time",
		Long: `Resolve tools into the cache ahead of time.

Without arguments every tool supported on this platform is resolved.
Resolution may clone and compile the tool's sources, so the first run
can take a while.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildBackends(cmd, args)
		},
	})
}

// cacheFromConfig opens the tool cache the pipeline would use.
func cacheFromConfig(cfg *config.Config) (*cache.Cache, error) {
	if cfg.CacheDir != "" {
		return cache.New(cfg.CacheDir), nil
	}
	return cache.Default()
}

func listBackends() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := cacheFromConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Tool cache"))
	fmt.Printf("%s: %s\n\n", ValueStyle.Render("Cache directory"), c.Root())

	for _, k := range allKinds {
		switch {
		case !k.Supported():
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("-"),
				SubtitleStyle.Render(k.String()+" (unsupported on this platform)"))
		case c.Contains(k.Filename()):
			path, err := c.Path(k.Filename())
			if err != nil {
				return err
			}
			fmt.Printf("  %s %s  %s\n", SuccessStyle.Render("✓"), k.String(), SubtitleStyle.Render(path))
		default:
			fmt.Printf("  %s %s  %s\n", WarningStyle.Render("·"), k.String(),
				SubtitleStyle.Render("(not cached; resolved on first use)"))
		}
	}
	return nil
}

func buildBackends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := cacheFromConfig(cfg)
	if err != nil {
		return err
	}

	kinds, err := kindsFromArgs(args)
	if err != nil {
		return err
	}

	for _, k := range kinds {
		fmt.Printf("Resolving %s...\n", ValueStyle.Render(k.String()))
		b, err := backend.NewWithCache(cmd.Context(), k, c)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", k, err)
		}
		fmt.Printf("%s %s at %s\n", SuccessStyle.Render("✓"), k.String(), SubtitleStyle.Render(b.Path()))
	}
	return nil
}

// kindsFromArgs parses the requested tool names, defaulting to every kind
// supported on this platform.
func kindsFromArgs(args []string) ([]backend.Kind, error) {
	if len(args) == 0 {
		var kinds []backend.Kind
		for _, k := range allKinds {
			if k.Supported() {
				kinds = append(kinds, k)
			}
		}
		return kinds, nil
	}

	var kinds []backend.Kind
	for _, name := range args {
		k, err := backend.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !k.Supported() {
			return nil, fmt.Errorf("%s: %w", name, backend.ErrUnsupported)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
