// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Amr112345/yanu/internal/cache"
)

// Build stages, named in BuildError so a failure report pinpoints where the
// acquisition broke without rerunning in verbose mode.
const (
	StageClone     = "clone"
	StageConfigure = "configure"
	StageCompile   = "compile"
	StageInstall   = "install"
)

// Upstream source repositories for the buildable tools.
const (
	hacpackRepo    = "https://github.com/The-4n/hacPack"
	hactoolRepo    = "https://github.com/SciresM/hactool"
	atmosphereRepo = "https://github.com/Atmosphere-NX/Atmosphere.git"
	hac2lRepo      = "https://github.com/Atmosphere-NX/hac2l.git"
)

var (
	// runCommand executes an external build command with its output routed
	// to the debug log. Package var so tests can stub the toolchain.
	//
	//nolint:gochecknoglobals // Test seam for git/make invocations.
	runCommand = runBuildCommand

	// logicalCPUs probes the logical CPU count for make parallelism.
	//
	//nolint:gochecknoglobals // Test seam for runtime.NumCPU().
	logicalCPUs = runtime.NumCPU
)

type (
	// BuildError reports a failed source build, naming the tool and the
	// stage (clone, configure, compile, install) that broke.
	BuildError struct {
		Tool  string
		Stage string
		Err   error
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: %s stage failed: %v", e.Tool, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *BuildError) Unwrap() error { return e.Err }

// buildFromSource clones, builds, and installs kind into the cache,
// returning the installed executable path.
func buildFromSource(ctx context.Context, kind Kind, c *cache.Cache) (string, error) {
	switch kind {
	case Hacpack:
		return buildMakeTool(ctx, kind, hacpackRepo, c)
	case Hactool:
		return buildMakeTool(ctx, kind, hactoolRepo, c)
	case Hac2l:
		return buildHac2l(ctx, c)
	case Hactoolnet:
		// hactoolnet is a .NET binary with no make-based build; it is only
		// available as an embedded payload.
		return "", &BuildError{Tool: kind.String(), Stage: StageClone, Err: ErrUnsupported}
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
}

// buildMakeTool covers hactool and hacpack, which share the same build
// shape: clone, rename config.mk.template, make, move the binary out.
func buildMakeTool(ctx context.Context, kind Kind, repo string, c *cache.Cache) (_ string, err error) {
	name := kind.String()
	log.Info("building backend from source", "tool", name, "repo", repo)

	srcDir, err := os.MkdirTemp("", "yanu-build-*")
	if err != nil {
		return "", &BuildError{Tool: name, Stage: StageClone, Err: err}
	}
	defer func() { _ = os.RemoveAll(srcDir) }()

	if err := runCommand(ctx, "", "git", "clone", repo, srcDir); err != nil {
		return "", &BuildError{Tool: name, Stage: StageClone, Err: err}
	}

	if err := configureMakeTool(kind, srcDir); err != nil {
		return "", &BuildError{Tool: name, Stage: StageConfigure, Err: err}
	}

	if err := runCommand(ctx, srcDir, "make", "-j", strconv.Itoa(buildParallelism())); err != nil {
		return "", &BuildError{Tool: name, Stage: StageCompile, Err: err}
	}

	dest, err := c.StorePath(filepath.Join(srcDir, name))
	if err != nil {
		return "", &BuildError{Tool: name, Stage: StageInstall, Err: err}
	}
	return dest, nil
}

// configureMakeTool applies the pre-build fixups: the template config rename
// both tools need, and the hactool main.c line removal that unbreaks the
// android build.
func configureMakeTool(kind Kind, srcDir string) error {
	if err := os.Rename(
		filepath.Join(srcDir, "config.mk.template"),
		filepath.Join(srcDir, "config.mk"),
	); err != nil {
		return err
	}

	if kind == Hactool && runtime.GOOS == "android" {
		return dropLine(filepath.Join(srcDir, "main.c"), 372)
	}
	return nil
}

// buildHac2l builds hac2l inside an Atmosphere checkout, which provides the
// build environment the tool's makefile expects.
func buildHac2l(ctx context.Context, c *cache.Cache) (_ string, err error) {
	name := Hac2l.String()
	log.Info("building backend from source", "tool", name, "repo", hac2lRepo)

	srcDir, err := os.MkdirTemp("", "yanu-build-*")
	if err != nil {
		return "", &BuildError{Tool: name, Stage: StageClone, Err: err}
	}
	defer func() { _ = os.RemoveAll(srcDir) }()

	if err := runCommand(ctx, "", "git", "clone", atmosphereRepo, srcDir); err != nil {
		return "", &BuildError{Tool: name, Stage: StageClone, Err: err}
	}

	toolDir := filepath.Join(srcDir, "tools", "hac2l")
	if err := runCommand(ctx, "", "git", "clone", hac2lRepo, toolDir); err != nil {
		return "", &BuildError{Tool: name, Stage: StageClone, Err: err}
	}

	if err := runCommand(ctx, toolDir, "make", "-j", strconv.Itoa(buildParallelism())); err != nil {
		return "", &BuildError{Tool: name, Stage: StageCompile, Err: err}
	}

	built := filepath.Join(toolDir, "out", "generic_linux_x64", "release", name)
	dest, err := c.StorePath(built)
	if err != nil {
		return "", &BuildError{Tool: name, Stage: StageInstall, Err: err}
	}
	return dest, nil
}

// buildParallelism returns half the logical CPU count, clamped to a minimum
// of 1 so a failed or tiny probe never stalls the build.
func buildParallelism() int {
	n := logicalCPUs() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// dropLine rewrites path without the given 1-based line.
func dropLine(path string, line int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Errorf("%s: line %d out of range", path, line)
	}
	fixed := append(lines[:line-1], lines[line:]...)

	return os.WriteFile(path, []byte(strings.Join(fixed, "\n")), 0o644)
}

// runBuildCommand runs a build tool with combined output captured into the
// debug log; on failure the output tail rides along in the error.
func runBuildCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug("running build command", "cmd", name, "args", args, "dir", dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, tail(out.String(), 2048))
	}
	return nil
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
