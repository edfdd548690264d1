// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Amr112345/yanu/internal/cache"
)

func TestBuildParallelism(t *testing.T) {
	tests := []struct {
		name string
		cpus int
		want int
	}{
		{name: "eight cpus", cpus: 8, want: 4},
		{name: "two cpus", cpus: 2, want: 1},
		{name: "single cpu clamps to one", cpus: 1, want: 1},
		{name: "broken probe clamps to one", cpus: 0, want: 1},
	}

	orig := logicalCPUs
	t.Cleanup(func() { logicalCPUs = orig })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logicalCPUs = func() int { return tt.cpus }
			if got := buildParallelism(); got != tt.want {
				t.Errorf("buildParallelism() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildFromSourceCloneFailure(t *testing.T) {
	orig := runCommand
	runCommand = func(_ context.Context, _, _ string, _ ...string) error {
		return errors.New("remote unreachable")
	}
	t.Cleanup(func() { runCommand = orig })

	c := cache.New(t.TempDir())
	_, err := buildFromSource(context.Background(), Hacpack, c)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error = %v, want *BuildError", err)
	}
	if buildErr.Stage != StageClone {
		t.Errorf("Stage = %q, want %q", buildErr.Stage, StageClone)
	}
	if buildErr.Tool != "hacpack" {
		t.Errorf("Tool = %q, want hacpack", buildErr.Tool)
	}
}

func TestBuildFromSourceCompileFailure(t *testing.T) {
	orig := runCommand
	runCommand = func(_ context.Context, _, name string, args ...string) error {
		if name == "git" {
			dir := args[len(args)-1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "config.mk.template"), nil, 0o644)
		}
		return errors.New("cc: not found")
	}
	t.Cleanup(func() { runCommand = orig })

	c := cache.New(t.TempDir())
	_, err := buildFromSource(context.Background(), Hactool, c)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error = %v, want *BuildError", err)
	}
	if buildErr.Stage != StageCompile {
		t.Errorf("Stage = %q, want %q", buildErr.Stage, StageCompile)
	}
}

func TestBuildFromSourceConfigureFailure(t *testing.T) {
	// Clone succeeds but leaves no config.mk.template, so the rename fails.
	orig := runCommand
	runCommand = func(_ context.Context, _, name string, args ...string) error {
		if name == "git" {
			return os.MkdirAll(args[len(args)-1], 0o755)
		}
		return nil
	}
	t.Cleanup(func() { runCommand = orig })

	c := cache.New(t.TempDir())
	_, err := buildFromSource(context.Background(), Hacpack, c)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error = %v, want *BuildError", err)
	}
	if buildErr.Stage != StageConfigure {
		t.Errorf("Stage = %q, want %q", buildErr.Stage, StageConfigure)
	}
}

func TestBuildFromSourceHactoolnetHasNoSourceBuild(t *testing.T) {
	c := cache.New(t.TempDir())
	_, err := buildFromSource(context.Background(), Hactoolnet, c)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestDropLine(t *testing.T) {
	p := filepath.Join(t.TempDir(), "main.c")
	if err := os.WriteFile(p, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := dropLine(p, 2); err != nil {
		t.Fatalf("dropLine() error = %v", err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\nthree\n" {
		t.Errorf("contents = %q, want %q", data, "one\nthree\n")
	}

	if err := dropLine(p, 10); err == nil {
		t.Error("dropLine(out of range) did not error")
	}
}

func TestTail(t *testing.T) {
	if got := tail("abcdef", 3); got != "def" {
		t.Errorf("tail() = %q, want def", got)
	}
	if got := tail("ab", 3); got != "ab" {
		t.Errorf("tail() = %q, want ab", got)
	}
}
