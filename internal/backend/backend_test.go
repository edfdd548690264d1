// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Amr112345/yanu/internal/cache"
)

// stubBuildCommands replaces runCommand with a fake toolchain: "git clone"
// materializes a minimal source tree (config template plus a prebuilt
// binary), "make" is a no-op. Returns a counter of issued commands.
func stubBuildCommands(t *testing.T, kind Kind) *int {
	t.Helper()

	calls := 0
	orig := runCommand
	runCommand = func(_ context.Context, _, name string, args ...string) error {
		calls++
		if name == "git" {
			dir := args[len(args)-1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(dir, "config.mk.template"), []byte("# config\n"), 0o644); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, kind.String()), []byte("fake binary"), 0o644)
		}
		return nil
	}
	t.Cleanup(func() { runCommand = orig })
	return &calls
}

func TestNewWithCacheBuildsOnceThenHits(t *testing.T) {
	calls := stubBuildCommands(t, Hactool)
	c := cache.New(filepath.Join(t.TempDir(), "cache"))
	ctx := context.Background()

	first, err := NewWithCache(ctx, Hactool, c)
	if err != nil {
		t.Fatalf("first NewWithCache() error = %v", err)
	}
	buildCalls := *calls
	if buildCalls == 0 {
		t.Fatal("first resolution issued no build commands")
	}

	second, err := NewWithCache(ctx, Hactool, c)
	if err != nil {
		t.Fatalf("second NewWithCache() error = %v", err)
	}

	if *calls != buildCalls {
		t.Errorf("second resolution issued %d extra commands, want cache hit", *calls-buildCalls)
	}
	if first.Path() != second.Path() {
		t.Errorf("paths differ across resolutions: %q vs %q", first.Path(), second.Path())
	}
	if second.Kind() != Hactool {
		t.Errorf("Kind() = %v, want Hactool", second.Kind())
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(first.Path())
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("resolved binary mode = %v, want executable", info.Mode())
		}
	}
}

func TestNewWithCachePrefersEmbeddedPayload(t *testing.T) {
	calls := stubBuildCommands(t, Hactool)
	RegisterPayload(Hactool, []byte("embedded binary"))
	t.Cleanup(func() { delete(payloads, Hactool) })

	c := cache.New(filepath.Join(t.TempDir(), "cache"))
	b, err := NewWithCache(context.Background(), Hactool, c)
	if err != nil {
		t.Fatalf("NewWithCache() error = %v", err)
	}

	if *calls != 0 {
		t.Errorf("embedded payload path issued %d build commands, want 0", *calls)
	}
	data, err := os.ReadFile(b.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "embedded binary" {
		t.Errorf("extracted payload = %q", data)
	}
}

func TestNewWithCacheUnsupportedKind(t *testing.T) {
	if Hac2l.Supported() {
		t.Skip("hac2l is supported on this platform")
	}

	c := cache.New(t.TempDir())
	if _, err := NewWithCache(context.Background(), Hac2l, c); !errors.Is(err, ErrUnsupported) {
		t.Errorf("NewWithCache(unsupported) error = %v, want ErrUnsupported", err)
	}
}
