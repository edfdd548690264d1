// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Amr112345/yanu/internal/backend"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty temp dir",
			mutate:  func(c *Config) { c.TempDir = "  " },
			wantErr: ErrInvalidTempDir,
		},
		{
			name:    "unknown reader",
			mutate:  func(c *Config) { c.Reader = "hacshim" },
			wantErr: ErrInvalidReader,
		},
		{
			name:    "packer as reader",
			mutate:  func(c *Config) { c.Reader = "hacpack" },
			wantErr: ErrInvalidReader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReaderKindsPreferredFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reader = "hactool"

	kinds, err := cfg.ReaderKinds()
	if err != nil {
		t.Fatalf("ReaderKinds() error = %v", err)
	}
	if kinds[0] != backend.Hactool {
		t.Errorf("kinds[0] = %v, want Hactool", kinds[0])
	}
	for _, k := range kinds[1:] {
		if k == backend.Hactool {
			t.Error("preferred reader duplicated in fallback chain")
		}
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TempDir == "" {
		t.Error("TempDir default is empty")
	}
	if _, err := backend.ParseKind(cfg.Reader); err != nil {
		t.Errorf("Reader default %q does not parse: %v", cfg.Reader, err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetConfigDirOverride(dir)

	contents := "temp_dir = \"/var/tmp\"\nreader = \"hactool\"\nkeyset_path = \"/keys/prod.keys\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TempDir != "/var/tmp" {
		t.Errorf("TempDir = %q", cfg.TempDir)
	}
	if cfg.KeysetPath != "/keys/prod.keys" {
		t.Errorf("KeysetPath = %q", cfg.KeysetPath)
	}
	if cfg.Reader != "hactool" {
		t.Errorf("Reader = %q", cfg.Reader)
	}
}

func TestLoadRejectsInvalidConfigFile(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetConfigDirOverride(dir)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("reader = \"bogus\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); !errors.Is(err, ErrInvalidReader) {
		t.Errorf("Load() error = %v, want ErrInvalidReader", err)
	}
}

func TestWriteDefaultThenLoadRoundTrips(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("WriteDefault() path = %q", path)
	}

	if _, err := WriteDefault(); err == nil {
		t.Error("second WriteDefault() did not refuse to overwrite")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("round-tripped config invalid: %v", err)
	}
}

func TestRender(t *testing.T) {
	cfg := DefaultConfig()
	out, err := cfg.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "temp_dir") || !strings.Contains(out, "reader") {
		t.Errorf("Render() output missing fields:\n%s", out)
	}
}
