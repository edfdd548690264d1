// SPDX-License-Identifier: MPL-2.0

package nsp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "base.nsp")
	if err := os.WriteFile(p, []byte("pfs0"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := New(p)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !filepath.IsAbs(n.Path) {
		t.Errorf("Path %q is not absolute", n.Path)
	}
	if n.TitleKey != nil {
		t.Error("TitleKey set before derivation")
	}
}

func TestNewRejectsWrongExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "base.xci")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(p); !errors.Is(err, ErrNotAnNSP) {
		t.Errorf("New(.xci) error = %v, want ErrNotAnNSP", err)
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "gone.nsp")); err == nil {
		t.Error("New(missing) did not error")
	}
}

func TestDeriveTitleKey(t *testing.T) {
	dir := t.TempDir()

	// Ticket with id/key fields planted at the fixed offsets.
	data := make([]byte, 0x2c0)
	for i := 0; i < 16; i++ {
		data[0x2a0+i] = 0xaa
		data[0x180+i] = 0xbb
	}
	if err := os.WriteFile(filepath.Join(dir, "rights.tik"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	n := &NSP{Path: "base.nsp"}
	if err := n.DeriveTitleKey(dir); err != nil {
		t.Fatalf("DeriveTitleKey() error = %v", err)
	}
	if n.TitleKey == nil {
		t.Fatal("TitleKey not recorded")
	}
	if n.TitleKey.TitleID[0] != 0xaa || n.TitleKey.Key[0] != 0xbb {
		t.Errorf("TitleKey = %v", n.TitleKey)
	}
}

func TestDeriveTitleKeyNoTicket(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.nca"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := &NSP{Path: "base.nsp"}
	if err := n.DeriveTitleKey(dir); !errors.Is(err, ErrNoTicket) {
		t.Errorf("DeriveTitleKey() error = %v, want ErrNoTicket", err)
	}
	if n.TitleKey != nil {
		t.Error("TitleKey set despite failure")
	}
}

func TestDeriveTitleKeyShortTicket(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rights.tik"), make([]byte, 0x100), 0o644); err != nil {
		t.Fatal(err)
	}

	n := &NSP{Path: "base.nsp"}
	if err := n.DeriveTitleKey(dir); err == nil {
		t.Error("DeriveTitleKey(short ticket) did not error")
	}
}
