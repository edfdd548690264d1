// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Hacpack, "hacpack"},
		{Hactool, "hactool"},
		{Hactoolnet, "hactoolnet"},
		{Hac2l, "hac2l"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"hacpack", "hactool", "hactoolnet", "hac2l"} {
		kind, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q) error = %v", name, err)
		}
		if kind.String() != name {
			t.Errorf("ParseKind(%q).String() = %q", name, kind.String())
		}
	}

	if _, err := ParseKind("hacshim"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(unknown) error = %v, want ErrUnknownKind", err)
	}
}

func TestKindFilename(t *testing.T) {
	got := Hacpack.Filename()
	if runtime.GOOS == "windows" {
		if got != "hacpack.exe" {
			t.Errorf("Filename() = %q, want hacpack.exe", got)
		}
		return
	}
	if got != "hacpack" {
		t.Errorf("Filename() = %q, want hacpack", got)
	}
}

func TestSupportedClosedSet(t *testing.T) {
	// hacpack and hactool build everywhere; the amd64-only readers must
	// never be reported as supported on other architectures.
	if !Hacpack.Supported() || !Hactool.Supported() {
		t.Error("hacpack/hactool must be supported on every platform")
	}
	if runtime.GOARCH != "amd64" {
		if Hactoolnet.Supported() || Hac2l.Supported() {
			t.Error("hactoolnet/hac2l must not be supported off amd64")
		}
	}
}

func TestDefaultReadersOrderedAndSupported(t *testing.T) {
	readers := DefaultReaders()
	if len(readers) == 0 {
		t.Fatal("DefaultReaders() is empty; hactool should always qualify")
	}

	for _, k := range readers {
		if !k.Supported() {
			t.Errorf("DefaultReaders() contains unsupported kind %s", k)
		}
	}

	// hactool is the universal fallback and must come last.
	if readers[len(readers)-1] != Hactool {
		t.Errorf("DefaultReaders() last = %s, want hactool", readers[len(readers)-1])
	}

	var names []string
	for _, k := range readers {
		names = append(names, k.String())
	}
	if strings.Contains(strings.Join(names, ","), "hacpack") {
		t.Error("DefaultReaders() must not contain the packer")
	}
}
