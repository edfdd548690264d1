// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"
	"fmt"
	"runtime"
)

const (
	// Hacpack is the packer: builds NCAs and NSPs from extracted trees.
	Hacpack Kind = iota
	// Hactool is the portable reader/unpacker, buildable everywhere make
	// and a C toolchain exist.
	Hactool
	// Hactoolnet is the .NET reader; distributed as a prebuilt payload on
	// amd64 linux/windows only (there is no make-based source build).
	Hactoolnet
	// Hac2l is the Atmosphere-based reader, buildable on amd64 linux.
	Hac2l
)

var (
	// ErrUnknownKind is returned when parsing an unrecognized tool name.
	ErrUnknownKind = errors.New("unknown backend kind")
	// ErrUnsupported is returned when a Kind is not available on the
	// current platform/architecture.
	ErrUnsupported = errors.New("backend not supported on this platform")
)

type (
	// Kind identifies one of the external hac tools.
	Kind int
)

// kindNames holds the canonical lowercase tool names, indexed by Kind.
var kindNames = [...]string{"hacpack", "hactool", "hactoolnet", "hac2l"}

// String returns the canonical lowercase tool name.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a tool name to its Kind. Returns ErrUnknownKind for
// anything outside the closed set.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Filename returns the canonical cache filename for the tool on the current
// platform (".exe" suffix on Windows).
func (k Kind) Filename() string {
	if runtime.GOOS == "windows" {
		return k.String() + ".exe"
	}
	return k.String()
}

// Supported reports whether the Kind can be acquired on the current
// platform/architecture. Platform sets are data here so callers never
// branch on GOOS/GOARCH themselves.
func (k Kind) Supported() bool {
	switch k {
	case Hacpack, Hactool:
		return true
	case Hactoolnet:
		return runtime.GOARCH == "amd64" && (runtime.GOOS == "linux" || runtime.GOOS == "windows")
	case Hac2l:
		return runtime.GOARCH == "amd64" && runtime.GOOS == "linux"
	}
	return false
}

// DefaultReaders returns the ranked reader list for the current platform.
// Readers are tried in order during classification; the first definitive
// answer wins.
func DefaultReaders() []Kind {
	var readers []Kind
	for _, k := range []Kind{Hactoolnet, Hac2l, Hactool} {
		if k.Supported() {
			readers = append(readers, k)
		}
	}
	return readers
}
