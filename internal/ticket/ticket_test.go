// SPDX-License-Identifier: MPL-2.0

package ticket

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTicket builds a ticket fixture of the given size with the id and key
// fields planted at their fixed offsets.
func writeTicket(t *testing.T, size int, id, key byte) string {
	t.Helper()

	data := make([]byte, size)
	for i := 0; i < fieldLen; i++ {
		if titleIDOffset+i < size {
			data[titleIDOffset+i] = id
		}
		if titleKeyOffset+i < size {
			data[titleKeyOffset+i] = key
		}
	}

	p := filepath.Join(t.TempDir(), "rights.tik")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExtract(t *testing.T) {
	p := writeTicket(t, 0x2c0, 0xab, 0xcd)

	k, err := Extract(p)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !bytes.Equal(k.TitleID[:], bytes.Repeat([]byte{0xab}, fieldLen)) {
		t.Errorf("TitleID = %x", k.TitleID)
	}
	if !bytes.Equal(k.Key[:], bytes.Repeat([]byte{0xcd}, fieldLen)) {
		t.Errorf("Key = %x", k.Key)
	}
}

func TestExtractMinimumSize(t *testing.T) {
	// 0x2b0 is exactly enough to cover the title id field at 0x2a0.
	p := writeTicket(t, 0x2b0, 0x01, 0x02)
	if _, err := Extract(p); err != nil {
		t.Errorf("Extract(0x2b0 bytes) error = %v", err)
	}
}

func TestExtractShortTicket(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "cut inside key field", size: titleKeyOffset + 4},
		{name: "cut before title id", size: titleIDOffset - 1},
		{name: "cut inside title id", size: titleIDOffset + 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTicket(t, tt.size, 0x01, 0x02)
			if _, err := Extract(p); err == nil {
				t.Error("Extract(short ticket) did not error")
			}
		})
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "gone.tik")); err == nil {
		t.Error("Extract(missing) did not error")
	}
}

func TestTitleKeyString(t *testing.T) {
	var k TitleKey
	copy(k.TitleID[:], bytes.Repeat([]byte{0x01}, fieldLen))
	copy(k.Key[:], bytes.Repeat([]byte{0xff}, fieldLen))

	want := strings.Repeat("01", fieldLen) + "=" + strings.Repeat("ff", fieldLen)
	if got := k.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAppendKeysAppendsNotTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switch", "title.keys")

	var a, b TitleKey
	a.TitleID[0] = 0x01
	b.TitleID[0] = 0x02

	if err := AppendKeys(path, a); err != nil {
		t.Fatalf("AppendKeys() error = %v", err)
	}
	if err := AppendKeys(path, b); err != nil {
		t.Fatalf("AppendKeys() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("key store has %d lines, want 2:\n%s", len(lines), data)
	}
	if lines[0] != a.String() || lines[1] != b.String() {
		t.Errorf("key store lines = %v", lines)
	}
}

func TestAppendKeysNoKeysIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "title.keys")
	if err := AppendKeys(path); err != nil {
		t.Fatalf("AppendKeys() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("AppendKeys with no keys created the file")
	}
}
