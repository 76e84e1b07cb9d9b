package raven

import (
	"hash/crc32"
	"strconv"
	"strings"
	"testing"
)

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "0"},
		{"123456789", "CBF43926"},
		{"The quick brown fox jumps over the lazy dog", "414FA339"},
	}

	for _, tt := range tests {
		if got := Checksum(tt.input); got != tt.want {
			t.Errorf("Checksum(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestChecksum_Uppercase(t *testing.T) {
	got := Checksum("example.com/app.handle(server.go)")
	if got != strings.ToUpper(got) {
		t.Errorf("Checksum returned lowercase hex: %s", got)
	}
}

func TestChecksum_NoZeroPadding(t *testing.T) {
	// Find an input whose CRC has a leading zero nibble.
	for i := 0; i < 10000; i++ {
		s := "culprit-" + strconv.Itoa(i)
		if crc32.ChecksumIEEE([]byte(s)) >= 1<<28 {
			continue
		}
		if got := Checksum(s); len(got) >= 8 {
			t.Fatalf("Checksum(%q) = %s, want no zero padding", s, got)
		}
		return
	}
	t.Skip("no input with a leading zero nibble found")
}
