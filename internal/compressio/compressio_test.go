package compressio

import (
	"bytes"
	"testing"
)

func TestGzipRoundTrip(t *testing.T) {
	payload := []byte("some mvt bytes, not actually protobuf for this test")
	compressed, err := Compress(payload, Gzip)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("round trip mismatch: got %q, want %q", decompressed, payload)
	}
}

func TestZstdRoundTrip(t *testing.T) {
	payload := []byte("some mvt bytes, not actually protobuf for this test")
	compressed, err := Compress(payload, Zstd)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("round trip mismatch: got %q, want %q", decompressed, payload)
	}
}

func TestDecompress_RawPassthrough(t *testing.T) {
	payload := []byte{0x1a, 0x02, 0x08, 0x01} // arbitrary non-magic bytes
	out, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("expected raw passthrough, got %v", out)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Compression
	}{
		{"gzip", Gzip},
		{"zstd", Zstd},
		{"none", None},
		{"", None},
		{"bogus", Gzip},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
