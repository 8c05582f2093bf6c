package diff

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestReadLargeSmallFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.bin")
	want := []byte("small file contents")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	data, closer, err := ReadLarge(path)
	if err != nil {
		t.Fatalf("ReadLarge: %v", err)
	}
	defer closer()

	if !bytes.Equal(data, want) {
		t.Fatalf("data = %q, want %q", data, want)
	}
}

func TestReadLargeAboveThresholdRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.bin")
	want := bytes.Repeat([]byte{0x5A}, mmapThreshold+1)
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	data, closer, err := ReadLarge(path)
	if err != nil {
		t.Fatalf("ReadLarge: %v", err)
	}
	defer closer()

	if !bytes.Equal(data, want) {
		t.Fatal("mapped data does not match file contents")
	}
}

func TestReadLargeEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	data, closer, err := ReadLarge(path)
	if err != nil {
		t.Fatalf("ReadLarge: %v", err)
	}
	defer closer()

	if len(data) != 0 {
		t.Fatalf("expected empty data, got %d bytes", len(data))
	}
}

func TestReadLargeMissingFile(t *testing.T) {
	if _, _, err := ReadLarge(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
