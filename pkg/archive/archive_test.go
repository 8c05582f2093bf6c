package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sam-mfb/graft/pkg/compression"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBundleUnbundleRoundTrip(t *testing.T) {
	for _, codec := range []compression.CompressionType{
		compression.CompressionNone,
		compression.CompressionGzip,
		compression.CompressionLZ4,
		compression.CompressionZstd,
	} {
		t.Run(codec.String(), func(t *testing.T) {
			src := t.TempDir()
			writeFile(t, filepath.Join(src, "manifest.json"), `{"version":1,"entries":[]}`)
			writeFile(t, filepath.Join(src, "diffs", "a.bin.diff"), "some diff bytes")
			writeFile(t, filepath.Join(src, "additions", "b.bin"), "new content")

			var blob bytes.Buffer
			if err := Bundle(&blob, src, codec, compression.LevelDefault); err != nil {
				t.Fatalf("Bundle: %v", err)
			}

			if got := compression.CompressionType(blob.Bytes()[0]); got != codec {
				t.Fatalf("header byte = %v, want %v", got, codec)
			}

			dir, cleanup, err := Unbundle(bytes.NewReader(blob.Bytes()))
			if err != nil {
				t.Fatalf("Unbundle: %v", err)
			}
			defer cleanup()

			assertFileContent(t, filepath.Join(dir, "manifest.json"), `{"version":1,"entries":[]}`)
			assertFileContent(t, filepath.Join(dir, "diffs", "a.bin.diff"), "some diff bytes")
			assertFileContent(t, filepath.Join(dir, "additions", "b.bin"), "new content")
		})
	}
}

func TestUnbundleCleanupRemovesScratchDir(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "x.txt"), "x")

	var blob bytes.Buffer
	if err := Bundle(&blob, src, compression.CompressionGzip, compression.LevelDefault); err != nil {
		t.Fatal(err)
	}

	dir, cleanup, err := Unbundle(bytes.NewReader(blob.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	cleanup()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("scratch directory should have been removed")
	}

	cleanup() // must be safe to call twice
}

func TestUnbundleRejectsTruncatedBlob(t *testing.T) {
	if _, _, err := Unbundle(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for empty blob")
	}
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(data) != want {
		t.Fatalf("%s = %q, want %q", path, data, want)
	}
}
