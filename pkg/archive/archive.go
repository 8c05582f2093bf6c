// Package archive implements the archive layer: bundling a patch directory
// into a single compressed byte blob, and unbundling that blob back into a
// scratch directory. The blob is a one-byte compression-codec header
// followed by a compressed tar stream, so an unbundler never needs
// out-of-band knowledge of which codec produced it.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sam-mfb/graft/pkg/compression"
)

var registry = compression.NewRegistry()

// Bundle walks dir (expected to be a flat patch bundle directory, but any
// regular-file tree is accepted) and writes a compressed archive blob to w.
func Bundle(w io.Writer, dir string, codec compression.CompressionType, level compression.Level) error {
	c, err := registry.Get(codec)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte{byte(codec)}); err != nil {
		return fmt.Errorf("write codec header: %w", err)
	}

	var tarBuf bytes.Buffer
	if err := writeTar(&tarBuf, dir); err != nil {
		return fmt.Errorf("build tar stream: %w", err)
	}

	if err := c.CompressStream(w, &tarBuf, level); err != nil {
		return fmt.Errorf("compress bundle: %w", err)
	}
	return nil
}

// writeTar walks dir depth-first and appends one tar entry per regular
// file, recording its path relative to dir and its mode.
func writeTar(w io.Writer, dir string) error {
	tw := tar.NewWriter(w)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	return tw.Close()
}

// fileRecord is one decoded tar entry, staged in memory so extraction can
// fan its writes out across a bounded worker pool.
type fileRecord struct {
	path string
	mode os.FileMode
	data []byte
}

// Unbundle reads a compressed archive blob from r and extracts it into a
// freshly-created scratch directory whose lifetime the caller controls.
// The returned cleanup function removes the directory and is safe to call
// more than once; callers should defer it immediately so the scratch
// directory is released on every exit path.
func Unbundle(r io.Reader) (dir string, cleanup func(), err error) {
	header := make([]byte, 1)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", nil, fmt.Errorf("read codec header: %w", err)
	}
	codec := compression.CompressionType(header[0])

	c, err := registry.Get(codec)
	if err != nil {
		return "", nil, err
	}

	var tarBuf bytes.Buffer
	if err := c.DecompressStream(&tarBuf, r); err != nil {
		return "", nil, fmt.Errorf("decompress bundle: %w", err)
	}

	records, err := readTar(&tarBuf)
	if err != nil {
		return "", nil, fmt.Errorf("read tar stream: %w", err)
	}

	scratch, err := os.MkdirTemp("", "graft-archive-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(scratch) }

	if err := extractAll(scratch, records); err != nil {
		cleanup()
		return "", nil, err
	}

	return scratch, cleanup, nil
}

func readTar(r io.Reader) ([]fileRecord, error) {
	tr := tar.NewReader(r)
	var records []fileRecord

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}

		records = append(records, fileRecord{
			path: hdr.Name,
			mode: os.FileMode(hdr.Mode),
			data: data,
		})
	}
	return records, nil
}

// extractAll writes every record under root, fanning the writes out across
// a bounded worker pool since a large bundle's files are independent.
func extractAll(root string, records []fileRecord) error {
	g := new(errgroup.Group)
	g.SetLimit(maxWorkers())

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			dst := filepath.Join(root, filepath.FromSlash(rec.path))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return fmt.Errorf("extract %q: %w", rec.path, err)
			}
			if err := os.WriteFile(dst, rec.data, rec.mode.Perm()); err != nil {
				return fmt.Errorf("extract %q: %w", rec.path, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// maxWorkers bounds concurrent extraction writes, mirroring the differ
// package's bound on concurrent hashing.
func maxWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
