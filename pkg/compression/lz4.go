package compression

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec trades compression ratio for speed relative to gzip and zstd.
type lz4Codec struct{}

func (lz4Codec) Type() CompressionType { return CompressionLZ4 }

func (lz4Codec) CompressStream(dst io.Writer, src io.Reader, level Level) error {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return newError(CompressionLZ4, "configure writer", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return newError(CompressionLZ4, "write", err)
	}
	if err := w.Close(); err != nil {
		return newError(CompressionLZ4, "close writer", err)
	}
	return nil
}

func (lz4Codec) DecompressStream(dst io.Writer, src io.Reader) error {
	r := lz4.NewReader(src)
	if _, err := io.Copy(dst, r); err != nil {
		return newError(CompressionLZ4, "read", err)
	}
	return nil
}

func lz4Level(l Level) lz4.CompressionLevel {
	switch {
	case l <= LevelFastest:
		return lz4.Fast
	case l >= LevelBest:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}
