package compression

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec gives the best compression ratio of the three archive codecs,
// at the cost of slower compression.
type zstdCodec struct{}

func (zstdCodec) Type() CompressionType { return CompressionZstd }

func (zstdCodec) CompressStream(dst io.Writer, src io.Reader, level Level) error {
	w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return newError(CompressionZstd, "create encoder", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return newError(CompressionZstd, "write", err)
	}
	if err := w.Close(); err != nil {
		return newError(CompressionZstd, "close encoder", err)
	}
	return nil
}

func (zstdCodec) DecompressStream(dst io.Writer, src io.Reader) error {
	r, err := zstd.NewReader(src)
	if err != nil {
		return newError(CompressionZstd, "create decoder", err)
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return newError(CompressionZstd, "read", err)
	}
	return nil
}

func zstdLevel(l Level) zstd.EncoderLevel {
	switch {
	case l <= LevelFastest:
		return zstd.SpeedFastest
	case l >= LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
