package compression

import (
	"compress/gzip"
	"io"
)

// gzipCodec is the default/fallback archive compressor.
type gzipCodec struct{}

func (gzipCodec) Type() CompressionType { return CompressionGzip }

func (gzipCodec) CompressStream(dst io.Writer, src io.Reader, level Level) error {
	w, err := gzip.NewWriterLevel(dst, clampGzipLevel(level))
	if err != nil {
		return newError(CompressionGzip, "create writer", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return newError(CompressionGzip, "write", err)
	}
	if err := w.Close(); err != nil {
		return newError(CompressionGzip, "close writer", err)
	}
	return nil
}

func (gzipCodec) DecompressStream(dst io.Writer, src io.Reader) error {
	r, err := gzip.NewReader(src)
	if err != nil {
		return newError(CompressionGzip, "create reader", err)
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return newError(CompressionGzip, "read", err)
	}
	return nil
}

func clampGzipLevel(l Level) int {
	if l < gzip.HuffmanOnly || l > gzip.BestCompression {
		return gzip.DefaultCompression
	}
	return int(l)
}
