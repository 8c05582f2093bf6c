package compression

import (
	"fmt"
	"io"
)

// Registry looks up a Codec by CompressionType. It is populated once at
// construction with the four built-in codecs (none, gzip, lz4, zstd);
// callers needing another can Register it, since nothing in this package
// depends on a singleton registry.
type Registry struct {
	codecs map[CompressionType]Codec
}

// NewRegistry returns a Registry with the none, gzip, lz4, and zstd codecs
// registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[CompressionType]Codec, 4)}
	r.Register(&noneCodec{})
	r.Register(&gzipCodec{})
	r.Register(&lz4Codec{})
	r.Register(&zstdCodec{})
	return r
}

// Register adds or replaces the codec for its own Type().
func (r *Registry) Register(c Codec) {
	r.codecs[c.Type()] = c
}

// Get returns the codec for t, or an error if none is registered.
func (r *Registry) Get(t CompressionType) (Codec, error) {
	c, ok := r.codecs[t]
	if !ok {
		return nil, fmt.Errorf("unsupported compression type %s", t)
	}
	return c, nil
}

// noneCodec passes bytes through unchanged, for --compress none.
type noneCodec struct{}

func (noneCodec) Type() CompressionType { return CompressionNone }

func (noneCodec) CompressStream(dst io.Writer, src io.Reader, _ Level) error {
	_, err := io.Copy(dst, src)
	return err
}

func (noneCodec) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}
