package diff

import "os"

// mmapThreshold is the file size above which ReadLarge prefers a
// memory-mapped read over a buffered os.ReadFile. Below it, the mmap
// syscall's fixed overhead isn't worth paying.
const mmapThreshold = 4 * 1024 * 1024

// ReadLarge returns the full contents of the file at path, preferring an
// OS-level memory mapping for large files so the differ's block scan over
// old content doesn't require a second full-size copy in the Go heap.
// The returned closer must be called once the caller is done with data;
// for small files or on any mmap failure it falls back to a plain read, in
// which case closer is a no-op.
func ReadLarge(path string) (data []byte, closer func() error, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	if info.Size() < mmapThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return data, func() error { return nil }, nil
	}

	data, closer, err = mapReadOnly(path, info.Size())
	if err != nil {
		// mmap can fail for reasons unrelated to the content being
		// readable (e.g. a filesystem that doesn't support it); fall
		// back rather than surface an error a plain read wouldn't have.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return data, func() error { return nil }, nil
	}
	return data, closer, nil
}
