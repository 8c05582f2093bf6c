//go:build !windows

package diff

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapReadOnly memory-maps the whole file at path for reading.
func mapReadOnly(path string, size int64) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	return data, func() error { return unix.Munmap(data) }, nil
}
