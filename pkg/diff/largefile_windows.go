//go:build windows

package diff

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
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

	handle, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	defer windows.CloseHandle(handle)

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	closer := func() error { return windows.UnmapViewOfFile(addr) }
	return data, closer, nil
}
