// Package mmapfile exposes a read-only file as a contiguous byte slice via
// mmap, remappable in place once the underlying file grows. No write
// mapping is provided — segment files are immutable once flushed.
package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a read-only memory-mapped view over a file on disk.
type File struct {
	fh   *os.File
	data []byte
}

// Open maps path read-only. An empty file is not mapped; File.Bytes
// returns a zero-length slice for it instead of failing on the mmap
// syscall, which rejects zero-length mappings.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	f := &File{fh: fh}
	if err := f.remapLocked(); err != nil {
		fh.Close()
		return nil, err
	}
	return f, nil
}

// Remap re-establishes the mapping over the current file contents,
// picking up any growth that happened since Open or the last Remap.
func (f *File) Remap() error {
	if len(f.data) > 0 {
		if err := unix.Munmap(f.data); err != nil {
			return fmt.Errorf("mmapfile: munmap: %w", err)
		}
	}
	f.data = nil
	return f.remapLocked()
}

func (f *File) remapLocked() error {
	info, err := f.fh.Stat()
	if err != nil {
		return fmt.Errorf("mmapfile: stat: %w", err)
	}
	size := info.Size()
	if size == 0 {
		f.data = []byte{}
		return nil
	}

	data, err := unix.Mmap(int(f.fh.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmapfile: mmap: %w", err)
	}
	f.data = data
	return nil
}

// Bytes returns the current mapped view. The slice is only valid until the
// next Remap or Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Close unmaps the view and closes the underlying file handle.
func (f *File) Close() error {
	if len(f.data) > 0 {
		if err := unix.Munmap(f.data); err != nil {
			return fmt.Errorf("mmapfile: munmap: %w", err)
		}
	}
	f.data = nil
	return f.fh.Close()
}
