package lsm_tree

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"

	"lsmkv/internal/platform/codec"
)

// WAL is the append-only write-ahead log backing a WriteBuffer. Every
// append is flushed to the OS before Write returns (spec §1: "the WAL
// append must reach the OS after each mutation"); no device fsync is
// required.
type WAL struct {
	mu   sync.Mutex
	fd   *os.File
	path string
}

// NewWAL opens path in append-binary mode, creating it if necessary.
func NewWAL(path string) (*WAL, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("lsm_tree: open wal %s: %w", path, err)
	}
	return &WAL{fd: fd, path: path}, nil
}

// Write appends one record to the underlying file, unbuffered, so it
// reaches the OS as soon as Write returns. No device fsync is issued.
func (w *WAL) Write(key, value []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := codec.Encode(w.fd, key, value); err != nil {
		return fmt.Errorf("lsm_tree: wal append: %w", err)
	}
	return nil
}

// ReadAll replays every record in the log from offset 0, tolerating a
// torn trailing record (partial write before a crash) by treating it as
// absent rather than failing the whole replay.
func (w *WAL) ReadAll() ([]codec.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.fd.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("lsm_tree: wal seek: %w", err)
	}
	r := bufio.NewReader(w.fd)

	var entries []codec.Entry
	var offset int64
	torn := false
	for {
		key, value, start, err := codec.DecodeNext(r, offset)
		if err != nil {
			if !isEndOfStream(err) {
				torn = true
			}
			break
		}
		entries = append(entries, codec.Entry{Key: key, Value: value, StartOffset: start})
		offset = int64(8+len(key)+8+len(value)) + start
	}

	// a torn trailing record is dropped from the replay above, but unless
	// the file itself is cut back to offset, the garbage bytes stay on
	// disk ahead of the append cursor and every subsequent Write lands
	// after them — the next replay hits the same torn bytes and silently
	// drops everything written since, even though those writes succeeded.
	if torn {
		if err := w.fd.Truncate(offset); err != nil {
			return nil, fmt.Errorf("lsm_tree: wal truncate torn tail: %w", err)
		}
	}

	if _, err := w.fd.Seek(0, 2); err != nil {
		return nil, fmt.Errorf("lsm_tree: wal seek end: %w", err)
	}
	return entries, nil
}

// Path returns the file path backing this WAL.
func (w *WAL) Path() string {
	return w.path
}

// Close closes the underlying file handle. Calls after the first are no-ops.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd == nil {
		return nil
	}
	err := w.fd.Close()
	w.fd = nil
	return err
}

func isEndOfStream(err error) bool {
	return errors.Is(err, codec.ErrEndOfStream)
}
