package lsm_tree

import (
	"fmt"
	"os"
	"sync"

	"lsmkv/internal/domain"
)

// WriteBuffer is the mutable in-memory layer: a hash map of key to value,
// mirrored to an append-only WAL file. Keys are unique; order is
// irrelevant (spec §3 "WriteBuffer"). On construction, a non-empty WAL is
// replayed into the map — last record wins for duplicated keys.
type WriteBuffer struct {
	mu   sync.RWMutex
	data map[string][]byte
	wal  *WAL
	path string
}

// NewWriteBuffer opens path in append-binary mode and, if the file exists
// and is non-empty, replays it into the in-memory map.
func NewWriteBuffer(path string) (*WriteBuffer, error) {
	wal, err := NewWAL(path)
	if err != nil {
		return nil, err
	}

	wb := &WriteBuffer{data: make(map[string][]byte), wal: wal, path: path}
	entries, err := wal.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("lsm_tree: replay %s: %w", path, err)
	}
	for _, e := range entries {
		wb.data[string(e.Key)] = e.Value
	}
	return wb, nil
}

// Set updates the in-memory entry and appends an encoded record to the WAL,
// flushing to the OS before returning. A value identical to the current one
// is a no-op: neither the map nor the WAL is touched.
func (wb *WriteBuffer) Set(key, value []byte) error {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if existing, ok := wb.data[string(key)]; ok && string(existing) == string(value) {
		return nil
	}
	if err := wb.wal.Write(key, value); err != nil {
		return err
	}
	wb.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Remove is equivalent to Set(key, domain.Tombstone).
func (wb *WriteBuffer) Remove(key []byte) error {
	return wb.Set(key, domain.Tombstone)
}

// Get copies the stored value into the return slice if key is present and
// not a tombstone. It never touches disk.
func (wb *WriteBuffer) Get(key []byte) ([]byte, bool) {
	wb.mu.RLock()
	defer wb.mu.RUnlock()

	value, ok := wb.data[string(key)]
	if !ok {
		return nil, false
	}
	if domain.NewRecord(key, value).IsTombstone() {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

// Lookup returns the raw stored value (tombstone included) and whether the
// key is present at all, for callers that need to distinguish "absent" from
// "present but deleted" — Engine.Get's layer precedence depends on this.
func (wb *WriteBuffer) Lookup(key []byte) ([]byte, bool) {
	wb.mu.RLock()
	defer wb.mu.RUnlock()
	value, ok := wb.data[string(key)]
	return value, ok
}

// Size returns the number of distinct keys currently held.
func (wb *WriteBuffer) Size() int {
	wb.mu.RLock()
	defer wb.mu.RUnlock()
	return len(wb.data)
}

// Empty reports whether the buffer holds no keys.
func (wb *WriteBuffer) Empty() bool {
	return wb.Size() == 0
}

// Data returns direct access to the in-memory map, for move-into-frozen
// during rotate. Callers must not retain the map past the rotate that
// clears this buffer.
func (wb *WriteBuffer) Data() map[string][]byte {
	wb.mu.RLock()
	defer wb.mu.RUnlock()
	return wb.data
}

// Clear closes the WAL, deletes the file, reopens it empty, and drops the
// in-memory map.
func (wb *WriteBuffer) Clear() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if err := wb.wal.Close(); err != nil {
		return fmt.Errorf("lsm_tree: close wal %s: %w", wb.path, err)
	}
	if err := os.Remove(wb.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lsm_tree: remove wal %s: %w", wb.path, err)
	}
	wal, err := NewWAL(wb.path)
	if err != nil {
		return err
	}
	wb.wal = wal
	wb.data = make(map[string][]byte)
	return nil
}

// Path returns the WAL file path backing this buffer.
func (wb *WriteBuffer) Path() string {
	return wb.path
}

// Close closes the underlying WAL handle without deleting the file.
func (wb *WriteBuffer) Close() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return wb.wal.Close()
}
