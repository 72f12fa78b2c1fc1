// Package domain holds the value types shared across the storage engine.
package domain

import "bytes"

// Tombstone is the sentinel value that marks a key as deleted. A record
// whose value equals Tombstone is treated as absent by every read path.
var Tombstone = []byte{0x00}

// Record is a key/value pair as stored on disk and in memory. Both key and
// value are arbitrary byte strings; deletion is represented positionally,
// by the value equalling Tombstone, not by a separate field.
type Record struct {
	key   []byte
	value []byte
}

// NewRecord builds a Record from raw bytes.
func NewRecord(key, value []byte) Record {
	return Record{key: key, value: value}
}

// Copy returns a Record with its own backing arrays, safe to retain past
// the lifetime of buffers the caller may reuse.
func (r Record) Copy() Record {
	key := make([]byte, len(r.key))
	copy(key, r.key)
	value := make([]byte, len(r.value))
	copy(value, r.value)
	return Record{key: key, value: value}
}

func (r Record) Key() []byte {
	return r.key
}

func (r Record) Value() []byte {
	return r.value
}

// IsTombstone reports whether this record represents a deletion.
func (r Record) IsTombstone() bool {
	return bytes.Equal(r.value, Tombstone)
}

// EntryRepository is the minimal storage contract a single-node key-value
// engine exposes to its callers.
type EntryRepository interface {
	Save(record Record) Record
	Delete(key []byte) (*Record, bool)
	Get(key []byte) (Record, bool)
}
