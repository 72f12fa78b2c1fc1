// Package codec implements the on-disk record format shared by the WAL and
// segment files: an unsigned 64-bit little-endian length prefix around the
// key, followed by the same around the value. No framing, no checksums, no
// padding — a file is a concatenation of records.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt is returned when a length prefix would run past end-of-input
// mid-record.
var ErrCorrupt = errors.New("codec: corrupt record")

// ErrEndOfStream is returned when the reader is cleanly positioned at
// end-of-input between records.
var ErrEndOfStream = errors.New("codec: end of stream")

// Encode writes one record to w in the wire format described above.
func Encode(w io.Writer, key, value []byte) error {
	if err := writeLenPrefixed(w, key); err != nil {
		return fmt.Errorf("codec: encode key: %w", err)
	}
	if err := writeLenPrefixed(w, value); err != nil {
		return fmt.Errorf("codec: encode value: %w", err)
	}
	return nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(b)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// DecodeNext reads one record from r, returning the key, value, and the
// byte offset (relative to the reader's current logical position, i.e. the
// number of bytes consumed before this record started) at which the record
// began. It returns ErrEndOfStream when r is cleanly at EOF before any byte
// of a new record has been read, and ErrCorrupt when a length prefix would
// require more bytes than the reader has left.
//
// startOffset is computed from consumed, the number of bytes already read
// from the stream before this call — callers iterating a file or buffer
// pass back the running total so the position index can record it.
func DecodeNext(r io.Reader, consumed int64) (key, value []byte, startOffset int64, err error) {
	startOffset = consumed

	keyLen, err := readLen(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, 0, ErrEndOfStream
		}
		return nil, nil, 0, fmt.Errorf("%w: key length: %v", ErrCorrupt, err)
	}
	key, err = readExact(r, keyLen)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: key bytes: %v", ErrCorrupt, err)
	}

	valueLen, err := readLen(r)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: value length: %v", ErrCorrupt, err)
	}
	value, err = readExact(r, valueLen)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: value bytes: %v", ErrCorrupt, err)
	}

	return key, value, startOffset, nil
}

func readLen(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readExact(r io.Reader, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Entry is one record yielded by Iterate, carrying the byte offset (within
// the buffer passed to Iterate) at which it begins.
type Entry struct {
	Key         []byte
	Value       []byte
	StartOffset int64
}

// Iterate walks every record in buf in order, stopping at the first
// ErrCorrupt or once the buffer is exhausted. It is a convenience over
// DecodeNext for the common case of scanning an entire in-memory buffer
// or memory-mapped file.
func Iterate(buf []byte) ([]Entry, error) {
	var entries []Entry
	var offset int64
	for offset < int64(len(buf)) {
		r := sliceReader{buf: buf[offset:]}
		key, value, start, err := DecodeNext(&r, offset)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				break
			}
			return entries, err
		}
		entries = append(entries, Entry{Key: key, Value: value, StartOffset: start})
		offset += int64(r.pos)
	}
	return entries, nil
}

// sliceReader is a minimal io.Reader over a byte slice that tracks how many
// bytes it has handed out, so Iterate can advance its outer offset without
// re-decoding lengths itself.
type sliceReader struct {
	buf []byte
	pos int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}
