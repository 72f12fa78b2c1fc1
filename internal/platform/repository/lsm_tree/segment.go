package lsm_tree

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"lsmkv/internal/domain"
	"lsmkv/internal/platform/codec"
	"lsmkv/internal/platform/filter"
	"lsmkv/internal/platform/mmapfile"
)

// ErrCorrupt is returned when a segment file's keys are not strictly
// ascending, or a record cannot be decoded.
var ErrCorrupt = errors.New("lsm_tree: corrupt segment")

// Segment is an immutable on-disk file of records written in ascending key
// order, accompanied by a position index and a membership filter built
// from a single scan at construction time (spec §4.6).
type Segment struct {
	id        int64
	path      string
	prefixLen int
	mm        *mmapfile.File
	filter    *filter.Filter
	index     *positionIndex
}

// OpenSegment opens <id>.data at path, scanning it once to populate the
// filter and index. Keys observed during the scan must be strictly
// ascending, or the file is treated as corrupt.
func OpenSegment(id int64, path string, prefixLen int) (*Segment, error) {
	mm, err := mmapfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lsm_tree: open segment %s: %w", path, err)
	}

	seg := &Segment{
		id:        id,
		path:      path,
		prefixLen: prefixLen,
		mm:        mm,
		filter:    filter.New(),
		index:     newPositionIndex(prefixLen),
	}

	if err := seg.scan(); err != nil {
		mm.Close()
		return nil, err
	}
	return seg, nil
}

func (s *Segment) scan() error {
	entries, err := codec.Iterate(s.mm.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	var prev []byte
	for _, e := range entries {
		if prev != nil && bytes.Compare(e.Key, prev) <= 0 {
			return fmt.Errorf("%w: %s: keys not strictly ascending", ErrCorrupt, s.path)
		}
		s.filter.Add(e.Key)
		// keys sharing a prefix are contiguous in ascending order; indexing
		// only the first of them lets lookup's forward scan reach each one.
		if _, ok := s.index.Find(e.Key); !ok {
			s.index.Add(e.Key, e.StartOffset)
		}
		prev = e.Key
	}
	return nil
}

// ID returns this segment's monotonically increasing identifier.
func (s *Segment) ID() int64 {
	return s.id
}

// Path returns the current file path backing this segment.
func (s *Segment) Path() string {
	return s.path
}

// Size returns the segment file's size in bytes, used by Engine.Compact to
// decide whether an adjacent pair is small enough to merge.
func (s *Segment) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("lsm_tree: stat segment %s: %w", s.path, err)
	}
	return info.Size(), nil
}

// Get looks up key. It returns (value, true, nil) if found and live,
// (nil, false, nil) if absent or found as a tombstone, and a non-nil error
// only when the mapped data cannot be decoded (ErrCorrupt) or the index
// offset lies outside it.
func (s *Segment) Get(key []byte) ([]byte, bool, error) {
	value, found, _, err := s.lookup(key)
	return value, found, err
}

// lookup is Get's tri-state sibling: Engine.Get needs to tell "key absent
// from this segment, keep searching older segments" apart from "key found
// here as a tombstone, stop searching — the overall result is None"
// (spec §8 property 3 and 6 both depend on this distinction, which a plain
// bool collapses).
func (s *Segment) lookup(key []byte) (value []byte, found bool, tombstone bool, err error) {
	if !s.filter.Contains(key) {
		return nil, false, false, nil
	}

	offset, ok := s.index.Find(key)
	if !ok {
		return nil, false, false, nil
	}

	data := s.mm.Bytes()
	if offset < 0 || offset > int64(len(data)) {
		return nil, false, false, fmt.Errorf("lsm_tree: segment %s: index offset out of range", s.path)
	}

	r := bufio.NewReader(bytes.NewReader(data[offset:]))
	var consumed int64
	for {
		k, v, _, decErr := codec.DecodeNext(r, offset+consumed)
		if decErr != nil {
			if errors.Is(decErr, codec.ErrEndOfStream) {
				return nil, false, false, nil
			}
			return nil, false, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, decErr)
		}
		consumed += int64(8+len(k)+8+len(v))

		cmp := bytes.Compare(k, key)
		if cmp == 0 {
			if bytes.Equal(v, domain.Tombstone) {
				return nil, false, true, nil
			}
			return v, true, false, nil
		}
		if cmp > 0 {
			// records are ascending; passed the key without finding it.
			return nil, false, false, nil
		}
	}
}

// Rename moves the underlying file to newPath and remaps it there.
func (s *Segment) Rename(newPath string) error {
	if err := os.Rename(s.path, newPath); err != nil {
		return fmt.Errorf("lsm_tree: rename segment %s -> %s: %w", s.path, newPath, err)
	}
	s.path = newPath
	return s.mm.Remap()
}

// Close unmaps the segment's file.
func (s *Segment) Close() error {
	return s.mm.Close()
}

// MergeSegments produces the sorted union of two segment files at
// outputPath. newerPath's records win on key collision, including writing
// through a tombstone from newerPath (spec §4.6 "merge"). Both inputs must
// already be in strictly ascending key order; the output is too.
func MergeSegments(outputPath, newerPath, olderPath string) error {
	newer, err := readSegmentFile(newerPath)
	if err != nil {
		return err
	}
	older, err := readSegmentFile(olderPath)
	if err != nil {
		return err
	}

	staged := stagingPath(outputPath)
	out, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("lsm_tree: create merge output %s: %w", staged, err)
	}
	w := bufio.NewWriter(out)

	i, j := 0, 0
	for i < len(newer) && j < len(older) {
		switch bytes.Compare(newer[i].Key, older[j].Key) {
		case 0:
			if err := codec.Encode(w, newer[i].Key, newer[i].Value); err != nil {
				out.Close()
				return err
			}
			i++
			j++
		case -1:
			if err := codec.Encode(w, newer[i].Key, newer[i].Value); err != nil {
				out.Close()
				return err
			}
			i++
		default:
			if err := codec.Encode(w, older[j].Key, older[j].Value); err != nil {
				out.Close()
				return err
			}
			j++
		}
	}
	for ; i < len(newer); i++ {
		if err := codec.Encode(w, newer[i].Key, newer[i].Value); err != nil {
			out.Close()
			return err
		}
	}
	for ; j < len(older); j++ {
		if err := codec.Encode(w, older[j].Key, older[j].Value); err != nil {
			out.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("lsm_tree: flush merge output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("lsm_tree: close merge output: %w", err)
	}
	return os.Rename(staged, outputPath)
}

// FromLog reads an unsorted WAL at logPath, collapses duplicate keys (last
// record wins), sorts ascending, and writes a segment file at segmentPath.
// Tombstones are preserved, not elided; MergeSegments does not elide them
// either, at any level.
func FromLog(segmentPath, logPath string) error {
	wal, err := NewWAL(logPath)
	if err != nil {
		return err
	}
	defer wal.Close()

	entries, err := wal.ReadAll()
	if err != nil {
		return fmt.Errorf("lsm_tree: read log %s: %w", logPath, err)
	}

	sl := newSkipList(20, 0.5)
	for _, e := range entries {
		sl.Set(e.Key, e.Value)
	}

	staged := stagingPath(segmentPath)
	out, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("lsm_tree: create segment %s: %w", staged, err)
	}
	w := bufio.NewWriter(out)
	for _, e := range sl.All() {
		if err := codec.Encode(w, e.Key, e.Value); err != nil {
			out.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("lsm_tree: flush segment %s: %w", staged, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("lsm_tree: close segment %s: %w", staged, err)
	}
	return os.Rename(staged, segmentPath)
}

func readSegmentFile(path string) ([]codec.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lsm_tree: read segment %s: %w", path, err)
	}
	entries, err := codec.Iterate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return entries, nil
}

// stagingPath names a temporary output file in the same directory as
// target, so the final os.Rename is an atomic same-filesystem move — a
// crash mid-write never leaves a half-written file visible under target's
// name.
func stagingPath(target string) string {
	return target + ".tmp-" + uuid.NewString()
}
