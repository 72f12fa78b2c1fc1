package lsm_tree

// positionIndex maps a key's truncated prefix to the byte offset in a
// segment file where a record beginning with that prefix can be found
// (spec §4.4). It is an approximate locator: Segment.Get seeks to the
// returned offset and scans forward until the full key matches, a larger
// key is reached, or the segment ends. Duplicate prefixes are allowed and
// the last Add wins, so a segment's construction scan adds only the first
// record of each prefix: the forward scan then starts at or before every
// key sharing that prefix.
type positionIndex struct {
	prefixLen int
	offsets   map[string]int64
}

func newPositionIndex(prefixLen int) *positionIndex {
	return &positionIndex{prefixLen: prefixLen, offsets: make(map[string]int64)}
}

// Add records offset under key's prefix, overwriting any prior entry for
// that prefix.
func (idx *positionIndex) Add(key []byte, offset int64) {
	idx.offsets[idx.prefix(key)] = offset
}

// Find returns the offset associated with key's prefix, if any.
func (idx *positionIndex) Find(key []byte) (int64, bool) {
	offset, ok := idx.offsets[idx.prefix(key)]
	return offset, ok
}

// Clear drops every entry.
func (idx *positionIndex) Clear() {
	idx.offsets = make(map[string]int64)
}

// Empty reports whether the index holds no entries.
func (idx *positionIndex) Empty() bool {
	return len(idx.offsets) == 0
}

func (idx *positionIndex) prefix(key []byte) string {
	n := idx.prefixLen
	if n > len(key) {
		n = len(key)
	}
	return string(key[:n])
}
