package lsm_tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionIndexAddFind(t *testing.T) {
	idx := newPositionIndex(7)
	idx.Add([]byte("abcdefgh"), 42)

	offset, ok := idx.Find([]byte("abcdefgh"))
	assert.True(t, ok)
	assert.Equal(t, int64(42), offset)
}

func TestPositionIndexShortKey(t *testing.T) {
	idx := newPositionIndex(7)
	idx.Add([]byte("ab"), 10)

	offset, ok := idx.Find([]byte("ab"))
	assert.True(t, ok)
	assert.Equal(t, int64(10), offset)
}

func TestPositionIndexFindMissing(t *testing.T) {
	idx := newPositionIndex(7)
	_, ok := idx.Find([]byte("nope"))
	assert.False(t, ok)
}

func TestPositionIndexDuplicatePrefixLastWins(t *testing.T) {
	idx := newPositionIndex(3)
	idx.Add([]byte("abcxxx"), 1)
	idx.Add([]byte("abcyyy"), 2)

	offset, ok := idx.Find([]byte("abczzz"))
	assert.True(t, ok)
	assert.Equal(t, int64(2), offset)
}

func TestPositionIndexClear(t *testing.T) {
	idx := newPositionIndex(7)
	idx.Add([]byte("a"), 1)
	idx.Clear()

	assert.True(t, idx.Empty())
	_, ok := idx.Find([]byte("a"))
	assert.False(t, ok)
}
