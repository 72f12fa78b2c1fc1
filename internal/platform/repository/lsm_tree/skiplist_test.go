package lsm_tree

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
)

func TestSkipListSetAndOverwrite(t *testing.T) {
	sl := newSkipList(5, 0.5)

	sl.Set([]byte("key1"), []byte("value1"))
	sl.Set([]byte("key1"), []byte("value2"))

	all := sl.All()
	assert.Len(t, all, 1)
	assert.Equal(t, []byte("value2"), all[0].Value)
}

func TestSkipListAllIsAscending(t *testing.T) {
	sl := newSkipList(5, 0.5)
	sl.Set([]byte("c"), []byte("3"))
	sl.Set([]byte("a"), []byte("1"))
	sl.Set([]byte("b"), []byte("2"))

	all := sl.All()
	assert.Len(t, all, 3)
	assert.Equal(t, []byte("a"), all[0].Key)
	assert.Equal(t, []byte("b"), all[1].Key)
	assert.Equal(t, []byte("c"), all[2].Key)
}

func TestSkipListEmpty(t *testing.T) {
	sl := newSkipList(5, 0.5)
	assert.Empty(t, sl.All())
}

func TestSkipListLastWriteWins(t *testing.T) {
	sl := newSkipList(5, 0.5)
	sl.Set([]byte("a"), []byte("1"))
	sl.Set([]byte("b"), []byte("2"))
	sl.Set([]byte("a"), []byte("3"))

	all := sl.All()
	if !assert.Len(t, all, 2) {
		t.Log(spew.Sdump(all))
	}
	assert.Equal(t, []byte("a"), all[0].Key)
	assert.Equal(t, []byte("3"), all[0].Value)
}
