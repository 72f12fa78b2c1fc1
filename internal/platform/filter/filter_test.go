package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAfterAdd(t *testing.T) {
	f := New()
	f.Add([]byte("alpha"))

	assert.True(t, f.Contains([]byte("alpha")))
}

func TestContainsFalseBeforeAdd(t *testing.T) {
	f := New()
	assert.False(t, f.Contains([]byte("never-added")))
}

func TestClearResetsAllBuckets(t *testing.T) {
	f := New()
	f.Add([]byte("alpha"))
	f.Add([]byte("beta"))

	f.Clear()

	assert.False(t, f.Contains([]byte("alpha")))
	assert.False(t, f.Contains([]byte("beta")))
}

func TestNoFalseNegativesAcrossManyKeys(t *testing.T) {
	f := New()
	keys := make([][]byte, 0, 500)
	for i := 0; i < 500; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
	}
	for _, k := range keys {
		f.Add(k)
	}
	for _, k := range keys {
		assert.True(t, f.Contains(k), "false negative for %s", k)
	}
}
