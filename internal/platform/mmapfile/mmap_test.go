package mmapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenMapsExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	assert.NoError(t, os.WriteFile(path, []byte("hello mmap"), 0644))

	f, err := Open(path)
	assert.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []byte("hello mmap"), f.Bytes())
}

func TestOpenEmptyFileYieldsZeroLengthView(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	assert.NoError(t, os.WriteFile(path, nil, 0644))

	f, err := Open(path)
	assert.NoError(t, err)
	defer f.Close()

	assert.Empty(t, f.Bytes())
}

func TestRemapPicksUpGrowth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing")
	assert.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	f, err := Open(path)
	assert.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []byte("abc"), f.Bytes())

	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	assert.NoError(t, err)
	_, err = fh.WriteString("def")
	assert.NoError(t, err)
	assert.NoError(t, fh.Close())

	assert.NoError(t, f.Remap())
	assert.Equal(t, []byte("abcdef"), f.Bytes())
}
