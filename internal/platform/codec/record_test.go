package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, []byte("hello"), []byte("world")))

	key, value, start, err := DecodeNext(&buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), key)
	assert.Equal(t, []byte("world"), value)
	assert.Equal(t, int64(0), start)
}

func TestDecodeNextEndOfStream(t *testing.T) {
	var buf bytes.Buffer
	_, _, _, err := DecodeNext(&buf, 0)
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestDecodeNextCorruptMidRecord(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, []byte("key"), []byte("value")))
	truncated := buf.Bytes()[:5]

	_, _, _, err := DecodeNext(bytes.NewReader(truncated), 0)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestIterateMultipleRecords(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, []byte("a"), []byte("1")))
	assert.NoError(t, Encode(&buf, []byte("b"), []byte("2")))
	assert.NoError(t, Encode(&buf, []byte("c"), []byte("3")))

	entries, err := Iterate(buf.Bytes())
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, []byte("a"), entries[0].Key)
	assert.Equal(t, []byte("b"), entries[1].Key)
	assert.Equal(t, []byte("c"), entries[2].Key)
	assert.Equal(t, int64(0), entries[0].StartOffset)
	assert.True(t, entries[2].StartOffset > entries[1].StartOffset)
}

func TestIterateEmptyBuffer(t *testing.T) {
	entries, err := Iterate(nil)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEncodeEmptyValue(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, []byte("k"), nil))

	key, value, _, err := DecodeNext(&buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, []byte("k"), key)
	assert.Empty(t, value)
}
