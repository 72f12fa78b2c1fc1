package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lsmkv/internal/domain"
)

type fakeRepository struct {
	data map[string]domain.Record
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{data: make(map[string]domain.Record)}
}

func (f *fakeRepository) Save(record domain.Record) domain.Record {
	f.data[string(record.Key())] = record
	return record
}

func (f *fakeRepository) Get(key []byte) (domain.Record, bool) {
	record, ok := f.data[string(key)]
	return record, ok
}

func (f *fakeRepository) Delete(key []byte) (*domain.Record, bool) {
	if _, ok := f.data[string(key)]; !ok {
		return nil, false
	}
	deleted := domain.NewRecord(key, domain.Tombstone)
	f.data[string(key)] = deleted
	return &deleted, true
}

func TestSaveEntryServiceStoresRecord(t *testing.T) {
	repo := newFakeRepository()
	svc := NewSaveEntryService(repo)

	result := svc.Execute(SaveEntryCommand{Key: []byte("a"), Value: []byte("1")})

	assert.Equal(t, []byte("a"), result.Entry.Key())
	assert.Equal(t, []byte("1"), result.Entry.Value())

	stored, ok := repo.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), stored.Value())
}
