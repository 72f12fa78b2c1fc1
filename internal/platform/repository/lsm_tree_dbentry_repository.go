package repository

import (
	"lsmkv/internal/domain"
	"lsmkv/internal/platform/repository/lsm_tree"
)

// LSMTreeRepository adapts an *lsm_tree.Engine to domain.EntryRepository,
// translating between domain.Record and the engine's raw byte API.
type LSMTreeRepository struct {
	engine *lsm_tree.Engine
}

func NewLSMTreeRepository(engine *lsm_tree.Engine) *LSMTreeRepository {
	return &LSMTreeRepository{engine: engine}
}

func (r *LSMTreeRepository) Save(record domain.Record) domain.Record {
	if err := r.engine.Set(record.Key(), record.Value()); err != nil {
		return record
	}
	return record
}

func (r *LSMTreeRepository) Get(key []byte) (domain.Record, bool) {
	value, found, err := r.engine.Get(key)
	if err != nil || !found {
		return domain.Record{}, false
	}
	return domain.NewRecord(key, value), true
}

func (r *LSMTreeRepository) Delete(key []byte) (*domain.Record, bool) {
	_, found := r.Get(key)
	if !found {
		return nil, false
	}
	if err := r.engine.Remove(key); err != nil {
		return nil, false
	}
	deleted := domain.NewRecord(key, domain.Tombstone)
	return &deleted, true
}
