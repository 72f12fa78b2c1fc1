package service

import (
	"fmt"

	"lsmkv/internal/domain"
)

// DeleteEntryService removes a key by writing a tombstone through the
// repository, failing if the key does not currently exist.
type DeleteEntryService struct {
	repository domain.EntryRepository
}

func NewDeleteEntryService(repository domain.EntryRepository) *DeleteEntryService {
	return &DeleteEntryService{repository: repository}
}

type DeleteEntryCommand struct {
	Key []byte
}

type DeleteEntryResult struct {
	Entry domain.Record
	Err   error
}

func (s *DeleteEntryService) Execute(command DeleteEntryCommand) DeleteEntryResult {
	_, found := s.repository.Get(command.Key)
	if !found {
		return DeleteEntryResult{Err: fmt.Errorf("entry with key %q not found", command.Key)}
	}

	deleted, ok := s.repository.Delete(command.Key)
	if !ok {
		return DeleteEntryResult{Err: fmt.Errorf("failed to delete key %q", command.Key)}
	}
	return DeleteEntryResult{Entry: *deleted}
}
