package bootstrap

import (
	"go.uber.org/dig"

	"lsmkv/internal/application/service"
	"lsmkv/internal/domain"
	"lsmkv/internal/platform/config"
	"lsmkv/internal/platform/repository"
	"lsmkv/internal/platform/repository/lsm_tree"
)

// Container wires config, the storage engine, the repository, and the
// CQRS-lite service layer behind a dig container, mirroring the teacher's
// dependency-injection shape without the HTTP/messaging surface the spec
// excludes.
func Container() (*dig.Container, error) {
	container := dig.New()

	constructors := []interface{}{
		config.LoadConfig,
		engine,
		repository.NewLSMTreeRepository,
		func(r *repository.LSMTreeRepository) domain.EntryRepository { return r },
		service.NewSaveEntryService,
		service.NewGetEntryService,
		service.NewDeleteEntryService,
	}
	for _, ctor := range constructors {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}
	return container, nil
}

func engine(cfg config.Config) (*lsm_tree.Engine, error) {
	return lsm_tree.Open(cfg.DataDir, lsm_tree.EngineConfig{
		RotateThreshold:           cfg.RotateThreshold,
		CompactionMaxSegmentBytes: cfg.CompactionMaxSegmentBytes,
		WorkerInterval:            cfg.WorkerInterval,
		PositionIndexPrefixLen:    cfg.PositionIndexPrefixLen,
	})
}
