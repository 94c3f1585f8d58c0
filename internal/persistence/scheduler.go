package persistence

import (
	"sync"

	"github.com/roylee0704/gron"

	"gsd/internal/persistence/interfaces"
	"gsd/internal/providers"
	"gsd/internal/store"
	"gsd/internal/structures"
)

// Scheduler periodically snapshots every open store of the file backend.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	registry    *StoreRegistry
	fileManager *FileManager
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Storage.SaveInterval

	s.cron.AddFunc(gron.Every(interval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.persistAll(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore is a no-op: stores are restored lazily when first opened.
func (s *Scheduler) Restore() error {
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting stores to disk...")
	return s.persistAll()
}

func (s *Scheduler) persistAll() error {
	return s.registry.Each(func(user string, st *store.MemStore) error {
		if err := s.fileManager.SaveToFile(s.registry.path(user), st); err != nil {
			return err
		}
		s.logger.Infof(providers.TypeApp, "Persisted store for user %q to %s", user, s.registry.path(user))
		return nil
	})
}

// noopScheduler serves backends that persist on their own, like redis.
type noopScheduler struct{}

func (n *noopScheduler) Init()          {}
func (n *noopScheduler) Stop()          {}
func (n *noopScheduler) Restore() error { return nil }
func (n *noopScheduler) Persist() error { return nil }

func NewScheduler(config *structures.Config, logger providers.Logger, registry *StoreRegistry, fileManager *FileManager) interfaces.SchedulerInterface {
	if config.Storage.Backend != "file" {
		return &noopScheduler{}
	}
	return &Scheduler{
		config:      config,
		logger:      logger,
		registry:    registry,
		fileManager: fileManager,
	}
}
