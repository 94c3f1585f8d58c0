package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gsd/internal/store"
	"gsd/internal/structures"
)

// StoreRegistry owns the in-memory stores of the file backend, one per user,
// each backed by a snapshot file under the configured directory.
type StoreRegistry struct {
	dir         string
	fileManager *FileManager

	mu     sync.Mutex
	stores map[string]*store.MemStore
}

func NewStoreRegistry(conf *structures.Config, fileManager *FileManager) *StoreRegistry {
	return &StoreRegistry{
		dir:         conf.Storage.FilePath,
		fileManager: fileManager,
		stores:      make(map[string]*store.MemStore),
	}
}

// Open returns the store of a user, restoring it from its snapshot file on
// first use.
func (r *StoreRegistry) Open(user string) (store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.stores[user]; ok {
		return st, nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", r.dir, err)
	}
	st := store.NewMemStore()
	if err := r.fileManager.LoadFromFile(r.path(user), st); err != nil {
		return nil, fmt.Errorf("restore snapshot for user %q: %w", user, err)
	}
	r.stores[user] = st
	return st, nil
}

// Each calls fn for every open store. The registry lock is held for the
// whole walk; fn should be quick.
func (r *StoreRegistry) Each(fn func(user string, st *store.MemStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for user, st := range r.stores {
		if err := fn(user, st); err != nil {
			return err
		}
	}
	return nil
}

func (r *StoreRegistry) path(user string) string {
	return filepath.Join(r.dir, user+".db.zst")
}
