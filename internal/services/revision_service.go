package services

import (
	"strconv"
	"time"

	"gsd/internal/store"
)

// RevisionServiceInterface tracks the per-user monotonic change counter used
// as the cache validation token at the API boundary. Every accepted,
// non-duplicate mutation to any stream bumps it.
type RevisionServiceInterface interface {
	Get() (int64, error)
	ChangedAt() (time.Time, error)
	Bump() error
}

type RevisionService struct {
	store store.Store
}

func NewRevisionService(st store.Store) RevisionServiceInterface {
	return &RevisionService{store: st}
}

func (rs *RevisionService) Get() (int64, error) {
	v, ok, err := rs.store.Get(keyRevision)
	if err != nil {
		return 0, err
	}
	if !ok {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (rs *RevisionService) ChangedAt() (time.Time, error) {
	v, ok, err := rs.store.Get(keyRevisionChangedAt)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Unix(0, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func (rs *RevisionService) Bump() error {
	return rs.store.Update(func(tx store.Tx) {
		tx.Incr(keyRevision)
		tx.Set(keyRevisionChangedAt, time.Now().UTC().Format(time.RFC3339Nano))
	})
}
