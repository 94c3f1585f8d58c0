package services

import (
	"fmt"
	"sort"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
)

// LowServiceInterface stores treated hypoglycemia events.
type LowServiceInterface interface {
	Record(record models.LowRecord) error
	Latest(lastN int) ([]models.LowRecord, error)
	InsertBatch(records []models.LowRecord) (InsertRecordsStatus, error)
	ClearAll() error
}

type LowService struct {
	store    store.Store
	revision RevisionServiceInterface
	notifier providers.NotifierInterface
	logger   providers.Logger
	loc      *time.Location
}

func NewLowService(st store.Store, loc *time.Location, revision RevisionServiceInterface, notifier providers.NotifierInterface, logger providers.Logger) LowServiceInterface {
	return &LowService{store: st, revision: revision, notifier: notifier, logger: logger, loc: loc}
}

func (s *LowService) Record(record models.LowRecord) error {
	s.logger.Infof(providers.TypeApp, "recording low, id=%s, sugar=%g, deleted=%t", record.ID, record.SugarInGrams, record.Deleted)
	score, value, err := models.EncodeLowValue(record)
	if err != nil {
		return err
	}
	previous, hadPrevious, err := s.store.HGet(keyLowHash, record.ID)
	if err != nil {
		return err
	}
	if err := s.store.Update(func(tx store.Tx) {
		tx.ZAdd(keyLowSet, score, record.ID)
		tx.HSet(keyLowHash, record.ID, value)
	}); err != nil {
		return err
	}

	if hadPrevious {
		previousRecord, err := models.DecodeLowValue(previous, s.loc)
		if err == nil && previousRecord.Equal(record) {
			s.logger.Infof(providers.TypeApp, "duplicate low record, not bumping revision")
			return nil
		}
	}
	if err := s.revision.Bump(); err != nil {
		return err
	}
	s.notifier.Call("low:new", record)
	return nil
}

func (s *LowService) Latest(lastN int) ([]models.LowRecord, error) {
	members, err := s.store.ZTail(keyLowSet, lastN)
	if err != nil {
		return nil, err
	}
	reverseMembers(members)
	records := make([]models.LowRecord, 0, len(members))
	for _, m := range members {
		value, ok, err := s.store.HGet(keyLowHash, m.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("low record %q missing from hash", m.Value)
		}
		record, err := models.DecodeLowValue(value, s.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *LowService) InsertBatch(records []models.LowRecord) (InsertRecordsStatus, error) {
	sorted := make([]models.LowRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	for _, record := range sorted {
		if err := s.Record(record); err != nil {
			return InsertRecordsStatus{}, err
		}
	}
	return InsertRecordsStatus{
		Success: true,
		Status:  fmt.Sprintf("added %d record(s)", len(sorted)),
	}, nil
}

func (s *LowService) ClearAll() error {
	if err := s.store.Update(func(tx store.Tx) {
		tx.Del(keyLowSet, keyLowHash)
	}); err != nil {
		return err
	}
	return s.revision.Bump()
}
