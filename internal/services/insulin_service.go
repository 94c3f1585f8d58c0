package services

import (
	"fmt"
	"sort"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
)

// InsulinServiceInterface stores insulin boluses, keyed by a client-chosen
// id so a record can later be amended or soft-deleted by re-uploading it.
type InsulinServiceInterface interface {
	Record(record models.InsulinRecord) error
	Latest(lastN int) ([]models.InsulinRecord, error)
	InsertBatch(records []models.InsulinRecord) (InsertRecordsStatus, error)
	ClearAll() error
}

type InsulinService struct {
	store    store.Store
	revision RevisionServiceInterface
	notifier providers.NotifierInterface
	logger   providers.Logger
	loc      *time.Location
}

func NewInsulinService(st store.Store, loc *time.Location, revision RevisionServiceInterface, notifier providers.NotifierInterface, logger providers.Logger) InsulinServiceInterface {
	return &InsulinService{store: st, revision: revision, notifier: notifier, logger: logger, loc: loc}
}

func (s *InsulinService) Record(record models.InsulinRecord) error {
	s.logger.Infof(providers.TypeApp, "recording insulin, id=%s, units=%d, deleted=%t", record.ID, record.Units, record.Deleted)
	score, value, err := models.EncodeInsulinValue(record)
	if err != nil {
		return err
	}
	previous, hadPrevious, err := s.store.HGet(keyInsulinHash, record.ID)
	if err != nil {
		return err
	}
	if err := s.store.Update(func(tx store.Tx) {
		tx.ZAdd(keyInsulinSet, score, record.ID)
		tx.HSet(keyInsulinHash, record.ID, value)
	}); err != nil {
		return err
	}

	if hadPrevious {
		previousRecord, err := models.DecodeInsulinValue(previous, s.loc)
		if err == nil && previousRecord.Equal(record) {
			s.logger.Infof(providers.TypeApp, "duplicate insulin record, not bumping revision")
			return nil
		}
	}
	if err := s.revision.Bump(); err != nil {
		return err
	}
	s.notifier.Call("insulin:new", record)
	return nil
}

func (s *InsulinService) Latest(lastN int) ([]models.InsulinRecord, error) {
	members, err := s.store.ZTail(keyInsulinSet, lastN)
	if err != nil {
		return nil, err
	}
	reverseMembers(members)
	records := make([]models.InsulinRecord, 0, len(members))
	for _, m := range members {
		value, ok, err := s.store.HGet(keyInsulinHash, m.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("insulin record %q missing from hash", m.Value)
		}
		record, err := models.DecodeInsulinValue(value, s.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *InsulinService) InsertBatch(records []models.InsulinRecord) (InsertRecordsStatus, error) {
	sorted := make([]models.InsulinRecord, len(records))
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

func (s *InsulinService) ClearAll() error {
	if err := s.store.Update(func(tx store.Tx) {
		tx.Del(keyInsulinSet, keyInsulinHash)
	}); err != nil {
		return err
	}
	return s.revision.Bump()
}
