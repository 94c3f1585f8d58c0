package services

import (
	"fmt"
	"sort"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
)

// FoodServiceInterface stores meal records.
type FoodServiceInterface interface {
	Record(record models.FoodRecord) error
	Latest(lastN int) ([]models.FoodRecord, error)
	InsertBatch(records []models.FoodRecord) (InsertRecordsStatus, error)
	ClearAll() error
}

type FoodService struct {
	store    store.Store
	revision RevisionServiceInterface
	notifier providers.NotifierInterface
	logger   providers.Logger
	loc      *time.Location
}

func NewFoodService(st store.Store, loc *time.Location, revision RevisionServiceInterface, notifier providers.NotifierInterface, logger providers.Logger) FoodServiceInterface {
	return &FoodService{store: st, revision: revision, notifier: notifier, logger: logger, loc: loc}
}

func (s *FoodService) Record(record models.FoodRecord) error {
	s.logger.Infof(providers.TypeApp, "recording food, id=%s, name=%q, deleted=%t", record.ID, record.Name, record.Deleted)
	score, value, err := models.EncodeFoodValue(record)
	if err != nil {
		return err
	}
	previous, hadPrevious, err := s.store.HGet(keyFoodHash, record.ID)
	if err != nil {
		return err
	}
	if err := s.store.Update(func(tx store.Tx) {
		tx.ZAdd(keyFoodSet, score, record.ID)
		tx.HSet(keyFoodHash, record.ID, value)
	}); err != nil {
		return err
	}

	if hadPrevious {
		previousRecord, err := models.DecodeFoodValue(previous, s.loc)
		if err == nil && previousRecord.Equal(record) {
			s.logger.Infof(providers.TypeApp, "duplicate food record, not bumping revision")
			return nil
		}
	}
	if err := s.revision.Bump(); err != nil {
		return err
	}
	s.notifier.Call("food:new", record)
	return nil
}

func (s *FoodService) Latest(lastN int) ([]models.FoodRecord, error) {
	members, err := s.store.ZTail(keyFoodSet, lastN)
	if err != nil {
		return nil, err
	}
	reverseMembers(members)
	records := make([]models.FoodRecord, 0, len(members))
	for _, m := range members {
		value, ok, err := s.store.HGet(keyFoodHash, m.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("food record %q missing from hash", m.Value)
		}
		record, err := models.DecodeFoodValue(value, s.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *FoodService) InsertBatch(records []models.FoodRecord) (InsertRecordsStatus, error) {
	sorted := make([]models.FoodRecord, len(records))
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

func (s *FoodService) ClearAll() error {
	if err := s.store.Update(func(tx store.Tx) {
		tx.Del(keyFoodSet, keyFoodHash)
	}); err != nil {
		return err
	}
	return s.revision.Bump()
}
