package services

import (
	"fmt"
	"sort"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
)

// DefaultInstantLastN is the default window for instant glucose queries, one
// day of per-minute samples.
const DefaultInstantLastN = 24 * 60

// InstantGlucoseServiceInterface stores raw per-device readings. Unlike the
// merged view, this stream is append-mostly and never drives notifications
// or the revision counter; it exists for diagnostics and export.
type InstantGlucoseServiceInterface interface {
	Record(record models.InstantGlucoseRecord) error
	Latest(lastN int) ([]models.InstantGlucoseRecord, error)
	Find(from, to time.Time) ([]models.InstantGlucoseRecord, error)
	InsertBatch(records []models.InstantGlucoseRecord) (InsertRecordsStatus, error)
	ClearAll() error
}

type InstantGlucoseService struct {
	store    store.Store
	revision RevisionServiceInterface
	logger   providers.Logger
	loc      *time.Location
}

func NewInstantGlucoseService(st store.Store, loc *time.Location, revision RevisionServiceInterface, logger providers.Logger) InstantGlucoseServiceInterface {
	return &InstantGlucoseService{store: st, revision: revision, logger: logger, loc: loc}
}

// Record stores one reading. A reading for the same (model, device) pair at
// the same timestamp replaces the earlier one; readings from other devices
// at that timestamp are preserved.
func (is *InstantGlucoseService) Record(record models.InstantGlucoseRecord) error {
	score, member, err := models.EncodeInstantGlucoseMember(record)
	if err != nil {
		return err
	}
	is.logger.Infof(providers.TypeApp, "recording instant glucose, ts=%s, mgDl=%d", models.FormatScore(score), record.MgDl)

	return store.RunWatch(is.store, []string{keyInstantGlucose}, func(tx store.Tx) error {
		existing, err := is.store.ZRangeByScore(keyInstantGlucose, score, score, false)
		if err != nil {
			return err
		}
		replacing := false
		keep := make([]store.Member, 0, len(existing))
		for _, m := range existing {
			prev, err := models.DecodeInstantGlucoseMember(m, is.loc)
			if err != nil {
				return err
			}
			if prev.ModelName == record.ModelName && prev.DeviceID == record.DeviceID {
				replacing = true
			} else {
				keep = append(keep, m)
			}
		}
		if replacing {
			tx.ZRemRangeByScore(keyInstantGlucose, score, score)
			for _, m := range keep {
				tx.ZAdd(keyInstantGlucose, m.Score, m.Value)
			}
		}
		tx.ZAdd(keyInstantGlucose, score, member)
		return nil
	})
}

func (is *InstantGlucoseService) Latest(lastN int) ([]models.InstantGlucoseRecord, error) {
	members, err := is.store.ZTail(keyInstantGlucose, lastN)
	if err != nil {
		return nil, err
	}
	reverseMembers(members)
	records := make([]models.InstantGlucoseRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeInstantGlucoseMember(m, is.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (is *InstantGlucoseService) Find(from, to time.Time) ([]models.InstantGlucoseRecord, error) {
	members, err := is.store.ZRangeByScore(keyInstantGlucose, models.Score(from), models.Score(to), false)
	if err != nil {
		return nil, err
	}
	records := make([]models.InstantGlucoseRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeInstantGlucoseMember(m, is.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (is *InstantGlucoseService) InsertBatch(records []models.InstantGlucoseRecord) (InsertRecordsStatus, error) {
	sorted := make([]models.InstantGlucoseRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	for _, record := range sorted {
		if err := is.Record(record); err != nil {
			return InsertRecordsStatus{}, err
		}
	}
	return InsertRecordsStatus{
		Success: true,
		Status:  fmt.Sprintf("added %d record(s)", len(sorted)),
	}, nil
}

func (is *InstantGlucoseService) ClearAll() error {
	if err := is.store.Update(func(tx store.Tx) {
		tx.Del(keyInstantGlucose)
	}); err != nil {
		return err
	}
	return is.revision.Bump()
}
