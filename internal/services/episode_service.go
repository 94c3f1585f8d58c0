package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
	"gsd/internal/structures"
)

type InsertEpisodeStatus string

const (
	InsertEpisodeInserted  InsertEpisodeStatus = "inserted"
	InsertEpisodeReplaced  InsertEpisodeStatus = "replaced"
	InsertEpisodeDuplicate InsertEpisodeStatus = "duplicate"
)

// InsertEpisodesStatus is the response to a batch episode upload.
type InsertEpisodesStatus struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	NbInserted   int    `json:"nb_inserted"`
	NbReplaced   int    `json:"nb_replaced"`
	NbDuplicates int    `json:"nb_duplicates"`
}

// EpisodeServiceInterface maintains the timeline of glycemic state changes.
// The timeline only stores transitions: inserting the state already in effect
// at a timestamp is a duplicate, and inserting a state that also starts the
// immediately following stretch moves that stretch's start time earlier
// instead of adding a new entry.
type EpisodeServiceInterface interface {
	ForMgDl(mgDl int) models.Episode
	Insert(episode models.Episode, timestamp time.Time, notify bool) (InsertEpisodeStatus, error)
	InsertBatch(records []models.EpisodeRecord) (InsertEpisodesStatus, error)
	CurrentRecord(until *time.Time) (*models.EpisodeRecord, error)
	Current(until *time.Time) (models.Episode, error)
	Last(lastN int, until *time.Time) ([]models.EpisodeRecord, error)
	After(after time.Time) ([]models.EpisodeRecord, error)
	JustUpdated(previous, current *models.EpisodeRecord) error
	ClearAll() error
}

type EpisodeService struct {
	store    store.Store
	revision RevisionServiceInterface
	cgm      CgmServiceInterface
	notifier providers.NotifierInterface
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	loc      *time.Location
	low      int
	high     int
}

func NewEpisodeService(
	st store.Store,
	conf *structures.Config,
	loc *time.Location,
	revision RevisionServiceInterface,
	cgm CgmServiceInterface,
	notifier providers.NotifierInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) EpisodeServiceInterface {
	return &EpisodeService{
		store:    st,
		revision: revision,
		cgm:      cgm,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		loc:      loc,
		low:      conf.Thresholds.Low,
		high:     conf.Thresholds.High,
	}
}

func (es *EpisodeService) ForMgDl(mgDl int) models.Episode {
	switch {
	case mgDl < es.low:
		return models.EpisodeLow
	case mgDl >= es.high:
		return models.EpisodeHigh
	default:
		return models.EpisodeNormal
	}
}

func (es *EpisodeService) Insert(episode models.Episode, timestamp time.Time, notify bool) (InsertEpisodeStatus, error) {
	score := models.Score(timestamp)
	timestamp = models.TimeFromScore(score, es.loc)

	previousCurrent, err := es.CurrentRecord(nil)
	if err != nil {
		return "", err
	}

	var previous *models.EpisodeRecord
	var status InsertEpisodeStatus
	err = store.RunWatch(es.store, []string{keyEpisode}, func(tx store.Tx) error {
		previous, err = es.CurrentRecord(&timestamp)
		if err != nil {
			return err
		}
		previousEpisode := models.EpisodeUnknown
		if previous != nil {
			previousEpisode = previous.Episode
		}
		if previousEpisode == episode {
			status = InsertEpisodeDuplicate
			return nil
		}

		// The same state may already be recorded as starting later; if so
		// this insert just moves its start time earlier.
		status = InsertEpisodeInserted
		var followingScore float64
		following, err := es.store.ZRangeByScoreN(keyEpisode, score, math.Inf(1), false, 1)
		if err != nil {
			return err
		}
		if len(following) > 0 {
			rec, err := models.DecodeEpisodeMember(following[0], es.loc)
			if err != nil {
				return err
			}
			if rec.Episode == episode {
				status = InsertEpisodeReplaced
				followingScore = following[0].Score
			}
		}

		_, member, err := models.EncodeEpisodeMember(timestamp, episode)
		if err != nil {
			return err
		}
		tx.ZRemRangeByScore(keyEpisode, score, score)
		tx.ZAdd(keyEpisode, score, member)
		if status == InsertEpisodeReplaced {
			tx.ZRemRangeByScore(keyEpisode, followingScore, followingScore)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	es.metrics.IncEpisodeInserts(string(status))
	if status == InsertEpisodeDuplicate {
		return status, nil
	}
	if err := es.revision.Bump(); err != nil {
		return "", err
	}

	if notify {
		newCurrent, err := es.CurrentRecord(nil)
		if err != nil {
			return "", err
		}
		if !episodeRecordsEqual(newCurrent, previousCurrent) {
			if newCurrent != nil && previousCurrent != nil && newCurrent.Timestamp.Before(previousCurrent.Timestamp) {
				// A retroactive insert replaced the current state with an
				// earlier start; the in-effect state did not change.
				es.logger.Debugf(providers.TypeApp, "episode at %s replaced by earlier start, not notifying", previousCurrent.Timestamp)
			} else {
				inserted := models.EpisodeRecord{Timestamp: timestamp, Episode: episode}
				if err := es.JustUpdated(previous, &inserted); err != nil {
					return "", err
				}
			}
		}
	}
	return status, nil
}

func (es *EpisodeService) InsertBatch(records []models.EpisodeRecord) (InsertEpisodesStatus, error) {
	sorted := make([]models.EpisodeRecord, len(records))
	copy(sorted, records)
	sortEpisodeRecordsAsc(sorted)

	var status InsertEpisodesStatus
	for _, record := range sorted {
		st, err := es.Insert(record.Episode, record.Timestamp, false)
		if err != nil {
			return InsertEpisodesStatus{}, err
		}
		switch st {
		case InsertEpisodeInserted:
			status.NbInserted++
		case InsertEpisodeReplaced:
			status.NbReplaced++
		case InsertEpisodeDuplicate:
			status.NbDuplicates++
		}
	}
	status.Success = true
	status.Status = fmt.Sprintf("added %d record(s), replaced %d record(s), skipped %d duplicate(s)",
		status.NbInserted, status.NbReplaced, status.NbDuplicates)
	return status, nil
}

func (es *EpisodeService) CurrentRecord(until *time.Time) (*models.EpisodeRecord, error) {
	records, err := es.Last(1, until)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (es *EpisodeService) Current(until *time.Time) (models.Episode, error) {
	record, err := es.CurrentRecord(until)
	if err != nil {
		return "", err
	}
	if record == nil {
		return models.EpisodeUnknown, nil
	}
	return record.Episode, nil
}

// Last returns up to lastN episode records, newest first. A non-nil until
// bounds the search to records at or before that time.
func (es *EpisodeService) Last(lastN int, until *time.Time) ([]models.EpisodeRecord, error) {
	var members []store.Member
	var err error
	if until == nil {
		members, err = es.store.ZTail(keyEpisode, lastN)
		if err != nil {
			return nil, err
		}
		reverseMembers(members)
	} else {
		members, err = es.store.ZRevRangeByScoreN(keyEpisode, models.Score(*until), lastN)
		if err != nil {
			return nil, err
		}
	}
	records := make([]models.EpisodeRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeEpisodeMember(m, es.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (es *EpisodeService) After(after time.Time) ([]models.EpisodeRecord, error) {
	cutoff := models.Score(after)
	members, err := es.store.ZRangeByScore(keyEpisode, cutoff, math.Inf(1), true)
	if err != nil {
		return nil, err
	}
	records := make([]models.EpisodeRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeEpisodeMember(m, es.loc)
		if err != nil {
			return nil, err
		}
		if models.Score(record.Timestamp) <= cutoff {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// JustUpdated announces an in-effect state change over the episode:changed
// webhook, carrying both the superseded and the new record.
func (es *EpisodeService) JustUpdated(previous, current *models.EpisodeRecord) error {
	props, err := es.cgm.Properties()
	if err != nil {
		return err
	}
	es.notifier.Call("episode:changed", map[string]interface{}{
		"previous":       previous,
		"new":            current,
		"cgm-properties": props,
	})
	return nil
}

func (es *EpisodeService) ClearAll() error {
	if err := es.store.Update(func(tx store.Tx) {
		tx.Del(keyEpisode)
	}); err != nil {
		return err
	}
	return es.revision.Bump()
}

func episodeRecordsEqual(a, b *models.EpisodeRecord) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Timestamp.Unix() == b.Timestamp.Unix() && a.Episode == b.Episode
}

func sortEpisodeRecordsAsc(records []models.EpisodeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
