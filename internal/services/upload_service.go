package services

import (
	"sync"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
)

// UploadPayload is a transactional batch of records for one user. Uploading
// everything at once lets notifications reflect only the final state of the
// batch rather than every intermediate insert.
type UploadPayload struct {
	CurrentCgmDeviceProperties *models.CgmProperties         `json:"current-cgm-device-properties"`
	Device                     *models.Device                `json:"device"`
	GlucoseRecords             []UploadGlucoseRecord         `json:"glucose-records"`
	LowRecords                 []models.LowRecord            `json:"low-records"`
	FoodRecords                []models.FoodRecord           `json:"food-records"`
	InsulinRecords             []models.InsulinRecord        `json:"insulin-records"`
	Episodes                   []models.EpisodeRecord        `json:"episodes"`
	InstantGlucoseRecords      []models.InstantGlucoseRecord `json:"instant-glucose-records"`
}

type UploadResult struct {
	GlucoseRecords        *InsertRecordsStatus  `json:"glucose-records,omitempty"`
	LowRecords            *InsertRecordsStatus  `json:"low-records,omitempty"`
	InsulinRecords        *InsertRecordsStatus  `json:"insulin-records,omitempty"`
	FoodRecords           *InsertRecordsStatus  `json:"food-records,omitempty"`
	Episodes              *InsertEpisodesStatus `json:"episodes,omitempty"`
	InstantGlucoseRecords *InsertRecordsStatus  `json:"instant-glucose-records,omitempty"`
	Revision              int64                 `json:"revision"`
}

// UploadServiceInterface processes transactional uploads. All record kinds
// are stored with notifications suppressed; the merged glucose view and the
// in-effect episode are compared once around the whole batch and announced
// at most once each.
type UploadServiceInterface interface {
	Process(payload UploadPayload) (UploadResult, error)
}

type UploadService struct {
	cgm      CgmServiceInterface
	glucose  GlucoseServiceInterface
	episodes EpisodeServiceInterface
	instant  InstantGlucoseServiceInterface
	insulin  InsulinServiceInterface
	lows     LowServiceInterface
	food     FoodServiceInterface
	revision RevisionServiceInterface
	logger   providers.Logger

	// One upload at a time per user: interleaved batches would compare
	// merged views across each other's writes.
	mu sync.Mutex
}

func NewUploadService(
	cgm CgmServiceInterface,
	glucose GlucoseServiceInterface,
	episodes EpisodeServiceInterface,
	instant InstantGlucoseServiceInterface,
	insulin InsulinServiceInterface,
	lows LowServiceInterface,
	food FoodServiceInterface,
	revision RevisionServiceInterface,
	logger providers.Logger,
) UploadServiceInterface {
	return &UploadService{
		cgm:      cgm,
		glucose:  glucose,
		episodes: episodes,
		instant:  instant,
		insulin:  insulin,
		lows:     lows,
		food:     food,
		revision: revision,
		logger:   logger,
	}
}

func (us *UploadService) Process(payload UploadPayload) (UploadResult, error) {
	us.mu.Lock()
	defer us.mu.Unlock()

	if payload.CurrentCgmDeviceProperties != nil {
		if err := us.cgm.SetProperties(*payload.CurrentCgmDeviceProperties); err != nil {
			return UploadResult{}, err
		}
	}

	previousGlucose, err := us.glucose.Current()
	if err != nil {
		return UploadResult{}, err
	}
	previousEpisode, err := us.episodes.CurrentRecord(nil)
	if err != nil {
		return UploadResult{}, err
	}

	var result UploadResult
	if len(payload.GlucoseRecords) > 0 {
		status, err := us.glucose.InsertBatch(payload.GlucoseRecords, payload.Device)
		if err != nil {
			return UploadResult{}, err
		}
		result.GlucoseRecords = &status
		if err := us.announceGlucose(previousGlucose); err != nil {
			return UploadResult{}, err
		}
	}
	if len(payload.LowRecords) > 0 {
		status, err := us.lows.InsertBatch(payload.LowRecords)
		if err != nil {
			return UploadResult{}, err
		}
		result.LowRecords = &status
	}
	if len(payload.InsulinRecords) > 0 {
		status, err := us.insulin.InsertBatch(payload.InsulinRecords)
		if err != nil {
			return UploadResult{}, err
		}
		result.InsulinRecords = &status
	}
	if len(payload.Episodes) > 0 {
		status, err := us.episodes.InsertBatch(payload.Episodes)
		if err != nil {
			return UploadResult{}, err
		}
		result.Episodes = &status
	}
	if len(payload.FoodRecords) > 0 {
		status, err := us.food.InsertBatch(payload.FoodRecords)
		if err != nil {
			return UploadResult{}, err
		}
		result.FoodRecords = &status
	}
	if len(payload.InstantGlucoseRecords) > 0 {
		status, err := us.instant.InsertBatch(payload.InstantGlucoseRecords)
		if err != nil {
			return UploadResult{}, err
		}
		result.InstantGlucoseRecords = &status
	}

	if err := us.announceEpisode(previousEpisode); err != nil {
		return UploadResult{}, err
	}

	revision, err := us.revision.Get()
	if err != nil {
		return UploadResult{}, err
	}
	result.Revision = revision
	return result, nil
}

// announceGlucose fires glucose:changed when the top of the merged view now
// carries a different value than before the batch, or when the reading is
// unchanged but the last announcement has fallen a full spacing window
// behind the data, so stable readings still announce freshness periodically.
func (us *UploadService) announceGlucose(previous *models.GlucoseRecord) error {
	current, err := us.glucose.Current()
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	lastAnnouncedAt, err := us.glucose.LastJustUpdatedAt()
	if err != nil {
		return err
	}
	stale := lastAnnouncedAt != nil &&
		lastAnnouncedAt.Unix() < current.Timestamp.Unix()-KeepScanRecordsApartSeconds
	if previous != nil && previous.MgDl == current.MgDl && !stale {
		return nil
	}

	if previous != nil && previous.Timestamp.After(current.Timestamp) {
		// A retroactive write moved the view's top backwards; announce it
		// anyway but leave a trace, clients may see time go backwards.
		us.logger.Errorf(providers.TypeApp, "mismatched timestamps for glucose change, previous=%s, current=%s",
			previous.Timestamp, current.Timestamp)
	}
	if err := us.glucose.JustUpdated(previous, current); err != nil {
		return err
	}

	current, err = us.glucose.Current()
	if err != nil {
		return err
	}
	if current != nil {
		episode := us.episodes.ForMgDl(current.MgDl)
		if _, err := us.episodes.Insert(episode, current.Timestamp, false); err != nil {
			return err
		}
	}
	return nil
}

// announceEpisode fires episode:changed at most once for the whole batch,
// comparing the in-effect episode before and after. A new record that is
// older than the previous one means a retroactive insert replaced the
// current state's start time without changing the state itself;
// intermediate states inserted mid-batch are never announced.
func (us *UploadService) announceEpisode(previous *models.EpisodeRecord) error {
	current, err := us.episodes.CurrentRecord(nil)
	if err != nil {
		return err
	}
	if episodeRecordsEqual(current, previous) {
		return nil
	}
	if current == nil {
		return nil
	}
	if previous != nil && current.Timestamp.Before(previous.Timestamp) {
		us.logger.Debugf(providers.TypeApp, "current episode replaced by an earlier record, not notifying")
		return nil
	}
	if previous != nil && current.Episode == previous.Episode {
		us.logger.Debugf(providers.TypeApp, "episode unchanged at %s, not notifying", current.Timestamp.Format(time.RFC3339))
		return nil
	}
	return us.episodes.JustUpdated(previous, current)
}
