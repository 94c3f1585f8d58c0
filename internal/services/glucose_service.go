package services

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/store"
	"gsd/internal/structures"
)

// KeepScanRecordsApartSeconds is the minimum spacing, in seconds, between
// two scan records surfaced in the merged view. It is slightly under five
// minutes so that a device sampling on a five-minute cadence never has a
// fresh reading held back by jitter.
const KeepScanRecordsApartSeconds = 4*60 + 50

// InsertRecordsStatus is the response to a batch record upload.
type InsertRecordsStatus struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// UploadGlucoseRecord is a glucose record as it appears in upload payloads,
// which historically used either "type" or "record_type" for the stream name
// and may carry per-record device identification.
type UploadGlucoseRecord struct {
	Timestamp  time.Time                `json:"timestamp"`
	MgDl       int                      `json:"mgDl"`
	Type       models.GlucoseRecordType `json:"type"`
	RecordType models.GlucoseRecordType `json:"record_type"`
	ModelName  string                   `json:"model_name"`
	DeviceID   string                   `json:"device_id"`
}

func (r UploadGlucoseRecord) recordType() models.GlucoseRecordType {
	if r.Type != "" {
		return r.Type
	}
	return r.RecordType
}

// GlucoseServiceInterface stores the historic and scan glucose streams and
// computes the merged "current glucose" view combining both.
type GlucoseServiceInterface interface {
	Record(recordType models.GlucoseRecordType, timestamp time.Time, mgDl int, triggerEpisodeChanges bool) error
	Latest(recordType models.GlucoseRecordType, lastN int) ([]models.GlucoseRecord, error)
	Merged(lastNHistoric, lastNScan int) ([]models.GlucoseRecord, error)
	Current() (*models.GlucoseRecord, error)
	Find(recordType models.GlucoseRecordType, from, to time.Time) ([]models.GlucoseRecord, error)
	InsertBatch(records []UploadGlucoseRecord, device *models.Device) (InsertRecordsStatus, error)
	JustUpdated(previous, current *models.GlucoseRecord) error
	LastJustUpdatedAt() (*time.Time, error)
	ClearAll() error
}

type GlucoseService struct {
	store    store.Store
	revision RevisionServiceInterface
	cgm      CgmServiceInterface
	episodes EpisodeServiceInterface
	instant  InstantGlucoseServiceInterface
	userdata UserdataServiceInterface
	notifier providers.NotifierInterface
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	loc      *time.Location
	low      int
	high     int

	// Serializes merged-view computations: the computation conditionally
	// advances the lastUsedScan marker, and two interleaved runs could let
	// one overwrite the other's more advanced marker.
	mergeMu sync.Mutex
}

func NewGlucoseService(
	st store.Store,
	conf *structures.Config,
	loc *time.Location,
	revision RevisionServiceInterface,
	cgm CgmServiceInterface,
	episodes EpisodeServiceInterface,
	instant InstantGlucoseServiceInterface,
	userdata UserdataServiceInterface,
	notifier providers.NotifierInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) GlucoseServiceInterface {
	return &GlucoseService{
		store:    st,
		revision: revision,
		cgm:      cgm,
		episodes: episodes,
		instant:  instant,
		userdata: userdata,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		loc:      loc,
		low:      conf.Thresholds.Low,
		high:     conf.Thresholds.High,
	}
}

func glucoseKey(recordType models.GlucoseRecordType) string {
	if recordType == models.GlucoseRecordTypeScan {
		return keyGlucoseScan
	}
	return keyGlucoseHistoric
}

// Record stores one glucose reading. Re-recording the value already stored
// at the same timestamp is a duplicate: no revision bump, no webhook.
func (gs *GlucoseService) Record(recordType models.GlucoseRecordType, timestamp time.Time, mgDl int, triggerEpisodeChanges bool) error {
	key := glucoseKey(recordType)
	score, member, err := models.EncodeGlucoseMember(timestamp, mgDl)
	if err != nil {
		return err
	}
	gs.logger.Infof(providers.TypeApp, "recording glucose, key=%s, ts=%s, mgDl=%d", key, models.FormatScore(score), mgDl)

	previous, err := gs.store.ZRangeByScore(key, score, score, false)
	if err != nil {
		return err
	}
	if err := gs.store.Update(func(tx store.Tx) {
		tx.ZRemRangeByScore(key, score, score)
		tx.ZAdd(key, score, member)
	}); err != nil {
		return err
	}

	shouldBump := true
	if len(previous) > 0 {
		record, err := models.DecodeGlucoseMember(recordType, previous[0], gs.loc)
		if err == nil && record.MgDl == mgDl {
			gs.logger.Infof(providers.TypeApp, "duplicate glucose record, not bumping revision")
			shouldBump = false
		}
	}
	if shouldBump {
		if err := gs.revision.Bump(); err != nil {
			return err
		}
		gs.notifier.Call("glucose:new:"+string(recordType), map[string]interface{}{
			"timestamp": timestamp,
			"mgDl":      mgDl,
		})
	}

	if triggerEpisodeChanges {
		episode := gs.episodes.ForMgDl(mgDl)
		if _, err := gs.episodes.Insert(episode, timestamp, true); err != nil {
			return err
		}
	}
	return nil
}

// Latest returns the lastN most recent records of one stream, newest first.
func (gs *GlucoseService) Latest(recordType models.GlucoseRecordType, lastN int) ([]models.GlucoseRecord, error) {
	members, err := gs.store.ZTail(glucoseKey(recordType), lastN)
	if err != nil {
		return nil, err
	}
	reverseMembers(members)
	records := make([]models.GlucoseRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeGlucoseMember(recordType, m, gs.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Merged returns the merged view of both streams, newest first: the latest
// historic records plus the scan records more recent than the newest
// historic one, thinned out by the spacing filter.
func (gs *GlucoseService) Merged(lastNHistoric, lastNScan int) ([]models.GlucoseRecord, error) {
	gs.mergeMu.Lock()
	defer gs.mergeMu.Unlock()
	return gs.mergedLocked(lastNHistoric, lastNScan)
}

func (gs *GlucoseService) mergedLocked(lastNHistoric, lastNScan int) ([]models.GlucoseRecord, error) {
	gs.metrics.IncMergeComputations()

	historic, err := gs.Latest(models.GlucoseRecordTypeHistoric, lastNHistoric)
	if err != nil {
		return nil, err
	}
	if len(historic) == 0 {
		return gs.Latest(models.GlucoseRecordTypeScan, lastNHistoric)
	}
	lastHistoricTs := models.Score(historic[0].Timestamp)

	lastUsedScan, err := gs.lastUsedScan()
	if err != nil {
		return nil, err
	}
	lastUsedScanTs := models.Score(lastUsedScan)

	members, err := gs.store.ZRangeByScore(keyGlucoseScan, lastHistoricTs, math.Inf(1), true)
	if err != nil {
		return nil, err
	}
	scans := make([]models.GlucoseRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeGlucoseMember(models.GlucoseRecordTypeScan, m, gs.loc)
		if err != nil {
			return nil, err
		}
		scans = append(scans, record)
	}

	// Remember the newest scan before filtering: it may be brought back by
	// the crossing rule below even when the spacing filter drops it.
	var lastScan *models.GlucoseRecord
	if len(scans) > 0 {
		last := scans[len(scans)-1]
		lastScan = &last
	}

	hasRealTime, err := gs.cgm.HasRealTimeData()
	if err != nil {
		return nil, err
	}
	if hasRealTime {
		// Thin scans to one per spacing window, anchored on the last scan
		// that was surfaced; that scan itself is always kept so the view
		// does not oscillate when historic records shift underneath it.
		base := lastUsedScanTs
		filtered := make([]models.GlucoseRecord, 0, len(scans))
		for _, record := range scans {
			cur := models.Score(record.Timestamp)
			if cur-base >= KeepScanRecordsApartSeconds || cur == lastUsedScanTs {
				filtered = append(filtered, record)
				base = cur
			}
		}
		if len(filtered) > 0 {
			scans = filtered
		}
	} else {
		gs.logger.Infof(providers.TypeApp, "no realtime CGM data, keeping all scan records")
	}

	reverseGlucoseRecords(scans)
	results := append(scans, historic...)

	if len(results) > 0 && lastScan != nil && !lastScan.Timestamp.Equal(results[0].Timestamp) {
		// A scan crossing into low always surfaces immediately. A scan
		// crossing into high surfaces only when the view's newest value is
		// not already high, so a still-high reading after a surfaced high is
		// not announced again.
		crosses := lastScan.MgDl < gs.low ||
			(lastScan.MgDl >= gs.high && results[0].MgDl < gs.high)
		if crosses {
			results = append([]models.GlucoseRecord{*lastScan}, results...)
		}
	}

	for _, record := range results {
		if record.RecordType != models.GlucoseRecordTypeScan {
			continue
		}
		// The marker only moves forward.
		if record.Timestamp.After(lastUsedScan) {
			value := record.Timestamp.Format(time.RFC3339)
			if err := gs.store.Update(func(tx store.Tx) {
				tx.Set(keyLastUsedScan, value)
			}); err != nil {
				return nil, err
			}
		}
		break
	}
	return results, nil
}

func (gs *GlucoseService) lastUsedScan() (time.Time, error) {
	v, ok, err := gs.store.Get(keyLastUsedScan)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Unix(0, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, v)
}

func (gs *GlucoseService) Current() (*models.GlucoseRecord, error) {
	records, err := gs.Merged(DefaultLastN, DefaultLastN)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (gs *GlucoseService) Find(recordType models.GlucoseRecordType, from, to time.Time) ([]models.GlucoseRecord, error) {
	members, err := gs.store.ZRangeByScore(glucoseKey(recordType), models.Score(from), models.Score(to), false)
	if err != nil {
		return nil, err
	}
	records := make([]models.GlucoseRecord, 0, len(members))
	for _, m := range members {
		record, err := models.DecodeGlucoseMember(recordType, m, gs.loc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// InsertBatch stores a batch of glucose records: historic records first so
// that scans are evaluated against the freshest baseline, then scans, each
// scan also mirrored to the per-device instant stream. No change
// notifications fire; the caller compares the merged view around the batch.
func (gs *GlucoseService) InsertBatch(records []UploadGlucoseRecord, device *models.Device) (InsertRecordsStatus, error) {
	sorted := make([]UploadGlucoseRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for _, record := range sorted {
		if record.recordType() != models.GlucoseRecordTypeHistoric {
			continue
		}
		if err := gs.Record(models.GlucoseRecordTypeHistoric, record.Timestamp, record.MgDl, false); err != nil {
			return InsertRecordsStatus{}, err
		}
	}

	modelName := "Unknown"
	deviceID := "00000000-0000-0000-0000-000000000000"
	if device != nil {
		modelName = device.ModelName
		deviceID = device.DeviceID
	}
	for _, record := range sorted {
		if record.recordType() != models.GlucoseRecordTypeScan {
			continue
		}
		if err := gs.Record(models.GlucoseRecordTypeScan, record.Timestamp, record.MgDl, false); err != nil {
			return InsertRecordsStatus{}, err
		}
		instant := models.InstantGlucoseRecord{
			Timestamp: record.Timestamp,
			MgDl:      record.MgDl,
			ModelName: modelName,
			DeviceID:  deviceID,
		}
		if record.ModelName != "" {
			instant.ModelName = record.ModelName
		}
		if record.DeviceID != "" {
			instant.DeviceID = record.DeviceID
		}
		if err := gs.instant.Record(instant); err != nil {
			return InsertRecordsStatus{}, err
		}
	}
	return InsertRecordsStatus{
		Success: true,
		Status:  fmt.Sprintf("added %d record(s)", len(sorted)),
	}, nil
}

// JustUpdated announces the new top of the merged view over the
// glucose:changed webhook and remembers the announced record's timestamp,
// which drives the periodic re-announcement of long stable readings.
func (gs *GlucoseService) JustUpdated(previous, current *models.GlucoseRecord) error {
	props, err := gs.cgm.Properties()
	if err != nil {
		return err
	}
	gs.notifier.Call("glucose:changed", map[string]interface{}{
		"previous":       previous,
		"new":            current,
		"cgm-properties": props,
	})
	if current != nil {
		return gs.userdata.Set(keyLastGlucoseUpdate, current.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func (gs *GlucoseService) LastJustUpdatedAt() (*time.Time, error) {
	v, ok, err := gs.userdata.Get(keyLastGlucoseUpdate)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (gs *GlucoseService) ClearAll() error {
	if err := gs.store.Update(func(tx store.Tx) {
		tx.Del(keyGlucoseHistoric, keyGlucoseScan, keyLastUsedScan)
	}); err != nil {
		return err
	}
	return gs.revision.Bump()
}

func reverseGlucoseRecords(records []models.GlucoseRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
