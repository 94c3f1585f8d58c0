package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/services"
)

type GlucoseController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
	cache    providers.CacheProviderInterface
}

func NewGlucoseController(logger providers.Logger, sessions services.SessionManagerInterface, cache providers.CacheProviderInterface) *GlucoseController {
	return &GlucoseController{
		logger:   logger,
		sessions: sessions,
		cache:    cache,
	}
}

// defaultMaxDuration bounds "last records" queries to the recent past.
const defaultMaxDuration = 7 * 60 * 60

func (gc *GlucoseController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(gc.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Glucose.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLast serves the latest records of one stream, or of the merged view
// when no type is given.
func (gc *GlucoseController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(gc.sessions, w, r)
	if !ok {
		return
	}
	lastN := intParam(r, "last_n", services.DefaultLastN)
	maxDuration := intParam(r, "max_duration", defaultMaxDuration)

	var records []models.GlucoseRecord
	var err error
	if rawType := r.URL.Query().Get("type"); rawType != "" {
		recordType, perr := models.ParseGlucoseRecordType(rawType)
		if perr != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		records, err = session.Glucose.Latest(recordType, lastN)
	} else {
		records, err = session.Glucose.Merged(lastN, lastN)
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	minTimestamp := time.Now().Add(-time.Duration(maxDuration) * time.Second)
	filtered := make([]models.GlucoseRecord, 0, len(records))
	for _, record := range records {
		if record.Timestamp.After(minTimestamp) {
			filtered = append(filtered, record)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (gc *GlucoseController) Find(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(gc.sessions, w, r)
	if !ok {
		return
	}
	from, err := timeParam(r, "from")
	if err != nil || from == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil || to == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	recordType := models.GlucoseRecordTypeHistoric
	if rawType := r.URL.Query().Get("type"); rawType != "" {
		recordType, err = models.ParseGlucoseRecordType(rawType)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	records, err := session.Glucose.Find(recordType, *from, *to)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetCurrent serves the merged view's top record under the legacy field
// names; GetCurrentState is the same document with the newer names.
func (gc *GlucoseController) GetCurrent(w http.ResponseWriter, r *http.Request) {
	gc.handleCurrent(w, r, "current", "last_historic")
}

func (gc *GlucoseController) GetCurrentState(w http.ResponseWriter, r *http.Request) {
	gc.handleCurrent(w, r, "current_glucose_record", "last_historic_glucose_record")
}

func (gc *GlucoseController) handleCurrent(w http.ResponseWriter, r *http.Request, currentField, lastHistoricField string) {
	session, ok := sessionFromRequest(gc.sessions, w, r)
	if !ok {
		return
	}
	revision, err := session.Revision.Get()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	etag := fmt.Sprintf("%d", revision)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	cacheKey := "current:" + session.User + ":" + currentField + ":" + etag
	if data, ok := gc.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Etag", etag)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	body, err := gc.currentDocument(session, revision, currentField, lastHistoricField)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	gc.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Etag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (gc *GlucoseController) currentDocument(session *services.Session, revision int64, currentField, lastHistoricField string) (map[string]interface{}, error) {
	hasRealTime, err := session.Cgm.HasRealTimeData()
	if err != nil {
		return nil, err
	}

	records, err := session.Glucose.Merged(services.DefaultLastN, services.DefaultLastN)
	if err != nil {
		return nil, err
	}
	historic, err := session.Glucose.Latest(models.GlucoseRecordTypeHistoric, 2)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		currentField:                nil,
		lastHistoricField:           nil,
		"current_episode":           nil,
		"current_episode_timestamp": nil,
		"has_cgm_real_time_data":    hasRealTime,
		"revision":                  revision,
	}
	if len(records) == 0 {
		return body, nil
	}
	body[currentField] = records[0]

	// The last historic record shown alongside must differ from the current
	// record, otherwise it carries no information.
	var lastHistoric *models.GlucoseRecord
	if len(historic) > 0 {
		lastHistoric = &historic[0]
		if lastHistoric.Timestamp.Unix() == records[0].Timestamp.Unix() {
			lastHistoric = nil
			if len(historic) > 1 {
				lastHistoric = &historic[1]
			}
		}
	}
	if lastHistoric != nil {
		body[lastHistoricField] = lastHistoric
	}

	episode, err := session.Episodes.CurrentRecord(nil)
	if err != nil {
		return nil, err
	}
	if episode != nil {
		body["current_episode"] = episode.Episode
		body["current_episode_timestamp"] = episode.Timestamp
	}
	return body, nil
}

type legacyGlucoseUpload struct {
	Records                    []services.UploadGlucoseRecord `json:"records"`
	CurrentCgmDeviceProperties *models.CgmProperties          `json:"current-cgm-device-properties"`
}

// Upload is the legacy batch route; it accepts either a bare array of
// records or an object wrapping them, and runs through the same
// transactional path as the full upload.
func (gc *GlucoseController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(gc.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	var payload services.UploadPayload
	var wrapped legacyGlucoseUpload
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Records != nil {
		payload.GlucoseRecords = wrapped.Records
		payload.CurrentCgmDeviceProperties = wrapped.CurrentCgmDeviceProperties
	} else if err := json.Unmarshal(raw, &payload.GlucoseRecords); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := session.Upload.Process(payload)
	if err != nil {
		gc.logger.Errorf(providers.TypeApp, "glucose upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	status := result.GlucoseRecords
	if status == nil {
		status = &services.InsertRecordsStatus{Success: true, Status: "added 0 record(s)"}
	}
	writeJSON(w, http.StatusOK, status)
}
