package controllers

import (
	"net/http"
	"strconv"
	"time"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/services"
)

// LastController serves the composite snapshot companion apps poll: all
// recent records of every stream in one response, validated against the
// revision counter.
type LastController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewLastController(logger providers.Logger, sessions services.SessionManagerInterface) *LastController {
	return &LastController{
		logger:   logger,
		sessions: sessions,
	}
}

const lastInstantRecords = 5

func (lc *LastController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(lc.sessions, w, r)
	if !ok {
		return
	}
	revision, err := session.Revision.Get()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	etag := strconv.FormatInt(revision, 10)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	recordType := r.URL.Query().Get("type")
	lastNGlucose := intParam(r, "last_n_glucose", defaultLastRecords)
	maxDuration := intParam(r, "max_duration", defaultMaxDuration)
	minTimestamp := time.Now().Add(-time.Duration(maxDuration) * time.Second)

	var glucose []models.GlucoseRecord
	if recordType != "" {
		glucose, err = session.Glucose.Latest(models.GlucoseRecordType(recordType), lastNGlucose)
	} else {
		glucose, err = session.Glucose.Merged(lastNGlucose, lastNGlucose)
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	kept := glucose[:0]
	for _, record := range glucose {
		if record.Timestamp.After(minTimestamp) {
			kept = append(kept, record)
		}
	}
	glucose = kept

	lows, err := session.Lows.Latest(defaultLastRecords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	keptLows := lows[:0]
	for _, record := range lows {
		if record.Timestamp.After(minTimestamp) {
			keptLows = append(keptLows, record)
		}
	}

	insulin, err := session.Insulin.Latest(defaultLastRecords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	keptInsulin := insulin[:0]
	for _, record := range insulin {
		if record.Timestamp.After(minTimestamp) {
			keptInsulin = append(keptInsulin, record)
		}
	}

	food, err := session.Food.Latest(defaultLastRecords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	keptFood := food[:0]
	for _, record := range food {
		if record.Timestamp.After(minTimestamp) {
			keptFood = append(keptFood, record)
		}
	}

	instant, err := session.Instant.Latest(lastInstantRecords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	keptInstant := instant[:0]
	for _, record := range instant {
		if record.Timestamp.After(minTimestamp) {
			keptInstant = append(keptInstant, record)
		}
	}

	w.Header().Set("Etag", etag)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision":                revision,
		"glucose-records":         glucose,
		"low-records":             keptLows,
		"insulin-records":         keptInsulin,
		"food-records":            keptFood,
		"instant-glucose-records": keptInstant,
	})
}

func (lc *LastController) GetRevision(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(lc.sessions, w, r)
	if !ok {
		return
	}
	revision, err := session.Revision.Get()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	changedAt, err := session.Revision.ChangedAt()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision":            revision,
		"revision_changed_at": changedAt.Format(time.RFC3339Nano),
	})
}
