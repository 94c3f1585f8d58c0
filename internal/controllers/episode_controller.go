package controllers

import (
	"net/http"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/services"
)

type EpisodeController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewEpisodeController(logger providers.Logger, sessions services.SessionManagerInterface) *EpisodeController {
	return &EpisodeController{
		logger:   logger,
		sessions: sessions,
	}
}

const defaultLastEpisodes = 20

// GetCurrent serves the in-effect episode name as plain text.
func (ec *EpisodeController) GetCurrent(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ec.sessions, w, r)
	if !ok {
		return
	}
	until, err := timeParam(r, "until_date")
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	episode, err := session.Episodes.Current(until)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(episode))
}

func (ec *EpisodeController) GetCurrentRecord(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ec.sessions, w, r)
	if !ok {
		return
	}
	until, err := timeParam(r, "until_date")
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	record, err := session.Episodes.CurrentRecord(until)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (ec *EpisodeController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ec.sessions, w, r)
	if !ok {
		return
	}
	lastN := intParam(r, "last_n", defaultLastEpisodes)
	until, err := timeParam(r, "until_date")
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	records, err := session.Episodes.Last(lastN, until)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (ec *EpisodeController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ec.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Episodes.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type episodeUpload struct {
	Episodes                   []models.EpisodeRecord `json:"episodes"`
	CurrentCgmDeviceProperties *models.CgmProperties  `json:"current-cgm-device-properties"`
}

// Upload is the legacy standalone episode batch route; it runs through the
// transactional path so the batch announces at most one state change.
func (ec *EpisodeController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ec.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body episodeUpload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Episodes == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := session.Upload.Process(services.UploadPayload{
		Episodes:                   body.Episodes,
		CurrentCgmDeviceProperties: body.CurrentCgmDeviceProperties,
	})
	if err != nil {
		ec.logger.Errorf(providers.TypeApp, "episode upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result.Episodes)
}
