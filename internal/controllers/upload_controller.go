package controllers

import (
	"net/http"

	json "github.com/goccy/go-json"

	"gsd/internal/providers"
	"gsd/internal/services"
)

type UploadController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewUploadController(logger providers.Logger, sessions services.SessionManagerInterface) *UploadController {
	return &UploadController{
		logger:   logger,
		sessions: sessions,
	}
}

// Upload ingests a combined device payload: CGM properties, glucose, lows,
// insulin, food, episodes and instant glucose in one request.
func (uc *UploadController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload services.UploadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := session.Upload.Process(payload)
	if err != nil {
		uc.logger.Errorf(providers.TypeApp, "upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
