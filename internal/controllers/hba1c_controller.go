package controllers

import (
	"net/http"

	"gsd/internal/providers"
	"gsd/internal/services"
)

type HbA1cController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewHbA1cController(logger providers.Logger, sessions services.SessionManagerInterface) *HbA1cController {
	return &HbA1cController{
		logger:   logger,
		sessions: sessions,
	}
}

func (hc *HbA1cController) Compute(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(hc.sessions, w, r)
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
	result, err := session.HbA1c.Compute(*from, *to)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
