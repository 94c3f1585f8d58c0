package controllers

import (
	"net/http"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/services"
)

const defaultLastRecords = 288

// InsulinController, LowController and FoodController share the same shape:
// a last-N query, a batch upload and a clear route over an id-keyed stream.

type InsulinController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewInsulinController(logger providers.Logger, sessions services.SessionManagerInterface) *InsulinController {
	return &InsulinController{logger: logger, sessions: sessions}
}

func (c *InsulinController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	records, err := session.Insulin.Latest(intParam(r, "last_n", defaultLastRecords))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type insulinUpload struct {
	Records []models.InsulinRecord `json:"insulin-records"`
}

func (c *InsulinController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body insulinUpload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Records == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	status, err := session.Insulin.InsertBatch(body.Records)
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "insulin upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (c *InsulinController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Insulin.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type LowController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewLowController(logger providers.Logger, sessions services.SessionManagerInterface) *LowController {
	return &LowController{logger: logger, sessions: sessions}
}

func (c *LowController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	records, err := session.Lows.Latest(intParam(r, "last_n", defaultLastRecords))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type lowUpload struct {
	Records []models.LowRecord `json:"low-records"`
}

func (c *LowController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body lowUpload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Records == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	status, err := session.Lows.InsertBatch(body.Records)
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "low upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (c *LowController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Lows.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type FoodController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewFoodController(logger providers.Logger, sessions services.SessionManagerInterface) *FoodController {
	return &FoodController{logger: logger, sessions: sessions}
}

func (c *FoodController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	records, err := session.Food.Latest(intParam(r, "last_n", defaultLastRecords))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type foodUpload struct {
	Records []models.FoodRecord `json:"food-records"`
}

func (c *FoodController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body foodUpload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Records == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	status, err := session.Food.InsertBatch(body.Records)
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "food upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (c *FoodController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(c.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Food.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
