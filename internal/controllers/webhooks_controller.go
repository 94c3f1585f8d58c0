package controllers

import (
	"net/http"

	json "github.com/goccy/go-json"

	"gsd/internal/providers"
	"gsd/internal/services"
)

type WebhooksController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewWebhooksController(logger providers.Logger, sessions services.SessionManagerInterface) *WebhooksController {
	return &WebhooksController{
		logger:   logger,
		sessions: sessions,
	}
}

type webhookRegisterRequest struct {
	URL    string `json:"url"`
	Filter string `json:"filter"`
}

func (wc *WebhooksController) Register(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(wc.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body webhookRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	id, err := session.Webhooks.Register(r.PathValue("event"), body.URL, body.Filter)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (wc *WebhooksController) List(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(wc.sessions, w, r)
	if !ok {
		return
	}
	regs, err := session.Webhooks.List(r.PathValue("event"))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (wc *WebhooksController) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(wc.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Webhooks.Delete(r.PathValue("event"), r.PathValue("id")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (wc *WebhooksController) DeleteAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(wc.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Webhooks.DeleteAll(r.PathValue("event")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LastDeliveries replays the recent notification ring of an event, optionally
// narrowed by a JMESPath filter.
func (wc *WebhooksController) LastDeliveries(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(wc.sessions, w, r)
	if !ok {
		return
	}
	lastN := intParam(r, "last_n", defaultLastRecords)
	deliveries, err := session.Webhooks.LastDeliveries(r.PathValue("event"), r.URL.Query().Get("filter"), lastN)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if deliveries == nil {
		deliveries = []providers.WebhookDelivery{}
	}
	writeJSON(w, http.StatusOK, deliveries)
}
