package controllers

import (
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"gsd/internal/providers"
	"gsd/internal/services"
)

type UserdataController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewUserdataController(logger providers.Logger, sessions services.SessionManagerInterface) *UserdataController {
	return &UserdataController{
		logger:   logger,
		sessions: sessions,
	}
}

func (uc *UserdataController) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	value, found, err := session.Userdata.Get(key)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte(value))
}

// Set stores the raw request body under the key. JSON bodies are echoed into
// the userdata:set notification so subscribers see the parsed value.
func (uc *UserdataController) Set(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := session.Userdata.Set(key, string(body)); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	notification := map[string]interface{}{"key": key}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var value interface{}
		if err := json.Unmarshal(body, &value); err == nil {
			notification["value"] = value
		}
	}
	session.Webhooks.Call("userdata:set", notification)
	w.WriteHeader(http.StatusCreated)
}

func (uc *UserdataController) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Userdata.Delete(r.PathValue("key")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LPush prepends a JSON value to the list at the key. Unlike Set, the body
// must be valid JSON since lrange returns parsed items.
func (uc *UserdataController) LPush(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := session.Userdata.LPush(key, string(body)); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	session.Webhooks.Call("userdata:lpush", map[string]interface{}{
		"key":   key,
		"value": value,
	})
	w.WriteHeader(http.StatusCreated)
}

func (uc *UserdataController) LRange(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(uc.sessions, w, r)
	if !ok {
		return
	}
	start := intParam(r, "start", 0)
	end := intParam(r, "end", -1)
	raws, err := session.Userdata.LRange(r.PathValue("key"), start, end)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	items := make([]interface{}, 0, len(raws))
	for _, raw := range raws {
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			uc.logger.Warnf(providers.TypeApp, "userdata list holds non-JSON item, skipping: %s", err)
			continue
		}
		items = append(items, value)
	}
	writeJSON(w, http.StatusOK, items)
}
