package controllers

import (
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/providers"
	"gsd/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// sessionFromRequest resolves the per-user session for an authenticated
// request. The auth middleware guarantees a user is present.
func sessionFromRequest(sessions services.SessionManagerInterface, w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	user := providers.UserFromContext(r.Context())
	if user == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	session, err := sessions.Session(user)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return session, true
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// timeParam parses an ISO 8601 query parameter; a missing parameter yields a
// nil time without error.
func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
