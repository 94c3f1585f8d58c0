package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/controllers"
	"gsd/internal/providers"
	"gsd/internal/services"
	"gsd/internal/store"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

func buildRouter(t *testing.T) providers.RouterProviderInterface {
	t.Helper()
	conf := &structures.Config{
		Thresholds: structures.ThresholdsConfig{Low: 70, High: 180},
		Timezone:   "UTC",
		Webhooks:   structures.WebhooksConfig{Timeout: 2 * time.Second, Sync: true},
		Auth:       structures.AuthConfig{Token: "token"},
	}
	logger := &testutil.MockLogger{}
	sessions, err := services.NewSessionManager(conf, logger, &testutil.MockMetrics{}, func(user string) (store.Store, error) {
		return store.NewMemStore(), nil
	})
	require.NoError(t, err)
	cache := testutil.NewMockCache()

	return InitRoutes(
		controllers.NewUploadController(logger, sessions),
		controllers.NewLastController(logger, sessions),
		controllers.NewGlucoseController(logger, sessions, cache),
		controllers.NewEpisodeController(logger, sessions),
		controllers.NewInstantGlucoseController(logger, sessions),
		controllers.NewInsulinController(logger, sessions),
		controllers.NewLowController(logger, sessions),
		controllers.NewFoodController(logger, sessions),
		controllers.NewUserdataController(logger, sessions),
		controllers.NewWebhooksController(logger, sessions),
		controllers.NewHbA1cController(logger, sessions),
	)
}

func TestInitRoutes_RegistersAllEndpoints(t *testing.T) {
	router := buildRouter(t)
	routes := router.GetRoutes()

	urls := make(map[string]bool, len(routes))
	for _, r := range routes {
		urls[r.Url] = true
	}

	for _, url := range []string{
		"/upload",
		"/last",
		"/revision",
		"/current",
		"/glucose/last",
		"/glucose/find",
		"/glucose/current",
		"/glucose/upload",
		"/glucose",
		"/episode",
		"/episode/current",
		"/episode/last",
		"/episode/upload",
		"/instant-glucose/last",
		"/instant-glucose/find",
		"/instant-glucose/download",
		"/instant-glucose/upload",
		"/instant-glucose",
		"/insulin/last",
		"/insulin/upload",
		"/insulin",
		"/low/last",
		"/low/upload",
		"/low",
		"/food/last",
		"/food/upload",
		"/food",
		"/userdata/{key}",
		"/userdata/{key}/lpush",
		"/userdata/{key}/lrange",
		"/webhooks/{event}",
		"/webhooks/{event}/last",
		"/webhooks/{event}/{id}",
		"/hba1c",
	} {
		assert.True(t, urls[url], "missing route %s", url)
	}
}

func TestInitRoutes_MergesMethodsPerURL(t *testing.T) {
	router := buildRouter(t)

	seen := make(map[string]int)
	for _, r := range router.GetRoutes() {
		seen[r.Url]++
	}
	// /episode carries GET and DELETE but must register once.
	assert.Equal(t, 1, seen["/episode"])
	assert.Equal(t, 1, seen["/userdata/{key}"])
	assert.Equal(t, 1, seen["/webhooks/{event}"])
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := buildRouter(t)

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// GET on the upload route should fail
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST on the composite snapshot should fail
	req = httptest.NewRequest(http.MethodPost, "/last", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// PATCH on a merged multi-method route should fail
	req = httptest.NewRequest(http.MethodPatch, "/userdata/settings", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
