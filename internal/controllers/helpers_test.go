package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gsd/internal/providers"
	"gsd/internal/services"
	"gsd/internal/store"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

const testToken = "test-token"

// controllerFixture wires a memory-backed session manager behind the auth
// middleware, so handlers run the way they do in the real server.
type controllerFixture struct {
	conf     *structures.Config
	sessions services.SessionManagerInterface
	auth     providers.AuthProviderInterface
	cache    providers.CacheProviderInterface
	logger   *testutil.MockLogger
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	conf := &structures.Config{
		Thresholds: structures.ThresholdsConfig{Low: 70, High: 180},
		Timezone:   "UTC",
		Webhooks:   structures.WebhooksConfig{Timeout: 2 * time.Second, Sync: true},
		Auth:       structures.AuthConfig{Token: testToken},
	}
	logger := &testutil.MockLogger{}
	sessions, err := services.NewSessionManager(conf, logger, &testutil.MockMetrics{}, func(user string) (store.Store, error) {
		return store.NewMemStore(), nil
	})
	require.NoError(t, err)
	return &controllerFixture{
		conf:     conf,
		sessions: sessions,
		auth:     providers.NewAuthProvider(conf, logger),
		cache:    testutil.NewMockCache(),
		logger:   logger,
	}
}

// session returns the default user's session for seeding data directly.
func (f *controllerFixture) session(t *testing.T) *services.Session {
	t.Helper()
	session, err := f.sessions.Session("default")
	require.NoError(t, err)
	return session
}

// serve routes a request through a mux pattern and the auth middleware, so
// handlers see path values and the authenticated user.
func (f *controllerFixture) serve(pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, f.auth.Middleware(handler))
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func bodyString(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(data)
}
