package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/structures"
)

func newTestAuthProvider() AuthProviderInterface {
	conf := &structures.Config{}
	conf.Auth.Token = "primary-token"
	conf.Auth.Tokens = map[string]string{"alice-token": "alice"}
	return NewAuthProvider(conf, recordedLogger{})
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/glucose/last", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuthProvider_Authenticate(t *testing.T) {
	ap := newTestAuthProvider()

	user, ok := ap.Authenticate(bearerRequest("primary-token"))
	require.True(t, ok)
	assert.Equal(t, "default", user)

	user, ok = ap.Authenticate(bearerRequest("alice-token"))
	require.True(t, ok)
	assert.Equal(t, "alice", user)

	_, ok = ap.Authenticate(bearerRequest("wrong-token"))
	assert.False(t, ok)

	_, ok = ap.Authenticate(bearerRequest(""))
	assert.False(t, ok)

	r := httptest.NewRequest(http.MethodGet, "/glucose/last", nil)
	r.Header.Set("Authorization", "primary-token")
	_, ok = ap.Authenticate(r)
	assert.False(t, ok, "token without Bearer prefix must be rejected")
}

func TestAuthProvider_MiddlewareInjectsUser(t *testing.T) {
	ap := newTestAuthProvider()

	var gotUser string
	handler := ap.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, bearerRequest("alice-token"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", gotUser)
}

func TestAuthProvider_MiddlewareRejectsUnauthenticated(t *testing.T) {
	ap := newTestAuthProvider()

	called := false
	handler := ap.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, bearerRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestUserFromContext_EmptyWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserFromContext(r.Context()))
}
