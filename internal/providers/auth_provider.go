package providers

import (
	"context"
	"net/http"
	"strings"

	"gsd/internal/structures"
)

type contextKey string

const userContextKey contextKey = "auth-user"

type AuthProviderInterface interface {
	Authenticate(r *http.Request) (string, bool)
	Middleware(next http.Handler) http.Handler
}

type AuthProvider struct {
	tokens map[string]string
	logger Logger
}

func NewAuthProvider(conf *structures.Config, logger Logger) AuthProviderInterface {
	tokens := make(map[string]string, len(conf.Auth.Tokens)+1)
	for token, user := range conf.Auth.Tokens {
		tokens[token] = user
	}
	if conf.Auth.Token != "" {
		tokens[conf.Auth.Token] = "default"
	}
	return &AuthProvider{tokens: tokens, logger: logger}
}

// Authenticate resolves the bearer token of a request to a user name.
func (ap *AuthProvider) Authenticate(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	user, ok := ap.tokens[token]
	return user, ok
}

func (ap *AuthProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := ap.Authenticate(r)
		if !ok {
			ap.logger.Warnf(TypeApp, "rejected unauthenticated request to %s", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// UserFromContext returns the authenticated user stored by the middleware.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userContextKey).(string)
	return user
}
