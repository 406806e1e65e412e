package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/leca/tiered-images/internal/auth"
	"github.com/leca/tiered-images/internal/model"
)

type contextKey string

const (
	identityKey       contextKey = "identity"
	forwardedProtoKey contextKey = "forwarded_proto"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLookup resolves the user a token was issued for.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthMiddleware returns middleware that requires an "Authorization: Bearer"
// token naming an existing user. Missing header, bad token and unknown user
// all get the same 401 response.
func AuthMiddleware(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, prefix) {
				Unauthorized(w)
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(header[len(prefix):]))
			if err != nil {
				slog.Debug("token rejected", "error", err)
				Unauthorized(w)
				return
			}

			user, err := users.GetUserByUsername(r.Context(), claims.Username)
			if err != nil {
				slog.Debug("token user lookup failed", "username", claims.Username, "error", err)
				Unauthorized(w)
				return
			}

			id := &model.Identity{UserID: user.ID, Username: user.Username}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity retrieves the identity stored by AuthMiddleware, or nil.
func GetIdentity(ctx context.Context) *model.Identity {
	v, _ := ctx.Value(identityKey).(*model.Identity)
	return v
}

// ForwardedProto records the scheme a trusted reverse proxy reports in
// X-Forwarded-Proto so that pagination links use it. Install it only when
// every request arrives through such a proxy; values other than http and
// https are ignored.
func ForwardedProto(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
		case "http", "https":
			r = r.WithContext(context.WithValue(r.Context(), forwardedProtoKey, proto))
		}
		next.ServeHTTP(w, r)
	})
}
