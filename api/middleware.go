package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/heraldhq/herald/ingest"
	"github.com/heraldhq/herald/pkg/auth"
	"github.com/heraldhq/herald/storage"
)

// KeyStorage resolves API keys for request authentication.
type KeyStorage interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*storage.APIKey, error)
	TouchAPIKeyLastUsed(ctx context.Context, id string) error
}

type ctxKey struct{}

// AuthContextFromRequest returns the auth context resolved by the API key
// middleware, or false when the request was not authenticated.
func AuthContextFromRequest(r *http.Request) (ingest.AuthContext, bool) {
	authCtx, ok := r.Context().Value(ctxKey{}).(ingest.AuthContext)
	return authCtx, ok
}

// apiKeyAuth authenticates requests by bearer API key. The raw key is
// hashed and looked up; only active, unexpired keys pass. The resolved
// owner is stored on the request context.
func apiKeyAuth(keys KeyStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}

			key, err := keys.GetAPIKeyByHash(r.Context(), auth.HashAPIKey(raw))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			_ = keys.TouchAPIKeyLastUsed(r.Context(), key.ID)

			authCtx := ingest.AuthContext{OwnerType: key.OwnerType, OwnerID: key.OwnerID}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, authCtx)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
