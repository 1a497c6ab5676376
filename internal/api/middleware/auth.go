package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/api/response"
	"github.com/kubidu/kubidu/internal/crypto"
	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

type contextKey string

const actorKey contextKey = "actor_id"

// TokenResolver looks up an API token by the SHA-256 hash of its secret.
type TokenResolver interface {
	GetByHash(ctx context.Context, hash string) (*model.APIToken, error)
}

// ActorID returns the authenticated user, or "" outside Auth.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorKey).(string)
	return id
}

// WithActor stores the authenticated user on ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

// Auth validates the bearer token (or X-API-Key header) and attaches the
// owning user to the request context.
func Auth(tokens TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			token, err := tokens.GetByHash(r.Context(), crypto.GenericHash(key))
			if err != nil {
				if !errors.Is(err, errs.ErrNotFound) {
					zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve api token")
				}
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if token.Expired(time.Now()) {
				response.WriteError(w, http.StatusUnauthorized, "API key expired")
				return
			}

			ctx := WithActor(r.Context(), token.UserID)
			logger := zerolog.Ctx(ctx).With().Str("actor_id", token.UserID).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

// ExecutorTokenHeader carries the shared secret of the build executor.
const ExecutorTokenHeader = "X-Executor-Token"

// ExecutorAuth guards the internal status endpoints with a shared token. An
// empty configured token rejects every request.
func ExecutorAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(ExecutorTokenHeader)
			if token == "" || got == "" || !crypto.TokenEqual(got, token) {
				response.WriteError(w, http.StatusUnauthorized, "invalid executor token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
