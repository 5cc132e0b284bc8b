package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Identity headers. Authentication itself happens upstream; the gateway in
// front of this service sets X-User-ID for logged-in customers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
)

type identityKey struct{}

// Identity resolves the caller from the identity headers and stores it in the
// request context. Anonymous callers without a session are issued one, echoed
// back in the X-Session-ID response header.
func Identity(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id model.Identity

			if raw := strings.TrimSpace(r.Header.Get(HeaderUserID)); raw != "" {
				userID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || userID <= 0 {
					logger.Warn().Str("path", r.URL.Path).Msg("malformed user id header")
					writeProblem(w, http.StatusBadRequest, model.ErrCodeInvalidIdentity, "invalid X-User-ID header")
					return
				}
				id.UserID = &userID
			}

			id.SessionID = strings.TrimSpace(r.Header.Get(HeaderSessionID))
			if id.UserID == nil && id.SessionID == "" {
				id.SessionID = uuid.NewString()
			}
			if id.SessionID != "" {
				w.Header().Set(HeaderSessionID, id.SessionID)
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by the Identity middleware.
func IdentityFrom(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey{}).(model.Identity)
	return id
}
