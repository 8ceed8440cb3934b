package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

// WithUser returns ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *userentity.User) context.Context {
	return user.NewContext(ctx, u)
}

func UserFromContext(ctx context.Context) (*userentity.User, bool) {
	return user.FromContext(ctx)
}

// UserID returns the authenticated user id, or 0 outside RequireAuth.
func UserID(ctx context.Context) int64 {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return 0
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	utilities.WriteDetail(w, http.StatusUnauthorized, "Could not validate credentials")
}

// RequireAuth rejects requests without a valid bearer token and stores the
// user in the request context.
func RequireAuth(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				writeUnauthorized(w)
				return
			}
			u, _, err := svc.Authenticate(r.Context(), raw)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
			case errors.Is(err, user.ErrInactive):
				utilities.WriteDetail(w, http.StatusForbidden, "User account is deactivated")
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRevoked):
				logger.Debugw("bearer rejected", "path", r.URL.Path, "err", err)
				writeUnauthorized(w)
			default:
				logger.Errorw("authenticate failed", "err", err)
				utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

// RequireRole admits users holding role or a higher one. It must run inside
// RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if !u.HasRole(role) {
				utilities.WriteDetail(w, http.StatusForbidden, "Role '"+role+"' or higher required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
