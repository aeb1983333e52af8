package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/utils"
	"github.com/rs/zerolog"
)

const AdminTokenHeader = "X-Admin-Token"

type adminKey struct{}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequireAdmin rejects requests without a live admin session and stores the
// admin's email in the request context.
func RequireAdmin(auth Authenticator, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := auth.Authenticate(r.Context(), r.Header.Get(AdminTokenHeader))
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					utils.WriteJson(w, http.StatusUnauthorized, utils.WriteResponseFailed("Unauthorized", "Admin session required"))
					return
				}
				logger.Error().Err(err).Msg("failed to check admin session")
				utils.WriteJson(w, http.StatusInternalServerError, utils.WriteResponseFailed(err.Error(), "Internal Server Error"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, email)))
		})
	}
}

func AdminEmail(ctx context.Context) string {
	email, _ := ctx.Value(adminKey{}).(string)
	return email
}
