package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
	"github.com/wolfeidau/parking/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type contextKey string

const userContextKey contextKey = "user"

// UserLookup loads the user a token was issued to.
type UserLookup interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// RequireToken authenticates requests using the Authorization header.
// The token may be sent with or without a "Bearer " prefix. On success the
// current user is added to the request context.
func RequireToken(issuer *TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := issuer.Verify(r.Header.Get("Authorization"))
			if err != nil {
				reason := rejectToken(w, err)
				telemetry.GetMetrics().TokenRejectionsTotal.Add(r.Context(), 1,
					metric.WithAttributes(attribute.String("reason", reason)))
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
				return
			}

			// Verify checked the user_id claim is a UUID
			userID := uuid.MustParse(claims.UserID)

			user, err := users.Get(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					telemetry.GetMetrics().TokenRejectionsTotal.Add(r.Context(), 1,
						metric.WithAttributes(attribute.String("reason", "user_not_found")))
					httpmiddleware.WriteError(w, http.StatusUnauthorized, "User not found", httpmiddleware.CodeUnauthorized)
					return
				}
				log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load token user")
				httpmiddleware.WriteError(w, http.StatusInternalServerError, "Internal server error", httpmiddleware.CodeInternalError)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectToken(w http.ResponseWriter, err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "Token is missing", httpmiddleware.CodeUnauthorized)
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "Token has expired", httpmiddleware.CodeTokenExpired)
		return "expired"
	default:
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "Invalid token", httpmiddleware.CodeInvalidToken)
		return "invalid"
	}
}

// RequireRole rejects requests whose user lacks role. It must run after
// RequireToken.
func RequireRole(role string) func(http.Handler) http.Handler {
	message := "Role " + role + " required"
	if role == models.RoleAdmin {
		message = "Admin access required"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "Token is missing", httpmiddleware.CodeUnauthorized)
				return
			}

			if !user.HasRole(role) {
				log.Debug().Str("user_id", user.UserID.String()).Str("role", role).Msg("Role check failed")
				httpmiddleware.WriteError(w, http.StatusForbidden, message, httpmiddleware.CodeForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the user stored by RequireToken.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
