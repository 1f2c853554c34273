package guard

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type contextKey struct{}

// TokenVerifier checks a token's signature and expiry and returns the roles
// it was issued with.
type TokenVerifier interface {
	VerifyRoles(token string) ([]string, error)
}

// Navigator runs the guard in front of page handlers.
type Navigator struct {
	verifier TokenVerifier
}

// NewNavigator creates a Navigator that trusts the stored session as-is,
// exactly like the browser router does.
func NewNavigator() *Navigator {
	return &Navigator{}
}

// WithVerifier makes the navigator treat tokens failing verification as absent
// and take roles from the verified token instead of the user cookie.
func (n *Navigator) WithVerifier(v TokenVerifier) *Navigator {
	n.verifier = v
	return n
}

// Session extracts the session for r once, applying verification if configured.
func (n *Navigator) Session(r *http.Request) Session {
	session := SessionFromRequest(r)
	if n.verifier == nil || !session.Authenticated() {
		return session
	}

	roles, err := n.verifier.VerifyRoles(session.Token)
	if err != nil {
		log.Debug().Err(err).
			Str("token", Fingerprint(session.Token)).
			Msg("Navigation guard: token failed verification, treating as logged out")
		return Session{}
	}

	return Session{Token: session.Token, Roles: roles}
}

// Middleware guards next as the given route. Redirects answer 302 Found with
// the target route's path.
func (n *Navigator) Middleware(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := n.Session(r)
			decision := Decide(session, route)

			telemetry.GetMetrics().GuardDecisionsTotal.Add(r.Context(), 1,
				metric.WithAttributes(
					attribute.String("route", string(route)),
					attribute.String("action", string(decision.Action)),
					attribute.String("target", string(decision.Target)),
				))

			log.Debug().
				Str("route", string(route)).
				Str("path", r.URL.Path).
				Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).
				Str("token", Fingerprint(session.Token)).
				Strs("roles", session.Roles).
				Stringer("decision", decision).
				Msg("Navigation guard evaluated")

			if !decision.Allowed() {
				http.Redirect(w, r, decision.Target.Path(), http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session the guard admitted the request with.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(contextKey{}).(Session)
	return session, ok
}
