// Package api implements the JSON API used by the portal's pages and the
// CLI: authentication plus read access to lots and bookings.
package api

import (
	"net/http"
	"time"

	"github.com/wolfeidau/parking/internal/auth"
	"github.com/wolfeidau/parking/internal/guard"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
)

// Handler serves the /api/ endpoints.
type Handler struct {
	users         store.UserStore
	parking       store.ParkingStore
	tokens        *auth.TokenIssuer
	secureCookies bool
	now           func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(users store.UserStore, parking store.ParkingStore, tokens *auth.TokenIssuer) *Handler {
	return &Handler{
		users:   users,
		parking: parking,
		tokens:  tokens,
		now:     time.Now,
	}
}

// WithSecureCookies marks session cookies as Secure, for servers behind TLS.
func (h *Handler) WithSecureCookies(secure bool) *Handler {
	h.secureCookies = secure
	return h
}

// Routes returns a mux with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	requireToken := auth.RequireToken(h.tokens, h.users)
	requireAdmin := auth.RequireRole(models.RoleAdmin)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/verify", requireToken(http.HandlerFunc(h.Verify)))

	mux.Handle("GET /api/test/protected", requireToken(http.HandlerFunc(h.Protected)))
	mux.Handle("GET /api/test/admin", requireToken(requireAdmin(http.HandlerFunc(h.Admin))))

	mux.Handle("GET /api/admin/lots", requireToken(requireAdmin(http.HandlerFunc(h.ListLots))))
	mux.Handle("GET /api/admin/lots/{lotID}/spots", requireToken(requireAdmin(http.HandlerFunc(h.ListSpots))))
	mux.Handle("GET /api/bookings", requireToken(http.HandlerFunc(h.ListBookings)))
	mux.Handle("GET /api/bookings/export", requireToken(http.HandlerFunc(h.ExportBookings)))

	return mux
}

// setSessionCookies mirrors the token and user record the browser keeps in
// local storage so page navigations carry them to the server.
func (h *Handler) setSessionCookies(w http.ResponseWriter, token string, profile []byte) {
	maxAge := int(h.tokens.TTL().Seconds())
	expires := h.now().Add(h.tokens.TTL())

	http.SetCookie(w, &http.Cookie{
		Name:     guard.TokenKey,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     guard.UserKey,
		Value:    guard.EncodeUserCookie(profile),
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{guard.TokenKey, guard.UserKey} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
