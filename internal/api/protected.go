package api

import (
	"fmt"
	"net/http"

	"github.com/wolfeidau/parking/internal/auth"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
)

// ProtectedResponse is returned by GET /api/test/protected.
type ProtectedResponse struct {
	Message string   `json:"message"`
	UserID  string   `json:"user_id"`
	Roles   []string `json:"roles"`
}

// AdminResponse is returned by GET /api/test/admin.
type AdminResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Protected answers any authenticated user.
func (h *Handler) Protected(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	httpmiddleware.WriteJSON(w, http.StatusOK, ProtectedResponse{
		Message: fmt.Sprintf("Hello %s! This is a protected route.", user.Email),
		UserID:  user.UserID.String(),
		Roles:   user.Profile().Roles,
	})
}

// Admin answers users holding the admin role.
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	httpmiddleware.WriteJSON(w, http.StatusOK, AdminResponse{
		Message: fmt.Sprintf("Hello Admin %s! You have admin access.", user.Email),
		UserID:  user.UserID.String(),
	})
}
