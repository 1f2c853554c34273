package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/parking/internal/api"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/models"
)

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		require.NoError(t, httpmiddleware.DecodeJSON(r, &req))
		if req.Password != "admin123" {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password", httpmiddleware.CodeInvalidCredentials)
			return
		}
		httpmiddleware.WriteJSON(w, http.StatusOK, api.AuthResponse{
			Message: "Login successful",
			Token:   "tok",
			User:    models.Profile{Email: req.Email, Roles: []string{models.RoleAdmin}},
		})
	})
	mux.HandleFunc("GET /api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "Invalid token", httpmiddleware.CodeInvalidToken)
			return
		}
		httpmiddleware.WriteJSON(w, http.StatusOK, api.VerifyResponse{Message: "Token is valid", User: models.Profile{Email: "admin@parking.com"}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL + "/"
	c := New(cfg)
	ctx := context.Background()

	t.Run("login", func(t *testing.T) {
		resp, err := c.Login(ctx, "admin@parking.com", "admin123")
		require.NoError(t, err)
		require.Equal(t, "tok", resp.Token)
		require.Equal(t, []string{models.RoleAdmin}, resp.User.Roles)
	})

	t.Run("login rejected", func(t *testing.T) {
		_, err := c.Login(ctx, "admin@parking.com", "nope")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "invalid_credentials", apiErr.Code)
	})

	t.Run("verify", func(t *testing.T) {
		resp, err := c.Verify(ctx, "tok")
		require.NoError(t, err)
		require.Equal(t, "admin@parking.com", resp.User.Email)

		_, err = c.Verify(ctx, "other")
		require.Error(t, err)
	})

	t.Run("not found without json body", func(t *testing.T) {
		_, err := c.Register(ctx, api.RegisterRequest{Email: "a@b.c", Password: "p"})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		require.Equal(t, "Not Found", apiErr.Message)
	})
}
