package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/parking/internal/auth"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
	"github.com/wolfeidau/parking/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    models.Profile `json:"user"`
}

// VerifyResponse is returned by GET /api/auth/verify.
type VerifyResponse struct {
	Message string         `json:"message"`
	User    models.Profile `json:"user"`
}

// MessageResponse is a body carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register creates a regular user and logs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Bad register body")
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Invalid request body", httpmiddleware.CodeValidationError)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Email and password are required", httpmiddleware.CodeValidationError)
		return
	}

	if _, err := h.users.GetByEmail(ctx, req.Email); err == nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "User with this email already exists", httpmiddleware.CodeUserExists)
		return
	} else if !errors.Is(err, store.ErrUserNotFound) {
		h.internalError(w, r, err, "Failed to look up user")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username, _, _ = strings.Cut(req.Email, "@")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internalError(w, r, err, "Failed to hash password")
		return
	}

	userID, err := uuid.NewV7()
	if err != nil {
		h.internalError(w, r, err, "Failed to generate user ID")
		return
	}

	now := h.now().UTC()
	user := &models.User{
		UserID:       userID,
		Email:        req.Email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		Roles:        []string{models.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			httpmiddleware.WriteError(w, http.StatusBadRequest, "User with this email or username already exists", httpmiddleware.CodeUserExists)
			return
		}
		h.internalError(w, r, err, "Failed to create user")
		return
	}

	telemetry.GetMetrics().RegistrationsTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Msg("User registered")

	h.writeAuthResponse(w, r, http.StatusCreated, "User registered successfully", user)
}

// Login checks credentials and issues a token. The token and user record are
// also set as cookies so the server side navigation guard sees them.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Bad login body")
		h.countLogin(r, "validation_error")
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Invalid request body", httpmiddleware.CodeValidationError)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.countLogin(r, "validation_error")
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Email and password are required", httpmiddleware.CodeValidationError)
		return
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		h.internalError(w, r, err, "Failed to look up user")
		return
	}

	if user == nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		zerolog.Ctx(ctx).Info().
			Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
			Msg("Failed login")
		h.countLogin(r, "invalid_credentials")
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password", httpmiddleware.CodeInvalidCredentials)
		return
	}

	if !user.Active {
		h.countLogin(r, "inactive_account")
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "User account is inactive", httpmiddleware.CodeInactiveAccount)
		return
	}

	h.countLogin(r, "success")
	zerolog.Ctx(ctx).Info().
		Str("user_id", user.UserID.String()).
		Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
		Msg("User logged in")

	h.writeAuthResponse(w, r, http.StatusOK, "Login successful", user)
}

// Logout clears the session cookies. Tokens are stateless and stay valid
// until they expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookies(w)
	httpmiddleware.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Verify returns the user the presented token belongs to.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	httpmiddleware.WriteJSON(w, http.StatusOK, VerifyResponse{
		Message: "Token is valid",
		User:    user.Profile(),
	})
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, r *http.Request, status int, message string, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.internalError(w, r, err, "Failed to issue token")
		return
	}
	telemetry.GetMetrics().TokensIssuedTotal.Add(r.Context(), 1)

	profile := user.Profile()
	rawProfile, err := json.Marshal(profile)
	if err != nil {
		h.internalError(w, r, err, "Failed to encode user")
		return
	}

	h.setSessionCookies(w, token, rawProfile)
	httpmiddleware.WriteJSON(w, status, AuthResponse{
		Message: message,
		Token:   token,
		User:    profile,
	})
}

func (h *Handler) countLogin(r *http.Request, result string) {
	telemetry.GetMetrics().LoginAttemptsTotal.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("result", result)))
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "Internal server error", httpmiddleware.CodeInternalError)
}
