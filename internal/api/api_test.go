package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/parking/internal/auth"
	"github.com/wolfeidau/parking/internal/guard"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
	"github.com/wolfeidau/parking/internal/store/memory"
)

type testServer struct {
	users   *memory.UserStore
	parking *memory.ParkingStore
	tokens  *auth.TokenIssuer
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	users := memory.NewUserStore()
	for _, role := range models.DefaultRoles {
		require.NoError(t, users.EnsureRole(ctx, role))
	}

	tokens, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), 24*time.Hour)
	require.NoError(t, err)

	parking := memory.NewParkingStore()

	return &testServer{
		users:   users,
		parking: parking,
		tokens:  tokens,
		handler: NewHandler(users, parking, tokens).Routes(),
	}
}

func (s *testServer) addUser(t *testing.T, email, password string, active bool, roles ...string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Active:       active,
		Roles:        roles,
	}
	require.NoError(t, s.users.Create(context.Background(), user))
	return user
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpmiddleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	t.Run("creates user with default username", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"driver@parking.com","password":"secret"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "User registered successfully", resp.Message)
		require.NotEmpty(t, resp.Token)
		require.Equal(t, "driver", resp.User.Username)
		require.Equal(t, []string{models.RoleUser}, resp.User.Roles)

		stored, err := s.users.GetByEmail(context.Background(), "driver@parking.com")
		require.NoError(t, err)
		require.True(t, stored.Active)
		require.NoError(t, auth.CheckPassword(stored.PasswordHash, "secret"))
	})

	t.Run("explicit username", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"jo@parking.com","password":"secret","username":"Jo Driver"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Jo Driver", resp.User.Username)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"driver@parking.com","password":"other"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "user_exists", errorCode(t, rec))
	})

	t.Run("body with wrong field type is rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"typed@parking.com","password":"p","username":5}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_error", errorCode(t, rec))

		_, err := s.users.GetByEmail(context.Background(), "typed@parking.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"email":"x@y.z"}`, `{"password":"p"}`, ``, `not json`} {
			rec := s.do(http.MethodPost, "/api/auth/register", body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, body)
			require.Equal(t, "validation_error", errorCode(t, rec), body)
		}
	})
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	admin := s.addUser(t, "admin@parking.com", "admin123", true, models.RoleAdmin)
	s.addUser(t, "gone@parking.com", "secret", false, models.RoleUser)

	t.Run("success sets session cookies", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@parking.com","password":"admin123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Login successful", resp.Message)
		require.Equal(t, admin.UserID.String(), resp.User.ID)

		cookies := map[string]*http.Cookie{}
		for _, c := range rec.Result().Cookies() {
			cookies[c.Name] = c
		}
		require.Equal(t, resp.Token, cookies[guard.TokenKey].Value)
		require.Equal(t, 86400, cookies[guard.TokenKey].MaxAge)
		require.Equal(t, "/", cookies[guard.UserKey].Path)

		// the navigation guard reads back the same state
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		session := guard.SessionFromRequest(req)
		require.Equal(t, resp.Token, session.Token)
		require.Equal(t, []string{models.RoleAdmin}, session.Roles)
		require.True(t, guard.Decide(session, guard.RouteAdminDashboard).Allowed())
	})

	t.Run("user cookie is query escaped json", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@parking.com","password":"admin123"}`, "")
		for _, c := range rec.Result().Cookies() {
			if c.Name != guard.UserKey {
				continue
			}
			raw, err := url.QueryUnescape(c.Value)
			require.NoError(t, err)

			var profile models.Profile
			require.NoError(t, json.Unmarshal([]byte(raw), &profile))
			require.Equal(t, "admin@parking.com", profile.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@parking.com","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", errorCode(t, rec))
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"who@parking.com","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", errorCode(t, rec))
	})

	t.Run("inactive account", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"gone@parking.com","password":"secret"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "inactive_account", errorCode(t, rec))
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@parking.com"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_error", errorCode(t, rec))
	})

	t.Run("body with wrong field type is rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"admin@parking.com","password":123}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation_error", errorCode(t, rec))
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/auth/login", "", "")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.addUser(t, "admin@parking.com", "admin123", true, models.RoleAdmin)
	driver := s.addUser(t, "driver@parking.com", "secret", true, models.RoleUser)

	adminToken, err := s.tokens.Issue(admin)
	require.NoError(t, err)
	driverToken, err := s.tokens.Issue(driver)
	require.NoError(t, err)

	t.Run("verify", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/auth/verify", "", driverToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Token is valid", resp.Message)
		require.Equal(t, "driver@parking.com", resp.User.Email)
	})

	t.Run("verify without token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/auth/verify", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthorized", errorCode(t, rec))
	})

	t.Run("protected", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/test/protected", "", driverToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ProtectedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Hello driver@parking.com! This is a protected route.", resp.Message)
		require.Equal(t, driver.UserID.String(), resp.UserID)
		require.Equal(t, []string{models.RoleUser}, resp.Roles)
	})

	t.Run("admin as admin", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/test/admin", "", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AdminResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, admin.UserID.String(), resp.UserID)
	})

	t.Run("admin as user", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/test/admin", "", driverToken)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "forbidden", errorCode(t, rec))
	})
}
