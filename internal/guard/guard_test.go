package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		route    Route
		expected Decision
	}{
		{
			name:     "login is public without a token",
			session:  Session{},
			route:    RouteLogin,
			expected: Decision{Action: ActionAllow},
		},
		{
			name:     "login is public with a token",
			session:  Session{Token: "abc", Roles: []string{RoleAdmin}},
			route:    RouteLogin,
			expected: Decision{Action: ActionAllow},
		},
		{
			name:     "admin dashboard without token goes to login",
			session:  Session{Roles: []string{RoleAdmin}},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteLogin},
		},
		{
			name:     "user dashboard without token goes to login",
			session:  Session{Roles: []string{RoleUser}},
			route:    RouteUserDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteLogin},
		},
		{
			name:     "admin on admin dashboard",
			session:  Session{Token: "abc", Roles: []string{RoleAdmin}},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionAllow},
		},
		{
			name:     "admin on user dashboard goes to admin dashboard",
			session:  Session{Token: "abc", Roles: []string{RoleAdmin}},
			route:    RouteUserDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteAdminDashboard},
		},
		{
			name:     "user on admin dashboard goes to user dashboard",
			session:  Session{Token: "abc", Roles: []string{RoleUser}},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteUserDashboard},
		},
		{
			name:     "user on user dashboard",
			session:  Session{Token: "abc", Roles: []string{RoleUser}},
			route:    RouteUserDashboard,
			expected: Decision{Action: ActionAllow},
		},
		{
			name:     "both roles reach both dashboards",
			session:  Session{Token: "abc", Roles: []string{RoleUser, RoleAdmin}},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionAllow},
		},
		{
			name:     "no roles bounced from admin to user dashboard",
			session:  Session{Token: "abc"},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteUserDashboard},
		},
		{
			name:     "no roles bounced from user to admin dashboard",
			session:  Session{Token: "abc"},
			route:    RouteUserDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteAdminDashboard},
		},
		{
			name:     "role names are case sensitive",
			session:  Session{Token: "abc", Roles: []string{"Admin"}},
			route:    RouteAdminDashboard,
			expected: Decision{Action: ActionRedirect, Target: RouteUserDashboard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Decide(tt.session, tt.route))
		})
	}
}

func TestDecide_absentTokenAlwaysRedirectsProtectedRoutes(t *testing.T) {
	roleSets := [][]string{nil, {}, {RoleAdmin}, {RoleUser}, {RoleAdmin, RoleUser}, {"readonly"}}

	for _, route := range Routes() {
		if route.RequiredRole() == "" {
			continue
		}
		for _, roles := range roleSets {
			d := Decide(Session{Roles: roles}, route)
			require.Equal(t, Decision{Action: ActionRedirect, Target: RouteLogin}, d, "route=%s roles=%v", route, roles)
		}
	}
}

func TestDecide_doesNotMutateSession(t *testing.T) {
	roles := []string{RoleUser}
	s := Session{Token: "abc", Roles: roles}

	_ = Decide(s, RouteAdminDashboard)

	require.Equal(t, "abc", s.Token)
	require.Equal(t, []string{RoleUser}, roles)
}

func TestRouteForPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Route
		ok       bool
	}{
		{path: "/", expected: RouteLogin, ok: true},
		{path: "/admin", expected: RouteAdminDashboard, ok: true},
		{path: "/admin/", expected: RouteAdminDashboard, ok: true},
		{path: "/user", expected: RouteUserDashboard, ok: true},
		{path: "/users", ok: false},
		{path: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, ok := RouteForPath(tt.path)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, route)
		})
	}
}

func TestParseRoute(t *testing.T) {
	for input, expected := range map[string]Route{
		"login":          RouteLogin,
		"AdminDashboard": RouteAdminDashboard,
		"admin":          RouteAdminDashboard,
		" user ":         RouteUserDashboard,
		"/user":          RouteUserDashboard,
	} {
		route, ok := ParseRoute(input)
		require.True(t, ok, input)
		require.Equal(t, expected, route)
	}

	_, ok := ParseRoute("settings")
	require.False(t, ok)
}

func TestRouteMetadata(t *testing.T) {
	require.Equal(t, "/", RouteLogin.Path())
	require.Equal(t, "/admin", RouteAdminDashboard.Path())
	require.Equal(t, "/user", RouteUserDashboard.Path())

	require.Empty(t, RouteLogin.RequiredRole())
	require.Equal(t, RoleAdmin, RouteAdminDashboard.RequiredRole())
	require.Equal(t, RoleUser, RouteUserDashboard.RequiredRole())
}

func TestDecisionString(t *testing.T) {
	require.Equal(t, "allow", Decision{Action: ActionAllow}.String())
	require.Equal(t, "redirect:Login", Decision{Action: ActionRedirect, Target: RouteLogin}.String())
}
