package guard

import (
	"slices"
	"strings"
)

// Route names a navigation target in the single-page app.
type Route string

const (
	RouteLogin          Route = "Login"
	RouteAdminDashboard Route = "AdminDashboard"
	RouteUserDashboard  Route = "UserDashboard"
)

// Role identifiers granted to users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var routePaths = map[Route]string{
	RouteLogin:          "/",
	RouteAdminDashboard: "/admin",
	RouteUserDashboard:  "/user",
}

// Routes returns every known route in declaration order.
func Routes() []Route {
	return []Route{RouteLogin, RouteAdminDashboard, RouteUserDashboard}
}

// Path returns the URL path the route is served on.
func (r Route) Path() string {
	return routePaths[r]
}

// RequiredRole returns the role needed to view the route, or "" for public routes.
func (r Route) RequiredRole() string {
	switch r {
	case RouteAdminDashboard:
		return RoleAdmin
	case RouteUserDashboard:
		return RoleUser
	default:
		return ""
	}
}

// RouteForPath maps a URL path onto a route. A single trailing slash is ignored.
func RouteForPath(path string) (Route, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for route, p := range routePaths {
		if p == path {
			return route, true
		}
	}
	return "", false
}

// ParseRoute accepts a route name ("AdminDashboard") or a short alias ("admin").
func ParseRoute(s string) (Route, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "login", "/":
		return RouteLogin, true
	case "admindashboard", "admin", "/admin":
		return RouteAdminDashboard, true
	case "userdashboard", "user", "/user":
		return RouteUserDashboard, true
	}
	return "", false
}

// Session is the client's authentication state as read from storage.
// An empty Token means the client is not logged in.
type Session struct {
	Token string
	Roles []string
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// HasRole reports whether the session was granted role.
func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// Action is what the router should do with a navigation attempt.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Decision is the outcome of a guard check. Target is only set for redirects.
type Decision struct {
	Action Action
	Target Route
}

func allow() Decision {
	return Decision{Action: ActionAllow}
}

func redirect(to Route) Decision {
	return Decision{Action: ActionRedirect, Target: to}
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

func (d Decision) String() string {
	if d.Allowed() {
		return string(ActionAllow)
	}
	return string(ActionRedirect) + ":" + string(d.Target)
}

// Decide evaluates a navigation attempt to route to for session s.
//
// Login is always reachable. Every other route needs a token, and the
// dashboards additionally need their role. A session missing the role is sent
// to the other dashboard rather than back to Login, so a session holding
// neither role bounces between the two redirects depending on which one it
// asked for.
func Decide(s Session, to Route) Decision {
	if to == RouteLogin {
		return allow()
	}

	if !s.Authenticated() {
		return redirect(RouteLogin)
	}

	if to == RouteAdminDashboard && !s.HasRole(RoleAdmin) {
		return redirect(RouteUserDashboard)
	}

	if to == RouteUserDashboard && !s.HasRole(RoleUser) {
		return redirect(RouteAdminDashboard)
	}

	return allow()
}
