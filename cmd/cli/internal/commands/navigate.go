package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/guard"
)

// NavigateCmd evaluates the navigation guard against the stored session
// without contacting the server.
type NavigateCmd struct {
	Route string `arg:"" help:"route name or path: Login, AdminDashboard, UserDashboard, /, /admin, /user"`
}

func (c *NavigateCmd) Run(globals *Globals) error {
	route, ok := guard.ParseRoute(c.Route)
	if !ok {
		return fmt.Errorf("unknown route %q, expected one of %v", c.Route, guard.Routes())
	}

	store, err := globals.store()
	if err != nil {
		return err
	}

	session, err := store.Session()
	if err != nil {
		return err
	}

	decision := guard.Decide(session, route)

	log.Debug().
		Str("route", string(route)).
		Str("token", guard.Fingerprint(session.Token)).
		Strs("roles", session.Roles).
		Stringer("decision", decision).
		Msg("Navigation guard evaluated")

	if decision.Allowed() {
		fmt.Fprintf(globals.out(), "allow %s (%s)\n", route, route.Path())
		return nil
	}

	fmt.Fprintf(globals.out(), "redirect %s -> %s (%s)\n", route, decision.Target, decision.Target.Path())
	return nil
}
