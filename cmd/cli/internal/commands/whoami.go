package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/wolfeidau/parking/internal/guard"
)

// ErrNotLoggedIn is returned when local storage holds no token.
var ErrNotLoggedIn = errors.New("not logged in, run: parkctl login")

// WhoamiCmd asks the server who the stored token belongs to.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	token, err := globals.token()
	if err != nil {
		return err
	}

	resp, err := globals.client().Verify(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", resp.User.ID)
	fmt.Fprintf(w, "Email:\t%s\n", resp.User.Email)
	fmt.Fprintf(w, "Username:\t%s\n", resp.User.Username)
	fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(resp.User.Roles, ", "))
	fmt.Fprintf(w, "Token:\t%s\n", guard.Fingerprint(token))

	return w.Flush()
}
