package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/wolfeidau/parking/cmd/cli/internal/localstore"
	"github.com/wolfeidau/parking/internal/api"
	"github.com/wolfeidau/parking/internal/guard"
	"github.com/wolfeidau/parking/internal/models"
)

// LoginCmd logs in and keeps the session in local storage.
type LoginCmd struct {
	Email    string `help:"account email" required:""`
	Password string `help:"account password" required:"" env:"PARKING_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}

	resp, err := globals.client().Login(ctx, c.Email, c.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return saveSession(globals, store, resp)
}

// RegisterCmd creates a regular account and logs in with it.
type RegisterCmd struct {
	Email    string `help:"account email" required:""`
	Password string `help:"account password" required:"" env:"PARKING_PASSWORD"`
	Username string `help:"display name, defaults to the local part of the email"`
}

func (c *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}

	resp, err := globals.client().Register(ctx, api.RegisterRequest{
		Email:    c.Email,
		Password: c.Password,
		Username: c.Username,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	return saveSession(globals, store, resp)
}

// saveSession stores the token and user record under the same keys the
// browser uses.
func saveSession(globals *Globals, store *localstore.Store, resp *api.AuthResponse) error {
	user, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	err = store.SetAll(map[string]string{
		guard.TokenKey: resp.Token,
		guard.UserKey:  string(user),
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	home := guard.RouteUserDashboard
	if slices.Contains(resp.User.Roles, models.RoleAdmin) {
		home = guard.RouteAdminDashboard
	}

	fmt.Fprintf(globals.out(), "%s\n", resp.Message)
	fmt.Fprintf(globals.out(), "Logged in as %s (roles: %s)\n", resp.User.Email, strings.Join(resp.User.Roles, ", "))
	fmt.Fprintf(globals.out(), "Home: %s (%s)\n", home, home.Path())

	return nil
}

// LogoutCmd forgets the stored session.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}

	if err := store.Remove(guard.TokenKey, guard.UserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	fmt.Fprintln(globals.out(), "Logged out")
	return nil
}
