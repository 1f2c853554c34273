package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/cmd/cli/internal/commands"
	"github.com/wolfeidau/parking/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in and store the session locally"`
		Register commands.RegisterCmd `cmd:"" help:"Create an account and log in"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Forget the stored session"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the user the stored token belongs to"`
		Navigate commands.NavigateCmd `cmd:"" help:"Evaluate the navigation guard for a route"`
		Lots     commands.LotsCmd     `cmd:"" help:"List parking lots and their occupancy (admin)"`
		Bookings commands.BookingsCmd `cmd:"" help:"List your bookings"`

		Server     string `help:"Server URL" default:"http://localhost:8080" env:"PARKING_SERVER"`
		StorageDir string `help:"Local storage directory (default ~/.parking/storage)" env:"PARKING_STORAGE_DIR"`
		Debug      bool   `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("parkctl"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Server:     cli.Server,
		StorageDir: cli.StorageDir,
	})
	cmd.FatalIfErrorf(err)
}
