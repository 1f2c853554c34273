package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/parking/internal/auth"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
	"github.com/wolfeidau/parking/internal/store/memory"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_defaults(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	require.NoError(t, Run(ctx, users, memory.NewParkingStore(), Config{}))

	roles, err := users.ListRoles(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultRoles, roles)

	admin, err := users.GetByEmail(ctx, DefaultAdminEmail)
	require.NoError(t, err)
	require.Equal(t, "admin", admin.Username)
	require.Equal(t, []string{models.RoleAdmin}, admin.Roles)
	require.True(t, admin.Active)
	require.NoError(t, auth.CheckPassword(admin.PasswordHash, DefaultAdminPassword))
}

func TestRun_idempotent(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	require.NoError(t, Run(ctx, users, memory.NewParkingStore(), Config{}))
	first, err := users.GetByEmail(ctx, DefaultAdminEmail)
	require.NoError(t, err)

	// A changed password must not overwrite the existing admin
	require.NoError(t, Run(ctx, users, memory.NewParkingStore(), Config{AdminPassword: "changed"}))
	second, err := users.GetByEmail(ctx, DefaultAdminEmail)
	require.NoError(t, err)

	require.Equal(t, first.UserID, second.UserID)
	require.Equal(t, first.PasswordHash, second.PasswordHash)
}

func TestRun_seedFile(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	path := writeSeedFile(t, `
users:
  - email: driver@parking.com
    password: secret
  - email: both@parking.com
    username: both
    password: secret
    roles: [admin, user]
  - email: gone@parking.com
    password: secret
    inactive: true
`)

	require.NoError(t, Run(ctx, users, memory.NewParkingStore(), Config{File: path}))
	require.NoError(t, Run(ctx, users, memory.NewParkingStore(), Config{File: path}))

	driver, err := users.GetByEmail(ctx, "driver@parking.com")
	require.NoError(t, err)
	require.Equal(t, "driver", driver.Username)
	require.Equal(t, []string{models.RoleUser}, driver.Roles)

	both, err := users.GetByEmail(ctx, "both@parking.com")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{models.RoleAdmin, models.RoleUser}, both.Roles)

	gone, err := users.GetByEmail(ctx, "gone@parking.com")
	require.NoError(t, err)
	require.False(t, gone.Active)
}

func TestRun_unknownRole(t *testing.T) {
	path := writeSeedFile(t, `
users:
  - email: root@parking.com
    password: secret
    roles: [superuser]
`)

	err := Run(context.Background(), memory.NewUserStore(), memory.NewParkingStore(), Config{File: path})
	require.ErrorIs(t, err, store.ErrRoleNotFound)
}

func TestRun_deactivatesExistingUser(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	parking := memory.NewParkingStore()

	active := writeSeedFile(t, "users:\n  - email: driver@parking.com\n    password: secret\n")
	require.NoError(t, Run(ctx, users, parking, Config{File: active}))

	driver, err := users.GetByEmail(ctx, "driver@parking.com")
	require.NoError(t, err)
	require.True(t, driver.Active)

	inactive := writeSeedFile(t, "users:\n  - email: driver@parking.com\n    password: secret\n    inactive: true\n")
	require.NoError(t, Run(ctx, users, parking, Config{File: inactive}))

	driver, err = users.GetByEmail(ctx, "driver@parking.com")
	require.NoError(t, err)
	require.False(t, driver.Active)

	require.NoError(t, Run(ctx, users, parking, Config{File: active}))
	driver, err = users.GetByEmail(ctx, "driver@parking.com")
	require.NoError(t, err)
	require.True(t, driver.Active)
}

func TestRun_parking(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	parking := memory.NewParkingStore()

	path := writeSeedFile(t, `
users:
  - email: driver@parking.com
    password: secret
lots:
  - name: Central
    capacity: 4
    price_per_hour: 2.5
  - name: Airport
    capacity: 2
    price_per_hour: 4
bookings:
  - email: driver@parking.com
    lot: Central
    spot: 3
    start: 2026-01-02T09:00:00Z
    end: 2026-01-02T11:30:00Z
  - email: driver@parking.com
    lot: Airport
    spot: 1
    start: 2026-01-05T07:00:00Z
`)

	require.NoError(t, Run(ctx, users, parking, Config{File: path}))
	require.NoError(t, Run(ctx, users, parking, Config{File: path}))

	lots, err := parking.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	require.Equal(t, "Airport", lots[0].Name)
	require.Equal(t, 1, lots[0].Occupied)
	require.Equal(t, 0, lots[1].Occupied)
	require.Equal(t, 4, lots[1].Capacity)

	driver, err := users.GetByEmail(ctx, "driver@parking.com")
	require.NoError(t, err)

	bookings, err := parking.ListBookings(ctx, driver.UserID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	require.Equal(t, "Airport", bookings[0].LotName)
	require.Equal(t, models.BookingActive, bookings[0].Status)
	require.Nil(t, bookings[0].EndTime)

	require.Equal(t, "Central", bookings[1].LotName)
	require.Equal(t, 3, bookings[1].SpotNumber)
	require.Equal(t, models.BookingCompleted, bookings[1].Status)
	require.InDelta(t, 6.25, bookings[1].TotalCost, 0.001)
}

func TestRun_bookingUnknownSpot(t *testing.T) {
	path := writeSeedFile(t, `
lots:
  - name: Central
    capacity: 2
    price_per_hour: 1
bookings:
  - email: admin@parking.com
    lot: Central
    spot: 9
    start: 2026-01-02T09:00:00Z
`)

	err := Run(context.Background(), memory.NewUserStore(), memory.NewParkingStore(), Config{File: path})
	require.ErrorIs(t, err, store.ErrSpotNotFound)
}

func TestLoadFile(t *testing.T) {
	t.Run("lot without capacity", func(t *testing.T) {
		_, err := LoadFile(writeSeedFile(t, "lots:\n  - name: Central\n"))
		require.Error(t, err)
	})

	t.Run("booking ends before it starts", func(t *testing.T) {
		_, err := LoadFile(writeSeedFile(t, `
bookings:
  - email: a@b.c
    lot: Central
    spot: 1
    start: 2026-01-02T09:00:00Z
    end: 2026-01-02T08:00:00Z
`))
		require.Error(t, err)
	})

	t.Run("missing password", func(t *testing.T) {
		_, err := LoadFile(writeSeedFile(t, "users:\n  - email: a@b.c\n"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadFile(writeSeedFile(t, "users: [\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
