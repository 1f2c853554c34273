// Package seed prepares fresh stores: the default roles, the bootstrap
// admin account and any users, lots and bookings listed in a seed file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/auth"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
	"gopkg.in/yaml.v3"
)

// Default admin credentials used when none are configured.
const (
	DefaultAdminEmail    = "admin@parking.com"
	DefaultAdminPassword = "admin123"
)

// Config controls what Run creates.
type Config struct {
	AdminEmail    string
	AdminPassword string
	AdminUsername string

	// File is an optional YAML seed file path.
	File string
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.AdminEmail == "" {
		c.AdminEmail = DefaultAdminEmail
	}
	if c.AdminPassword == "" {
		c.AdminPassword = DefaultAdminPassword
	}
	if c.AdminUsername == "" {
		c.AdminUsername, _, _ = strings.Cut(c.AdminEmail, "@")
	}
}

// File is the format of a seed file.
//
//	users:
//	  - email: driver@parking.com
//	    password: secret
//	    roles: [user]
//	lots:
//	  - name: Central
//	    capacity: 10
//	    price_per_hour: 2.5
//	bookings:
//	  - email: driver@parking.com
//	    lot: Central
//	    spot: 3
//	    start: 2026-01-02T09:00:00Z
//	    end: 2026-01-02T11:30:00Z
type File struct {
	Users    []FileUser    `yaml:"users"`
	Lots     []FileLot     `yaml:"lots"`
	Bookings []FileBooking `yaml:"bookings"`
}

// FileUser is one user entry in a seed file. Inactive is applied to
// existing users too, so a seed file can disable an account.
type FileUser struct {
	Email    string   `yaml:"email"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
	Inactive bool     `yaml:"inactive"`
}

// FileLot is one parking lot entry in a seed file.
type FileLot struct {
	Name         string  `yaml:"name"`
	Capacity     int     `yaml:"capacity"`
	PricePerHour float64 `yaml:"price_per_hour"`
}

// FileBooking is one booking entry in a seed file. A booking without an end
// time is active and occupies its spot.
type FileBooking struct {
	Email string     `yaml:"email"`
	Lot   string     `yaml:"lot"`
	Spot  int        `yaml:"spot"`
	Start time.Time  `yaml:"start"`
	End   *time.Time `yaml:"end"`
}

// LoadFile reads and parses a seed file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed file user %d: email and password are required", i)
		}
	}

	for i, l := range f.Lots {
		if l.Name == "" || l.Capacity <= 0 || l.PricePerHour < 0 {
			return nil, fmt.Errorf("seed file lot %d: name, a positive capacity and a price are required", i)
		}
	}

	for i, b := range f.Bookings {
		if b.Email == "" || b.Lot == "" || b.Spot <= 0 || b.Start.IsZero() {
			return nil, fmt.Errorf("seed file booking %d: email, lot, spot and start are required", i)
		}
		if b.End != nil && b.End.Before(b.Start) {
			return nil, fmt.Errorf("seed file booking %d: end is before start", i)
		}
	}

	return &f, nil
}

// Run ensures the default roles and admin account exist and creates users,
// lots and bookings from the seed file. Existing records are left untouched,
// so Run is safe to call on every start.
func Run(ctx context.Context, users store.UserStore, parking store.ParkingStore, cfg Config) error {
	cfg.ApplyDefaults()

	for _, role := range models.DefaultRoles {
		if err := users.EnsureRole(ctx, role); err != nil {
			return err
		}
	}

	_, created, err := ensureUser(ctx, users, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword, true, []string{models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if created {
		log.Info().Str("email", cfg.AdminEmail).Msg("Created admin user")
	}

	if cfg.File == "" {
		return nil
	}

	f, err := LoadFile(cfg.File)
	if err != nil {
		return err
	}

	if err := seedUsers(ctx, users, f.Users); err != nil {
		return err
	}

	if err := seedLots(ctx, parking, f.Lots); err != nil {
		return err
	}

	return seedBookings(ctx, users, parking, f.Bookings)
}

func seedUsers(ctx context.Context, users store.UserStore, entries []FileUser) error {
	if len(entries) == 0 {
		return nil
	}

	defined, err := users.ListRoles(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(defined))
	for _, role := range defined {
		known[role.Name] = true
	}

	for _, u := range entries {
		roles := u.Roles
		if len(roles) == 0 {
			roles = []string{models.RoleUser}
		}

		for _, role := range roles {
			if !known[role] {
				return fmt.Errorf("failed to seed user %s: %w: %s", u.Email, store.ErrRoleNotFound, role)
			}
		}

		username := u.Username
		if username == "" {
			username, _, _ = strings.Cut(u.Email, "@")
		}

		user, created, err := ensureUser(ctx, users, u.Email, username, u.Password, !u.Inactive, roles)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		if created {
			log.Info().Str("email", u.Email).Strs("roles", roles).Msg("Created seed user")
			continue
		}

		if user.Active == u.Inactive {
			if err := users.SetActive(ctx, user.UserID, !u.Inactive); err != nil {
				return fmt.Errorf("failed to update seed user %s: %w", u.Email, err)
			}
			log.Info().Str("email", u.Email).Bool("active", !u.Inactive).Msg("Updated seed user")
		}
	}

	return nil
}

func seedLots(ctx context.Context, parking store.ParkingStore, entries []FileLot) error {
	for _, l := range entries {
		_, err := parking.GetLotByName(ctx, l.Name)
		if err == nil {
			log.Debug().Str("lot", l.Name).Msg("Lot already exists, skipping")
			continue
		}
		if !errors.Is(err, store.ErrLotNotFound) {
			return err
		}

		lotID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate lot ID: %w", err)
		}

		err = parking.CreateLot(ctx, &models.ParkingLot{
			LotID:        lotID,
			Name:         l.Name,
			Capacity:     l.Capacity,
			PricePerHour: l.PricePerHour,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to seed lot %s: %w", l.Name, err)
		}
		log.Info().Str("lot", l.Name).Int("capacity", l.Capacity).Msg("Created seed lot")
	}

	return nil
}

func seedBookings(ctx context.Context, users store.UserStore, parking store.ParkingStore, entries []FileBooking) error {
	for _, b := range entries {
		user, err := users.GetByEmail(ctx, b.Email)
		if err != nil {
			return fmt.Errorf("failed to seed booking for %s: %w", b.Email, err)
		}

		lot, err := parking.GetLotByName(ctx, b.Lot)
		if err != nil {
			return fmt.Errorf("failed to seed booking in %s: %w", b.Lot, err)
		}

		spots, err := parking.ListSpots(ctx, lot.LotID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(spots, func(s models.ParkingSpot) bool { return s.Number == b.Spot })
		if idx < 0 {
			return fmt.Errorf("failed to seed booking in %s: %w: %d", b.Lot, store.ErrSpotNotFound, b.Spot)
		}
		spot := spots[idx]

		existing, err := parking.ListBookings(ctx, user.UserID)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(existing, func(d models.BookingDetail) bool {
			return d.SpotID == spot.SpotID && d.StartTime.Equal(b.Start)
		}) {
			log.Debug().Str("email", b.Email).Str("lot", b.Lot).Int("spot", b.Spot).Msg("Booking already exists, skipping")
			continue
		}

		bookingID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate booking ID: %w", err)
		}

		booking := &models.Booking{
			BookingID: bookingID,
			UserID:    user.UserID,
			SpotID:    spot.SpotID,
			StartTime: b.Start.UTC(),
			Status:    models.BookingActive,
		}
		if b.End != nil {
			end := b.End.UTC()
			booking.EndTime = &end
			booking.Status = models.BookingCompleted
			hours, _ := booking.Hours()
			booking.TotalCost = lot.Cost(hours)
		}

		if err := parking.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("failed to seed booking for %s in %s spot %d: %w", b.Email, b.Lot, b.Spot, err)
		}
		log.Info().Str("email", b.Email).Str("lot", b.Lot).Int("spot", b.Spot).Str("status", booking.Status).Msg("Created seed booking")
	}

	return nil
}

func ensureUser(ctx context.Context, users store.UserStore, email, username, password string, active bool, roles []string) (*models.User, bool, error) {
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		log.Debug().Str("email", email).Msg("User already exists, skipping")
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate user ID: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       userID,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       active,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, err
	}

	return user, true, nil
}
