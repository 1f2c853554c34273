package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/parking/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrRoleNotFound      = errors.New("role not found")
	ErrLotNotFound       = errors.New("parking lot not found")
	ErrLotAlreadyExists  = errors.New("parking lot already exists")
	ErrSpotNotFound      = errors.New("parking spot not found")
	ErrSpotOccupied      = errors.New("parking spot is occupied")
)

// UserStore persists user accounts and the roles they hold.
type UserStore interface {
	// Create stores a new user. Returns ErrUserAlreadyExists if the email or
	// username is taken, ErrRoleNotFound if a role has not been created.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// SetActive enables or disables login for a user.
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error

	// EnsureRole creates the role if it does not exist yet.
	EnsureRole(ctx context.Context, role models.Role) error

	// ListRoles returns all roles ordered by name.
	ListRoles(ctx context.Context) ([]models.Role, error)
}

// ParkingStore persists parking lots, their spots and bookings.
type ParkingStore interface {
	// CreateLot stores the lot together with its Capacity spots.
	// Returns ErrLotAlreadyExists if the name is taken.
	CreateLot(ctx context.Context, lot *models.ParkingLot) error

	// GetLotByName retrieves a lot by name, ignoring case.
	GetLotByName(ctx context.Context, name string) (*models.ParkingLot, error)

	// ListLots returns all lots with their occupancy, ordered by name.
	ListLots(ctx context.Context) ([]models.LotSummary, error)

	// ListSpots returns the spots of a lot ordered by number.
	// Returns ErrLotNotFound if the lot does not exist.
	ListSpots(ctx context.Context, lotID uuid.UUID) ([]models.ParkingSpot, error)

	// CreateBooking stores a booking. An active booking occupies its spot and
	// fails with ErrSpotOccupied if the spot is taken.
	CreateBooking(ctx context.Context, booking *models.Booking) error

	// ListBookings returns a user's bookings, most recent first.
	ListBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingDetail, error)
}
