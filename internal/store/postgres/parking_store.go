package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
)

var _ store.ParkingStore = (*ParkingStore)(nil)

// ParkingStore implements store.ParkingStore using PostgreSQL.
type ParkingStore struct {
	pool *pgxpool.Pool
}

// NewParkingStore creates a new PostgreSQL-backed parking store.
func NewParkingStore(pool *pgxpool.Pool) *ParkingStore {
	return &ParkingStore{
		pool: pool,
	}
}

// CreateLot inserts the lot and copies in its spots in one transaction.
func (s *ParkingStore) CreateLot(ctx context.Context, lot *models.ParkingLot) error {
	spots, err := lot.NewSpots()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO parking_lots (lot_id, name, capacity, price_per_hour, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, lot.LotID, lot.Name, lot.Capacity, lot.PricePerHour, lot.CreatedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"parking_spots"},
		[]string{"spot_id", "lot_id", "spot_number", "status"},
		pgx.CopyFromSlice(len(spots), func(i int) ([]any, error) {
			return []any{spots[i].SpotID, spots[i].LotID, spots[i].Number, spots[i].Status}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create spots: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit lot: %w", err)
	}

	log.Debug().
		Str("lot_id", lot.LotID.String()).
		Int("capacity", lot.Capacity).
		Msg("Created parking lot")

	return nil
}

// GetLotByName retrieves a lot by name, ignoring case.
func (s *ParkingStore) GetLotByName(ctx context.Context, name string) (*models.ParkingLot, error) {
	var lot models.ParkingLot
	err := s.pool.QueryRow(ctx, `
		SELECT lot_id, name, capacity, price_per_hour, created_at
		FROM parking_lots
		WHERE lower(name) = lower($1)
	`, name).Scan(&lot.LotID, &lot.Name, &lot.Capacity, &lot.PricePerHour, &lot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get lot: %w", mapPostgresError(err))
	}

	return &lot, nil
}

// ListLots returns all lots with their occupancy, ordered by name.
func (s *ParkingStore) ListLots(ctx context.Context) ([]models.LotSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			l.lot_id, l.name, l.capacity, l.price_per_hour, l.created_at,
			count(sp.spot_id) FILTER (WHERE sp.status = 'Occupied')
		FROM parking_lots l
		LEFT JOIN parking_spots sp ON sp.lot_id = l.lot_id
		GROUP BY l.lot_id
		ORDER BY l.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", mapPostgresError(err))
	}

	lots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LotSummary, error) {
		var lot models.LotSummary
		err := row.Scan(&lot.LotID, &lot.Name, &lot.Capacity, &lot.PricePerHour, &lot.CreatedAt, &lot.Occupied)
		return lot, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan lots: %w", err)
	}

	return lots, nil
}

// ListSpots returns the spots of a lot ordered by number. Lots always have at
// least one spot, so no rows means the lot does not exist.
func (s *ParkingStore) ListSpots(ctx context.Context, lotID uuid.UUID) ([]models.ParkingSpot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT spot_id, lot_id, spot_number, status
		FROM parking_spots
		WHERE lot_id = $1
		ORDER BY spot_number
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", mapPostgresError(err))
	}

	spots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ParkingSpot, error) {
		var spot models.ParkingSpot
		err := row.Scan(&spot.SpotID, &spot.LotID, &spot.Number, &spot.Status)
		return spot, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan spots: %w", err)
	}

	if len(spots) == 0 {
		return nil, store.ErrLotNotFound
	}

	return spots, nil
}

// CreateBooking inserts the booking. Active bookings claim their spot with a
// conditional update so two bookings cannot occupy the same spot.
func (s *ParkingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if booking.Status == models.BookingActive {
		result, err := tx.Exec(ctx,
			`UPDATE parking_spots SET status = 'Occupied' WHERE spot_id = $1 AND status = 'Available'`,
			booking.SpotID)
		if err != nil {
			return fmt.Errorf("failed to occupy spot: %w", mapPostgresError(err))
		}

		if result.RowsAffected() == 0 {
			var exists bool
			err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM parking_spots WHERE spot_id = $1)`,
				booking.SpotID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check spot: %w", mapPostgresError(err))
			}
			if !exists {
				return store.ErrSpotNotFound
			}
			return store.ErrSpotOccupied
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			booking_id, user_id, spot_id, start_time, end_time, total_cost, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		booking.BookingID,
		booking.UserID,
		booking.SpotID,
		booking.StartTime,
		booking.EndTime,
		booking.TotalCost,
		booking.Status,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

// ListBookings returns a user's bookings, most recent first.
func (s *ParkingStore) ListBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			b.booking_id, b.user_id, b.spot_id, b.start_time, b.end_time,
			b.total_cost, b.status, l.name, sp.spot_number
		FROM bookings b
		JOIN parking_spots sp ON sp.spot_id = b.spot_id
		JOIN parking_lots l ON l.lot_id = sp.lot_id
		WHERE b.user_id = $1
		ORDER BY b.start_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", mapPostgresError(err))
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BookingDetail, error) {
		var b models.BookingDetail
		err := row.Scan(
			&b.BookingID,
			&b.UserID,
			&b.SpotID,
			&b.StartTime,
			&b.EndTime,
			&b.TotalCost,
			&b.Status,
			&b.LotName,
			&b.SpotNumber,
		)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}

	return bookings, nil
}
