package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
)

var _ store.ParkingStore = (*ParkingStore)(nil)

// ParkingStore implements store.ParkingStore using in-memory storage.
// Bookings are not checked against a user store.
type ParkingStore struct {
	mu sync.RWMutex

	lots           map[uuid.UUID]*models.ParkingLot  // lot_id -> ParkingLot
	lotsByName     map[string]uuid.UUID              // lower(name) -> lot_id
	spots          map[uuid.UUID]*models.ParkingSpot // spot_id -> ParkingSpot
	spotsByLot     map[uuid.UUID][]uuid.UUID         // lot_id -> spot_ids in number order
	bookings       map[uuid.UUID]*models.Booking     // booking_id -> Booking
	bookingsByUser map[uuid.UUID][]uuid.UUID         // user_id -> booking_ids
}

// NewParkingStore creates a new in-memory parking store.
func NewParkingStore() *ParkingStore {
	return &ParkingStore{
		lots:           make(map[uuid.UUID]*models.ParkingLot),
		lotsByName:     make(map[string]uuid.UUID),
		spots:          make(map[uuid.UUID]*models.ParkingSpot),
		spotsByLot:     make(map[uuid.UUID][]uuid.UUID),
		bookings:       make(map[uuid.UUID]*models.Booking),
		bookingsByUser: make(map[uuid.UUID][]uuid.UUID),
	}
}

// CreateLot stores the lot and its spots.
func (s *ParkingStore) CreateLot(ctx context.Context, lot *models.ParkingLot) error {
	spots, err := lot.NewSpots()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(lot.Name)
	if _, exists := s.lotsByName[name]; exists {
		return store.ErrLotAlreadyExists
	}
	if _, exists := s.lots[lot.LotID]; exists {
		return store.ErrLotAlreadyExists
	}

	clone := *lot
	s.lots[lot.LotID] = &clone
	s.lotsByName[name] = lot.LotID

	ids := make([]uuid.UUID, 0, len(spots))
	for i := range spots {
		s.spots[spots[i].SpotID] = &spots[i]
		ids = append(ids, spots[i].SpotID)
	}
	s.spotsByLot[lot.LotID] = ids

	return nil
}

// GetLotByName retrieves a lot by name, ignoring case.
func (s *ParkingStore) GetLotByName(ctx context.Context, name string) (*models.ParkingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lotID, exists := s.lotsByName[strings.ToLower(name)]
	if !exists {
		return nil, store.ErrLotNotFound
	}

	clone := *s.lots[lotID]
	return &clone, nil
}

// ListLots returns all lots with their occupancy, ordered by name.
func (s *ParkingStore) ListLots(ctx context.Context) ([]models.LotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.LotSummary, 0, len(s.lots))
	for lotID, lot := range s.lots {
		summary := models.LotSummary{ParkingLot: *lot}
		for _, spotID := range s.spotsByLot[lotID] {
			if s.spots[spotID].Status == models.SpotOccupied {
				summary.Occupied++
			}
		}
		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b models.LotSummary) int {
		return strings.Compare(a.Name, b.Name)
	})

	return summaries, nil
}

// ListSpots returns the spots of a lot ordered by number.
func (s *ParkingStore) ListSpots(ctx context.Context, lotID uuid.UUID) ([]models.ParkingSpot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, exists := s.spotsByLot[lotID]
	if !exists {
		return nil, store.ErrLotNotFound
	}

	spots := make([]models.ParkingSpot, 0, len(ids))
	for _, spotID := range ids {
		spots = append(spots, *s.spots[spotID])
	}

	return spots, nil
}

// CreateBooking stores a booking, occupying its spot when it is active.
func (s *ParkingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, exists := s.spots[booking.SpotID]
	if !exists {
		return store.ErrSpotNotFound
	}

	if booking.Status == models.BookingActive {
		if spot.Status == models.SpotOccupied {
			return store.ErrSpotOccupied
		}
		spot.Status = models.SpotOccupied
	}

	s.bookings[booking.BookingID] = booking.Clone()
	s.bookingsByUser[booking.UserID] = append(s.bookingsByUser[booking.UserID], booking.BookingID)

	return nil
}

// ListBookings returns a user's bookings, most recent first.
func (s *ParkingStore) ListBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bookingsByUser[userID]
	details := make([]models.BookingDetail, 0, len(ids))
	for _, bookingID := range ids {
		booking := s.bookings[bookingID]
		spot := s.spots[booking.SpotID]
		details = append(details, models.BookingDetail{
			Booking:    *booking.Clone(),
			LotName:    s.lots[spot.LotID].Name,
			SpotNumber: spot.Number,
		})
	}

	slices.SortFunc(details, func(a, b models.BookingDetail) int {
		return cmp.Compare(b.StartTime.UnixNano(), a.StartTime.UnixNano())
	})

	return details, nil
}
