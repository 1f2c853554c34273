package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Spot statuses
const (
	SpotAvailable = "Available"
	SpotOccupied  = "Occupied"
)

// Booking statuses
const (
	BookingActive    = "Active"
	BookingCompleted = "Completed"
)

// ParkingLot is a parking facility with Capacity numbered spots.
type ParkingLot struct {
	LotID        uuid.UUID // UUIDv7
	Name         string    // unique, case insensitive
	Capacity     int
	PricePerHour float64
	CreatedAt    time.Time
}

// Cost returns the price of parking for hours, rounded to cents.
func (l *ParkingLot) Cost(hours float64) float64 {
	return math.Round(hours*l.PricePerHour*100) / 100
}

// NewSpots returns the lot's spots numbered from 1, all available.
func (l *ParkingLot) NewSpots() ([]ParkingSpot, error) {
	if l.Capacity <= 0 {
		return nil, fmt.Errorf("lot %s: capacity must be greater than 0", l.Name)
	}

	spots := make([]ParkingSpot, 0, l.Capacity)
	for n := 1; n <= l.Capacity; n++ {
		spotID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate spot ID: %w", err)
		}
		spots = append(spots, ParkingSpot{
			SpotID: spotID,
			LotID:  l.LotID,
			Number: n,
			Status: SpotAvailable,
		})
	}

	return spots, nil
}

// LotSummary is a lot with its current occupancy.
type LotSummary struct {
	ParkingLot
	Occupied int
}

// Available returns the number of free spots.
func (s LotSummary) Available() int {
	return s.Capacity - s.Occupied
}

// ParkingSpot is a single space within a lot.
type ParkingSpot struct {
	SpotID uuid.UUID
	LotID  uuid.UUID
	Number int    // 1..Capacity within the lot
	Status string // SpotAvailable or SpotOccupied
}

// Booking is a reservation of a spot by a user. EndTime is nil while the
// booking is active.
type Booking struct {
	BookingID uuid.UUID
	UserID    uuid.UUID
	SpotID    uuid.UUID
	StartTime time.Time
	EndTime   *time.Time
	TotalCost float64
	Status    string // BookingActive or BookingCompleted
}

// Hours returns the booked duration in hours, false while it is ongoing.
func (b *Booking) Hours() (float64, bool) {
	if b.EndTime == nil {
		return 0, false
	}
	return b.EndTime.Sub(b.StartTime).Hours(), true
}

// Clone returns a copy that shares no pointers with b.
func (b *Booking) Clone() *Booking {
	clone := *b
	if b.EndTime != nil {
		end := *b.EndTime
		clone.EndTime = &end
	}
	return &clone
}

// BookingDetail is a booking together with where it was made.
type BookingDetail struct {
	Booking
	LotName    string
	SpotNumber int
}
