package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/parking/internal/auth"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/store"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// LotResponse is one lot in GET /api/admin/lots.
type LotResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Capacity     int     `json:"capacity"`
	PricePerHour float64 `json:"price_per_hour"`
	Occupied     int     `json:"occupied"`
	Available    int     `json:"available"`
}

// LotsResponse is returned by GET /api/admin/lots.
type LotsResponse struct {
	Lots []LotResponse `json:"lots"`
}

// SpotResponse is one spot in GET /api/admin/lots/{lotID}/spots.
type SpotResponse struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Status string `json:"status"`
}

// SpotsResponse is returned by GET /api/admin/lots/{lotID}/spots.
type SpotsResponse struct {
	Spots []SpotResponse `json:"spots"`
}

// BookingResponse is one booking in GET /api/bookings.
type BookingResponse struct {
	ID            string     `json:"id"`
	Lot           string     `json:"lot"`
	SpotNumber    int        `json:"spot_number"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationHours *float64   `json:"duration_hours,omitempty"`
	TotalCost     float64    `json:"total_cost"`
	Status        string     `json:"status"`
}

// BookingsResponse is returned by GET /api/bookings.
type BookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// ListLots returns every lot with its occupancy.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.parking.ListLots(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to list lots")
		return
	}

	resp := LotsResponse{Lots: make([]LotResponse, 0, len(lots))}
	for _, lot := range lots {
		resp.Lots = append(resp.Lots, LotResponse{
			ID:           lot.LotID.String(),
			Name:         lot.Name,
			Capacity:     lot.Capacity,
			PricePerHour: lot.PricePerHour,
			Occupied:     lot.Occupied,
			Available:    lot.Available(),
		})
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, resp)
}

// ListSpots returns the spots of one lot.
func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	lotID, err := uuid.Parse(r.PathValue("lotID"))
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Invalid lot ID", httpmiddleware.CodeValidationError)
		return
	}

	spots, err := h.parking.ListSpots(r.Context(), lotID)
	if err != nil {
		if errors.Is(err, store.ErrLotNotFound) {
			httpmiddleware.WriteError(w, http.StatusNotFound, "Parking lot not found", httpmiddleware.CodeNotFound)
			return
		}
		h.internalError(w, r, err, "Failed to list spots")
		return
	}

	resp := SpotsResponse{Spots: make([]SpotResponse, 0, len(spots))}
	for _, spot := range spots {
		resp.Spots = append(resp.Spots, SpotResponse{
			ID:     spot.SpotID.String(),
			Number: spot.Number,
			Status: spot.Status,
		})
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, resp)
}

// ListBookings returns the caller's own bookings, most recent first.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	bookings, err := h.parking.ListBookings(r.Context(), user.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to list bookings")
		return
	}

	resp := BookingsResponse{Bookings: make([]BookingResponse, 0, len(bookings))}
	for _, b := range bookings {
		item := BookingResponse{
			ID:         b.BookingID.String(),
			Lot:        b.LotName,
			SpotNumber: b.SpotNumber,
			StartTime:  b.StartTime,
			EndTime:    b.EndTime,
			TotalCost:  b.TotalCost,
			Status:     b.Status,
		}
		if hours, ok := b.Hours(); ok {
			item.DurationHours = &hours
		}
		resp.Bookings = append(resp.Bookings, item)
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, resp)
}

// ExportBookings writes the caller's bookings as a CSV attachment.
func (h *Handler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	bookings, err := h.parking.ListBookings(r.Context(), user.UserID)
	if err != nil {
		h.internalError(w, r, err, "Failed to list bookings")
		return
	}

	filename := fmt.Sprintf("bookings_%s_%s.csv", user.UserID, h.now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"Booking ID",
		"Parking Lot",
		"Spot Number",
		"Start Time",
		"End Time",
		"Duration (hours)",
		"Cost ($)",
		"Status",
	})

	for _, b := range bookings {
		end, duration := "N/A", "Ongoing"
		if hours, ok := b.Hours(); ok {
			end = b.EndTime.UTC().Format(exportTimeLayout)
			duration = strconv.FormatFloat(hours, 'f', 2, 64)
		}

		_ = cw.Write([]string{
			b.BookingID.String(),
			b.LotName,
			strconv.Itoa(b.SpotNumber),
			b.StartTime.UTC().Format(exportTimeLayout),
			end,
			duration,
			strconv.FormatFloat(b.TotalCost, 'f', 2, 64),
			b.Status,
		})
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write bookings export")
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("user_id", user.UserID.String()).
		Int("bookings", len(bookings)).
		Msg("Exported bookings")
}

