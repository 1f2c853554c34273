package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/parking/internal/guard"
)

// LotsCmd lists parking lots and their occupancy. Admin only.
type LotsCmd struct{}

func (c *LotsCmd) Run(ctx context.Context, globals *Globals) error {
	token, err := globals.token()
	if err != nil {
		return err
	}

	resp, err := globals.client().Lots(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list lots: %w", err)
	}

	if len(resp.Lots) == 0 {
		fmt.Fprintln(globals.out(), "No parking lots")
		return nil
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCAPACITY\tOCCUPIED\tAVAILABLE\tPRICE/HOUR")
	for _, lot := range resp.Lots {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\n", lot.Name, lot.Capacity, lot.Occupied, lot.Available, lot.PricePerHour)
	}

	return w.Flush()
}

// BookingsCmd lists the logged in user's bookings.
type BookingsCmd struct{}

func (c *BookingsCmd) Run(ctx context.Context, globals *Globals) error {
	token, err := globals.token()
	if err != nil {
		return err
	}

	resp, err := globals.client().Bookings(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}

	if len(resp.Bookings) == 0 {
		fmt.Fprintln(globals.out(), "No bookings")
		return nil
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOT\tSPOT\tSTART\tEND\tCOST\tSTATUS")
	for _, b := range resp.Bookings {
		end := "-"
		if b.EndTime != nil {
			end = b.EndTime.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f\t%s\n",
			b.Lot, b.SpotNumber, b.StartTime.UTC().Format("2006-01-02 15:04"), end, b.TotalCost, b.Status)
	}

	return w.Flush()
}

// token returns the stored token or ErrNotLoggedIn.
func (g *Globals) token() (string, error) {
	store, err := g.store()
	if err != nil {
		return "", err
	}

	token, ok, err := store.Get(guard.TokenKey)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", ErrNotLoggedIn
	}

	return token, nil
}
