package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/planora/planora/internal/trip"
)

// Validate checks the structural invariants a finished itinerary must hold:
// day numbers are 1..N in order, each day starts where the previous one
// ended, the route matches its endpoint cities, and no cost is negative.
func Validate(items []trip.DayItem) error {
	prevEnd := ""
	for i, item := range items {
		if int(item.Day) != i+1 {
			return fmt.Errorf("day %d: expected day number %d, got %d", i+1, i+1, int(item.Day))
		}
		if prevEnd != "" && item.StartCity != "" && item.StartCity != prevEnd {
			return fmt.Errorf("day %d: starts in %q but previous day ended in %q", i+1, item.StartCity, prevEnd)
		}
		if item.StartCity != "" && item.EndCity != "" && item.Route != item.StartCity+"-"+item.EndCity {
			return fmt.Errorf("day %d: route %q does not match cities %q-%q", i+1, item.Route, item.StartCity, item.EndCity)
		}
		for name, cost := range map[string]*float64{
			"hotelCost":     item.HotelCost,
			"ticketCost":    item.TicketCost,
			"activityCost":  item.ActivityCost,
			"transportCost": item.TransportCost,
			"otherCost":     item.OtherCost,
		} {
			if cost != nil && *cost < 0 {
				return fmt.Errorf("day %d: negative %s %v", i+1, name, *cost)
			}
		}
		switch {
		case item.EndCity != "":
			prevEnd = item.EndCity
		case item.StartCity != "":
			prevEnd = item.StartCity
		}
	}
	return nil
}

// validatePlan is the terminal stage: an itinerary that fails validation is
// discarded whole rather than returned partially broken.
func (r *runner) validatePlan(_ context.Context, s State) State {
	if s.halted() {
		return s
	}
	if err := Validate(s.itinerary); err != nil {
		slog.Warn("itinerary failed validation", "error", err)
		s.itinerary = nil
		s.err = msgValidationFailed
		return s
	}
	slog.Info("itinerary validated", "days", len(s.itinerary))
	return s
}
