package planner

import (
	"context"
	"log/slog"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/trip"
)

// backfillPrices fills in costs the model left null or zero using catalog
// prices. ID lookups win; names are matched only when IDs resolved nothing.
// Hotel prices are per room per night, tickets and activities per person.
// A cost that cannot be resolved stays null; prices are never invented.
func (r *runner) backfillPrices(ctx context.Context, items []trip.DayItem, req trip.Request) []trip.DayItem {
	people := req.PeopleCount
	if people <= 0 {
		people = 1
	}
	rooms := req.RoomCount
	if rooms <= 0 {
		rooms = 1
	}

	for i := range items {
		item := &items[i]

		if unpriced(item.HotelCost) {
			if price, ok := r.hotelPrice(ctx, item); ok {
				v := price * float64(rooms)
				item.HotelCost = &v
			}
		}
		if unpriced(item.TicketCost) {
			if total, ok := r.sumPrices(ctx, catalog.KindSpot, &item.TicketIDs, item.TicketNames); ok {
				v := total * float64(people)
				item.TicketCost = &v
			}
		}
		if unpriced(item.ActivityCost) {
			if total, ok := r.sumPrices(ctx, catalog.KindActivity, &item.ActivityIDs, item.ActivityNames); ok {
				v := total * float64(people)
				item.ActivityCost = &v
			}
		}
		if unpriced(item.TransportCost) {
			// Transport quotes already cover the whole party.
			if total, ok := r.sumPrices(ctx, catalog.KindTransport, &item.TransportIDs, item.Transport); ok {
				item.TransportCost = &total
			}
		}
	}
	return items
}

func (r *runner) hotelPrice(ctx context.Context, item *trip.DayItem) (float64, bool) {
	if item.HotelID != "" {
		prices, err := r.catalog.PricesByID(ctx, catalog.KindHotel, []string{item.HotelID})
		if err != nil {
			slog.Warn("hotel price lookup failed", "id", item.HotelID, "error", err)
		} else if price, ok := prices[item.HotelID]; ok {
			return price, true
		}
	}
	if item.HotelName == "" {
		return 0, false
	}
	match, ok, err := r.catalog.CheapestByName(ctx, catalog.KindHotel, item.HotelName)
	if err != nil {
		slog.Warn("hotel name lookup failed", "name", item.HotelName, "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	item.HotelID = match.ID
	return match.Price, true
}

// sumPrices totals catalog prices for a list of resources, first by ID and,
// when no ID priced anything, by fuzzy name match. Resolved IDs from name
// matches are recorded back so later passes can use them directly.
func (r *runner) sumPrices(ctx context.Context, kind catalog.Kind, ids *trip.IDList, names trip.StringList) (float64, bool) {
	total := 0.0
	if len(*ids) > 0 {
		prices, err := r.catalog.PricesByID(ctx, kind, *ids)
		if err != nil {
			slog.Warn("price lookup failed", "kind", kind, "error", err)
		}
		for _, id := range *ids {
			total += prices[id]
		}
	}
	if total == 0 {
		for _, name := range names {
			match, ok, err := r.catalog.CheapestByName(ctx, kind, name)
			if err != nil {
				slog.Warn("name price lookup failed", "kind", kind, "name", name, "error", err)
				continue
			}
			if !ok {
				continue
			}
			total += match.Price
			*ids = append(*ids, match.ID)
		}
	}
	return total, total > 0
}

func unpriced(cost *float64) bool {
	return cost == nil || *cost == 0
}
