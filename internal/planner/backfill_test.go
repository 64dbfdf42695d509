package planner

import (
	"context"
	"testing"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/trip"
)

func TestBackfill_HotelByIDTimesRooms(t *testing.T) {
	cat := &fakeCatalog{prices: map[catalog.Kind]map[string]float64{
		catalog.KindHotel: {"h1": 500},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(), []trip.DayItem{{Day: 1, HotelID: "h1"}},
		trip.Request{PeopleCount: 2, RoomCount: 2})

	if items[0].HotelCost == nil || *items[0].HotelCost != 1000 {
		t.Errorf("hotelCost = %v, want 1000 (500 per room x 2 rooms)", items[0].HotelCost)
	}
}

func TestBackfill_TicketsByIDTimesPeople(t *testing.T) {
	cat := &fakeCatalog{prices: map[catalog.Kind]map[string]float64{
		catalog.KindSpot: {"s1": 400, "s2": 500},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(),
		[]trip.DayItem{{Day: 1, TicketIDs: trip.IDList{"s1", "s2"}}},
		trip.Request{PeopleCount: 2})

	if items[0].TicketCost == nil || *items[0].TicketCost != 1800 {
		t.Errorf("ticketCost = %v, want 1800 ((400+500) x 2 people)", items[0].TicketCost)
	}
}

func TestBackfill_TransportNotMultiplied(t *testing.T) {
	cat := &fakeCatalog{prices: map[catalog.Kind]map[string]float64{
		catalog.KindTransport: {"t1": 800},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(),
		[]trip.DayItem{{Day: 1, TransportIDs: trip.IDList{"t1"}}},
		trip.Request{PeopleCount: 4})

	if items[0].TransportCost == nil || *items[0].TransportCost != 800 {
		t.Errorf("transportCost = %v, want 800 (quotes cover the whole party)", items[0].TransportCost)
	}
}

func TestBackfill_NameFallbackRecordsID(t *testing.T) {
	cat := &fakeCatalog{byName: map[catalog.Kind]map[string]catalog.PricedName{
		catalog.KindHotel:    {"环球影城酒店": {ID: "h9", Name: "环球影城酒店", Price: 900}},
		catalog.KindActivity: {"温泉体验": {ID: "a3", Name: "温泉体验", Price: 200}},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(), []trip.DayItem{{
		Day:           1,
		HotelName:     "环球影城酒店",
		ActivityNames: trip.StringList{"温泉体验"},
	}}, trip.Request{PeopleCount: 3, RoomCount: 1})

	if items[0].HotelCost == nil || *items[0].HotelCost != 900 {
		t.Errorf("hotelCost = %v, want 900", items[0].HotelCost)
	}
	if items[0].HotelID != "h9" {
		t.Errorf("hotelId = %q, want resolved h9", items[0].HotelID)
	}
	if items[0].ActivityCost == nil || *items[0].ActivityCost != 600 {
		t.Errorf("activityCost = %v, want 600 (200 x 3 people)", items[0].ActivityCost)
	}
	if len(items[0].ActivityIDs) != 1 || items[0].ActivityIDs[0] != "a3" {
		t.Errorf("activityIds = %v, want [a3]", items[0].ActivityIDs)
	}
}

func TestBackfill_IDsWinOverNames(t *testing.T) {
	cat := &fakeCatalog{
		prices: map[catalog.Kind]map[string]float64{
			catalog.KindSpot: {"s1": 100},
		},
		byName: map[catalog.Kind]map[string]catalog.PricedName{
			catalog.KindSpot: {"故宫": {ID: "s9", Price: 999}},
		},
	}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(), []trip.DayItem{{
		Day:         1,
		TicketIDs:   trip.IDList{"s1"},
		TicketNames: trip.StringList{"故宫"},
	}}, trip.Request{PeopleCount: 1})

	if items[0].TicketCost == nil || *items[0].TicketCost != 100 {
		t.Errorf("ticketCost = %v, want 100 from the id lookup", items[0].TicketCost)
	}
}

func TestBackfill_NeverFabricates(t *testing.T) {
	r := &runner{catalog: &fakeCatalog{}}

	items := r.backfillPrices(context.Background(), []trip.DayItem{{
		Day:       1,
		HotelName: "不存在的酒店",
		TicketIDs: trip.IDList{"missing"},
	}}, trip.Request{})

	if items[0].HotelCost != nil {
		t.Errorf("hotelCost = %v, want nil when nothing matches", items[0].HotelCost)
	}
	if items[0].TicketCost != nil {
		t.Errorf("ticketCost = %v, want nil when nothing matches", items[0].TicketCost)
	}
}

func TestBackfill_PreservesExistingCosts(t *testing.T) {
	cat := &fakeCatalog{prices: map[catalog.Kind]map[string]float64{
		catalog.KindHotel: {"h1": 500},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(),
		[]trip.DayItem{{Day: 1, HotelID: "h1", HotelCost: ptr(888)}},
		trip.Request{RoomCount: 2})

	if *items[0].HotelCost != 888 {
		t.Errorf("hotelCost = %v, want untouched 888", *items[0].HotelCost)
	}
}

func TestBackfill_ZeroCostTreatedAsUnpriced(t *testing.T) {
	cat := &fakeCatalog{prices: map[catalog.Kind]map[string]float64{
		catalog.KindHotel: {"h1": 500},
	}}
	r := &runner{catalog: cat}

	items := r.backfillPrices(context.Background(),
		[]trip.DayItem{{Day: 1, HotelID: "h1", HotelCost: ptr(0)}},
		trip.Request{RoomCount: 1})

	if items[0].HotelCost == nil || *items[0].HotelCost != 500 {
		t.Errorf("hotelCost = %v, want 500 (zero means unpriced)", items[0].HotelCost)
	}
}
