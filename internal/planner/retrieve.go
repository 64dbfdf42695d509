package planner

import (
	"context"
	"log/slog"
)

// retrieveContext pre-fetches catalog resources for the destination so the
// generation prompt starts grounded even if the model never calls a tool.
// Individual lookup failures degrade to empty lists; retrieval never halts
// the pipeline.
func (r *runner) retrieveContext(ctx context.Context, s State) State {
	if s.halted() {
		return s
	}

	if s.country == "" {
		s.country = r.geo.InferCountry(ctx, s.city)
	}

	var err error
	if s.hotels, err = r.catalog.FindHotels(ctx, s.city, 0); err != nil {
		slog.Warn("hotel retrieval failed", "city", s.city, "error", err)
	}
	if s.spots, err = r.catalog.FindSpots(ctx, s.city); err != nil {
		slog.Warn("spot retrieval failed", "city", s.city, "error", err)
	}
	if s.activities, err = r.catalog.FindActivities(ctx, s.city); err != nil {
		slog.Warn("activity retrieval failed", "city", s.city, "error", err)
	}
	if s.restaurants, err = r.catalog.FindRestaurants(ctx, s.city, ""); err != nil {
		slog.Warn("restaurant retrieval failed", "city", s.city, "error", err)
	}
	if s.transports, err = r.catalog.FindTransports(ctx, s.country, s.req.PeopleCount); err != nil {
		slog.Warn("transport retrieval failed", "region", s.country, "error", err)
	}

	cityIDs, err := r.catalog.CityIDs(ctx, s.req.Destinations)
	if err != nil {
		slog.Warn("city id resolution failed", "error", err)
	}
	if s.documents, err = r.catalog.FindDocuments(ctx, s.country, cityIDs); err != nil {
		slog.Warn("document retrieval failed", "country", s.country, "error", err)
	}

	slog.Info("context retrieved",
		"city", s.city,
		"country", s.country,
		"hotels", len(s.hotels),
		"spots", len(s.spots),
		"activities", len(s.activities),
		"transports", len(s.transports),
		"restaurants", len(s.restaurants),
		"documents", len(s.documents))
	return s
}
