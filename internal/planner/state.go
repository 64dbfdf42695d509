// Package planner implements the itinerary-generation pipeline: requirement
// assessment, intent detection, catalog context retrieval, model-driven plan
// generation with bounded tool calling, and normalization with price
// backfilling and validation.
package planner

import (
	"context"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

// Completer is the completion service slice the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, instructions string, msgs []llm.Message, schema *llm.Schema) (string, error)
	NewToolSession(instructions string, msgs []llm.Message, tools []llm.ToolDef) ToolSession
	SupportsTools() bool
}

// ToolSession is one tool-calling conversation with the model.
type ToolSession interface {
	Next(ctx context.Context) (llm.Turn, error)
	AddToolResult(callID, content string)
}

// Catalog is the read-only, visibility-bound query adapter.
type Catalog interface {
	FindHotels(ctx context.Context, city string, priceMax float64) ([]catalog.HotelSummary, error)
	FindSpots(ctx context.Context, city string) ([]catalog.ResourceSummary, error)
	FindActivities(ctx context.Context, city string) ([]catalog.ResourceSummary, error)
	FindRestaurants(ctx context.Context, city, cuisine string) ([]catalog.RestaurantSummary, error)
	FindTransports(ctx context.Context, region string, passengers int) ([]catalog.TransportSummary, error)
	FindDocuments(ctx context.Context, country string, cityIDs []string) ([]catalog.DocumentSummary, error)
	PricesByID(ctx context.Context, kind catalog.Kind, ids []string) (map[string]float64, error)
	CheapestByName(ctx context.Context, kind catalog.Kind, name string) (catalog.PricedName, bool, error)
	CityIDs(ctx context.Context, names []string) ([]string, error)
}

// Geo resolves destinations to countries and recommended trip lengths.
type Geo interface {
	InferCountry(ctx context.Context, destination string) string
	RecommendDays(ctx context.Context, destination string) int
}

// Memory manages the per-conversation requirements summary.
type Memory interface {
	Load(ctx context.Context, username, conversationID string) string
	Save(ctx context.Context, username, conversationID, summary string)
	Summarize(ctx context.Context, existing string, history []trip.Message) string
}

// State is the evolving pipeline record. Each stage is a pure transition
// taking the previous state and returning the next; once err or
// needsMoreInfo is set, every downstream stage passes the state through
// unchanged.
type State struct {
	req trip.Request

	city    string
	days    int
	country string
	memory  string

	hotels      []catalog.HotelSummary
	spots       []catalog.ResourceSummary
	activities  []catalog.ResourceSummary
	transports  []catalog.TransportSummary
	restaurants []catalog.RestaurantSummary
	documents   []catalog.DocumentSummary

	itinerary []trip.DayItem

	intent        Intent
	err           string
	needsMoreInfo bool
	followUp      string
	riskWarning   string
}

func (s State) halted() bool {
	return s.err != "" || s.needsMoreInfo
}

type stageFunc func(ctx context.Context, s State) State
