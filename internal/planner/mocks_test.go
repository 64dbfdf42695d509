package planner

import (
	"context"
	"errors"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

type fakeLLM struct {
	completeFn func(instructions string, msgs []llm.Message, schema *llm.Schema) (string, error)
	session    *fakeSession
	noTools    bool

	completeCalls int
}

func (f *fakeLLM) Complete(_ context.Context, instructions string, msgs []llm.Message, schema *llm.Schema) (string, error) {
	f.completeCalls++
	if f.completeFn == nil {
		return "", errors.New("unexpected completion call")
	}
	return f.completeFn(instructions, msgs, schema)
}

func (f *fakeLLM) NewToolSession(_ string, _ []llm.Message, _ []llm.ToolDef) ToolSession {
	return f.session
}

func (f *fakeLLM) SupportsTools() bool {
	return !f.noTools
}

type fakeSession struct {
	turns   []llm.Turn
	errs    []error
	results map[string]string
}

func (s *fakeSession) Next(_ context.Context) (llm.Turn, error) {
	if len(s.turns) == 0 {
		return llm.Turn{}, errors.New("no turns queued")
	}
	turn := s.turns[0]
	s.turns = s.turns[1:]
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	return turn, err
}

func (s *fakeSession) AddToolResult(callID, content string) {
	if s.results == nil {
		s.results = make(map[string]string)
	}
	s.results[callID] = content
}

type fakeGeo struct {
	country string
	days    int
}

func (g fakeGeo) InferCountry(_ context.Context, _ string) string { return g.country }
func (g fakeGeo) RecommendDays(_ context.Context, _ string) int   { return g.days }

type fakeMemory struct {
	loaded  string
	summary string
	saved   map[string]string
}

func (m *fakeMemory) Load(_ context.Context, _, _ string) string { return m.loaded }

func (m *fakeMemory) Save(_ context.Context, username, conversationID, summary string) {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[username+"/"+conversationID] = summary
}

func (m *fakeMemory) Summarize(_ context.Context, existing string, _ []trip.Message) string {
	if m.summary != "" {
		return m.summary
	}
	return existing
}

type fakeCatalog struct {
	hotels      []catalog.HotelSummary
	spots       []catalog.ResourceSummary
	activities  []catalog.ResourceSummary
	transports  []catalog.TransportSummary
	restaurants []catalog.RestaurantSummary
	documents   []catalog.DocumentSummary

	prices  map[catalog.Kind]map[string]float64
	byName  map[catalog.Kind]map[string]catalog.PricedName
	cityIDs []string
	err     error
}

func (c *fakeCatalog) FindHotels(_ context.Context, _ string, _ float64) ([]catalog.HotelSummary, error) {
	return c.hotels, c.err
}

func (c *fakeCatalog) FindSpots(_ context.Context, _ string) ([]catalog.ResourceSummary, error) {
	return c.spots, c.err
}

func (c *fakeCatalog) FindActivities(_ context.Context, _ string) ([]catalog.ResourceSummary, error) {
	return c.activities, c.err
}

func (c *fakeCatalog) FindRestaurants(_ context.Context, _, _ string) ([]catalog.RestaurantSummary, error) {
	return c.restaurants, c.err
}

func (c *fakeCatalog) FindTransports(_ context.Context, _ string, _ int) ([]catalog.TransportSummary, error) {
	return c.transports, c.err
}

func (c *fakeCatalog) FindDocuments(_ context.Context, _ string, _ []string) ([]catalog.DocumentSummary, error) {
	return c.documents, c.err
}

func (c *fakeCatalog) PricesByID(_ context.Context, kind catalog.Kind, ids []string) (map[string]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if price, ok := c.prices[kind][id]; ok {
			out[id] = price
		}
	}
	return out, nil
}

func (c *fakeCatalog) CheapestByName(_ context.Context, kind catalog.Kind, name string) (catalog.PricedName, bool, error) {
	if c.err != nil {
		return catalog.PricedName{}, false, c.err
	}
	match, ok := c.byName[kind][name]
	return match, ok, nil
}

func (c *fakeCatalog) CityIDs(_ context.Context, _ []string) ([]string, error) {
	return c.cityIDs, c.err
}

func ptr(v float64) *float64 { return &v }
