package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

// maxToolRounds bounds how many times the model may come back with tool
// calls before generation falls back to a plain completion.
const maxToolRounds = 4

var errToolBudget = errors.New("tool call budget exhausted")

func toolDefs() []llm.ToolDef {
	city := map[string]any{"type": "string", "description": "城市名称（中文）"}
	return []llm.ToolDef{
		{
			Name:        "search_hotels",
			Description: "按城市检索酒店，可选最高价格过滤",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city_name": city,
					"price_max": map[string]any{"type": "number", "description": "每晚最高价格，0表示不限"},
				},
			},
		},
		{
			Name:        "search_spots",
			Description: "按城市检索景点门票",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city_name": city},
			},
		},
		{
			Name:        "search_activities",
			Description: "按城市检索活动项目",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city_name": city},
			},
		},
		{
			Name:        "search_transports",
			Description: "按地区检索包车/交通服务",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"region":     map[string]any{"type": "string", "description": "地区或国家名称"},
					"passengers": map[string]any{"type": "integer", "description": "乘客人数"},
				},
			},
		},
		{
			Name:        "search_restaurants",
			Description: "按城市检索餐厅，可选菜系过滤",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city_name":    city,
					"cuisine_type": map[string]any{"type": "string", "description": "菜系，如 日料/川菜"},
				},
			},
		},
		{
			Name:        "search_documents",
			Description: "检索上传的合同/报价/政策文档，内容优先级高于资源库",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"country":   map[string]any{"type": "string", "description": "国家名称"},
					"city_name": city,
				},
			},
		},
	}
}

// generatePlan asks the model for the itinerary, letting it pull extra
// catalog context through tools, then parses, normalizes, and price-backfills
// the result. Tool failures are surfaced to the model as error payloads, not
// to the caller.
func (r *runner) generatePlan(ctx context.Context, s State) State {
	if s.halted() {
		return s
	}

	if s.country != "" {
		s.riskWarning = r.riskNote(ctx, s)
	}

	system := r.generationPrompt(s)
	msgs := []llm.Message{{Role: "user", Content: r.generationUserMessage(s)}}

	var text string
	var err error
	if r.llm.SupportsTools() {
		text, err = r.runToolLoop(ctx, s, system, msgs)
		if err != nil {
			if !errors.Is(err, llm.ErrToolsUnsupported) && !errors.Is(err, errToolBudget) {
				slog.Warn("tool-driven generation failed, retrying without tools", "error", err)
			}
			text, err = r.llm.Complete(ctx, system, msgs, nil)
		}
	} else {
		text, err = r.llm.Complete(ctx, system, msgs, nil)
	}
	if err != nil {
		slog.Error("itinerary generation failed", "error", err)
		s.err = msgGenerationFailed
		return s
	}

	items, err := parseItinerary(text)
	if err != nil {
		slog.Error("itinerary output unparseable", "error", err)
		s.err = msgParseFailed
		return s
	}

	items = Normalize(items)
	items = r.backfillPrices(ctx, items, s.req)
	s.itinerary = items
	return s
}

func (r *runner) runToolLoop(ctx context.Context, s State, system string, msgs []llm.Message) (string, error) {
	sess := r.llm.NewToolSession(system, msgs, toolDefs())
	for round := 0; round < maxToolRounds; round++ {
		turn, err := sess.Next(ctx)
		if err != nil {
			return "", err
		}
		if len(turn.ToolCalls) == 0 {
			return turn.Text, nil
		}
		for _, call := range turn.ToolCalls {
			result := r.executeTool(ctx, s, call)
			sess.AddToolResult(call.ID, result)
			slog.Debug("tool executed", "tool", call.Name, "round", round+1)
		}
	}
	return "", errToolBudget
}

// executeTool dispatches a model tool call against the catalog. Unknown
// tools and lookup errors come back as JSON error payloads so the model can
// route around them.
func (r *runner) executeTool(ctx context.Context, s State, call llm.ToolCall) string {
	var args struct {
		CityName    string  `json:"city_name"`
		PriceMax    float64 `json:"price_max"`
		CuisineType string  `json:"cuisine_type"`
		Region      string  `json:"region"`
		Passengers  int     `json:"passengers"`
		Country     string  `json:"country"`
	}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err))
		}
	}
	if args.CityName == "" {
		args.CityName = s.city
	}
	if args.Region == "" {
		args.Region = s.country
	}
	if args.Country == "" {
		args.Country = s.country
	}
	if args.Passengers == 0 {
		args.Passengers = s.req.PeopleCount
	}

	var result any
	var err error
	switch call.Name {
	case "search_hotels":
		result, err = r.catalog.FindHotels(ctx, args.CityName, args.PriceMax)
	case "search_spots":
		result, err = r.catalog.FindSpots(ctx, args.CityName)
	case "search_activities":
		result, err = r.catalog.FindActivities(ctx, args.CityName)
	case "search_transports":
		result, err = r.catalog.FindTransports(ctx, args.Region, args.Passengers)
	case "search_restaurants":
		result, err = r.catalog.FindRestaurants(ctx, args.CityName, args.CuisineType)
	case "search_documents":
		var cityIDs []string
		if args.CityName != "" {
			cityIDs, err = r.catalog.CityIDs(ctx, []string{args.CityName})
		}
		if err == nil {
			result, err = r.catalog.FindDocuments(ctx, args.Country, cityIDs)
		}
	default:
		return toolError(fmt.Errorf("unknown tool %q", call.Name))
	}
	if err != nil {
		slog.Warn("tool call failed", "tool", call.Name, "error", err)
		return toolError(err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return toolError(err)
	}
	return string(payload)
}

func toolError(err error) string {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(payload)
}

func (r *runner) generationPrompt(s State) string {
	formContext, _ := json.Marshal(map[string]any{
		"currentDestinations": s.req.Destinations,
		"currentDays":         s.days,
		"peopleCount":         s.req.PeopleCount,
		"roomCount":           s.req.RoomCount,
		"startDate":           s.req.StartDate,
		"memorySummary":       s.memory,
		"availableCountries":  s.req.AvailableCountries,
	})
	retrieved, _ := json.Marshal(map[string]any{
		"hotels":      s.hotels,
		"spots":       s.spots,
		"activities":  s.activities,
		"transports":  s.transports,
		"restaurants": s.restaurants,
		"documents":   s.documents,
	})

	rowsNote := ""
	if s.intent == IntentModify {
		rows, err := json.Marshal(s.req.CurrentRows)
		if err == nil {
			rowsNote = fmt.Sprintf(modifyRowsNote, rows)
		}
	}

	return fmt.Sprintf(generationSystem,
		s.city, s.days, s.intent, formContext, s.req.UserPrompt, retrieved, rowsNote, s.riskWarning)
}

func (r *runner) generationUserMessage(s State) string {
	history, _ := json.Marshal(s.req.ChatHistory)
	startDate := s.req.StartDate
	if startDate == "" {
		startDate = "未指定"
	}
	people := s.req.PeopleCount
	if people <= 0 {
		people = 1
	}
	rooms := s.req.RoomCount
	if rooms <= 0 {
		rooms = 1
	}
	return fmt.Sprintf(generationUser,
		s.req.UserPrompt, strings.Join(s.req.Destinations, "、"), s.days, people, rooms, startDate, history)
}

// riskNote asks for a short safety and visa briefing for the destination
// country, with a seasonal line when the start month is known. Best effort:
// any failure yields no warning.
func (r *runner) riskNote(ctx context.Context, s State) string {
	startDate := s.req.StartDate
	if startDate == "" {
		startDate = "未指定"
	}
	prompt := fmt.Sprintf(riskAssessment, s.country, startDate)
	if t, err := time.Parse("2006-01-02", s.req.StartDate); err == nil {
		prompt += "\n" + fmt.Sprintf(seasonalNote, fmt.Sprint(int(t.Month())), s.country)
	}

	text, err := r.llm.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		slog.Warn("risk assessment failed", "country", s.country, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// parseItinerary accepts either a bare JSON array of day items or an
// {"itinerary": [...]} envelope, with or without a Markdown fence.
func parseItinerary(raw string) ([]trip.DayItem, error) {
	text := llm.StripFence(raw)

	var arr []trip.DayItem
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr, nil
	}

	var env struct {
		Itinerary []trip.DayItem `json:"itinerary"`
	}
	if err := json.Unmarshal([]byte(text), &env); err == nil && env.Itinerary != nil {
		return env.Itinerary, nil
	}
	return nil, errors.New("output contains no itinerary JSON")
}
