package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/planora/planora/internal/catalog"
)

// MCPCatalog abstracts the visibility-bound catalog view for the MCP layer.
type MCPCatalog interface {
	FindHotels(ctx context.Context, city string, priceMax float64) ([]catalog.HotelSummary, error)
	FindSpots(ctx context.Context, city string) ([]catalog.ResourceSummary, error)
	FindActivities(ctx context.Context, city string) ([]catalog.ResourceSummary, error)
	FindRestaurants(ctx context.Context, city, cuisine string) ([]catalog.RestaurantSummary, error)
	FindTransports(ctx context.Context, region string, passengers int) ([]catalog.TransportSummary, error)
	FindDocuments(ctx context.Context, country string, cityIDs []string) ([]catalog.DocumentSummary, error)
	CityIDs(ctx context.Context, names []string) ([]string, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog MCPCatalog
}

// NewMCPServer creates an MCP server exposing the travel catalog as tools so
// external agents can search the same resources the planner sees.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"planora",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("planora — travel resource catalog: hotels, spots, activities, transports, restaurants, and uploaded documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_hotels",
			mcp.WithDescription("Search hotels in a city, optionally capped at a nightly price."),
			mcp.WithString("city", mcp.Description("City name"), mcp.Required()),
			mcp.WithNumber("price_max", mcp.Description("Maximum nightly price, 0 for no cap")),
		),
		mcpSearchHotels(deps),
	)

	s.AddTool(
		mcp.NewTool("search_spots",
			mcp.WithDescription("Search sightseeing spots and their ticket prices in a city."),
			mcp.WithString("city", mcp.Description("City name"), mcp.Required()),
		),
		mcpSearchSpots(deps),
	)

	s.AddTool(
		mcp.NewTool("search_activities",
			mcp.WithDescription("Search bookable activities in a city."),
			mcp.WithString("city", mcp.Description("City name"), mcp.Required()),
		),
		mcpSearchActivities(deps),
	)

	s.AddTool(
		mcp.NewTool("search_transports",
			mcp.WithDescription("Search charter and transport services for a region."),
			mcp.WithString("region", mcp.Description("Region or country name"), mcp.Required()),
			mcp.WithNumber("passengers", mcp.Description("Passenger count, 0 for any")),
		),
		mcpSearchTransports(deps),
	)

	s.AddTool(
		mcp.NewTool("search_restaurants",
			mcp.WithDescription("Search restaurants in a city, optionally filtered by cuisine."),
			mcp.WithString("city", mcp.Description("City name"), mcp.Required()),
			mcp.WithString("cuisine", mcp.Description("Cuisine type filter")),
		),
		mcpSearchRestaurants(deps),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Search uploaded contracts, quotes, and policy documents by country and city."),
			mcp.WithString("country", mcp.Description("Country name")),
			mcp.WithString("city", mcp.Description("City name")),
		),
		mcpSearchDocuments(deps),
	)

	return s
}

func mcpSearchHotels(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcpError("city is required"), nil
		}
		priceMax := req.GetFloat("price_max", 0)

		hotels, err := deps.Catalog.FindHotels(ctx, city, priceMax)
		if err != nil {
			return mcpError(fmt.Sprintf("hotel search failed: %v", err)), nil
		}
		return mcpJSON(hotels)
	}
}

func mcpSearchSpots(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcpError("city is required"), nil
		}
		spots, err := deps.Catalog.FindSpots(ctx, city)
		if err != nil {
			return mcpError(fmt.Sprintf("spot search failed: %v", err)), nil
		}
		return mcpJSON(spots)
	}
}

func mcpSearchActivities(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcpError("city is required"), nil
		}
		activities, err := deps.Catalog.FindActivities(ctx, city)
		if err != nil {
			return mcpError(fmt.Sprintf("activity search failed: %v", err)), nil
		}
		return mcpJSON(activities)
	}
}

func mcpSearchTransports(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		region, err := req.RequireString("region")
		if err != nil {
			return mcpError("region is required"), nil
		}
		passengers := req.GetInt("passengers", 0)

		transports, err := deps.Catalog.FindTransports(ctx, region, passengers)
		if err != nil {
			return mcpError(fmt.Sprintf("transport search failed: %v", err)), nil
		}
		return mcpJSON(transports)
	}
}

func mcpSearchRestaurants(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcpError("city is required"), nil
		}
		cuisine := req.GetString("cuisine", "")

		restaurants, err := deps.Catalog.FindRestaurants(ctx, city, cuisine)
		if err != nil {
			return mcpError(fmt.Sprintf("restaurant search failed: %v", err)), nil
		}
		return mcpJSON(restaurants)
	}
}

func mcpSearchDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		country := req.GetString("country", "")
		city := req.GetString("city", "")

		var cityIDs []string
		if city != "" {
			ids, err := deps.Catalog.CityIDs(ctx, []string{city})
			if err != nil {
				return mcpError(fmt.Sprintf("city lookup failed: %v", err)), nil
			}
			cityIDs = ids
		}

		docs, err := deps.Catalog.FindDocuments(ctx, country, cityIDs)
		if err != nil {
			return mcpError(fmt.Sprintf("document search failed: %v", err)), nil
		}
		return mcpJSON(docs)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
