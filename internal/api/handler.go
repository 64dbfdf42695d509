// Package api exposes the planning pipeline over HTTP and over MCP stdio.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/trip"
)

const maxRequestBodySize = 1 << 20 // 1MB

// PlanService is the pipeline entry point consumed by the HTTP layer.
type PlanService interface {
	GenerateItinerary(ctx context.Context, ident *catalog.Identity, req trip.Request) trip.Result
}

// NewHandler returns the HTTP API. Callers identify themselves with the
// X-Username header; requests without it get the anonymous catalog view.
func NewHandler(planner PlanService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/v1/itinerary", handleItinerary(planner))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleItinerary(planner PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req trip.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.UserPrompt == "" && len(req.Destinations) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "userPrompt or currentDestinations is required")
			return
		}

		result := planner.GenerateItinerary(r.Context(), identityFrom(r), req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func identityFrom(r *http.Request) *catalog.Identity {
	username := r.Header.Get("X-Username")
	if username == "" {
		return nil
	}
	return &catalog.Identity{Username: username}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
