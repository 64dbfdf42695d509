package planner

import (
	"context"
	"log/slog"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

// Terminal error messages. The caller-facing envelope never leaks raw
// provider or database errors.
const (
	msgNotConfigured    = "AI 未配置，请稍后再试。"
	msgGenerationFailed = "行程生成失败，请稍后再试。"
	msgParseFailed      = "行程内容解析失败，请调整需求后重试。"
	msgValidationFailed = "生成的行程未通过校验，请重试。"
)

// Planner runs the staged itinerary pipeline. It is safe for concurrent use;
// each request gets its own runner bound to the caller's catalog view.
type Planner struct {
	llm        Completer
	geo        Geo
	memory     Memory
	catalogFor func(*catalog.Identity) Catalog
}

// New creates a Planner. completer may be nil when no model is configured;
// GenerateItinerary then returns a fixed configuration error.
func New(completer Completer, geo Geo, memory Memory, catalogFor func(*catalog.Identity) Catalog) *Planner {
	return &Planner{llm: completer, geo: geo, memory: memory, catalogFor: catalogFor}
}

// runner is one pipeline execution: the planner's collaborators plus the
// caller-bound catalog view.
type runner struct {
	llm     Completer
	geo     Geo
	catalog Catalog
}

// GenerateItinerary runs the full pipeline for one request. The result
// envelope always carries a non-nil itinerary slice; failures are reported
// through the error field, clarifications through followUp.
func (p *Planner) GenerateItinerary(ctx context.Context, ident *catalog.Identity, req trip.Request) trip.Result {
	if p.llm == nil {
		return trip.Result{Itinerary: []trip.DayItem{}, Error: msgNotConfigured}
	}

	username := ""
	if ident != nil {
		username = ident.Username
	}

	s := State{req: req, memory: p.memory.Load(ctx, username, req.ConversationID)}
	if len(req.Destinations) > 0 {
		s.city = req.Destinations[0]
	}
	s.days = promptDays(req.UserPrompt)
	if s.days == 0 {
		s.days = req.Days
	}

	slog.Info("planning started",
		"city", s.city,
		"days", s.days,
		"conversation", req.ConversationID,
		"authenticated", username != "")

	r := &runner{llm: p.llm, geo: p.geo, catalog: p.catalogFor(ident)}
	for _, stage := range []stageFunc{r.assess, r.detectIntent, r.retrieveContext, r.generatePlan, r.validatePlan} {
		s = stage(ctx, s)
	}

	if req.ConversationID != "" {
		summary := p.memory.Summarize(ctx, s.memory, req.ChatHistory)
		p.memory.Save(ctx, username, req.ConversationID, summary)
	}

	itinerary := s.itinerary
	if itinerary == nil {
		itinerary = []trip.DayItem{}
	}
	slog.Info("planning finished",
		"days", len(itinerary),
		"error", s.err != "",
		"followUp", s.followUp != "")
	return trip.Result{
		Itinerary:   itinerary,
		Error:       s.err,
		FollowUp:    s.followUp,
		RiskWarning: s.riskWarning,
	}
}

// clientAdapter lets the concrete completion client satisfy Completer, whose
// NewToolSession returns the package-local interface.
type clientAdapter struct {
	*llm.Client
}

// WrapClient adapts an llm.Client for use as the planner's Completer.
// A nil client yields nil, keeping the "not configured" check simple.
func WrapClient(c *llm.Client) Completer {
	if c == nil {
		return nil
	}
	return clientAdapter{c}
}

func (a clientAdapter) NewToolSession(instructions string, msgs []llm.Message, tools []llm.ToolDef) ToolSession {
	return a.Client.NewToolSession(instructions, msgs, tools)
}
