package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/planora/planora/internal/llm"
)

// assessHistoryTurns is how many trailing chat turns the assessor sees.
const assessHistoryTurns = 6

var promptDaysRe = regexp.MustCompile(`(\d+)\s*天`)

type assessment struct {
	NeedMoreInfo bool   `json:"need_more_info"`
	Question     string `json:"question"`
}

// assess decides whether planning can proceed. A clarifying question halts
// the pipeline only when no destination is known at all; with a destination
// on file the question rides along as a non-blocking follow-up and planning
// continues. When the trip length is unknown a recommendation is filled in
// and announced the same way.
func (r *runner) assess(ctx context.Context, s State) State {
	q := r.assessQuestion(ctx, s)
	hasDestination := s.city != ""

	if q != "" {
		if !hasDestination {
			s.needsMoreInfo = true
			s.err = q
			return s
		}
		s.followUp = q
	}

	if hasDestination && s.days == 0 {
		s.days = r.geo.RecommendDays(ctx, s.city)
		if s.followUp == "" {
			s.followUp = fmt.Sprintf(draftDaysFollowUp, s.days)
		}
	}
	return s
}

// assessQuestion runs the structured assessment with a two-step fallback:
// structured completion, then free-text completion, then a fixed question.
// It returns "" when no clarification is needed.
func (r *runner) assessQuestion(ctx context.Context, s State) string {
	countries := lo.Uniq(lo.FilterMap(s.req.Destinations, func(d string, _ int) (string, bool) {
		c := r.geo.InferCountry(ctx, d)
		return c, c != ""
	}))

	tail := s.req.ChatHistory
	if len(tail) > assessHistoryTurns {
		tail = tail[len(tail)-assessHistoryTurns:]
	}
	assessCtx, _ := json.Marshal(map[string]any{
		"currentDestinations": s.req.Destinations,
		"inferredCountries":   countries,
		"currentDays":         s.days,
		"currentRowsCount":    len(s.req.CurrentRows),
		"peopleCount":         s.req.PeopleCount,
		"roomCount":           s.req.RoomCount,
		"startDate":           s.req.StartDate,
		"memorySummary":       s.memory,
		"chatHistory":         tail,
		"userPrompt":          s.req.UserPrompt,
	})

	inferred := "无"
	if len(countries) > 0 {
		inferred = strings.Join(countries, "、")
	}
	system := fmt.Sprintf(assessmentSystem, inferred, assessCtx)
	msgs := []llm.Message{{Role: "user", Content: s.req.UserPrompt}}

	schema := &llm.Schema{
		Name: "requirement_assessment",
		Properties: map[string]llm.SchemaProperty{
			"need_more_info": {Type: "boolean", Description: "是否需要向用户追问"},
			"question":       {Type: "string", Description: "需要追问时的问题，一句话"},
		},
		Required: []string{"need_more_info", "question"},
	}

	raw, err := r.llm.Complete(ctx, system, msgs, schema)
	if err != nil {
		slog.Warn("structured assessment failed, retrying as text", "error", err)
		raw, err = r.llm.Complete(ctx, system, msgs, nil)
	}
	if err != nil {
		slog.Warn("assessment failed", "error", err)
		return defaultQuestion
	}

	var out assessment
	if jsonErr := json.Unmarshal([]byte(llm.StripFence(raw)), &out); jsonErr != nil {
		slog.Warn("assessment output unparseable", "error", jsonErr)
		return defaultQuestion
	}
	if !out.NeedMoreInfo {
		return ""
	}
	if out.Question == "" {
		return defaultQuestion
	}
	return out.Question
}

// promptDays extracts an explicit day count like "玩5天" from the prompt.
func promptDays(prompt string) int {
	m := promptDaysRe.FindStringSubmatch(prompt)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > 365 {
		return 0
	}
	return n
}
