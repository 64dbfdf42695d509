package planner

import (
	"context"
	"log/slog"
	"strings"

	"github.com/planora/planora/internal/trip"
)

// Intent classifies a planning request as a fresh plan or a revision of an
// existing one.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentModify Intent = "modify"
)

var modifyKeywords = []string{"优化", "调整", "修改", "变更", "改一下", "完善", "补充", "细化"}

// DetectIntent returns IntentModify only when the prompt contains a revision
// keyword AND there are existing rows to revise. Everything else, including a
// revision request with nothing to revise, creates from scratch.
func DetectIntent(prompt string, rows []trip.DayItem) Intent {
	if len(rows) == 0 {
		return IntentCreate
	}
	for _, kw := range modifyKeywords {
		if strings.Contains(prompt, kw) {
			return IntentModify
		}
	}
	return IntentCreate
}

func (r *runner) detectIntent(_ context.Context, s State) State {
	if s.halted() {
		return s
	}
	s.intent = DetectIntent(s.req.UserPrompt, s.req.CurrentRows)
	slog.Debug("intent detected", "intent", s.intent, "rows", len(s.req.CurrentRows))
	return s
}
