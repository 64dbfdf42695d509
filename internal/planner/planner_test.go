package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

func newTestPlanner(f *fakeLLM, geo fakeGeo, mem *fakeMemory, cat *fakeCatalog) *Planner {
	return New(f, geo, mem, func(_ *catalog.Identity) Catalog { return cat })
}

func TestGenerateItinerary_NotConfigured(t *testing.T) {
	p := New(nil, fakeGeo{}, &fakeMemory{}, func(_ *catalog.Identity) Catalog { return &fakeCatalog{} })

	res := p.GenerateItinerary(context.Background(), nil, trip.Request{UserPrompt: "大阪"})
	if res.Error != msgNotConfigured {
		t.Errorf("error = %q, want %q", res.Error, msgNotConfigured)
	}
	if res.Itinerary == nil {
		t.Error("itinerary must be an empty slice, not nil")
	}
}

func TestGenerateItinerary_HappyPath(t *testing.T) {
	f := &fakeLLM{
		noTools: true,
		completeFn: func(_ string, msgs []llm.Message, schema *llm.Schema) (string, error) {
			if schema != nil {
				return `{"need_more_info":false,"question":""}`, nil
			}
			if len(msgs) == 1 && strings.Contains(msgs[0].Content, "风险") {
				return "- 日本总体安全，适合旅行", nil
			}
			return planJSON, nil
		},
	}
	mem := &fakeMemory{summary: "客户计划大阪2日游"}
	p := newTestPlanner(f, fakeGeo{country: "日本", days: 4}, mem, &fakeCatalog{})

	res := p.GenerateItinerary(context.Background(), &catalog.Identity{Username: "alice"}, trip.Request{
		Destinations:   []string{"大阪"},
		Days:           2,
		UserPrompt:     "帮我规划大阪行程",
		PeopleCount:    2,
		ConversationID: "conv-1",
	})

	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	if len(res.Itinerary) != 2 {
		t.Fatalf("itinerary days = %d, want 2", len(res.Itinerary))
	}
	if res.RiskWarning == "" {
		t.Error("expected a risk warning for 日本")
	}
	if got := mem.saved["alice/conv-1"]; got != "客户计划大阪2日游" {
		t.Errorf("saved memory = %q, want refreshed summary", got)
	}
}

func TestGenerateItinerary_HaltsOnMissingDestination(t *testing.T) {
	f := &fakeLLM{completeFn: func(_ string, _ []llm.Message, _ *llm.Schema) (string, error) {
		return `{"need_more_info":true,"question":"想去哪里旅行？"}`, nil
	}}
	cat := &fakeCatalog{}
	p := newTestPlanner(f, fakeGeo{}, &fakeMemory{}, cat)

	res := p.GenerateItinerary(context.Background(), nil, trip.Request{UserPrompt: "想出去玩"})
	if res.Error != "想去哪里旅行？" {
		t.Errorf("error = %q, want clarifying question", res.Error)
	}
	if len(res.Itinerary) != 0 {
		t.Errorf("halted run produced %d itinerary days", len(res.Itinerary))
	}
}

func TestGenerateItinerary_PromptDaysOverrideForm(t *testing.T) {
	var gotSystem string
	f := &fakeLLM{
		noTools: true,
		completeFn: func(instructions string, msgs []llm.Message, schema *llm.Schema) (string, error) {
			if schema != nil {
				return `{"need_more_info":false,"question":""}`, nil
			}
			if len(msgs) == 1 && strings.Contains(msgs[0].Content, "风险") {
				return "", nil
			}
			gotSystem = instructions
			return planJSON, nil
		},
	}
	p := newTestPlanner(f, fakeGeo{country: "日本", days: 4}, &fakeMemory{}, &fakeCatalog{})

	res := p.GenerateItinerary(context.Background(), nil, trip.Request{
		Destinations: []string{"大阪"},
		Days:         3,
		UserPrompt:   "大阪玩5天",
	})
	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	if !strings.Contains(gotSystem, "5 天行程") {
		t.Errorf("generation prompt should use the spoken 5 days, got: %.80s", gotSystem)
	}
}

func TestGenerateItinerary_ValidationDiscards(t *testing.T) {
	broken := `{"itinerary":[{"day":1,"s_city":"大阪","e_city":"京都","route":"大阪-京都"},{"day":3}]}`
	f := &fakeLLM{
		noTools: true,
		completeFn: func(_ string, msgs []llm.Message, schema *llm.Schema) (string, error) {
			if schema != nil {
				return `{"need_more_info":false,"question":""}`, nil
			}
			if len(msgs) == 1 && strings.Contains(msgs[0].Content, "风险") {
				return "", nil
			}
			return broken, nil
		},
	}
	p := newTestPlanner(f, fakeGeo{country: "日本", days: 4}, &fakeMemory{}, &fakeCatalog{})

	res := p.GenerateItinerary(context.Background(), nil, trip.Request{
		Destinations: []string{"大阪"},
		Days:         2,
		UserPrompt:   "帮我规划大阪行程",
	})
	if res.Error != msgValidationFailed {
		t.Errorf("error = %q, want %q", res.Error, msgValidationFailed)
	}
	if len(res.Itinerary) != 0 {
		t.Errorf("invalid itinerary must be discarded whole, got %d days", len(res.Itinerary))
	}
}
