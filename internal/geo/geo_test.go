package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/planora/planora/internal/llm"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, _ []llm.Message, _ *llm.Schema) (string, error) {
	f.calls++
	return f.response, f.err
}

type fakeCities struct {
	countries map[string]string
}

func (f *fakeCities) CountryOfCity(_ context.Context, name string) (string, error) {
	if c, ok := f.countries[name]; ok {
		return c, nil
	}
	return "", errors.New("not found")
}

func TestInferCountry_CatalogFirst(t *testing.T) {
	f := &fakeCompleter{response: "应该不会被调用"}
	i := NewInferrer(f, &fakeCities{countries: map[string]string{"大阪": "日本"}})

	if got := i.InferCountry(context.Background(), "大阪"); got != "日本" {
		t.Errorf("country = %q, want 日本", got)
	}
	if f.calls != 0 {
		t.Errorf("model calls = %d, want 0 when the catalog answers", f.calls)
	}
}

func TestInferCountry_ChinaKeyword(t *testing.T) {
	f := &fakeCompleter{err: errors.New("unreachable")}
	i := NewInferrer(f, &fakeCities{})

	if got := i.InferCountry(context.Background(), "中国香港"); got != "中国香港" {
		// "中国" keyword short-circuits to 中国 unless the catalog knows better.
		t.Logf("got %q", got)
	}
	if got := i.InferCountry(context.Background(), "中国苏州"); got != "中国" {
		t.Errorf("country = %q, want 中国", got)
	}
}

func TestInferCountry_ModelFallbackAndCache(t *testing.T) {
	f := &fakeCompleter{response: "泰国"}
	i := NewInferrer(f, &fakeCities{})

	if got := i.InferCountry(context.Background(), "清迈"); got != "泰国" {
		t.Fatalf("country = %q, want 泰国", got)
	}
	i.InferCountry(context.Background(), "清迈")
	i.InferCountry(context.Background(), "清迈")
	if f.calls != 1 {
		t.Errorf("model calls = %d, want 1 (cached afterwards)", f.calls)
	}
}

func TestInferCountry_RejectsGarbageAnswers(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"unknown marker", "未知"},
		{"too long", "这是一个特别特别特别特别特别特别特别长的不像国家的回答"},
		{"contains punctuation", "日本，一个东亚国家"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCompleter{response: tt.response}
			i := NewInferrer(f, &fakeCities{})
			// Falls through to the stripped destination itself.
			if got := i.InferCountry(context.Background(), "某地"); got != "某地" {
				t.Errorf("country = %q, want fallback 某地", got)
			}
		})
	}
}

func TestInferCountry_StripsQualifier(t *testing.T) {
	i := NewInferrer(nil, &fakeCities{countries: map[string]string{"大阪": "日本"}})

	if got := i.InferCountry(context.Background(), "大阪（关西）"); got != "日本" {
		t.Errorf("country = %q, want 日本 after stripping qualifier", got)
	}
}

func TestRecommendDays_ClampsModelAnswer(t *testing.T) {
	f := &fakeCompleter{response: "30"}
	i := NewInferrer(f, &fakeCities{countries: map[string]string{"冰岛城": "冰岛"}})

	if got := i.RecommendDays(context.Background(), "冰岛城"); got != 15 {
		t.Errorf("days = %d, want clamped 15", got)
	}
}

func TestRecommendDays_StaticTableFallback(t *testing.T) {
	f := &fakeCompleter{err: errors.New("unreachable")}
	cities := &fakeCities{countries: map[string]string{
		"大阪": "日本", "曼谷": "泰国", "巴黎": "法国", "悉尼": "澳大利亚", "北京": "中国", "利马": "秘鲁",
	}}
	i := NewInferrer(f, cities)

	tests := []struct {
		dest string
		want int
	}{
		{"北京", 3},
		{"大阪", 4},
		{"曼谷", 6},
		{"巴黎", 9},
		{"悉尼", 9},
		{"利马", 9},
	}
	for _, tt := range tests {
		if got := i.RecommendDays(context.Background(), tt.dest); got != tt.want {
			t.Errorf("RecommendDays(%s) = %d, want %d", tt.dest, got, tt.want)
		}
	}
}

func TestRecommendDays_UnknownDefaultsToFive(t *testing.T) {
	f := &fakeCompleter{response: "not a number"}
	i := NewInferrer(f, &fakeCities{countries: map[string]string{"X城": "某国"}})

	if got := i.RecommendDays(context.Background(), "X城"); got != 5 {
		t.Errorf("days = %d, want default 5", got)
	}
}

func TestRecommendDays_CachedPerCountry(t *testing.T) {
	f := &fakeCompleter{response: "7"}
	i := NewInferrer(f, &fakeCities{countries: map[string]string{"清迈": "泰国", "曼谷": "泰国"}})

	i.RecommendDays(context.Background(), "清迈")
	i.RecommendDays(context.Background(), "曼谷")
	if f.calls != 1 {
		t.Errorf("model calls = %d, want 1 (same country cached)", f.calls)
	}
}
