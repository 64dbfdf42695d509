package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeEndpoint serves an OpenAI-compatible chat completions endpoint driven
// by a per-request handler.
func fakeEndpoint(t *testing.T, handle func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		handle(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func respondText(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error"},
	})
}

func TestComplete_PlainText(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body map[string]any) {
		respondText(w, "日本")
	})
	c := New("test-key", srv.URL, "test-model")

	got, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "大阪在哪个国家"}}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "日本" {
		t.Errorf("content = %q", got)
	}
}

func TestComplete_StructuredDowngrade(t *testing.T) {
	var sawResponseFormat, sawPlainRetry bool
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body map[string]any) {
		if _, ok := body["response_format"]; ok {
			sawResponseFormat = true
			respondError(w, http.StatusBadRequest, "response_format is not supported by this model")
			return
		}
		sawPlainRetry = true
		respondText(w, `{"summary":"ok"}`)
	})
	c := New("test-key", srv.URL, "test-model")

	schema := &Schema{
		Name:       "summary",
		Properties: map[string]SchemaProperty{"summary": {Type: "string"}},
		Required:   []string{"summary"},
	}
	got, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, schema)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !sawResponseFormat || !sawPlainRetry {
		t.Errorf("saw response_format=%v plain retry=%v, want both", sawResponseFormat, sawPlainRetry)
	}
	if got != `{"summary":"ok"}` {
		t.Errorf("content = %q", got)
	}

	// The downgrade sticks for the process lifetime.
	sawResponseFormat = false
	if _, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, schema); err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if sawResponseFormat {
		t.Error("structured mode retried after downgrade")
	}
}

func TestComplete_NonFormatErrorPropagates(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body map[string]any) {
		respondError(w, http.StatusUnauthorized, "invalid api key")
	})
	c := New("bad-key", srv.URL, "test-model")

	if _, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestToolSession_RoundTrip(t *testing.T) {
	requests := 0
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body map[string]any) {
		requests++
		switch requests {
		case 1:
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "cmpl-1",
				"object": "chat.completion",
				"choices": []map[string]any{{
					"index": 0,
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      "search_spots",
								"arguments": `{"city_name":"大阪"}`,
							},
						}},
					},
				}},
			})
		default:
			msgs := body["messages"].([]any)
			last := msgs[len(msgs)-1].(map[string]any)
			if last["role"] != "tool" {
				t.Errorf("last message role = %v, want tool", last["role"])
			}
			respondText(w, `[{"day":1}]`)
		}
	})
	c := New("test-key", srv.URL, "test-model")

	sess := c.NewToolSession("system", []Message{{Role: "user", Content: "plan"}}, []ToolDef{
		{Name: "search_spots", Description: "查询景点", Parameters: map[string]any{"type": "object"}},
	})

	turn, err := sess.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(turn.ToolCalls) != 1 || turn.ToolCalls[0].Name != "search_spots" {
		t.Fatalf("tool calls = %+v", turn.ToolCalls)
	}

	sess.AddToolResult(turn.ToolCalls[0].ID, `[{"id":"s1","name":"环球影城"}]`)
	turn, err = sess.Next(context.Background())
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if turn.Text != `[{"day":1}]` {
		t.Errorf("text = %q", turn.Text)
	}
}

func TestToolSession_UnsupportedTools(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, body map[string]any) {
		respondError(w, http.StatusBadRequest, "tools is not supported by this model")
	})
	c := New("test-key", srv.URL, "test-model")

	sess := c.NewToolSession("system", []Message{{Role: "user", Content: "plan"}}, nil)
	if _, err := sess.Next(context.Background()); !errors.Is(err, ErrToolsUnsupported) {
		t.Fatalf("err = %v, want ErrToolsUnsupported", err)
	}
	if c.SupportsTools() {
		t.Error("SupportsTools still true after rejection")
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", "[1,2]"},
		{"前言\n```json\n{}\n```\n后记", "{}"},
		{`{"a":1}`, `{"a":1}`},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := StripFence(tt.in); got != tt.want {
			t.Errorf("StripFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
