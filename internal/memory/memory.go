// Package memory maintains the short natural-language summary of accumulated
// trip requirements, keyed by (owner, conversation). All failures here are
// non-fatal: the pipeline never stops because memory could not be read,
// summarized, or written.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/planora/planora/internal/llm"
	"github.com/planora/planora/internal/trip"
)

// summarizeTurns is how many trailing chat turns feed the summary.
const summarizeTurns = 8

// Store is the persistence slice used by the Manager.
type Store interface {
	GetMemory(ctx context.Context, ownerKey, conversationKey string) (string, error)
	PutMemory(ctx context.Context, ownerKey, conversationKey, summary string) error
}

// Completer is the completion slice used for summarization.
type Completer interface {
	Complete(ctx context.Context, instructions string, msgs []llm.Message, schema *llm.Schema) (string, error)
}

// Manager loads, saves, and refreshes conversation memory summaries.
type Manager struct {
	store Store
	llm   Completer
}

// NewManager creates a Manager. llm may be nil; Summarize then always returns
// the existing summary unchanged.
func NewManager(store Store, completer Completer) *Manager {
	return &Manager{store: store, llm: completer}
}

// OwnerKey derives the memory owner key: the username when authenticated,
// otherwise an anonymous key derived from the conversation. Empty when
// neither exists (no memory is kept for such callers).
func OwnerKey(username, conversationID string) string {
	if username != "" {
		return username
	}
	if conversationID != "" {
		return "anon:" + conversationID
	}
	return ""
}

func conversationKey(conversationID string) string {
	if conversationID == "" {
		conversationID = "default"
	}
	return "ai_memory:" + conversationID
}

// Load returns the stored summary for the caller's conversation, or "" when
// absent or on any error.
func (m *Manager) Load(ctx context.Context, username, conversationID string) string {
	owner := OwnerKey(username, conversationID)
	if owner == "" {
		return ""
	}
	summary, err := m.store.GetMemory(ctx, owner, conversationKey(conversationID))
	if err != nil {
		return ""
	}
	return summary
}

// Save upserts the summary for the caller's conversation. Failures are
// logged and swallowed.
func (m *Manager) Save(ctx context.Context, username, conversationID, summary string) {
	owner := OwnerKey(username, conversationID)
	if owner == "" || summary == "" {
		return
	}
	if err := m.store.PutMemory(ctx, owner, conversationKey(conversationID), summary); err != nil {
		slog.Warn("saving memory summary failed", "owner", owner, "error", err)
	}
}

// Summarize compresses the existing summary plus the trailing chat history
// into a fresh requirements summary of at most ~80 characters. On any
// failure the existing summary is returned unchanged.
func (m *Manager) Summarize(ctx context.Context, existing string, history []trip.Message) string {
	if m.llm == nil {
		return existing
	}

	tail := history
	if len(tail) > summarizeTurns {
		tail = tail[len(tail)-summarizeTurns:]
	}
	tailJSON, err := json.Marshal(tail)
	if err != nil {
		return existing
	}
	known := existing
	if known == "" {
		known = "无"
	}

	prompt := fmt.Sprintf(`你是旅行顾问，请将对话信息压缩成不超过80字的"已知旅行需求摘要"。
包含目的地、天数、出行人群/人数、偏好与限制（若有）。
已知摘要：%s
最近对话：%s
仅输出JSON：{"summary":"..."}。`, known, tailJSON)

	schema := &llm.Schema{
		Name: "memory_summary",
		Properties: map[string]llm.SchemaProperty{
			"summary": {Type: "string", Description: "不超过80字的旅行需求摘要"},
		},
		Required: []string{"summary"},
	}

	raw, err := m.llm.Complete(ctx, prompt, []llm.Message{{Role: "user", Content: "请输出JSON"}}, schema)
	if err != nil {
		slog.Warn("memory summarization failed", "error", err)
		return existing
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(llm.StripFence(raw)), &out); err != nil || out.Summary == "" {
		return existing
	}
	return out.Summary
}
