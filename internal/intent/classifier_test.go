package intent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/overtech/overbot/internal/llm"
)

// mockChatter implements Chatter for testing.
type mockChatter struct {
	response string
	err      error
	delay    time.Duration
}

func (m *mockChatter) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func history(texts ...string) []llm.Message {
	var msgs []llm.Message
	for i, t := range texts {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t})
	}
	return msgs
}

func TestClassify_ProductSearch(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"product_search","category":"процессоры","search_query":"AMD Ryzen","budget":50000,"requirements":"для игр"}`,
	}
	c := NewClassifier(mock)
	got := c.Classify(context.Background(), history("ищу райзен до 50000 для игр"))

	if got.Kind != KindProductSearch {
		t.Errorf("Kind = %q, want product_search", got.Kind)
	}
	if got.Category != "процессоры" {
		t.Errorf("Category = %q", got.Category)
	}
	if got.Budget != 50000 {
		t.Errorf("Budget = %v, want 50000", got.Budget)
	}
}

func TestClassify_BudgetAsString(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"pc_build","budget":"до 500 000","requirements":"для игр"}`,
	}
	c := NewClassifier(mock)
	got := c.Classify(context.Background(), history("собери пк"))

	if got.Budget != 500000 {
		t.Errorf("Budget = %v, want 500000", got.Budget)
	}
	if got.Kind != KindPCBuild {
		t.Errorf("Kind = %q, want pc_build", got.Kind)
	}
}

func TestClassify_BuildWithoutBudgetBecomesBudgetAsk(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"pc_build","requirements":"для работы","build_tier":"high"}`,
	}
	c := NewClassifier(mock)
	got := c.Classify(context.Background(), history("собери пк для работы"))

	if got.Kind != KindPCBudgetAsk {
		t.Errorf("Kind = %q, want pc_budget_ask when budget is missing", got.Kind)
	}
	if got.BuildTier != TierHigh {
		t.Errorf("BuildTier = %q, want high", got.BuildTier)
	}
}

func TestClassify_UnknownIntentDefaultsToGeneral(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"world_domination"}`,
	}
	c := NewClassifier(mock)
	if got := c.Classify(context.Background(), history("hi")); got.Kind != KindGeneral {
		t.Errorf("Kind = %q, want general for unknown label", got.Kind)
	}
}

func TestClassify_MalformedJSON(t *testing.T) {
	mock := &mockChatter{response: `not valid json {{{`}
	c := NewClassifier(mock)
	if got := c.Classify(context.Background(), history("hi")); got.Kind != KindGeneral {
		t.Errorf("Kind = %q, want general on malformed output", got.Kind)
	}
}

func TestClassify_ModelDown(t *testing.T) {
	mock := &mockChatter{err: fmt.Errorf("connection refused")}
	c := NewClassifier(mock)
	if got := c.Classify(context.Background(), history("hi")); got.Kind != KindGeneral {
		t.Errorf("Kind = %q, want general on model error", got.Kind)
	}
}

func TestClassify_FencedResponse(t *testing.T) {
	mock := &mockChatter{
		response: "```json\n{\"intent\":\"faq\"}\n```",
	}
	c := NewClassifier(mock)
	if got := c.Classify(context.Background(), history("как оплатить?")); got.Kind != KindFAQ {
		t.Errorf("Kind = %q, want faq from fenced response", got.Kind)
	}
}

func TestClassify_InvalidTierDefaultsToMid(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"pc_budget_ask","build_tier":"ultra"}`,
	}
	c := NewClassifier(mock)
	if got := c.Classify(context.Background(), history("пк")); got.BuildTier != TierMid {
		t.Errorf("BuildTier = %q, want mid", got.BuildTier)
	}
}

func TestDetectSKU(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Хочу заказать SKU: 47442", "47442", true},
		{"sku 47442 и ещё видеокарту", "47442", true},
		{"SKU47442", "47442", true},
		{"ищу видеокарту", "", false},
		{"sku без номера", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectSKU(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("DetectSKU(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestForcedSearch(t *testing.T) {
	a := ForcedSearch("47442")
	if a.Kind != KindProductSearch {
		t.Errorf("Kind = %q, want product_search", a.Kind)
	}
	if a.SearchQuery != "47442" {
		t.Errorf("SearchQuery = %q, want exactly the SKU", a.SearchQuery)
	}
}
