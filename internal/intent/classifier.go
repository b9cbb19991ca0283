package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/overtech/overbot/internal/llm"
)

const classifyTimeout = 10 * time.Second

// Chatter is the interface for chat completion calls.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Classifier turns a conversation history into a structured Analysis using
// a language model.
type Classifier struct {
	client Chatter
}

// NewClassifier creates a Classifier backed by the given chat client.
func NewClassifier(client Chatter) *Classifier {
	return &Classifier{client: client}
}

// rawAnalysis mirrors the model's JSON output before validation. Budget is
// kept loose: models return it as a number, a numeric string, or omit it.
type rawAnalysis struct {
	Intent             string `json:"intent"`
	Category           string `json:"category"`
	SearchQuery        string `json:"search_query"`
	Budget             any    `json:"budget"`
	Requirements       string `json:"requirements"`
	BuildTier          string `json:"build_tier"`
	IncludePeripherals bool   `json:"include_peripherals"`
	IsDetailedQuery    bool   `json:"is_detailed_query"`
}

// Classify analyses the rolling conversation history (oldest first, new
// message last) and returns a validated Analysis. On any failure — timeout,
// model error, malformed JSON, unknown intent label — it degrades to
// {Kind: general}: classification is never fatal.
func (c *Classifier) Classify(ctx context.Context, history []llm.Message) Analysis {
	if len(history) == 0 {
		return Analysis{Kind: KindGeneral}
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := c.client.Chat(ctx, buildPrompt(history), llm.Options{
		Temperature: 0.3,
		MaxTokens:   300,
		JSONOnly:    true,
	})
	if err != nil {
		slog.Warn("intent classification failed", "error", err)
		return Analysis{Kind: KindGeneral}
	}

	obj, err := llm.ExtractObject(raw)
	if err != nil {
		slog.Warn("no JSON object in classifier response", "response", raw)
		return Analysis{Kind: KindGeneral}
	}

	var r rawAnalysis
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		slog.Warn("failed to unmarshal classifier response", "error", err, "response", raw)
		return Analysis{Kind: KindGeneral}
	}

	return validate(r)
}

// validate coerces the loose model output into a closed Analysis. Unknown
// labels never pass through into business logic.
func validate(r rawAnalysis) Analysis {
	a := Analysis{
		Kind:               Kind(strings.ToLower(strings.TrimSpace(r.Intent))),
		Category:           strings.ToLower(strings.TrimSpace(r.Category)),
		SearchQuery:        strings.TrimSpace(r.SearchQuery),
		Budget:             coerceBudget(r.Budget),
		Requirements:       strings.TrimSpace(r.Requirements),
		BuildTier:          Tier(strings.ToLower(strings.TrimSpace(r.BuildTier))),
		IncludePeripherals: r.IncludePeripherals,
		IsDetailedQuery:    r.IsDetailedQuery,
	}

	if !validKind(a.Kind) {
		slog.Warn("classifier returned unknown intent, defaulting to general", "intent", r.Intent)
		return Analysis{Kind: KindGeneral}
	}
	if !validTier(a.BuildTier) {
		a.BuildTier = TierMid
	}

	// A build request without a stated budget is a budget question.
	if a.Kind == KindPCBuild && !a.HasBudget() {
		a.Kind = KindPCBudgetAsk
	}

	return a
}

func coerceBudget(v any) float64 {
	switch b := v.(type) {
	case float64:
		if b > 0 {
			return b
		}
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' || r == '.' {
				return r
			}
			return -1
		}, b)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}
