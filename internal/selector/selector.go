package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/llm"
)

const (
	selectTimeout = 15 * time.Second
	maxToAnalyze  = 20
	maxSelected   = 5
)

// Chatter is the interface for chat completion calls.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Requirements carries the constraints the ranking should honor.
type Requirements struct {
	Budget       float64 `json:"budget,omitempty"`
	Requirements string  `json:"requirements,omitempty"`
}

// Selector ranks catalog results against a customer query using a language
// model, with a deterministic fallback when ranking fails.
type Selector struct {
	client Chatter
}

// New creates a Selector backed by the given chat client.
func New(client Chatter) *Selector {
	return &Selector{client: client}
}

// SelectBest returns the most relevant products for the query, best first,
// at most 5. The model is constrained to emit only SKUs present in the
// input; any SKU it invents is discarded with a warning. If the model
// returns nothing usable, the first 5 input products are returned instead —
// a non-empty input never selects down to an empty result.
func (s *Selector) SelectBest(ctx context.Context, products []catalog.Product, userQuery string, reqs Requirements) []catalog.Product {
	if len(products) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()

	raw, err := s.client.Chat(ctx, buildPrompt(products, userQuery, reqs), llm.Options{
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		slog.Warn("product selection failed, falling back to first results", "error", err)
		return firstN(products, maxSelected)
	}

	skus := parseSKUs(raw)
	if len(skus) == 0 {
		slog.Warn("selector returned no usable SKUs, falling back to first results", "response", truncate(raw, 100))
		return firstN(products, maxSelected)
	}

	bySKU := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		bySKU[p.SKU] = p
	}

	selected := make([]catalog.Product, 0, len(skus))
	for _, sku := range skus {
		p, ok := bySKU[sku]
		if !ok {
			slog.Warn("selector emitted SKU absent from input, discarding", "sku", sku)
			continue
		}
		selected = append(selected, p)
	}

	if len(selected) == 0 {
		return firstN(products, maxSelected)
	}
	return firstN(selected, maxSelected)
}

// parseSKUs extracts the ranked SKU array from the model response. Accepts
// both string and numeric elements; anything else yields an empty slice.
func parseSKUs(resp string) []string {
	arr, err := llm.ExtractArray(resp)
	if err != nil {
		return nil
	}

	var elems []any
	if err := json.Unmarshal([]byte(arr), &elems); err != nil {
		return nil
	}

	skus := make([]string, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			if v != "" {
				skus = append(skus, v)
			}
		case float64:
			skus = append(skus, fmt.Sprintf("%.0f", v))
		}
	}
	return skus
}

func firstN(products []catalog.Product, n int) []catalog.Product {
	if len(products) <= n {
		return products
	}
	return products[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
