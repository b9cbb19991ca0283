package selector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/llm"
)

const systemPrompt = `You are an electronics shopping expert. Analyze the products and pick the 3-5 best matches for the customer's request.

Consider:
- Fit within the stated budget (use the "credit" price field)
- Fit with the customer's requirements
- Availability (stock > 0)
- Price/quality ratio and brand reputation (Intel, AMD, Samsung, ...)

If a budget is stated, do not include products whose credit price exceeds it.

Return ONLY a JSON array of the selected SKUs in priority order, nothing else:
["sku1", "sku2", "sku3"]`

// compactProduct is the trimmed product view sent to the model.
type compactProduct struct {
	SKU    string  `json:"sku"`
	Name   string  `json:"name"`
	Credit float64 `json:"credit"`
	Brand  string  `json:"brand,omitempty"`
	Stock  int     `json:"stock"`
}

func buildPrompt(products []catalog.Product, userQuery string, reqs Requirements) []llm.Message {
	limit := len(products)
	if limit > maxToAnalyze {
		limit = maxToAnalyze
	}

	compact := make([]compactProduct, limit)
	for i, p := range products[:limit] {
		compact[i] = compactProduct{
			SKU:    p.SKU,
			Name:   p.Name,
			Credit: p.CreditPrice,
			Brand:  p.Brand,
			Stock:  p.Stock,
		}
	}

	productsJSON, _ := json.MarshalIndent(compact, "", "  ")
	reqsJSON, _ := json.Marshal(reqs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Запрос: %s\n", userQuery)
	fmt.Fprintf(&sb, "Требования: %s\n\n", string(reqsJSON))
	fmt.Fprintf(&sb, "Товары:\n%s", string(productsJSON))

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}
}
