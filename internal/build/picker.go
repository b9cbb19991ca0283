package build

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/llm"
)

const (
	pickTimeout      = 30 * time.Second
	pickPoolPerCat   = 20
	psuSafetyMarginW = 150
	highBudgetMark   = 500000
)

// Chatter is the interface for chat completion calls.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Picker delegates compatibility-aware component selection to a language
// model, constrained by prompt contract to budget ceiling, socket match,
// PSU headroom, CPU/GPU balance and stock.
type Picker struct {
	client Chatter
}

// NewPicker creates a Picker backed by the given chat client.
func NewPicker(client Chatter) *Picker {
	return &Picker{client: client}
}

// pickProduct is the compact per-candidate view sent to the model, enriched
// with compatibility hints parsed from the product name.
type pickProduct struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Credit   float64 `json:"credit"`
	Brand    string  `json:"brand,omitempty"`
	Stock    int     `json:"stock"`
	Socket   string  `json:"socket,omitempty"`
	PowerReq int     `json:"power_req,omitempty"`
	Wattage  int     `json:"wattage,omitempty"`
}

// Pick selects exactly one SKU per required category from the candidate
// pools. Returns an error when the model output is unusable or does not
// cover every category; the caller treats that as an infeasible build, not
// a fault.
func (p *Picker) Pick(ctx context.Context, pools map[string][]catalog.Product, req Request) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, pickTimeout)
	defer cancel()

	categories := RequiredCategories(req.IncludePeripherals)

	raw, err := p.client.Chat(ctx, p.buildPrompt(pools, req, categories), llm.Options{
		Temperature: 0.3,
		MaxTokens:   500,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("component selection chat: %w", err)
	}

	obj, err := llm.ExtractObject(raw)
	if err != nil {
		return nil, fmt.Errorf("component selection response: %w", err)
	}

	var picked map[string]string
	if err := json.Unmarshal([]byte(obj), &picked); err != nil {
		return nil, fmt.Errorf("unmarshaling component selection: %w", err)
	}

	result := make(map[string]string, len(categories))
	for _, cat := range categories {
		sku, ok := picked[cat]
		if !ok || sku == "" {
			return nil, fmt.Errorf("selection missing category %q", cat)
		}
		result[cat] = strings.TrimSpace(sku)
	}
	return result, nil
}

func (p *Picker) buildPrompt(pools map[string][]catalog.Product, req Request, categories []string) []llm.Message {
	// High-end selections start from the expensive end of each pool.
	sortDesc := req.Tier == "high" || req.Budget > highBudgetMark

	compact := make(map[string][]pickProduct, len(pools))
	for category, products := range pools {
		if len(products) == 0 {
			continue
		}

		sorted := make([]catalog.Product, len(products))
		copy(sorted, products)
		sort.Slice(sorted, func(i, j int) bool {
			if sortDesc {
				return sorted[i].CreditPrice > sorted[j].CreditPrice
			}
			return sorted[i].CreditPrice < sorted[j].CreditPrice
		})
		if len(sorted) > pickPoolPerCat {
			sorted = sorted[:pickPoolPerCat]
		}

		entries := make([]pickProduct, len(sorted))
		for i, prod := range sorted {
			e := pickProduct{
				SKU:    prod.SKU,
				Name:   prod.Name,
				Credit: prod.CreditPrice,
				Brand:  prod.Brand,
				Stock:  prod.Stock,
			}
			switch category {
			case CategoryCPU, CategoryMotherboard:
				e.Socket = socketFromName(prod.Name)
			case CategoryGPU:
				e.PowerReq = gpuPowerFromName(prod.Name)
			case CategoryPSU:
				e.Wattage = psuWattageFromName(prod.Name)
			}
			entries[i] = e
		}
		compact[category] = entries
	}

	poolsJSON, _ := json.MarshalIndent(compact, "", "  ")

	budgetInfo := "No budget stated. Pick the best price/quality balance."
	if req.Budget > 0 {
		budgetInfo = fmt.Sprintf("Maximum budget: %.0f tenge. CRITICAL: the total cost must NOT exceed it.", req.Budget)
	}

	var catList strings.Builder
	for i, cat := range categories {
		if i > 0 {
			catList.WriteString(", ")
		}
		fmt.Fprintf(&catList, "%q", cat)
	}

	system := fmt.Sprintf(`You are a PC building expert. Assemble the optimal build from the provided components.

%s
Segment: %s
Requirements: %s

SELECTION CRITERIA:

1. BUDGET (critical): total cost = sum of all components. If a budget is stated, do not exceed it; use most of it (within 5%%).
2. COMPATIBILITY (mandatory): CPU and motherboard sockets must match (AM4, AM5, LGA1700, LGA1200). PSU wattage >= GPU power_req + %dW headroom.
3. BALANCE: CPU and GPU should be comparable in price (1:1.2-1.5); never pair an expensive GPU with a cheap CPU. Motherboard around 15-20%% of CPU+GPU.
4. PRIORITIES: gaming builds favor the GPU; work builds balance CPU/GPU. SSD at least 512GB, reputable brands. PSU with 20-30%% headroom.
5. QUALITY: prefer known brands; stock > 0 is mandatory.

RESPONSE FORMAT: return ONLY a JSON object mapping every one of these categories to a chosen SKU, no explanations: %s.

IMPORTANT: use ONLY SKUs from the provided list.`, budgetInfo, req.Tier, req.Requirements, psuSafetyMarginW, catList.String())

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Товары:\n\n%s\n\nСобери оптимальный ПК.", string(poolsJSON))},
	}
}
