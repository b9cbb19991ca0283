package build

import (
	"context"
	"log/slog"

	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/intent"
	"github.com/overtech/overbot/internal/selector"
)

const fallbackSearchLimit = 50

// Catalog is the catalog surface the assembler depends on.
type Catalog interface {
	Search(ctx context.Context, q catalog.Query) []catalog.Product
	GetBySKU(ctx context.Context, sku string) (catalog.Product, bool)
	CandidatesInWindow(ctx context.Context, category string, window catalog.PriceWindow, widenFactor float64, limit int) []catalog.Product
}

// Ranker ranks a flat product list against free-text requirements.
type Ranker interface {
	SelectBest(ctx context.Context, products []catalog.Product, userQuery string, reqs selector.Requirements) []catalog.Product
}

// ComponentPicker picks one SKU per category from per-category pools.
type ComponentPicker interface {
	Pick(ctx context.Context, pools map[string][]catalog.Product, req Request) (map[string]string, error)
}

// Request describes one build attempt.
type Request struct {
	UserMessage        string
	Requirements       string
	Tier               intent.Tier
	Budget             float64 // tenge; 0 means not stated
	IncludePeripherals bool
}

// Status is the terminal outcome of a build attempt.
type Status int

const (
	// StatusComplete: one validated in-catalog product per required category.
	StatusComplete Status = iota
	// StatusMissingCategory: at least one category had no candidates even
	// after full price relaxation; Fallback carries a ranked recommendation
	// from the first missing category.
	StatusMissingCategory
	// StatusInfeasible: candidates existed but no compatible full set could
	// be selected and re-validated.
	StatusInfeasible
)

// Plan is a complete build: exactly one validated product per required
// category. Partial plans are never constructed.
type Plan struct {
	Categories []string
	Components map[string]catalog.Product
}

// Total is the summed credit price of all components.
func (p *Plan) Total() float64 {
	var total float64
	for _, prod := range p.Components {
		total += prod.CreditPrice
	}
	return total
}

// Products returns the plan's components in category presentation order.
func (p *Plan) Products() []catalog.Product {
	out := make([]catalog.Product, 0, len(p.Categories))
	for _, cat := range p.Categories {
		out = append(out, p.Components[cat])
	}
	return out
}

// Outcome is the result of an Assemble call. Plan is non-nil only when
// Status is StatusComplete.
type Outcome struct {
	Status            Status
	Plan              *Plan
	MissingCategories []string
	FallbackCategory  string
	Fallback          []catalog.Product
}

// Assembler orchestrates budget allocation, per-category candidate
// fetching, compatibility-aware selection and SKU re-validation.
type Assembler struct {
	cfg     Config
	catalog Catalog
	picker  ComponentPicker
	ranker  Ranker
}

// NewAssembler wires an Assembler from its collaborators.
func NewAssembler(cfg Config, cat Catalog, picker ComponentPicker, ranker Ranker) *Assembler {
	return &Assembler{cfg: cfg, catalog: cat, picker: picker, ranker: ranker}
}

// Assemble runs the full build pipeline. Every external call degrades to a
// modeled outcome; Assemble never fails with an error.
func (a *Assembler) Assemble(ctx context.Context, req Request) Outcome {
	categories := RequiredCategories(req.IncludePeripherals)

	// Stage 1: per-category candidate pools, price-relaxed.
	pools := make(map[string][]catalog.Product, len(categories))
	var missing []string
	for _, cat := range categories {
		window := a.cfg.WindowFor(cat, req.Budget, req.Tier, req.IncludePeripherals)
		candidates := a.catalog.CandidatesInWindow(ctx, cat, window, a.cfg.WidenFactor, a.cfg.PoolLimit)
		if len(candidates) == 0 {
			missing = append(missing, cat)
			continue
		}
		pools[cat] = candidates
	}

	if len(missing) > 0 {
		return a.missingCategoryFallback(ctx, req, missing)
	}

	// Stage 2: compatibility-aware selection. Picker failures route to the
	// infeasible outcome, they never propagate.
	picked, err := a.picker.Pick(ctx, pools, req)
	if err != nil {
		slog.Warn("component selection failed, build infeasible", "error", err)
		return Outcome{Status: StatusInfeasible}
	}

	// Stage 3: re-validate every SKU against the catalog. The picker's view
	// may be stale or hallucinated; one unresolvable SKU aborts the plan.
	components := make(map[string]catalog.Product, len(categories))
	for _, cat := range categories {
		prod, ok := a.catalog.GetBySKU(ctx, picked[cat])
		if !ok {
			slog.Warn("selected SKU failed re-validation, aborting build", "category", cat, "sku", picked[cat])
			return Outcome{Status: StatusInfeasible}
		}
		components[cat] = prod
	}

	plan := &Plan{Categories: categories, Components: components}

	// Stage 4: enforce the budget ceiling independently of the prompt
	// contract.
	if req.Budget > 0 && plan.Total() > req.Budget*(1+a.cfg.BudgetTolerance) {
		slog.Warn("selected build exceeds budget ceiling, build infeasible",
			"total", plan.Total(), "budget", req.Budget)
		return Outcome{Status: StatusInfeasible}
	}

	slog.Info("build assembled", "categories", len(categories), "total", plan.Total())
	return Outcome{Status: StatusComplete, Plan: plan}
}

// missingCategoryFallback produces the degraded outcome for an
// unassemblable build: a ranked best-effort recommendation from the first
// missing category, searched without price or stock constraints so the
// customer can see the product exists even when it is out of stock.
func (a *Assembler) missingCategoryFallback(ctx context.Context, req Request, missing []string) Outcome {
	fallbackCat := missing[0]
	slog.Warn("missing essential build categories", "missing", missing, "fallback_category", fallbackCat)

	found := a.catalog.Search(ctx, catalog.Query{
		Text:     req.Requirements,
		Category: fallbackCat,
		Limit:    fallbackSearchLimit,
	})

	var ranked []catalog.Product
	if len(found) > 0 {
		ranked = a.ranker.SelectBest(ctx, found, req.UserMessage, selector.Requirements{
			Requirements: req.Requirements,
		})
	}

	return Outcome{
		Status:            StatusMissingCategory,
		MissingCategories: missing,
		FallbackCategory:  fallbackCat,
		Fallback:          ranked,
	}
}
