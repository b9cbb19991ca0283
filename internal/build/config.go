package build

import (
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/intent"
)

// Catalog-canonical names of the hardware categories a build draws from.
const (
	CategoryCPU         = "процессоры"
	CategoryGPU         = "видеокарты"
	CategoryMotherboard = "материнские платы"
	CategoryCase        = "корпуса"
	CategoryPSU         = "блоки питания"
	CategorySSD         = "твердотельные диски (ssd)"
	CategoryMonitor     = "мониторы"
	CategoryMouse       = "мыши"
	CategoryKeyboard    = "клавиатуры"
)

var baseCategories = []string{
	CategoryCPU, CategoryGPU, CategoryMotherboard,
	CategoryCase, CategoryPSU, CategorySSD,
}

var peripheralCategories = []string{
	CategoryMonitor, CategoryMouse, CategoryKeyboard,
}

// RequiredCategories returns the categories a plan must cover, in
// presentation order.
func RequiredCategories(includePeripherals bool) []string {
	if !includePeripherals {
		return baseCategories
	}
	out := make([]string, 0, len(baseCategories)+len(peripheralCategories))
	out = append(out, baseCategories...)
	out = append(out, peripheralCategories...)
	return out
}

// baseShares splits a stated budget across the six base categories.
var baseShares = map[string]float64{
	CategoryCPU:         0.25,
	CategoryGPU:         0.35,
	CategoryMotherboard: 0.15,
	CategoryCase:        0.07,
	CategoryPSU:         0.08,
	CategorySSD:         0.10,
}

// peripheralShares re-weights the split when monitor, mouse and keyboard
// must fit into the same budget.
var peripheralShares = map[string]float64{
	CategoryCPU:         0.20,
	CategoryGPU:         0.28,
	CategoryMotherboard: 0.12,
	CategoryCase:        0.05,
	CategoryPSU:         0.07,
	CategorySSD:         0.08,
	CategoryMonitor:     0.12,
	CategoryMouse:       0.03,
	CategoryKeyboard:    0.05,
}

// tierBands are the fixed per-category price bands (tenge) used when the
// customer has not stated a budget.
var tierBands = map[intent.Tier]map[string]catalog.PriceWindow{
	intent.TierBudget: {
		CategoryCPU:         {Min: 25000, Max: 90000},
		CategoryGPU:         {Min: 60000, Max: 160000},
		CategoryMotherboard: {Min: 20000, Max: 60000},
		CategoryCase:        {Min: 10000, Max: 35000},
		CategoryPSU:         {Min: 12000, Max: 35000},
		CategorySSD:         {Min: 12000, Max: 40000},
		CategoryMonitor:     {Min: 40000, Max: 100000},
		CategoryMouse:       {Min: 3000, Max: 15000},
		CategoryKeyboard:    {Min: 5000, Max: 20000},
	},
	intent.TierMid: {
		CategoryCPU:         {Min: 80000, Max: 220000},
		CategoryGPU:         {Min: 150000, Max: 420000},
		CategoryMotherboard: {Min: 50000, Max: 130000},
		CategoryCase:        {Min: 25000, Max: 70000},
		CategoryPSU:         {Min: 30000, Max: 70000},
		CategorySSD:         {Min: 35000, Max: 90000},
		CategoryMonitor:     {Min: 90000, Max: 220000},
		CategoryMouse:       {Min: 10000, Max: 35000},
		CategoryKeyboard:    {Min: 15000, Max: 50000},
	},
	intent.TierHigh: {
		CategoryCPU:         {Min: 200000, Max: 700000},
		CategoryGPU:         {Min: 400000, Max: 1600000},
		CategoryMotherboard: {Min: 120000, Max: 400000},
		CategoryCase:        {Min: 60000, Max: 200000},
		CategoryPSU:         {Min: 60000, Max: 180000},
		CategorySSD:         {Min: 80000, Max: 250000},
		CategoryMonitor:     {Min: 200000, Max: 700000},
		CategoryMouse:       {Min: 30000, Max: 90000},
		CategoryKeyboard:    {Min: 40000, Max: 150000},
	},
}

// Config holds the tunable constants of the assembler. The factors were
// chosen empirically; treat them as configuration, not precision.
type Config struct {
	// BudgetTolerance is the allowed overshoot of a stated budget (0.10 = 10%).
	BudgetTolerance float64
	// WindowLowFactor / WindowHighFactor stretch a category's nominal budget
	// share into a candidate price window, wide enough not to starve it.
	WindowLowFactor  float64
	WindowHighFactor float64
	// WidenFactor controls one step of price-window relaxation.
	WidenFactor float64
	// PoolLimit caps the candidate pool fetched per category.
	PoolLimit int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		BudgetTolerance:  0.10,
		WindowLowFactor:  0.4,
		WindowHighFactor: 2.0,
		WidenFactor:      2.0,
		PoolLimit:        40,
	}
}

// WindowFor derives the expected price window for one category: budget
// share × stretch factors when a budget is stated, the tier band otherwise.
func (c Config) WindowFor(category string, budget float64, tier intent.Tier, includePeripherals bool) catalog.PriceWindow {
	if budget > 0 {
		shares := baseShares
		if includePeripherals {
			shares = peripheralShares
		}
		share, ok := shares[category]
		if !ok {
			return catalog.PriceWindow{}
		}
		nominal := budget * share
		return catalog.PriceWindow{
			Min: nominal * c.WindowLowFactor,
			Max: nominal * c.WindowHighFactor,
		}
	}

	bands, ok := tierBands[tier]
	if !ok {
		bands = tierBands[intent.TierMid]
	}
	return bands[category]
}
