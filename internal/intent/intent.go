package intent

import "regexp"

// Kind is the classified purpose of a customer message.
type Kind string

const (
	KindProductSearch Kind = "product_search"
	KindFAQ           Kind = "faq"
	KindGeneral       Kind = "general"
	KindPCBuild       Kind = "pc_build"
	KindPCBudgetAsk   Kind = "pc_budget_ask"
)

// Tier is a coarse budget bracket guiding default price bands when no
// explicit budget is given.
type Tier string

const (
	TierBudget Tier = "budget"
	TierMid    Tier = "mid"
	TierHigh   Tier = "high"
)

// Analysis is the structured classification of one customer message in its
// conversation context. It is ephemeral: computed per message, never stored.
type Analysis struct {
	Kind               Kind
	Category           string
	SearchQuery        string
	Budget             float64 // tenge; 0 means not stated
	Requirements       string
	BuildTier          Tier
	IncludePeripherals bool
	IsDetailedQuery    bool
}

// HasBudget reports whether the customer stated a numeric budget.
func (a Analysis) HasBudget() bool {
	return a.Budget > 0
}

func validKind(k Kind) bool {
	switch k {
	case KindProductSearch, KindFAQ, KindGeneral, KindPCBuild, KindPCBudgetAsk:
		return true
	}
	return false
}

func validTier(t Tier) bool {
	switch t {
	case TierBudget, TierMid, TierHigh:
		return true
	}
	return false
}

// skuPattern matches an inline SKU reference: the literal token "sku"
// followed by an optional separator and a run of digits, case-insensitive.
var skuPattern = regexp.MustCompile(`(?i)sku[:\s]*(\d+)`)

// DetectSKU extracts a direct SKU reference from raw message text. A hit
// bypasses model-based classification entirely.
func DetectSKU(message string) (string, bool) {
	m := skuPattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ForcedSearch builds the deterministic analysis used when a message embeds
// an explicit SKU: an exact product search for that SKU, no classifier call.
func ForcedSearch(sku string) Analysis {
	return Analysis{
		Kind:         KindProductSearch,
		SearchQuery:  sku,
		Requirements: "прямой заказ по SKU",
	}
}
