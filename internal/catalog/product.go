package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Product is a single catalog record. Prices are in tenge: CreditPrice is
// the installment price customers actually pay, BonusPrice the discounted
// cash price.
type Product struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	CreditPrice float64 `json:"credit"`
	BonusPrice  float64 `json:"bonus"`
	Stock       int     `json:"stock"`
	Warranty    string  `json:"warranty,omitempty"`
}

// InStock reports whether the product can currently be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// rawProduct mirrors the upstream JSON, which is loosely typed: numeric
// fields arrive as numbers or strings depending on the exporter revision.
type rawProduct struct {
	SKU      any `json:"sku"`
	Name     any `json:"name"`
	Category any `json:"category"`
	Brand    any `json:"brand"`
	Credit   any `json:"credit"`
	Bonus    any `json:"bonus"`
	Stock    any `json:"stock"`
	Warranty any `json:"warranty"`
}

// UnmarshalJSON coerces loosely-typed upstream fields into the typed Product.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.SKU = coerceString(raw.SKU)
	p.Name = coerceString(raw.Name)
	p.Category = coerceString(raw.Category)
	p.Brand = coerceString(raw.Brand)
	p.CreditPrice = coerceFloat(raw.Credit)
	p.BonusPrice = coerceFloat(raw.Bonus)
	p.Stock = int(coerceFloat(raw.Stock))
	p.Warranty = coerceString(raw.Warranty)
	return nil
}

// Valid reports whether the record carries the identity fields the rest of
// the system depends on. Records without a SKU or name are dropped.
func (p Product) Valid() bool {
	return p.SKU != "" && p.Name != ""
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, " ", "")), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// FilterInStock returns only products with positive stock.
func FilterInStock(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.InStock() {
			out = append(out, p)
		}
	}
	return out
}

// FilterByPrice returns only products at or under maxPrice (credit price).
func FilterByPrice(products []Product, maxPrice float64) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.CreditPrice <= maxPrice {
			out = append(out, p)
		}
	}
	return out
}
