package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultSearchLimit = 200

// PriceWindow bounds a price filter. A zero Max means unbounded above,
// a zero window means no price filter at all.
type PriceWindow struct {
	Min float64
	Max float64
}

// IsZero reports whether the window applies no price constraint.
func (w PriceWindow) IsZero() bool {
	return w.Min == 0 && w.Max == 0
}

// Widen scales the window outward by factor (Min shrinks, Max grows).
func (w PriceWindow) Widen(factor float64) PriceWindow {
	return PriceWindow{Min: w.Min / factor, Max: w.Max * factor}
}

// Query describes one catalog search.
type Query struct {
	Text     string
	Category string
	Limit    int
	Window   PriceWindow
}

// Client queries the external product catalog over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a catalog Client. timeout bounds every individual request.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search queries the catalog. Upstream failures and malformed payloads
// degrade to an empty result; callers treat "no products" as a normal
// outcome, never a fault. Records without a SKU or name are dropped.
func (c *Client) Search(ctx context.Context, q Query) []Product {
	products, err := c.fetch(ctx, q)
	if err != nil {
		slog.Warn("catalog search failed", "query", q.Text, "category", q.Category, "error", err)
		return nil
	}
	return products
}

func (c *Client) fetch(ctx context.Context, q Query) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	params := url.Values{}
	params.Set("q", NormalizeQuery(q.Text))
	params.Set("category", q.Category)
	params.Set("limit", strconv.Itoa(limit))
	if q.Window.Min > 0 {
		params.Set("price_min", strconv.FormatFloat(q.Window.Min, 'f', 0, 64))
	}
	if q.Window.Max > 0 {
		params.Set("price_max", strconv.FormatFloat(q.Window.Max, 'f', 0, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	products := make([]Product, 0, len(raw))
	for _, r := range raw {
		var p Product
		if err := json.Unmarshal(r, &p); err != nil {
			slog.Warn("skipping malformed product record", "error", err)
			continue
		}
		if !p.Valid() {
			slog.Warn("skipping product record without sku or name")
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// GetBySKU resolves a single product by its exact SKU. Returns false when
// the SKU does not exist or the catalog is unreachable.
func (c *Client) GetBySKU(ctx context.Context, sku string) (Product, bool) {
	products := c.Search(ctx, Query{Text: sku, Limit: 5})
	for _, p := range products {
		if p.SKU == sku {
			return p, true
		}
	}
	return Product{}, false
}

// SearchWithFallback runs up to four search strategies, narrowest first,
// and returns the first non-empty result:
//  1. query + category
//  2. category only
//  3. query only
//  4. per-token search with tokens of length >= 3
//
// An exact match is preferred, but the caller must never get nothing when
// a looser match exists.
func (c *Client) SearchWithFallback(ctx context.Context, query, category string) []Product {
	query = strings.TrimSpace(query)

	if query != "" && category != "" {
		if products := c.Search(ctx, Query{Text: query, Category: category}); len(products) > 0 {
			return products
		}
		slog.Info("primary search empty, falling back to category only", "query", query, "category", category)
	}

	if category != "" {
		if products := c.Search(ctx, Query{Category: category}); len(products) > 0 {
			return products
		}
	}

	if query != "" {
		if products := c.Search(ctx, Query{Text: query}); len(products) > 0 {
			return products
		}

		for _, token := range strings.Fields(query) {
			if len([]rune(token)) < 3 {
				continue
			}
			if products := c.Search(ctx, Query{Text: token}); len(products) > 0 {
				return products
			}
		}
	}

	return nil
}

// CandidatesInWindow fetches in-stock candidates for one category with
// three-stage price relaxation: the window as given, the window widened by
// widenFactor, then no price filter at all. Only after all three stages
// come back empty is a category treated as genuinely unavailable.
func (c *Client) CandidatesInWindow(ctx context.Context, category string, window PriceWindow, widenFactor float64, limit int) []Product {
	if widenFactor <= 1 {
		widenFactor = 2
	}

	stages := []PriceWindow{window}
	if !window.IsZero() {
		stages = append(stages, window.Widen(widenFactor), PriceWindow{})
	}

	for i, w := range stages {
		products := FilterInStock(c.Search(ctx, Query{Category: category, Limit: limit, Window: w}))
		if len(products) > 0 {
			return products
		}
		if i < len(stages)-1 {
			slog.Info("no in-stock candidates, relaxing price window", "category", category, "stage", i+1)
		}
	}

	slog.Warn("no in-stock candidates for category after full relaxation", "category", category)
	return nil
}
