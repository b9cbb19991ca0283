package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeCatalog serves canned responses keyed by the incoming query params and
// records the order of strategy attempts.
type fakeCatalog struct {
	t       *testing.T
	respond func(q, category string, r *http.Request) []map[string]any
	calls   []string
}

func (f *fakeCatalog) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		category := r.URL.Query().Get("category")
		f.calls = append(f.calls, q+"|"+category)
		json.NewEncoder(w).Encode(f.respond(q, category, r))
	})
}

func product(sku, name string, credit float64, stock int) map[string]any {
	return map[string]any{"sku": sku, "name": name, "credit": credit, "stock": stock}
}

func TestSearch_CoercesLooseFields(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		return []map[string]any{
			{"sku": 47442, "name": "RTX 4070 Gaming X", "credit": "389 990", "bonus": 379990, "stock": "3"},
		}
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	products := c.Search(context.Background(), Query{Text: "rtx"})
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	p := products[0]
	if p.SKU != "47442" {
		t.Errorf("SKU = %q, want 47442", p.SKU)
	}
	if p.CreditPrice != 389990 {
		t.Errorf("CreditPrice = %v, want 389990", p.CreditPrice)
	}
	if p.Stock != 3 {
		t.Errorf("Stock = %d, want 3", p.Stock)
	}
}

func TestSearch_DropsRecordsWithoutIdentity(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		return []map[string]any{
			{"name": "no sku here", "credit": 100},
			{"sku": "1", "credit": 100},
			product("2", "valid", 100, 1),
		}
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	products := c.Search(context.Background(), Query{Text: "x"})
	if len(products) != 1 || products[0].SKU != "2" {
		t.Fatalf("got %+v, want only sku 2", products)
	}
}

func TestSearch_UpstreamDownReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	srv.Close() // connection refused

	c := New(srv.URL, time.Second)
	if products := c.Search(context.Background(), Query{Text: "x"}); len(products) != 0 {
		t.Errorf("got %d products from dead upstream, want 0", len(products))
	}
}

func TestSearchWithFallback_StopsAtFirstHit(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		// Strategy 1 (query+category) finds nothing; strategy 2
		// (category only) succeeds.
		if q == "" && category == "видеокарты" {
			return []map[string]any{product("10", "RTX 4090", 900000, 2)}
		}
		return nil
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	products := c.SearchWithFallback(context.Background(), "RTX 4090 Gaming X", "видеокарты")
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	want := []string{"RTX 4090 Gaming X|видеокарты", "|видеокарты"}
	if len(fake.calls) != len(want) {
		t.Fatalf("calls = %v, want %v (strategies 3/4 must not run)", fake.calls, want)
	}
	for i := range want {
		if fake.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, fake.calls[i], want[i])
		}
	}
}

func TestSearchWithFallback_TokenStage(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		if q == "4090" {
			return []map[string]any{product("10", "RTX 4090", 900000, 2)}
		}
		return nil
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	products := c.SearchWithFallback(context.Background(), "xx 4090", "")
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 from token search", len(products))
	}
	// "xx" is below the 3-rune token threshold and must be skipped.
	for _, call := range fake.calls {
		if call == "xx|" {
			t.Error("searched 2-rune token, want skipped")
		}
	}
}

func TestGetBySKU_ExactMatchOnly(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		return []map[string]any{product("474421", "close but wrong", 100, 1)}
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, ok := c.GetBySKU(context.Background(), "47442"); ok {
		t.Error("GetBySKU matched a different SKU")
	}
}

func TestCandidatesInWindow_Relaxation(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		// Only an unfiltered query yields stock.
		if r.URL.Query().Get("price_min") == "" && r.URL.Query().Get("price_max") == "" {
			return []map[string]any{product("1", "Corsair 750W", 45000, 4)}
		}
		return nil
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	products := c.CandidatesInWindow(context.Background(), "блоки питания", PriceWindow{Min: 20000, Max: 60000}, 2, 40)
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 after dropping price filter", len(products))
	}
	if len(fake.calls) != 3 {
		t.Errorf("made %d calls, want 3 relaxation stages", len(fake.calls))
	}
}

func TestCandidatesInWindow_AllStagesEmpty(t *testing.T) {
	fake := &fakeCatalog{t: t, respond: func(q, category string, r *http.Request) []map[string]any {
		return []map[string]any{product("1", "out of stock", 45000, 0)}
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if products := c.CandidatesInWindow(context.Background(), "видеокарты", PriceWindow{Min: 100, Max: 200}, 2, 40); len(products) != 0 {
		t.Errorf("got %d products, want 0 (stock filter applies at every stage)", len(products))
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"айфон 15 про", "iphone 15 про"},
		{"ртх 3050", "rtx 3050"},
		{"RTX 4090 Gaming X", "RTX 4090 Gaming X"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
