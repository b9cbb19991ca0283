package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/overtech/overbot/internal/build"
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/intent"
	"github.com/overtech/overbot/internal/llm"
	"github.com/overtech/overbot/internal/respond"
	"github.com/overtech/overbot/internal/selector"
	"github.com/overtech/overbot/internal/storage"
)

type mockClassifier struct {
	analysis intent.Analysis
	called   bool
	gotChat  []llm.Message
}

func (m *mockClassifier) Classify(_ context.Context, history []llm.Message) intent.Analysis {
	m.called = true
	m.gotChat = history
	return m.analysis
}

type mockCatalog struct {
	products []catalog.Product
	gotQuery string
}

func (m *mockCatalog) SearchWithFallback(_ context.Context, query, _ string) []catalog.Product {
	m.gotQuery = query
	return m.products
}

type mockRanker struct {
	called bool
}

func (m *mockRanker) SelectBest(_ context.Context, products []catalog.Product, _ string, _ selector.Requirements) []catalog.Product {
	m.called = true
	if len(products) > 5 {
		products = products[:5]
	}
	return products
}

type mockBuilder struct {
	outcome build.Outcome
	gotReq  build.Request
}

func (m *mockBuilder) Assemble(_ context.Context, req build.Request) build.Outcome {
	m.gotReq = req
	return m.outcome
}

type mockResponder struct{}

func (mockResponder) ProductResponse(_ context.Context, _ []llm.Message, products []catalog.Product) string {
	return "products reply"
}
func (mockResponder) BuildResponse(_ context.Context, _ []llm.Message, _ *build.Plan) string {
	return "build reply"
}
func (mockResponder) FAQResponse(_ context.Context, _ []llm.Message, _ string) string {
	return "faq reply"
}
func (mockResponder) GeneralResponse(_ context.Context, _ []llm.Message) string {
	return "general reply"
}
func (mockResponder) BudgetRequest(_ context.Context, _ []llm.Message, _ string, _ intent.Tier) string {
	return "budget reply"
}

type mockFAQ struct {
	direct string
}

func (m mockFAQ) FindRelevant(string) (string, bool) { return m.direct, m.direct != "" }
func (m mockFAQ) AllContext() string                 { return "faq context" }

type fixture struct {
	orch       *Orchestrator
	store      *storage.Store
	classifier *mockClassifier
	catalog    *mockCatalog
	ranker     *mockRanker
	builder    *mockBuilder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:      store,
		classifier: &mockClassifier{analysis: intent.Analysis{Kind: intent.KindGeneral}},
		catalog:    &mockCatalog{},
		ranker:     &mockRanker{},
		builder:    &mockBuilder{},
	}
	f.orch = New(Deps{
		Store:         store,
		Classifier:    f.classifier,
		Catalog:       f.catalog,
		Ranker:        f.ranker,
		Builder:       f.builder,
		Responder:     mockResponder{},
		FAQ:           mockFAQ{},
		HistoryWindow: 10,
	})
	return f
}

func inStock(sku, name string, price float64) catalog.Product {
	return catalog.Product{SKU: sku, Name: name, CreditPrice: price, Stock: 3}
}

func TestEmptyMessageFailsFastWithoutSideEffects(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.HandleMessage(context.Background(), Incoming{Body: "   "})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("got %v, want ErrEmptyMessage", err)
	}
	if f.classifier.called {
		t.Error("classifier must not run for an empty message")
	}
}

func TestSessionCreationIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1, err := f.orch.HandleMessage(ctx, Incoming{SessionID: "sess-1", Body: "привет"})
	if err != nil {
		t.Fatalf("first message: %v", err)
	}
	r2, err := f.orch.HandleMessage(ctx, Incoming{SessionID: "sess-1", Body: "еще раз"})
	if err != nil {
		t.Fatalf("second message: %v", err)
	}
	if r1.SessionID != "sess-1" || r2.SessionID != "sess-1" {
		t.Errorf("session ids: %q, %q", r1.SessionID, r2.SessionID)
	}

	msgs, err := f.store.ListMessages("sess-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	// two turns, each one customer + one bot message
	if len(msgs) != 4 {
		t.Errorf("got %d messages, want 4", len(msgs))
	}
}

func TestNewSessionGetsGeneratedID(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.HandleMessage(context.Background(), Incoming{Body: "привет"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	if _, err := f.store.GetSession(res.SessionID); err != nil {
		t.Errorf("session not persisted: %v", err)
	}
}

func TestExactlyOneBotMessagePerTurn(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "sess-1", Body: "привет"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != "general reply" {
		t.Errorf("response = %q", res.Response)
	}

	msgs, _ := f.store.ListMessages("sess-1")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want customer + bot", len(msgs))
	}
	if msgs[0].Sender != storage.SenderCustomer || msgs[1].Sender != storage.SenderBot {
		t.Errorf("senders: %s, %s", msgs[0].Sender, msgs[1].Sender)
	}
	if msgs[1].Intent != string(intent.KindGeneral) {
		t.Errorf("bot message intent = %q", msgs[1].Intent)
	}
}

func TestManagerModeSilence(t *testing.T) {
	for _, status := range []string{storage.SessionPendingManager, storage.SessionWithManager} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			if err := f.store.CreateSession(storage.Session{ID: "sess-1"}); err != nil {
				t.Fatal(err)
			}
			if status != storage.SessionActive {
				if err := f.store.UpdateSessionStatus("sess-1", storage.SessionPendingManager, ""); err != nil {
					t.Fatal(err)
				}
			}
			if status == storage.SessionWithManager {
				if err := f.store.UpdateSessionStatus("sess-1", storage.SessionWithManager, "m1"); err != nil {
					t.Fatal(err)
				}
			}

			res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "sess-1", Body: "ало, есть кто живой?"})
			if err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if !res.WithManager {
				t.Error("WithManager must be set")
			}
			if res.Response != "" {
				t.Errorf("no automatic reply expected, got %q", res.Response)
			}
			if f.classifier.called {
				t.Error("classifier must not run while escalated")
			}

			msgs, _ := f.store.ListMessages("sess-1")
			if len(msgs) != 1 || msgs[0].Sender != storage.SenderCustomer {
				t.Errorf("only the customer message must be recorded, got %d", len(msgs))
			}
		})
	}
}

func TestClosedSessionRejectsMessages(t *testing.T) {
	f := newFixture(t)
	if err := f.store.CreateSession(storage.Session{ID: "sess-1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.orch.CloseSession("sess-1"); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "sess-1", Body: "привет"})
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("got %v, want ErrSessionClosed", err)
	}
}

func TestSKUShortCircuitSkipsClassifier(t *testing.T) {
	f := newFixture(t)
	f.catalog.products = []catalog.Product{inStock("47442", "iPhone 15", 389990)}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "Хочу заказать SKU: 47442"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if f.classifier.called {
		t.Error("classifier must be skipped on an inline SKU")
	}
	if f.catalog.gotQuery != "47442" {
		t.Errorf("search query = %q, want the bare SKU", f.catalog.gotQuery)
	}
	if res.Intent != string(intent.KindProductSearch) {
		t.Errorf("intent = %q", res.Intent)
	}
}

func TestProductSearchHappyPath(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{
		Kind:        intent.KindProductSearch,
		SearchQuery: "rtx 4070",
		Category:    "видеокарты",
	}
	f.catalog.products = []catalog.Product{
		inStock("1", "RTX 4070", 350000),
		inStock("2", "RTX 4070 Ti", 450000),
	}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "посоветуй видеокарту"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !f.ranker.called {
		t.Error("ranker must run on non-empty results")
	}
	if len(res.Products) != 2 {
		t.Errorf("got %d products", len(res.Products))
	}
	if res.Response != "products reply" {
		t.Errorf("response = %q", res.Response)
	}
}

func TestProductSearchFiltersOutOfStock(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindProductSearch, SearchQuery: "ssd"}
	f.catalog.products = []catalog.Product{
		{SKU: "1", Name: "SSD 1TB", CreditPrice: 45000, Stock: 0},
	}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "нужен ssd"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != respond.NoProductsFound {
		t.Errorf("expected the canned empty-search reply, got %q", res.Response)
	}
	if len(res.Products) != 0 {
		t.Error("out-of-stock products must never reach the caller")
	}
}

func TestProductSearchBudgetFilter(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{
		Kind:        intent.KindProductSearch,
		SearchQuery: "ноутбук",
		Budget:      300000,
	}
	f.catalog.products = []catalog.Product{
		inStock("1", "Ноутбук дорогой", 800000),
		inStock("2", "Ноутбук по карману", 250000),
	}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "ноутбук до 300 000"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(res.Products) != 1 || res.Products[0].SKU != "2" {
		t.Errorf("budget filter not applied: %+v", res.Products)
	}
}

func TestProductSearchEverythingOverBudget(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{
		Kind:        intent.KindProductSearch,
		SearchQuery: "ноутбук",
		Budget:      100000,
	}
	f.catalog.products = []catalog.Product{inStock("1", "Ноутбук", 800000)}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "дешевый ноутбук"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != respond.NoProductsFound {
		t.Errorf("response = %q, want not-found message", res.Response)
	}
	if len(res.Products) != 0 {
		t.Errorf("got %d products, want none when all exceed the budget", len(res.Products))
	}
	if f.ranker.called {
		t.Error("ranker must not run with nothing in budget")
	}
}

func TestBudgetAskDispatch(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindPCBudgetAsk, BuildTier: intent.TierMid}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "собери мне пк"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != "budget reply" {
		t.Errorf("response = %q", res.Response)
	}
	if f.catalog.gotQuery != "" {
		t.Error("budget ask must not hit the catalog")
	}
}

func TestBuildCompleteDispatch(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{
		Kind:      intent.KindPCBuild,
		Budget:    500000,
		BuildTier: intent.TierMid,
	}
	plan := &build.Plan{
		Categories: []string{build.CategoryCPU},
		Components: map[string]catalog.Product{
			build.CategoryCPU: inStock("10", "Ryzen 5 7600", 120000),
		},
	}
	f.builder.outcome = build.Outcome{Status: build.StatusComplete, Plan: plan}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "собери пк до 500000"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != "build reply" {
		t.Errorf("response = %q", res.Response)
	}
	if f.builder.gotReq.Budget != 500000 {
		t.Errorf("budget not forwarded: %v", f.builder.gotReq.Budget)
	}
	if len(res.Products) != 1 {
		t.Errorf("plan products not returned: %d", len(res.Products))
	}
}

func TestBuildMissingCategoryIsNotPresentedAsBuild(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindPCBuild, Budget: 400000}
	f.builder.outcome = build.Outcome{
		Status:            build.StatusMissingCategory,
		MissingCategories: []string{build.CategoryGPU},
		FallbackCategory:  build.CategoryGPU,
		Fallback:          []catalog.Product{{SKU: "9", Name: "RTX 4060", CreditPrice: 250000}},
	}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "игровой пк"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !strings.Contains(res.Response, build.CategoryGPU) {
		t.Errorf("reply must name the unavailable category: %q", res.Response)
	}
	if res.Response == "build reply" || strings.Contains(res.Response, "готова") {
		t.Errorf("degraded reply must not read as a completed build: %q", res.Response)
	}
	if len(res.Products) != 1 {
		t.Errorf("fallback recommendation missing: %d", len(res.Products))
	}
}

func TestBuildMissingCategoryWithEmptyFallback(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindPCBuild, Budget: 400000}
	f.builder.outcome = build.Outcome{
		Status:            build.StatusMissingCategory,
		MissingCategories: []string{build.CategoryPSU},
		FallbackCategory:  build.CategoryPSU,
	}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "игровой пк"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response == "" {
		t.Error("a non-empty reply is required on every branch")
	}
	if len(res.Products) != 0 {
		t.Error("no products expected when even the fallback search is empty")
	}
}

func TestBuildInfeasibleDispatch(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindPCBuild, Budget: 400000}
	f.builder.outcome = build.Outcome{Status: build.StatusInfeasible}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "игровой пк"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != respond.InfeasibleBuild {
		t.Errorf("response = %q", res.Response)
	}
}

func TestFAQDirectMatchSkipsGeneration(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindFAQ}
	f.orch.faq = mockFAQ{direct: "доставка 1-3 дня"}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "как с доставкой?"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != "доставка 1-3 дня" {
		t.Errorf("response = %q", res.Response)
	}
}

func TestFAQFallsBackToGeneration(t *testing.T) {
	f := newFixture(t)
	f.classifier.analysis = intent.Analysis{Kind: intent.KindFAQ}

	res, err := f.orch.HandleMessage(context.Background(), Incoming{SessionID: "s", Body: "расскажи про магазин"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Response != "faq reply" {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHistoryWindowPassedToClassifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := f.orch.HandleMessage(ctx, Incoming{SessionID: "s", Body: "сообщение"}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	if got := len(f.classifier.gotChat); got != 10 {
		t.Errorf("classifier saw %d messages, want the 10-message window", got)
	}
	last := f.classifier.gotChat[len(f.classifier.gotChat)-1]
	if last.Role != "user" {
		t.Errorf("newest message must be the customer's, got role %q", last.Role)
	}
}
