// Package orchestrator owns the conversation session state machine. It
// loads the session and its history, classifies the incoming message,
// dispatches by intent to the catalog, selector, assembler, and response
// generator, and persists exactly one customer message and one bot message
// per processed turn.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/overtech/overbot/internal/audit"
	"github.com/overtech/overbot/internal/build"
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/intent"
	"github.com/overtech/overbot/internal/llm"
	"github.com/overtech/overbot/internal/respond"
	"github.com/overtech/overbot/internal/selector"
	"github.com/overtech/overbot/internal/storage"
)

// ErrEmptyMessage is returned for a blank message body before any side effect.
var ErrEmptyMessage = errors.New("empty message body")

// ErrSessionClosed is returned when a customer writes into a closed session.
var ErrSessionClosed = errors.New("session is closed")

// ErrSessionNotClaimed is returned when an agent posts into a session that
// is not with a manager.
var ErrSessionNotClaimed = errors.New("session is not claimed by a manager")

const maxResultProducts = 5

// Classifier turns a conversation into a structured intent analysis.
type Classifier interface {
	Classify(ctx context.Context, history []llm.Message) intent.Analysis
}

// Catalog is the product search surface the orchestrator uses directly.
type Catalog interface {
	SearchWithFallback(ctx context.Context, query, category string) []catalog.Product
}

// Ranker narrows a product list to the most relevant few.
type Ranker interface {
	SelectBest(ctx context.Context, products []catalog.Product, userQuery string, reqs selector.Requirements) []catalog.Product
}

// Builder assembles a full PC from a budget and requirements.
type Builder interface {
	Assemble(ctx context.Context, req build.Request) build.Outcome
}

// Responder generates user-facing replies. Implementations never return an
// error: generation failures yield a templated fallback string.
type Responder interface {
	ProductResponse(ctx context.Context, history []llm.Message, products []catalog.Product) string
	BuildResponse(ctx context.Context, history []llm.Message, plan *build.Plan) string
	FAQResponse(ctx context.Context, history []llm.Message, faqContext string) string
	GeneralResponse(ctx context.Context, history []llm.Message) string
	BudgetRequest(ctx context.Context, history []llm.Message, requirements string, tier intent.Tier) string
}

// FAQ is a static knowledge source matchable by keyword.
type FAQ interface {
	FindRelevant(message string) (string, bool)
	AllContext() string
}

// Incoming is one customer message.
type Incoming struct {
	SessionID      string // empty means create a new session
	Body           string
	AttachmentRef  string
	AttachmentType string
}

// Result is the orchestrator's answer for one customer message.
type Result struct {
	Success     bool              `json:"success"`
	Response    string            `json:"response"`
	Products    []catalog.Product `json:"products"`
	Intent      string            `json:"intent"`
	SessionID   string            `json:"session_id"`
	WithManager bool              `json:"with_manager"`
}

// Orchestrator ties the pipeline together over one store.
type Orchestrator struct {
	store         *storage.Store
	audit         audit.Recorder
	classifier    Classifier
	catalog       Catalog
	ranker        Ranker
	builder       Builder
	responder     Responder
	faq           FAQ
	historyWindow int
	logger        *slog.Logger
}

type Deps struct {
	Store         *storage.Store
	Audit         audit.Recorder
	Classifier    Classifier
	Catalog       Catalog
	Ranker        Ranker
	Builder       Builder
	Responder     Responder
	FAQ           FAQ
	HistoryWindow int
	Logger        *slog.Logger
}

func New(d Deps) *Orchestrator {
	if d.HistoryWindow <= 0 {
		d.HistoryWindow = 10
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	return &Orchestrator{
		store:         d.Store,
		audit:         d.Audit,
		classifier:    d.Classifier,
		catalog:       d.Catalog,
		ranker:        d.Ranker,
		builder:       d.Builder,
		responder:     d.Responder,
		faq:           d.FAQ,
		historyWindow: d.HistoryWindow,
		logger:        d.Logger,
	}
}

// HandleMessage processes one inbound customer message end to end.
func (o *Orchestrator) HandleMessage(ctx context.Context, in Incoming) (Result, error) {
	started := time.Now()

	if strings.TrimSpace(in.Body) == "" {
		return Result{}, ErrEmptyMessage
	}

	sess, err := o.loadOrCreateSession(in.SessionID)
	if err != nil {
		return Result{}, err
	}
	if sess.Status == storage.SessionClosed {
		return Result{}, ErrSessionClosed
	}

	if err := o.store.SaveMessage(storage.Message{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		Body:           in.Body,
		Sender:         storage.SenderCustomer,
		AttachmentRef:  in.AttachmentRef,
		AttachmentType: in.AttachmentType,
	}); err != nil {
		return Result{}, fmt.Errorf("saving customer message: %w", err)
	}

	o.audit.Record(storage.AuditEntry{
		SessionID: sess.ID,
		Kind:      storage.EventUserQuestion,
		Input:     in.Body,
	})

	// Once escalation is requested the bot stands down: the message is
	// queued for the human agent and no automatic reply is synthesized.
	if sess.Status == storage.SessionWithManager || sess.Status == storage.SessionPendingManager {
		return Result{
			Success:     true,
			SessionID:   sess.ID,
			WithManager: true,
		}, nil
	}

	history, err := o.store.GetHistory(sess.ID, o.historyWindow)
	if err != nil {
		return Result{}, fmt.Errorf("loading history: %w", err)
	}
	chat := toChat(history)

	var analysis intent.Analysis
	if sku, ok := intent.DetectSKU(in.Body); ok {
		analysis = intent.ForcedSearch(sku)
	} else {
		analysis = o.classifier.Classify(ctx, chat)
	}
	o.logger.Debug("message classified",
		"session_id", sess.ID, "intent", analysis.Kind, "category", analysis.Category)

	response, products := o.dispatch(ctx, in.Body, chat, analysis)
	if strings.TrimSpace(response) == "" {
		response = respond.FallbackGeneral
	}
	if len(products) > maxResultProducts {
		products = products[:maxResultProducts]
	}

	if err := o.store.SaveMessage(storage.Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Body:      response,
		Sender:    storage.SenderBot,
		Intent:    string(analysis.Kind),
	}); err != nil {
		return Result{}, fmt.Errorf("saving bot message: %w", err)
	}

	o.audit.Record(storage.AuditEntry{
		SessionID:      sess.ID,
		Kind:           storage.EventBotResponse,
		Input:          in.Body,
		Output:         response,
		ResponseTimeMS: time.Since(started).Milliseconds(),
	})

	return Result{
		Success:   true,
		Response:  response,
		Products:  products,
		Intent:    string(analysis.Kind),
		SessionID: sess.ID,
	}, nil
}

// loadOrCreateSession resolves the session for an incoming message. A blank
// identifier gets a generated one; an unknown identifier is created as-is,
// so creation is idempotent per identifier.
func (o *Orchestrator) loadOrCreateSession(id string) (storage.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	sess, err := o.store.GetSession(id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, fmt.Errorf("loading session: %w", err)
	}

	sess = storage.Session{ID: id, Status: storage.SessionActive}
	if err := o.store.CreateSession(sess); err != nil {
		return storage.Session{}, fmt.Errorf("creating session: %w", err)
	}
	o.audit.Record(storage.AuditEntry{
		SessionID: id,
		Kind:      storage.EventSessionStart,
	})
	return o.store.GetSession(id)
}

func (o *Orchestrator) dispatch(ctx context.Context, body string, chat []llm.Message, analysis intent.Analysis) (string, []catalog.Product) {
	switch analysis.Kind {
	case intent.KindProductSearch:
		return o.productSearch(ctx, body, chat, analysis)

	case intent.KindPCBudgetAsk:
		return o.responder.BudgetRequest(ctx, chat, analysis.Requirements, analysis.BuildTier), nil

	case intent.KindPCBuild:
		return o.pcBuild(ctx, body, chat, analysis)

	case intent.KindFAQ:
		if answer, ok := o.faq.FindRelevant(body); ok {
			return answer, nil
		}
		return o.responder.FAQResponse(ctx, chat, o.faq.AllContext()), nil

	default:
		return o.responder.GeneralResponse(ctx, chat), nil
	}
}

func (o *Orchestrator) productSearch(ctx context.Context, body string, chat []llm.Message, analysis intent.Analysis) (string, []catalog.Product) {
	query := analysis.SearchQuery
	if query == "" {
		query = body
	}

	products := catalog.FilterInStock(o.catalog.SearchWithFallback(ctx, query, analysis.Category))
	if analysis.HasBudget() {
		products = catalog.FilterByPrice(products, analysis.Budget)
	}
	if len(products) == 0 {
		return respond.NoProductsFound, nil
	}

	selected := o.ranker.SelectBest(ctx, products, body, selector.Requirements{
		Budget:       analysis.Budget,
		Requirements: analysis.Requirements,
	})
	return o.responder.ProductResponse(ctx, chat, selected), selected
}

func (o *Orchestrator) pcBuild(ctx context.Context, body string, chat []llm.Message, analysis intent.Analysis) (string, []catalog.Product) {
	outcome := o.builder.Assemble(ctx, build.Request{
		UserMessage:        body,
		Requirements:       analysis.Requirements,
		Tier:               analysis.BuildTier,
		Budget:             analysis.Budget,
		IncludePeripherals: analysis.IncludePeripherals,
	})

	switch outcome.Status {
	case build.StatusComplete:
		return o.responder.BuildResponse(ctx, chat, outcome.Plan), outcome.Plan.Products()

	case build.StatusMissingCategory:
		if len(outcome.Fallback) == 0 {
			return respond.CategoryUnavailable(outcome.FallbackCategory), nil
		}
		intro := respond.MissingCategoryIntro(outcome.MissingCategories, outcome.FallbackCategory)
		listing := o.responder.ProductResponse(ctx, chat, outcome.Fallback)
		return intro + listing, outcome.Fallback

	default:
		return respond.InfeasibleBuild, nil
	}
}

// toChat maps stored messages onto chat roles: the customer speaks as the
// user, bot and agent replies both read as the assistant side.
func toChat(history []storage.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := "assistant"
		if m.Sender == storage.SenderCustomer {
			role = "user"
		}
		out = append(out, llm.Message{Role: role, Content: m.Body})
	}
	return out
}
