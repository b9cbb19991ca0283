package respond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/overtech/overbot/internal/build"
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/intent"
	"github.com/overtech/overbot/internal/llm"
)

const generateTimeout = 30 * time.Second

// Chatter is the interface for chat completion calls.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Generator turns selected products, build plans and FAQ passages into
// user-facing text. Every method returns a deterministic templated fallback
// on generation failure: the customer always gets a reply.
type Generator struct {
	client Chatter
}

// NewGenerator creates a Generator backed by the given chat client.
func NewGenerator(client Chatter) *Generator {
	return &Generator{client: client}
}

func (g *Generator) chat(ctx context.Context, messages []llm.Message, opts llm.Options, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	text, err := g.client.Chat(ctx, messages, opts)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("response generation failed, using templated fallback", "error", err)
		return fallback
	}
	return text
}

const productSystemPrompt = `Ты - эксперт-консультант по электронике в интернет-магазине.
Помоги клиенту выбрать подходящий товар из предложенных вариантов.

Твой ответ должен:
1. Кратко подтвердить понимание запроса (1 предложение)
2. Представить 2-3 лучших варианта с объяснением преимуществ
3. Дать конкретную рекомендацию

Указывай цены ровно в том виде, в котором они даны в списке — не округляй и не придумывай.
Используй эмодзи (✅, 💰, ⚡, 🎮), пиши коротко и по делу, будь дружелюбным.`

// ProductResponse presents ranked products as a recommendation.
func (g *Generator) ProductResponse(ctx context.Context, history []llm.Message, products []catalog.Product) string {
	var sb strings.Builder
	for _, p := range products {
		fmt.Fprintf(&sb, "**%s**\n- Цена: %s ₸\n- Бренд: %s\n- В наличии: %d шт.\n- Гарантия: %s\n- Артикул: %s\n\n",
			p.Name, FormatTenge(p.CreditPrice), orNA(p.Brand), p.Stock, orNA(p.Warranty), p.SKU)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: productSystemPrompt})
	messages = append(messages, trimLast(history)...)
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Запрос клиента: %s\n\nНайденные товары:\n%s\nПомоги клиенту выбрать лучший вариант.", lastContent(history), sb.String()),
	})

	return g.chat(ctx, messages, llm.Options{Temperature: 0.7, MaxTokens: 800}, FallbackProductError)
}

const buildSystemPrompt = `Ты — дружелюбный AI-консультант "Роберт". Ты только что собрал идеальный ПК для клиента.
Твой ответ должен:
1. Подтвердить готовность сборки и сегмент.
2. Представить финальную стоимость — ровно ту сумму, которая дана в деталях, без округления.
3. Представить список выбранных компонентов с их ценами как в списке.
4. Дать краткое обоснование (для игр/работы) и похвалить сборку.
5. Предложить добавить сборку в корзину или изменить компонент.

Используй эмодзи (🖥️, ✨, 💰) и Markdown.`

// BuildResponse presents a completed build plan.
func (g *Generator) BuildResponse(ctx context.Context, history []llm.Message, plan *build.Plan) string {
	var sb strings.Builder
	for _, cat := range plan.Categories {
		p := plan.Components[cat]
		fmt.Fprintf(&sb, "* **%s**: %s (%s ₸)\n", cat, p.Name, FormatTenge(p.CreditPrice))
	}

	messages := []llm.Message{{Role: "system", Content: buildSystemPrompt}}
	messages = append(messages, lastN(history, 2)...)
	messages = append(messages, llm.Message{
		Role: "user",
		Content: fmt.Sprintf("Клиент: %s\n\nДетали сборки:\nОбщая стоимость: %s ₸\nКомпоненты:\n%s\nСгенерируй финальный ответ.",
			lastContent(history), FormatTenge(plan.Total()), sb.String()),
	})

	return g.chat(ctx, messages, llm.Options{Temperature: 0.7, MaxTokens: 800}, FallbackBuildError)
}

// FAQResponse answers store questions grounded in the FAQ knowledge base.
func (g *Generator) FAQResponse(ctx context.Context, history []llm.Message, faqContext string) string {
	system := fmt.Sprintf(`Ты - дружелюбный консультант интернет-магазина электроники.
Отвечай на вопросы клиентов о доставке, оплате, возврате и других услугах магазина.

Информация о магазине:
%s

Правила:
- Будь вежливым и информативным
- Отвечай кратко, но полно
- Используй эмодзи для визуальности
- Если информации нет в базе, предложи связаться с поддержкой`, faqContext)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)

	return g.chat(ctx, messages, llm.Options{Temperature: 0.7, MaxTokens: 500}, FallbackFAQError)
}

const generalSystemPrompt = `Ты - Роберт, дружелюбный ассистент интернет-магазина электроники Over.
Помогай клиентам, отвечай на вопросы, направляй их к нужным товарам или услугам.
Будь вежливым, профессиональным и полезным.`

// GeneralResponse handles small talk and anything unclassifiable.
func (g *Generator) GeneralResponse(ctx context.Context, history []llm.Message) string {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: generalSystemPrompt})
	messages = append(messages, history...)

	return g.chat(ctx, messages, llm.Options{Temperature: 0.8, MaxTokens: 300}, FallbackGeneral)
}

// BudgetRequest asks the customer for a build budget before any catalog work.
func (g *Generator) BudgetRequest(ctx context.Context, history []llm.Message, requirements string, tier intent.Tier) string {
	system := fmt.Sprintf(`Ты — дружелюбный AI-консультант "Роберт". Клиент хочет собрать ПК, но не указал бюджет.
Твоя задача — вежливо уточнить у него максимальную сумму в тенге.

Требования клиента: %s.
Предполагаемый сегмент: %s.

Ответь кратко, вежливо и с эмодзи. Не предлагай товаров, пока не узнаешь бюджет.`, requirements, tier)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)

	return g.chat(ctx, messages, llm.Options{Temperature: 0.7, MaxTokens: 200}, FallbackBudgetRequest)
}

func lastContent(history []llm.Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}

func trimLast(history []llm.Message) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	return history[:len(history)-1]
}

func lastN(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
