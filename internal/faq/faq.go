package faq

import "strings"

// Entry is one FAQ passage matchable by keyword.
type Entry struct {
	Topic    string
	Keywords []string
	Answer   string
}

// Knowledge is a static FAQ knowledge base.
type Knowledge struct {
	entries []Entry
}

// New creates a Knowledge from explicit entries (used by tests).
func New(entries []Entry) *Knowledge {
	return &Knowledge{entries: entries}
}

// Default returns the built-in store FAQ.
func Default() *Knowledge {
	return New([]Entry{
		{
			Topic:    "Доставка",
			Keywords: []string{"доставка", "доставить", "привезти", "курьер", "сколько ждать"},
			Answer:   "🚚 Доставка по городу — 1-3 рабочих дня, бесплатно при заказе от 10 000 ₸. По Казахстану — 3-7 рабочих дней через курьерские службы.",
		},
		{
			Topic:    "Оплата",
			Keywords: []string{"оплата", "оплатить", "рассрочка", "kaspi", "картой", "наличными"},
			Answer:   "💳 Принимаем оплату картой, наличными при получении и рассрочку Kaspi Red на 3-24 месяца без переплаты.",
		},
		{
			Topic:    "Возврат",
			Keywords: []string{"возврат", "вернуть", "обмен", "обменять", "не подошел"},
			Answer:   "↩️ Возврат и обмен товара надлежащего качества — в течение 14 дней при сохранении упаковки и чека.",
		},
		{
			Topic:    "Гарантия",
			Keywords: []string{"гарантия", "гарантийный", "сервис", "ремонт", "сломался"},
			Answer:   "🛡️ На всю технику действует официальная гарантия производителя от 12 месяцев. Гарантийный сервис-центр работает ежедневно с 10:00 до 19:00.",
		},
		{
			Topic:    "Контакты",
			Keywords: []string{"контакты", "телефон", "позвонить", "адрес", "где находитесь", "график"},
			Answer:   "📞 Телефон поддержки: +7 (777) 123-45-67, ежедневно с 9:00 до 21:00. Магазин: г. Алматы, пр. Абая 150.",
		},
	})
}

// FindRelevant returns the answer of the first entry whose keyword occurs
// in the message. False when nothing matches directly; the caller then
// falls back to generation over the full context.
func (k *Knowledge) FindRelevant(message string) (string, bool) {
	m := strings.ToLower(message)
	for _, e := range k.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(m, kw) {
				return e.Answer, true
			}
		}
	}
	return "", false
}

// AllContext returns every passage joined for use as generation context.
func (k *Knowledge) AllContext() string {
	var sb strings.Builder
	for i, e := range k.entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(e.Topic)
		sb.WriteString(": ")
		sb.WriteString(e.Answer)
	}
	return sb.String()
}
