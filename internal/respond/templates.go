package respond

import (
	"fmt"
	"strconv"
	"strings"
)

// Deterministic texts returned when generation fails or no data exists.
// The customer must always get a reply.
const (
	FallbackProductError  = "Извините, произошла ошибка при формировании ответа."
	FallbackBuildError    = "Извините, произошла ошибка при формировании ответа по сборке ПК."
	FallbackFAQError      = "Извините, произошла ошибка. Свяжитесь с нашей поддержкой."
	FallbackGeneral       = "Привет! Чем могу помочь?"
	FallbackBudgetRequest = "Я вижу, вы хотите собрать ПК! Пожалуйста, укажите ваш максимальный бюджет в тенге (например, 'до 500 000 ₸'), чтобы я мог начать подбор. 💰"

	NoProductsFound = `К сожалению, по вашему запросу не найдено подходящих товаров в наличии. 😔

Попробуйте:
• Изменить бюджет
• Выбрать другую категорию товаров
• Связаться с нами для индивидуальной консультации: +7 (777) 123-45-67`

	InfeasibleBuild = `К сожалению, не удалось подобрать **совместимую сборку** из компонентов в наличии.

Возможные причины:
1. Несовместимость доступных комплектующих.
2. В базе нет компонентов, удовлетворяющих вашим требованиям и бюджету.

Попробуйте изменить требования к ПК или свяжитесь с консультантом.`
)

// MissingCategoryIntro explains which categories block a build and
// introduces the degraded single-category recommendation that follows.
// Never phrased as a completed build.
func MissingCategoryIntro(missing []string, fallbackCategory string) string {
	return fmt.Sprintf(`😔 Извините, но я не могу собрать ПК прямо сейчас.
В наличии отсутствуют обязательные компоненты: **%s**.

Однако я могу предложить вам лучшие **%s** по вашим требованиям:

`, strings.Join(missing, ", "), fallbackCategory)
}

// CategoryUnavailable is the terminal degraded text when even the
// single-category fallback search found nothing.
func CategoryUnavailable(category string) string {
	return fmt.Sprintf("😔 Извините, но я не смог собрать ПК: в базе магазина полностью отсутствуют товары категории **%s**. Пожалуйста, попробуйте изменить запрос или свяжитесь с поддержкой.", category)
}

// FormatTenge renders a price with thin thousand separators, digits
// verbatim: 389990 → "389 990", 1234.5 → "1 234.5".
func FormatTenge(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}

	out := sb.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}
