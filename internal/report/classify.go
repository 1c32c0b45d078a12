package report

import (
	"fmt"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

// Fixed chat texts.
const (
	Header   = "Отчёт за сегодня:\n\n"
	Fallback = "⚠️ Не удалось проверить статус, попробуй позже."
	Checking = "⏳ Проверяю статус..."

	PromptText  = "Нажми кнопку, чтобы проверить статус:"
	PromptLabel = "Проверить статус"
)

// Classify maps today's activity to a classification and its chat text.
// Rules are evaluated in order and the first match wins.
func Classify(r domain.StatusReport) (domain.Classification, string) {
	lowTime := r.CodingHours() < domain.MinCodingHours

	switch {
	case r.CommitCount == 0 && lowTime:
		return domain.ClassificationNoCommitsLowTime,
			fmt.Sprintf("❗ Нет коммитов и мало часов! (%s)", FormatDuration(r.CodingSeconds))
	case r.CommitCount == 0:
		return domain.ClassificationNoCommits, "⚠️ Сегодня не было коммитов!"
	case lowTime:
		return domain.ClassificationLowTime,
			fmt.Sprintf("⚠️ Сегодня мало кода: %s", FormatDuration(r.CodingSeconds))
	default:
		return domain.ClassificationGood,
			fmt.Sprintf("🔥 Отлично! Коммитов: %d, время: %s", r.CommitCount, FormatDuration(r.CodingSeconds))
	}
}

// Compose prefixes a classifier text with the report header.
func Compose(text string) string {
	return Header + text
}
