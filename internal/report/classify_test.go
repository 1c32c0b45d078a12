package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		commits  int
		seconds  int
		want     domain.Classification
		wantText string
	}{
		{"nothing today", 0, 0, domain.ClassificationNoCommitsLowTime, "❗ Нет коммитов и мало часов! (0 секунд)"},
		{"no commits just under threshold", 0, 3599, domain.ClassificationNoCommitsLowTime, "❗ Нет коммитов и мало часов! (59 минут 59 секунд)"},
		{"no commits enough time", 0, 7200, domain.ClassificationNoCommits, "⚠️ Сегодня не было коммитов!"},
		{"commits little time", 3, 3599, domain.ClassificationLowTime, "⚠️ Сегодня мало кода: 59 минут 59 секунд"},
		{"commits enough time", 3, 7200, domain.ClassificationGood, "🔥 Отлично! Коммитов: 3, время: 2 часа"},
		{"exactly two hours is good", 5, 7200, domain.ClassificationGood, "🔥 Отлично! Коммитов: 5, время: 2 часа"},
		{"one second short", 5, 7199, domain.ClassificationLowTime, "⚠️ Сегодня мало кода: 1 час 59 минут 59 секунд"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, text := Classify(domain.StatusReport{CommitCount: tt.commits, CodingSeconds: tt.seconds})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestComposeNoCommitsLowTime(t *testing.T) {
	_, text := Classify(domain.StatusReport{CommitCount: 0, CodingSeconds: 5400})
	assert.Equal(t, "Отчёт за сегодня:\n\n❗ Нет коммитов и мало часов! (1 час 30 минут)", Compose(text))
}
