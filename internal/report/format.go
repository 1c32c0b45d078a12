package report

import (
	"fmt"
	"strings"
)

// unitForms holds the three grammatical-number forms of a Russian unit noun:
// one (1), few (2-4) and many (everything else).
type unitForms struct {
	one, few, many string
}

var (
	hourForms   = unitForms{"час", "часа", "часов"}
	minuteForms = unitForms{"минута", "минуты", "минут"}
	secondForms = unitForms{"секунда", "секунды", "секунд"}
)

const zeroDuration = "0 секунд"

func (f unitForms) pick(n int) string {
	switch {
	case n == 1:
		return f.one
	case n >= 2 && n <= 4:
		return f.few
	default:
		return f.many
	}
}

// FormatDuration renders a number of seconds as "1 час 30 минут". Units with
// a zero magnitude are left out; a zero duration renders as "0 секунд".
// Negative input is treated as zero.
func FormatDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := totalSeconds % 3600 / 60
	seconds := totalSeconds % 60

	var parts []string
	for _, u := range []struct {
		n     int
		forms unitForms
	}{
		{hours, hourForms},
		{minutes, minuteForms},
		{seconds, secondForms},
	} {
		if u.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", u.n, u.forms.pick(u.n)))
		}
	}

	if len(parts) == 0 {
		return zeroDuration
	}
	return strings.Join(parts, " ")
}
