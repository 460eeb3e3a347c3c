package pricingplans

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Duration is the structured subscription window of a plan.
type Duration struct {
	Count int
	Unit  enums.PlanDurationUnit
}

// ParseLegacyDuration interprets the free-text duration strings carried over
// from pre-structured plan rows ("1 month", "12 Months", "Annual (1 year)").
// The leading integer is the count when present, otherwise 1. The unit is the
// first "month"/"year" keyword in the string; strings with neither keyword
// fall back to months.
func ParseLegacyDuration(raw string) Duration {
	text := strings.ToLower(strings.TrimSpace(raw))

	count := 1
	if digits := leadingDigits(text); digits != "" {
		if parsed, err := strconv.Atoi(digits); err == nil && parsed > 0 {
			count = parsed
		}
	}

	unit := enums.PlanDurationMonth
	monthIdx := strings.Index(text, "month")
	yearIdx := strings.Index(text, "year")
	if yearIdx >= 0 && (monthIdx < 0 || yearIdx < monthIdx) {
		unit = enums.PlanDurationYear
	}

	return Duration{Count: count, Unit: unit}
}

func leadingDigits(text string) string {
	for i, r := range text {
		if !unicode.IsDigit(r) {
			return text[:i]
		}
	}
	return text
}
