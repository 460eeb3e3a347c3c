package enums

import "fmt"

// AnalyticsPeriod groups aggregate queries by calendar bucket.
type AnalyticsPeriod string

const (
	AnalyticsPeriodDaily   AnalyticsPeriod = "daily"
	AnalyticsPeriodWeekly  AnalyticsPeriod = "weekly"
	AnalyticsPeriodMonthly AnalyticsPeriod = "monthly"
	AnalyticsPeriodYearly  AnalyticsPeriod = "yearly"
)

var validAnalyticsPeriods = []AnalyticsPeriod{
	AnalyticsPeriodDaily,
	AnalyticsPeriodWeekly,
	AnalyticsPeriodMonthly,
	AnalyticsPeriodYearly,
}

// String implements fmt.Stringer.
func (p AnalyticsPeriod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known AnalyticsPeriod.
func (p AnalyticsPeriod) IsValid() bool {
	for _, candidate := range validAnalyticsPeriods {
		if candidate == p {
			return true
		}
	}
	return false
}

// DateTrunc returns the Postgres date_trunc unit for the period.
func (p AnalyticsPeriod) DateTrunc() string {
	switch p {
	case AnalyticsPeriodDaily:
		return "day"
	case AnalyticsPeriodWeekly:
		return "week"
	case AnalyticsPeriodYearly:
		return "year"
	default:
		return "month"
	}
}

// ParseAnalyticsPeriod converts raw input into an AnalyticsPeriod.
func ParseAnalyticsPeriod(value string) (AnalyticsPeriod, error) {
	for _, candidate := range validAnalyticsPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics period %q", value)
}
