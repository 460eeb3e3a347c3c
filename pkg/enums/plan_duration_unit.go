package enums

import "fmt"

// PlanDurationUnit is the structured subscription window unit.
type PlanDurationUnit string

const (
	PlanDurationMonth PlanDurationUnit = "month"
	PlanDurationYear  PlanDurationUnit = "year"
)

var validPlanDurationUnits = []PlanDurationUnit{
	PlanDurationMonth,
	PlanDurationYear,
}

// String implements fmt.Stringer.
func (u PlanDurationUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known PlanDurationUnit.
func (u PlanDurationUnit) IsValid() bool {
	for _, candidate := range validPlanDurationUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParsePlanDurationUnit converts raw input into a PlanDurationUnit.
func ParsePlanDurationUnit(value string) (PlanDurationUnit, error) {
	for _, candidate := range validPlanDurationUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan duration unit %q", value)
}
