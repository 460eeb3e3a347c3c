package enums

import "fmt"

// PurchaseType distinguishes single-item grants from subscriptions.
type PurchaseType string

const (
	PurchaseTypeIndividual   PurchaseType = "individual"
	PurchaseTypeSubscription PurchaseType = "subscription"
)

var validPurchaseTypes = []PurchaseType{
	PurchaseTypeIndividual,
	PurchaseTypeSubscription,
}

// String implements fmt.Stringer.
func (p PurchaseType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseType.
func (p PurchaseType) IsValid() bool {
	for _, candidate := range validPurchaseTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseType converts raw input into a PurchaseType.
func ParsePurchaseType(value string) (PurchaseType, error) {
	for _, candidate := range validPurchaseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase type %q", value)
}
