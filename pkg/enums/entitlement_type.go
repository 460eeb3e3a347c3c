package enums

import "fmt"

// EntitlementType records which kind of purchase authorized a download.
type EntitlementType string

const (
	EntitlementIndividualPurchase EntitlementType = "individual_purchase"
	EntitlementSubscription       EntitlementType = "subscription"
)

var validEntitlementTypes = []EntitlementType{
	EntitlementIndividualPurchase,
	EntitlementSubscription,
}

// String implements fmt.Stringer.
func (e EntitlementType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntitlementType.
func (e EntitlementType) IsValid() bool {
	for _, candidate := range validEntitlementTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntitlementType converts raw input into an EntitlementType.
func ParseEntitlementType(value string) (EntitlementType, error) {
	for _, candidate := range validEntitlementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entitlement type %q", value)
}
