package enums

import "fmt"

// PurchaseStatus tracks the lifecycle of an entitlement record.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusExpired   PurchaseStatus = "expired"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPending,
	PurchaseStatusCompleted,
	PurchaseStatusExpired,
	PurchaseStatusCancelled,
	PurchaseStatusRefunded,
}

// purchaseTransitions is the closed transition set. Refunded and cancelled are
// terminal; expired subscriptions stay expired.
var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchaseStatusPending:   {PurchaseStatusCompleted, PurchaseStatusCancelled, PurchaseStatusRefunded},
	PurchaseStatusCompleted: {PurchaseStatusExpired, PurchaseStatusCancelled, PurchaseStatusRefunded},
	PurchaseStatusExpired:   {},
	PurchaseStatusCancelled: {},
	PurchaseStatusRefunded:  {},
}

// String implements fmt.Stringer.
func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (p PurchaseStatus) IsTerminal() bool {
	return len(purchaseTransitions[p]) == 0
}

// CanTransitionTo reports whether the status may move to next.
func (p PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	for _, candidate := range purchaseTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
