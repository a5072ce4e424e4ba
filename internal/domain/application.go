package domain

import "time"

// ApplicationStatus enumerates lifecycle states for credit applications.
type ApplicationStatus string

const (
	ApplicationStatusOpen        ApplicationStatus = "OPEN"
	ApplicationStatusProcessing  ApplicationStatus = "PROCESSING"
	ApplicationStatusOutstanding ApplicationStatus = "OUTSTANDING"
	ApplicationStatusRepaid      ApplicationStatus = "REPAID"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
	// ApplicationStatusCancelled is declared for completeness; no current
	// operation produces it.
	ApplicationStatusCancelled ApplicationStatus = "CANCELLED"
)

// Terminal reports whether no further money movement is allowed.
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case ApplicationStatusRepaid, ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	}
	return false
}

// Application is the aggregate for a single line-of-credit request and its
// running balance. All monetary fields are minor units (cents).
//
// PROCESSING is a transient lock state held only while a disburse or repay
// operation is in flight; it must never be observable after a request
// completes.
type Application struct {
	ID              string
	UserID          string
	Status          ApplicationStatus
	RequestedAmount int64
	DisbursedAmount int64
	ExpressDelivery bool
	Tip             int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
