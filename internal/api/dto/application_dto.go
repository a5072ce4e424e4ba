package dto

import (
	"time"

	"github.com/spec-kit/credit-line-service/internal/domain"
)

// CreateApplicationRequest payload. Amounts are minor units (cents).
type CreateApplicationRequest struct {
	UserID          string `json:"user_id"`
	RequestedAmount int64  `json:"requested_amount"`
	ExpressDelivery bool   `json:"express_delivery"`
	Tip             int64  `json:"tip"`
}

// DisburseFundsRequest payload.
type DisburseFundsRequest struct {
	Amount          int64 `json:"amount"`
	Tip             int64 `json:"tip"`
	ExpressDelivery bool  `json:"express_delivery"`
}

// RepayFundsRequest payload.
type RepayFundsRequest struct {
	Amount int64 `json:"amount"`
}

// ApplicationResponse payload.
type ApplicationResponse struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	Status          domain.ApplicationStatus `json:"status"`
	RequestedAmount int64                    `json:"requested_amount"`
	DisbursedAmount int64                    `json:"disbursed_amount"`
	ExpressDelivery bool                     `json:"express_delivery"`
	Tip             int64                    `json:"tip"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// LedgerEntryResponse payload.
type LedgerEntryResponse struct {
	ID            string                 `json:"id"`
	ApplicationID string                 `json:"application_id"`
	Type          domain.LedgerEntryType `json:"type"`
	Amount        int64                  `json:"amount"`
	CreatedAt     time.Time              `json:"created_at"`
}
