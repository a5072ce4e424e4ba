package domain

import "time"

// LedgerEntryType distinguishes the two directions of money movement.
type LedgerEntryType string

const (
	EntryTypeDisbursement LedgerEntryType = "DISBURSEMENT"
	EntryTypeRepayment    LedgerEntryType = "REPAYMENT"
)

// LedgerEntry is an immutable record of one money movement on an application.
// Entries are append-only: the sum of DISBURSEMENT amounts minus the sum of
// REPAYMENT amounts for an application equals its current disbursed amount.
type LedgerEntry struct {
	ID            string
	ApplicationID string
	Type          LedgerEntryType
	Amount        int64
	CreatedAt     time.Time
}
