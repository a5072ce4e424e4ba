package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApplicationCreated  EventType = "application_created"
	EventFundsDisbursed      EventType = "funds_disbursed"
	EventFundsRepaid         EventType = "funds_repaid"
	EventApplicationRejected EventType = "application_rejected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ApplicationID string      `json:"application_id"`
	UserID        string      `json:"user_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// ApplicationCreatedPayload payload.
type ApplicationCreatedPayload struct {
	RequestedAmount int64 `json:"requested_amount"`
	ExpressDelivery bool  `json:"express_delivery"`
	Tip             int64 `json:"tip"`
}

// FundsDisbursedPayload payload.
type FundsDisbursedPayload struct {
	Amount          int64 `json:"amount"`
	Tip             int64 `json:"tip"`
	NewBalance      int64 `json:"new_balance"`
	ExpressDelivery bool  `json:"express_delivery"`
}

// FundsRepaidPayload payload.
type FundsRepaidPayload struct {
	Amount     int64 `json:"amount"`
	NewBalance int64 `json:"new_balance"`
	Settled    bool  `json:"settled"`
}

// ApplicationRejectedPayload payload.
type ApplicationRejectedPayload struct {
	RequestedAmount int64 `json:"requested_amount"`
}
