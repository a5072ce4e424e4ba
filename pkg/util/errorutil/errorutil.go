package errorutil

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes surfaced to API clients. These are stable machine-readable
// identifiers; the HTTP status is derived from them at the adapter boundary.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidState         = "INVALID_STATE"
	CodeLimitExceeded        = "LIMIT_EXCEEDED"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeAmountExceedsBalance = "AMOUNT_EXCEEDS_BALANCE"
	CodeWindowExpired        = "WINDOW_EXPIRED"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewNotFound reports a missing entity by kind and identifier.
func NewNotFound(entity, id string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound, map[string]any{
		"entity": entity,
		"id":     id,
	})
}

// NewTerminalState reports money movement attempted on an entity that has
// reached a terminal status and can never leave it.
func NewTerminalState(entity, current string) error {
	return NewDomainError(CodeInvalidState,
		fmt.Sprintf("%s is closed", entity),
		http.StatusBadRequest, map[string]any{
			"entity":        entity,
			"current_state": current,
		})
}

// NewInvalidState reports an operation attempted against the wrong lifecycle state.
func NewInvalidState(entity, current, required string) error {
	return NewDomainError(CodeInvalidState,
		fmt.Sprintf("%s is not in %s state", entity, required),
		http.StatusBadRequest, map[string]any{
			"entity":         entity,
			"current_state":  current,
			"required_state": required,
		})
}

// NewLimitExceeded reports a requested balance that would exceed the credit limit.
func NewLimitExceeded(requested, limit int64) error {
	return NewDomainError(CodeLimitExceeded, "amount exceeds credit limit", http.StatusBadRequest, map[string]any{
		"requested": requested,
		"limit":     limit,
	})
}

func NewInvalidAmount(value int64) error {
	return NewDomainError(CodeInvalidAmount, "amount must be positive", http.StatusBadRequest, map[string]any{
		"value": value,
	})
}

func NewAmountExceedsBalance(amount, balance int64) error {
	return NewDomainError(CodeAmountExceedsBalance, "repayment amount exceeds disbursed amount", http.StatusBadRequest, map[string]any{
		"amount":  amount,
		"balance": balance,
	})
}

// NewWindowExpired reports an express disbursement attempted after the delivery window.
func NewWindowExpired(elapsed, window time.Duration) error {
	return NewDomainError(CodeWindowExpired, "express delivery window has expired", http.StatusBadRequest, map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
		"window_ms":  window.Milliseconds(),
	})
}

// NewStoreUnavailable wraps a storage failure. It is never retried by the core.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Network-level
// failures from the stores (refused connections, timeouts) classify as
// STORE_UNAVAILABLE regardless of which repository call surfaced them.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", "").(*DomainError); ok {
			return de
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.Timeout(err) {
		if de, ok := NewStoreUnavailable(err).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
