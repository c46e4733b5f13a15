package wager

import (
	"fmt"
	"net/http"
)

// Code classifies why a wager request was rejected.
type Code string

const (
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeWalletNotFound     Code = "WALLET_NOT_FOUND"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeMarketNotFound     Code = "MARKET_NOT_FOUND"
	CodeMarketMismatch     Code = "MARKET_MISMATCH"
	CodeMarketClosed       Code = "MARKET_CLOSED"
	CodeBettingLocked      Code = "BETTING_LOCKED"
	CodeOutcomeNotFound    Code = "OUTCOME_NOT_FOUND"
	CodeStakeLimitExceeded Code = "STAKE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL"
)

// Error is a rejection with a stable code and a human-readable message.
// Precondition failures are detected before the transaction begins; the
// in-transaction close recheck keeps CodeMarketClosed, every other
// transactional failure surfaces as CodeInternal.
type Error struct {
	Code    Code
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a rejection error.
func E(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// internalErr wraps an unexpected failure, preserving the underlying
// message for the caller per the error contract.
func internalErr(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error: " + err.Error(), Err: err}
}

// HTTPStatus maps a rejection code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeWalletNotFound, CodeMarketNotFound, CodeOutcomeNotFound:
		return http.StatusNotFound
	case CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case CodeMarketMismatch:
		return http.StatusBadRequest
	case CodeMarketClosed, CodeBettingLocked, CodeStakeLimitExceeded:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
