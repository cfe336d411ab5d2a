// Package domainerrors defines the coded error taxonomy shared by every
// service in the engine. All codes represent synchronous, non-retryable
// validation or invariant failures; handlers translate them to HTTP statuses
// with ToHTTPStatus and callers branch with Is.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of its message.
type Code string

const (
	// Ambient codes used across all services.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"

	// Movement escrow protocol failures.
	CodeDuplicateMovement        Code = "duplicate_movement"
	CodeInsufficientProjectFunds Code = "insufficient_project_funds"
	CodeSelfApprovalForbidden    Code = "self_approval_forbidden"
	CodeSelfRejectionForbidden   Code = "self_rejection_forbidden"
	CodeDuplicateReviewer        Code = "duplicate_reviewer"
	CodeMovementAlreadyFinalized Code = "movement_already_finalized"

	// Accord ledger failures.
	CodeAccordNotFound        Code = "accord_not_found"
	CodeAccordAlreadyTerminal Code = "accord_already_terminal"
	CodeInvalidSeverityClass  Code = "invalid_severity_class"

	// Asset ledger boundary failures.
	CodeAssetTransferFailed Code = "asset_transfer_failed"
)

// Error is a coded domain error. Message should carry enough context (slug,
// actor, current status) to diagnose the rejection without retrying.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a coded error with a static message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to the status the HTTP boundary writes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidSeverityClass:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeAccordNotFound:
		return http.StatusNotFound
	case CodeDuplicateMovement, CodeMovementAlreadyFinalized,
		CodeAccordAlreadyTerminal, CodeDuplicateReviewer:
		return http.StatusConflict
	case CodeSelfApprovalForbidden, CodeSelfRejectionForbidden:
		return http.StatusForbidden
	case CodeInsufficientProjectFunds:
		return http.StatusUnprocessableEntity
	case CodeAssetTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
