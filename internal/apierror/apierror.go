package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Guard and ledger decision codes. These are part of the caller contract:
	// a SECURITY_VIOLATION is never downgraded, an APPROVAL_REQUIRED carries
	// enough detail to start a new approval request, a TRANSIENT_CONFLICT is
	// safe to retry from the orchestrating layer.
	ErrSecurityViolation     ErrorCode = "SECURITY_VIOLATION"
	ErrApprovalRequired      ErrorCode = "APPROVAL_REQUIRED"
	ErrBusinessRuleViolation ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrTransientConflict     ErrorCode = "TRANSIENT_CONFLICT"
	ErrAuditSinkFailure      ErrorCode = "AUDIT_SINK_FAILURE"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Code extracts the error code from an error, or INTERNAL_SERVER_ERROR when the
// error did not originate from this package.
func Code(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalServer
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Postgres error classes that surface mutex contention or write races:
// serialization_failure, deadlock_detected, lock_not_available and
// unique_violation on a document number all mean the operation lost a race and
// can be redone from scratch.
var transientPgCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"23505": {}, // unique_violation
}

// IsTransientConflict classifies an error as retryable contention. Anything
// else is treated as fatal by the retry policy.
func IsTransientConflict(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrTransientConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		_, ok := transientPgCodes[string(pqErr.Code)]
		return ok
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict:
			return http.StatusConflict
		case ErrInvalidInput:
			return http.StatusBadRequest
		case ErrSecurityViolation:
			return http.StatusForbidden
		case ErrApprovalRequired:
			return http.StatusPreconditionRequired
		case ErrBusinessRuleViolation:
			return http.StatusUnprocessableEntity
		case ErrTransientConflict:
			return http.StatusConflict
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
