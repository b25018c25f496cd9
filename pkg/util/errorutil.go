package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes rendered to API clients.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeConflict       = "CONFLICT"
	CodeAlreadyClaimed = "ALREADY_CLAIMED"
	CodeNotOwner       = "NOT_OWNER"
	CodeInternal       = "INTERNAL_ERROR"
	CodeUnavailable    = "UNAVAILABLE"
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

// Is matches DomainErrors by code so callers can use errors.Is against the exported sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrValidation     = &DomainError{Code: CodeValidation}
	ErrNotFound       = &DomainError{Code: CodeNotFound}
	ErrConflict       = &DomainError{Code: CodeConflict}
	ErrAlreadyClaimed = &DomainError{Code: CodeAlreadyClaimed}
	ErrNotOwner       = &DomainError{Code: CodeNotOwner}
	ErrForbidden      = &DomainError{Code: CodeForbidden}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports a malformed enum value or a missing required field.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
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

// NewAlreadyClaimed reports that another admin currently owns the ticket.
func NewAlreadyClaimed(ownerID, ownerName string) error {
	display := ownerName
	if display == "" {
		display = ownerID
	}
	return NewDomainError(CodeAlreadyClaimed, fmt.Sprintf("ticket already claimed by %s", display), http.StatusConflict, map[string]any{
		"current_owner_id":   ownerID,
		"current_owner_name": ownerName,
	})
}

// NewNotOwner reports a release attempted by an admin who does not hold the claim.
// ownerID is empty when the ticket is unclaimed.
func NewNotOwner(ownerID string) error {
	details := map[string]any{"current_owner_id": nil}
	if ownerID != "" {
		details["current_owner_id"] = ownerID
	}
	return NewDomainError(CodeNotOwner, "ticket is not claimed by you", http.StatusConflict, details)
}

// NewUnavailable reports a request abandoned before it could complete, usually a cancelled context.
func NewUnavailable(message string, err error) error {
	return &DomainError{
		Code:       CodeUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts err into a DomainError, leaving nil untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsBusinessOutcome reports whether err is an expected, user-facing claim outcome.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNotOwner)
}
