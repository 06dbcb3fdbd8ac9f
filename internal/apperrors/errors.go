package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeMissingLocation    = "MISSING_LOCATION"
	CodeAlreadyFinalized   = "ALREADY_FINALIZED"
	CodeAlreadyPaid        = "ALREADY_PAID"
	CodeInvalidPricing     = "INVALID_PRICING_SCHEMA"
	CodeFeeMismatch        = "FEE_MISMATCH"
	CodeMembershipDisabled = "MEMBERSHIP_DISABLED"
	CodePaymentLinkExpired = "PAYMENT_LINK_EXPIRED"
)

// AppError carries an error code and the HTTP status it renders as.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Validation(message string) *AppError {
	return New(CodeValidationError, message, http.StatusBadRequest)
}

func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).WithDetail("id", id)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Internal(err error) *AppError {
	return New(CodeInternalError, "an internal error occurred", http.StatusInternalServerError).Wrap(err)
}

func MissingLocation(locationID string) *AppError {
	return New(CodeMissingLocation, "package location cannot be resolved", http.StatusUnprocessableEntity).
		WithDetail("locationId", locationID)
}

func AlreadyFinalized(packageID string) *AppError {
	return New(CodeAlreadyFinalized, "package was already picked up or destroyed", http.StatusConflict).
		WithDetail("packageId", packageID)
}

func AlreadyPaid(packageID string) *AppError {
	return New(CodeAlreadyPaid, "package fee was already paid", http.StatusConflict).
		WithDetail("packageId", packageID)
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From returns err as an AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(err)
}

// CodeOf returns the code of err, or "" when err is not an AppError.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}
