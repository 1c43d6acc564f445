package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidAmount = "INVALID_AMOUNT"
	CodeSignature     = "SIGNATURE_INVALID"
	CodePayment       = "PAYMENT_FAILED"
	CodeDuplicate     = "DUPLICATE_SUBMISSION"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
)

// AppError represents an application error
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON response structure for errors
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToJSON converts an error to the standard JSON response
func ToJSON(err error, traceID string) (int, []byte) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = &AppError{
			Code:    CodeInternal,
			Message: "An internal error occurred",
		}
	}

	response := ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		TraceID: traceID,
	}

	data, _ := json.Marshal(response)
	return HTTPStatus(appErr), data
}

// HTTPStatus returns the HTTP status code for an error
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation, CodeInvalidAmount, CodeSignature:
		return http.StatusBadRequest
	case CodePayment:
		return http.StatusPaymentRequired
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicate:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Constructor functions

// NewValidation creates a validation error
func NewValidation(message string, details interface{}) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NewInvalidAmount creates an invalid amount error
func NewInvalidAmount(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidAmount,
		Message: message,
	}
}

// NewSignatureInvalid creates a signature verification error
func NewSignatureInvalid(message string) *AppError {
	return &AppError{
		Code:    CodeSignature,
		Message: message,
	}
}

// NewPaymentFailed creates a payment failure error carrying the provider's code
func NewPaymentFailed(message, providerCode string) *AppError {
	return &AppError{
		Code:    CodePayment,
		Message: message,
		Details: map[string]interface{}{"provider_code": providerCode},
	}
}

// NewDuplicate creates a duplicate submission error
func NewDuplicate(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id '%v' not found", resource, id),
	}
}

// NewConflict creates a conflict error
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbidden creates a forbidden error
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// Is checks if an error matches a specific code
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message + ": " + appErr.Message,
			Details: appErr.Details,
			Err:     err,
		}
	}
	return NewInternal(message, err)
}
