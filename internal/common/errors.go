package common

import (
	"errors"
	"net/http"
)

// Error codes raised by the checkout core. All of them are recoverable by user
// correction and the UI layer surfaces the message verbatim.
const (
	CodeValidation          = "VALIDATION"
	CodeCurrencyMismatch    = "CURRENCY_MISMATCH"
	CodeOverpayment         = "OVERPAYMENT"
	CodeMissingCatalogItems = "MISSING_CATALOG_ITEMS"
	CodePostingFailed       = "POSTING_FAILED"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError reports missing or malformed checkout inputs.
func ValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusUnprocessableEntity}
}

// CurrencyMismatchError reports a payment amount in the wrong settlement currency.
func CurrencyMismatchError(message string) *AppError {
	return &AppError{Code: CodeCurrencyMismatch, Message: message, HTTPStatus: http.StatusUnprocessableEntity}
}

// OverpaymentError reports a paid amount exceeding the invoice total beyond tolerance.
func OverpaymentError(message string) *AppError {
	return &AppError{Code: CodeOverpayment, Message: message, HTTPStatus: http.StatusUnprocessableEntity}
}

// MissingCatalogItemsError blocks a forced single-company posting when the target
// catalog does not cover every cart item. Details carries the missing item ids.
func MissingCatalogItemsError(message string, missingItemIDs []string) *AppError {
	return &AppError{
		Code:       CodeMissingCatalogItems,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"missingItemIds": missingItemIDs},
	}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrorCode extracts the AppError code, or empty when the error is not an AppError.
func ErrorCode(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
