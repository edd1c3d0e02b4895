package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes used across services and handlers.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodePaymentUnconfirmed = "PAYMENT_UNCONFIRMED"
	CodeStoreWriteFailed   = "STORE_WRITE_FAILED"
	CodeDecodeFailed       = "DECODE_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewPaymentFailedError wraps an explicit rejection from the payment layer.
func NewPaymentFailedError(err error) *AppError {
	return &AppError{
		Code:    CodePaymentFailed,
		Message: "Payment was rejected",
		Err:     err,
	}
}

// NewPaymentUnconfirmedError marks a payment whose confirmation signal never
// arrived. Callers must treat it exactly like a failure, never a success.
func NewPaymentUnconfirmedError(err error) *AppError {
	return &AppError{
		Code:    CodePaymentUnconfirmed,
		Message: "Payment confirmation did not arrive",
		Err:     err,
	}
}

func NewStoreWriteError(err error) *AppError {
	return &AppError{
		Code:    CodeStoreWriteFailed,
		Message: "Failed to persist record",
		Err:     err,
	}
}

func NewDecodeError(err error) *AppError {
	return &AppError{
		Code:    CodeDecodeFailed,
		Message: "Encoded payload is malformed",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
