package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger errors. Services wrap these with entity context; handlers map them
// to HTTP status codes with errors.Is / errors.As.
var (
	// ErrOverAllocation is returned when distribution percentages on an Ata
	// would exceed 100.
	ErrOverAllocation = errors.New("distribution exceeds the available percentage")

	// ErrInsufficientBalance is returned when a requested quantity exceeds a
	// contract item's remaining balance.
	ErrInsufficientBalance = errors.New("insufficient contract item balance")

	// ErrInvoiceLocked is returned on any mutation of a paid invoice.
	ErrInvoiceLocked = errors.New("invoice is paid and can no longer be changed")

	// ErrDanglingReference is returned when deleting an entity that is still
	// referenced by a dependent one.
	ErrDanglingReference = errors.New("entity is referenced by dependent records")

	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// BudgetExceededError reports a contract value above its sibling-adjusted
// secretariat allocation. Use errors.As to recover the amounts.
type BudgetExceededError struct {
	Secretariat string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("contract value %s exceeds the available budget %s for secretariat %q",
		e.Requested, e.Available, e.Secretariat)
}

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"
)

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"lt":       "Must be less than maximum value",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
	"numeric":  "Must be a numeric value",
	"datetime": "Must be a valid date",
	"len":      "Must be exactly the specified length",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}
