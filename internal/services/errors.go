package services

import (
	"errors"

	"github.com/promptcraft/backend/internal/store"
)

// Ledger errors surfaced to callers. Store errors are re-exported so handlers
// depend on one package.
var (
	ErrInvalidAmount          = errors.New("amount must be a positive integer")
	ErrMissingDescription     = errors.New("description is required")
	ErrDescriptionTooLong     = errors.New("description exceeds 500 characters")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrMissingIdempotencyKey  = errors.New("idempotency key is required for recharge")
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidDirection       = errors.New("operation_type must be add or subtract")
	ErrInvalidRiskLevel       = errors.New("risk_level must be LOW, MEDIUM or HIGH")

	ErrNotFound                = store.ErrNotFound
	ErrInsufficientCredits     = store.ErrInsufficientCredits
	ErrDuplicateIdempotencyKey = store.ErrDuplicateIdempotencyKey
	ErrIdempotencyKeyConflict  = store.ErrIdempotencyKeyConflict
	ErrStorage                 = store.ErrStorage
)

// InsufficientCreditsError carries current_balance and deficit.
type InsufficientCreditsError = store.InsufficientCreditsError

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingDescription) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrInvalidTransactionType) ||
		errors.Is(err, ErrMissingIdempotencyKey) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInvalidRiskLevel) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrCreditsOutOfRange)
}

// resultLabel classifies err for the ledger operations metric.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrInsufficientCredits):
		return "insufficient"
	case errors.Is(err, ErrDuplicateIdempotencyKey):
		return "duplicate"
	case errors.Is(err, ErrIdempotencyKeyConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
