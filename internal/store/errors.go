package store

import (
	"errors"
	"fmt"

	"github.com/promptcraft/backend/internal/models"
)

var (
	// ErrNotFound is returned when the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientCredits is returned when a deduction exceeds the balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrDuplicateIdempotencyKey is returned when a credit replays a key that
	// was already committed. Callers treat it as success.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrIdempotencyKeyConflict is returned when a key was already consumed
	// by a credit to a different account. Nothing is written.
	ErrIdempotencyKeyConflict = errors.New("idempotency key belongs to another account")

	// ErrOrderNotFound is returned when no recharge order has the given id.
	ErrOrderNotFound = errors.New("recharge order not found")

	// ErrStorage wraps every datastore failure.
	ErrStorage = errors.New("storage error")
)

// InsufficientCreditsError carries the shortfall of a rejected deduction.
type InsufficientCreditsError struct {
	UserID         string
	CurrentBalance int64
	Requested      int64
	Deficit        int64
}

func NewInsufficientCreditsError(userID string, current, requested int64) *InsufficientCreditsError {
	return &InsufficientCreditsError{
		UserID:         userID,
		CurrentBalance: current,
		Requested:      requested,
		Deficit:        requested - current,
	}
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, requested %d, deficit %d",
		e.CurrentBalance, e.Requested, e.Deficit)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// DuplicateKeyError points at the transaction that already used Key.
type DuplicateKeyError struct {
	Key      string
	Existing *models.Transaction
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate idempotency key %q", e.Key)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateIdempotencyKey
}

// ReplayError is the outcome of a credit for userID whose key was already
// consumed by existing.
func ReplayError(key, userID string, existing *models.Transaction) error {
	if existing.UserID != userID {
		return fmt.Errorf("%w: %q", ErrIdempotencyKeyConflict, key)
	}
	return &DuplicateKeyError{Key: key, Existing: existing}
}

// storageError keeps the driver error visible while matching ErrStorage.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.op, e.err)
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorage, e.err}
}

// Wrap marks err as a datastore failure of op. Ledger errors pass through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) || errors.Is(err, ErrIdempotencyKeyConflict) ||
		errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &storageError{op: op, err: err}
}
