package services

import (
	"context"
	"errors"
	"time"

	"github.com/promptcraft/backend/internal/metrics"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrActionFailed marks a metered action that failed; nothing was charged.
	ErrActionFailed = errors.New("metered action failed")

	// ErrEmptyOutput is reported when an action succeeds without usable output.
	ErrEmptyOutput = errors.New("metered action returned no output")
)

// ActionError wraps the failure of the metered action itself.
type ActionError struct {
	Err error
}

func (e *ActionError) Error() string {
	return ErrActionFailed.Error() + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrActionFailed, e.Err}
}

// MeteredAction is the external work being billed. A nil output with a nil
// error counts as failure.
type MeteredAction func(ctx context.Context) (any, error)

// Admission describes one billable call.
type Admission struct {
	UserID      string
	Cost        int64
	Description string
}

// AdmissionResult is returned whenever the action succeeded. Charged is false
// when the post-success deduction failed; ChargeError then says why.
type AdmissionResult struct {
	Output        any
	Charged       bool
	TransactionID string
	NewBalance    int64
	ChargeError   error
}

// BalanceChecker is the slice of the ledger the controller needs.
type BalanceChecker interface {
	HasSufficient(ctx context.Context, userID string, amount int64) (*SufficiencyResult, error)
	Deduct(ctx context.Context, userID string, amount int64, description string) (*DeductResult, error)
}

// ReconciliationRecorder persists uncharged successes.
type ReconciliationRecorder interface {
	SaveReconciliation(ctx context.Context, entry *models.ReconciliationEntry) error
}

// AdmissionController bills metered actions only after they succeed.
type AdmissionController struct {
	ledger        BalanceChecker
	recorder      ReconciliationRecorder
	log           logrus.FieldLogger
	chargeTimeout time.Duration
	now           func() time.Time
}

func NewAdmissionController(ledger BalanceChecker, recorder ReconciliationRecorder, log logrus.FieldLogger) *AdmissionController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdmissionController{
		ledger:        ledger,
		recorder:      recorder,
		log:           log.WithField("component", "admission"),
		chargeTimeout: 5 * time.Second,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run performs the advisory pre-check, executes action and deducts the cost
// only if the action succeeded. A pre-check shortfall returns
// *InsufficientCreditsError without invoking action. A failed deduction after
// success does not fail the call: the output is returned uncharged and the
// discrepancy is recorded for reconciliation.
func (c *AdmissionController) Run(ctx context.Context, a Admission, action MeteredAction) (*AdmissionResult, error) {
	check, err := c.ledger.HasSufficient(ctx, a.UserID, a.Cost)
	if err != nil {
		return nil, err
	}
	if !check.Sufficient {
		return nil, NewInsufficientCreditsError(a.UserID, check.CurrentBalance, a.Cost)
	}

	output, err := action(ctx)
	if err == nil && output == nil {
		err = ErrEmptyOutput
	}
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"user_id": a.UserID,
			"cost":    a.Cost,
		}).WithError(err).Info("Metered action failed, nothing charged")
		return nil, &ActionError{Err: err}
	}

	result := &AdmissionResult{Output: output}

	// The charge outlives caller cancellation.
	chargeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.chargeTimeout)
	defer cancel()

	deducted, err := c.ledger.Deduct(chargeCtx, a.UserID, a.Cost, a.Description)
	if err != nil {
		result.ChargeError = err
		c.recordUncharged(chargeCtx, a, err)
		return result, nil
	}

	result.Charged = true
	result.TransactionID = deducted.TransactionID
	result.NewBalance = deducted.NewBalance
	return result, nil
}

func (c *AdmissionController) recordUncharged(ctx context.Context, a Admission, cause error) {
	metrics.RecordUnchargedAction()
	entry := c.log.WithFields(logrus.Fields{
		"user_id":     a.UserID,
		"cost":        a.Cost,
		"description": a.Description,
	}).WithError(cause)
	entry.Error("Metered action succeeded but could not be charged")

	if c.recorder == nil {
		return
	}
	if err := c.recorder.SaveReconciliation(ctx, &models.ReconciliationEntry{
		UserID:      a.UserID,
		Amount:      a.Cost,
		Description: a.Description,
		Reason:      cause.Error(),
		CreatedAt:   c.now(),
	}); err != nil {
		entry.WithField("reconciliation_error", err.Error()).Error("Failed to record uncharged action")
	}
}

// NewInsufficientCreditsError builds the shortfall error for a requested amount.
func NewInsufficientCreditsError(userID string, current, requested int64) *InsufficientCreditsError {
	return store.NewInsufficientCreditsError(userID, current, requested)
}
