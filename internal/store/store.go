/*
Package store defines the persistence contract of the credit ledger.

A LedgerStore owns two tables: the balance of every account and the
append-only transaction log. Every mutating method is one atomic unit:
either the balance change and its transaction row both land, or neither
does. Implementations must serialise mutations per account; the ledger
keeps no authoritative balance in process memory.
*/
package store

import (
	"context"
	"time"

	"github.com/promptcraft/backend/internal/models"
)

// CreditParams describes a balance increase.
type CreditParams struct {
	UserID         string
	Amount         int64
	Type           models.TransactionType
	Description    string
	IdempotencyKey string
}

// AdjustParams describes an administrative override. Delta is signed.
type AdjustParams struct {
	AdminID      string
	TargetUserID string
	Delta        int64
	Description  string

	// Classify derives the adjustment risk level once the resulting
	// balance is known.
	Classify func(delta, after int64) models.RiskLevel
}

// LedgerStore is the Balance Store + Transaction Log.
type LedgerStore interface {
	// Deduct decrements the balance only if it covers amount, evaluated as a
	// single conditional update. On failure nothing is written.
	Deduct(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error)

	// Credit increments the balance, creating the account on first use.
	// A reused idempotency key returns a *DuplicateKeyError carrying the
	// transaction that already consumed it, or ErrIdempotencyKeyConflict
	// when that transaction belongs to another account.
	Credit(ctx context.Context, p CreditParams) (*models.Transaction, error)

	// Adjust applies an admin delta without any sufficiency check.
	Adjust(ctx context.Context, p AdjustParams) (*models.AdminAdjustment, *models.Transaction, error)

	// OpenAccount creates an empty account if none exists.
	OpenAccount(ctx context.Context, userID string) (*models.Account, error)

	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error)

	SaveAlert(ctx context.Context, alert *models.CreditAlert) error
	ListAlerts(ctx context.Context, f models.AlertFilter) ([]models.CreditAlert, int, error)
	ListAdjustments(ctx context.Context, f models.AdjustmentFilter) ([]models.AdminAdjustment, int, error)

	SaveReconciliation(ctx context.Context, entry *models.ReconciliationEntry) error
	ListReconciliation(ctx context.Context, limit, offset int) ([]models.ReconciliationEntry, int, error)

	Ping(ctx context.Context) error
}

// RechargeOrderStore is the durable record of recharge orders. Redis only
// caches them, so a payment confirmed after the cache entry expired still
// finds its order.
type RechargeOrderStore interface {
	SaveRechargeOrder(ctx context.Context, order *models.RechargeOrder) error

	// GetRechargeOrder returns ErrOrderNotFound for an unknown id.
	GetRechargeOrder(ctx context.Context, orderID string) (*models.RechargeOrder, error)

	// MarkRechargeOrderPaid moves a pending order to PAID. Marking an order
	// that is already paid is a no-op.
	MarkRechargeOrderPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) error
}
