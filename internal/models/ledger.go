package models

import (
	"time"
)

// TransactionType tags every credit_transactions row.
type TransactionType string

const (
	TransactionDeduction TransactionType = "deduction"
	TransactionBonus     TransactionType = "bonus"
	TransactionRefund    TransactionType = "refund"
	TransactionRecharge  TransactionType = "recharge"
)

// Valid reports whether t is one of the four ledger transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeduction, TransactionBonus, TransactionRefund, TransactionRecharge:
		return true
	}
	return false
}

// IsCredit reports whether t increases a balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionBonus || t == TransactionRefund || t == TransactionRecharge
}

// Account holds the authoritative credit balance of one user.
type Account struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an immutable entry of the credit log. Amount is signed:
// negative for deductions, positive for everything else.
type Transaction struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Amount          int64           `json:"amount" db:"amount"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	Description     string          `json:"description" db:"description"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	BalanceAfter    int64           `json:"balance_after" db:"balance_after"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
