package models

import "time"

// RiskLevel is the audit tier assigned to a balance movement.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders risk levels so they can be compared.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	}
	return 0
}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// AdjustDirection is the admin adjustment operation type.
type AdjustDirection string

const (
	AdjustAdd      AdjustDirection = "add"
	AdjustSubtract AdjustDirection = "subtract"
)

// AdminAdjustment records an administrative balance override.
type AdminAdjustment struct {
	ID            string    `json:"id" db:"id"`
	AdminID       string    `json:"admin_id" db:"admin_id"`
	TargetUserID  string    `json:"target_user_id" db:"target_user_id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	CreditAmount  int64     `json:"credit_amount" db:"credit_amount"`
	BeforeBalance int64     `json:"before_balance" db:"before_balance"`
	AfterBalance  int64     `json:"after_balance" db:"after_balance"`
	Description   string    `json:"description" db:"description"`
	RiskLevel     RiskLevel `json:"risk_level" db:"risk_level"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Alert sources.
const (
	AlertSourceTransaction = "transaction"
	AlertSourceAdjustment  = "admin_adjustment"
)

// CreditAlert is a risk-classified movement kept for administrative review.
type CreditAlert struct {
	ID              int64           `json:"id" db:"id"`
	TransactionID   string          `json:"transaction_id" db:"transaction_id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Amount          int64           `json:"amount" db:"amount"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	RiskLevel       RiskLevel       `json:"risk_level" db:"risk_level"`
	Source          string          `json:"source" db:"source"`
	AdminID         string          `json:"admin_id,omitempty" db:"admin_id"`
	Description     string          `json:"description" db:"description"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// AlertFilter selects a page of alerts.
type AlertFilter struct {
	RiskLevel RiskLevel
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// AdjustmentFilter selects a page of admin adjustments.
type AdjustmentFilter struct {
	TargetUserID string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// ReconciliationEntry is a metered action that succeeded but could not be charged.
type ReconciliationEntry struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Amount      int64     `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	Reason      string    `json:"reason" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
