package services

import (
	"time"

	"github.com/promptcraft/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditEvent is one structured audit line.
type AuditEvent struct {
	Timestamp     time.Time        `json:"timestamp"`
	EventType     string           `json:"event_type"`
	TransactionID string           `json:"transaction_id"`
	AccountID     string           `json:"account_id"`
	Amount        int64            `json:"amount"`
	BalanceAfter  int64            `json:"balance_after"`
	RiskLevel     models.RiskLevel `json:"risk_level"`
	Details       any              `json:"details,omitempty"`
}

// AuditLogger writes audit events under the audit component.
type AuditLogger struct {
	log logrus.FieldLogger
}

func NewAuditLogger(log logrus.FieldLogger) *AuditLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuditLogger{log: log.WithField("component", "audit")}
}

func (a *AuditLogger) LogTransaction(tx models.Transaction, risk models.RiskLevel) {
	a.write(AuditEvent{
		Timestamp:     tx.CreatedAt,
		EventType:     "CREDIT_" + string(tx.TransactionType),
		TransactionID: tx.ID,
		AccountID:     tx.UserID,
		Amount:        tx.Amount,
		BalanceAfter:  tx.BalanceAfter,
		RiskLevel:     risk,
		Details:       map[string]string{"description": tx.Description},
	})
}

func (a *AuditLogger) LogAdjustment(adj models.AdminAdjustment) {
	a.write(AuditEvent{
		Timestamp:     adj.CreatedAt,
		EventType:     "ADMIN_ADJUSTMENT",
		TransactionID: adj.TransactionID,
		AccountID:     adj.TargetUserID,
		Amount:        adj.CreditAmount,
		BalanceAfter:  adj.AfterBalance,
		RiskLevel:     adj.RiskLevel,
		Details: map[string]any{
			"admin_id":       adj.AdminID,
			"before_balance": adj.BeforeBalance,
			"description":    adj.Description,
		},
	})
}

func (a *AuditLogger) LogError(transactionID, accountID string, err error) {
	a.log.WithFields(logrus.Fields{
		"event_type":     "ERROR",
		"transaction_id": transactionID,
		"account_id":     accountID,
	}).WithError(err).Error("AUDIT")
}

func (a *AuditLogger) write(event AuditEvent) {
	a.log.WithField("audit", event).Info("AUDIT")
}
