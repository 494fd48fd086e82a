package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
)

// filter accumulates numbered WHERE conditions.
type filter struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

func newFilter() *filter {
	return &filter{argIndex: 1}
}

func (f *filter) add(column, op string, value interface{}) {
	f.conditions = append(f.conditions, fmt.Sprintf("%s %s $%d", column, op, f.argIndex))
	f.args = append(f.args, value)
	f.argIndex++
}

func (f *filter) addRange(column string, from, to *time.Time) {
	if from != nil {
		f.add(column, ">=", *from)
	}
	if to != nil {
		f.add(column, "<=", *to)
	}
}

func (f *filter) where() string {
	if len(f.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conditions, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the full argument list.
func (f *filter) page(limit, offset int) (string, []interface{}) {
	clause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", f.argIndex, f.argIndex+1)
	args := append(append([]interface{}{}, f.args...), limit, offset)
	return clause, args
}

func (s *Store) count(ctx context.Context, table string, f *filter) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+f.where(), f.args...).Scan(&total)
	return total, err
}

func (s *Store) ListTransactions(ctx context.Context, tf models.TransactionFilter) ([]models.Transaction, int, error) {
	f := newFilter()
	f.add("user_id", "=", tf.UserID)
	if tf.Type != "" {
		f.add("transaction_type", "=", string(tf.Type))
	}
	f.addRange("created_at", tf.From, tf.To)

	total, err := s.count(ctx, "credit_transactions", f)
	if err != nil {
		return nil, 0, store.Wrap("count transactions", err)
	}

	pageClause, args := f.page(tf.Limit, tf.Offset)
	query := `
		SELECT id, user_id, amount, transaction_type, description, idempotency_key, balance_after, created_at
		FROM credit_transactions` + f.where() + " ORDER BY created_at DESC, id DESC" + pageClause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, store.Wrap("list transactions", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var (
			t      models.Transaction
			txType string
			idem   sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &txType, &t.Description, &idem, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, 0, store.Wrap("scan transaction", err)
		}
		t.TransactionType = models.TransactionType(txType)
		t.IdempotencyKey = idem.String
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Wrap("list transactions", err)
	}
	return transactions, total, nil
}

func (s *Store) SaveAlert(ctx context.Context, alert *models.CreditAlert) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credit_alerts
		(transaction_id, user_id, amount, transaction_type, risk_level, source, admin_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		alert.TransactionID, alert.UserID, alert.Amount, string(alert.TransactionType),
		string(alert.RiskLevel), alert.Source, nullString(alert.AdminID), alert.Description, alert.CreatedAt,
	).Scan(&alert.ID)
	return store.Wrap("save alert", err)
}

func (s *Store) ListAlerts(ctx context.Context, af models.AlertFilter) ([]models.CreditAlert, int, error) {
	f := newFilter()
	if af.RiskLevel != "" {
		f.add("risk_level", "=", string(af.RiskLevel))
	}
	f.addRange("created_at", af.From, af.To)

	total, err := s.count(ctx, "credit_alerts", f)
	if err != nil {
		return nil, 0, store.Wrap("count alerts", err)
	}

	pageClause, args := f.page(af.Limit, af.Offset)
	query := `
		SELECT id, transaction_id, user_id, amount, transaction_type, risk_level, source,
		       COALESCE(admin_id, ''), description, created_at
		FROM credit_alerts` + f.where() + " ORDER BY created_at DESC, id DESC" + pageClause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, store.Wrap("list alerts", err)
	}
	defer rows.Close()

	alerts := []models.CreditAlert{}
	for rows.Next() {
		var (
			a      models.CreditAlert
			txType string
			risk   string
		)
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.UserID, &a.Amount, &txType, &risk,
			&a.Source, &a.AdminID, &a.Description, &a.CreatedAt); err != nil {
			return nil, 0, store.Wrap("scan alert", err)
		}
		a.TransactionType = models.TransactionType(txType)
		a.RiskLevel = models.RiskLevel(risk)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Wrap("list alerts", err)
	}
	return alerts, total, nil
}

func (s *Store) ListAdjustments(ctx context.Context, af models.AdjustmentFilter) ([]models.AdminAdjustment, int, error) {
	f := newFilter()
	if af.TargetUserID != "" {
		f.add("target_user_id", "=", af.TargetUserID)
	}
	f.addRange("created_at", af.From, af.To)

	total, err := s.count(ctx, "admin_adjustments", f)
	if err != nil {
		return nil, 0, store.Wrap("count adjustments", err)
	}

	pageClause, args := f.page(af.Limit, af.Offset)
	query := `
		SELECT id, admin_id, target_user_id, transaction_id, credit_amount,
		       before_balance, after_balance, description, risk_level, created_at
		FROM admin_adjustments` + f.where() + " ORDER BY created_at DESC, id DESC" + pageClause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, store.Wrap("list adjustments", err)
	}
	defer rows.Close()

	adjustments := []models.AdminAdjustment{}
	for rows.Next() {
		var (
			a    models.AdminAdjustment
			risk string
		)
		if err := rows.Scan(&a.ID, &a.AdminID, &a.TargetUserID, &a.TransactionID, &a.CreditAmount,
			&a.BeforeBalance, &a.AfterBalance, &a.Description, &risk, &a.CreatedAt); err != nil {
			return nil, 0, store.Wrap("scan adjustment", err)
		}
		a.RiskLevel = models.RiskLevel(risk)
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Wrap("list adjustments", err)
	}
	return adjustments, total, nil
}

func (s *Store) SaveReconciliation(ctx context.Context, entry *models.ReconciliationEntry) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credit_reconciliation (user_id, amount, description, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.UserID, entry.Amount, entry.Description, entry.Reason, entry.CreatedAt,
	).Scan(&entry.ID)
	return store.Wrap("save reconciliation", err)
}

func (s *Store) ListReconciliation(ctx context.Context, limit, offset int) ([]models.ReconciliationEntry, int, error) {
	f := newFilter()
	total, err := s.count(ctx, "credit_reconciliation", f)
	if err != nil {
		return nil, 0, store.Wrap("count reconciliation", err)
	}

	pageClause, args := f.page(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, description, reason, created_at
		FROM credit_reconciliation
		ORDER BY created_at DESC, id DESC`+pageClause, args...)
	if err != nil {
		return nil, 0, store.Wrap("list reconciliation", err)
	}
	defer rows.Close()

	entries := []models.ReconciliationEntry{}
	for rows.Next() {
		var e models.ReconciliationEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Description, &e.Reason, &e.CreatedAt); err != nil {
			return nil, 0, store.Wrap("scan reconciliation", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Wrap("list reconciliation", err)
	}
	return entries, total, nil
}
