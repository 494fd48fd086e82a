// Package postgres implements the ledger store on PostgreSQL.
//
// Deductions use a single conditional UPDATE so the sufficiency check and the
// write are one statement; credits and admin adjustments lock the account row
// with SELECT ... FOR UPDATE. In every case the balance update and the
// credit_transactions insert share one *sql.Tx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
)

const uniqueViolation = "23505"

// Store is the PostgreSQL LedgerStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ store.LedgerStore = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap("ping", s.db.PingContext(ctx))
}

func (s *Store) Deduct(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.Wrap("begin deduction", err)
	}
	defer tx.Rollback()

	now := s.now()

	// Check and decrement in one statement; concurrent deductions on the
	// same row queue on the row lock and re-evaluate the predicate.
	var balance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE credit_accounts
		SET balance = balance - $1, updated_at = $2
		WHERE user_id = $3 AND balance >= $1
		RETURNING balance`, amount, now, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.explainRejectedDeduction(ctx, tx, userID, amount)
	}
	if err != nil {
		return nil, store.Wrap("debit account", err)
	}

	entry := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          -amount,
		TransactionType: models.TransactionDeduction,
		Description:     description,
		BalanceAfter:    balance,
		CreatedAt:       now,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, store.Wrap("insert deduction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, store.Wrap("commit deduction", err)
	}
	return entry, nil
}

func (s *Store) explainRejectedDeduction(ctx context.Context, tx *sql.Tx, userID string, amount int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM credit_accounts WHERE user_id = $1`, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return store.Wrap("read balance", err)
	}
	return store.NewInsufficientCreditsError(userID, current, amount)
}

func (s *Store) Credit(ctx context.Context, p store.CreditParams) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.Wrap("begin credit", err)
	}
	defer tx.Rollback()

	now := s.now()
	if err := openAccount(ctx, tx, p.UserID, now); err != nil {
		return nil, store.Wrap("open account", err)
	}
	if _, err := lockAccount(ctx, tx, p.UserID); err != nil {
		return nil, err
	}

	if p.IdempotencyKey != "" {
		existing, err := findByIdempotencyKey(ctx, tx, p.IdempotencyKey)
		if err != nil {
			return nil, store.Wrap("lookup idempotency key", err)
		}
		if existing != nil {
			return nil, store.ReplayError(p.IdempotencyKey, p.UserID, existing)
		}
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE credit_accounts
		SET balance = balance + $1, updated_at = $2
		WHERE user_id = $3
		RETURNING balance`, p.Amount, now, p.UserID).Scan(&balance)
	if err != nil {
		return nil, store.Wrap("credit account", err)
	}

	entry := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		Amount:          p.Amount,
		TransactionType: p.Type,
		Description:     p.Description,
		IdempotencyKey:  p.IdempotencyKey,
		BalanceAfter:    balance,
		CreatedAt:       now,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		if isUniqueViolation(err) && p.IdempotencyKey != "" {
			tx.Rollback()
			return nil, s.duplicateAfterConflict(ctx, p.IdempotencyKey, p.UserID)
		}
		return nil, store.Wrap("insert credit", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, store.Wrap("commit credit", err)
	}
	return entry, nil
}

// duplicateAfterConflict resolves a unique-index race on the idempotency key
// after the losing transaction has been rolled back.
func (s *Store) duplicateAfterConflict(ctx context.Context, key, userID string) error {
	existing, err := findByIdempotencyKey(ctx, s.db, key)
	if err != nil {
		return store.Wrap("lookup idempotency key", err)
	}
	if existing == nil {
		return store.Wrap("lookup idempotency key", fmt.Errorf("key %q conflicted but is not visible", key))
	}
	return store.ReplayError(key, userID, existing)
}

func (s *Store) Adjust(ctx context.Context, p store.AdjustParams) (*models.AdminAdjustment, *models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, store.Wrap("begin adjustment", err)
	}
	defer tx.Rollback()

	now := s.now()
	if p.Delta > 0 {
		if err := openAccount(ctx, tx, p.TargetUserID, now); err != nil {
			return nil, nil, store.Wrap("open account", err)
		}
	}

	before, err := lockAccount(ctx, tx, p.TargetUserID)
	if err != nil {
		return nil, nil, err
	}
	after := before + p.Delta

	if _, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET balance = $1, updated_at = $2
		WHERE user_id = $3`, after, now, p.TargetUserID); err != nil {
		return nil, nil, store.Wrap("update balance", err)
	}

	txType := models.TransactionBonus
	if p.Delta < 0 {
		txType = models.TransactionDeduction
	}
	entry := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          p.TargetUserID,
		Amount:          p.Delta,
		TransactionType: txType,
		Description:     p.Description,
		BalanceAfter:    after,
		CreatedAt:       now,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, nil, store.Wrap("insert adjustment transaction", err)
	}

	risk := models.RiskLow
	if p.Classify != nil {
		risk = p.Classify(p.Delta, after)
	}
	adj := &models.AdminAdjustment{
		ID:            uuid.NewString(),
		AdminID:       p.AdminID,
		TargetUserID:  p.TargetUserID,
		TransactionID: entry.ID,
		CreditAmount:  p.Delta,
		BeforeBalance: before,
		AfterBalance:  after,
		Description:   p.Description,
		RiskLevel:     risk,
		CreatedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO admin_adjustments
		(id, admin_id, target_user_id, transaction_id, credit_amount, before_balance, after_balance, description, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		adj.ID, adj.AdminID, adj.TargetUserID, adj.TransactionID, adj.CreditAmount,
		adj.BeforeBalance, adj.AfterBalance, adj.Description, string(adj.RiskLevel), adj.CreatedAt); err != nil {
		return nil, nil, store.Wrap("insert admin adjustment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, store.Wrap("commit adjustment", err)
	}
	return adj, entry, nil
}

func (s *Store) OpenAccount(ctx context.Context, userID string) (*models.Account, error) {
	if err := openAccount(ctx, s.db, userID, s.now()); err != nil {
		return nil, store.Wrap("open account", err)
	}
	return s.GetAccount(ctx, userID)
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, balance, updated_at
		FROM credit_accounts
		WHERE user_id = $1`, userID).Scan(&account.UserID, &account.Balance, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.Wrap("get account", err)
	}
	return &account, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func openAccount(ctx context.Context, db execer, userID string, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO credit_accounts (user_id, balance, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, now)
	return err
}

func lockAccount(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `
		SELECT balance FROM credit_accounts
		WHERE user_id = $1
		FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, store.Wrap("lock account", err)
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, db execer, t *models.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO credit_transactions
		(id, user_id, amount, transaction_type, description, idempotency_key, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.Amount, string(t.TransactionType), t.Description,
		nullString(t.IdempotencyKey), t.BalanceAfter, t.CreatedAt)
	return err
}

func findByIdempotencyKey(ctx context.Context, db execer, key string) (*models.Transaction, error) {
	var (
		t      models.Transaction
		txType string
		idem   sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, transaction_type, description, idempotency_key, balance_after, created_at
		FROM credit_transactions
		WHERE idempotency_key = $1`, key).Scan(
		&t.ID, &t.UserID, &t.Amount, &txType, &t.Description, &idem, &t.BalanceAfter, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.TransactionType = models.TransactionType(txType)
	t.IdempotencyKey = idem.String
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
