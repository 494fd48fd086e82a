package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/promptcraft/backend/internal/metrics"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	maxDescriptionLength = 500
	maxUserIDLength      = 64
)

// AuditPublisher receives every committed mutation.
type AuditPublisher interface {
	Publish(ev LedgerEvent)
}

type LedgerOptions struct {
	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

// LedgerService is the ledger engine. All balance arithmetic happens inside
// the store's atomic units; this layer validates, reports and publishes.
type LedgerService struct {
	store      store.LedgerStore
	classifier *RiskClassifier
	audit      AuditPublisher
	opts       LedgerOptions
	log        logrus.FieldLogger
}

func NewLedgerService(st store.LedgerStore, classifier *RiskClassifier, audit AuditPublisher, opts LedgerOptions, log logrus.FieldLogger) *LedgerService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.HistoryDefaultLimit <= 0 {
		opts.HistoryDefaultLimit = defaultPageLimit
	}
	if opts.HistoryMaxLimit < opts.HistoryDefaultLimit {
		opts.HistoryMaxLimit = maxPageLimit
	}
	return &LedgerService{
		store:      st,
		classifier: classifier,
		audit:      audit,
		opts:       opts,
		log:        log.WithField("component", "ledger"),
	}
}

type DeductResult struct {
	TransactionID string              `json:"transaction_id"`
	NewBalance    int64               `json:"new_balance"`
	Transaction   *models.Transaction `json:"-"`
}

type CreditRequest struct {
	UserID         string
	Amount         int64
	Type           models.TransactionType
	Description    string
	IdempotencyKey string
}

// CreditResult reports a committed credit. Duplicate is set when the
// idempotency key had already been consumed; NewBalance is then the balance
// that original credit produced.
type CreditResult struct {
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
	Duplicate     bool   `json:"duplicate"`
}

type AdjustRequest struct {
	AdminID      string
	TargetUserID string
	Amount       int64
	Direction    models.AdjustDirection
	Description  string
}

type AdjustResult struct {
	AdjustmentID  string           `json:"adjustment_id"`
	TransactionID string           `json:"transaction_id"`
	UserID        string           `json:"user_id"`
	BeforeBalance int64            `json:"before_balance"`
	AfterBalance  int64            `json:"after_balance"`
	RiskLevel     models.RiskLevel `json:"risk_level"`
	Warning       string           `json:"warning,omitempty"`
}

type SufficiencyResult struct {
	Sufficient     bool  `json:"sufficient"`
	CurrentBalance int64 `json:"current_balance"`
	Deficit        int64 `json:"deficit"`
}

type HistoryQuery struct {
	UserID string
	Page   int
	Limit  int
	Type   string
	From   *time.Time
	To     *time.Time
}

type HistoryResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   models.Pagination    `json:"pagination"`
}

// Deduct removes amount from the user's balance if, and only if, the balance
// covers it. A rejected deduction changes nothing.
func (l *LedgerService) Deduct(ctx context.Context, userID string, amount int64, description string) (*DeductResult, error) {
	description = strings.TrimSpace(description)
	err := firstError(validateUserID(userID), validateAmount(amount), validateDescription(description))
	if err != nil {
		metrics.RecordLedgerOperation("deduct", resultLabel(err))
		return nil, err
	}

	tx, err := l.store.Deduct(ctx, userID, amount, description)
	metrics.RecordLedgerOperation("deduct", resultLabel(err))
	if err != nil {
		fields := logrus.Fields{"user_id": userID, "amount": amount}
		var insufficient *InsufficientCreditsError
		if errors.As(err, &insufficient) {
			fields["current_balance"] = insufficient.CurrentBalance
			fields["deficit"] = insufficient.Deficit
			l.log.WithFields(fields).Info("Deduction rejected")
		} else if !errors.Is(err, ErrNotFound) {
			l.log.WithFields(fields).WithError(err).Error("Deduction failed")
		}
		return nil, err
	}

	l.committed(tx, nil)
	return &DeductResult{TransactionID: tx.ID, NewBalance: tx.BalanceAfter, Transaction: tx}, nil
}

// Credit adds a bonus, refund or recharge. Recharges must carry the order id
// as idempotency key; a replayed key is reported as a duplicate success.
func (l *LedgerService) Credit(ctx context.Context, req CreditRequest) (*CreditResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	err := firstError(
		validateUserID(req.UserID),
		validateAmount(req.Amount),
		validateDescription(req.Description),
		validateCreditType(req.Type),
	)
	if err == nil && req.Type == models.TransactionRecharge && req.IdempotencyKey == "" {
		err = ErrMissingIdempotencyKey
	}
	if err != nil {
		metrics.RecordLedgerOperation("credit", resultLabel(err))
		return nil, err
	}

	tx, err := l.store.Credit(ctx, store.CreditParams{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Type:           req.Type,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	metrics.RecordLedgerOperation("credit", resultLabel(err))

	var dup *store.DuplicateKeyError
	if errors.As(err, &dup) {
		l.log.WithFields(logrus.Fields{
			"user_id":         req.UserID,
			"idempotency_key": req.IdempotencyKey,
			"transaction_id":  dup.Existing.ID,
		}).Info("Idempotent credit replayed")
		return &CreditResult{
			TransactionID: dup.Existing.ID,
			NewBalance:    dup.Existing.BalanceAfter,
			Duplicate:     true,
		}, nil
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"amount":  req.Amount,
			"type":    req.Type,
		}).WithError(err).Error("Credit failed")
		return nil, err
	}

	l.committed(tx, nil)
	return &CreditResult{TransactionID: tx.ID, NewBalance: tx.BalanceAfter}, nil
}

// Adjust applies an administrative correction. It is never blocked by the
// balance; a negative result is committed and reported through Warning.
func (l *LedgerService) Adjust(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	err := firstError(
		validateUserID(req.AdminID),
		validateUserID(req.TargetUserID),
		validateAmount(req.Amount),
		validateDescription(req.Description),
	)
	if err == nil && req.Direction != models.AdjustAdd && req.Direction != models.AdjustSubtract {
		err = ErrInvalidDirection
	}
	if err != nil {
		metrics.RecordLedgerOperation("adjust", resultLabel(err))
		return nil, err
	}

	delta := req.Amount
	if req.Direction == models.AdjustSubtract {
		delta = -req.Amount
	}

	adj, tx, err := l.store.Adjust(ctx, store.AdjustParams{
		AdminID:      req.AdminID,
		TargetUserID: req.TargetUserID,
		Delta:        delta,
		Description:  req.Description,
		Classify:     l.classifier.ClassifyAdjustment,
	})
	metrics.RecordLedgerOperation("adjust", resultLabel(err))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.log.WithFields(logrus.Fields{
				"admin_id": req.AdminID,
				"user_id":  req.TargetUserID,
				"delta":    delta,
			}).WithError(err).Error("Admin adjustment failed")
		}
		return nil, err
	}

	result := &AdjustResult{
		AdjustmentID:  adj.ID,
		TransactionID: tx.ID,
		UserID:        adj.TargetUserID,
		BeforeBalance: adj.BeforeBalance,
		AfterBalance:  adj.AfterBalance,
		RiskLevel:     adj.RiskLevel,
	}
	entry := l.log.WithFields(logrus.Fields{
		"admin_id":       adj.AdminID,
		"user_id":        adj.TargetUserID,
		"delta":          delta,
		"before_balance": adj.BeforeBalance,
		"after_balance":  adj.AfterBalance,
		"risk_level":     adj.RiskLevel,
	})
	if adj.AfterBalance < 0 {
		result.Warning = fmt.Sprintf("balance is negative after adjustment: %d", adj.AfterBalance)
		entry.Warn("Admin adjustment left a negative balance")
	} else {
		entry.Info("Admin adjustment applied")
	}

	l.committed(tx, adj)
	return result, nil
}

func (l *LedgerService) GetBalance(ctx context.Context, userID string) (*models.Account, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return l.store.GetAccount(ctx, userID)
}

// HasSufficient is an advisory read. An unknown account has a zero balance.
func (l *LedgerService) HasSufficient(ctx context.Context, userID string, amount int64) (*SufficiencyResult, error) {
	if err := firstError(validateUserID(userID), validateAmount(amount)); err != nil {
		return nil, err
	}

	var current int64
	account, err := l.store.GetAccount(ctx, userID)
	switch {
	case err == nil:
		current = account.Balance
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	result := &SufficiencyResult{Sufficient: current >= amount, CurrentBalance: current}
	if !result.Sufficient {
		result.Deficit = amount - current
	}
	return result, nil
}

// EnsureAccount returns the user's account, opening it on first sight. A
// positive bonus is credited once under the key registration:<user_id>.
func (l *LedgerService) EnsureAccount(ctx context.Context, userID string, bonus int64) (*models.Account, bool, error) {
	if err := validateUserID(userID); err != nil {
		return nil, false, err
	}

	account, err := l.store.GetAccount(ctx, userID)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if bonus > 0 {
		if _, err := l.Credit(ctx, CreditRequest{
			UserID:         userID,
			Amount:         bonus,
			Type:           models.TransactionBonus,
			Description:    "Registration bonus",
			IdempotencyKey: "registration:" + userID,
		}); err != nil {
			return nil, false, err
		}
		account, err = l.store.GetAccount(ctx, userID)
	} else {
		account, err = l.store.OpenAccount(ctx, userID)
	}
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// History lists the user's transactions newest first.
func (l *LedgerService) History(ctx context.Context, q HistoryQuery) (*HistoryResult, error) {
	if err := validateUserID(q.UserID); err != nil {
		return nil, err
	}
	txType := models.TransactionType(strings.ToLower(strings.TrimSpace(q.Type)))
	if txType != "" && !txType.Valid() {
		return nil, ErrInvalidTransactionType
	}
	if err := checkRange(q.From, q.To); err != nil {
		return nil, err
	}
	page, limit, offset := pageWindow(q.Page, q.Limit, l.opts.HistoryDefaultLimit, l.opts.HistoryMaxLimit)

	txs, total, err := l.store.ListTransactions(ctx, models.TransactionFilter{
		UserID: q.UserID,
		Type:   txType,
		From:   q.From,
		To:     q.To,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Transactions: txs, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (l *LedgerService) committed(tx *models.Transaction, adj *models.AdminAdjustment) {
	metrics.RecordCreditsMoved(string(tx.TransactionType), tx.Amount)
	if l.audit != nil {
		l.audit.Publish(LedgerEvent{Transaction: *tx, Adjustment: adj})
	}
}

func validateUserID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxUserIDLength {
		return ErrInvalidUserID
	}
	return nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" {
		return ErrMissingDescription
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateCreditType(t models.TransactionType) error {
	if !t.Valid() || !t.IsCredit() {
		return ErrInvalidTransactionType
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
