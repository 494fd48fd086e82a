// Package memory provides an in-process LedgerStore for tests and local
// development. A single mutex serialises every mutation, which gives the same
// per-account atomicity the PostgreSQL store gets from row locks.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
)

type Store struct {
	mu             sync.RWMutex
	accounts       map[string]*models.Account
	transactions   []models.Transaction
	idempotency    map[string]int
	adjustments    []models.AdminAdjustment
	alerts         []models.CreditAlert
	reconciliation []models.ReconciliationEntry
	orders         map[string]models.RechargeOrder
	now            func() time.Time
}

func New() *Store {
	return &Store{
		accounts:    make(map[string]*models.Account),
		idempotency: make(map[string]int),
		orders:      make(map[string]models.RechargeOrder),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ store.LedgerStore        = (*Store)(nil)
	_ store.RechargeOrderStore = (*Store)(nil)
)

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Deduct(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("deduct", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if account.Balance < amount {
		return nil, store.NewInsufficientCreditsError(userID, account.Balance, amount)
	}

	now := s.now()
	account.Balance -= amount
	account.UpdatedAt = now
	entry := s.appendLocked(models.Transaction{
		UserID:          userID,
		Amount:          -amount,
		TransactionType: models.TransactionDeduction,
		Description:     description,
		BalanceAfter:    account.Balance,
		CreatedAt:       now,
	})
	return &entry, nil
}

func (s *Store) Credit(ctx context.Context, p store.CreditParams) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("credit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IdempotencyKey != "" {
		if i, ok := s.idempotency[p.IdempotencyKey]; ok {
			existing := s.transactions[i]
			return nil, store.ReplayError(p.IdempotencyKey, p.UserID, &existing)
		}
	}

	now := s.now()
	account := s.openLocked(p.UserID, now)
	account.Balance += p.Amount
	account.UpdatedAt = now
	entry := s.appendLocked(models.Transaction{
		UserID:          p.UserID,
		Amount:          p.Amount,
		TransactionType: p.Type,
		Description:     p.Description,
		IdempotencyKey:  p.IdempotencyKey,
		BalanceAfter:    account.Balance,
		CreatedAt:       now,
	})
	return &entry, nil
}

func (s *Store) Adjust(ctx context.Context, p store.AdjustParams) (*models.AdminAdjustment, *models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, store.Wrap("adjust", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	account, ok := s.accounts[p.TargetUserID]
	if !ok {
		if p.Delta < 0 {
			return nil, nil, store.ErrNotFound
		}
		account = s.openLocked(p.TargetUserID, now)
	}

	before := account.Balance
	account.Balance += p.Delta
	account.UpdatedAt = now

	txType := models.TransactionBonus
	if p.Delta < 0 {
		txType = models.TransactionDeduction
	}
	entry := s.appendLocked(models.Transaction{
		UserID:          p.TargetUserID,
		Amount:          p.Delta,
		TransactionType: txType,
		Description:     p.Description,
		BalanceAfter:    account.Balance,
		CreatedAt:       now,
	})

	risk := models.RiskLow
	if p.Classify != nil {
		risk = p.Classify(p.Delta, account.Balance)
	}
	adj := models.AdminAdjustment{
		ID:            uuid.NewString(),
		AdminID:       p.AdminID,
		TargetUserID:  p.TargetUserID,
		TransactionID: entry.ID,
		CreditAmount:  p.Delta,
		BeforeBalance: before,
		AfterBalance:  account.Balance,
		Description:   p.Description,
		RiskLevel:     risk,
		CreatedAt:     now,
	}
	s.adjustments = append(s.adjustments, adj)
	return &adj, &entry, nil
}

func (s *Store) OpenAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := *s.openLocked(userID, s.now())
	return &account, nil
}

func (s *Store) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *Store) ListTransactions(_ context.Context, f models.TransactionFilter) ([]models.Transaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Transaction
	for _, t := range s.transactions {
		if t.UserID != f.UserID {
			continue
		}
		if f.Type != "" && t.TransactionType != f.Type {
			continue
		}
		if !inRange(t.CreatedAt, f.From, f.To) {
			continue
		}
		matched = append(matched, t)
	}
	newestFirst(matched, func(i int) time.Time { return matched[i].CreatedAt })
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (s *Store) SaveAlert(_ context.Context, alert *models.CreditAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = int64(len(s.alerts) + 1)
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *Store) ListAlerts(_ context.Context, f models.AlertFilter) ([]models.CreditAlert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.CreditAlert
	for _, a := range s.alerts {
		if f.RiskLevel != "" && a.RiskLevel != f.RiskLevel {
			continue
		}
		if !inRange(a.CreatedAt, f.From, f.To) {
			continue
		}
		matched = append(matched, a)
	}
	newestFirst(matched, func(i int) time.Time { return matched[i].CreatedAt })
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (s *Store) ListAdjustments(_ context.Context, f models.AdjustmentFilter) ([]models.AdminAdjustment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.AdminAdjustment
	for _, a := range s.adjustments {
		if f.TargetUserID != "" && a.TargetUserID != f.TargetUserID {
			continue
		}
		if !inRange(a.CreatedAt, f.From, f.To) {
			continue
		}
		matched = append(matched, a)
	}
	newestFirst(matched, func(i int) time.Time { return matched[i].CreatedAt })
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (s *Store) SaveReconciliation(_ context.Context, entry *models.ReconciliationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.reconciliation) + 1)
	s.reconciliation = append(s.reconciliation, *entry)
	return nil
}

func (s *Store) ListReconciliation(_ context.Context, limit, offset int) ([]models.ReconciliationEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := append([]models.ReconciliationEntry(nil), s.reconciliation...)
	newestFirst(entries, func(i int) time.Time { return entries[i].CreatedAt })
	return paginate(entries, limit, offset), len(entries), nil
}

func (s *Store) SaveRechargeOrder(_ context.Context, order *models.RechargeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; ok {
		return store.Wrap("save recharge order", fmt.Errorf("order %q already exists", order.OrderID))
	}
	s.orders[order.OrderID] = *order
	return nil
}

func (s *Store) GetRechargeOrder(_ context.Context, orderID string) (*models.RechargeOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return &order, nil
}

func (s *Store) MarkRechargeOrderPaid(_ context.Context, orderID, transactionID string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	if order.Status == models.OrderStatusPaid {
		return nil
	}
	order.Status = models.OrderStatusPaid
	order.TransactionID = transactionID
	order.PaidAt = &paidAt
	s.orders[orderID] = order
	return nil
}

func (s *Store) openLocked(userID string, now time.Time) *models.Account {
	account, ok := s.accounts[userID]
	if !ok {
		account = &models.Account{UserID: userID, UpdatedAt: now}
		s.accounts[userID] = account
	}
	return account
}

func (s *Store) appendLocked(t models.Transaction) models.Transaction {
	t.ID = uuid.NewString()
	s.transactions = append(s.transactions, t)
	if t.IdempotencyKey != "" {
		s.idempotency[t.IdempotencyKey] = len(s.transactions) - 1
	}
	return t
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

// newestFirst reverses insertion order and then stable-sorts by time, so rows
// sharing a timestamp keep newest-inserted first.
func newestFirst[T any](items []T, at func(i int) time.Time) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool { return at(i).After(at(j)) })
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T{}, items[offset:end]...)
}
