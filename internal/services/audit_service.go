package services

import (
	"context"
	"sync"
	"time"

	"github.com/promptcraft/backend/internal/metrics"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
	"github.com/sirupsen/logrus"
)

// RiskClassifier maps |amount| onto a risk tier.
type RiskClassifier struct {
	medium int64
	high   int64
}

func NewRiskClassifier(medium, high int64) *RiskClassifier {
	return &RiskClassifier{medium: medium, high: high}
}

func (c *RiskClassifier) Classify(amount int64) models.RiskLevel {
	if amount < 0 {
		amount = -amount
	}
	switch {
	case amount >= c.high:
		return models.RiskHigh
	case amount >= c.medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ClassifyAdjustment classifies an admin delta. A result below zero is at
// least MEDIUM regardless of size.
func (c *RiskClassifier) ClassifyAdjustment(delta, after int64) models.RiskLevel {
	level := c.Classify(delta)
	if after < 0 && level.Rank() < models.RiskMedium.Rank() {
		return models.RiskMedium
	}
	return level
}

// LedgerEvent is a committed ledger mutation. Adjustment is set for admin
// overrides.
type LedgerEvent struct {
	Transaction models.Transaction
	Adjustment  *models.AdminAdjustment
}

type AuditOptions struct {
	QueueSize int
	Workers   int
}

// AlertQuery filters the alert review listing.
type AlertQuery struct {
	RiskLevel string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

type AlertPage struct {
	Alerts     []models.CreditAlert `json:"alerts"`
	Pagination models.Pagination    `json:"pagination"`
}

type AdjustmentQuery struct {
	TargetUserID string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

type AdjustmentPage struct {
	Adjustments []models.AdminAdjustment `json:"adjustments"`
	Pagination  models.Pagination        `json:"pagination"`
}

type ReconciliationPage struct {
	Entries    []models.ReconciliationEntry `json:"entries"`
	Pagination models.Pagination            `json:"pagination"`
}

// AuditService consumes committed ledger events off the request path,
// classifies them and stores MEDIUM and HIGH ones as alerts. It never
// touches balances.
type AuditService struct {
	store      store.LedgerStore
	classifier *RiskClassifier
	audit      *AuditLogger
	log        logrus.FieldLogger

	events  chan LedgerEvent
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewAuditService(st store.LedgerStore, classifier *RiskClassifier, opts AuditOptions, log logrus.FieldLogger) *AuditService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &AuditService{
		store:      st,
		classifier: classifier,
		audit:      NewAuditLogger(log),
		log:        log.WithField("component", "audit_service"),
		events:     make(chan LedgerEvent, opts.QueueSize),
		workers:    opts.Workers,
	}
}

// Start launches the consumer goroutines.
func (a *AuditService) Start() {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for ev := range a.events {
				a.handle(ev)
			}
		}()
	}
}

// Stop closes the queue and waits for queued events to be handled.
func (a *AuditService) Stop() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()
	a.wg.Wait()
}

// Publish hands a committed event to the consumers. When the queue is full or
// stopped the event is handled on the caller goroutine so none is lost.
func (a *AuditService) Publish(ev LedgerEvent) {
	a.mu.RLock()
	if !a.closed {
		select {
		case a.events <- ev:
			a.mu.RUnlock()
			return
		default:
		}
	}
	a.mu.RUnlock()

	metrics.RecordAuditOverflow()
	a.handle(ev)
}

func (a *AuditService) handle(ev LedgerEvent) {
	alert := models.CreditAlert{
		TransactionID:   ev.Transaction.ID,
		UserID:          ev.Transaction.UserID,
		Amount:          ev.Transaction.Amount,
		TransactionType: ev.Transaction.TransactionType,
		Description:     ev.Transaction.Description,
		CreatedAt:       ev.Transaction.CreatedAt,
	}
	if ev.Adjustment != nil {
		a.audit.LogAdjustment(*ev.Adjustment)
		alert.RiskLevel = ev.Adjustment.RiskLevel
		alert.Source = models.AlertSourceAdjustment
		alert.AdminID = ev.Adjustment.AdminID
	} else {
		alert.RiskLevel = a.classifier.Classify(ev.Transaction.Amount)
		alert.Source = models.AlertSourceTransaction
		a.audit.LogTransaction(ev.Transaction, alert.RiskLevel)
	}

	if alert.RiskLevel.Rank() < models.RiskMedium.Rank() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.SaveAlert(ctx, &alert); err != nil {
		a.audit.LogError(alert.TransactionID, alert.UserID, err)
		return
	}
	metrics.RecordAlert(string(alert.RiskLevel))
	a.log.WithFields(logrus.Fields{
		"user_id":        alert.UserID,
		"transaction_id": alert.TransactionID,
		"amount":         alert.Amount,
		"risk_level":     alert.RiskLevel,
	}).Warn("Credit alert raised")
}

func (a *AuditService) ListAlerts(ctx context.Context, q AlertQuery) (*AlertPage, error) {
	level := models.RiskLevel(q.RiskLevel)
	if level != "" && !level.Valid() {
		return nil, ErrInvalidRiskLevel
	}
	if err := checkRange(q.From, q.To); err != nil {
		return nil, err
	}
	page, limit, offset := pageWindow(q.Page, q.Limit, defaultPageLimit, maxPageLimit)

	alerts, total, err := a.store.ListAlerts(ctx, models.AlertFilter{
		RiskLevel: level,
		From:      q.From,
		To:        q.To,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}
	return &AlertPage{Alerts: alerts, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (a *AuditService) ListAdjustments(ctx context.Context, q AdjustmentQuery) (*AdjustmentPage, error) {
	if err := checkRange(q.From, q.To); err != nil {
		return nil, err
	}
	page, limit, offset := pageWindow(q.Page, q.Limit, defaultPageLimit, maxPageLimit)

	adjustments, total, err := a.store.ListAdjustments(ctx, models.AdjustmentFilter{
		TargetUserID: q.TargetUserID,
		From:         q.From,
		To:           q.To,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}
	return &AdjustmentPage{Adjustments: adjustments, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (a *AuditService) ListReconciliation(ctx context.Context, page, limit int) (*ReconciliationPage, error) {
	page, limit, offset := pageWindow(page, limit, defaultPageLimit, maxPageLimit)
	entries, total, err := a.store.ListReconciliation(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ReconciliationPage{Entries: entries, Pagination: models.NewPagination(page, limit, total)}, nil
}
