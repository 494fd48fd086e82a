package services

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/promptcraft/backend/internal/logging"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var rechargeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var testRechargeOptions = RechargeOptions{
	MinCredits:          10,
	MaxCredits:          10000,
	PricePerCreditCents: 10,
	Currency:            "USD",
	OrderTTL:            30 * time.Minute,
	PayURLBase:          "https://pay.test/checkout",
	MaxOrdersPerWindow:  2,
	OrderWindow:         time.Hour,
	WebhookSecret:       "whsec_test",
}

func newTestRecharge(t *testing.T, ledger Creditor) (*RechargeService, redismock.ClientMock, *memory.Store) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	orders := memory.New()
	svc := NewRechargeService(db, orders, ledger, testRechargeOptions, logging.Discard())
	svc.now = func() time.Time { return rechargeNow }
	svc.newID = func() string { return "order-1" }
	return svc, mock, orders
}

// seedOrder stores order durably without caching it.
func seedOrder(t *testing.T, orders *memory.Store, order models.RechargeOrder) {
	t.Helper()
	require.NoError(t, orders.SaveRechargeOrder(context.Background(), &order))
}

func pendingOrder() models.RechargeOrder {
	return models.RechargeOrder{
		OrderID:       "order-1",
		UserID:        "user-1",
		Credits:       100,
		AmountPaid:    1000,
		Currency:      "USD",
		PaymentMethod: "card",
		Status:        models.OrderStatusPending,
		CreatedAt:     rechargeNow,
		ExpiresAt:     rechargeNow.Add(30 * time.Minute),
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRechargeService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the order and returns payment data", func(t *testing.T) {
		svc, mock, orders := newTestRecharge(t, &MockCreditor{})
		expected := pendingOrder()

		mock.ExpectIncr("recharge:ratelimit:user-1").SetVal(1)
		mock.ExpectExpire("recharge:ratelimit:user-1", time.Hour).SetVal(true)
		mock.ExpectSet("recharge:order:order-1", mustJSON(t, expected), 30*time.Minute).SetVal("OK")

		order, payment, err := svc.CreateOrder(ctx, "user-1", 100, "card")
		require.NoError(t, err)
		assert.Equal(t, expected, *order)
		assert.Equal(t, int64(1000), payment.AmountPaid)
		assert.Equal(t, "https://pay.test/checkout?amount=1000&currency=USD&order_id=order-1", payment.PayURL)
		assert.Equal(t, expected.ExpiresAt, payment.ExpiresAt)

		png, err := base64.StdEncoding.DecodeString(payment.QRCode)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG", string(png[:4]))

		saved, err := orders.GetRechargeOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, expected, *saved)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credits out of range", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})

		_, _, err := svc.CreateOrder(ctx, "user-1", 5, "card")
		assert.ErrorIs(t, err, ErrCreditsOutOfRange)
		assert.True(t, IsValidation(err))

		_, _, err = svc.CreateOrder(ctx, "user-1", 10001, "card")
		assert.ErrorIs(t, err, ErrCreditsOutOfRange)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rate limited", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})
		mock.ExpectIncr("recharge:ratelimit:user-1").SetVal(3)

		_, _, err := svc.CreateOrder(ctx, "user-1", 100, "card")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})
		mock.ExpectIncr("recharge:ratelimit:user-1").SetErr(errors.New("connection refused"))

		_, _, err := svc.CreateOrder(ctx, "user-1", 100, "card")
		assert.ErrorIs(t, err, ErrRechargeUnavailable)
	})

	t.Run("no redis", func(t *testing.T) {
		svc := NewRechargeService(nil, memory.New(), &MockCreditor{}, RechargeOptions{MinCredits: 1, MaxCredits: 10}, logging.Discard())
		_, _, err := svc.CreateOrder(ctx, "user-1", 5, "card")
		assert.ErrorIs(t, err, ErrRechargeUnavailable)
	})
}

func TestRechargeService_GetOrder(t *testing.T) {
	ctx := context.Background()
	stored := mustJSON(t, pendingOrder())

	t.Run("owner sees the order", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})
		mock.ExpectGet("recharge:order:order-1").SetVal(string(stored))

		order, err := svc.GetOrder(ctx, "user-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, int64(100), order.Credits)
	})

	t.Run("other users do not", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})
		mock.ExpectGet("recharge:order:order-1").SetVal(string(stored))

		_, err := svc.GetOrder(ctx, "user-2", "order-1")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("cache miss falls back to the database", func(t *testing.T) {
		svc, mock, orders := newTestRecharge(t, &MockCreditor{})
		seedOrder(t, orders, pendingOrder())
		mock.ExpectGet("recharge:order:order-1").RedisNil()

		order, err := svc.GetOrder(ctx, "user-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, pendingOrder(), *order)

		mock.ExpectGet("recharge:order:order-1").RedisNil()
		_, err = svc.GetOrder(ctx, "user-2", "order-1")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("unreadable cache entry falls back to the database", func(t *testing.T) {
		svc, mock, orders := newTestRecharge(t, &MockCreditor{})
		seedOrder(t, orders, pendingOrder())
		mock.ExpectGet("recharge:order:order-1").SetVal("{not json")

		order, err := svc.GetOrder(ctx, "user-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", order.OrderID)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, mock, _ := newTestRecharge(t, &MockCreditor{})
		mock.ExpectGet("recharge:order:order-1").RedisNil()

		_, err := svc.GetOrder(ctx, "user-1", "order-1")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRechargeService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	stored := mustJSON(t, pendingOrder())
	event := models.PaymentEvent{OrderID: "order-1", Credits: 100, AmountPaid: 1000}
	creditReq := CreditRequest{
		UserID:         "user-1",
		Amount:         100,
		Type:           models.TransactionRecharge,
		Description:    "Recharge order order-1",
		IdempotencyKey: "order-1",
	}

	t.Run("credits and marks the order paid", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, orders := newTestRecharge(t, creditor)
		seedOrder(t, orders, pendingOrder())

		creditor.On("Credit", mock.Anything, creditReq).
			Return(&CreditResult{TransactionID: "tx-1", NewBalance: 150}, nil).Once()

		paid := pendingOrder()
		paidAt := rechargeNow
		paid.Status = models.OrderStatusPaid
		paid.TransactionID = "tx-1"
		paid.PaidAt = &paidAt

		redisMock.ExpectGet("recharge:order:order-1").SetVal(string(stored))
		redisMock.ExpectSet("recharge:order:order-1", mustJSON(t, paid), 24*time.Hour).SetVal("OK")

		result, err := svc.ConfirmPayment(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, "user-1", result.UserID)
		assert.Equal(t, "tx-1", result.TransactionID)
		assert.Equal(t, int64(150), result.NewBalance)
		assert.False(t, result.Duplicate)

		saved, err := orders.GetRechargeOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, paid, *saved)

		creditor.AssertExpectations(t)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("expired order still credits", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, orders := newTestRecharge(t, creditor)

		expired := pendingOrder()
		expired.CreatedAt = rechargeNow.Add(-2 * time.Hour)
		expired.ExpiresAt = rechargeNow.Add(-90 * time.Minute)
		seedOrder(t, orders, expired)

		creditor.On("Credit", mock.Anything, creditReq).
			Return(&CreditResult{TransactionID: "tx-1", NewBalance: 100}, nil).Once()

		paid := expired
		paidAt := rechargeNow
		paid.Status = models.OrderStatusPaid
		paid.TransactionID = "tx-1"
		paid.PaidAt = &paidAt

		redisMock.ExpectGet("recharge:order:order-1").RedisNil()
		redisMock.ExpectSet("recharge:order:order-1", mustJSON(t, paid), 24*time.Hour).SetVal("OK")

		result, err := svc.ConfirmPayment(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, "user-1", result.UserID)
		assert.Equal(t, int64(100), result.NewBalance)
		assert.False(t, result.Duplicate)

		saved, err := orders.GetRechargeOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, saved.Status)
		assert.Equal(t, "tx-1", saved.TransactionID)

		creditor.AssertExpectations(t)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redelivery of a paid order is a duplicate", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, _ := newTestRecharge(t, creditor)

		paid := pendingOrder()
		paid.Status = models.OrderStatusPaid
		paid.TransactionID = "tx-1"
		redisMock.ExpectGet("recharge:order:order-1").SetVal(string(mustJSON(t, paid)))

		creditor.On("Credit", mock.Anything, creditReq).
			Return(&CreditResult{TransactionID: "tx-1", NewBalance: 150, Duplicate: true}, nil).Once()

		result, err := svc.ConfirmPayment(ctx, event)
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.Equal(t, int64(150), result.NewBalance)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("amount mismatch credits nothing", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, _ := newTestRecharge(t, creditor)
		redisMock.ExpectGet("recharge:order:order-1").SetVal(string(stored))

		_, err := svc.ConfirmPayment(ctx, models.PaymentEvent{OrderID: "order-1", Credits: 1000, AmountPaid: 1000})
		assert.ErrorIs(t, err, ErrOrderMismatch)
		creditor.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, _ := newTestRecharge(t, creditor)
		redisMock.ExpectGet("recharge:order:order-9").RedisNil()

		_, err := svc.ConfirmPayment(ctx, models.PaymentEvent{OrderID: "order-9", Credits: 100, AmountPaid: 1000})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ledger failure is returned", func(t *testing.T) {
		creditor := &MockCreditor{}
		svc, redisMock, _ := newTestRecharge(t, creditor)
		redisMock.ExpectGet("recharge:order:order-1").SetVal(string(stored))
		creditor.On("Credit", mock.Anything, creditReq).Return(nil, ErrStorage).Once()

		_, err := svc.ConfirmPayment(ctx, event)
		assert.ErrorIs(t, err, ErrStorage)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestRechargeService_VerifySignature(t *testing.T) {
	svc, _, _ := newTestRecharge(t, &MockCreditor{})
	body := []byte(`{"order_id":"order-1","credits":100,"amount_paid":1000}`)
	signature := hex.EncodeToString(Sign([]byte("whsec_test"), body))

	assert.NoError(t, svc.VerifySignature(body, signature))
	assert.NoError(t, svc.VerifySignature(body, "sha256="+signature))
	assert.ErrorIs(t, svc.VerifySignature(body, ""), ErrInvalidSignature)
	assert.ErrorIs(t, svc.VerifySignature(body, "not-hex"), ErrInvalidSignature)
	assert.ErrorIs(t, svc.VerifySignature([]byte(`{"credits":100000}`), signature), ErrInvalidSignature)

	unsigned := NewRechargeService(nil, nil, nil, RechargeOptions{}, logging.Discard())
	assert.ErrorIs(t, unsigned.VerifySignature(body, signature), ErrInvalidSignature)
}

func TestRechargeService_ExpiredOrderCreditsOnce(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger(t)
	svc := NewRechargeService(nil, st, ledger, testRechargeOptions, logging.Discard())
	svc.now = func() time.Time { return rechargeNow }

	expired := pendingOrder()
	expired.ExpiresAt = rechargeNow.Add(-time.Minute)
	seedOrder(t, st, expired)

	event := models.PaymentEvent{OrderID: "order-1", Credits: 100, AmountPaid: 1000}

	first, err := svc.ConfirmPayment(ctx, event)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, int64(100), first.NewBalance)

	second, err := svc.ConfirmPayment(ctx, event)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Balance)

	history, err := ledger.History(ctx, HistoryQuery{UserID: "user-1", Type: string(models.TransactionRecharge)})
	require.NoError(t, err)
	assert.Equal(t, 1, history.Pagination.Total)
}
