package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{
	"order_id", "user_id", "credits", "amount_paid", "currency", "payment_method", "status",
	"transaction_id", "created_at", "expires_at", "paid_at",
}

func TestStore_RechargeOrders(t *testing.T) {
	ctx := context.Background()
	expires := fixedNow.Add(30 * time.Minute)

	t.Run("Save inserts a pending order", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectExec("INSERT INTO recharge_orders").
			WithArgs("order-1", "user-1", int64(100), int64(1000), "USD", "card", "PENDING", fixedNow, expires).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := s.SaveRechargeOrder(ctx, &models.RechargeOrder{
			OrderID:       "order-1",
			UserID:        "user-1",
			Credits:       100,
			AmountPaid:    1000,
			Currency:      "USD",
			PaymentMethod: "card",
			Status:        models.OrderStatusPending,
			CreatedAt:     fixedNow,
			ExpiresAt:     expires,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get returns a paid order", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectQuery("FROM recharge_orders").
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow("order-1", "user-1", int64(100), int64(1000), "USD", "card", "PAID", "tx-1", fixedNow, expires, fixedNow))

		order, err := s.GetRechargeOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)
		assert.Equal(t, "tx-1", order.TransactionID)
		require.NotNil(t, order.PaidAt)
		assert.Equal(t, fixedNow, *order.PaidAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get of a pending order has no payment fields", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectQuery("FROM recharge_orders").
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow("order-1", "user-1", int64(100), int64(1000), "USD", "card", "PENDING", nil, fixedNow, expires, nil))

		order, err := s.GetRechargeOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Empty(t, order.TransactionID)
		assert.Nil(t, order.PaidAt)
	})

	t.Run("Get of an unknown order", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectQuery("FROM recharge_orders").
			WithArgs("order-9").
			WillReturnRows(sqlmock.NewRows(orderColumns))

		_, err := s.GetRechargeOrder(ctx, "order-9")
		assert.ErrorIs(t, err, store.ErrOrderNotFound)
	})

	t.Run("Mark paid updates only a pending order", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectExec("UPDATE recharge_orders").
			WithArgs("PAID", "tx-1", fixedNow, "order-1", "PENDING").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.MarkRechargeOrderPaid(ctx, "order-1", "tx-1", fixedNow))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Mark paid on an already paid order is a no-op", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectExec("UPDATE recharge_orders").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM recharge_orders").
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow("order-1", "user-1", int64(100), int64(1000), "USD", "card", "PAID", "tx-1", fixedNow, expires, fixedNow))

		require.NoError(t, s.MarkRechargeOrderPaid(ctx, "order-1", "tx-2", fixedNow))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Mark paid on an unknown order", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectExec("UPDATE recharge_orders").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM recharge_orders").
			WillReturnRows(sqlmock.NewRows(orderColumns))

		assert.ErrorIs(t, s.MarkRechargeOrderPaid(ctx, "order-9", "tx-1", fixedNow), store.ErrOrderNotFound)
	})

	t.Run("Driver failure is a storage error", func(t *testing.T) {
		s, mock, db := newTestStore(t)
		defer db.Close()

		mock.ExpectExec("INSERT INTO recharge_orders").
			WillReturnError(errors.New("connection reset"))

		err := s.SaveRechargeOrder(ctx, &models.RechargeOrder{OrderID: "order-1"})
		assert.ErrorIs(t, err, store.ErrStorage)
	})
}
