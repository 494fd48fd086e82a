package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
)

var _ store.RechargeOrderStore = (*Store)(nil)

func (s *Store) SaveRechargeOrder(ctx context.Context, order *models.RechargeOrder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recharge_orders
		(order_id, user_id, credits, amount_paid, currency, payment_method, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.OrderID, order.UserID, order.Credits, order.AmountPaid, order.Currency,
		order.PaymentMethod, order.Status, order.CreatedAt, order.ExpiresAt)
	return store.Wrap("save recharge order", err)
}

func (s *Store) GetRechargeOrder(ctx context.Context, orderID string) (*models.RechargeOrder, error) {
	var (
		o      models.RechargeOrder
		txID   sql.NullString
		paidAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT order_id, user_id, credits, amount_paid, currency, payment_method, status,
			transaction_id, created_at, expires_at, paid_at
		FROM recharge_orders
		WHERE order_id = $1`, orderID).Scan(
		&o.OrderID, &o.UserID, &o.Credits, &o.AmountPaid, &o.Currency, &o.PaymentMethod, &o.Status,
		&txID, &o.CreatedAt, &o.ExpiresAt, &paidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrderNotFound
	}
	if err != nil {
		return nil, store.Wrap("get recharge order", err)
	}

	o.TransactionID = txID.String
	if paidAt.Valid {
		at := paidAt.Time
		o.PaidAt = &at
	}
	return &o, nil
}

func (s *Store) MarkRechargeOrderPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recharge_orders
		SET status = $1, transaction_id = $2, paid_at = $3
		WHERE order_id = $4 AND status = $5`,
		models.OrderStatusPaid, transactionID, paidAt, orderID, models.OrderStatusPending)
	if err != nil {
		return store.Wrap("mark recharge order paid", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := s.GetRechargeOrder(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}
