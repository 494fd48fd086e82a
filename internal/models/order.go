package models

import (
	"time"
)

// Recharge order statuses.
const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"
)

// RechargeOrder is a pending purchase of credits. OrderID is the idempotency
// key of the recharge transaction it eventually produces.
type RechargeOrder struct {
	OrderID       string     `json:"order_id"`
	UserID        string     `json:"user_id"`
	Credits       int64      `json:"credits"`
	AmountPaid    int64      `json:"amount_paid"` // in cents
	Currency      string     `json:"currency"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// PaymentData is handed to the client to complete a recharge payment.
type PaymentData struct {
	PayURL     string    `json:"pay_url"`
	QRCode     string    `json:"qr_code"` // base64 PNG
	AmountPaid int64     `json:"amount_paid"`
	Currency   string    `json:"currency"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PaymentEvent is a confirmed payment delivered by the payment gateway.
type PaymentEvent struct {
	OrderID    string `json:"order_id" validate:"required,max=64"`
	Credits    int64  `json:"credits" validate:"required,gt=0"`
	AmountPaid int64  `json:"amount_paid" validate:"gte=0"`
}
