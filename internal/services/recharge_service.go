package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

var (
	ErrCreditsOutOfRange   = errors.New("credits out of range")
	ErrRateLimited         = errors.New("too many recharge orders, try again later")
	ErrOrderNotFound       = errors.New("recharge order not found")
	ErrOrderMismatch       = errors.New("payment does not match the recharge order")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrRechargeUnavailable = errors.New("recharge is temporarily unavailable")
)

const (
	orderKeyPrefix     = "recharge:order:"
	rateLimitKeyPrefix = "recharge:ratelimit:"
	paidOrderRetention = 24 * time.Hour
)

type RechargeOptions struct {
	MinCredits          int64
	MaxCredits          int64
	PricePerCreditCents int64
	Currency            string
	OrderTTL            time.Duration
	PayURLBase          string
	MaxOrdersPerWindow  int64
	OrderWindow         time.Duration
	WebhookSecret       string
}

// Creditor is the slice of the ledger that commits recharges.
type Creditor interface {
	Credit(ctx context.Context, req CreditRequest) (*CreditResult, error)
}

type PaymentResult struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
	Duplicate     bool   `json:"duplicate"`
}

// RechargeService records recharge orders durably, caches them in Redis and
// turns confirmed payments into idempotent recharge credits keyed by order id.
type RechargeService struct {
	redis  *redis.Client
	orders store.RechargeOrderStore
	ledger Creditor
	opts   RechargeOptions
	log    logrus.FieldLogger
	now    func() time.Time
	newID  func() string
}

func NewRechargeService(rdb *redis.Client, orders store.RechargeOrderStore, ledger Creditor, opts RechargeOptions, log logrus.FieldLogger) *RechargeService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &RechargeService{
		redis:  rdb,
		orders: orders,
		ledger: ledger,
		opts:   opts,
		log:    log.WithField("component", "recharge"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// CreateOrder registers a pending order and returns what the client needs to
// pay for it.
func (s *RechargeService) CreateOrder(ctx context.Context, userID string, credits int64, paymentMethod string) (*models.RechargeOrder, *models.PaymentData, error) {
	if err := validateUserID(userID); err != nil {
		return nil, nil, err
	}
	if credits < s.opts.MinCredits || credits > s.opts.MaxCredits {
		return nil, nil, fmt.Errorf("%w: must be between %d and %d", ErrCreditsOutOfRange, s.opts.MinCredits, s.opts.MaxCredits)
	}
	if s.redis == nil {
		return nil, nil, ErrRechargeUnavailable
	}
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, nil, err
	}

	now := s.now()
	order := &models.RechargeOrder{
		OrderID:       s.newID(),
		UserID:        userID,
		Credits:       credits,
		AmountPaid:    credits * s.opts.PricePerCreditCents,
		Currency:      s.opts.Currency,
		PaymentMethod: paymentMethod,
		Status:        models.OrderStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.opts.OrderTTL),
	}
	if err := s.orders.SaveRechargeOrder(ctx, order); err != nil {
		return nil, nil, err
	}
	s.cacheOrder(ctx, order, s.opts.OrderTTL)

	payment, err := s.paymentData(order)
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"order_id": order.OrderID,
		"credits":  credits,
	}).Info("Recharge order created")
	return order, payment, nil
}

// GetOrder returns the caller's own order.
func (s *RechargeService) GetOrder(ctx context.Context, userID, orderID string) (*models.RechargeOrder, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// VerifySignature checks the hex HMAC-SHA256 of body under the webhook secret.
func (s *RechargeService) VerifySignature(body []byte, signature string) error {
	if s.opts.WebhookSecret == "" || signature == "" {
		return ErrInvalidSignature
	}
	given, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(given, Sign([]byte(s.opts.WebhookSecret), body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the HMAC-SHA256 of body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// ConfirmPayment commits the recharge for a paid order, whether or not the
// order has since expired. Redelivery of the same event returns the original
// result with Duplicate set.
func (s *RechargeService) ConfirmPayment(ctx context.Context, ev models.PaymentEvent) (*PaymentResult, error) {
	order, err := s.loadOrder(ctx, ev.OrderID)
	if err != nil {
		return nil, err
	}
	if ev.Credits != order.Credits || ev.AmountPaid != order.AmountPaid {
		s.log.WithFields(logrus.Fields{
			"order_id":      order.OrderID,
			"order_credits": order.Credits,
			"event_credits": ev.Credits,
			"order_amount":  order.AmountPaid,
			"event_amount":  ev.AmountPaid,
		}).Warn("Payment event does not match order")
		return nil, ErrOrderMismatch
	}

	credited, err := s.ledger.Credit(ctx, CreditRequest{
		UserID:         order.UserID,
		Amount:         order.Credits,
		Type:           models.TransactionRecharge,
		Description:    "Recharge order " + order.OrderID,
		IdempotencyKey: order.OrderID,
	})
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPaid {
		paidAt := s.now()
		if err := s.orders.MarkRechargeOrderPaid(ctx, order.OrderID, credited.TransactionID, paidAt); err != nil {
			s.log.WithField("order_id", order.OrderID).WithError(err).Warn("Failed to mark recharge order paid")
		}
		order.Status = models.OrderStatusPaid
		order.TransactionID = credited.TransactionID
		order.PaidAt = &paidAt
		s.cacheOrder(ctx, order, paidOrderRetention)
	}

	return &PaymentResult{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		TransactionID: credited.TransactionID,
		NewBalance:    credited.NewBalance,
		Duplicate:     credited.Duplicate,
	}, nil
}

func (s *RechargeService) checkRateLimit(ctx context.Context, userID string) error {
	if s.opts.MaxOrdersPerWindow <= 0 {
		return nil
	}
	key := rateLimitKeyPrefix + userID
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRechargeUnavailable, err)
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.opts.OrderWindow)
	}
	if count > s.opts.MaxOrdersPerWindow {
		return ErrRateLimited
	}
	return nil
}

// cacheOrder writes order to Redis for ttl. The database row stays
// authoritative, so failures are only logged.
func (s *RechargeService) cacheOrder(ctx context.Context, order *models.RechargeOrder, ttl time.Duration) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(order)
	if err == nil {
		err = s.redis.Set(ctx, orderKeyPrefix+order.OrderID, data, ttl).Err()
	}
	if err != nil {
		s.log.WithField("order_id", order.OrderID).WithError(err).Warn("Failed to cache recharge order")
	}
}

// loadOrder reads the order from the cache, falling back to the database
// once the cache entry has expired.
func (s *RechargeService) loadOrder(ctx context.Context, orderID string) (*models.RechargeOrder, error) {
	if order, ok := s.cachedOrder(ctx, orderID); ok {
		return order, nil
	}

	order, err := s.orders.GetRechargeOrder(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *RechargeService) cachedOrder(ctx context.Context, orderID string) (*models.RechargeOrder, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, orderKeyPrefix+orderID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithField("order_id", orderID).WithError(err).Warn("Recharge order cache read failed")
		}
		return nil, false
	}

	var order models.RechargeOrder
	if err := json.Unmarshal(data, &order); err != nil {
		s.log.WithField("order_id", orderID).WithError(err).Warn("Discarding unreadable cached recharge order")
		return nil, false
	}
	return &order, true
}

func (s *RechargeService) paymentData(order *models.RechargeOrder) (*models.PaymentData, error) {
	query := url.Values{}
	query.Set("order_id", order.OrderID)
	query.Set("amount", fmt.Sprintf("%d", order.AmountPaid))
	query.Set("currency", order.Currency)
	payURL := s.opts.PayURLBase + "?" + query.Encode()

	png, err := qrcode.Encode(payURL, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	return &models.PaymentData{
		PayURL:     payURL,
		QRCode:     base64.StdEncoding.EncodeToString(png),
		AmountPaid: order.AmountPaid,
		Currency:   order.Currency,
		ExpiresAt:  order.ExpiresAt,
	}, nil
}
