package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

type PaymentHandler struct {
	recharge  *services.RechargeService
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

func NewPaymentHandler(recharge *services.RechargeService, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		recharge:  recharge,
		validator: services.NewValidationHelper(),
		log:       log.WithField("handler", "payments"),
	}
}

type WebhookResponse struct {
	Success    bool   `json:"success"`
	OrderID    string `json:"order_id"`
	NewBalance int64  `json:"new_balance"`
	Duplicate  bool   `json:"duplicate"`
}

// Webhook confirms a paid recharge order
// @Summary Payment webhook
// @Description Called by the payment gateway. Authenticated by an HMAC-SHA256 signature of the raw body in X-Signature. Redelivery is safe.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Signature header string true "hex HMAC-SHA256 of the body"
// @Param request body models.PaymentEvent true "Payment event"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.log, &services.RequestError{Err: err})
		return
	}

	if err := h.recharge.VerifySignature(body, r.Header.Get(SignatureHeader)); err != nil {
		h.log.WithField("remote_addr", r.RemoteAddr).Warn("Webhook signature rejected")
		writeError(w, h.log, err)
		return
	}

	var event models.PaymentEvent
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err := h.validator.DecodeJSON(w, r, &event, maxBodyBytes); err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.recharge.ConfirmPayment(r.Context(), event)
	if err != nil {
		if !errors.Is(err, services.ErrOrderNotFound) {
			h.log.WithField("order_id", event.OrderID).WithError(err).Warn("Payment confirmation failed")
		}
		writeError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"order_id":    result.OrderID,
		"user_id":     result.UserID,
		"new_balance": result.NewBalance,
		"duplicate":   result.Duplicate,
	}).Info("Payment confirmed")

	services.WriteJSON(w, http.StatusOK, WebhookResponse{
		Success:    true,
		OrderID:    result.OrderID,
		NewBalance: result.NewBalance,
		Duplicate:  result.Duplicate,
	})
}
