package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

type CreditsHandler struct {
	ledger    *services.LedgerService
	recharge  *services.RechargeService
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

func NewCreditsHandler(ledger *services.LedgerService, recharge *services.RechargeService, log logrus.FieldLogger) *CreditsHandler {
	return &CreditsHandler{
		ledger:    ledger,
		recharge:  recharge,
		validator: services.NewValidationHelper(),
		log:       log.WithField("handler", "credits"),
	}
}

type DeductRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0" example:"5"`
	Description string `json:"description" validate:"required,max=500" example:"Image generation"`
}

type DeductResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
}

type RechargeRequest struct {
	Credits       int64  `json:"credits" validate:"required,gt=0" example:"100"`
	PaymentMethod string `json:"payment_method" validate:"required,max=32" example:"card"`
}

type RechargeResponse struct {
	OrderID     string              `json:"order_id"`
	PaymentData *models.PaymentData `json:"payment_data"`
}

// Deduct consumes credits from the caller's balance
// @Summary Deduct credits
// @Description Atomically deducts credits. Fails without side effects when the balance does not cover the amount.
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeductRequest true "Deduction"
// @Success 200 {object} DeductResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/deduct [post]
func (h *CreditsHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req DeductRequest
	if err := h.validator.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.ledger.Deduct(r.Context(), user.ID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, DeductResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		NewBalance:    result.NewBalance,
	})
}

// GetBalance returns the caller's balance
// @Summary Get balance
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CreditSummary
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/balance [get]
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	account, err := h.ledger.GetBalance(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, CreditSummary{Balance: account.Balance, UpdatedAt: account.UpdatedAt})
}

// CheckCredits reports whether the balance covers an amount
// @Summary Check sufficiency
// @Description Advisory check; a later deduction may still fail.
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param amount query int true "Amount to check"
// @Success 200 {object} services.SufficiencyResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /credits/check [get]
func (h *CreditsHandler) CheckCredits(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("amount")), 10, 64)
	if err != nil || amount <= 0 {
		badQuery(w, services.ErrInvalidAmount.Error())
		return
	}

	result, err := h.ledger.HasSufficient(r.Context(), user.ID, amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, result)
}

// CreateRecharge opens a recharge order
// @Summary Create recharge order
// @Description Creates a short-lived order and returns the payment link and QR code. Credits are added when the payment webhook confirms it.
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RechargeRequest true "Recharge"
// @Success 200 {object} RechargeResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /credits/recharge [post]
func (h *CreditsHandler) CreateRecharge(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req RechargeRequest
	if err := h.validator.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, h.log, err)
		return
	}

	order, payment, err := h.recharge.CreateOrder(r.Context(), user.ID, req.Credits, req.PaymentMethod)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, RechargeResponse{OrderID: order.OrderID, PaymentData: payment})
}

// GetRechargeOrder returns one of the caller's recharge orders
// @Summary Get recharge order
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Success 200 {object} models.RechargeOrder
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/recharge/{orderId} [get]
func (h *CreditsHandler) GetRechargeOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.recharge.GetOrder(r.Context(), user.ID, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, order)
}

// GetHistory lists the caller's transactions
// @Summary Transaction history
// @Description Newest first. limit defaults to 20 and is capped at 100.
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Param type query string false "deduction, bonus, refund or recharge"
// @Param start_date query string false "YYYY-MM-DD or RFC 3339"
// @Param end_date query string false "YYYY-MM-DD or RFC 3339"
// @Success 200 {object} services.HistoryResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /credits/history [get]
func (h *CreditsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.History(r.Context(), services.HistoryQuery{
		UserID: user.ID,
		Page:   params.page,
		Limit:  params.limit,
		Type:   r.URL.Query().Get("type"),
		From:   params.from,
		To:     params.to,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, result)
}
