package handlers

import (
	"net/http"
	"strings"

	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	ledger    *services.LedgerService
	audit     *services.AuditService
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

func NewAdminHandler(ledger *services.LedgerService, audit *services.AuditService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		audit:     audit,
		validator: services.NewValidationHelper(),
		log:       log.WithField("handler", "admin"),
	}
}

type AdjustCreditsRequest struct {
	UserID        string `json:"user_id" validate:"required,max=64" example:"42"`
	Amount        int64  `json:"amount" validate:"required,gt=0" example:"50"`
	OperationType string `json:"operation_type" validate:"required,oneof=add subtract" example:"subtract"`
	Description   string `json:"description" validate:"required,max=500" example:"Chargeback"`
}

type AdjustCreditsResponse struct {
	Success bool `json:"success"`
	*services.AdjustResult
}

// AdjustCredits applies an administrative correction
// @Summary Adjust credits
// @Description Adds or subtracts credits without a sufficiency check. A negative result is committed and reported in warning.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdjustCreditsRequest true "Adjustment"
// @Success 200 {object} AdjustCreditsResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/credits/adjust [post]
func (h *AdminHandler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req AdjustCreditsRequest
	if err := h.validator.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.ledger.Adjust(r.Context(), services.AdjustRequest{
		AdminID:      admin.ID,
		TargetUserID: req.UserID,
		Amount:       req.Amount,
		Direction:    models.AdjustDirection(req.OperationType),
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, AdjustCreditsResponse{Success: true, AdjustResult: result})
}

// ListAlerts lists risk-classified movements
// @Summary List credit alerts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param risk_level query string false "LOW, MEDIUM or HIGH"
// @Param start_date query string false "YYYY-MM-DD or RFC 3339"
// @Param end_date query string false "YYYY-MM-DD or RFC 3339"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} services.AlertPage
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/credits/alerts [get]
func (h *AdminHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	page, err := h.audit.ListAlerts(r.Context(), services.AlertQuery{
		RiskLevel: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("risk_level"))),
		From:      params.from,
		To:        params.to,
		Page:      params.page,
		Limit:     params.limit,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, page)
}

// ListAdjustments lists administrative adjustments
// @Summary List admin adjustments
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Target user"
// @Param start_date query string false "YYYY-MM-DD or RFC 3339"
// @Param end_date query string false "YYYY-MM-DD or RFC 3339"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} services.AdjustmentPage
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/credits/adjustments [get]
func (h *AdminHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	page, err := h.audit.ListAdjustments(r.Context(), services.AdjustmentQuery{
		TargetUserID: strings.TrimSpace(r.URL.Query().Get("user_id")),
		From:         params.from,
		To:           params.to,
		Page:         params.page,
		Limit:        params.limit,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, page)
}

// ListReconciliation lists metered actions that succeeded but were not charged
// @Summary List uncharged actions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} services.ReconciliationPage
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/credits/reconciliation [get]
func (h *AdminHandler) ListReconciliation(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	page, err := h.audit.ListReconciliation(r.Context(), params.page, params.limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, page)
}
