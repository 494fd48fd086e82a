package handlers

import (
	"net/http"
	"time"

	"github.com/promptcraft/backend/internal/middleware"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	ledger            *services.LedgerService
	registrationBonus int64
	log               logrus.FieldLogger
}

func NewUserHandler(ledger *services.LedgerService, registrationBonus int64, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		ledger:            ledger,
		registrationBonus: registrationBonus,
		log:               log.WithField("handler", "user"),
	}
}

type CreditSummary struct {
	Balance   int64     `json:"balance" example:"100"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProfileResponse struct {
	User    models.User   `json:"user"`
	Credits CreditSummary `json:"credits"`
}

// GetProfile returns the caller with their credit balance
// @Summary Get user profile
// @Description Returns the authenticated user and their credit balance. The first call opens the account and grants the registration bonus.
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /user/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	account, created, err := h.ledger.EnsureAccount(r.Context(), user.ID, h.registrationBonus)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if created {
		h.log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"balance": account.Balance,
		}).Info("Credit account opened")
	}

	services.WriteJSON(w, http.StatusOK, ProfileResponse{
		User:    *user,
		Credits: CreditSummary{Balance: account.Balance, UpdatedAt: account.UpdatedAt},
	})
}

// Logout revokes the bearer token
// @Summary Logout
// @Description Blacklists the presented token until it expires
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Failure 401 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /user/logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	token, _ := middleware.BearerToken(r)
	if err := middleware.RevokeToken(r.Context(), token); err != nil {
		h.log.WithField("user_id", user.ID).WithError(err).Warn("Failed to blacklist token")
		services.SendErrorResponse(w, services.CodeUnavailable,
			"Logout failed, the token was not revoked", http.StatusServiceUnavailable, nil)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
