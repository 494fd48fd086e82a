// Package handlers exposes the credit ledger over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/promptcraft/backend/internal/middleware"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1_048_576

// currentUser writes 401 and returns false when the request is anonymous.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok || user.ID == "" {
		services.SendErrorResponse(w, services.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized, nil)
		return nil, false
	}
	return user, true
}

// writeError maps ledger, recharge and admission errors onto the HTTP
// contract. Anything unrecognised is logged and reported as 500.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var (
		insufficient *services.InsufficientCreditsError
		requestErr   *services.RequestError
		invalid      validator.ValidationErrors
	)
	switch {
	case errors.As(err, &requestErr):
		services.SendErrorResponse(w, services.CodeValidation, requestErr.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &invalid):
		services.SendErrorResponse(w, services.CodeValidation, "Validation failed", http.StatusBadRequest, err)
	case errors.As(err, &insufficient):
		services.SendInsufficientCredits(w, http.StatusBadRequest, insufficient)
	case services.IsValidation(err), errors.Is(err, services.ErrOrderMismatch):
		services.SendErrorResponse(w, services.CodeValidation, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrNotFound):
		services.SendErrorResponse(w, services.CodeNotFound, "Account not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrOrderNotFound):
		services.SendErrorResponse(w, services.CodeNotFound, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrIdempotencyKeyConflict):
		services.SendErrorResponse(w, services.CodeConflict, err.Error(), http.StatusConflict, nil)
	case errors.Is(err, services.ErrInvalidSignature):
		services.SendErrorResponse(w, services.CodeUnauthorized, err.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrRateLimited):
		services.SendErrorResponse(w, services.CodeRateLimited, err.Error(), http.StatusTooManyRequests, nil)
	case errors.Is(err, services.ErrRechargeUnavailable):
		services.SendErrorResponse(w, services.CodeUnavailable, services.ErrRechargeUnavailable.Error(), http.StatusServiceUnavailable, nil)
	case errors.Is(err, services.ErrActionFailed):
		services.SendErrorResponse(w, services.CodeUpstream, "Generation failed, no credits were charged", http.StatusBadGateway, nil)
	default:
		log.WithError(err).Error("Request failed")
		services.SendErrorResponse(w, services.CodeInternal, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func badQuery(w http.ResponseWriter, message string) {
	services.SendErrorResponse(w, services.CodeValidation, message, http.StatusBadRequest, nil)
}

// queryInt parses an optional positive integer parameter. Zero means absent.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// queryDate accepts RFC 3339 or a plain date. A plain end date covers the
// whole day.
func queryDate(r *http.Request, name string, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// listParams reads page, limit, start_date and end_date.
type listParams struct {
	page  int
	limit int
	from  *time.Time
	to    *time.Time
}

func parseListParams(w http.ResponseWriter, r *http.Request) (listParams, bool) {
	var p listParams
	var ok bool
	if p.page, ok = queryInt(r, "page"); !ok {
		badQuery(w, "page must be a positive integer")
		return p, false
	}
	if p.limit, ok = queryInt(r, "limit"); !ok {
		badQuery(w, "limit must be a positive integer")
		return p, false
	}
	if p.from, ok = queryDate(r, "start_date", false); !ok {
		badQuery(w, "start_date must be YYYY-MM-DD or RFC 3339")
		return p, false
	}
	if p.to, ok = queryDate(r, "end_date", true); !ok {
		badQuery(w, "end_date must be YYYY-MM-DD or RFC 3339")
		return p, false
	}
	return p, true
}
