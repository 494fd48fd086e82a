package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/promptcraft/backend/internal/generation"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// Generator is the upstream generation call.
type Generator interface {
	Generate(ctx context.Context, req *generation.Request) (*generation.Response, error)
}

type GenerationHandler struct {
	admission *services.AdmissionController
	generator Generator
	cost      int64
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

func NewGenerationHandler(admission *services.AdmissionController, generator Generator, cost int64, log logrus.FieldLogger) *GenerationHandler {
	return &GenerationHandler{
		admission: admission,
		generator: generator,
		cost:      cost,
		validator: services.NewValidationHelper(),
		log:       log.WithField("handler", "generations"),
	}
}

type GenerationRequest struct {
	Prompt string `json:"prompt" validate:"required,max=4000" example:"A watercolor fox"`
	Model  string `json:"model,omitempty" validate:"max=64" example:"img-1"`
}

type GenerationResponse struct {
	Output     string `json:"output"`
	Model      string `json:"model,omitempty"`
	Charged    bool   `json:"charged"`
	Cost       int64  `json:"cost"`
	NewBalance *int64 `json:"new_balance,omitempty"`
}

// Generate runs a metered generation
// @Summary Run a generation
// @Description Checks the balance, calls the generation service and charges the cost only if it succeeded.
// @Tags generations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GenerationRequest true "Generation"
// @Success 200 {object} GenerationResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /generations [post]
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req GenerationRequest
	if err := h.validator.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.admission.Run(r.Context(), services.Admission{
		UserID:      user.ID,
		Cost:        h.cost,
		Description: "Generation: " + truncate(req.Prompt, 80),
	}, func(ctx context.Context) (any, error) {
		resp, err := h.generator.Generate(ctx, &generation.Request{
			Prompt: req.Prompt,
			Model:  req.Model,
			UserID: user.ID,
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(resp.Output) == "" {
			return nil, nil
		}
		return resp, nil
	})

	var insufficient *services.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		services.SendInsufficientCredits(w, http.StatusPaymentRequired, insufficient)
		return
	}
	if err != nil {
		if errors.Is(err, services.ErrActionFailed) {
			h.log.WithField("user_id", user.ID).WithError(err).Warn("Generation failed")
		}
		writeError(w, h.log, err)
		return
	}

	resp := result.Output.(*generation.Response)
	body := GenerationResponse{
		Output:  resp.Output,
		Model:   resp.Model,
		Charged: result.Charged,
		Cost:    h.cost,
	}
	if result.Charged {
		body.NewBalance = &result.NewBalance
	}
	services.WriteJSON(w, http.StatusOK, body)
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
