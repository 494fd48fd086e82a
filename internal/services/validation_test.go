package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDeductBody struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=500"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&testDeductBody{Amount: 5, Description: "image generation"})
		assert.NoError(t, err)
	})

	t.Run("missing fields are reported by json name", func(t *testing.T) {
		err := vh.ValidateStruct(&testDeductBody{})
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 2)
		assert.Equal(t, "amount", validationErrors[0].Field())
		assert.Equal(t, "description", validationErrors[1].Field())
	})

	t.Run("negative amount", func(t *testing.T) {
		err := vh.ValidateStruct(&testDeductBody{Amount: -3, Description: "x"})
		require.Error(t, err)

		validationErrors := err.(validator.ValidationErrors)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "gt", validationErrors[0].Tag())
	})
}

func TestValidationHelper_DecodeJSON(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("decodes and validates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":5,"description":"chat"}`))
		w := httptest.NewRecorder()

		var body testDeductBody
		require.NoError(t, vh.DecodeJSON(w, r, &body, 1<<20))
		assert.Equal(t, int64(5), body.Amount)
		assert.Equal(t, "chat", body.Description)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":5,"description":"chat","user_id":"u2"}`))
		w := httptest.NewRecorder()

		var body testDeductBody
		err := vh.DecodeJSON(w, r, &body, 1<<20)
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})

	t.Run("body too large", func(t *testing.T) {
		payload := `{"amount":5,"description":"` + strings.Repeat("a", 2048) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		w := httptest.NewRecorder()

		var body testDeductBody
		err := vh.DecodeJSON(w, r, &body, 1024)
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})

	t.Run("trailing data", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":5,"description":"a"}{}`))
		w := httptest.NewRecorder()

		var body testDeductBody
		err := vh.DecodeJSON(w, r, &body, 1<<20)
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})

	t.Run("validation failure is not a request error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":0,"description":"a"}`))
		w := httptest.NewRecorder()

		var body testDeductBody
		err := vh.DecodeJSON(w, r, &body, 1<<20)
		require.Error(t, err)
		_, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, CodeInternal, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, CodeInternal, response.Error)
		assert.Equal(t, "Something went wrong", response.Message)
		assert.Nil(t, response.Details)
		assert.Nil(t, response.CurrentBalance)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&testDeductBody{})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, CodeValidation, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, CodeValidation, response.Error)
		assert.Contains(t, response.Details, "amount")
		assert.Contains(t, response.Details, "description")
	})

	t.Run("non validator error adds no details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, CodeValidation, "Invalid request", http.StatusBadRequest, ErrInvalidAmount)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Nil(t, response.Details)
	})
}

func TestSendInsufficientCredits(t *testing.T) {
	w := httptest.NewRecorder()

	SendInsufficientCredits(w, http.StatusPaymentRequired, NewInsufficientCreditsError("u1", 10, 30))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, CodeInsufficientCredits, response["error"])
	assert.EqualValues(t, 10, response["current_balance"])
	assert.EqualValues(t, 20, response["deficit"])
}

func TestNewValidationHelper(t *testing.T) {
	vh := NewValidationHelper()
	assert.NotNil(t, vh)
	assert.NotNil(t, vh.validator)
}
