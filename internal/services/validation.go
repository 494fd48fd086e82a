package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error codes rendered in ErrorResponse.Error.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error          string            `json:"error"`                     // Error code
	Message        string            `json:"message"`                   // Human readable message
	Details        map[string]string `json:"details,omitempty"`         // Validation details
	CurrentBalance *int64            `json:"current_balance,omitempty"` // Set on insufficient credits
	Deficit        *int64            `json:"deficit,omitempty"`         // Set on insufficient credits
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// DecodeJSON reads a single JSON object from r into dst, rejecting unknown
// fields and bodies over maxBytes, then validates it.
func (vh *ValidationHelper) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &RequestError{Err: err}
	}
	if dec.More() {
		return &RequestError{Err: errors.New("request body must contain a single JSON object")}
	}
	return vh.ValidateStruct(dst)
}

// RequestError is a malformed request body.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "invalid request body: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, code, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: code, Message: message}

	var verrs validator.ValidationErrors
	if errors.As(validationErr, &verrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range verrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	WriteJSON(w, statusCode, errorResp)
}

// SendInsufficientCredits renders a shortfall with its balance and deficit.
func SendInsufficientCredits(w http.ResponseWriter, statusCode int, e *InsufficientCreditsError) {
	current, deficit := e.CurrentBalance, e.Deficit
	WriteJSON(w, statusCode, ErrorResponse{
		Error:          CodeInsufficientCredits,
		Message:        "Insufficient credits",
		CurrentBalance: &current,
		Deficit:        &deficit,
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
