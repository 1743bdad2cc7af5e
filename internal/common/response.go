package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes v wrapped in the canonical {"data": ...} envelope.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError maps err onto the error envelope. AppErrors keep their code and
// status, validator errors become 400s, anything else is logged and hidden
// behind a generic 500.
func WriteError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("code", code).Msg("request failed")
		}
		JSONError(w, status, code, message, appErr.Details)
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", FieldErrors(verrs))
		return
	}
	logger.Error().Err(err).Msg("request failed")
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

// DecodeJSON decodes the request body into dst, reporting malformed payloads as validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return Validation("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		appErr := Validation("invalid payload")
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			appErr.Details = map[string]any{"offset": syntaxErr.Offset}
		}
		return appErr
	}
	return nil
}
