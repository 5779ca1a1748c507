// Package httpapi holds the JSON response helpers and middleware shared by every HTTP handler.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"linkcamp/internal/common"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageResponse{Message: msg})
}

// WriteError maps err onto the error taxonomy. Storage failures answer
// "Server error" and carry the driver message in the error field.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)

	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		appErr = common.NewStorageError("", err)
	}

	body := ErrorResponse{Message: appErr.Message, Code: appErr.Code}
	if appErr.Kind == common.KindStorage {
		body.Message = "Server error"
		body.Error = err.Error()
		LoggerFrom(r.Context()).Error("request failed", "error", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}

	WriteJSON(w, status, body)
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewValidationError("Invalid JSON body")
	}
	return nil
}
