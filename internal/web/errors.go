package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged server-side with the request ID and returned to the
// client as JSON with the message, action and support code from
// core.MapError.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	writeJSON(w, r, statusCode, ErrorResponse{
		Error:   errorDetail(err, userMsg),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// errorDetail exposes the text of errors that are safe and useful to show:
// the offending line of a malformed file and the original import of a
// duplicate. Everything else is reduced to the mapped message.
func errorDetail(err error, msg core.UserMessage) string {
	var recErr *core.RecordError
	if errors.As(err, &recErr) {
		return recErr.Error()
	}
	var dupErr *core.AlreadyImportedError
	if errors.As(err, &dupErr) {
		return dupErr.Error()
	}
	return msg.Message
}
