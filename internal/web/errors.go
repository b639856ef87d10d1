package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is wrapped via core.NewUserError to get user-friendly message
//  4. The status code is derived from the message code
//  5. Technical error is logged with the request ID; the client gets JSON

import (
	"net/http"

	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/JonMunkholm/ratingprep/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusByCode maps user message codes to HTTP status codes.
var statusByCode = map[string]int{
	"FILE001": http.StatusNotFound,
	"FILE002": http.StatusBadRequest,
	"FILE003": http.StatusBadRequest,
	"FILE004": http.StatusBadRequest,
	"FILE006": http.StatusRequestEntityTooLarge,
	"CAT001":  http.StatusNotFound,
	"JOB001":  http.StatusServiceUnavailable,
	"JOB003":  http.StatusGatewayTimeout,
}

// statusFor returns the HTTP status for a mapped error. Unmapped codes are 500.
func statusFor(msg core.UserMessage) int {
	if status, ok := statusByCode[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes a user-friendly JSON body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	ue := core.NewUserError(err)
	status := statusFor(ue.User)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   ue.Error(),
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
	})
}
