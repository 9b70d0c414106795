// Package shared holds the response helpers every HTTP handler uses.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "pampermomma/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the error
// envelope. Unknown errors surface as 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(err)
	message := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	WriteJSON(w, status, ErrorResponse{
		Error: message,
		Code:  string(dErrors.CodeOf(err)),
	})
}
