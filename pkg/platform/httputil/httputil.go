// Package httputil centralizes JSON response writing so every handler and
// middleware produces the same error envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "realform/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into a status and JSON body.
// Uncoded errors and 5xx codes are rendered with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error: dErrors.PublicMessage(err),
		Code:  string(code),
	})
}
