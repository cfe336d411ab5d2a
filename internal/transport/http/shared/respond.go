// Package shared holds response helpers common to all handler groups.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "bondly/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorResponse is the JSON error envelope every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error into its HTTP status and envelope.
// Non-domain errors collapse to a 500 with no detail leaked.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorResponse{Error: string(code)}
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		body.Message = de.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
