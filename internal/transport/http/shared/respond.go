// Package shared holds the thin JSON response helpers the domain handlers use
// so transport concerns stay in one place.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "docgate/pkg/domain-errors"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON serializes v with the given status. Encoding failures at this
// point are unrecoverable; the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded domain error onto its HTTP status with a body that
// carries only the code, never the internal reason chain.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, dErrors.HTTPStatus(err), errorBody{Error: string(dErrors.CodeOf(err))})
}
