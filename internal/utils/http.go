package utils

import (
	"encoding/json"
	"errors"
	"net/http"
)

type successResponse struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes the standard success envelope {status:"success", data:{...}}.
func Success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Status: "success", Data: data})
}

// SuccessList is Success plus the results count used by list endpoints.
func SuccessList(w http.ResponseWriter, results int, data any) {
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Results: &results, Data: data})
}

// NoContent writes an empty 204 response, used after deletes.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON parses the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
