package middleware

import (
	"encoding/json"
	"net/http"
)

// errorEnvelope matches the API's {success, message} failure shape.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeError writes a failure envelope with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Success: false, Message: message})
}
