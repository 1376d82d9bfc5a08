package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the envelope every generic error response shares.
type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RequireMethod writes a 405 and returns false unless the request uses the
// given method.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON marshals data and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(body)
	return err
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, errorBody{Status: "error", Error: message})
}
