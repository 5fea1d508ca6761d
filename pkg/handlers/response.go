package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteOutcome maps a workflow outcome onto an HTTP error response.
// Semantic rejections are the caller's problem (422); oracle failures are
// upstream problems (502); everything else is ours (500).
func WriteOutcome(w http.ResponseWriter, err error) error {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch {
	case apperrors.IsSemanticRejection(err):
		status = http.StatusUnprocessableEntity
	case code == apperrors.CodeGenerationFailed || code == apperrors.CodeRetriesExhausted:
		status = http.StatusBadGateway
	}

	return ErrorResponse(w, status, string(code), err.Error())
}
