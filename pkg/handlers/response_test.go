package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
)

func TestWriteOutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not answerable", apperrors.NewOutcome(apperrors.CodeNotAnswerable, "no relevant tables"), http.StatusUnprocessableEntity},
		{"unknown tables", apperrors.NewOutcome(apperrors.CodeUnknownTables, "invoices"), http.StatusUnprocessableEntity},
		{"no valid tables", apperrors.NewOutcome(apperrors.CodeNoValidTables, "empty schema"), http.StatusUnprocessableEntity},
		{"generation failed", apperrors.NewOutcome(apperrors.CodeGenerationFailed, "no candidate"), http.StatusBadGateway},
		{"retries exhausted", apperrors.NewOutcome(apperrors.CodeRetriesExhausted, "gave up"), http.StatusBadGateway},
		{"internal", apperrors.NewOutcome(apperrors.CodeInternal, "boom"), http.StatusInternalServerError},
		{"plain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			assert.NoError(t, WriteOutcome(rec, tt.err))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
