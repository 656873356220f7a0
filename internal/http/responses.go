package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "custodian/pkg/domain-errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain error codes to HTTP statuses. Incidents never reach
// this path; end users only see denials, not-found, conflicts, and store
// failure classes.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case dErrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeConflict:
		status = http.StatusConflict
	case dErrors.CodeNotWhitelisted:
		status = http.StatusForbidden
	case dErrors.CodeWhitelistMissing:
		// Operator misconfiguration, not user error.
		status = http.StatusServiceUnavailable
	case dErrors.CodeTransientStore:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	case dErrors.CodePermanentStore:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", string(code), "error", err)
	}

	msg := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: msg})
}
