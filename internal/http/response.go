package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/identity"
)

// errorBody is the uniform error payload. Code is stable for machine
// matching; Message is for humans.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a core/identity error onto a status and a stable error
// code. Each condition in the taxonomy maps to a distinct pair; nothing is
// swallowed into a generic success.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "unknown"
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, core.ErrInvalidOwner):
		status, code = http.StatusBadRequest, "invalid_owner"
	case errors.Is(err, core.ErrSameAccount):
		status, code = http.StatusBadRequest, "same_account"
	case errors.Is(err, core.ErrAccountNotFound):
		status, code = http.StatusNotFound, "account_not_found"
	case errors.Is(err, core.ErrAccountExists):
		status, code = http.StatusConflict, "account_exists"
	case errors.Is(err, core.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, core.ErrStoreUnavailable):
		status, code = http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, identity.ErrTokenExpired), errors.Is(err, identity.ErrInvalidToken):
		status, code = http.StatusForbidden, "invalid_token"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak storage internals to callers.
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
