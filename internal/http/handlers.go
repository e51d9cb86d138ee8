package http

import (
	"io"
	"log/slog"
	"net/http"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ownerID, _ := OwnerFromContext(r.Context())

	acct, err := s.ledger.CreateAccount(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully",
		"balance": acct.Balance,
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ownerID, _ := OwnerFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "Read body error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cmd, err := ParseDepositCommand(ownerID, body)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := s.ledger.Deposit(r.Context(), cmd.OwnerID, cmd.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Deposit successful",
		"balance": balance,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ownerID, _ := OwnerFromContext(r.Context())

	balance, err := s.ledger.GetBalance(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fromOwnerID, _ := OwnerFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "Read body error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cmd, err := ParseTransferCommand(fromOwnerID, body)
	if err != nil {
		writeError(w, err)
		return
	}

	transferID, err := s.ledger.Transfer(r.Context(), cmd.Intent())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Transfer successful",
		"transfer_id": transferID,
	})
}
