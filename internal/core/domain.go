package core

import (
	"errors"
	"strings"
)

type (
	// Money is an amount in the smallest currency unit.
	Money struct {
		Units int64
	}

	// Account holds the balance for a single owner. OwnerID is the opaque
	// identifier handed over by the identity provider; it never changes
	// after creation.
	Account struct {
		OwnerID string `json:"owner_id"`
		Balance int64  `json:"balance"`
	}

	// TransferIntent describes one requested transfer. It is never
	// persisted; only its committed outcome is.
	TransferIntent struct {
		FromOwnerID string
		ToOwnerID   string
		Amount      int64
	}
)

var (
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidOwner        = errors.New("owner id must not be empty")
	ErrSameAccount         = errors.New("from and to accounts are the same")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStoreUnavailable    = errors.New("account store unavailable")
)

func (m Money) Validate() error {
	if m.Units <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the intent before any storage is touched. A transfer to
// the same account is rejected: it could never move value and would still
// emit an audit event.
func (t TransferIntent) Validate() error {
	if strings.TrimSpace(t.FromOwnerID) == "" || strings.TrimSpace(t.ToOwnerID) == "" {
		return ErrInvalidOwner
	}
	if t.FromOwnerID == t.ToOwnerID {
		return ErrSameAccount
	}
	return Money{Units: t.Amount}.Validate()
}
