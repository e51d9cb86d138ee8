// Package services contains the ledger service: the one place balance
// mutation rules live. Handlers parse, the store persists, this package
// decides.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// AccountStore is the storage the ledger runs against. Implementations must
// make AtomicIncrement a single relative update and Transfer an
// all-or-nothing two-leg mutation; the service never compensates for a
// store that applies half a transfer.
type AccountStore interface {
	FindByOwner(ctx context.Context, ownerID string) (core.Account, error)
	CreateAccount(ctx context.Context, ownerID string, initialBalance int64) (core.Account, error)
	AtomicIncrement(ctx context.Context, ownerID string, delta int64) (int64, error)
	Transfer(ctx context.Context, from, to string, amount int64) error
	SumBalances(ctx context.Context) (int64, error)
	Close() error
}

// TransferPublisher emits an event for every committed transfer.
type TransferPublisher interface {
	PublishTransferCompleted(ctx context.Context, transferID, from, to string, amount int64, occurredAt time.Time) error
}

// Ledger implements account creation, deposits, balance reads and transfers.
type Ledger struct {
	store        AccountStore
	publisher    TransferPublisher
	initialGrant int64
	logger       *applog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithInitialGrant sets the onboarding credit applied by CreateAccount.
// The identity provider's signup flow relies on this being the grant the
// account starts with.
func WithInitialGrant(units int64) LedgerOption {
	return func(l *Ledger) {
		l.initialGrant = units
	}
}

// WithPublisher attaches a transfer-event publisher. Publishing is
// best-effort: a broker failure never fails a committed transfer.
func WithPublisher(p TransferPublisher) LedgerOption {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func WithLogger(logger *applog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func NewLedger(store AccountStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		logger: applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAccount opens the single account for ownerID, credited with the
// initial grant. Already-existing accounts are reported, not retried.
func (l *Ledger) CreateAccount(ctx context.Context, ownerID string) (core.Account, error) {
	if ownerID == "" {
		return core.Account{}, core.ErrInvalidOwner
	}
	acct, err := l.store.CreateAccount(ctx, ownerID, l.initialGrant)
	if err != nil {
		return core.Account{}, err
	}

	l.logger.InfoContext(ctx, "Account created",
		applog.FieldOwnerID, ownerID,
		applog.FieldBalance, acct.Balance,
		applog.FieldOperation, applog.OpCreate)
	return acct, nil
}

// Deposit credits amount to the owner's account via a single atomic
// increment against the stored value.
func (l *Ledger) Deposit(ctx context.Context, ownerID string, amount int64) (int64, error) {
	if err := (core.Money{Units: amount}).Validate(); err != nil {
		return 0, err
	}
	balance, err := l.store.AtomicIncrement(ctx, ownerID, amount)
	if err != nil {
		return 0, err
	}

	l.logger.InfoContext(ctx, "Deposit applied",
		applog.FieldOwnerID, ownerID,
		applog.FieldAmount, amount,
		applog.FieldBalance, balance,
		applog.FieldOperation, applog.OpDeposit)
	return balance, nil
}

// GetBalance reads the current balance. No side effects; the service holds
// no balance cache, every call hits the store.
func (l *Ledger) GetBalance(ctx context.Context, ownerID string) (int64, error) {
	acct, err := l.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Transfer moves value between two accounts.
//
// The fast-fail sufficiency check below reads a snapshot; it exists only to
// reject hopeless requests before opening a transaction. Correctness under
// concurrency comes from the store's Transfer, which re-validates
// non-negativity atomically inside the same transaction as both legs.
func (l *Ledger) Transfer(ctx context.Context, intent core.TransferIntent) (string, error) {
	if err := intent.Validate(); err != nil {
		return "", err
	}

	from, err := l.store.FindByOwner(ctx, intent.FromOwnerID)
	if err != nil {
		return "", err
	}
	if _, err := l.store.FindByOwner(ctx, intent.ToOwnerID); err != nil {
		return "", err
	}
	if from.Balance < intent.Amount {
		return "", core.ErrInsufficientBalance
	}

	transferID := uuid.NewString()
	occurredAt := time.Now().UTC()
	if err := l.store.Transfer(ctx, intent.FromOwnerID, intent.ToOwnerID, intent.Amount); err != nil {
		return "", fmt.Errorf("transfer %s: %w", transferID, err)
	}

	l.logger.InfoContext(ctx, "Transfer committed",
		applog.FieldTransferID, transferID,
		applog.FieldFromOwner, intent.FromOwnerID,
		applog.FieldToOwner, intent.ToOwnerID,
		applog.FieldAmount, intent.Amount,
		applog.FieldOperation, applog.OpTransfer)

	if l.publisher != nil {
		if err := l.publisher.PublishTransferCompleted(ctx, transferID,
			intent.FromOwnerID, intent.ToOwnerID, intent.Amount, occurredAt); err != nil {
			// The transfer is committed; the audit trail catches up when the
			// broker does.
			l.logger.ErrorContext(ctx, "Failed to publish transfer event",
				applog.FieldTransferID, transferID,
				applog.FieldError, err)
		}
	}

	return transferID, nil
}

// TotalBalance reports the value held across all accounts.
func (l *Ledger) TotalBalance(ctx context.Context) (int64, error) {
	return l.store.SumBalances(ctx)
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
