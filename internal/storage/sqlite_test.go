package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// A failure injected between the two legs must roll everything back.
func TestRunTransactionRollsBackOnError(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	mustCreate(t, store, "a", 100)
	mustCreate(t, store, "b", 50)

	injected := errors.New("injected failure")
	err := store.RunTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance - 30 WHERE owner_id = 'a'`); err != nil {
			t.Fatalf("debit leg: %v", err)
		}
		return injected
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	if got := balanceOf(t, store, "a"); got != 100 {
		t.Fatalf("a = %d after aborted transaction, want 100", got)
	}
	if got := balanceOf(t, store, "b"); got != 50 {
		t.Fatalf("b = %d after aborted transaction, want 50", got)
	}
}

func TestRunTransactionCommits(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	mustCreate(t, store, "a", 100)

	err := store.RunTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance + 11 WHERE owner_id = 'a'`)
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := balanceOf(t, store, "a"); got != 111 {
		t.Fatalf("a = %d, want 111", got)
	}
}

// The schema-level CHECK rejects any write that would push a balance
// negative, even through a raw transaction that bypasses the guarded debit.
func TestBalanceCheckConstraint(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	mustCreate(t, store, "a", 10)

	err := store.RunTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance - 20 WHERE owner_id = 'a'`)
		if err != nil {
			return mapSQLiteError(err)
		}
		return nil
	})
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance from CHECK, got %v", err)
	}
	if got := balanceOf(t, store, "a"); got != 10 {
		t.Fatalf("a = %d, want 10", got)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustCreate(t, store, "alice", 42)
	store.Close()

	// Reopening runs migrations again; data survives.
	store2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer store2.Close()
	if got := balanceOf(t, store2, "alice"); got != 42 {
		t.Fatalf("balance after reopen = %d, want 42", got)
	}
}

func TestRecordTransferIdempotent(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	rec := TransferRecord{
		TransferID: "f6a2c1ee-0000-4000-8000-000000000001",
		FromOwner:  "a",
		ToOwner:    "b",
		Amount:     30,
		OccurredAt: time.Now(),
	}
	if err := store.RecordTransfer(ctx, rec); err != nil {
		t.Fatalf("first record: %v", err)
	}
	// Redelivered event: same id, silently skipped.
	if err := store.RecordTransfer(ctx, rec); err != nil {
		t.Fatalf("second record: %v", err)
	}

	n, err := store.CountTransfers(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("audit rows = %d, want 1", n)
	}

	got, ok, err := store.FindTransfer(ctx, rec.TransferID)
	if err != nil || !ok {
		t.Fatalf("find transfer: ok=%v err=%v", ok, err)
	}
	if got.FromOwner != "a" || got.ToOwner != "b" || got.Amount != 30 {
		t.Fatalf("stored record = %+v", got)
	}

	if _, ok, err := store.FindTransfer(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing transfer: ok=%v err=%v", ok, err)
	}
}

func TestOperationTimeoutSurfacesAsUnavailable(t *testing.T) {
	store := newSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindByOwner(ctx, "alice")
	if !errors.Is(err, core.ErrStoreUnavailable) && !errors.Is(err, core.ErrAccountNotFound) {
		// A canceled context must never hang; it maps to the unavailable
		// class unless the row lookup already completed.
		t.Fatalf("expected store unavailable, got %v", err)
	}
}
