// Package storage implements the account store: durable, atomic persistence
// of per-owner balances plus the transfer audit trail.
//
// Two backends exist. SQLiteStore is the durable one; MemoryStore backs
// tests and throwaway deployments. Both expose the same primitives and both
// guarantee that the two legs of a transfer become visible together or not
// at all.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists accounts in a SQLite database.
//
// Concurrency model: the pool is capped at one connection, so every
// statement and every transaction is serialized by the store itself; the
// busy-timeout pragma covers external writers sharing the file. The debit
// leg of a transfer re-validates the balance atomically inside the
// transaction (see Transfer), so a pre-check that lost a race can never
// overdraw an account. The CHECK constraint on accounts.balance backstops
// the same invariant at the schema level.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithTimeout bounds every store operation, transactions included. Waits
// that exceed it surface as core.ErrStoreUnavailable instead of hanging.
func WithTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		s.timeout = d
	}
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &SQLiteStore{
		db:      db,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// FindByOwner returns the account for ownerID or core.ErrAccountNotFound.
func (s *SQLiteStore) FindByOwner(ctx context.Context, ownerID string) (core.Account, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var acct core.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id, balance FROM accounts WHERE owner_id = ?`, ownerID,
	).Scan(&acct.OwnerID, &acct.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, mapSQLiteError(err)
	}
	return acct, nil
}

// CreateAccount inserts a fresh account. The primary key on owner_id
// enforces at most one account per owner; a duplicate insert comes back as
// core.ErrAccountExists.
func (s *SQLiteStore) CreateAccount(ctx context.Context, ownerID string, initialBalance int64) (core.Account, error) {
	if initialBalance < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (owner_id, balance) VALUES (?, ?)`, ownerID, initialBalance)
	if err != nil {
		return core.Account{}, mapSQLiteError(err)
	}
	return core.Account{OwnerID: ownerID, Balance: initialBalance}, nil
}

// AtomicIncrement applies balance += delta relative to the stored value and
// returns the new balance. The single UPDATE makes interleaved increments
// lose nothing; callers never read-then-write-back.
func (s *SQLiteStore) AtomicIncrement(ctx context.Context, ownerID string, delta int64) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var balance int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + ? WHERE owner_id = ? RETURNING balance`,
		delta, ownerID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrAccountNotFound
	}
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return balance, nil
}

// RunTransaction executes work inside one database transaction. The
// transaction is committed only if work returns nil; every other exit path,
// errors and panics included, rolls it back.
func (s *SQLiteStore) RunTransaction(ctx context.Context, work func(tx *sql.Tx) error) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer tx.Rollback()

	if err := work(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// Transfer moves amount between two accounts in one transaction.
//
// The debit UPDATE carries the `balance >= ?` guard, so the sufficiency
// decision happens atomically against the stored value at commit time, not
// against whatever the caller read earlier. Zero affected rows means the
// account either vanished or would have gone negative; the transaction
// rolls back and no leg is applied.
func (s *SQLiteStore) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return core.ErrInvalidAmount
	}
	return s.RunTransaction(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE owner_id IN (?, ?)`, from, to,
		).Scan(&n); err != nil {
			return mapSQLiteError(err)
		}
		if n != 2 {
			return core.ErrAccountNotFound
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance - ? WHERE owner_id = ? AND balance >= ?`,
			amount, from, amount)
		if err != nil {
			return mapSQLiteError(err)
		}
		debited, err := res.RowsAffected()
		if err != nil {
			return mapSQLiteError(err)
		}
		if debited == 0 {
			return core.ErrInsufficientBalance
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance + ? WHERE owner_id = ?`,
			amount, to); err != nil {
			return mapSQLiteError(err)
		}
		return nil
	})
}

// SumBalances returns the total value held across all accounts. Transfers
// keep this sum invariant; it exists for conservation checks.
func (s *SQLiteStore) SumBalances(ctx context.Context) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sum int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM accounts`,
	).Scan(&sum)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return sum, nil
}

func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mapSQLiteError folds driver failures into the core taxonomy. Constraint
// names are matched on message text; the modernc driver does not export
// stable sentinel errors for them.
func mapSQLiteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return core.ErrAccountExists
	case strings.Contains(msg, "CHECK constraint failed"):
		return core.ErrInsufficientBalance
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("sqlite: %w", err)
	}
}
