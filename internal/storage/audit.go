package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TransferRecord is one committed transfer as kept in the audit trail.
type TransferRecord struct {
	TransferID string
	FromOwner  string
	ToOwner    string
	Amount     int64
	OccurredAt time.Time
}

// RecordTransfer appends a transfer to the audit trail. The transfer_id
// primary key makes recording idempotent: a replayed event is ignored, not
// duplicated.
func (s *SQLiteStore) RecordTransfer(ctx context.Context, rec TransferRecord) error {
	if rec.TransferID == "" {
		return errors.New("record transfer: empty transfer id")
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO transfer_audit (transfer_id, from_owner, to_owner, amount, occurred_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(transfer_id) DO NOTHING
	`, rec.TransferID, rec.FromOwner, rec.ToOwner, rec.Amount, rec.OccurredAt.UTC())
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// FindTransfer returns the audit record for transferID; the second return
// value reports whether it exists.
func (s *SQLiteStore) FindTransfer(ctx context.Context, transferID string) (TransferRecord, bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var rec TransferRecord
	err := s.db.QueryRowContext(ctx, `
	SELECT transfer_id, from_owner, to_owner, amount, occurred_at
	FROM transfer_audit WHERE transfer_id = ?
	`, transferID).Scan(&rec.TransferID, &rec.FromOwner, &rec.ToOwner, &rec.Amount, &rec.OccurredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TransferRecord{}, false, nil
	}
	if err != nil {
		return TransferRecord{}, false, mapSQLiteError(err)
	}
	return rec, true, nil
}

// CountTransfers reports the number of audit rows; ops visibility and tests.
func (s *SQLiteStore) CountTransfers(ctx context.Context) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfer_audit`).Scan(&n); err != nil {
		return 0, mapSQLiteError(err)
	}
	return n, nil
}
