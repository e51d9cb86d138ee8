package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/storage"
)

type fakeAuditStore struct {
	records []storage.TransferRecord
	fail    error
}

func (f *fakeAuditStore) RecordTransfer(ctx context.Context, rec storage.TransferRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.records = append(f.records, rec)
	return nil
}

func validEvent() *amqp.TransferEvent {
	return &amqp.TransferEvent{
		TransferID:  "t-1",
		FromOwnerID: "alice",
		ToOwnerID:   "bob",
		Amount:      30,
		OccurredAt:  time.Now(),
	}
}

func TestHandleTransferEvent(t *testing.T) {
	store := &fakeAuditStore{}
	w := NewAuditWorker(store, nil)

	if err := w.HandleTransferEvent(validEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("recorded %d rows, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.TransferID != "t-1" || rec.FromOwner != "alice" || rec.ToOwner != "bob" || rec.Amount != 30 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestHandleTransferEventDropsMalformed(t *testing.T) {
	store := &fakeAuditStore{}
	w := NewAuditWorker(store, nil)

	for _, ev := range []*amqp.TransferEvent{
		{TransferID: "", Amount: 5},
		{TransferID: "t-2", Amount: 0},
		{TransferID: "t-3", Amount: -1},
	} {
		if err := w.HandleTransferEvent(ev); err != nil {
			t.Fatalf("malformed event must not requeue: %v", err)
		}
	}
	if len(store.records) != 0 {
		t.Fatalf("recorded %d rows, want 0", len(store.records))
	}
}

func TestHandleTransferEventPropagatesStorageFailure(t *testing.T) {
	failure := errors.New("disk full")
	w := NewAuditWorker(&fakeAuditStore{fail: failure}, nil)

	if err := w.HandleTransferEvent(validEvent()); !errors.Is(err, failure) {
		t.Fatalf("expected storage failure to requeue, got %v", err)
	}
}
