// Package worker records committed transfers into the audit trail as their
// events arrive from the broker.
package worker

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// AuditStore is the slice of the account store the worker needs.
type AuditStore interface {
	RecordTransfer(ctx context.Context, rec storage.TransferRecord) error
}

// AuditWorker turns transfer events into audit rows. Recording is
// idempotent on transfer id, so redelivered events are harmless.
type AuditWorker struct {
	store  AuditStore
	logger *applog.Logger
}

func NewAuditWorker(store AuditStore, logger *applog.Logger) *AuditWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AuditWorker{
		store:  store,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleTransferEvent is the AMQP consume callback. Returning an error
// requeues the delivery, so only storage failures bubble up; a structurally
// bad event is rejected for good.
func (w *AuditWorker) HandleTransferEvent(ev *amqp.TransferEvent) error {
	if ev.TransferID == "" || ev.Amount <= 0 {
		w.logger.Warn("Dropping malformed transfer event",
			applog.FieldTransferID, ev.TransferID,
			applog.FieldAmount, ev.Amount)
		return nil
	}

	rec := storage.TransferRecord{
		TransferID: ev.TransferID,
		FromOwner:  ev.FromOwnerID,
		ToOwner:    ev.ToOwnerID,
		Amount:     ev.Amount,
		OccurredAt: ev.OccurredAt,
	}
	if err := w.store.RecordTransfer(context.Background(), rec); err != nil {
		return fmt.Errorf("record transfer %s: %w", ev.TransferID, err)
	}

	w.logger.Info("Transfer recorded in audit trail",
		applog.FieldTransferID, ev.TransferID,
		applog.FieldFromOwner, ev.FromOwnerID,
		applog.FieldToOwner, ev.ToOwnerID,
		applog.FieldAmount, ev.Amount)
	return nil
}
