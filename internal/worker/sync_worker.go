// Package worker runs the sheet mirror: it consumes expense sync messages and
// sweeps the backlog for anything the broker lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerlite/internal/amqp"
)

// Processor mirrors single expenses and sweeps the backlog.
// *services.SyncProcessor implements it.
type Processor interface {
	Handle(ctx context.Context, id, version int64) error
	ProcessBacklog(ctx context.Context) (int, error)
}

// Consumer delivers expense sync messages. *amqp.Client implements it.
type Consumer interface {
	ConsumeExpenseSync(ctx context.Context, handler func(context.Context, *amqp.ExpenseSyncMessage) error) error
}

// startupBatches bounds the catch-up sweep at startup.
const startupBatches = 5

// SyncWorker handles synchronization of expenses from the database to Google Sheets
type SyncWorker struct {
	processor Processor
}

func NewSyncWorker(processor Processor) *SyncWorker {
	return &SyncWorker{processor: processor}
}

// HandleSyncMessage processes a single expense sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	if err := w.processor.Handle(ctx, msg.ID, msg.Version); err != nil {
		return fmt.Errorf("sync expense %d: %w", msg.ID, err)
	}
	return nil
}

// StartupSyncCheck syncs expenses left pending while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for i := 0; i < startupBatches; i++ {
		n, err := w.processor.ProcessBacklog(ctx)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		total += n
		if n == 0 {
			break
		}
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
	} else {
		slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	}
	return nil
}

// Run performs the startup check and then consumes messages until ctx ends.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}
	return consumer.ConsumeExpenseSync(ctx, w.HandleSyncMessage)
}
