package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerlite/internal/memory"
	sheetsmem "ledgerlite/internal/sheets/memory"
)

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != 30*time.Second || config.BatchSize != 10 || config.MaxRetries != 3 {
		t.Errorf("unexpected defaults %+v", config)
	}

	p := NewSyncProcessor(nil, nil, SyncProcessorConfig{BatchSize: 20})
	if p.config.BatchSize != 20 || p.config.MaxRetries != 3 {
		t.Errorf("zero fields should take defaults: %+v", p.config)
	}
}

func TestProcessBacklogMirrorsPending(t *testing.T) {
	repo := memory.NewRepository()
	mirror := sheetsmem.New()
	ctx := context.Background()
	for day := 1; day <= 3; day++ {
		if _, err := repo.CreateExpense(ctx, expense("u1", day, int64(day*100), "Food")); err != nil {
			t.Fatal(err)
		}
	}

	p := NewSyncProcessor(repo, mirror, SyncProcessorConfig{BatchSize: 2})
	n, err := p.ProcessBacklog(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	n, _ = p.ProcessBacklog(ctx)
	if n != 1 {
		t.Errorf("second sweep: n=%d, want 1", n)
	}
	if rows := mirror.Rows(); len(rows) != 3 {
		t.Errorf("mirrored %d rows, want 3", len(rows))
	}
	if pending, _ := repo.PendingSync(ctx, 10); len(pending) != 0 {
		t.Errorf("pending = %v", pending)
	}
}

func TestHandleSkipsStaleAndDeleted(t *testing.T) {
	repo := memory.NewRepository()
	mirror := sheetsmem.New()
	ctx := context.Background()
	e, _ := repo.CreateExpense(ctx, expense("u1", 1, 100, "Food"))
	e.Note = "edited"
	if _, err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}

	p := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())
	if err := p.Handle(ctx, e.ID, 1); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 0 {
		t.Error("stale version must not be mirrored")
	}
	if err := p.Handle(ctx, e.ID, 2); err != nil {
		t.Fatal(err)
	}
	if rows := mirror.Rows(); len(rows) != 1 || rows[0].Version != 2 || rows[0].Expense.Note != "edited" {
		t.Errorf("unexpected rows %+v", rows)
	}

	if err := p.Handle(ctx, 999, 1); err != nil {
		t.Errorf("deleted expense should be skipped, got %v", err)
	}
}

func TestHandleRetryBudget(t *testing.T) {
	repo := memory.NewRepository()
	mirror := sheetsmem.New()
	mirror.FailWith(errors.New("quota exceeded"))
	ctx := context.Background()
	e, _ := repo.CreateExpense(ctx, expense("u1", 1, 100, "Food"))

	p := NewSyncProcessor(repo, mirror, SyncProcessorConfig{MaxRetries: 2})
	if err := p.Handle(ctx, e.ID, 1); err == nil {
		t.Error("first failure should ask for a retry")
	}
	if err := p.Handle(ctx, e.ID, 1); err != nil {
		t.Errorf("exhausted budget should ack, got %v", err)
	}
	if pending, _ := repo.PendingSync(ctx, 10); len(pending) != 0 {
		t.Errorf("failed expense should leave the backlog, pending=%v", pending)
	}

	// an edit queues it again
	e.Note = "retry"
	_, _ = repo.UpdateExpense(ctx, e)
	mirror.FailWith(nil)
	if n, _ := p.ProcessBacklog(ctx); n != 1 {
		t.Errorf("edited expense should sync, n=%d", n)
	}
}

func TestSyncProcessorLifecycle(t *testing.T) {
	p := NewSyncProcessor(memory.NewRepository(), sheetsmem.New(), SyncProcessorConfig{PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(ctx); err != nil {
		t.Errorf("Stop on an idle processor: %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}
}

