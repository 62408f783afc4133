package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledgerlite/internal/ports"
	"ledgerlite/internal/sheets"
)

type SyncProcessorConfig struct {
	// PollInterval is how often the backlog is swept (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of expenses per sweep (default: 10)
	BatchSize int

	// MaxRetries is the number of failed attempts before an expense is
	// marked as failed (default: 3)
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor mirrors expenses to the sheet, either on demand for a queued
// message or by sweeping the unsynced backlog.
type SyncProcessor struct {
	storage ports.SyncRepository
	sheets  sheets.ExpenseWriter
	config  SyncProcessorConfig

	attemptsMu sync.Mutex
	attempts   map[int64]int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(storage ports.SyncRepository, sheetsWriter sheets.ExpenseWriter, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &SyncProcessor{
		storage:  storage,
		sheets:   sheetsWriter,
		config:   config,
		attempts: make(map[int64]int),
	}
}

// SyncOne mirrors expense id. A version older than the stored one is
// skipped because a newer message is on its way. A deleted expense is not
// an error.
func (p *SyncProcessor) SyncOne(ctx context.Context, id, version int64) error {
	current, err := p.storage.ExpenseVersion(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		slog.InfoContext(ctx, "Expense gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense version %d: %w", id, err)
	}
	if version > 0 && version < current {
		slog.DebugContext(ctx, "Stale sync message, skipping", "id", id, "version", version, "current", current)
		return nil
	}

	e, err := p.storage.GetExpenseByID(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}

	ref, err := p.sheets.Append(ctx, e, current)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := p.storage.MarkSynced(ctx, id, ref); err != nil {
		// the row is already in the sheet
		slog.WarnContext(ctx, "Failed to mark expense as synced", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "Synced expense to sheet", "id", id, "version", current, "sheets_ref", ref)
	return nil
}

// Handle runs SyncOne and applies the retry budget. It returns an error only
// while the expense should be retried.
func (p *SyncProcessor) Handle(ctx context.Context, id, version int64) error {
	err := p.SyncOne(ctx, id, version)
	if err == nil {
		p.resetAttempts(id)
		return nil
	}

	n := p.recordAttempt(id)
	slog.WarnContext(ctx, "Sync attempt failed", "id", id, "attempt", n, "error", err)
	if n < p.config.MaxRetries {
		return err
	}

	p.resetAttempts(id)
	if markErr := p.storage.MarkSyncError(ctx, id, err); markErr != nil {
		slog.ErrorContext(ctx, "Failed to mark expense sync error", "id", id, "error", markErr)
	}
	slog.ErrorContext(ctx, "Sync failed permanently after max retries", "id", id, "attempts", n)
	return nil
}

func (p *SyncProcessor) recordAttempt(id int64) int {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	p.attempts[id]++
	return p.attempts[id]
}

func (p *SyncProcessor) resetAttempts(id int64) {
	p.attemptsMu.Lock()
	delete(p.attempts, id)
	p.attemptsMu.Unlock()
}

// ProcessBacklog mirrors one batch of unsynced expenses and returns how many
// succeeded.
func (p *SyncProcessor) ProcessBacklog(ctx context.Context) (int, error) {
	ids, err := p.storage.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending sync expenses: %w", err)
	}
	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := p.Handle(ctx, id, 0); err == nil {
			done++
		}
	}
	if len(ids) > 0 {
		slog.DebugContext(ctx, "Processed sync backlog", "pending", len(ids), "synced", done)
	}
	return done, nil
}

// Start sweeps the backlog every PollInterval until Stop or ctx ends.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	p.mu.Lock()
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	if _, err := p.ProcessBacklog(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Backlog sweep failed", "error", err)
	}
}
