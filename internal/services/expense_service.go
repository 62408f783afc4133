package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ports"
)

// ExpenseStore is the persistence the service needs.
type ExpenseStore interface {
	ports.ExpenseRepository
	ExpenseVersion(ctx context.Context, id int64) (int64, error)
}

// SyncPublisher queues a mirror job. *amqp.Client implements it.
type SyncPublisher interface {
	PublishExpenseSync(ctx context.Context, id, version int64) error
}

// ExpenseService writes expenses and queues each new version for the sheet
// mirror. Publishing is best effort: the local write is authoritative.
type ExpenseService struct {
	storage   ExpenseStore
	publisher SyncPublisher
}

func NewExpenseService(storage ExpenseStore, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{storage: storage, publisher: publisher}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publishSync(ctx, saved.ID)
	return saved, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.storage.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.publishSync(ctx, saved.ID)
	return saved, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID string, id int64) error {
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, userID, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, year, month int) ([]core.Expense, error) {
	items, err := s.storage.ListExpenses(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

// MonthSummary aggregates one month of the user's expenses.
func (s *ExpenseService) MonthSummary(ctx context.Context, userID string, year, month int) (core.MonthSummary, error) {
	if month < 1 || month > 12 || year < 1 {
		return core.MonthSummary{}, fmt.Errorf("invalid month %d-%d: %w", year, month, core.ErrInvalidDate)
	}
	items, err := s.ListExpenses(ctx, userID, year, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(year, month, items), nil
}

func (s *ExpenseService) publishSync(ctx context.Context, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No sync publisher configured, mirror will catch up from the backlog", "id", id)
		return
	}
	version, err := s.storage.ExpenseVersion(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read expense version", "id", id, "error", err)
		return
	}
	if err := s.publisher.PublishExpenseSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "version", version, "error", err)
	}
}
