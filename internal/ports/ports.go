// Package ports declares the persistence contracts shared by the sqlite and
// in-memory backends.
package ports

import (
	"context"
	"errors"

	"ledgerlite/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type (
	UserRepository interface {
		// CreateUser stores u and returns ErrConflict when the email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
	}

	ExpenseRepository interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// GetExpense returns ErrNotFound when the expense belongs to someone else.
		GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error)
		// ListExpenses returns the user's expenses, newest first. A zero year
		// lists every month.
		ListExpenses(ctx context.Context, userID string, year, month int) ([]core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID string, id int64) error
	}

	// SyncRepository tracks which expenses have been mirrored externally.
	SyncRepository interface {
		GetExpenseByID(ctx context.Context, id int64) (core.Expense, error)
		ExpenseVersion(ctx context.Context, id int64) (int64, error)
		PendingSync(ctx context.Context, limit int) ([]int64, error)
		MarkSynced(ctx context.Context, id int64, ref string) error
		MarkSyncError(ctx context.Context, id int64, cause error) error
	}

	Repository interface {
		UserRepository
		ExpenseRepository
		SyncRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
