// Package memory is the in-process data backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ports"
)

type expenseRow struct {
	expense core.Expense
	version int64
	synced  bool
	failed  bool
}

type Repository struct {
	mu       sync.RWMutex
	users    map[string]core.User
	byEmail  map[string]string
	expenses map[int64]*expenseRow
	nextID   int64
}

var _ ports.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		users:    make(map[string]core.User),
		byEmail:  make(map[string]string),
		expenses: make(map[int64]*expenseRow),
	}
}

func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

func (r *Repository) CreateUser(_ context.Context, u core.User) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	if _, taken := r.byEmail[u.Email]; taken {
		return core.User{}, fmt.Errorf("create user %s: %w", u.Email, ports.ErrConflict)
	}
	if _, taken := r.users[u.ID]; taken {
		return core.User{}, fmt.Errorf("create user %s: %w", u.ID, ports.ErrConflict)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *Repository) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, ports.ErrNotFound
	}
	return r.users[id], nil
}

func (r *Repository) GetUser(_ context.Context, id string) (core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return core.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (r *Repository) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.expenses[e.ID] = &expenseRow{expense: e, version: 1}
	return e, nil
}

func (r *Repository) GetExpense(_ context.Context, userID string, id int64) (core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.expenses[id]
	if !ok || row.expense.UserID != userID {
		return core.Expense{}, ports.ErrNotFound
	}
	return row.expense, nil
}

func (r *Repository) GetExpenseByID(_ context.Context, id int64) (core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.expenses[id]
	if !ok {
		return core.Expense{}, ports.ErrNotFound
	}
	return row.expense, nil
}

func (r *Repository) ListExpenses(_ context.Context, userID string, year, month int) ([]core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Expense
	for _, row := range r.expenses {
		e := row.expense
		if e.UserID != userID {
			continue
		}
		if year > 0 && e.Date.Year() != year {
			continue
		}
		if year > 0 && month >= 1 && month <= 12 && int(e.Date.Month()) != month {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Repository) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.expenses[e.ID]
	if !ok || row.expense.UserID != e.UserID {
		return core.Expense{}, ports.ErrNotFound
	}
	e.CreatedAt = row.expense.CreatedAt
	row.expense = e
	row.version++
	row.synced = false
	row.failed = false
	return e, nil
}

func (r *Repository) DeleteExpense(_ context.Context, userID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.expenses[id]
	if !ok || row.expense.UserID != userID {
		return ports.ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

func (r *Repository) ExpenseVersion(_ context.Context, id int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.expenses[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return row.version, nil
}

func (r *Repository) PendingSync(_ context.Context, limit int) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id, row := range r.expenses {
		if !row.synced && !row.failed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *Repository) MarkSynced(_ context.Context, id int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.expenses[id]; ok {
		row.synced = true
	}
	return nil
}

func (r *Repository) MarkSyncError(_ context.Context, id int64, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.expenses[id]; ok {
		row.failed = true
	}
	return nil
}
