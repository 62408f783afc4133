package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerlite/internal/core"
)

const (
	syncPending = "pending"
	syncDone    = "synced"
	syncFailed  = "error"
)

const expenseColumns = `id, user_id, amount_cents, category, note, spent_on, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		spentOn string
		created string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Note, &spentOn, &created); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(spentOn)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has bad date %q: %w", e.ID, spentOn, err)
	}
	e.Date = d
	e.CreatedAt = parseTimestamp(created)
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, note, spent_on, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Category, e.Note, e.Date.String(), e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("read expense id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string, year, month int) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if year > 0 {
		if month >= 1 && month <= 12 {
			query += ` AND spent_on LIKE ?`
			args = append(args, fmt.Sprintf("%04d-%02d-%%", year, month))
		} else {
			query += ` AND spent_on LIKE ?`
			args = append(args, fmt.Sprintf("%04d-%%", year))
		}
	}
	query += ` ORDER BY spent_on DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateExpense rewrites the mutable fields, bumps the version and queues the
// row for another mirror sync.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		    SET amount_cents = ?, category = ?, note = ?, spent_on = ?,
		        version = version + 1, sync_status = ?
		  WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Category, e.Note, e.Date.String(), syncPending, e.ID, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpenseVersion returns the current version of an expense.
func (r *SQLiteRepository) ExpenseVersion(ctx context.Context, id int64) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM expenses WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get expense version: %w", err)
	}
	return v, nil
}

// PendingSync returns IDs of expenses waiting to be mirrored, oldest first.
// Expenses marked as failed stay out until they are updated again.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM expenses WHERE sync_status = ? ORDER BY id LIMIT ?`, syncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, sync_ref = ?, sync_error = '' WHERE id = ?`, syncDone, ref, id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id, "ref", ref)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, sync_error = ? WHERE id = ?`, syncFailed, msg, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id, "error", msg)
	return nil
}
