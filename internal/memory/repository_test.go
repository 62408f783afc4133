package memory

import (
	"context"
	"errors"
	"testing"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ports"
)

func TestUsersAreUniqueByEmail(t *testing.T) {
	r := NewRepository()
	ctx := context.Background()
	if _, err := r.CreateUser(ctx, core.User{ID: "1", Name: "A", Email: "A@x.io"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateUser(ctx, core.User{ID: "2", Name: "B", Email: "a@X.io"}); !errors.Is(err, ports.ErrConflict) {
		t.Errorf("want ErrConflict, got %v", err)
	}
	if u, err := r.GetUserByEmail(ctx, " a@x.io"); err != nil || u.ID != "1" {
		t.Errorf("GetUserByEmail() = %+v, %v", u, err)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	r := NewRepository()
	ctx := context.Background()

	a, _ := r.CreateExpense(ctx, core.Expense{UserID: "u1", Date: core.NewDate(2025, 6, 1), Amount: core.Money{Cents: 100}, Category: "Food"})
	b, _ := r.CreateExpense(ctx, core.Expense{UserID: "u1", Date: core.NewDate(2025, 6, 3), Amount: core.Money{Cents: 200}, Category: "Food"})
	_, _ = r.CreateExpense(ctx, core.Expense{UserID: "u1", Date: core.NewDate(2025, 7, 1), Amount: core.Money{Cents: 300}, Category: "Fun"})
	_, _ = r.CreateExpense(ctx, core.Expense{UserID: "u2", Date: core.NewDate(2025, 6, 1), Amount: core.Money{Cents: 400}, Category: "Rent"})

	june, _ := r.ListExpenses(ctx, "u1", 2025, 6)
	if len(june) != 2 || june[0].ID != b.ID {
		t.Fatalf("unexpected June list %+v", june)
	}

	if _, err := r.GetExpense(ctx, "u2", a.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("foreign read: %v", err)
	}

	a.Amount = core.Money{Cents: 150}
	if _, err := r.UpdateExpense(ctx, a); err != nil {
		t.Fatal(err)
	}
	if v, _ := r.ExpenseVersion(ctx, a.ID); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}

	_ = r.MarkSynced(ctx, b.ID, "ref")
	pending, _ := r.PendingSync(ctx, 10)
	for _, id := range pending {
		if id == b.ID {
			t.Error("synced expense still pending")
		}
	}

	if err := r.DeleteExpense(ctx, "u1", a.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteExpense(ctx, "u1", a.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("double delete: %v", err)
	}
}
