package sheets

import (
	"context"

	"ledgerlite/internal/core"
)

// ExpenseWriter mirrors an expense to an external sheet and returns the
// reference of the written row.
type ExpenseWriter interface {
	Append(ctx context.Context, e core.Expense, version int64) (rowRef string, err error)
}
