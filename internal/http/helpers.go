package http

import (
	"errors"
	"strconv"
	"strings"

	"ledgerlite/internal/core"
)

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrNoteTooLong,
	core.ErrMissingOwner,
	core.ErrEmptyName,
	core.ErrInvalidEmail,
	core.ErrPasswordTooWeak,
}

// isValidationError reports whether err is one of the domain input errors.
func isValidationError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationMessage returns a user-facing sentence for a validation error.
func validationMessage(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			msg := target.Error()
			return strings.ToUpper(msg[:1]) + msg[1:] + "."
		}
	}
	return "Invalid input."
}

// parseExpenseInput builds an expense for userID from submitted fields. A
// missing date means today.
func parseExpenseInput(get func(string) string, userID string, today core.Date) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(get("amount"))
	if err != nil {
		return core.Expense{}, core.ErrInvalidAmount
	}
	date := today
	if v := get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Expense{}, err
		}
	}
	e := core.Expense{
		UserID:   userID,
		Date:     date,
		Amount:   core.Money{Cents: cents},
		Category: get("category"),
		Note:     get("note"),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func parseExpenseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeInput drops control characters other than tab and newlines, and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
