// Package memory is an in-process sheet mirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerlite/internal/core"
	"ledgerlite/internal/sheets"
)

// Row is one mirrored expense.
type Row struct {
	Ref     string
	Version int64
	Expense core.Expense
}

type Store struct {
	mu   sync.Mutex
	rows []Row
	fail error
}

var _ sheets.ExpenseWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// FailWith makes every later Append return err. A nil err restores normal
// behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense, version int64) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	ref := fmt.Sprintf("mem:%d", len(s.rows)+2)
	s.rows = append(s.rows, Row{Ref: ref, Version: version, Expense: e})
	return ref, nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
