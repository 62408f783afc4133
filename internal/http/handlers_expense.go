package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"ledgerlite/internal/app"
	"ledgerlite/internal/core"
	"ledgerlite/internal/log"
	"ledgerlite/internal/ports"
	"ledgerlite/internal/routes"
)

// enterDashboard puts the tab on the dashboard for a form post. It returns
// the signed-in user, or false once a response has been written.
func (s *Server) enterDashboard(w http.ResponseWriter, r *http.Request, tab *app.Tab) (core.User, bool) {
	if !s.enterAuthPage(w, r, tab, routes.PathDashboard) {
		return core.User{}, false
	}
	user, msg := s.pageUser(r.Context(), tab)
	if msg != "" {
		data, _ := s.dashboardData(r, tab)
		data.Error = msg
		s.renderAt(w, r, tab, data, http.StatusUnauthorized)
		return core.User{}, false
	}
	return user, true
}

func (s *Server) handleCreateExpenseForm(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	tab := s.openTab(w, r)
	defer tab.Close()
	user, ok := s.enterDashboard(w, r, tab)
	if !ok {
		return
	}

	ctx := r.Context()
	get := func(k string) string { return sanitizeInput(r.PostForm.Get(k)) }
	exp, err := parseExpenseInput(get, user.ID, core.Today())
	if err == nil {
		exp, err = s.expenses.CreateExpense(ctx, exp)
	}
	if err != nil {
		data, _ := s.dashboardData(r, tab)
		data.Form = r.PostForm
		status := http.StatusUnprocessableEntity
		if isValidationError(err) {
			data.Error = validationMessage(err)
		} else {
			s.events.LogError(ctx, "Failed to save expense", err, log.ComponentExpense, log.OpCreate)
			data.Error = "Could not save the expense."
			status = http.StatusInternalServerError
		}
		s.renderAt(w, r, tab, data, status)
		return
	}

	s.invalidateSummaries(user.ID)
	atomic.AddInt64(&s.metrics.expensesCreated, 1)
	s.events.LogExpenseCreated(ctx, exp.ID, user.ID, exp.Amount.Cents, exp.Category)

	m := MonthParams{Year: exp.Date.Year(), Month: int(exp.Date.Month())}
	NewResponse().SeeOther(routes.PathDashboard + "?" + m.Query()).Write(w)
}

func (s *Server) handleDeleteExpenseForm(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseExpenseID(r.PathValue("id"))
	if !ok {
		BadRequestError("Invalid expense id").Write(w)
		return
	}
	tab := s.openTab(w, r)
	defer tab.Close()
	user, ok := s.enterDashboard(w, r, tab)
	if !ok {
		return
	}

	ctx := r.Context()
	err := s.expenses.DeleteExpense(ctx, user.ID, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		NotFoundError("Expense not found").Write(w)
		return
	case err != nil:
		s.events.LogError(ctx, "Failed to delete expense", err, log.ComponentExpense, log.OpDelete)
		InternalServerError("Could not delete the expense").Write(w)
		return
	}
	s.invalidateSummaries(user.ID)
	log.FromContext(ctx).InfoContext(ctx, "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldUserID, user.ID,
		log.FieldOperation, log.OpDelete)

	target := routes.PathDashboard
	if m, err := ParseMonthParams(r.PostForm, s.now()); err == nil && r.PostForm.Get("month") != "" {
		target += "?" + m.Query()
	}
	NewResponse().SeeOther(target).Write(w)
}
