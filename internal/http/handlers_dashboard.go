package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"ledgerlite/internal/accounts"
	"ledgerlite/internal/app"
	"ledgerlite/internal/core"
	"ledgerlite/internal/log"
)

// sessionRejected is shown when the API refuses the stored token. The page
// stays where it is; the user logs out to start over.
const sessionRejected = "Your session was not accepted. Log out and sign in again."

type expenseView struct {
	ID       int64
	Date     string
	Amount   string
	Category string
	Note     string
}

type categoryView struct {
	Name   string
	Amount string
	Cents  int64
	Count  int
	Share  int
}

type summaryView struct {
	Total      string
	TotalCents int64
	Count      int
	Categories []categoryView
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:       e.ID,
		Date:     e.Date.String(),
		Amount:   e.Amount.String(),
		Category: e.Category,
		Note:     e.Note,
	}
}

func newSummaryView(sum core.MonthSummary) *summaryView {
	v := &summaryView{
		Total:      sum.Total.String(),
		TotalCents: sum.Total.Cents,
		Count:      sum.Count,
	}
	for _, c := range sum.ByCategory {
		share := 0
		if sum.Total.Cents > 0 {
			share = int(c.Amount.Cents * 100 / sum.Total.Cents)
		}
		v.Categories = append(v.Categories, categoryView{
			Name:   c.Name,
			Amount: c.Amount.String(),
			Cents:  c.Amount.Cents,
			Count:  c.Count,
			Share:  share,
		})
	}
	return v
}

// pageUser authenticates the tab's stored token against the accounts
// service. It returns a user-facing message on failure.
func (s *Server) pageUser(ctx context.Context, tab *app.Tab) (core.User, string) {
	user, err := s.accounts.Authenticate(ctx, tab.Token())
	if err == nil {
		return user, ""
	}
	if !errors.Is(err, accounts.ErrInvalidToken) {
		s.events.LogError(ctx, "Failed to authenticate session", err, log.ComponentAuth, log.OpRender)
		return core.User{}, "Could not load your account. Please try again."
	}
	log.FromContext(ctx).WarnContext(ctx, "Stored token rejected", log.FieldBrowserID, tab.BrowserID())
	return core.User{}, sessionRejected
}

// monthSelection reads ?year=&month=, falling back to the current month with
// a notice when the values are malformed.
func (s *Server) monthSelection(r *http.Request) (MonthParams, string) {
	m, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		now := s.now()
		return MonthParams{Year: now.Year(), Month: int(now.Month())}, "Invalid month, showing the current one."
	}
	return m, ""
}

func (s *Server) monthData(m MonthParams) pageData {
	return pageData{
		Month:     m,
		MonthName: m.Label(),
		Today:     core.Today().String(),
	}
}

func (s *Server) dashboardData(r *http.Request, tab *app.Tab) (pageData, int) {
	ctx := r.Context()
	m, notice := s.monthSelection(r)
	data := s.monthData(m)
	data.Notice = notice

	user, msg := s.pageUser(ctx, tab)
	if msg != "" {
		data.Error = msg
		return data, http.StatusOK
	}

	items, err := s.expenses.ListExpenses(ctx, user.ID, m.Year, m.Month)
	if err != nil {
		s.events.LogError(ctx, "Failed to list expenses", err, log.ComponentExpense, log.OpList)
		data.Error = "Could not load expenses."
		return data, http.StatusOK
	}
	for _, e := range items {
		data.Expenses = append(data.Expenses, newExpenseView(e))
	}
	data.Summary = newSummaryView(core.Summarize(m.Year, m.Month, items))
	return data, http.StatusOK
}

func (s *Server) analyticsData(r *http.Request, tab *app.Tab) (pageData, int) {
	ctx := r.Context()
	m, notice := s.monthSelection(r)
	data := s.monthData(m)
	data.Notice = notice

	user, msg := s.pageUser(ctx, tab)
	if msg != "" {
		data.Error = msg
		return data, http.StatusOK
	}

	sum, err := s.monthSummary(ctx, user.ID, m)
	if err != nil {
		s.events.LogError(ctx, "Failed to summarize month", err, log.ComponentExpense, log.OpList)
		data.Error = "Could not load analytics."
		return data, http.StatusOK
	}
	data.Summary = newSummaryView(sum)
	return data, http.StatusOK
}

func summaryKey(userID string, m MonthParams) string {
	return userID + "|" + strconv.Itoa(m.Year) + "-" + strconv.Itoa(m.Month)
}

// monthSummary serves summaries from the per-instance cache. Writes through
// this instance invalidate the user's entries; the short TTL bounds
// staleness from writes elsewhere.
func (s *Server) monthSummary(ctx context.Context, userID string, m MonthParams) (core.MonthSummary, error) {
	key := summaryKey(userID, m)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}
	sum, err := s.expenses.MonthSummary(ctx, userID, m.Year, m.Month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	s.summaries.Set(key, sum)
	return sum, nil
}

func (s *Server) invalidateSummaries(userID string) {
	s.summaries.DeletePrefix(userID + "|")
}
