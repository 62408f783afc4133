package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ledgerlite/internal/accounts"
	"ledgerlite/internal/core"
	"ledgerlite/internal/log"
	"ledgerlite/internal/ports"
)

const apiBanner = "LedgerLite API is running. Try /api/health"

type ctxKey int

const userKey ctxKey = iota

type userJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authJSON struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userJSON  `json:"user"`
}

type expenseJSON struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type categoryJSON struct {
	Category   string `json:"category"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

type summaryJSON struct {
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Total      string         `json:"total"`
	TotalCents int64          `json:"total_cents"`
	Count      int            `json:"count"`
	ByCategory []categoryJSON `json:"by_category"`
}

func newUserJSON(u core.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Decimal(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

func newSummaryJSON(sum core.MonthSummary) summaryJSON {
	out := summaryJSON{
		Year:       sum.Year,
		Month:      sum.Month,
		Total:      sum.Total.Decimal(),
		TotalCents: sum.Total.Cents,
		Count:      sum.Count,
		ByCategory: make([]categoryJSON, 0, len(sum.ByCategory)),
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryJSON{
			Category:   c.Name,
			Total:      c.Amount.Decimal(),
			TotalCents: c.Amount.Cents,
			Count:      c.Count,
		})
	}
	return out
}

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Header("Content-Type", "text/plain; charset=utf-8").
		BodyString(apiBanner).
		Write(w)
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(http.StatusOK, map[string]bool{"ok": true}).Write(w)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	JSONError(http.StatusNotFound, "not found").Write(w)
}

// parseBody decodes a JSON or form body, writing a 400 on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, "malformed request body").Write(w)
		return nil, false
	}
	return p, true
}

func (s *Server) handleAPIRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	res, err := s.accounts.Register(r.Context(), p.Get("name"), p.Get("email"), p.Password("password"))
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		JSONError(http.StatusConflict, err.Error()).Write(w)
	case isValidationError(err):
		JSONError(http.StatusUnprocessableEntity, err.Error()).Write(w)
	case err != nil:
		s.events.LogError(r.Context(), "Registration failed", err, log.ComponentAPI, log.OpSignUp)
		JSONError(http.StatusInternalServerError, "registration failed").Write(w)
	default:
		JSONResponse(http.StatusCreated, authJSON{Token: res.Token, ExpiresAt: res.ExpiresAt, User: newUserJSON(res.User)}).Write(w)
	}
}

func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	res, err := s.accounts.Login(r.Context(), p.Get("email"), p.Password("password"))
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		JSONError(http.StatusUnauthorized, err.Error()).Write(w)
	case err != nil:
		s.events.LogError(r.Context(), "Login failed", err, log.ComponentAPI, log.OpSignIn)
		JSONError(http.StatusInternalServerError, "login failed").Write(w)
	default:
		JSONResponse(http.StatusOK, authJSON{Token: res.Token, ExpiresAt: res.ExpiresAt, User: newUserJSON(res.User)}).Write(w)
	}
}

// requireBearer authenticates "Authorization: Bearer <token>" and stores the
// user in the request context.
func (s *Server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, token, _ := strings.Cut(r.Header.Get("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !strings.EqualFold(scheme, "Bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ledgerlite"`)
			JSONError(http.StatusUnauthorized, "missing bearer token").Write(w)
			return
		}
		user, err := s.accounts.Authenticate(r.Context(), token)
		if errors.Is(err, accounts.ErrInvalidToken) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ledgerlite", error="invalid_token"`)
			JSONError(http.StatusUnauthorized, "invalid token").Write(w)
			return
		}
		if err != nil {
			s.events.LogError(r.Context(), "Failed to authenticate token", err, log.ComponentAPI, log.OpSignIn)
			JSONError(http.StatusInternalServerError, "authentication failed").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
		next(w, r.WithContext(ctx))
	}
}

func apiUser(ctx context.Context) core.User {
	u, _ := ctx.Value(userKey).(core.User)
	return u
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, month := 0, 0
	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		m, err := ParseMonthParams(q, s.now())
		if err != nil {
			JSONError(http.StatusBadRequest, err.Error()).Write(w)
			return
		}
		year, month = m.Year, m.Month
	}
	items, err := s.expenses.ListExpenses(ctx, apiUser(ctx).ID, year, month)
	if err != nil {
		s.events.LogError(ctx, "Failed to list expenses", err, log.ComponentAPI, log.OpList)
		JSONError(http.StatusInternalServerError, "could not list expenses").Write(w)
		return
	}
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, newExpenseJSON(e))
	}
	JSONResponse(http.StatusOK, out).Write(w)
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	user := apiUser(ctx)
	exp, err := parseExpenseInput(p.Get, user.ID, core.Today())
	if err == nil {
		exp, err = s.expenses.CreateExpense(ctx, exp)
	}
	if s.writeExpenseError(w, r, err, log.OpCreate) {
		return
	}
	s.invalidateSummaries(user.ID)
	s.events.LogExpenseCreated(ctx, exp.ID, user.ID, exp.Amount.Cents, exp.Category)
	JSONResponse(http.StatusCreated, newExpenseJSON(exp)).Write(w)
}

func (s *Server) handleAPIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseExpenseID(r.PathValue("id"))
	if !ok {
		JSONError(http.StatusBadRequest, "invalid expense id").Write(w)
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	user := apiUser(ctx)
	current, err := s.expenses.GetExpense(ctx, user.ID, id)
	if s.writeExpenseError(w, r, err, log.OpUpdate) {
		return
	}

	// Fields left out of the body keep their stored values.
	get := func(k string) string {
		if p.Has(k) {
			return p.Get(k)
		}
		switch k {
		case "amount":
			return current.Amount.Decimal()
		case "date":
			return current.Date.String()
		case "category":
			return current.Category
		case "note":
			return current.Note
		}
		return ""
	}
	exp, err := parseExpenseInput(get, user.ID, current.Date)
	if err == nil {
		exp.ID = id
		exp, err = s.expenses.UpdateExpense(ctx, exp)
	}
	if s.writeExpenseError(w, r, err, log.OpUpdate) {
		return
	}
	s.invalidateSummaries(user.ID)
	JSONResponse(http.StatusOK, newExpenseJSON(exp)).Write(w)
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseExpenseID(r.PathValue("id"))
	if !ok {
		JSONError(http.StatusBadRequest, "invalid expense id").Write(w)
		return
	}
	user := apiUser(ctx)
	if s.writeExpenseError(w, r, s.expenses.DeleteExpense(ctx, user.ID, id), log.OpDelete) {
		return
	}
	s.invalidateSummaries(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	sum, err := s.monthSummary(ctx, apiUser(ctx).ID, m)
	if s.writeExpenseError(w, r, err, log.OpList) {
		return
	}
	JSONResponse(http.StatusOK, newSummaryJSON(sum)).Write(w)
}

// writeExpenseError maps err to a JSON error response. It reports whether a
// response was written.
func (s *Server) writeExpenseError(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ports.ErrNotFound):
		JSONError(http.StatusNotFound, "expense not found").Write(w)
	case isValidationError(err):
		JSONError(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
	default:
		s.events.LogError(r.Context(), "Expense request failed", err, log.ComponentAPI, op)
		JSONError(http.StatusInternalServerError, "internal error").Write(w)
	}
	return true
}
