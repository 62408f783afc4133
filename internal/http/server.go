package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledgerlite/internal/accounts"
	"ledgerlite/internal/cache"
	"ledgerlite/internal/core"
	"ledgerlite/internal/log"
	"ledgerlite/internal/middleware/ratelimit"
	"ledgerlite/internal/middleware/security"
	"ledgerlite/internal/middleware/trace"
	"ledgerlite/internal/routes"
	"ledgerlite/internal/services"
	"ledgerlite/internal/session"
	appweb "ledgerlite/web"
)

const (
	summaryCacheSize = 500
	summaryCacheTTL  = time.Minute
	staticMaxAge     = 3600
)

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// Deps are the collaborators the server needs. Hub, Accounts and Expenses
// are required.
type Deps struct {
	Hub          *session.Hub
	Accounts     *accounts.Service
	Expenses     *services.ExpenseService
	Caches       *cache.Manager
	Logger       *log.Logger
	CookieSecure bool
	RateLimit    ratelimit.Config
	ReadyChecks  map[string]ReadyCheck
}

type Server struct {
	http.Server

	pages     map[routes.Page]*template.Template
	hub       *session.Hub
	accounts  *accounts.Service
	expenses  *services.ExpenseService
	summaries *cache.LRUCache[core.MonthSummary]

	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware

	logger       *log.Logger
	events       *log.StructuredLogger
	ready        map[string]ReadyCheck
	cookieSecure bool
	now          func() time.Time

	metrics      appMetrics
	closing      chan struct{}
	shutdownOnce sync.Once
}

// NewServer parses the page templates and wires routes and middleware.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Hub == nil || deps.Accounts == nil || deps.Expenses == nil {
		return nil, errors.New("http server needs a session hub, accounts and expenses")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	s := &Server{
		pages:        pages,
		hub:          deps.Hub,
		accounts:     deps.Accounts,
		expenses:     deps.Expenses,
		summaries:    cache.NewLRUCache[core.MonthSummary](summaryCacheSize, summaryCacheTTL),
		limiter:      ratelimit.NewLimiter(deps.RateLimit),
		detector:     security.NewDetector(),
		logger:       logger,
		events:       log.NewStructuredLogger(logger),
		ready:        deps.ReadyChecks,
		cookieSecure: deps.CookieSecure,
		now:          time.Now,
		closing:      make(chan struct{}),
	}
	s.metrics.started = time.Now()
	s.trace = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	if deps.Caches != nil {
		deps.Caches.Register("month_summaries", s.summaries)
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServerFS(static))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Pages: every GET outside the prefixes above goes through the guard.
	mux.HandleFunc("GET /", s.handlePage)
	mux.HandleFunc("POST /login", s.limited(s.handleLogin))
	mux.HandleFunc("POST /register", s.limited(s.handleRegister))
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /dashboard/expenses", s.limited(s.handleCreateExpenseForm))
	mux.HandleFunc("POST /dashboard/expenses/{id}/delete", s.limited(s.handleDeleteExpenseForm))
	mux.HandleFunc("GET /ui/auth-events", s.handleAuthEvents)

	mux.HandleFunc("GET /api", s.handleAPIRoot)
	mux.HandleFunc("GET /api/", s.handleAPINotFound)
	mux.HandleFunc("GET /api/health", s.handleAPIHealth)
	mux.HandleFunc("POST /api/auth/register", s.limited(s.handleAPIRegister))
	mux.HandleFunc("POST /api/auth/login", s.limited(s.handleAPILogin))
	mux.HandleFunc("GET /api/expenses", s.requireBearer(s.handleAPIListExpenses))
	mux.HandleFunc("POST /api/expenses", s.limited(s.requireBearer(s.handleAPICreateExpense)))
	mux.HandleFunc("GET /api/expenses/summary", s.requireBearer(s.handleAPISummary))
	mux.HandleFunc("PUT /api/expenses/{id}", s.limited(s.requireBearer(s.handleAPIUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.limited(s.requireBearer(s.handleAPIDeleteExpense)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.trace.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// limited applies the per-client rate limit to state-changing routes.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	mw := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	})
	return mw(next).ServeHTTP
}

// Shutdown ends open event streams, stops background work and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.closing)
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
