package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const readyTimeout = 5 * time.Second

type appMetrics struct {
	started         time.Time
	signIns         int64
	logouts         int64
	redirects       int64
	expensesCreated int64
	openStreams     int64
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every registered check concurrently and reports each
// result. Any failure makes the instance not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(s.ready)+1)
		failed bool
	)
	checks["templates"] = "ok"

	var g errgroup.Group
	for name, check := range s.ready {
		g.Go(func() error {
			result := "ok"
			if err := check(ctx); err != nil {
				result = "failed: " + err.Error()
			}
			mu.Lock()
			checks[name] = result
			if result != "ok" {
				failed = true
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ready", http.StatusOK
	if failed {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	JSONResponse(code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	tm := s.trace.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()
	hits, misses := s.summaries.Stats()

	type metric struct {
		name, help, kind string
		value            any
	}
	metrics := []metric{
		{"http_requests_total", "Total HTTP requests served", "counter", tm.TotalRequests},
		{"http_server_errors_total", "HTTP responses with a 5xx status", "counter", tm.ServerErrors},
		{"http_request_duration_avg_microseconds", "Average request duration", "gauge", tm.AverageResponseTime},
		{"guard_redirects_total", "Page requests redirected by the route guard", "counter", atomic.LoadInt64(&s.metrics.redirects)},
		{"sign_ins_total", "Successful form sign-ins and registrations", "counter", atomic.LoadInt64(&s.metrics.signIns)},
		{"logouts_total", "Form logouts", "counter", atomic.LoadInt64(&s.metrics.logouts)},
		{"expenses_created_total", "Expenses created through the dashboard", "counter", atomic.LoadInt64(&s.metrics.expensesCreated)},
		{"auth_event_streams", "Open auth event streams", "gauge", atomic.LoadInt64(&s.metrics.openStreams)},
		{"summary_cache_hits_total", "Month summary cache hits", "counter", hits},
		{"summary_cache_misses_total", "Month summary cache misses", "counter", misses},
		{"summary_cache_entries", "Month summary cache entries", "gauge", s.summaries.Size()},
		{"rate_limit_rejected_total", "Requests rejected by the rate limiter", "counter", rl.Rejected},
		{"rate_limit_clients", "Clients tracked by the rate limiter", "gauge", rl.ClientCount},
		{"suspicious_requests_total", "Requests flagged as probes", "counter", sec.SuspiciousRequests},
		{"uptime_seconds", "Process uptime in seconds", "gauge", int64(time.Since(s.metrics.started).Seconds())},
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}
