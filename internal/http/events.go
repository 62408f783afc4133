package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"ledgerlite/internal/app"
	"ledgerlite/internal/log"
	"ledgerlite/internal/routes"
)

const (
	// EventAuthChange is the event name sent when the tab's Auth Flag flips.
	EventAuthChange = "authChange"
	eventReady      = "ready"

	heartbeatInterval = 25 * time.Second
	eventBuffer       = 8
)

type authEvent struct {
	Authenticated bool   `json:"authenticated"`
	Location      string `json:"location"`
}

// handleAuthEvents streams server-sent events for one open page. The stream
// holds its own browsing context on the page's location; when another tab or
// instance signs the browser in or out, the context's flag flips and the
// client is told where the guard now puts it.
func (s *Server) handleAuthEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	// Listener callbacks run on the writer's goroutine and must not block.
	changes := make(chan bool, eventBuffer)
	tab := s.openTab(w, r, app.WithAuthChange(func(authed bool) {
		select {
		case changes <- authed:
		default:
		}
	}))
	defer tab.Close()

	if _, err := tab.Visit(streamPage(r.URL.Query().Get("page"))); err != nil {
		s.events.LogError(ctx, "Navigation failed", err, log.ComponentHTTP, log.OpNavigate)
		InternalServerError("Navigation failed").Write(w)
		return
	}

	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, eventReady, authEvent{Authenticated: tab.Authenticated(), Location: tab.Location()}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		s.logger.WarnContext(ctx, "Event stream not supported by response writer", log.FieldError, err)
		return
	}

	atomic.AddInt64(&s.metrics.openStreams, 1)
	defer atomic.AddInt64(&s.metrics.openStreams, -1)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case <-changes:
			ev := authEvent{Authenticated: tab.Authenticated(), Location: tab.Location()}
			log.FromContext(ctx).DebugContext(ctx, "Auth flag changed in another context",
				log.FieldBrowserID, tab.BrowserID(),
				log.FieldAuthed, ev.Authenticated,
				log.FieldRoute, ev.Location)
			if err := writeEvent(w, EventAuthChange, ev); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// streamPage maps the page parameter to a local path. Anything that is not
// an absolute local path becomes "/".
func streamPage(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return routes.PathRoot
	}
	return p
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
