package http

import (
	"net/http"

	"github.com/google/uuid"

	"ledgerlite/internal/app"
	"ledgerlite/internal/log"
)

// BrowserCookie names the cookie that identifies a browser's session store.
const BrowserCookie = "ll_browser"

const browserCookieMaxAge = 365 * 24 * 60 * 60

// browserID returns the browser ID from the request cookie, issuing a new one
// when the cookie is missing or malformed.
func (s *Server) browserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(BrowserCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     BrowserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   browserCookieMaxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// openTab opens a browsing context for the request's browser. Callers must
// Close it.
func (s *Server) openTab(w http.ResponseWriter, r *http.Request, opts ...app.Option) *app.Tab {
	bid := s.browserID(w, r)
	logger := log.FromContext(r.Context()).With(log.FieldBrowserID, bid)
	opts = append([]app.Option{app.WithLogger(logger.Slog())}, opts...)
	return app.Open(s.hub, bid, opts...)
}
