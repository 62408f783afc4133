package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"sync/atomic"

	"ledgerlite/internal/app"
	"ledgerlite/internal/log"
	"ledgerlite/internal/routes"
	"ledgerlite/internal/shell"
)

var pageTitles = map[routes.Page]string{
	routes.PageLanding:   "",
	routes.PageLogin:     "Sign in",
	routes.PageRegister:  "Create account",
	routes.PageDashboard: "Dashboard",
	routes.PageAnalytics: "Analytics",
}

// parsePages builds one template set per page: the shared layout plus the
// page's own content block.
func parsePages(fsys fs.FS) (map[routes.Page]*template.Template, error) {
	pages := make(map[routes.Page]*template.Template, len(pageTitles))
	for page := range pageTitles {
		t, err := template.New(string(page)).ParseFS(fsys, "templates/layout.html", "templates/"+string(page)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		pages[page] = t
	}
	return pages, nil
}

// pageData is the view model shared by every page template.
type pageData struct {
	Title   string
	Page    routes.Page
	Path    string
	InShell bool
	Frame   shell.Frame

	Error  string
	Notice string
	Form   url.Values

	Month     MonthParams
	MonthName string
	Today     string

	Expenses []expenseView
	Summary  *summaryView
}

// handlePage resolves a GET through the guard. When the navigator ends on a
// different location the browser is sent there with 303, replacing the
// requested entry; otherwise the page renders.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tab := s.openTab(w, r)
	defer tab.Close()

	d, err := tab.Visit(r.URL.Path)
	if err != nil {
		s.events.LogError(ctx, "Navigation failed", err, log.ComponentHTTP, log.OpNavigate)
		InternalServerError("Navigation failed").Write(w)
		return
	}
	s.events.LogNavigation(ctx, tab.BrowserID(), r.URL.Path, d.String(), tab.Authenticated())

	if loc := tab.Location(); loc != r.URL.Path {
		atomic.AddInt64(&s.metrics.redirects, 1)
		NewResponse().SeeOther(loc).Write(w)
		return
	}

	data := pageData{}
	status := http.StatusOK
	switch d.Page {
	case routes.PageDashboard:
		data, status = s.dashboardData(r, tab)
	case routes.PageAnalytics:
		data, status = s.analyticsData(r, tab)
	}
	s.render(w, r, tab, d, data, status)
}

// render executes the page template into a buffer so a template failure can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, tab *app.Tab, d routes.Decision, data pageData, status int) {
	t, ok := s.pages[d.Page]
	if !ok {
		NotFoundError("Page not found").Write(w)
		return
	}
	data.Page = d.Page
	data.InShell = d.InShell
	data.Path = tab.Location()
	data.Frame = tab.Frame()
	data.Title = shell.Title
	if sub := pageTitles[d.Page]; sub != "" {
		data.Title = sub + " · " + shell.Title
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentHTTP, log.OpRender)
		InternalServerError("Failed to render page").Write(w)
		return
	}
	NewResponse().
		Status(status).
		Header("Cache-Control", "no-store").
		BodyHTML(buf.String()).
		Write(w)
}

// renderAt renders the page the tab currently shows, used by form posts that
// fail validation.
func (s *Server) renderAt(w http.ResponseWriter, r *http.Request, tab *app.Tab, data pageData, status int) {
	d, err := tab.Current()
	if err != nil {
		s.events.LogError(r.Context(), "Navigation failed", err, log.ComponentHTTP, log.OpNavigate)
		InternalServerError("Navigation failed").Write(w)
		return
	}
	s.render(w, r, tab, d, data, status)
}
