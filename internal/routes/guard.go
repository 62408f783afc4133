// Package routes decides, for a location and an Auth Flag, whether to render
// a page or redirect, and applies redirects to a navigation history.
package routes

import "strings"

// Page identifies a renderable screen.
type Page string

const (
	PageLanding   Page = "landing"
	PageLogin     Page = "login"
	PageRegister  Page = "register"
	PageDashboard Page = "dashboard"
	PageAnalytics Page = "analytics"
)

const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/dashboard"
	PathAnalytics = "/analytics"
)

type Kind int

const (
	Render Kind = iota
	Redirect
)

func (k Kind) String() string {
	if k == Redirect {
		return "redirect"
	}
	return "render"
}

// Decision is the outcome of Decide. For Render, Page and InShell are set.
// For Redirect, Target is set and Replace is always true.
type Decision struct {
	Kind    Kind
	Page    Page
	InShell bool
	Target  string
	Replace bool
}

func renderPage(p Page, inShell bool) Decision {
	return Decision{Kind: Render, Page: p, InShell: inShell}
}

func redirectTo(target string) Decision {
	return Decision{Kind: Redirect, Target: target, Replace: true}
}

func (d Decision) String() string {
	if d.Kind == Redirect {
		return "redirect:" + d.Target
	}
	return "render:" + string(d.Page)
}

// Normalize lower-cases path and strips one trailing slash.
func Normalize(path string) string {
	if path == "" {
		return PathRoot
	}
	p := strings.ToLower(path)
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// Decide maps a location and the current Auth Flag to a Decision.
func Decide(path string, authed bool) Decision {
	switch Normalize(path) {
	case PathRoot:
		if authed {
			return redirectTo(PathDashboard)
		}
		return renderPage(PageLanding, false)
	case PathLogin:
		if authed {
			return redirectTo(PathDashboard)
		}
		return renderPage(PageLogin, true)
	case PathRegister:
		if authed {
			return redirectTo(PathDashboard)
		}
		return renderPage(PageRegister, true)
	case PathDashboard:
		if !authed {
			return redirectTo(PathLogin)
		}
		return renderPage(PageDashboard, true)
	case PathAnalytics:
		if !authed {
			return redirectTo(PathLogin)
		}
		return renderPage(PageAnalytics, true)
	default:
		return redirectTo(PathRoot)
	}
}
