package http

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"

	"ledgerlite/internal/accounts"
	"ledgerlite/internal/app"
	"ledgerlite/internal/log"
	"ledgerlite/internal/routes"
	"ledgerlite/internal/session"
)

// enterAuthPage visits path in tab and reports whether the page renders
// there. When it does not, the redirect has been written.
func (s *Server) enterAuthPage(w http.ResponseWriter, r *http.Request, tab *app.Tab, path string) bool {
	if _, err := tab.Visit(path); err != nil {
		s.events.LogError(r.Context(), "Navigation failed", err, log.ComponentHTTP, log.OpNavigate)
		InternalServerError("Navigation failed").Write(w)
		return false
	}
	if loc := tab.Location(); loc != path {
		NewResponse().SeeOther(loc).Write(w)
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	tab := s.openTab(w, r)
	defer tab.Close()
	if !s.enterAuthPage(w, r, tab, routes.PathLogin) {
		return
	}

	email := sanitizeInput(r.PostForm.Get("email"))
	form := url.Values{"email": {email}}
	res, err := s.accounts.Login(r.Context(), email, r.PostForm.Get("password"))
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		s.renderAt(w, r, tab, pageData{Error: "Invalid email or password.", Form: form}, http.StatusUnauthorized)
		return
	case err != nil:
		s.events.LogError(r.Context(), "Login failed", err, log.ComponentAuth, log.OpSignIn)
		s.renderAt(w, r, tab, pageData{Error: "Sign in failed. Please try again.", Form: form}, http.StatusInternalServerError)
		return
	}
	s.completeSignIn(w, r, tab, res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	tab := s.openTab(w, r)
	defer tab.Close()
	if !s.enterAuthPage(w, r, tab, routes.PathRegister) {
		return
	}

	name := sanitizeInput(r.PostForm.Get("name"))
	email := sanitizeInput(r.PostForm.Get("email"))
	form := url.Values{"name": {name}, "email": {email}}
	res, err := s.accounts.Register(r.Context(), name, email, r.PostForm.Get("password"))
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		s.renderAt(w, r, tab, pageData{Error: "That email is already registered.", Form: form}, http.StatusConflict)
		return
	case isValidationError(err):
		s.renderAt(w, r, tab, pageData{Error: validationMessage(err), Form: form}, http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.events.LogError(r.Context(), "Registration failed", err, log.ComponentAuth, log.OpSignUp)
		s.renderAt(w, r, tab, pageData{Error: "Registration failed. Please try again.", Form: form}, http.StatusInternalServerError)
		return
	}
	s.completeSignIn(w, r, tab, res)
}

// completeSignIn stores the credential in the tab's session, which emits the
// auth signal and moves the tab off the auth page.
func (s *Server) completeSignIn(w http.ResponseWriter, r *http.Request, tab *app.Tab, res accounts.Result) {
	_, err := tab.SignIn(res.Token, session.UserRecord{
		ID:    res.User.ID,
		Name:  res.User.Name,
		Email: res.User.Email,
	})
	if err != nil {
		s.events.LogError(r.Context(), "Failed to store session", err, log.ComponentSession, log.OpSignIn)
		InternalServerError("Could not start the session").Write(w)
		return
	}
	atomic.AddInt64(&s.metrics.signIns, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "User signed in",
		log.FieldUserID, res.User.ID,
		log.FieldBrowserID, tab.BrowserID())
	NewResponse().SeeOther(tab.Location()).Write(w)
}

// handleLogout runs the shell logout sequence. It works whether or not the
// browser is signed in and always ends on the landing page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tab := s.openTab(w, r)
	defer tab.Close()

	if _, err := tab.Logout(); err != nil {
		s.events.LogError(r.Context(), "Logout failed", err, log.ComponentSession, log.OpLogout)
		InternalServerError("Logout failed").Write(w)
		return
	}
	atomic.AddInt64(&s.metrics.logouts, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged out", log.FieldBrowserID, tab.BrowserID())
	NewResponse().SeeOther(tab.Location()).Write(w)
}
