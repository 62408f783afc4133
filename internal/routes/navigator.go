package routes

import (
	"errors"
	"fmt"
)

// MaxRedirects bounds a redirect chain. The table never chains more than
// twice.
const MaxRedirects = 8

var ErrRedirectLoop = errors.New("redirect loop")

// AuthFunc reports the Auth Flag at the moment of the call.
type AuthFunc func() bool

// Navigator is the history of one browsing context.
type Navigator struct {
	auth    AuthFunc
	history []string
	last    Decision
	hops    int
}

func NewNavigator(auth AuthFunc) *Navigator {
	return &Navigator{auth: auth}
}

// Navigate pushes path and resolves it.
func (n *Navigator) Navigate(path string) (Decision, error) {
	n.history = append(n.history, path)
	return n.resolve()
}

// Replace overwrites the current entry with path and resolves it.
func (n *Navigator) Replace(path string) (Decision, error) {
	n.replaceTop(path)
	return n.resolve()
}

// Reload resolves the current entry again, e.g. after the Auth Flag changed.
func (n *Navigator) Reload() (Decision, error) {
	if len(n.history) == 0 {
		return n.Navigate(PathRoot)
	}
	return n.resolve()
}

func (n *Navigator) replaceTop(path string) {
	if len(n.history) == 0 {
		n.history = append(n.history, path)
		return
	}
	n.history[len(n.history)-1] = path
}

func (n *Navigator) resolve() (Decision, error) {
	n.hops = 0
	for {
		d := Decide(n.Location(), n.auth())
		if d.Kind == Render {
			n.last = d
			return d, nil
		}
		if n.hops >= MaxRedirects {
			return d, fmt.Errorf("%w: stopped at %s after %d hops", ErrRedirectLoop, n.Location(), n.hops)
		}
		n.hops++
		n.replaceTop(d.Target)
	}
}

// Location is the current history entry, or "/" when empty.
func (n *Navigator) Location() string {
	if len(n.history) == 0 {
		return PathRoot
	}
	return n.history[len(n.history)-1]
}

// History returns a copy of the history stack, oldest first.
func (n *Navigator) History() []string {
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Current is the last rendered decision.
func (n *Navigator) Current() Decision { return n.last }

// Hops is the number of redirects followed by the last resolution.
func (n *Navigator) Hops() int { return n.hops }
