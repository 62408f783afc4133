// Package shell builds the header frame around the in-shell pages and runs
// the logout sequence.
package shell

import (
	"encoding/json"
	"fmt"

	"ledgerlite/internal/routes"
	"ledgerlite/internal/session"
	"ledgerlite/internal/signal"
)

const Title = "LedgerLite"

// Link is a navigation entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// Frame is the view model of the header.
type Frame struct {
	Title         string
	Authenticated bool
	Links         []Link
	MobileLinks   []Link
	UserName      string
	ShowLogout    bool
	Current       string
}

// Build assembles the frame for the current location. Navigation links and
// the logout control only appear when authed is true. The badge follows the
// stored user record alone.
func Build(store session.Store, authed bool, location string) Frame {
	f := Frame{
		Title:         Title,
		Authenticated: authed,
		Current:       routes.Normalize(location),
		UserName:      DisplayName(store),
	}
	if !authed {
		return f
	}
	f.Links = links(f.Current)
	f.MobileLinks = links(f.Current)
	f.ShowLogout = true
	return f
}

func links(current string) []Link {
	return []Link{
		{Label: "Dashboard", Href: routes.PathDashboard, Active: current == routes.PathDashboard},
		{Label: "Analytics", Href: routes.PathAnalytics, Active: current == routes.PathAnalytics},
	}
}

// DisplayName returns the name in the stored user record, or "" when the
// record is missing or malformed. A string name is returned as stored; a
// non-zero number is rendered as its JSON text; anything else yields "".
func DisplayName(store session.Store) string {
	raw, ok := store.Get(session.KeyUser)
	if !ok || raw == "" {
		return ""
	}
	var rec struct {
		Name json.RawMessage `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || len(rec.Name) == 0 {
		return ""
	}
	var name any
	if err := json.Unmarshal(rec.Name, &name); err != nil {
		return ""
	}
	switch v := name.(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return string(rec.Name)
	default:
		return ""
	}
}

// Replacer replaces the current history entry.
type Replacer interface {
	Replace(path string) (routes.Decision, error)
}

// Logout removes the credential and the user record, emits the signal and
// replaces the location with "/". A failure to remove the user record is
// tolerated; a failure to remove the token is returned.
func Logout(store session.Store, bus *signal.Bus, nav Replacer) (routes.Decision, error) {
	if err := store.Remove(session.KeyToken); err != nil {
		return routes.Decision{}, fmt.Errorf("remove token: %w", err)
	}
	_ = store.Remove(session.KeyUser)
	if bus != nil {
		bus.Emit()
	}
	return nav.Replace(routes.PathRoot)
}
