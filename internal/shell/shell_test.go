package shell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/routes"
	"ledgerlite/internal/session"
	"ledgerlite/internal/signal"
)

type mapStore struct {
	values    map[string]string
	removeErr map[string]error
}

func newMapStore() *mapStore {
	return &mapStore{values: map[string]string{}, removeErr: map[string]error{}}
}

func (m *mapStore) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mapStore) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mapStore) Remove(key string) error {
	if err := m.removeErr[key]; err != nil {
		return err
	}
	delete(m.values, key)
	return nil
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		user *string
		want string
	}{
		{"missing", nil, ""},
		{"malformed", strPtr("{not json"), ""},
		{"not an object", strPtr(`"Ada"`), ""},
		{"no name", strPtr(`{"email":"a@b.c"}`), ""},
		{"null name", strPtr(`{"name":null}`), ""},
		{"numeric name", strPtr(`{"name":42}`), "42"},
		{"zero name", strPtr(`{"name":0}`), ""},
		{"boolean name", strPtr(`{"name":true}`), ""},
		{"object name", strPtr(`{"name":{"first":"Ada"}}`), ""},
		{"padded name kept as stored", strPtr(`{"name":" Ada "}`), " Ada "},
		{"valid", strPtr(`{"name":"Ada Lovelace"}`), "Ada Lovelace"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMapStore()
			if tc.user != nil {
				s.values[session.KeyUser] = *tc.user
			}
			assert.Equal(t, tc.want, DisplayName(s))
		})
	}
}

func TestBuildHidesNavWhenAnonymous(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyUser] = `{"name":"Ada"}`

	f := Build(s, false, "/login")
	assert.Equal(t, "LedgerLite", f.Title)
	assert.Empty(t, f.Links)
	assert.Empty(t, f.MobileLinks)
	assert.Equal(t, "Ada", f.UserName, "the badge follows the user record, not the flag")
	assert.False(t, f.ShowLogout)
}

func TestBuildAuthenticated(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyUser] = `{"name":"Ada"}`

	f := Build(s, true, "/Analytics/")
	require.Len(t, f.Links, 2)
	assert.Equal(t, f.Links, f.MobileLinks)
	assert.False(t, f.Links[0].Active)
	assert.True(t, f.Links[1].Active)
	assert.Equal(t, "Ada", f.UserName)
	assert.True(t, f.ShowLogout)
}

func TestBuildWithMalformedUserStillRenders(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyToken] = "abc"
	s.values[session.KeyUser] = "%%%"
	f := Build(s, true, "/dashboard")
	assert.Empty(t, f.UserName)
	assert.True(t, f.ShowLogout)
}

func TestLogout(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyToken] = "abc"
	s.values[session.KeyUser] = `{"name":"Ada"}`
	bus := signal.NewAuthBus()
	authed := true
	bus.Subscribe(func() { authed = session.IsAuthenticated(s) })
	nav := routes.NewNavigator(func() bool { return authed })
	_, err := nav.Navigate("/dashboard")
	require.NoError(t, err)

	d, err := Logout(s, bus, nav)
	require.NoError(t, err)
	assert.False(t, authed)
	assert.Equal(t, routes.PageLanding, d.Page)
	assert.Equal(t, "/", nav.Location())
	_, hasUser := s.Get(session.KeyUser)
	assert.False(t, hasUser)
}

func TestLogoutToleratesMissingOrStuckUser(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyToken] = "abc"
	s.removeErr[session.KeyUser] = errors.New("boom")
	nav := routes.NewNavigator(func() bool { return session.IsAuthenticated(s) })

	d, err := Logout(s, nil, nav)
	require.NoError(t, err)
	assert.Equal(t, routes.PageLanding, d.Page)
}

func TestLogoutFailsWhenTokenCannotBeRemoved(t *testing.T) {
	s := newMapStore()
	s.values[session.KeyToken] = "abc"
	s.removeErr[session.KeyToken] = errors.New("disk full")
	nav := routes.NewNavigator(func() bool { return true })

	_, err := Logout(s, signal.NewAuthBus(), nav)
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }
