package routes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideTable(t *testing.T) {
	cases := []struct {
		path   string
		authed bool
		want   Decision
	}{
		{"/", false, Decision{Kind: Render, Page: PageLanding}},
		{"/", true, Decision{Kind: Redirect, Target: "/dashboard", Replace: true}},
		{"/login", false, Decision{Kind: Render, Page: PageLogin, InShell: true}},
		{"/login", true, Decision{Kind: Redirect, Target: "/dashboard", Replace: true}},
		{"/register", false, Decision{Kind: Render, Page: PageRegister, InShell: true}},
		{"/register", true, Decision{Kind: Redirect, Target: "/dashboard", Replace: true}},
		{"/dashboard", false, Decision{Kind: Redirect, Target: "/login", Replace: true}},
		{"/dashboard", true, Decision{Kind: Render, Page: PageDashboard, InShell: true}},
		{"/analytics", false, Decision{Kind: Redirect, Target: "/login", Replace: true}},
		{"/analytics", true, Decision{Kind: Render, Page: PageAnalytics, InShell: true}},
		{"/foo/bar", false, Decision{Kind: Redirect, Target: "/", Replace: true}},
		{"/foo/bar", true, Decision{Kind: Redirect, Target: "/", Replace: true}},
		{"/Dashboard/", true, Decision{Kind: Render, Page: PageDashboard, InShell: true}},
		{"/LOGIN", false, Decision{Kind: Render, Page: PageLogin, InShell: true}},
		{"/login//", false, Decision{Kind: Redirect, Target: "/", Replace: true}},
		{"", false, Decision{Kind: Render, Page: PageLanding}},
	}
	for _, tc := range cases {
		t.Run(tc.path+"/"+boolName(tc.authed), func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.path, tc.authed))
		})
	}
}

func TestNavigatorReplacesOnRedirect(t *testing.T) {
	authed := false
	n := NewNavigator(func() bool { return authed })

	d, err := n.Navigate("/")
	require.NoError(t, err)
	assert.Equal(t, PageLanding, d.Page)

	d, err = n.Navigate("/dashboard")
	require.NoError(t, err)
	assert.Equal(t, PageLogin, d.Page)
	assert.Equal(t, []string{"/", "/login"}, n.History())
	assert.Equal(t, 1, n.Hops())
}

func TestNavigatorFollowsChains(t *testing.T) {
	n := NewNavigator(func() bool { return false })
	d, err := n.Navigate("/nope")
	require.NoError(t, err)
	assert.Equal(t, PageLanding, d.Page)
	assert.Equal(t, "/", n.Location())

	n = NewNavigator(func() bool { return true })
	d, err = n.Navigate("/nope")
	require.NoError(t, err)
	assert.Equal(t, PageDashboard, d.Page)
	assert.Equal(t, 2, n.Hops())
	assert.Equal(t, []string{"/dashboard"}, n.History())
}

func TestNavigatorRecomputesOnReload(t *testing.T) {
	authed := true
	n := NewNavigator(func() bool { return authed })
	_, err := n.Navigate("/analytics")
	require.NoError(t, err)
	assert.Equal(t, PageAnalytics, n.Current().Page)

	authed = false
	d, err := n.Reload()
	require.NoError(t, err)
	assert.Equal(t, PageLogin, d.Page)
	assert.Equal(t, "/login", n.Location())
}

func TestNavigatorDetectsLoops(t *testing.T) {
	// the flag flips on every read, so / and /dashboard bounce forever
	flag := false
	n := NewNavigator(func() bool {
		flag = !flag
		return flag
	})
	_, err := n.Navigate("/")
	assert.True(t, errors.Is(err, ErrRedirectLoop))
	assert.Equal(t, MaxRedirects, n.Hops())
}

func boolName(b bool) string {
	if b {
		return "authed"
	}
	return "anon"
}
