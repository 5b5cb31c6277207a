package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulemerge/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ads.txt":
			fmt.Fprint(w, "! list\n.example.com\nbanner.example.com\n8.8.8.8\nIP-CIDR,8.8.8.0/24\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestUpdater(t *testing.T, sources []config.Source) (*Updater, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "rules.txt")

	m := config.NewManager("")
	require.NoError(t, m.Update(func(c *config.Config) {
		c.Sources = sources
		c.Output = config.OutputConfig{Path: out, Title: "Test"}
		c.Fetch.DataDir = ""
		c.Fetch.Retries = 0
	}))

	u := NewUpdater(m)
	u.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return u, out
}

func TestBuild(t *testing.T) {
	srv := newTestServer(t)

	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("tracker.example.org\nexample.com\n0.0.0.0 hosts.example.net\n"), 0644))

	u, out := newTestUpdater(t, []config.Source{
		{Name: "remote", URL: srv.URL + "/ads.txt"},
		{Name: "broken", URL: srv.URL + "/missing.txt"},
		{Name: "local", Path: local},
	})

	res, err := u.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DOMAIN,tracker.example.org",
		"DOMAIN-SUFFIX,example.com",
		"IP-CIDR,8.8.8.0/24",
	}, res.Rules)
	assert.Equal(t, 3, res.Removed())

	require.Len(t, res.Sources, 2)
	assert.Equal(t, "remote", res.Sources[0].Name)
	assert.Equal(t, "local", res.Sources[1].Name)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# Test\n# Generated: 2024-05-01 08:00:00\n"))
	assert.Contains(t, text, "# Source: remote | raw 5 | extracted 4\n")
	assert.True(t, strings.HasSuffix(text, "\nIP-CIDR,8.8.8.0/24\n"))
	assert.NotContains(t, text, "hosts.example.net")
}

func TestBuildExtendedSyntax(t *testing.T) {
	local := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(local, []byte("0.0.0.0 hosts.example.net\n||cdn.example.org^\n"), 0644))

	u, _ := newTestUpdater(t, []config.Source{{Name: "hosts", Path: local}})
	require.NoError(t, u.cfg.Update(func(c *config.Config) { c.Fetch.ExtendedSyntax = true }))

	res, err := u.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DOMAIN,hosts.example.net", "DOMAIN-SUFFIX,cdn.example.org"}, res.Rules)
}

func TestBuildNoSources(t *testing.T) {
	srv := newTestServer(t)
	u, out := newTestUpdater(t, []config.Source{
		{Name: "broken", URL: srv.URL + "/missing.txt"},
		{Name: "absent", Path: filepath.Join(t.TempDir(), "absent.txt")},
	})
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0644))

	_, err := u.Build(context.Background())
	assert.ErrorIs(t, err, ErrNoSources)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestBuildCanceled(t *testing.T) {
	srv := newTestServer(t)
	u, _ := newTestUpdater(t, []config.Source{{Name: "remote", URL: srv.URL + "/ads.txt"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOnce(t *testing.T) {
	srv := newTestServer(t)
	u, out := newTestUpdater(t, []config.Source{{Name: "remote", URL: srv.URL + "/ads.txt"}})

	require.NoError(t, u.Run(context.Background()))
	assert.FileExists(t, out)
}

func TestRunStop(t *testing.T) {
	srv := newTestServer(t)
	u, out := newTestUpdater(t, []config.Source{{Name: "remote", URL: srv.URL + "/ads.txt"}})
	require.NoError(t, u.cfg.Update(func(c *config.Config) { c.Interval = time.Hour }))

	done := make(chan error, 1)
	go func() { done <- u.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	u.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
