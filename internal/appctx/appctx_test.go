package appctx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/apestel/hardwire/internal/config"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Host:                "http://localhost:8080",
		Port:                8080,
		DataDir:             dir,
		DBPath:              filepath.Join(dir, "db.sqlite"),
		DBMaxConnections:    10,
		DBMinConnections:    2,
		DBAcquireTimeout:    30,
		MaxFileSizeMB:       5120,
		MaxFilesPerShare:    100,
		RateLimitRPM:        60,
		IndexerIntervalS:    300,
		JWTSecret:           "a-secret-at-least-32-bytes-long!",
		JWTExpiryHrs:        24,
		GoogleClientID:      "client-id",
		GoogleClientSecret:  "client-secret",
		GoogleRedirectURL:   "http://localhost:8080/admin/auth/google/callback",
	}
}

func TestNewWiresEveryHandle(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	defer app.Shutdown(context.Background(), time.Second)

	require.NotNil(t, app.Store)
	require.NotNil(t, app.Bus)
	require.NotNil(t, app.Tasks)
	require.NotNil(t, app.Indexer)
	require.NotNil(t, app.DownloadHandler)
	require.NotNil(t, app.RateLimiter)
	require.NotNil(t, app.AdminServer)
}

func TestRouterServesPublicAndAdminSurfaces(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	defer app.Shutdown(context.Background(), time.Second)

	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/s/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/admin/api/list_files")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
