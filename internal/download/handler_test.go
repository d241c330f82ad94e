package download

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apestel/hardwire/internal/progress"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.Store, string) {
	dir := t.TempDir()
	content := make([]byte, 1048576)
	for i := range content {
		content[i] = byte(i % 256)
	}
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	store := setupTestStore(t)
	f, err := store.UpsertIndexedFile(path, int64(len(content)), "")
	require.NoError(t, err)
	require.NoError(t, store.CreateShare("share1", []uint{f.ID}, 0))

	h := New(store, progress.NewBus(), testLogger())
	r := chi.NewRouter()
	h.Routes(r)

	return httptest.NewServer(r), store, path
}

func TestHappyShareDownload(t *testing.T) {
	srv, store, path := newTestServer(t)
	defer srv.Close()

	ref := FileRef("share1", mustFileID(t, store, path))
	resp, err := http.Get(srv.URL + "/s/share1/" + ref)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1048576", resp.Header.Get("Content-Length"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Len(t, body, 1048576)

	require.Eventually(t, func() bool {
		stats, err := store.DownloadStatsTotals()
		return err == nil && stats.Completed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestResumedRangeDownloadSharesOneTransaction(t *testing.T) {
	srv, store, path := newTestServer(t)
	defer srv.Close()

	ref := FileRef("share1", mustFileID(t, store, path))

	req1, _ := http.NewRequest(http.MethodGet, srv.URL+"/s/share1/"+ref, nil)
	req1.Header.Set("Range", "bytes=0-524287")
	req1.Header.Set("X-Transaction-Id", "t1")
	resp1, err := http.DefaultClient.Do(req1)
	require.NoError(t, err)
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()
	require.Equal(t, http.StatusPartialContent, resp1.StatusCode)
	require.Len(t, body1, 524288)

	req2, _ := http.NewRequest(http.MethodGet, srv.URL+"/s/share1/"+ref, nil)
	req2.Header.Set("Range", "bytes=524288-1048575")
	req2.Header.Set("X-Transaction-Id", "t1")
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	require.Equal(t, http.StatusPartialContent, resp2.StatusCode)
	require.Len(t, body2, 524288)

	var count int64
	require.NoError(t, store.DB.Model(&storage.Download{}).Where("transaction_id = ?", "t1").Count(&count).Error)
	require.Equal(t, int64(1), count)

	var row storage.Download
	require.NoError(t, store.DB.Where("transaction_id = ?", "t1").First(&row).Error)
	require.Equal(t, "completed", row.Status)
}

func TestUnsatisfiableRangeReturns416(t *testing.T) {
	srv, store, path := newTestServer(t)
	defer srv.Close()

	ref := FileRef("share1", mustFileID(t, store, path))
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/s/share1/"+ref, nil)
	req.Header.Set("Range", "bytes=1048576-1048576")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	require.Equal(t, "bytes */1048576", resp.Header.Get("Content-Range"))
}

func TestHeadRequestCreatesNoTransaction(t *testing.T) {
	srv, store, path := newTestServer(t)
	defer srv.Close()

	ref := FileRef("share1", mustFileID(t, store, path))
	resp, err := http.Head(srv.URL + "/s/share1/" + ref)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1048576", resp.Header.Get("Content-Length"))
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))

	var count int64
	require.NoError(t, store.DB.Model(&storage.Download{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestLandingPageListsFiles(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/s/share1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "report.pdf")
}

func TestLandingPageExpiredShareReturns410(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	store := setupTestStore(t)
	f, err := store.UpsertIndexedFile(path, 2, "")
	require.NoError(t, err)
	require.NoError(t, store.CreateShare("expired1", []uint{f.ID}, time.Now().Add(-time.Hour).Unix()))

	h := New(store, progress.NewBus(), testLogger())
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/s/expired1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusGone, resp.StatusCode)
}

func mustFileID(t *testing.T, store *storage.Store, path string) uint {
	t.Helper()
	f, err := store.IndexedFileByPath(path)
	require.NoError(t, err)
	return f.ID
}
