package indexer

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apestel/hardwire/internal/storage"
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

func TestScanPublishesSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644))

	store := setupTestStore(t)
	idx := New(dir, time.Hour, store, testLogger())
	idx.scan()

	snap := idx.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Roots, 2)

	sorted := Sorted(snap.Roots)
	require.Equal(t, "sub", sorted[0].Name)
	require.True(t, sorted[0].IsDir)
	require.Equal(t, "a.txt", sorted[1].Name)
	require.Equal(t, int64(5), sorted[1].Size)
}

func TestScanReconcilesIndexedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	store := setupTestStore(t)
	idx := New(dir, time.Hour, store, testLogger())
	idx.scan()

	f, err := store.IndexedFileByPath(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, int64(5), f.Size)
}

func TestRescanCoalesces(t *testing.T) {
	dir := t.TempDir()
	store := setupTestStore(t)
	idx := New(dir, time.Hour, store, testLogger())

	idx.Rescan()
	idx.Rescan()
	idx.Rescan()

	require.Len(t, idx.rescanCh, 1)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	store := setupTestStore(t)
	idx := New(dir, time.Millisecond*10, store, testLogger())

	idx.Start()
	time.Sleep(time.Millisecond * 50)
	idx.Stop()

	require.NotNil(t, idx.Snapshot())
}

func TestScanMissingRootSkipsPublish(t *testing.T) {
	store := setupTestStore(t)
	idx := New(filepath.Join(t.TempDir(), "does-not-exist"), time.Hour, store, testLogger())

	before := idx.Snapshot()
	idx.scan()
	after := idx.Snapshot()

	require.Same(t, before, after)
}
