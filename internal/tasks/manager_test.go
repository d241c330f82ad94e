package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/apestel/hardwire/internal/progress"
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

func TestManagerRunsTaskToCompletion(t *testing.T) {
	store := setupTestStore(t)
	m := New(store, testLogger(), 1, progress.NewBus())
	m.Register("echo", func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		report(50)
		return `{"ok":true}`, nil
	})
	require.NoError(t, m.Start())
	defer m.Stop(time.Second)

	task, err := m.Submit("echo", "{}")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetTask(task.ID)
		return err == nil && got.Status == "Completed"
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	require.Equal(t, 100, got.Progress)
	require.Equal(t, `{"ok":true}`, got.OutputData)
}

func TestManagerRunsTaskToFailure(t *testing.T) {
	store := setupTestStore(t)
	m := New(store, testLogger(), 1, progress.NewBus())
	m.Register("boom", func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		return "", assertErr{}
	})
	require.NoError(t, m.Start())
	defer m.Stop(time.Second)

	task, err := m.Submit("boom", "{}")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetTask(task.ID)
		return err == nil && got.Status == "Failed"
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	require.Equal(t, "boom failed", got.Error)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom failed" }

func TestStopMarksStillRunningTaskFailedWithShutdownReason(t *testing.T) {
	store := setupTestStore(t)
	m := New(store, testLogger(), 1, progress.NewBus())

	started := make(chan struct{})
	release := make(chan struct{})
	m.Register("slow", func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		close(started)
		<-release
		return `{"ok":true}`, nil
	})
	require.NoError(t, m.Start())

	task, err := m.Submit("slow", "{}")
	require.NoError(t, err)
	<-started

	m.Stop(10 * time.Millisecond)

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	require.Equal(t, "Failed", got.Status)
	require.Equal(t, "shutdown", got.Error)

	close(release)
}

func TestStopDoesNotCancelRunningWorker(t *testing.T) {
	store := setupTestStore(t)
	m := New(store, testLogger(), 1, progress.NewBus())

	started := make(chan struct{})
	canceled := make(chan struct{}, 1)
	m.Register("slow", func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		close(started)
		select {
		case <-ctx.Done():
			canceled <- struct{}{}
		case <-time.After(100 * time.Millisecond):
		}
		return `{"ok":true}`, nil
	})
	require.NoError(t, m.Start())

	task, err := m.Submit("slow", "{}")
	require.NoError(t, err)
	<-started

	m.Stop(10 * time.Millisecond)

	select {
	case <-canceled:
		t.Fatal("worker context was canceled on shutdown, but workers must run to completion")
	default:
	}

	require.Eventually(t, func() bool {
		got, err := store.GetTask(task.ID)
		return err == nil && got.Status == "Completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerReconcilesInterruptedTasksAtStart(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.CreateTask(&storage.Task{ID: "stale-1", TaskType: "echo", Status: "Running", Progress: 40}))

	m := New(store, testLogger(), 1, progress.NewBus())
	m.Register("echo", func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		return "{}", nil
	})
	require.NoError(t, m.Start())
	defer m.Stop(time.Second)

	got, err := store.GetTask("stale-1")
	require.NoError(t, err)
	require.Equal(t, "Failed", got.Status)
	require.Equal(t, "interrupted", got.Error)
}

func TestManagerUnknownTaskTypeFails(t *testing.T) {
	store := setupTestStore(t)
	m := New(store, testLogger(), 1, progress.NewBus())
	require.NoError(t, m.Start())
	defer m.Stop(time.Second)

	task, err := m.Submit("mystery", "{}")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetTask(task.ID)
		return err == nil && got.Status == "Failed"
	}, 2*time.Second, 10*time.Millisecond)
}
