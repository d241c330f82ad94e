// Package tasks runs long-lived background operations (archive
// generation today) behind an in-memory pending queue and a small
// worker pool, persisting a Pending -> Running -> {Completed, Failed}
// lifecycle. The pending queue has no size limit: Submit always
// enqueues.
//
// Grounded on the teacher's internal/queue.DownloadQueue (a
// mutex-guarded slice with a sync.Cond, internal/queue/queue.go) for
// the bounded-queue-plus-condition-variable shape, and on
// internal/engine.TachyonEngine's worker-count/WaitGroup plumbing
// (internal/engine/manager.go, internal/engine/worker.go) for the
// pool itself.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apestel/hardwire/internal/progress"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/google/uuid"
)

// Runner executes one task's work. It must report progress via
// report (0-100) and return the task's output payload or an error.
type Runner func(ctx context.Context, task *storage.Task, report func(percent int)) (outputData string, err error)

// Manager owns the pending queue, worker goroutines, and persistence
// of task state transitions.
type Manager struct {
	store   *storage.Store
	logger  *slog.Logger
	runners map[string]Runner

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*storage.Task

	concurrency int
	wg          sync.WaitGroup
	stopCh      chan struct{}
	stopped     bool
	running     map[string]*storage.Task

	bus *progress.Bus
}

// New constructs a Manager with the given worker concurrency (the
// spec's default is 1: archive generation is I/O and CPU heavy enough
// that one at a time keeps the host responsive).
func New(store *storage.Store, logger *slog.Logger, concurrency int, bus *progress.Bus) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	m := &Manager{
		store:       store,
		logger:      logger,
		runners:     make(map[string]Runner),
		concurrency: concurrency,
		stopCh:      make(chan struct{}),
		running:     make(map[string]*storage.Task),
		bus:         bus,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Register associates a task type name with the Runner that executes it.
func (m *Manager) Register(taskType string, r Runner) {
	m.runners[taskType] = r
}

// Start launches the worker pool and reconciles any task left in
// Running status by a prior process that never returned to Completed
// or Failed (an interrupted shutdown). Those are marked Failed with
// reason "interrupted" before new work begins, per the boot sequence.
func (m *Manager) Start() error {
	stale, err := m.store.RunningTasks()
	if err != nil {
		return err
	}
	for _, t := range stale {
		if err := m.store.UpdateTaskStatus(t.ID, "Failed", t.Progress, "", "interrupted", time.Now()); err != nil {
			m.logger.Error("tasks: failed to reconcile interrupted task", "id", t.ID, "error", err)
		}
	}

	for i := 0; i < m.concurrency; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	return nil
}

// Stop marks the queue closed and waits up to grace for in-flight
// workers to finish. Workers are not cancellable (§5: a running
// archive job runs to completion or failure), so a worker still busy
// when grace elapses keeps running; Stop instead marks its task
// Failed with reason "shutdown" and returns without waiting further.
func (m *Manager) Stop(grace time.Duration) {
	m.mu.Lock()
	m.stopped = true
	m.cond.Broadcast()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		m.logger.Warn("tasks: shutdown grace period elapsed with workers still running")
		m.failRunningTasks()
		close(m.stopCh)
	}
}

// failRunningTasks marks every task still in flight as Failed with
// reason "shutdown", leaving its recorded progress untouched.
func (m *Manager) failRunningTasks() {
	m.mu.Lock()
	stillRunning := make([]*storage.Task, 0, len(m.running))
	for _, t := range m.running {
		stillRunning = append(stillRunning, t)
	}
	m.mu.Unlock()

	for _, t := range stillRunning {
		if err := m.store.UpdateTaskStatus(t.ID, "Failed", -1, "", "shutdown", time.Now()); err != nil {
			m.logger.Error("tasks: failed to mark task failed at shutdown", "id", t.ID, "error", err)
		}
	}
}

// Submit creates a task row in Pending status and enqueues it for a worker.
func (m *Manager) Submit(taskType, inputData string) (*storage.Task, error) {
	task := &storage.Task{
		ID:        uuid.New().String(),
		TaskType:  taskType,
		Status:    "Pending",
		InputData: inputData,
	}
	if err := m.store.CreateTask(task); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.pending = append(m.pending, task)
	m.cond.Signal()
	m.mu.Unlock()

	return task, nil
}

func (m *Manager) pop() *storage.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending) == 0 && !m.stopped {
		m.cond.Wait()
	}
	if len(m.pending) == 0 {
		return nil
	}
	t := m.pending[0]
	m.pending = m.pending[1:]
	return t
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		task := m.pop()
		if task == nil {
			return
		}
		m.run(task)
	}
}

func (m *Manager) run(task *storage.Task) {
	runner, ok := m.runners[task.TaskType]
	if !ok {
		m.logger.Error("tasks: no runner registered", "task_type", task.TaskType, "id", task.ID)
		_ = m.store.UpdateTaskStatus(task.ID, "Failed", 0, "", "unknown task type", time.Now())
		return
	}

	now := time.Now()
	if err := m.store.UpdateTaskStatus(task.ID, "Running", 0, "", "", now); err != nil {
		m.logger.Error("tasks: failed to mark task running", "id", task.ID, "error", err)
	}

	m.mu.Lock()
	m.running[task.ID] = task
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.running, task.ID)
		m.mu.Unlock()
	}()

	throttled := progress.Throttle(250*time.Millisecond, func(percent int) {
		if err := m.store.UpdateTaskProgress(task.ID, percent); err != nil {
			m.logger.Error("tasks: failed to persist progress", "id", task.ID, "error", err)
		}
	})

	// Workers aren't cancellable (§5): ctx carries no deadline or
	// cancellation tied to shutdown, a running job always runs to
	// completion or failure on its own.
	output, err := runner(context.Background(), task, throttled)
	finishedAt := time.Now()
	if err != nil {
		m.logger.Error("tasks: task failed", "id", task.ID, "type", task.TaskType, "error", err)
		if uerr := m.store.UpdateTaskStatus(task.ID, "Failed", task.Progress, "", err.Error(), finishedAt); uerr != nil {
			m.logger.Error("tasks: failed to persist failure", "id", task.ID, "error", uerr)
		}
		return
	}

	if err := m.store.UpdateTaskStatus(task.ID, "Completed", 100, output, "", finishedAt); err != nil {
		m.logger.Error("tasks: failed to persist completion", "id", task.ID, "error", err)
	}
}
