package storage

import (
	"errors"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"gorm.io/gorm"
)

// CreateTask inserts a new task row in Pending status.
func (s *Store) CreateTask(t *Task) error {
	if err := s.DB.Create(t).Error; err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "create task", err)
	}
	return nil
}

// GetTask fetches a task by id, returning TaskNotFound if absent.
func (s *Store) GetTask(id string) (*Task, error) {
	var t Task
	err := s.DB.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hwerr.New(hwerr.KindTaskNotFound, "task not found")
	}
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup task", err)
	}
	return &t, nil
}

// UpdateTaskStatus advances a task's status monotonically
// (Pending -> Running -> {Completed, Failed}), matching §3/§4.5.
func (s *Store) UpdateTaskStatus(id, status string, progress int, outputData, errMsg string, when time.Time) error {
	updates := map[string]interface{}{"status": status}
	if progress >= 0 {
		updates["progress"] = progress
	}
	if outputData != "" {
		updates["output_data"] = outputData
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	switch status {
	case "Running":
		updates["started_at"] = when
	case "Completed", "Failed":
		updates["finished_at"] = when
	}
	if err := s.DB.Model(&Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "update task", err)
	}
	return nil
}

// UpdateTaskProgress applies a best-effort, monotonic progress update
// without touching status; per §4.5, commits are async/best-effort.
func (s *Store) UpdateTaskProgress(id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	err := s.DB.Model(&Task{}).
		Where("id = ? AND progress < ?", id, progress).
		Update("progress", progress).Error
	if err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "update task progress", err)
	}
	return nil
}

// RunningTasks returns tasks currently in Running status, used at boot
// to reconcile an interrupted process (§4.5: marked Failed/"interrupted").
func (s *Store) RunningTasks() ([]Task, error) {
	var rows []Task
	if err := s.DB.Where("status = ?", "Running").Find(&rows).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "list running tasks", err)
	}
	return rows, nil
}

// ListTasks returns tasks most-recent first, bounded by limit.
func (s *Store) ListTasks(limit int) ([]Task, error) {
	var rows []Task
	q := s.DB.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "list tasks", err)
	}
	return rows, nil
}
